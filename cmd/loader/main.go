// Command loader registers a new catalog version and bulk-loads its rows from
// a CSV export. The version lands in LOADED state; run backfill and activate
// afterwards to put it in service.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/codauto/engine/engine/catalog"
	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/engine/semantic"
	"github.com/codauto/engine/pkg/config"
)

func main() {
	version := flag.String("version", "", "catalog version label to create (required)")
	file := flag.String("file", "", "CSV file with catalog rows (required)")
	replace := flag.Bool("replace", false, "delete the version first if it already exists")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *version == "" || *file == "" {
		logger.Error("missing -version or -file")
		os.Exit(2)
	}

	cfg, err := config.Load(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, *version, *file, *replace, logger); err != nil {
		logger.Error("load failed", "version", *version, "err", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cfg *config.Config, version, file string, replace bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	entries, err := readEntries(f, version)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s: no rows", file)
	}

	pool, err := catalog.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := catalog.New(pool, logger)

	if replace {
		vectors, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Prefix)
		if err != nil {
			return err
		}
		defer vectors.Close()
		if err := replaceVersion(ctx, vectors, store, version); err != nil {
			return err
		}
	}
	if err := store.CreateVersion(ctx, version); err != nil {
		return err
	}
	if err := store.BulkLoad(ctx, version, entries); err != nil {
		return err
	}

	n, err := store.CountEntries(ctx, version)
	if err != nil {
		return err
	}
	logger.Info("catalog version loaded", "version", version, "rows", n)
	return nil
}

type collectionDropper interface {
	HasCollection(ctx context.Context, version string) (bool, error)
	DropCollection(ctx context.Context, version string) error
}

type versionDeleter interface {
	DeleteVersion(ctx context.Context, version string) error
}

// replaceVersion clears both stores before reloading: the vector collection
// first, then the relational rows. Point IDs are deterministic per
// (version, row id), so vectors from the previous load would otherwise
// survive in the old collection and keep matching after the reload.
func replaceVersion(ctx context.Context, vectors collectionDropper, store versionDeleter, version string) error {
	ok, err := vectors.HasCollection(ctx, version)
	if err != nil {
		return err
	}
	if ok {
		if err := vectors.DropCollection(ctx, version); err != nil {
			return err
		}
	}
	return store.DeleteVersion(ctx, version)
}

// readEntries parses the CSV export. The header row names the columns; code,
// brand, and model are required, the rest are optional.
func readEntries(r io.Reader, version string) ([]domain.CatalogEntry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"code", "brand", "model"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("header missing column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var entries []domain.CatalogEntry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		e := domain.CatalogEntry{
			CatalogVersion: version,
			Code:           field(rec, "code"),
			Brand:          field(rec, "brand"),
			Model:          field(rec, "model"),
			BodyType:       field(rec, "body_type"),
			UseType:        field(rec, "use_type"),
			VehicleType:    field(rec, "vehicle_type"),
			Label:          field(rec, "label"),
		}
		if y := field(rec, "year"); y != "" {
			e.Year, err = strconv.Atoi(y)
			if err != nil {
				return nil, fmt.Errorf("line %d: year %q: %w", line, y, err)
			}
		}
		if e.Label == "" {
			e.Label = strings.TrimSpace(e.Brand + " " + e.Model)
		}
		if err := domain.ValidateCatalogEntry(e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
