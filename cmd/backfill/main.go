// Command backfill embeds catalog rows that are missing vectors, upserts the
// vectors into the version's Qdrant collection, and marks the version
// EMBEDDED. Safe to re-run: already-embedded rows are skipped and point IDs
// are deterministic.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/codauto/engine/engine/brand"
	"github.com/codauto/engine/engine/catalog"
	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/engine/embed"
	"github.com/codauto/engine/engine/normalize"
	"github.com/codauto/engine/engine/semantic"
	"github.com/codauto/engine/pkg/config"
	"github.com/codauto/engine/pkg/ollama"
)

const fetchBatch = 500

func main() {
	version := flag.String("version", "", "catalog version to backfill (required)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *version == "" {
		logger.Error("missing -version")
		os.Exit(2)
	}

	cfg, err := config.Load(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, *version, logger); err != nil {
		logger.Error("backfill failed", "version", *version, "err", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cfg *config.Config, version string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := catalog.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := catalog.New(pool, logger)

	vectors, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Prefix)
	if err != nil {
		return err
	}
	defer vectors.Close()

	embedder := embed.New(ollama.New(cfg.Ollama.URL, cfg.Ollama.Model, cfg.Ollama.RPS), logger)
	if err := embedder.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize embedder: %w", err)
	}

	if err := vectors.EnsureCollection(ctx, version, embedder.Dimension()); err != nil {
		return err
	}

	normalizer := normalize.New(cfg.Abbreviations)

	total := 0
	for {
		entries, err := store.EntriesMissingEmbedding(ctx, version, fetchBatch)
		if err != nil {
			return markFailed(ctx, store, version, err)
		}
		if len(entries) == 0 {
			break
		}

		texts := make([]string, len(entries))
		for i, e := range entries {
			texts[i] = entryText(normalizer, e)
		}
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return markFailed(ctx, store, version, fmt.Errorf("embed %d rows: %w", len(entries), err))
		}

		records := make([]semantic.VectorRecord, len(entries))
		for i, e := range entries {
			if err := store.UpdateEmbedding(ctx, e.ID, vecs[i]); err != nil {
				return markFailed(ctx, store, version, err)
			}
			records[i] = semantic.VectorRecord{
				ID:        pointID(version, e.ID),
				Embedding: vecs[i],
				Payload: semantic.Payload{
					CatalogID: e.ID,
					Code:      e.Code,
					Brand:     brand.Canonical(normalizer, e.Brand),
					Model:     normalizer.Normalize(e.Model),
					Year:      e.Year,
					Body:      normalizer.Normalize(e.BodyType),
					Use:       normalizer.Normalize(e.UseType),
					Label:     texts[i],
					Version:   version,
				},
			}
		}
		if err := vectors.Upsert(ctx, version, records); err != nil {
			return markFailed(ctx, store, version, err)
		}

		total += len(entries)
		logger.Info("backfill progress", "version", version, "embedded", total)
	}

	if err := store.SetVersionState(ctx, version, domain.VersionEmbedded); err != nil {
		return err
	}
	logger.Info("backfill complete", "version", version, "rows", total)
	return nil
}

// entryText builds the structured embedding text for a catalog row, the same
// shape queries are embedded with.
func entryText(n *normalize.Normalizer, e domain.CatalogEntry) string {
	return embed.BuildText(embed.TextParts{
		Brand:       brand.Canonical(n, e.Brand),
		Model:       n.Normalize(e.Model),
		Year:        e.Year,
		Body:        n.Normalize(e.BodyType),
		Use:         n.Normalize(e.UseType),
		Description: n.Normalize(e.Label),
		Features:    normalize.FeatureLabels(n.ExtractFeatures(e.Label)),
	})
}

// pointID derives a stable Qdrant point ID from the version and row id, so
// re-running the backfill overwrites rather than duplicates.
func pointID(version string, id int64) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s-%d", version, id))).String()
}

func markFailed(ctx context.Context, store *catalog.Store, version string, cause error) error {
	if err := store.SetVersionState(ctx, version, domain.VersionFailed); err != nil {
		return fmt.Errorf("%w (and marking FAILED also failed: %v)", cause, err)
	}
	return cause
}
