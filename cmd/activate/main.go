// Command activate promotes a catalog version to ACTIVE, demoting the
// current one, in a single serializable transaction. With -check it only
// verifies the exactly-one-ACTIVE invariant.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/codauto/engine/engine/catalog"
	"github.com/codauto/engine/pkg/config"
)

func main() {
	version := flag.String("version", "", "catalog version to activate")
	check := flag.Bool("check", false, "only check catalog consistency")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if !*check && *version == "" {
		logger.Error("missing -version")
		os.Exit(2)
	}

	cfg, err := config.Load(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := catalog.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("postgres connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	store := catalog.New(pool, logger)

	if *check {
		active, err := store.ActiveVersion(ctx)
		if err != nil {
			logger.Error("catalog inconsistent", "err", err)
			os.Exit(1)
		}
		logger.Info("catalog consistent", "active", active)
		return
	}

	if err := store.Activate(ctx, *version); err != nil {
		logger.Error("activate failed", "version", *version, "err", err)
		os.Exit(1)
	}
	logger.Info("version activated", "version", *version)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
