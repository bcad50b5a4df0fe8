// Command matcher runs the codification service: it consumes query batches
// from NATS, matches them against the active catalog version, and serves
// health and metrics over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/codauto/engine/engine/brand"
	"github.com/codauto/engine/engine/catalog"
	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/engine/embed"
	"github.com/codauto/engine/engine/match"
	"github.com/codauto/engine/engine/normalize"
	"github.com/codauto/engine/engine/retrieve"
	"github.com/codauto/engine/engine/score"
	"github.com/codauto/engine/engine/semantic"
	"github.com/codauto/engine/pkg/config"
	"github.com/codauto/engine/pkg/metrics"
	"github.com/codauto/engine/pkg/mid"
	"github.com/codauto/engine/pkg/ollama"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("matcher exited with error", "err", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Postgres ---
	pool, err := catalog.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := catalog.New(pool, logger)

	// --- Qdrant ---
	vectors, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Prefix)
	if err != nil {
		return err
	}
	defer vectors.Close()

	// --- Embedder ---
	embedder := embed.New(ollama.New(cfg.Ollama.URL, cfg.Ollama.Model, cfg.Ollama.RPS), logger)
	if err := embedder.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize embedder: %w", err)
	}

	// --- Normalizer and brand lookup from the active catalog ---
	normalizer := normalize.New(cfg.Abbreviations)
	var entries []domain.CatalogEntry
	version, err := store.ActiveVersion(ctx)
	switch {
	case err == nil:
		entries, err = store.EntriesByVersion(ctx, version)
		if err != nil {
			return fmt.Errorf("load active catalog %s: %w", version, err)
		}
		logger.Info("active catalog loaded", "version", version, "rows", len(entries))
	case errors.Is(err, domain.ErrNoActiveVersion):
		// Startable without a catalog; batches will fail fast until one is
		// activated and the lookup falls back to the seed aliases.
		logger.Warn("no active catalog version at startup")
	default:
		return fmt.Errorf("resolve active version: %w", err)
	}
	brands := brand.NewLookup(normalizer, entries, nil, cfg.CommercialVehicleTypes, cfg.Matching.FuzzyThreshold)

	// --- Pipeline ---
	reg := metrics.New()
	reg.Gauge("codification_catalog_rows", "Rows in the active catalog version at startup.").Set(int64(len(entries)))
	retriever := retrieve.New(store, vectors, retrieve.Options{
		Tiers:  tiersFor(cfg.Matching.MinSimilarity),
		Limit:  2 * cfg.Matching.MaxCandidates,
		Logger: logger,
	})
	orchestrator := match.New(match.Deps{
		Normalizer: normalizer,
		Brands:     brands,
		Embedder:   embedder,
		Retriever:  retriever,
		Scorer:     score.New(score.Weights{Embed: cfg.Matching.WEmbed, Fuzzy: cfg.Matching.WFuzzy}, cfg.Matching.MaxCandidates),
		Results:    store,
		Versions:   store,
		Index:      vectors,
		Metrics:    match.NewMetrics(reg),
		Logger:     logger,
	}, match.Options{
		THigh:      cfg.Matching.THigh,
		TLow:       cfg.Matching.TLow,
		RowTimeout: cfg.Matching.RowTimeout,
		Workers:    cfg.Matching.Workers,
	})

	// --- NATS consumer ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	sub, err := match.StartConsumer(nc, orchestrator, logger)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer sub.Unsubscribe()
	logger.Info("consuming batches", "subject", match.MatchSubject)

	// --- HTTP surface ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth(store, embedder))
	mux.Handle("GET /metrics", reg.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mid.Chain(mux, mid.Recover(logger), mid.Logger(logger), mid.OTel("matcher")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("matcher listening", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// tiersFor drops ladder rungs below the configured similarity floor.
func tiersFor(minSimilarity float64) []retrieve.Tier {
	var tiers []retrieve.Tier
	for _, t := range retrieve.DefaultTiers {
		if t.MinSimilarity >= minSimilarity {
			tiers = append(tiers, t)
		}
	}
	if len(tiers) == 0 {
		tiers = retrieve.DefaultTiers
	}
	return tiers
}

// healthResponse reports catalog consistency and embedder readiness.
// A multiple-ACTIVE catalog is an error, not a degradation.
type healthResponse struct {
	Status   string `json:"status"`
	Catalog  string `json:"catalog"`
	Embedder string `json:"embedder"`
}

func handleHealth(store *catalog.Store, embedder *embed.Embedder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Catalog: "ok", Embedder: embedder.State().String()}
		code := http.StatusOK

		switch err := store.CheckConsistency(r.Context()); {
		case errors.Is(err, domain.ErrMultipleActiveVersions):
			resp.Status = "error"
			resp.Catalog = "multiple active versions"
			code = http.StatusInternalServerError
		case errors.Is(err, domain.ErrNoActiveVersion):
			resp.Status = "degraded"
			resp.Catalog = "no active version"
			code = http.StatusServiceUnavailable
		case err != nil:
			resp.Status = "error"
			resp.Catalog = err.Error()
			code = http.StatusInternalServerError
		}
		if !embedder.Ready() && resp.Status == "ok" {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(resp)
	}
}
