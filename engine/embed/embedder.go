// Package embed builds structured vehicle text and produces L2-normalized
// dense vectors for catalog rows and queries.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/pkg/fn"
)

const (
	// BatchSize is the max texts per embedding chunk.
	BatchSize = 64
	// progressThreshold: batches above this size log progress per chunk.
	progressThreshold = 256
	// placeholderText substitutes input that is empty after normalization,
	// so we never encode degenerate zero text.
	placeholderText = "vehiculo sin descripcion"
)

// State of the embedder. Readiness is explicit and testable without
// triggering inference as a side effect.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Client is the inference backend (implemented by pkg/ollama).
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder wraps a Client with explicit initialization, a fixed dimension,
// and output normalization. One instance is shared process-wide; callers
// processing many rows should coalesce into EmbedBatch rather than issue
// concurrent single-row calls.
type Embedder struct {
	client Client
	logger *slog.Logger
	state  atomic.Int32
	dim    int
}

// New creates an Embedder in StateUninitialized.
func New(client Client, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{client: client, logger: logger}
}

// Initialize probes the backend once and fixes the vector dimension for the
// process lifetime. Safe to call again after a failed attempt.
func (e *Embedder) Initialize(ctx context.Context) error {
	if State(e.state.Load()) == StateReady {
		return nil
	}
	e.state.Store(int32(StateLoading))

	vec, err := e.client.Embed(ctx, placeholderText)
	if err != nil {
		e.state.Store(int32(StateUninitialized))
		return fmt.Errorf("embed: initialize: %w", err)
	}
	if len(vec) == 0 {
		e.state.Store(int32(StateUninitialized))
		return fmt.Errorf("embed: initialize: backend returned empty vector")
	}

	e.dim = len(vec)
	e.state.Store(int32(StateReady))
	e.logger.Info("embedder ready", "dimension", e.dim)
	return nil
}

// State returns the current readiness state.
func (e *Embedder) State() State { return State(e.state.Load()) }

// Ready reports whether Initialize has completed.
func (e *Embedder) Ready() bool { return e.State() == StateReady }

// Dimension returns the vector dimension, valid once ready.
func (e *Embedder) Dimension() int { return e.dim }

// EmbedVehicle embeds one structured vehicle text. The output is
// L2-normalized. Empty text is replaced with a placeholder.
func (e *Embedder) EmbedVehicle(ctx context.Context, text string) ([]float32, error) {
	if !e.Ready() {
		return nil, domain.ErrEmbedderNotReady
	}
	if strings.TrimSpace(text) == "" {
		text = placeholderText
	}
	vec, err := e.client.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return l2Normalize(vec), nil
}

// EmbedQuery embeds query text. Queries go through the same text building
// and normalization as catalog rows, so this is EmbedVehicle by another
// name; it exists to keep call sites honest about intent.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedVehicle(ctx, text)
}

// EmbedBatch embeds texts in chunks of BatchSize, preserving order. All
// outputs are L2-normalized. Progress is logged for large batches.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !e.Ready() {
		return nil, domain.ErrEmbedderNotReady
	}
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			t = placeholderText
		}
		prepared[i] = t
	}

	out := make([][]float32, 0, len(prepared))
	done := 0
	for _, chunk := range fn.Chunk(prepared, BatchSize) {
		vecs, err := e.client.EmbedBatch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed batch at offset %d: %w", done, err)
		}
		for _, v := range vecs {
			out = append(out, l2Normalize(v))
		}
		done += len(chunk)
		if len(prepared) > progressThreshold {
			e.logger.Info("embed batch progress", "done", done, "total", len(prepared))
		}
	}
	return out, nil
}
