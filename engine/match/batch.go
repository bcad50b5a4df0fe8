package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/pkg/fn"
)

// rowWork pairs a prepared row with its query vector for the worker pool.
type rowWork struct {
	row preparedRow
	vec []float32
}

// Run processes a batch against the active catalog version. The embedding
// model is shared process-wide, so all row texts are embedded in one
// coalesced batch call up front; rows then flow through bounded-concurrency
// workers with no shared mutable state.
//
// Row failures are recorded per row and never abort siblings. A missing or
// ambiguous ACTIVE version aborts the whole batch before any row runs.
func (o *Orchestrator) Run(ctx context.Context, runID string, queries []domain.VehicleQuery) ([]domain.MatchResult, domain.BatchSummary, error) {
	summary := domain.BatchSummary{
		RunID:     runID,
		Decisions: make(map[domain.Decision]int),
	}
	if len(queries) == 0 {
		return nil, summary, nil
	}

	version, err := o.deps.Versions.ActiveVersion(ctx)
	if err != nil {
		return nil, summary, fmt.Errorf("match: resolve active version: %w", err)
	}
	if o.deps.Index != nil {
		ok, err := o.deps.Index.HasCollection(ctx, version)
		if err != nil {
			return nil, summary, fmt.Errorf("match: check vector index for %s: %w", version, err)
		}
		if !ok {
			return nil, summary, fmt.Errorf("match: version %s has no vector collection: %w",
				version, domain.ErrCatalogUnavailable)
		}
	}

	rows := make([]preparedRow, len(queries))
	for i, q := range queries {
		if q.RunID == "" {
			q.RunID = runID
		}
		rows[i] = o.prepare(q)
	}
	texts := fn.Map(rows, func(r preparedRow) string { return r.label })

	vecs, embedErr := fn.Retry(ctx, o.opts.Retry, func(ctx context.Context) fn.Result[[][]float32] {
		return fn.FromPair(o.deps.Embedder.EmbedBatch(ctx, texts))
	}).Unwrap()
	if embedErr != nil {
		if errors.Is(embedErr, context.DeadlineExceeded) {
			embedErr = fmt.Errorf("%w: %v", domain.ErrEmbeddingTimeout, embedErr)
		}
		// Rows with an exact structured match can still resolve; everything
		// else fails at the embed stage, per row.
		o.deps.Logger.Error("batch embedding failed", "run_id", runID, "rows", len(queries), "error", embedErr)
		vecs = nil
	}

	work := make([]rowWork, len(rows))
	for i := range rows {
		w := rowWork{row: rows[i]}
		if vecs != nil && i < len(vecs) {
			w.vec = vecs[i]
		}
		work[i] = w
	}

	results := fn.ParMap(work, o.opts.Workers, func(w rowWork) domain.MatchResult {
		return o.matchRow(ctx, version, w.row, w.vec, embedErr)
	})

	summary.TotalVehicles = len(results)
	for _, r := range results {
		if r.Success {
			summary.SuccessfulMatches++
		} else {
			summary.FailedMatches++
		}
		summary.Decisions[r.Decision]++
	}

	o.deps.Logger.Info("batch complete",
		"run_id", runID,
		"version", version,
		"total", summary.TotalVehicles,
		"succeeded", summary.SuccessfulMatches,
		"failed", summary.FailedMatches,
	)
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveBatch()
	}
	return results, summary, nil
}
