package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codauto/engine/engine/domain"
)

// UpsertResult stores a row's match result, keyed by (run_id, row_index).
// Re-processing a row replaces its prior result rather than duplicating it.
func (s *Store) UpsertResult(ctx context.Context, r domain.MatchResult) error {
	candidates, err := json.Marshal(r.Candidates)
	if err != nil {
		return fmt.Errorf("catalog: marshal candidates: %w", err)
	}
	fields, err := json.Marshal(r.ExtractedFields)
	if err != nil {
		return fmt.Errorf("catalog: marshal extracted fields: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO match_results
			(run_id, row_index, success, decision, confidence, suggested_code,
			 strategy, candidates, extracted_fields, error, processing_time_ms, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		 ON CONFLICT (run_id, row_index) DO UPDATE SET
			success = EXCLUDED.success,
			decision = EXCLUDED.decision,
			confidence = EXCLUDED.confidence,
			suggested_code = EXCLUDED.suggested_code,
			strategy = EXCLUDED.strategy,
			candidates = EXCLUDED.candidates,
			extracted_fields = EXCLUDED.extracted_fields,
			error = EXCLUDED.error,
			processing_time_ms = EXCLUDED.processing_time_ms,
			updated_at = now()`,
		r.RunID, r.RowIndex, r.Success, r.Decision, r.Confidence, r.SuggestedCode,
		r.Strategy, candidates, fields, r.Error, r.ProcessingTimeMS,
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert result (%s, %d): %w", r.RunID, r.RowIndex, err)
	}
	return nil
}

// ResultsByRun returns all results of a run ordered by row index. Used for
// replay and export.
func (s *Store) ResultsByRun(ctx context.Context, runID string) ([]domain.MatchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, row_index, success, decision, confidence, suggested_code,
			strategy, candidates, extracted_fields, error, processing_time_ms
		 FROM match_results WHERE run_id = $1 ORDER BY row_index`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: results by run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []domain.MatchResult
	for rows.Next() {
		var r domain.MatchResult
		var candidates, fields []byte
		if err := rows.Scan(
			&r.RunID, &r.RowIndex, &r.Success, &r.Decision, &r.Confidence,
			&r.SuggestedCode, &r.Strategy, &candidates, &fields, &r.Error, &r.ProcessingTimeMS,
		); err != nil {
			return nil, fmt.Errorf("catalog: scan result: %w", err)
		}
		if len(candidates) > 0 {
			if err := json.Unmarshal(candidates, &r.Candidates); err != nil {
				return nil, fmt.Errorf("catalog: unmarshal candidates: %w", err)
			}
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &r.ExtractedFields); err != nil {
				return nil, fmt.Errorf("catalog: unmarshal extracted fields: %w", err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate results: %w", err)
	}
	return out, nil
}
