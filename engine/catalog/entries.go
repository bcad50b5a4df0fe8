package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codauto/engine/engine/domain"
)

const entryColumns = `id, catalog_version, code, brand, model, year, body_type, use_type, vehicle_type, label, embedding`

// BulkLoad inserts a version's rows with COPY and transitions the version to
// LOADED. Rows are validated first; a bad row fails the whole load so a
// version is never half-populated.
func (s *Store) BulkLoad(ctx context.Context, version string, entries []domain.CatalogEntry) error {
	for i, e := range entries {
		if err := domain.ValidateCatalogEntry(e); err != nil {
			return fmt.Errorf("catalog: bulk load %s row %d: %w", version, i, err)
		}
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"catalog_entries"},
		[]string{"catalog_version", "code", "brand", "model", "year", "body_type", "use_type", "vehicle_type", "label"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{version, e.Code, e.Brand, e.Model, e.Year, e.BodyType, e.UseType, e.VehicleType, e.Label}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("catalog: bulk load %s: %w", version, err)
	}

	if err := s.SetVersionState(ctx, version, domain.VersionLoaded); err != nil {
		return err
	}
	s.logger.Info("catalog version loaded", "version", version, "rows", len(entries))
	return nil
}

// EntriesByVersion returns all rows of a version, ordered by id.
func (s *Store) EntriesByVersion(ctx context.Context, version string) ([]domain.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM catalog_entries WHERE catalog_version = $1 ORDER BY id`,
		version,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: entries by version %s: %w", version, err)
	}
	return collectEntries(rows)
}

// EntriesMissingEmbedding returns up to limit rows of a version whose
// embedding has not been backfilled yet, ordered by id.
func (s *Store) EntriesMissingEmbedding(ctx context.Context, version string, limit int) ([]domain.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM catalog_entries
		 WHERE catalog_version = $1 AND embedding IS NULL
		 ORDER BY id LIMIT $2`,
		version, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: entries missing embedding %s: %w", version, err)
	}
	return collectEntries(rows)
}

// UpdateEmbedding backfills one row's embedding. The vector is bound as a
// typed float4[] parameter, never interpolated into the statement.
func (s *Store) UpdateEmbedding(ctx context.Context, id int64, vec []float32) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE catalog_entries SET embedding = $2 WHERE id = $1`,
		id, vec,
	)
	if err != nil {
		return fmt.Errorf("catalog: update embedding %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: update embedding: unknown entry %d", id)
	}
	return nil
}

// ExactMatch performs a literal equality lookup against a version. Brand
// comparison folds hyphens to spaces on both sides, so "MERCEDES-BENZ" rows
// match the space-form query a brand extractor produces. Year and body are
// optional narrowing filters; zero values are ignored. Results are ordered by
// id for deterministic ranking downstream.
func (s *Store) ExactMatch(ctx context.Context, version, brand, model string, year int, body string) ([]domain.CatalogEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM catalog_entries
		 WHERE catalog_version = $1
		   AND lower(replace(brand, '-', ' ')) = lower(replace($2, '-', ' '))
		   AND lower(model) = lower($3)`
	args := []any{version, brand, model}

	if year != 0 {
		args = append(args, year)
		query += fmt.Sprintf(` AND year = $%d`, len(args))
	}
	if body != "" {
		args = append(args, body)
		query += fmt.Sprintf(` AND lower(body_type) = lower($%d)`, len(args))
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: exact match: %w", err)
	}
	return collectEntries(rows)
}

// CountEntries returns the number of rows in a version.
func (s *Store) CountEntries(ctx context.Context, version string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM catalog_entries WHERE catalog_version = $1`, version,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("catalog: count entries %s: %w", version, err)
	}
	return n, nil
}

// DeleteVersion removes a version's rows wholesale (replaced catalogs).
func (s *Store) DeleteVersion(ctx context.Context, version string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM catalog_entries WHERE catalog_version = $1`, version,
	); err != nil {
		return fmt.Errorf("catalog: delete entries %s: %w", version, err)
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM catalog_versions WHERE version = $1`, version,
	); err != nil {
		return fmt.Errorf("catalog: delete version %s: %w", version, err)
	}
	return nil
}

func collectEntries(rows pgx.Rows) ([]domain.CatalogEntry, error) {
	defer rows.Close()
	var out []domain.CatalogEntry
	for rows.Next() {
		var e domain.CatalogEntry
		if err := rows.Scan(
			&e.ID, &e.CatalogVersion, &e.Code, &e.Brand, &e.Model, &e.Year,
			&e.BodyType, &e.UseType, &e.VehicleType, &e.Label, &e.Embedding,
		); err != nil {
			return nil, fmt.Errorf("catalog: scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate entries: %w", err)
	}
	return out, nil
}
