package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codauto/engine/engine/domain"
)

// CreateVersion registers a new catalog version in UPLOADED state.
func (s *Store) CreateVersion(ctx context.Context, version string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO catalog_versions (version, state, created_at) VALUES ($1, $2, now())`,
		version, domain.VersionUploaded,
	)
	if err != nil {
		return fmt.Errorf("catalog: create version %s: %w", version, err)
	}
	return nil
}

// SetVersionState transitions a version's lifecycle state.
func (s *Store) SetVersionState(ctx context.Context, version string, state domain.VersionState) error {
	if !domain.ValidVersionStates[state] {
		return fmt.Errorf("catalog: unknown version state %q", state)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE catalog_versions SET state = $2 WHERE version = $1`,
		version, state,
	)
	if err != nil {
		return fmt.Errorf("catalog: set state %s=%s: %w", version, state, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: set state: unknown version %q", version)
	}
	return nil
}

// ActiveVersion returns the single ACTIVE catalog version. Zero active
// versions means the catalog is unusable; more than one is a consistency
// violation that must never be silently tolerated.
func (s *Store) ActiveVersion(ctx context.Context) (string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT version FROM catalog_versions WHERE state = $1`, domain.VersionActive,
	)
	if err != nil {
		return "", fmt.Errorf("catalog: query active version: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return "", fmt.Errorf("catalog: collect active versions: %w", err)
	}

	switch len(versions) {
	case 1:
		return versions[0], nil
	case 0:
		return "", domain.ErrNoActiveVersion
	default:
		return "", fmt.Errorf("catalog: found %d active versions: %w", len(versions), domain.ErrMultipleActiveVersions)
	}
}

// Activate promotes version to ACTIVE and demotes the current ACTIVE version
// back to EMBEDDED, as one serializable transaction. A post-condition check
// verifies that exactly one version is ACTIVE before committing; any other
// count aborts the transaction.
func (s *Store) Activate(ctx context.Context, version string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("catalog: activate %s: begin: %w", version, err)
	}
	defer tx.Rollback(ctx)

	var state domain.VersionState
	err = tx.QueryRow(ctx,
		`SELECT state FROM catalog_versions WHERE version = $1 FOR UPDATE`, version,
	).Scan(&state)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("catalog: activate: unknown version %q", version)
	}
	if err != nil {
		return fmt.Errorf("catalog: activate %s: lock: %w", version, err)
	}
	if state != domain.VersionEmbedded && state != domain.VersionActive {
		return fmt.Errorf("catalog: activate %s: version in state %s, need %s", version, state, domain.VersionEmbedded)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE catalog_versions SET state = $1 WHERE state = $2 AND version <> $3`,
		domain.VersionEmbedded, domain.VersionActive, version,
	); err != nil {
		return fmt.Errorf("catalog: activate %s: demote: %w", version, err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE catalog_versions SET state = $1, activated_at = now() WHERE version = $2`,
		domain.VersionActive, version,
	); err != nil {
		return fmt.Errorf("catalog: activate %s: promote: %w", version, err)
	}

	var active int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM catalog_versions WHERE state = $1`, domain.VersionActive,
	).Scan(&active); err != nil {
		return fmt.Errorf("catalog: activate %s: post-check: %w", version, err)
	}
	if active != 1 {
		return fmt.Errorf("catalog: activate %s left %d active versions: %w", version, active, domain.ErrMultipleActiveVersions)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("catalog: activate %s: commit: %w", version, err)
	}
	s.logger.Info("catalog version activated", "version", version)
	return nil
}

// CheckConsistency verifies the single-ACTIVE invariant. Used by the health
// endpoint and before every batch.
func (s *Store) CheckConsistency(ctx context.Context) error {
	_, err := s.ActiveVersion(ctx)
	return err
}
