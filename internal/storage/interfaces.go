// Package storage defines the verdict audit stores. Implementations live in
// memory (tests, single-process runs), postgres (verdicts) and clickhouse
// (feature snapshots).
package storage

import (
	"context"

	"token-risk-lab/internal/domain"
)

// VerdictStore provides access to risk_verdicts storage.
type VerdictStore interface {
	// Insert adds a new verdict. Returns ErrDuplicateKey if verdict_id exists.
	Insert(ctx context.Context, v *domain.Verdict) error

	// GetByID retrieves a verdict by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, verdictID string) (*domain.Verdict, error)

	// GetByMint retrieves up to limit verdicts for a mint, newest first.
	// limit <= 0 means no limit.
	GetByMint(ctx context.Context, mint string, limit int) ([]*domain.Verdict, error)
}

// FeatureSnapshotStore provides access to feature_snapshots storage.
type FeatureSnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails entire batch on duplicate verdict_id.
	InsertBulk(ctx context.Context, snapshots []*domain.FeatureSnapshot) error

	// GetByVerdictID retrieves the snapshot behind a verdict. Returns ErrNotFound if not exists.
	GetByVerdictID(ctx context.Context, verdictID string) (*domain.FeatureSnapshot, error)

	// GetByMint retrieves snapshots for a mint within [start, end] (inclusive, Unix ms), ordered by classified_at ASC.
	GetByMint(ctx context.Context, mint string, start, end int64) ([]*domain.FeatureSnapshot, error)
}
