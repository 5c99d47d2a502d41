package clickhouse

import (
	"context"
	"fmt"
	"time"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/observability"
	"token-risk-lab/internal/storage"
)

// FeatureSnapshotStore implements storage.FeatureSnapshotStore using ClickHouse.
type FeatureSnapshotStore struct {
	conn *Conn
}

// NewFeatureSnapshotStore creates a new FeatureSnapshotStore.
func NewFeatureSnapshotStore(conn *Conn) *FeatureSnapshotStore {
	return &FeatureSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureSnapshotStore = (*FeatureSnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate verdict_id.
func (s *FeatureSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.FeatureSnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_feature_snapshots", time.Since(start).Seconds(), err)
	}()

	// Check for intra-batch duplicates and malformed vectors
	seen := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.VerdictID == "" || len(snap.Features) != features.Count {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[snap.VerdictID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[snap.VerdictID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.VerdictID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO feature_snapshots (
			verdict_id, mint, features, risk_score, mode, classified_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.VerdictID,
			snap.Mint,
			snap.Features,
			uint8(snap.RiskScore),
			string(snap.Mode),
			uint64(snap.ClassifiedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByVerdictID retrieves the snapshot behind a verdict. Returns ErrNotFound if not exists.
func (s *FeatureSnapshotStore) GetByVerdictID(ctx context.Context, verdictID string) (*domain.FeatureSnapshot, error) {
	query := `
		SELECT verdict_id, mint, features, risk_score, mode, classified_at
		FROM feature_snapshots
		WHERE verdict_id = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, verdictID)
	if err != nil {
		return nil, fmt.Errorf("query by verdict id: %w", err)
	}
	defer rows.Close()

	snaps, err := scanFeatureSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return snaps[0], nil
}

// GetByMint retrieves snapshots for a mint within [start, end] (inclusive).
func (s *FeatureSnapshotStore) GetByMint(ctx context.Context, mint string, start, end int64) ([]*domain.FeatureSnapshot, error) {
	query := `
		SELECT verdict_id, mint, features, risk_score, mode, classified_at
		FROM feature_snapshots
		WHERE mint = ? AND classified_at >= ? AND classified_at <= ?
		ORDER BY classified_at ASC, verdict_id ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(max(start, 0)), uint64(max(end, 0)))
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanFeatureSnapshots(rows)
}

// exists checks if a snapshot with the given verdict ID exists.
func (s *FeatureSnapshotStore) exists(ctx context.Context, verdictID string) (bool, error) {
	query := `
		SELECT count(*) FROM feature_snapshots
		WHERE verdict_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, verdictID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanFeatureSnapshots scans multiple rows.
func scanFeatureSnapshots(rows chRows) ([]*domain.FeatureSnapshot, error) {
	var snaps []*domain.FeatureSnapshot

	for rows.Next() {
		var snap domain.FeatureSnapshot
		var riskScore uint8
		var mode string
		var classifiedAt uint64

		err := rows.Scan(
			&snap.VerdictID, &snap.Mint, &snap.Features,
			&riskScore, &mode, &classifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature snapshot row: %w", err)
		}

		snap.RiskScore = int(riskScore)
		snap.Mode = domain.ScorerMode(mode)
		snap.ClassifiedAt = int64(classifiedAt)
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature snapshot rows: %w", err)
	}

	return snaps, nil
}
