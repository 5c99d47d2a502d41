package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/observability"
	"token-risk-lab/internal/storage"
)

// VerdictStore implements storage.VerdictStore using PostgreSQL.
type VerdictStore struct {
	pool *Pool
}

// NewVerdictStore creates a new VerdictStore.
func NewVerdictStore(pool *Pool) *VerdictStore {
	return &VerdictStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VerdictStore = (*VerdictStore)(nil)

// Insert adds a new verdict. Returns ErrDuplicateKey if verdict_id exists.
func (s *VerdictStore) Insert(ctx context.Context, v *domain.Verdict) (err error) {
	if v == nil || v.VerdictID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "insert_verdict", time.Since(start).Seconds(), err) }()

	flags, err := json.Marshal(nonNilFlags(v.Flags))
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	query := `
		INSERT INTO risk_verdicts (
			verdict_id, mint, vector_hash, model_fingerprint, mode,
			risk_score, risk_level, confidence, flags, classified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		v.VerdictID,
		v.Mint,
		v.VectorHash,
		v.ModelFingerprint,
		string(v.Mode),
		v.RiskScore,
		string(v.RiskLevel),
		v.Confidence,
		flags,
		v.ClassifiedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// GetByID retrieves a verdict by its ID. Returns ErrNotFound if not exists.
func (s *VerdictStore) GetByID(ctx context.Context, verdictID string) (*domain.Verdict, error) {
	query := `
		SELECT verdict_id, mint, vector_hash, model_fingerprint, mode,
		       risk_score, risk_level, confidence, flags, classified_at
		FROM risk_verdicts
		WHERE verdict_id = $1
	`

	row := s.pool.QueryRow(ctx, query, verdictID)
	v, err := scanVerdict(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get verdict by id: %w", err)
	}
	return v, nil
}

// GetByMint retrieves up to limit verdicts for a mint, newest first.
func (s *VerdictStore) GetByMint(ctx context.Context, mint string, limit int) ([]*domain.Verdict, error) {
	query := `
		SELECT verdict_id, mint, vector_hash, model_fingerprint, mode,
		       risk_score, risk_level, confidence, flags, classified_at
		FROM risk_verdicts
		WHERE mint = $1
		ORDER BY classified_at DESC, verdict_id ASC
	`
	args := []any{mint}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get verdicts by mint: %w", err)
	}
	defer rows.Close()

	return scanVerdicts(rows)
}

// scanVerdict scans a single row into a Verdict.
func scanVerdict(row pgx.Row) (*domain.Verdict, error) {
	var v domain.Verdict
	var mode, level string
	var flags []byte

	err := row.Scan(
		&v.VerdictID,
		&v.Mint,
		&v.VectorHash,
		&v.ModelFingerprint,
		&mode,
		&v.RiskScore,
		&level,
		&v.Confidence,
		&flags,
		&v.ClassifiedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Mode = domain.ScorerMode(mode)
	v.RiskLevel = domain.RiskLevel(level)
	if err := json.Unmarshal(flags, &v.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	return &v, nil
}

// scanVerdicts scans multiple rows into a slice of Verdict.
func scanVerdicts(rows pgx.Rows) ([]*domain.Verdict, error) {
	var result []*domain.Verdict
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return result, nil
}

func nonNilFlags(flags []domain.RiskFlag) []domain.RiskFlag {
	if flags == nil {
		return []domain.RiskFlag{}
	}
	return flags
}
