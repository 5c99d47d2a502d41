// Package audit persists classifier verdicts and the feature vectors behind them.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/idhash"
	"token-risk-lab/internal/observability"
	"token-risk-lab/internal/storage"
)

// Recorder writes one verdict row and one snapshot row per classification.
// Storage failures are logged and counted, never returned to the caller.
type Recorder struct {
	verdicts  storage.VerdictStore
	snapshots storage.FeatureSnapshotStore
	logger    *zap.Logger
	now       func() int64
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger for persistence failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// WithClock overrides the Unix-ms clock used for classified_at.
func WithClock(now func() int64) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a Recorder. Either store may be nil to skip that table.
func NewRecorder(verdicts storage.VerdictStore, snapshots storage.FeatureSnapshotStore, opts ...Option) *Recorder {
	r := &Recorder{
		verdicts:  verdicts,
		snapshots: snapshots,
		logger:    zap.NewNop(),
		now:       func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record builds the verdict for out and persists it together with the
// validated feature values it was computed from.
// fingerprint is the loaded artifact's fingerprint, empty in rule-based mode.
// The returned verdict is valid even when persistence failed.
func (r *Recorder) Record(ctx context.Context, mint string, vals []float32, out *domain.ClassifierOutput, fingerprint string) *domain.Verdict {
	vectorHash := idhash.ComputeVectorHash(vals)
	classifiedAt := r.now()

	verdict := &domain.Verdict{
		VerdictID:    idhash.ComputeVerdictID(mint, vectorHash, fingerprint, classifiedAt),
		Mint:         mint,
		VectorHash:   vectorHash,
		Mode:         out.Mode,
		RiskScore:    out.RiskScore,
		RiskLevel:    out.RiskLevel,
		Confidence:   out.Confidence,
		Flags:        append([]domain.RiskFlag(nil), out.Flags...),
		ClassifiedAt: classifiedAt,
	}
	if fingerprint != "" {
		fp := fingerprint
		verdict.ModelFingerprint = &fp
	}

	log := r.logger.With(zap.String("verdict_id", verdict.VerdictID), zap.String("mint", mint))

	if r.verdicts != nil {
		if err := r.verdicts.Insert(ctx, verdict); err != nil {
			log.Warn("persist verdict failed", zap.Error(err))
			observability.RecordPersistFailure("verdicts")
		}
	}

	if r.snapshots != nil {
		snap := &domain.FeatureSnapshot{
			VerdictID:    verdict.VerdictID,
			Mint:         mint,
			Features:     append([]float32(nil), vals...),
			RiskScore:    out.RiskScore,
			Mode:         out.Mode,
			ClassifiedAt: classifiedAt,
		}
		if err := r.snapshots.InsertBulk(ctx, []*domain.FeatureSnapshot{snap}); err != nil {
			log.Warn("persist feature snapshot failed", zap.Error(err))
			observability.RecordPersistFailure("feature_snapshots")
		}
	}

	return verdict
}

// Verdict returns a stored verdict by ID.
func (r *Recorder) Verdict(ctx context.Context, id string) (*domain.Verdict, error) {
	if r.verdicts == nil {
		return nil, storage.ErrNotFound
	}
	return r.verdicts.GetByID(ctx, id)
}

// VerdictsForMint returns up to limit verdicts for mint, newest first.
func (r *Recorder) VerdictsForMint(ctx context.Context, mint string, limit int) ([]*domain.Verdict, error) {
	if r.verdicts == nil {
		return nil, nil
	}
	return r.verdicts.GetByMint(ctx, mint, limit)
}

// Snapshot returns the feature vector stored for a verdict.
func (r *Recorder) Snapshot(ctx context.Context, verdictID string) (*domain.FeatureSnapshot, error) {
	if r.snapshots == nil {
		return nil, storage.ErrNotFound
	}
	return r.snapshots.GetByVerdictID(ctx, verdictID)
}
