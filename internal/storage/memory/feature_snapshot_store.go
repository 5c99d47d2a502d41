package memory

import (
	"context"
	"sort"
	"sync"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/storage"
)

// FeatureSnapshotStore is an in-memory implementation of storage.FeatureSnapshotStore.
type FeatureSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeatureSnapshot // keyed by verdict_id
}

// NewFeatureSnapshotStore creates a new in-memory feature snapshot store.
func NewFeatureSnapshotStore() *FeatureSnapshotStore {
	return &FeatureSnapshotStore{
		data: make(map[string]*domain.FeatureSnapshot),
	}
}

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate verdict_id.
func (s *FeatureSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.FeatureSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate entire batch before inserting anything
	seen := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.VerdictID == "" || len(snap.Features) != features.Count {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[snap.VerdictID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[snap.VerdictID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[snap.VerdictID] = struct{}{}
	}

	for _, snap := range snapshots {
		s.data[snap.VerdictID] = copySnapshot(snap)
	}
	return nil
}

// GetByVerdictID retrieves the snapshot behind a verdict. Returns ErrNotFound if not exists.
func (s *FeatureSnapshotStore) GetByVerdictID(_ context.Context, verdictID string) (*domain.FeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[verdictID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snap), nil
}

// GetByMint retrieves snapshots for a mint within [start, end] (inclusive).
func (s *FeatureSnapshotStore) GetByMint(_ context.Context, mint string, start, end int64) ([]*domain.FeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureSnapshot
	for _, snap := range s.data {
		if snap.Mint == mint && snap.ClassifiedAt >= start && snap.ClassifiedAt <= end {
			result = append(result, copySnapshot(snap))
		}
	}

	// Sort by classified_at ASC
	sort.Slice(result, func(i, j int) bool {
		if result[i].ClassifiedAt != result[j].ClassifiedAt {
			return result[i].ClassifiedAt < result[j].ClassifiedAt
		}
		return result[i].VerdictID < result[j].VerdictID
	})

	return result, nil
}

func copySnapshot(snap *domain.FeatureSnapshot) *domain.FeatureSnapshot {
	c := *snap
	c.Features = append([]float32(nil), snap.Features...)
	return &c
}

// Verify interface compliance at compile time.
var _ storage.FeatureSnapshotStore = (*FeatureSnapshotStore)(nil)
