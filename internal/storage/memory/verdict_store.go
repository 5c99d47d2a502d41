package memory

import (
	"context"
	"sort"
	"sync"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/storage"
)

// VerdictStore is an in-memory implementation of storage.VerdictStore.
type VerdictStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Verdict // keyed by verdict_id
}

// NewVerdictStore creates a new in-memory verdict store.
func NewVerdictStore() *VerdictStore {
	return &VerdictStore{
		data: make(map[string]*domain.Verdict),
	}
}

// Insert adds a new verdict. Returns ErrDuplicateKey if verdict_id exists.
func (s *VerdictStore) Insert(_ context.Context, v *domain.Verdict) error {
	if v == nil || v.VerdictID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.VerdictID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[v.VerdictID] = copyVerdict(v)
	return nil
}

// GetByID retrieves a verdict by its ID. Returns ErrNotFound if not exists.
func (s *VerdictStore) GetByID(_ context.Context, verdictID string) (*domain.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[verdictID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyVerdict(v), nil
}

// GetByMint retrieves up to limit verdicts for a mint, newest first.
func (s *VerdictStore) GetByMint(_ context.Context, mint string, limit int) ([]*domain.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Verdict
	for _, v := range s.data {
		if v.Mint == mint {
			result = append(result, copyVerdict(v))
		}
	}

	// Sort by classified_at DESC, verdict_id ASC
	sort.Slice(result, func(i, j int) bool {
		if result[i].ClassifiedAt != result[j].ClassifiedAt {
			return result[i].ClassifiedAt > result[j].ClassifiedAt
		}
		return result[i].VerdictID < result[j].VerdictID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// copyVerdict deep-copies the slices and pointers of v.
func copyVerdict(v *domain.Verdict) *domain.Verdict {
	c := *v
	if v.ModelFingerprint != nil {
		fp := *v.ModelFingerprint
		c.ModelFingerprint = &fp
	}
	c.Flags = append([]domain.RiskFlag(nil), v.Flags...)
	return &c
}

// Verify interface compliance at compile time.
var _ storage.VerdictStore = (*VerdictStore)(nil)
