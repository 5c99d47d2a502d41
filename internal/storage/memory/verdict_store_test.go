package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/storage"
)

func testVerdict(id, mint string, at int64) *domain.Verdict {
	fp := "0123456789abcdef"
	return &domain.Verdict{
		VerdictID:        id,
		Mint:             mint,
		VectorHash:       "hash-" + id,
		ModelFingerprint: &fp,
		Mode:             domain.ScorerNeural,
		RiskScore:        72,
		RiskLevel:        domain.RiskLevelDangerous,
		Confidence:       64,
		Flags: []domain.RiskFlag{
			{Type: domain.FlagMintAuthorityActive, Probability: 1, Severity: domain.SeverityHigh},
		},
		ClassifiedAt: at,
	}
}

func TestVerdictStore_InsertAndGet(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	v := testVerdict("v1", "mint1", 1704067200000)
	if err := store.Insert(ctx, v); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "v1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RiskScore != 72 || got.RiskLevel != domain.RiskLevelDangerous {
		t.Errorf("score/level mismatch: got %d/%s", got.RiskScore, got.RiskLevel)
	}
	if got.ModelFingerprint == nil || *got.ModelFingerprint != "0123456789abcdef" {
		t.Errorf("fingerprint mismatch: got %v", got.ModelFingerprint)
	}
	if len(got.Flags) != 1 || got.Flags[0].Type != domain.FlagMintAuthorityActive {
		t.Errorf("flags mismatch: got %+v", got.Flags)
	}
}

func TestVerdictStore_DuplicateKey(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testVerdict("v1", "mint1", 1)); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	err := store.Insert(ctx, testVerdict("v1", "mint1", 2))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestVerdictStore_InvalidInput(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil verdict: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Verdict{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty id: expected ErrInvalidInput, got %v", err)
	}
}

func TestVerdictStore_NotFound(t *testing.T) {
	store := NewVerdictStore()
	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVerdictStore_GetByMint(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	for i, at := range []int64{3000, 1000, 2000} {
		if err := store.Insert(ctx, testVerdict(fmt.Sprintf("a%d", i), "mintA", at)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := store.Insert(ctx, testVerdict("b0", "mintB", 5000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByMint(ctx, "mintA", 0)
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 verdicts, got %d", len(got))
	}
	for i, want := range []int64{3000, 2000, 1000} {
		if got[i].ClassifiedAt != want {
			t.Errorf("position %d: got classified_at %d, want %d", i, got[i].ClassifiedAt, want)
		}
	}

	limited, err := store.GetByMint(ctx, "mintA", 2)
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(limited) != 2 || limited[0].ClassifiedAt != 3000 {
		t.Errorf("limit not applied newest-first: %+v", limited)
	}

	none, err := store.GetByMint(ctx, "unknown", 0)
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no verdicts, got %d", len(none))
	}
}

func TestVerdictStore_ReturnsCopies(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	v := testVerdict("v1", "mint1", 1)
	if err := store.Insert(ctx, v); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	v.Flags[0].Severity = domain.SeverityLow
	*v.ModelFingerprint = "mutated"

	got, _ := store.GetByID(ctx, "v1")
	if got.Flags[0].Severity != domain.SeverityHigh {
		t.Error("stored flags were mutated through the caller's slice")
	}
	if *got.ModelFingerprint != "0123456789abcdef" {
		t.Error("stored fingerprint was mutated through the caller's pointer")
	}

	got.RiskScore = 0
	again, _ := store.GetByID(ctx, "v1")
	if again.RiskScore != 72 {
		t.Error("stored verdict was mutated through a returned copy")
	}
}

func TestVerdictStore_ConcurrentInsert(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Insert(ctx, testVerdict(fmt.Sprintf("v%d", i), "mint", int64(i)))
		}(i)
	}
	wg.Wait()

	got, err := store.GetByMint(ctx, "mint", 0)
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 50 {
		t.Errorf("expected 50 verdicts, got %d", len(got))
	}
}
