package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-lab/internal/domain"
	"token-risk-lab/internal/features"
	"token-risk-lab/internal/storage"
	"token-risk-lab/internal/storage/clickhouse"
)

func snapshot(id, mint string, at int64) *domain.FeatureSnapshot {
	vals := make([]float32, features.Count)
	for i := range vals {
		vals[i] = float32(i) * 0.03
	}
	return &domain.FeatureSnapshot{
		VerdictID:    id,
		Mint:         mint,
		Features:     vals,
		RiskScore:    62,
		Mode:         domain.ScorerNeural,
		ClassifiedAt: at,
	}
}

func TestFeatureSnapshotStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewFeatureSnapshotStore(conn)
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.FeatureSnapshot{
			snapshot("v1", "mintA", 1000),
			snapshot("v2", "mintA", 2000),
			snapshot("v3", "mintB", 1500),
		})
		require.NoError(t, err)

		got, err := store.GetByVerdictID(ctx, "v2")
		require.NoError(t, err)
		assert.Equal(t, snapshot("v2", "mintA", 2000), got)
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.FeatureSnapshot{snapshot("v1", "mintA", 3000)})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("wrong dimension rejected", func(t *testing.T) {
		bad := snapshot("v9", "mintA", 3000)
		bad.Features = bad.Features[:5]
		assert.ErrorIs(t, store.InsertBulk(ctx, []*domain.FeatureSnapshot{bad}), storage.ErrInvalidInput)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.GetByVerdictID(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("by mint range", func(t *testing.T) {
		got, err := store.GetByMint(ctx, "mintA", 0, 1500)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "v1", got[0].VerdictID)

		got, err = store.GetByMint(ctx, "mintA", 0, 5000)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "v2", got[1].VerdictID)
	})
}
