package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/booking-core/internal/domain"
	"github.com/cimillas/booking-core/internal/testutil"
)

func TestLedgerRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := NewLedgerRepository(pool)

	unit := domain.InventoryUnit{
		ID:            uuid.NewString(),
		ProductType:   domain.ProductEvent,
		ParentID:      "perf-1",
		Name:          "General admission",
		TotalCapacity: 10,
		BasePrice:     30,
		PriceModifier: 1,
		Currency:      "USD",
	}
	require.NoError(t, repo.CreateUnit(ctx, unit))

	t.Run("get round-trips the unit", func(t *testing.T) {
		got, err := repo.Get(ctx, unit.ID)
		require.NoError(t, err)
		assert.Equal(t, unit.Name, got.Name)
		assert.Equal(t, 10, got.TotalCapacity)
		assert.InDelta(t, 30.0, got.BasePrice, 0.001)
	})

	t.Run("unknown and malformed ids", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrUnitNotFound)

		_, err = repo.Get(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := repo.CreateUnit(ctx, unit)
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("try adjust enforces the capacity invariant", func(t *testing.T) {
		got, err := repo.TryAdjust(ctx, unit.ID, 4, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, got.ReservedCapacity)
		assert.Equal(t, int64(1), got.Version)

		_, err = repo.TryAdjust(ctx, unit.ID, 7, 0)
		var insufficient *domain.InsufficientCapacityError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 6, insufficient.Available)

		_, err = repo.TryAdjust(ctx, unit.ID, -5, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidCapacity)

		got, err = repo.TryAdjust(ctx, unit.ID, -4, 4)
		require.NoError(t, err)
		assert.Zero(t, got.ReservedCapacity)
		assert.Equal(t, 4, got.SoldCapacity)

		_, err = repo.TryAdjust(ctx, unit.ID, -4, 4)
		assert.ErrorIs(t, err, domain.ErrInvalidCapacity)

		got, err = repo.TryAdjust(ctx, unit.ID, 0, -4)
		require.NoError(t, err)
		assert.Zero(t, got.SoldCapacity)
	})

	t.Run("concurrent adjusts never oversell", func(t *testing.T) {
		id := testutil.InsertUnit(t, ctx, pool, "perf-2", "Zone B", 10, 25)

		var wg sync.WaitGroup
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = repo.TryAdjust(ctx, id, 1, 0)
			}()
		}
		wg.Wait()

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 10, got.ReservedCapacity)
		assert.Zero(t, got.Available())
	})

	t.Run("list filters by parent", func(t *testing.T) {
		all, err := repo.ListUnits(ctx, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 2)

		perf1, err := repo.ListUnits(ctx, "perf-1")
		require.NoError(t, err)
		require.Len(t, perf1, 1)
		assert.Equal(t, unit.ID, perf1[0].ID)
	})
}
