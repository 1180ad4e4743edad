package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/booking-core/internal/domain"
)

func TestLedger_TryAdjust(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newLedger := func(t *testing.T) *Ledger {
		t.Helper()
		l := NewLedger()
		require.NoError(t, l.CreateUnit(ctx, domain.InventoryUnit{
			ID: "unit-1", ProductType: domain.ProductEvent, ParentID: "p", Name: "n", TotalCapacity: 10,
		}))
		return l
	}

	t.Run("applies deltas and bumps the version", func(t *testing.T) {
		l := newLedger(t)

		unit, err := l.TryAdjust(ctx, "unit-1", 4, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, unit.ReservedCapacity)
		assert.Equal(t, int64(1), unit.Version)

		unit, err = l.TryAdjust(ctx, "unit-1", -4, 4)
		require.NoError(t, err)
		assert.Zero(t, unit.ReservedCapacity)
		assert.Equal(t, 4, unit.SoldCapacity)
		assert.Equal(t, int64(2), unit.Version)
	})

	t.Run("rejects adjustments breaking the capacity invariant", func(t *testing.T) {
		l := newLedger(t)

		_, err := l.TryAdjust(ctx, "unit-1", 11, 0)
		var insufficient *domain.InsufficientCapacityError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 10, insufficient.Available)

		// Nothing was written.
		unit, err := l.Get(ctx, "unit-1")
		require.NoError(t, err)
		assert.Zero(t, unit.ReservedCapacity)
		assert.Zero(t, unit.Version)
	})

	t.Run("rejects negative counters", func(t *testing.T) {
		l := newLedger(t)

		_, err := l.TryAdjust(ctx, "unit-1", -1, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidCapacity)
	})

	t.Run("unknown unit", func(t *testing.T) {
		l := newLedger(t)

		_, err := l.TryAdjust(ctx, "nope", 1, 0)
		assert.ErrorIs(t, err, domain.ErrUnitNotFound)
	})

	t.Run("concurrent adjusts never exceed capacity", func(t *testing.T) {
		l := newLedger(t)

		var wg sync.WaitGroup
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = l.TryAdjust(ctx, "unit-1", 1, 0)
			}()
		}
		wg.Wait()

		unit, err := l.Get(ctx, "unit-1")
		require.NoError(t, err)
		assert.Equal(t, 10, unit.ReservedCapacity)
	})
}

func TestLedger_ListUnits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l := NewLedger()
	require.NoError(t, l.CreateUnit(ctx, domain.InventoryUnit{ID: "b", ParentID: "p1", TotalCapacity: 1}))
	require.NoError(t, l.CreateUnit(ctx, domain.InventoryUnit{ID: "a", ParentID: "p1", TotalCapacity: 1}))
	require.NoError(t, l.CreateUnit(ctx, domain.InventoryUnit{ID: "c", ParentID: "p2", TotalCapacity: 1}))

	all, err := l.ListUnits(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)

	p1, err := l.ListUnits(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, p1, 2)

	err = l.CreateUnit(ctx, domain.InventoryUnit{ID: "a", ParentID: "p1", TotalCapacity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
