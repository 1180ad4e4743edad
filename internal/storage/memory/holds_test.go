package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/booking-core/internal/domain"
)

func activeHold(id, owner string, expiresAt time.Time) domain.Hold {
	return domain.Hold{
		ID:         id,
		OwnerToken: owner,
		UnitRefs:   map[string]int{"unit-1": 2},
		Status:     domain.HoldStatusActive,
		CreatedAt:  expiresAt.Add(-10 * time.Minute),
		ExpiresAt:  expiresAt,
	}
}

func TestHoldStore_Transition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("moves status when the precondition holds", func(t *testing.T) {
		s := NewHoldStore()
		require.NoError(t, s.Create(ctx, activeHold("h1", "o1", now)))

		hold, err := s.Transition(ctx, "h1", domain.HoldStatusActive, domain.HoldStatusReleased)
		require.NoError(t, err)
		assert.Equal(t, domain.HoldStatusReleased, hold.Status)
	})

	t.Run("reports the current hold when the precondition fails", func(t *testing.T) {
		s := NewHoldStore()
		require.NoError(t, s.Create(ctx, activeHold("h1", "o1", now)))
		_, err := s.Transition(ctx, "h1", domain.HoldStatusActive, domain.HoldStatusExpired)
		require.NoError(t, err)

		hold, err := s.Transition(ctx, "h1", domain.HoldStatusActive, domain.HoldStatusReleased)
		assert.ErrorIs(t, err, domain.ErrHoldNotActive)
		assert.Equal(t, domain.HoldStatusExpired, hold.Status)
	})

	t.Run("unknown hold", func(t *testing.T) {
		s := NewHoldStore()
		_, err := s.Transition(ctx, "missing", domain.HoldStatusActive, domain.HoldStatusReleased)
		assert.ErrorIs(t, err, domain.ErrHoldNotFound)
	})

	t.Run("concurrent transitions produce exactly one winner", func(t *testing.T) {
		s := NewHoldStore()
		require.NoError(t, s.Create(ctx, activeHold("h1", "o1", now)))

		const racers = 10
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		wg.Add(racers)
		for i := 0; i < racers; i++ {
			to := domain.HoldStatusReleased
			if i%2 == 0 {
				to = domain.HoldStatusExpired
			}
			go func(to domain.HoldStatus) {
				defer wg.Done()
				if _, err := s.Transition(ctx, "h1", domain.HoldStatusActive, to); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}(to)
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})
}

func TestHoldStore_UpdateExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewHoldStore()
	require.NoError(t, s.Create(ctx, activeHold("h1", "o1", now)))

	hold, err := s.UpdateExpiry(ctx, "h1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), hold.ExpiresAt)

	_, err = s.Transition(ctx, "h1", domain.HoldStatusActive, domain.HoldStatusReleased)
	require.NoError(t, err)

	_, err = s.UpdateExpiry(ctx, "h1", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrHoldNotActive)
}

func TestHoldStore_DueForExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewHoldStore()
	require.NoError(t, s.Create(ctx, activeHold("h-due", "o1", now.Add(-time.Minute))))
	require.NoError(t, s.Create(ctx, activeHold("h-live", "o2", now.Add(time.Minute))))
	released := activeHold("h-released", "o3", now.Add(-time.Minute))
	require.NoError(t, s.Create(ctx, released))
	_, err := s.Transition(ctx, "h-released", domain.HoldStatusActive, domain.HoldStatusReleased)
	require.NoError(t, err)

	due, err := s.DueForExpiry(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "h-due", due[0].ID)
}

func TestHoldStore_FindActiveByOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewHoldStore()
	require.NoError(t, s.Create(ctx, activeHold("h1", "o1", now)))

	hold, err := s.FindActiveByOwner(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, hold)
	assert.Equal(t, "h1", hold.ID)

	hold, err = s.FindActiveByOwner(ctx, "o2")
	require.NoError(t, err)
	assert.Nil(t, hold)
}

func TestHoldStore_GetReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := NewHoldStore()
	require.NoError(t, s.Create(ctx, activeHold("h1", "o1", now)))

	hold, err := s.Get(ctx, "h1")
	require.NoError(t, err)
	hold.UnitRefs["unit-1"] = 99

	again, err := s.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.UnitRefs["unit-1"])
}
