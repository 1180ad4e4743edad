package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cimillas/booking-core/internal/domain"
)

// HoldStore keeps holds in memory. Transition is the single status mutator
// and behaves like a compare-and-swap: concurrent release/consume/expire on
// the same hold produce exactly one winner.
type HoldStore struct {
	mu    sync.Mutex
	holds map[string]*domain.Hold
}

func NewHoldStore() *HoldStore {
	return &HoldStore{holds: make(map[string]*domain.Hold)}
}

func (s *HoldStore) Create(_ context.Context, hold domain.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.holds[hold.ID]; exists {
		return domain.ErrInvalidID
	}
	h := cloneHold(hold)
	s.holds[hold.ID] = &h
	return nil
}

func (s *HoldStore) Get(_ context.Context, holdID string) (domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, ok := s.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return cloneHold(*hold), nil
}

func (s *HoldStore) FindActiveByOwner(_ context.Context, ownerToken string) (*domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, hold := range s.holds {
		if hold.OwnerToken == ownerToken && hold.Status == domain.HoldStatusActive {
			h := cloneHold(*hold)
			return &h, nil
		}
	}
	return nil, nil
}

// Transition moves a hold from one status to another, failing with
// ErrHoldNotActive when another caller already moved it.
func (s *HoldStore) Transition(_ context.Context, holdID string, from, to domain.HoldStatus) (domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, ok := s.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	if hold.Status != from {
		return cloneHold(*hold), domain.ErrHoldNotActive
	}
	hold.Status = to
	return cloneHold(*hold), nil
}

// UpdateExpiry extends an active hold's TTL.
func (s *HoldStore) UpdateExpiry(_ context.Context, holdID string, expiresAt time.Time) (domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, ok := s.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	if hold.Status != domain.HoldStatusActive {
		return cloneHold(*hold), domain.ErrHoldNotActive
	}
	hold.ExpiresAt = expiresAt
	return cloneHold(*hold), nil
}

// DueForExpiry lists active holds whose expiry has passed.
func (s *HoldStore) DueForExpiry(_ context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Hold, 0)
	for _, hold := range s.holds {
		if hold.Status != domain.HoldStatusActive || hold.ExpiresAt.After(now) {
			continue
		}
		out = append(out, cloneHold(*hold))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func cloneHold(h domain.Hold) domain.Hold {
	refs := make(map[string]int, len(h.UnitRefs))
	for id, qty := range h.UnitRefs {
		refs[id] = qty
	}
	h.UnitRefs = refs
	return h
}
