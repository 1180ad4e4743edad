package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cimillas/booking-core/internal/clock"
	"github.com/cimillas/booking-core/internal/domain"
)

// CapacityLedger arbitrates per-unit capacity. TryAdjust is the sole mutator
// and is atomic per unit.
type CapacityLedger interface {
	Get(ctx context.Context, unitID string) (domain.InventoryUnit, error)
	TryAdjust(ctx context.Context, unitID string, deltaReserved, deltaSold int) (domain.InventoryUnit, error)
}

type HoldStore interface {
	Create(ctx context.Context, hold domain.Hold) error
	Get(ctx context.Context, holdID string) (domain.Hold, error)
	FindActiveByOwner(ctx context.Context, ownerToken string) (*domain.Hold, error)
	Transition(ctx context.Context, holdID string, from, to domain.HoldStatus) (domain.Hold, error)
	UpdateExpiry(ctx context.Context, holdID string, expiresAt time.Time) (domain.Hold, error)
	DueForExpiry(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error)
}

// AvailabilityCache is an optional fast-path in front of the ledger; the
// ledger remains authoritative.
type AvailabilityCache interface {
	Reserve(ctx context.Context, unitID string, qty int) (bool, error)
	Restore(ctx context.Context, unitID string, qty int) error
	Sync(ctx context.Context, unitID string, available int) error
}

const defaultHoldTTL = 600 * time.Second

const expiryBatchSize = 100

type HoldService struct {
	ledger  CapacityLedger
	store   HoldStore
	cache   AvailabilityCache
	clock   clock.Clock
	logger  *logrus.Logger
	holdTTL time.Duration
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithAvailabilityCache enables the Redis fast-path for acquire.
func WithAvailabilityCache(cache AvailabilityCache) HoldServiceOption {
	return func(s *HoldService) {
		s.cache = cache
	}
}

func NewHoldService(ledger CapacityLedger, store HoldStore, clk clock.Clock, logger *logrus.Logger, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		ledger:  ledger,
		store:   store,
		clock:   clk,
		logger:  logger,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Acquire reserves capacity for every unit ref or none of them. A failing
// unit rolls back all prior reservations from the same request and surfaces
// which unit fell short and how much it actually has. Re-acquiring an
// identical unit set for the same owner renews the existing hold instead of
// double-counting.
func (s *HoldService) Acquire(ctx context.Context, ownerToken string, unitRefs map[string]int, ttl time.Duration) (domain.Hold, error) {
	if ownerToken == "" {
		return domain.Hold{}, domain.ErrOwnerTokenRequired
	}
	if len(unitRefs) == 0 {
		return domain.Hold{}, domain.ErrNoUnits
	}
	for _, qty := range unitRefs {
		if qty <= 0 {
			return domain.Hold{}, domain.ErrInvalidQuantity
		}
	}
	if ttl <= 0 {
		ttl = s.holdTTL
	}
	now := s.clock.Now()

	existing, err := s.store.FindActiveByOwner(ctx, ownerToken)
	if err != nil {
		return domain.Hold{}, err
	}
	if existing != nil && !existing.ExpiredAt(now) && existing.SameRefs(unitRefs) {
		return s.Renew(ctx, existing.ID, ownerToken, ttl)
	}

	// Deterministic order keeps concurrent multi-unit acquires from
	// deadlocking against each other.
	unitIDs := make([]string, 0, len(unitRefs))
	for id := range unitRefs {
		unitIDs = append(unitIDs, id)
	}
	sort.Strings(unitIDs)

	applied := make([]string, 0, len(unitIDs))
	cached := make([]string, 0, len(unitIDs))

	rollback := func() {
		for _, id := range applied {
			if _, err := s.ledger.TryAdjust(ctx, id, -unitRefs[id], 0); err != nil {
				s.logger.WithError(err).WithField("unit_id", id).Error("rollback reservation failed")
			}
		}
		for _, id := range cached {
			if err := s.cache.Restore(ctx, id, unitRefs[id]); err != nil {
				s.logger.WithError(err).WithField("unit_id", id).Warn("availability cache restore failed")
			}
		}
	}

	for _, id := range unitIDs {
		qty := unitRefs[id]

		if s.cache != nil {
			ok, err := s.cache.Reserve(ctx, id, qty)
			switch {
			case err != nil:
				s.logger.WithError(err).WithField("unit_id", id).Warn("availability cache unreachable, falling through to ledger")
			case !ok:
				rollback()
				available := 0
				if unit, err := s.ledger.Get(ctx, id); err == nil {
					available = unit.Available()
				}
				return domain.Hold{}, &domain.PartiallyUnavailableError{UnitID: id, Requested: qty, Available: available}
			default:
				cached = append(cached, id)
			}
		}

		if _, err := s.ledger.TryAdjust(ctx, id, qty, 0); err != nil {
			var insufficient *domain.InsufficientCapacityError
			if errors.As(err, &insufficient) {
				rollback()
				return domain.Hold{}, &domain.PartiallyUnavailableError{
					UnitID:    id,
					Requested: qty,
					Available: insufficient.Available,
				}
			}
			rollback()
			return domain.Hold{}, err
		}
		applied = append(applied, id)
	}

	refs := make(map[string]int, len(unitRefs))
	for id, qty := range unitRefs {
		refs[id] = qty
	}
	hold := domain.Hold{
		ID:         uuid.NewString(),
		OwnerToken: ownerToken,
		UnitRefs:   refs,
		Status:     domain.HoldStatusActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := s.store.Create(ctx, hold); err != nil {
		rollback()
		return domain.Hold{}, err
	}
	return hold, nil
}

func (s *HoldService) Get(ctx context.Context, holdID string) (domain.Hold, error) {
	return s.store.Get(ctx, holdID)
}

// Renew extends an active hold's expiry for its owner. An overdue hold is
// expired on the spot instead of being resurrected.
func (s *HoldService) Renew(ctx context.Context, holdID, ownerToken string, ttl time.Duration) (domain.Hold, error) {
	if ownerToken == "" {
		return domain.Hold{}, domain.ErrOwnerTokenRequired
	}
	if ttl <= 0 {
		ttl = s.holdTTL
	}
	now := s.clock.Now()

	hold, err := s.store.Get(ctx, holdID)
	if err != nil {
		return domain.Hold{}, err
	}
	if hold.OwnerToken != ownerToken {
		return domain.Hold{}, domain.ErrOwnerMismatch
	}
	if hold.ExpiredAt(now) {
		s.expire(ctx, hold)
		return domain.Hold{}, domain.ErrHoldExpired
	}

	renewed, err := s.store.UpdateExpiry(ctx, holdID, now.Add(ttl))
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotActive) && renewed.Status == domain.HoldStatusExpired {
			return domain.Hold{}, domain.ErrHoldExpired
		}
		return domain.Hold{}, err
	}
	return renewed, nil
}

// Release is idempotent for the hold's owner: releasing a hold that is
// already released, expired or consumed succeeds with ReleasedCount 0 so
// client retries and release-after-expiry races stay harmless.
func (s *HoldService) Release(ctx context.Context, holdID, ownerToken string) (domain.ReleaseReceipt, error) {
	if ownerToken == "" {
		return domain.ReleaseReceipt{}, domain.ErrOwnerTokenRequired
	}
	current, err := s.store.Get(ctx, holdID)
	if err != nil {
		return domain.ReleaseReceipt{}, err
	}
	if current.OwnerToken != ownerToken {
		return domain.ReleaseReceipt{}, domain.ErrOwnerMismatch
	}

	hold, err := s.store.Transition(ctx, holdID, domain.HoldStatusActive, domain.HoldStatusReleased)
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotActive) {
			return domain.ReleaseReceipt{HoldID: holdID, ReleasedCount: 0}, nil
		}
		return domain.ReleaseReceipt{}, err
	}

	s.compensate(ctx, hold)
	return domain.ReleaseReceipt{HoldID: holdID, ReleasedCount: hold.TotalQuantity()}, nil
}

// Consume converts the hold's reserved quantity into sold for every unit ref.
// Only the hold's owner may consume it.
func (s *HoldService) Consume(ctx context.Context, holdID, ownerToken string) error {
	if ownerToken == "" {
		return domain.ErrOwnerTokenRequired
	}
	now := s.clock.Now()

	hold, err := s.store.Get(ctx, holdID)
	if err != nil {
		return err
	}
	if hold.OwnerToken != ownerToken {
		return domain.ErrOwnerMismatch
	}
	if hold.ExpiredAt(now) {
		s.expire(ctx, hold)
		return domain.ErrHoldExpired
	}

	hold, err = s.store.Transition(ctx, holdID, domain.HoldStatusActive, domain.HoldStatusConsumed)
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotActive) && hold.Status == domain.HoldStatusExpired {
			return domain.ErrHoldExpired
		}
		return err
	}

	for id, qty := range hold.UnitRefs {
		if _, err := s.ledger.TryAdjust(ctx, id, -qty, qty); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"hold_id": holdID,
				"unit_id": id,
			}).Error("reserved to sold conversion failed")
			return err
		}
	}
	return nil
}

// ExpireDue transitions every overdue hold and restores its capacity. Safe to
// race concurrent release/consume: the status transition decides the winner.
func (s *HoldService) ExpireDue(ctx context.Context) (int, error) {
	now := s.clock.Now()

	due, err := s.store.DueForExpiry(ctx, now, expiryBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, hold := range due {
		if s.expire(ctx, hold) {
			expired++
		}
	}
	return expired, nil
}

// expire wins or loses the status race; only the winner compensates capacity.
func (s *HoldService) expire(ctx context.Context, hold domain.Hold) bool {
	won, err := s.store.Transition(ctx, hold.ID, domain.HoldStatusActive, domain.HoldStatusExpired)
	if err != nil {
		if !errors.Is(err, domain.ErrHoldNotActive) {
			s.logger.WithError(err).WithField("hold_id", hold.ID).Error("expire transition failed")
		}
		return false
	}
	s.compensate(ctx, won)
	return true
}

func (s *HoldService) compensate(ctx context.Context, hold domain.Hold) {
	for id, qty := range hold.UnitRefs {
		if _, err := s.ledger.TryAdjust(ctx, id, -qty, 0); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"hold_id": hold.ID,
				"unit_id": id,
			}).Error("capacity compensation failed")
			continue
		}
		if s.cache != nil {
			if err := s.cache.Restore(ctx, id, qty); err != nil {
				s.logger.WithError(err).WithField("unit_id", id).Warn("availability cache restore failed")
			}
		}
	}
}
