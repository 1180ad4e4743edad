package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cimillas/booking-core/internal/domain"
)

// Ledger is the in-process capacity ledger: per-unit counters guarded by a
// mutex, version bumped on every mutation so readers can detect staleness.
type Ledger struct {
	mu    sync.RWMutex
	units map[string]*domain.InventoryUnit
}

func NewLedger() *Ledger {
	return &Ledger{units: make(map[string]*domain.InventoryUnit)}
}

func (l *Ledger) Get(_ context.Context, unitID string) (domain.InventoryUnit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	unit, ok := l.units[unitID]
	if !ok {
		return domain.InventoryUnit{}, domain.ErrUnitNotFound
	}
	return *unit, nil
}

// TryAdjust applies the deltas atomically for one unit. The capacity
// invariant (reserved + sold <= total, no negative counters) is checked
// before anything is written.
func (l *Ledger) TryAdjust(_ context.Context, unitID string, deltaReserved, deltaSold int) (domain.InventoryUnit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	unit, ok := l.units[unitID]
	if !ok {
		return domain.InventoryUnit{}, domain.ErrUnitNotFound
	}

	reserved := unit.ReservedCapacity + deltaReserved
	sold := unit.SoldCapacity + deltaSold
	if reserved < 0 || sold < 0 {
		return domain.InventoryUnit{}, domain.ErrInvalidCapacity
	}
	if reserved+sold > unit.TotalCapacity {
		return domain.InventoryUnit{}, &domain.InsufficientCapacityError{
			UnitID:    unitID,
			Requested: deltaReserved + deltaSold,
			Available: unit.Available(),
		}
	}

	unit.ReservedCapacity = reserved
	unit.SoldCapacity = sold
	unit.Version++
	return *unit, nil
}

func (l *Ledger) CreateUnit(_ context.Context, unit domain.InventoryUnit) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.units[unit.ID]; exists {
		return domain.ErrInvalidID
	}
	u := unit
	l.units[unit.ID] = &u
	return nil
}

func (l *Ledger) ListUnits(_ context.Context, parentID string) ([]domain.InventoryUnit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.InventoryUnit, 0, len(l.units))
	for _, unit := range l.units {
		if parentID != "" && unit.ParentID != parentID {
			continue
		}
		out = append(out, *unit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
