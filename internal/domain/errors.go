package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnitNotFound       = errors.New("inventory unit not found")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidCapacity    = errors.New("invalid capacity")
	ErrOwnerTokenRequired = errors.New("owner token required")
	ErrNoUnits            = errors.New("hold requires at least one unit")
	ErrHoldNotFound       = errors.New("hold not found")
	ErrHoldExpired        = errors.New("hold expired")
	ErrHoldNotActive      = errors.New("hold not active")
	ErrOwnerMismatch      = errors.New("hold owned by another session")
	ErrInvalidDiscount    = errors.New("invalid or expired discount code")
	ErrUnknownProductType = errors.New("unknown product type")
	ErrOptionNotFound     = errors.New("option not found")
	ErrSessionNotFound    = errors.New("booking session not found")
	ErrStaleHold          = errors.New("hold no longer matches the selection")
	ErrUnitNameRequired   = errors.New("unit name required")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidID          = errors.New("invalid id")
)

// InsufficientCapacityError reports how much capacity a unit actually has so
// the caller can offer a reduced quantity.
type InsufficientCapacityError struct {
	UnitID    string
	Requested int
	Available int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity for unit %s: requested %d, available %d", e.UnitID, e.Requested, e.Available)
}

// PartiallyUnavailableError is returned when a multi-unit acquire fails on one
// of its units. All prior reservations from the same request are rolled back.
type PartiallyUnavailableError struct {
	UnitID    string
	Requested int
	Available int
}

func (e *PartiallyUnavailableError) Error() string {
	return fmt.Sprintf("unit %s unavailable: requested %d, available %d", e.UnitID, e.Requested, e.Available)
}

// OptionQuantityError is returned instead of silently clamping an option
// quantity to its cap.
type OptionQuantityError struct {
	OptionID  string
	Requested int
	Max       int
}

func (e *OptionQuantityError) Error() string {
	return fmt.Sprintf("option %s: requested %d exceeds max quantity %d", e.OptionID, e.Requested, e.Max)
}

// TransitionError reports which fields block a step transition. The session
// stays in its current step and keeps all committed data.
type TransitionError struct {
	Step    Step
	Missing []string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot advance from %s: missing %v", e.Step, e.Missing)
}
