package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusReleased HoldStatus = "released"
	HoldStatusExpired  HoldStatus = "expired"
	HoldStatusConsumed HoldStatus = "consumed"
)

// Hold is a time-bounded soft lock reserving quantity against one or more
// inventory units. Exactly one of release, consume or expire mutates capacity;
// the others observe the terminal status and no-op.
type Hold struct {
	ID         string
	OwnerToken string
	UnitRefs   map[string]int
	Status     HoldStatus
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

func (h Hold) ExpiredAt(now time.Time) bool {
	return h.Status == HoldStatusActive && !h.ExpiresAt.After(now)
}

// TotalQuantity sums the reserved quantity across all unit refs.
func (h Hold) TotalQuantity() int {
	total := 0
	for _, qty := range h.UnitRefs {
		total += qty
	}
	return total
}

// SameRefs reports whether the hold covers exactly the given unit quantities.
func (h Hold) SameRefs(refs map[string]int) bool {
	if len(h.UnitRefs) != len(refs) {
		return false
	}
	for id, qty := range refs {
		if h.UnitRefs[id] != qty {
			return false
		}
	}
	return true
}

// ReleaseReceipt reports how much quantity a release actually restored.
// Releasing an already-released or expired hold yields ReleasedCount 0.
type ReleaseReceipt struct {
	HoldID        string
	ReleasedCount int
}
