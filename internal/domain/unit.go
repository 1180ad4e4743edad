package domain

type ProductType string

const (
	ProductEvent    ProductType = "event"
	ProductTransfer ProductType = "transfer"
	ProductTour     ProductType = "tour"
)

func (p ProductType) Valid() bool {
	switch p {
	case ProductEvent, ProductTransfer, ProductTour:
		return true
	}
	return false
}

// InventoryUnit is the smallest sellable capacity cell: an event-section ×
// ticket-type, a vehicle type on a route, or a tour variant on a schedule.
// Version increments on every capacity mutation.
type InventoryUnit struct {
	ID               string
	ProductType      ProductType
	ParentID         string
	Name             string
	TotalCapacity    int
	ReservedCapacity int
	SoldCapacity     int
	BasePrice        float64
	PriceModifier    float64
	Currency         string
	IsPremium        bool
	IsAccessible     bool
	Version          int64
}

func (u InventoryUnit) Available() int {
	return u.TotalCapacity - u.ReservedCapacity - u.SoldCapacity
}

// EffectivePrice is the per-unit price after the ticket-type modifier.
func (u InventoryUnit) EffectivePrice() float64 {
	if u.PriceModifier <= 0 {
		return u.BasePrice
	}
	return u.BasePrice * u.PriceModifier
}
