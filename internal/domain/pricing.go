package domain

import (
	"math"
	"time"
)

type TripType string

const (
	TripOneWay    TripType = "one_way"
	TripRoundTrip TripType = "round_trip"
)

// PricingRequest is the input to the pricing engine. ClientEstimate, when
// present, is the caller's pre-computed total used for drift detection only.
// HeldQuantity is how much of the unit the caller already has reserved under
// an active hold; the capacity re-check must not count that reservation
// against the caller a second time.
type PricingRequest struct {
	UnitID          string
	Quantity        int
	HeldQuantity    int
	TripType        TripType
	TimeOfDay       string
	SelectedOptions map[string]int
	DiscountCode    string
	ClientEstimate  *float64
}

// ModifierLine is a named, signed price delta in a breakdown.
type ModifierLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// PricingBreakdown is the canonical, product-type-agnostic price computation.
// Invariant: FinalPrice = BasePrice + Σ Modifiers + OptionsTotal −
// DiscountTotal + FeesTotal + TaxesTotal, rounded to the currency's minor
// unit, clamped at zero with Clamped set.
type PricingBreakdown struct {
	BasePrice     float64        `json:"base_price"`
	Modifiers     []ModifierLine `json:"modifiers"`
	OptionsTotal  float64        `json:"options_total"`
	DiscountTotal float64        `json:"discount_total"`
	FeesTotal     float64        `json:"fees_total"`
	TaxesTotal    float64        `json:"taxes_total"`
	Subtotal      float64        `json:"subtotal"`
	FinalPrice    float64        `json:"final_price"`
	Currency      string         `json:"currency"`
	Clamped       bool           `json:"clamped,omitempty"`
	CalculatedAt  time.Time      `json:"calculated_at"`
}

func (b PricingBreakdown) ModifiersTotal() float64 {
	total := 0.0
	for _, m := range b.Modifiers {
		total += m.Amount
	}
	return total
}

type ModifierKind string

const (
	ModifierSurcharge       ModifierKind = "surcharge"
	ModifierFixedFee        ModifierKind = "fixed_fee"
	ModifierPercentDiscount ModifierKind = "percent_discount"
	ModifierFixedDiscount   ModifierKind = "fixed_discount"
)

// Modifier is a tagged price adjustment evaluated against a base amount.
// Percentage kinds use Pct, fixed kinds use Amount.
type Modifier struct {
	Kind   ModifierKind
	Pct    float64
	Amount float64
}

// Apply returns the (always positive) magnitude of the adjustment; the caller
// decides the sign from the kind.
func (m Modifier) Apply(base float64) float64 {
	switch m.Kind {
	case ModifierSurcharge, ModifierPercentDiscount:
		return base * m.Pct / 100
	case ModifierFixedFee, ModifierFixedDiscount:
		return m.Amount
	}
	return 0
}

// RoundMinor rounds to two decimals, the minor-unit precision for all
// currencies the catalog carries.
func RoundMinor(v float64) float64 {
	return math.Round(v*100) / 100
}
