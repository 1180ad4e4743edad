package domain

import "time"

// Option is an add-on purchasable with a unit (meal, luggage, audio guide).
type Option struct {
	ID          string
	ProductType ProductType
	Name        string
	Price       float64
	MaxQuantity int
}

// RateBracket holds directional surcharge percentages for a time-of-day
// window. Start and End are zero-padded HH:MM, End exclusive.
type RateBracket struct {
	Name        string
	Start       string
	End         string
	OutboundPct float64
	ReturnPct   float64
}

// TransferRates configures directional pricing for a route. The round-trip
// discount applies to the surcharged combined fare of both legs.
type TransferRates struct {
	ParentID             string
	Brackets             []RateBracket
	RoundTripDiscountPct float64
}

// Bracket returns the bracket covering the given HH:MM time of day.
func (r TransferRates) Bracket(timeOfDay string) (RateBracket, bool) {
	for _, b := range r.Brackets {
		if timeOfDay >= b.Start && timeOfDay < b.End {
			return b, true
		}
	}
	return RateBracket{}, false
}

type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountFixed   DiscountKind = "fixed"
)

// DiscountRule resolves a discount code. Zero validity bounds mean unbounded.
type DiscountRule struct {
	Code       string
	Kind       DiscountKind
	Value      float64
	ValidFrom  time.Time
	ValidUntil time.Time
}

func (r DiscountRule) ValidAt(now time.Time) bool {
	if !r.ValidFrom.IsZero() && now.Before(r.ValidFrom) {
		return false
	}
	if !r.ValidUntil.IsZero() && now.After(r.ValidUntil) {
		return false
	}
	return true
}

type AmountRuleCategory string

const (
	RuleCategoryFee AmountRuleCategory = "fee"
	RuleCategoryTax AmountRuleCategory = "tax"
)

// AmountRule is a configured fee or tax evaluated on the pricing subtotal.
type AmountRule struct {
	Name     string
	Category AmountRuleCategory
	Modifier Modifier
}
