package app

import (
	"context"
	"sort"

	"github.com/cimillas/booking-core/internal/clock"
	"github.com/cimillas/booking-core/internal/domain"
)

// Catalog resolves read-only reference data (options, transfer rate
// brackets). The pricing engine re-reads it on every calculation.
type Catalog interface {
	Option(ctx context.Context, optionID string) (domain.Option, error)
	TransferRates(ctx context.Context, parentID string) (domain.TransferRates, error)
}

// RuleProvider resolves discount codes and the configured fee/tax rules. The
// engine evaluates whatever rule set it is given; it embeds no business rules.
type RuleProvider interface {
	Discount(ctx context.Context, code string) (domain.DiscountRule, error)
	AmountRules(ctx context.Context, productType domain.ProductType) ([]domain.AmountRule, error)
}

const (
	modifierPriceModifier     = "price_modifier"
	modifierOutboundSurcharge = "outbound_surcharge"
	modifierReturnFare        = "return_fare"
	modifierReturnSurcharge   = "return_surcharge"
	modifierRoundTripDiscount = "round_trip_discount"
)

// PricingService computes the canonical price breakdown. Calculate is pure
// read-then-compute: identical inputs against an unchanged unit snapshot
// yield an identical breakdown.
type PricingService struct {
	ledger  CapacityLedger
	catalog Catalog
	rules   RuleProvider
	clock   clock.Clock
}

func NewPricingService(ledger CapacityLedger, catalog Catalog, rules RuleProvider, clk clock.Clock) *PricingService {
	return &PricingService{
		ledger:  ledger,
		catalog: catalog,
		rules:   rules,
		clock:   clk,
	}
}

func (s *PricingService) Calculate(ctx context.Context, req domain.PricingRequest) (domain.PricingBreakdown, error) {
	if req.Quantity <= 0 {
		return domain.PricingBreakdown{}, domain.ErrInvalidQuantity
	}

	unit, err := s.ledger.Get(ctx, req.UnitID)
	if err != nil {
		return domain.PricingBreakdown{}, err
	}

	// Defensive re-check: pricing may be requested before any hold exists,
	// so the hold manager has not vouched for this quantity yet. Capacity the
	// caller already holds counts as available to the caller.
	if available := unit.Available() + req.HeldQuantity; available < req.Quantity {
		return domain.PricingBreakdown{}, &domain.InsufficientCapacityError{
			UnitID:    unit.ID,
			Requested: req.Quantity,
			Available: available,
		}
	}

	base := unit.BasePrice
	var modifiers []domain.ModifierLine

	switch unit.ProductType {
	case domain.ProductTransfer:
		modifiers, err = s.transferModifiers(ctx, unit, req)
		if err != nil {
			return domain.PricingBreakdown{}, err
		}
	case domain.ProductEvent, domain.ProductTour:
		if unit.PriceModifier > 0 && unit.PriceModifier != 1 {
			modifiers = append(modifiers, domain.ModifierLine{
				Name:   modifierPriceModifier,
				Amount: base * (unit.PriceModifier - 1),
			})
		}
	default:
		return domain.PricingBreakdown{}, domain.ErrUnknownProductType
	}

	// Transfers price per vehicle; quantity only sizes the capacity check.
	if unit.ProductType != domain.ProductTransfer {
		qty := float64(req.Quantity)
		base *= qty
		for i := range modifiers {
			modifiers[i].Amount *= qty
		}
	}

	base = domain.RoundMinor(base)
	modifiersTotal := 0.0
	for i := range modifiers {
		modifiers[i].Amount = domain.RoundMinor(modifiers[i].Amount)
		modifiersTotal += modifiers[i].Amount
	}

	optionsTotal, err := s.optionsTotal(ctx, req.SelectedOptions)
	if err != nil {
		return domain.PricingBreakdown{}, err
	}

	subtotal := domain.RoundMinor(base + modifiersTotal + optionsTotal)

	discountTotal, err := s.discountTotal(ctx, req.DiscountCode, subtotal)
	if err != nil {
		return domain.PricingBreakdown{}, err
	}

	feesTotal, taxesTotal, err := s.feesAndTaxes(ctx, unit.ProductType, subtotal)
	if err != nil {
		return domain.PricingBreakdown{}, err
	}

	final := domain.RoundMinor(subtotal - discountTotal + feesTotal + taxesTotal)
	clamped := false
	if final < 0 {
		final = 0
		clamped = true
	}

	return domain.PricingBreakdown{
		BasePrice:     base,
		Modifiers:     modifiers,
		OptionsTotal:  optionsTotal,
		DiscountTotal: discountTotal,
		FeesTotal:     feesTotal,
		TaxesTotal:    taxesTotal,
		Subtotal:      subtotal,
		FinalPrice:    final,
		Currency:      unit.Currency,
		Clamped:       clamped,
		CalculatedAt:  s.clock.Now(),
	}, nil
}

// transferModifiers prices the legs: outbound surcharge on the base fare, a
// second leg plus its own surcharge for round trips, then the round-trip
// discount on the surcharged combined fare.
func (s *PricingService) transferModifiers(ctx context.Context, unit domain.InventoryUnit, req domain.PricingRequest) ([]domain.ModifierLine, error) {
	rates, err := s.catalog.TransferRates(ctx, unit.ParentID)
	if err != nil {
		return nil, err
	}

	bracket, _ := rates.Bracket(req.TimeOfDay)
	base := unit.BasePrice

	outbound := base * bracket.OutboundPct / 100
	modifiers := []domain.ModifierLine{{Name: modifierOutboundSurcharge, Amount: outbound}}

	if req.TripType != domain.TripRoundTrip {
		return modifiers, nil
	}

	returnSurcharge := base * bracket.ReturnPct / 100
	modifiers = append(modifiers,
		domain.ModifierLine{Name: modifierReturnFare, Amount: base},
		domain.ModifierLine{Name: modifierReturnSurcharge, Amount: returnSurcharge},
	)

	if rates.RoundTripDiscountPct > 0 {
		combined := base + outbound + base + returnSurcharge
		modifiers = append(modifiers, domain.ModifierLine{
			Name:   modifierRoundTripDiscount,
			Amount: -(combined * rates.RoundTripDiscountPct / 100),
		})
	}
	return modifiers, nil
}

func (s *PricingService) optionsTotal(ctx context.Context, selected map[string]int) (float64, error) {
	if len(selected) == 0 {
		return 0, nil
	}

	// Sorted iteration keeps the computation byte-deterministic.
	ids := make([]string, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := 0.0
	for _, id := range ids {
		qty := selected[id]
		if qty <= 0 {
			return 0, domain.ErrInvalidQuantity
		}
		opt, err := s.catalog.Option(ctx, id)
		if err != nil {
			return 0, err
		}
		if opt.MaxQuantity > 0 && qty > opt.MaxQuantity {
			return 0, &domain.OptionQuantityError{OptionID: id, Requested: qty, Max: opt.MaxQuantity}
		}
		total += opt.Price * float64(qty)
	}
	return domain.RoundMinor(total), nil
}

func (s *PricingService) discountTotal(ctx context.Context, code string, subtotal float64) (float64, error) {
	if code == "" {
		return 0, nil
	}
	rule, err := s.rules.Discount(ctx, code)
	if err != nil {
		return 0, err
	}
	if !rule.ValidAt(s.clock.Now()) {
		return 0, domain.ErrInvalidDiscount
	}

	switch rule.Kind {
	case domain.DiscountPercent:
		return domain.RoundMinor(subtotal * rule.Value / 100), nil
	case domain.DiscountFixed:
		return domain.RoundMinor(rule.Value), nil
	}
	return 0, domain.ErrInvalidDiscount
}

func (s *PricingService) feesAndTaxes(ctx context.Context, productType domain.ProductType, subtotal float64) (fees, taxes float64, err error) {
	rules, err := s.rules.AmountRules(ctx, productType)
	if err != nil {
		return 0, 0, err
	}

	for _, rule := range rules {
		amount := rule.Modifier.Apply(subtotal)
		switch rule.Category {
		case domain.RuleCategoryFee:
			fees += amount
		case domain.RuleCategoryTax:
			taxes += amount
		}
	}
	return domain.RoundMinor(fees), domain.RoundMinor(taxes), nil
}
