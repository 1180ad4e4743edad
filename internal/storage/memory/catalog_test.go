package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/booking-core/internal/domain"
)

func TestCatalog_Discounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewCatalog()
	require.NoError(t, c.CreateDiscount(ctx, domain.DiscountRule{Code: "summer10", Kind: domain.DiscountPercent, Value: 10}))

	// Codes are case-insensitive and stored uppercased.
	rule, err := c.Discount(ctx, "SUMMER10")
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", rule.Code)

	rule, err = c.Discount(ctx, "Summer10")
	require.NoError(t, err)
	assert.Equal(t, 10.0, rule.Value)

	_, err = c.Discount(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)

	err = c.CreateDiscount(ctx, domain.DiscountRule{Code: "SUMMER10", Kind: domain.DiscountFixed, Value: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestCatalog_TransferRates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewCatalog()
	require.NoError(t, c.SetTransferRates(ctx, domain.TransferRates{
		ParentID:             "route-1",
		Brackets:             []domain.RateBracket{{Name: "am", Start: "06:00", End: "12:00", OutboundPct: 10}},
		RoundTripDiscountPct: 15,
	}))

	rates, err := c.TransferRates(ctx, "route-1")
	require.NoError(t, err)
	assert.Equal(t, 15.0, rates.RoundTripDiscountPct)

	// Unconfigured routes price flat instead of failing.
	rates, err = c.TransferRates(ctx, "route-2")
	require.NoError(t, err)
	assert.Empty(t, rates.Brackets)
	assert.Zero(t, rates.RoundTripDiscountPct)
}

func TestCatalog_AmountRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewCatalog()
	require.NoError(t, c.SetAmountRules(ctx, domain.ProductEvent, []domain.AmountRule{
		{Name: "vat", Category: domain.RuleCategoryTax, Modifier: domain.Modifier{Kind: domain.ModifierSurcharge, Pct: 8}},
	}))

	rules, err := c.AmountRules(ctx, domain.ProductEvent)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	// Returned slice is a copy.
	rules[0].Name = "mutated"
	again, err := c.AmountRules(ctx, domain.ProductEvent)
	require.NoError(t, err)
	assert.Equal(t, "vat", again[0].Name)

	none, err := c.AmountRules(ctx, domain.ProductTour)
	require.NoError(t, err)
	assert.Empty(t, none)
}
