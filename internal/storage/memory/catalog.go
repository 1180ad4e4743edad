package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/cimillas/booking-core/internal/domain"
)

// Catalog holds the read-only reference data the pricing engine consumes:
// options, transfer rate brackets, discount codes and fee/tax rules.
type Catalog struct {
	mu        sync.RWMutex
	options   map[string]domain.Option
	rates     map[string]domain.TransferRates
	discounts map[string]domain.DiscountRule
	rules     map[domain.ProductType][]domain.AmountRule
}

func NewCatalog() *Catalog {
	return &Catalog{
		options:   make(map[string]domain.Option),
		rates:     make(map[string]domain.TransferRates),
		discounts: make(map[string]domain.DiscountRule),
		rules:     make(map[domain.ProductType][]domain.AmountRule),
	}
}

func (c *Catalog) Option(_ context.Context, optionID string) (domain.Option, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	opt, ok := c.options[optionID]
	if !ok {
		return domain.Option{}, domain.ErrOptionNotFound
	}
	return opt, nil
}

func (c *Catalog) TransferRates(_ context.Context, parentID string) (domain.TransferRates, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rates, ok := c.rates[parentID]
	if !ok {
		// Routes without configured rates price flat.
		return domain.TransferRates{ParentID: parentID}, nil
	}
	return rates, nil
}

func (c *Catalog) Discount(_ context.Context, code string) (domain.DiscountRule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rule, ok := c.discounts[strings.ToUpper(code)]
	if !ok {
		return domain.DiscountRule{}, domain.ErrInvalidDiscount
	}
	return rule, nil
}

func (c *Catalog) AmountRules(_ context.Context, productType domain.ProductType) ([]domain.AmountRule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]domain.AmountRule(nil), c.rules[productType]...), nil
}

func (c *Catalog) CreateOption(_ context.Context, opt domain.Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.options[opt.ID]; exists {
		return domain.ErrInvalidID
	}
	c.options[opt.ID] = opt
	return nil
}

func (c *Catalog) CreateDiscount(_ context.Context, rule domain.DiscountRule) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	code := strings.ToUpper(rule.Code)
	if _, exists := c.discounts[code]; exists {
		return domain.ErrInvalidID
	}
	rule.Code = code
	c.discounts[code] = rule
	return nil
}

func (c *Catalog) SetTransferRates(_ context.Context, rates domain.TransferRates) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rates[rates.ParentID] = rates
	return nil
}

func (c *Catalog) SetAmountRules(_ context.Context, productType domain.ProductType, rules []domain.AmountRule) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rules[productType] = append([]domain.AmountRule(nil), rules...)
	return nil
}
