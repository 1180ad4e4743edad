package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cimillas/booking-core/internal/domain"
)

type UnitRepository interface {
	CreateUnit(ctx context.Context, unit domain.InventoryUnit) error
	ListUnits(ctx context.Context, parentID string) ([]domain.InventoryUnit, error)
}

type CatalogWriter interface {
	CreateOption(ctx context.Context, opt domain.Option) error
	CreateDiscount(ctx context.Context, rule domain.DiscountRule) error
	SetTransferRates(ctx context.Context, rates domain.TransferRates) error
}

// CatalogService is the write-side for the reference data the core reads:
// inventory units, options, discount codes and transfer rates.
type CatalogService struct {
	units   UnitRepository
	catalog CatalogWriter
	cache   AvailabilityCache
	logger  *logrus.Logger
}

func NewCatalogService(units UnitRepository, catalog CatalogWriter, cache AvailabilityCache, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		units:   units,
		catalog: catalog,
		cache:   cache,
		logger:  logger,
	}
}

type CreateUnitInput struct {
	ProductType   domain.ProductType
	ParentID      string
	Name          string
	TotalCapacity int
	BasePrice     float64
	PriceModifier float64
	Currency      string
	IsPremium     bool
	IsAccessible  bool
}

func (s *CatalogService) CreateUnit(ctx context.Context, in CreateUnitInput) (domain.InventoryUnit, error) {
	if !in.ProductType.Valid() {
		return domain.InventoryUnit{}, domain.ErrUnknownProductType
	}
	if in.ParentID == "" {
		return domain.InventoryUnit{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.InventoryUnit{}, domain.ErrUnitNameRequired
	}
	if in.TotalCapacity <= 0 {
		return domain.InventoryUnit{}, domain.ErrInvalidCapacity
	}
	if in.BasePrice < 0 {
		return domain.InventoryUnit{}, domain.ErrInvalidPrice
	}
	if in.PriceModifier == 0 {
		in.PriceModifier = 1
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}

	unit := domain.InventoryUnit{
		ID:            uuid.NewString(),
		ProductType:   in.ProductType,
		ParentID:      in.ParentID,
		Name:          in.Name,
		TotalCapacity: in.TotalCapacity,
		BasePrice:     in.BasePrice,
		PriceModifier: in.PriceModifier,
		Currency:      in.Currency,
		IsPremium:     in.IsPremium,
		IsAccessible:  in.IsAccessible,
	}

	if err := s.units.CreateUnit(ctx, unit); err != nil {
		return domain.InventoryUnit{}, err
	}
	if s.cache != nil {
		if err := s.cache.Sync(ctx, unit.ID, unit.Available()); err != nil {
			s.logger.WithError(err).WithField("unit_id", unit.ID).Warn("availability cache seed failed")
		}
	}
	return unit, nil
}

func (s *CatalogService) ListUnits(ctx context.Context, parentID string) ([]domain.InventoryUnit, error) {
	return s.units.ListUnits(ctx, parentID)
}

type CreateOptionInput struct {
	ProductType domain.ProductType
	Name        string
	Price       float64
	MaxQuantity int
}

func (s *CatalogService) CreateOption(ctx context.Context, in CreateOptionInput) (domain.Option, error) {
	if !in.ProductType.Valid() {
		return domain.Option{}, domain.ErrUnknownProductType
	}
	if in.Name == "" {
		return domain.Option{}, domain.ErrUnitNameRequired
	}
	if in.Price < 0 {
		return domain.Option{}, domain.ErrInvalidPrice
	}

	opt := domain.Option{
		ID:          uuid.NewString(),
		ProductType: in.ProductType,
		Name:        in.Name,
		Price:       in.Price,
		MaxQuantity: in.MaxQuantity,
	}
	if err := s.catalog.CreateOption(ctx, opt); err != nil {
		return domain.Option{}, err
	}
	return opt, nil
}

func (s *CatalogService) CreateDiscount(ctx context.Context, rule domain.DiscountRule) (domain.DiscountRule, error) {
	if rule.Code == "" {
		return domain.DiscountRule{}, domain.ErrInvalidDiscount
	}
	if rule.Kind != domain.DiscountPercent && rule.Kind != domain.DiscountFixed {
		return domain.DiscountRule{}, domain.ErrInvalidDiscount
	}
	if rule.Value <= 0 {
		return domain.DiscountRule{}, domain.ErrInvalidDiscount
	}
	rule.Code = strings.ToUpper(rule.Code)
	if err := s.catalog.CreateDiscount(ctx, rule); err != nil {
		return domain.DiscountRule{}, err
	}
	return rule, nil
}

func (s *CatalogService) SetTransferRates(ctx context.Context, rates domain.TransferRates) error {
	if rates.ParentID == "" {
		return domain.ErrInvalidID
	}
	return s.catalog.SetTransferRates(ctx, rates)
}
