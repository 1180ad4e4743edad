package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cimillas/booking-core/internal/app"
	"github.com/cimillas/booking-core/internal/domain"
)

// CatalogAdmin is the write-side for reference data (units, options,
// discount codes, transfer rates).
type CatalogAdmin interface {
	CreateUnit(ctx context.Context, in app.CreateUnitInput) (domain.InventoryUnit, error)
	ListUnits(ctx context.Context, parentID string) ([]domain.InventoryUnit, error)
	CreateOption(ctx context.Context, in app.CreateOptionInput) (domain.Option, error)
	CreateDiscount(ctx context.Context, rule domain.DiscountRule) (domain.DiscountRule, error)
	SetTransferRates(ctx context.Context, rates domain.TransferRates) error
}

type createUnitRequest struct {
	ProductType   string  `json:"product_type" validate:"required,oneof=event transfer tour"`
	ParentID      string  `json:"parent_id" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	TotalCapacity int     `json:"total_capacity" validate:"required,gt=0"`
	BasePrice     float64 `json:"base_price" validate:"gte=0"`
	PriceModifier float64 `json:"price_modifier" validate:"omitempty,gt=0"`
	Currency      string  `json:"currency"`
	IsPremium     bool    `json:"is_premium"`
	IsAccessible  bool    `json:"is_accessible"`
}

type unitResponse struct {
	ID               string  `json:"id"`
	ProductType      string  `json:"product_type"`
	ParentID         string  `json:"parent_id"`
	Name             string  `json:"name"`
	TotalCapacity    int     `json:"total_capacity"`
	ReservedCapacity int     `json:"reserved_capacity"`
	SoldCapacity     int     `json:"sold_capacity"`
	Available        int     `json:"available"`
	BasePrice        float64 `json:"base_price"`
	PriceModifier    float64 `json:"price_modifier"`
	EffectivePrice   float64 `json:"effective_price"`
	Currency         string  `json:"currency"`
	IsPremium        bool    `json:"is_premium"`
	IsAccessible     bool    `json:"is_accessible"`
	Version          int64   `json:"version"`
}

func toUnitResponse(u domain.InventoryUnit) unitResponse {
	return unitResponse{
		ID:               u.ID,
		ProductType:      string(u.ProductType),
		ParentID:         u.ParentID,
		Name:             u.Name,
		TotalCapacity:    u.TotalCapacity,
		ReservedCapacity: u.ReservedCapacity,
		SoldCapacity:     u.SoldCapacity,
		Available:        u.Available(),
		BasePrice:        u.BasePrice,
		PriceModifier:    u.PriceModifier,
		EffectivePrice:   domain.RoundMinor(u.EffectivePrice()),
		Currency:         u.Currency,
		IsPremium:        u.IsPremium,
		IsAccessible:     u.IsAccessible,
		Version:          u.Version,
	}
}

// HandleCreateUnit creates an inventory unit.
func HandleCreateUnit(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUnitRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		unit, err := svc.CreateUnit(r.Context(), app.CreateUnitInput{
			ProductType:   domain.ProductType(req.ProductType),
			ParentID:      req.ParentID,
			Name:          req.Name,
			TotalCapacity: req.TotalCapacity,
			BasePrice:     req.BasePrice,
			PriceModifier: req.PriceModifier,
			Currency:      req.Currency,
			IsPremium:     req.IsPremium,
			IsAccessible:  req.IsAccessible,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUnitResponse(unit))
	}
}

// HandleListUnits lists inventory units, optionally filtered by parent.
func HandleListUnits(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		units, err := svc.ListUnits(r.Context(), r.URL.Query().Get("parent_id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out := make([]unitResponse, 0, len(units))
		for _, u := range units {
			out = append(out, toUnitResponse(u))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type createOptionRequest struct {
	ProductType string  `json:"product_type" validate:"required,oneof=event transfer tour"`
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	MaxQuantity int     `json:"max_quantity" validate:"omitempty,gt=0"`
}

// HandleCreateOption creates a purchasable add-on.
func HandleCreateOption(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOptionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		opt, err := svc.CreateOption(r.Context(), app.CreateOptionInput{
			ProductType: domain.ProductType(req.ProductType),
			Name:        req.Name,
			Price:       req.Price,
			MaxQuantity: req.MaxQuantity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, opt)
	}
}

type createDiscountRequest struct {
	Code       string     `json:"code" validate:"required"`
	Kind       string     `json:"kind" validate:"required,oneof=percent fixed"`
	Value      float64    `json:"value" validate:"required,gt=0"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`
}

// HandleCreateDiscount registers a discount code.
func HandleCreateDiscount(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDiscountRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		rule := domain.DiscountRule{
			Code:  req.Code,
			Kind:  domain.DiscountKind(req.Kind),
			Value: req.Value,
		}
		if req.ValidFrom != nil {
			rule.ValidFrom = *req.ValidFrom
		}
		if req.ValidUntil != nil {
			rule.ValidUntil = *req.ValidUntil
		}

		created, err := svc.CreateDiscount(r.Context(), rule)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

type rateBracketPayload struct {
	Name        string  `json:"name"`
	Start       string  `json:"start" validate:"required"`
	End         string  `json:"end" validate:"required"`
	OutboundPct float64 `json:"outbound_pct"`
	ReturnPct   float64 `json:"return_pct"`
}

type setTransferRatesRequest struct {
	ParentID             string               `json:"parent_id" validate:"required"`
	Brackets             []rateBracketPayload `json:"brackets" validate:"dive"`
	RoundTripDiscountPct float64              `json:"round_trip_discount_pct" validate:"gte=0,lte=100"`
}

// HandleSetTransferRates configures directional pricing for a route.
func HandleSetTransferRates(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setTransferRatesRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		rates := domain.TransferRates{
			ParentID:             req.ParentID,
			RoundTripDiscountPct: req.RoundTripDiscountPct,
		}
		for _, b := range req.Brackets {
			rates.Brackets = append(rates.Brackets, domain.RateBracket{
				Name:        b.Name,
				Start:       b.Start,
				End:         b.End,
				OutboundPct: b.OutboundPct,
				ReturnPct:   b.ReturnPct,
			})
		}

		if err := svc.SetTransferRates(r.Context(), rates); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
