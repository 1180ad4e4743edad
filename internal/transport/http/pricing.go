package http

import (
	"context"
	"net/http"

	"github.com/cimillas/booking-core/internal/domain"
)

// PriceQuoter is the minimal interface needed to quote a price.
type PriceQuoter interface {
	Calculate(ctx context.Context, req domain.PricingRequest) (domain.PricingBreakdown, error)
}

type quoteRequest struct {
	UnitID       string         `json:"unit_id" validate:"required"`
	Quantity     int            `json:"quantity" validate:"required,gt=0"`
	TripType     string         `json:"trip_type" validate:"omitempty,oneof=one_way round_trip"`
	TimeOfDay    string         `json:"time_of_day"`
	Options      map[string]int `json:"options" validate:"omitempty,dive,gt=0"`
	DiscountCode string         `json:"discount_code"`
}

// HandleQuote returns an HTTP handler that computes an authoritative price
// breakdown without reserving anything.
func HandleQuote(svc PriceQuoter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quoteRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		breakdown, err := svc.Calculate(r.Context(), domain.PricingRequest{
			UnitID:          req.UnitID,
			Quantity:        req.Quantity,
			TripType:        domain.TripType(req.TripType),
			TimeOfDay:       req.TimeOfDay,
			SelectedOptions: req.Options,
			DiscountCode:    req.DiscountCode,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, breakdown)
	}
}
