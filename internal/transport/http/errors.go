package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/booking-core/internal/domain"
)

const (
	codeMethodNotAllowed      = "method_not_allowed"
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeValidationFailed      = "validation_failed"
	codeInvalidID             = "invalid_id"
	codeInvalidQuantity       = "invalid_quantity"
	codeInvalidCapacity       = "invalid_capacity"
	codeOwnerTokenRequired    = "owner_token_required"
	codeUnitNotFound          = "unit_not_found"
	codeUnitNameRequired      = "unit_name_required"
	codeInvalidPrice          = "invalid_price"
	codeUnknownProductType    = "unknown_product_type"
	codeOptionNotFound        = "option_not_found"
	codeInsufficientCapacity  = "insufficient_capacity"
	codePartiallyUnavailable  = "partially_unavailable"
	codeOptionQuantityExceeds = "option_quantity_exceeded"
	codeInvalidDiscount       = "invalid_discount"
	codeHoldNotFound          = "hold_not_found"
	codeHoldExpired           = "hold_expired"
	codeHoldNotActive         = "hold_not_active"
	codeOwnerMismatch         = "owner_mismatch"
	codeSessionNotFound       = "session_not_found"
	codeStaleHold             = "stale_hold"
	codeInvalidTransition     = "invalid_transition"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:   msg,
		Code:    code,
		Details: details,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps core errors to HTTP, carrying the structured data
// (unit id, requested vs. available, option caps) the caller needs to render
// an actionable message.
func writeDomainError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientCapacityError
	if errors.As(err, &insufficient) {
		writeError(w, http.StatusConflict, codeInsufficientCapacity, err.Error(), map[string]any{
			"unit_id":   insufficient.UnitID,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
		return
	}
	var partial *domain.PartiallyUnavailableError
	if errors.As(err, &partial) {
		writeError(w, http.StatusConflict, codePartiallyUnavailable, err.Error(), map[string]any{
			"unit_id":   partial.UnitID,
			"requested": partial.Requested,
			"available": partial.Available,
		})
		return
	}
	var optionErr *domain.OptionQuantityError
	if errors.As(err, &optionErr) {
		writeError(w, http.StatusUnprocessableEntity, codeOptionQuantityExceeds, err.Error(), map[string]any{
			"option_id": optionErr.OptionID,
			"requested": optionErr.Requested,
			"max":       optionErr.Max,
		})
		return
	}
	var transition *domain.TransitionError
	if errors.As(err, &transition) {
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error(), map[string]any{
			"step":    string(transition.Step),
			"missing": transition.Missing,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrNoUnits):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error(), nil)
	case errors.Is(err, domain.ErrOwnerTokenRequired):
		writeError(w, http.StatusBadRequest, codeOwnerTokenRequired, err.Error(), nil)
	case errors.Is(err, domain.ErrUnitNameRequired):
		writeError(w, http.StatusBadRequest, codeUnitNameRequired, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error(), nil)
	case errors.Is(err, domain.ErrUnknownProductType):
		writeError(w, http.StatusBadRequest, codeUnknownProductType, err.Error(), nil)
	case errors.Is(err, domain.ErrUnitNotFound):
		writeError(w, http.StatusNotFound, codeUnitNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrOptionNotFound):
		writeError(w, http.StatusNotFound, codeOptionNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrHoldExpired):
		writeError(w, http.StatusConflict, codeHoldExpired, err.Error(), nil)
	case errors.Is(err, domain.ErrHoldNotActive):
		writeError(w, http.StatusConflict, codeHoldNotActive, err.Error(), nil)
	case errors.Is(err, domain.ErrOwnerMismatch):
		writeError(w, http.StatusForbidden, codeOwnerMismatch, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidDiscount):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidDiscount, err.Error(), nil)
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, codeSessionNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrStaleHold):
		writeError(w, http.StatusConflict, codeStaleHold, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error", nil)
	}
}
