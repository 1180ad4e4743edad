package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/cimillas/booking-core/internal/domain"
)

var validate = validator.New()

// HoldManager is the hold lifecycle the transport exposes to collaborators.
// Mutations require the owner token the hold was acquired with.
type HoldManager interface {
	Acquire(ctx context.Context, ownerToken string, unitRefs map[string]int, ttl time.Duration) (domain.Hold, error)
	Renew(ctx context.Context, holdID, ownerToken string, ttl time.Duration) (domain.Hold, error)
	Release(ctx context.Context, holdID, ownerToken string) (domain.ReleaseReceipt, error)
	Consume(ctx context.Context, holdID, ownerToken string) error
}

type acquireHoldRequest struct {
	OwnerToken string         `json:"owner_token" validate:"required"`
	UnitRefs   map[string]int `json:"unit_refs" validate:"required,min=1,dive,gt=0"`
	TTLSeconds int            `json:"ttl_seconds" validate:"omitempty,gt=0"`
}

type holdResponse struct {
	ID         string         `json:"id"`
	OwnerToken string         `json:"owner_token"`
	UnitRefs   map[string]int `json:"unit_refs"`
	Status     string         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

func toHoldResponse(h domain.Hold) holdResponse {
	return holdResponse{
		ID:         h.ID,
		OwnerToken: h.OwnerToken,
		UnitRefs:   h.UnitRefs,
		Status:     string(h.Status),
		CreatedAt:  h.CreatedAt,
		ExpiresAt:  h.ExpiresAt,
	}
}

// HandleAcquireHold returns an HTTP handler for acquiring holds.
func HandleAcquireHold(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req acquireHoldRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		hold, err := svc.Acquire(r.Context(), req.OwnerToken, req.UnitRefs, time.Duration(req.TTLSeconds)*time.Second)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toHoldResponse(hold))
	}
}

type renewHoldRequest struct {
	OwnerToken string `json:"owner_token" validate:"required"`
	TTLSeconds int    `json:"ttl_seconds" validate:"omitempty,gt=0"`
}

// HandleRenewHold returns an HTTP handler for extending a hold's TTL.
func HandleRenewHold(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renewHoldRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		hold, err := svc.Renew(r.Context(), mux.Vars(r)["id"], req.OwnerToken, time.Duration(req.TTLSeconds)*time.Second)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toHoldResponse(hold))
	}
}

type releaseHoldRequest struct {
	OwnerToken string `json:"owner_token" validate:"required"`
}

type releaseHoldResponse struct {
	HoldID        string `json:"hold_id"`
	ReleasedCount int    `json:"released_count"`
}

// HandleReleaseHold returns an HTTP handler for releasing holds. Releasing an
// already-released or expired hold succeeds with released_count 0.
func HandleReleaseHold(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req releaseHoldRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		receipt, err := svc.Release(r.Context(), mux.Vars(r)["id"], req.OwnerToken)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, releaseHoldResponse{
			HoldID:        receipt.HoldID,
			ReleasedCount: receipt.ReleasedCount,
		})
	}
}

type consumeHoldRequest struct {
	OwnerToken string `json:"owner_token" validate:"required"`
}

// HandleConsumeHold returns an HTTP handler that converts a hold's reserved
// capacity into sold.
func HandleConsumeHold(svc HoldManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req consumeHoldRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := svc.Consume(r.Context(), mux.Vars(r)["id"], req.OwnerToken); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error(), nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
