package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cimillas/booking-core/internal/app"
	"github.com/cimillas/booking-core/internal/domain"
)

// SessionManager drives the multi-step booking flow on behalf of the UI.
type SessionManager interface {
	Create(ctx context.Context, ownerToken string, productType domain.ProductType) (domain.BookingSession, error)
	Get(ctx context.Context, sessionID string) (domain.BookingSession, error)
	MutateSelection(ctx context.Context, sessionID string, update app.SelectionUpdate) (domain.BookingSession, error)
	RequestHold(ctx context.Context, sessionID string) (domain.BookingSession, error)
	Advance(ctx context.Context, sessionID string) (domain.BookingSession, error)
	Retreat(ctx context.Context, sessionID string) (domain.BookingSession, error)
	Confirm(ctx context.Context, sessionID string) (domain.OrderLine, error)
	Abandon(ctx context.Context, sessionID string) error
}

type createSessionRequest struct {
	OwnerToken  string `json:"owner_token" validate:"required"`
	ProductType string `json:"product_type" validate:"omitempty,oneof=event transfer tour"`
}

type contactPayload struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

type selectionPatchRequest struct {
	ProductType    *string         `json:"product_type" validate:"omitempty,oneof=event transfer tour"`
	ParentID       *string         `json:"parent_id"`
	UnitID         *string         `json:"unit_id"`
	TripType       *string         `json:"trip_type" validate:"omitempty,oneof=one_way round_trip"`
	TimeOfDay      *string         `json:"time_of_day"`
	Quantity       *int            `json:"quantity" validate:"omitempty,gt=0"`
	Options        map[string]int  `json:"options" validate:"omitempty,dive,gt=0"`
	DiscountCode   *string         `json:"discount_code"`
	Contact        *contactPayload `json:"contact"`
	ClientEstimate *float64        `json:"client_estimate"`
}

type sessionResponse struct {
	ID            string                   `json:"id"`
	OwnerToken    string                   `json:"owner_token"`
	ProductType   string                   `json:"product_type,omitempty"`
	ParentID      string                   `json:"parent_id,omitempty"`
	UnitID        string                   `json:"unit_id,omitempty"`
	TripType      string                   `json:"trip_type,omitempty"`
	TimeOfDay     string                   `json:"time_of_day,omitempty"`
	Quantity      int                      `json:"quantity,omitempty"`
	Options       map[string]int           `json:"options,omitempty"`
	DiscountCode  string                   `json:"discount_code,omitempty"`
	Contact       contactPayload           `json:"contact"`
	Step          string                   `json:"step"`
	ActiveHoldID  string                   `json:"active_hold_id,omitempty"`
	LastBreakdown *domain.PricingBreakdown `json:"last_breakdown,omitempty"`
	PriceDrift    bool                     `json:"price_drift"`
	Errors        map[string]string        `json:"errors,omitempty"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

func toSessionResponse(s domain.BookingSession) sessionResponse {
	return sessionResponse{
		ID:           s.ID,
		OwnerToken:   s.OwnerToken,
		ProductType:  string(s.ProductType),
		ParentID:     s.ParentID,
		UnitID:       s.UnitID,
		TripType:     string(s.TripType),
		TimeOfDay:    s.TimeOfDay,
		Quantity:     s.Quantity,
		Options:      s.SelectedOptions,
		DiscountCode: s.DiscountCode,
		Contact: contactPayload{
			Name:  s.Contact.Name,
			Email: s.Contact.Email,
			Phone: s.Contact.Phone,
		},
		Step:          string(s.Step),
		ActiveHoldID:  s.ActiveHoldID,
		LastBreakdown: s.LastBreakdown,
		PriceDrift:    s.PriceDrift,
		Errors:        s.Errors,
		UpdatedAt:     s.UpdatedAt,
	}
}

// HandleCreateSession starts a new booking session.
func HandleCreateSession(svc SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		session, err := svc.Create(r.Context(), req.OwnerToken, domain.ProductType(req.ProductType))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSessionResponse(session))
	}
}

// HandleGetSession returns the current session snapshot.
func HandleGetSession(svc SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(session))
	}
}

// HandleMutateSelection applies a partial selection update and reconciles
// price and hold state.
func HandleMutateSelection(svc SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectionPatchRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		update := app.SelectionUpdate{
			ParentID:       req.ParentID,
			UnitID:         req.UnitID,
			TimeOfDay:      req.TimeOfDay,
			Quantity:       req.Quantity,
			Options:        req.Options,
			DiscountCode:   req.DiscountCode,
			ClientEstimate: req.ClientEstimate,
		}
		if req.ProductType != nil {
			pt := domain.ProductType(*req.ProductType)
			update.ProductType = &pt
		}
		if req.TripType != nil {
			tt := domain.TripType(*req.TripType)
			update.TripType = &tt
		}
		if req.Contact != nil {
			update.Contact = &domain.Contact{
				Name:  req.Contact.Name,
				Email: req.Contact.Email,
				Phone: req.Contact.Phone,
			}
		}

		session, err := svc.MutateSelection(r.Context(), mux.Vars(r)["id"], update)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(session))
	}
}

// HandleSessionHold acquires (or renews) the hold for the current selection.
func HandleSessionHold(svc SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.RequestHold(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(session))
	}
}

// HandleAdvance moves the session one step forward when its gate passes.
func HandleAdvance(svc SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Advance(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(session))
	}
}

// HandleRetreat moves the session one step back; always allowed.
func HandleRetreat(svc SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Retreat(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(session))
	}
}

type confirmResponse struct {
	SessionID string                  `json:"session_id"`
	HoldID    string                  `json:"hold_id"`
	UnitRefs  map[string]int          `json:"unit_refs"`
	Breakdown domain.PricingBreakdown `json:"breakdown"`
	CreatedAt time.Time               `json:"created_at"`
}

// HandleConfirm completes the booking: consume the hold and hand the line to
// the order collaborator.
func HandleConfirm(svc SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		line, err := svc.Confirm(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, confirmResponse{
			SessionID: line.SessionID,
			HoldID:    line.HoldID,
			UnitRefs:  line.UnitRefs,
			Breakdown: line.Breakdown,
			CreatedAt: line.CreatedAt,
		})
	}
}

// HandleAbandon releases the session's hold and destroys the session.
func HandleAbandon(svc SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Abandon(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
