package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/cimillas/booking-core/internal/app"
	"github.com/cimillas/booking-core/internal/domain"
)

type stubSessionManager struct {
	session domain.BookingSession
	line    domain.OrderLine
	err     error
}

func (s *stubSessionManager) Create(context.Context, string, domain.ProductType) (domain.BookingSession, error) {
	return s.session, s.err
}

func (s *stubSessionManager) Get(context.Context, string) (domain.BookingSession, error) {
	return s.session, s.err
}

func (s *stubSessionManager) MutateSelection(context.Context, string, app.SelectionUpdate) (domain.BookingSession, error) {
	return s.session, s.err
}

func (s *stubSessionManager) RequestHold(context.Context, string) (domain.BookingSession, error) {
	return s.session, s.err
}

func (s *stubSessionManager) Advance(context.Context, string) (domain.BookingSession, error) {
	return s.session, s.err
}

func (s *stubSessionManager) Retreat(context.Context, string) (domain.BookingSession, error) {
	return s.session, s.err
}

func (s *stubSessionManager) Confirm(context.Context, string) (domain.OrderLine, error) {
	return s.line, s.err
}

func (s *stubSessionManager) Abandon(context.Context, string) error {
	return s.err
}

func TestHandleCreateSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"owner_token":"owner-1","product_type":"event"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"step":"selecting_product"`,
		},
		{
			name:           "missing owner token",
			body:           `{"product_type":"event"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad product type",
			body:           `{"owner_token":"owner-1","product_type":"cruise"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubSessionManager{
				session: domain.BookingSession{ID: "s1", OwnerToken: "owner-1", Step: domain.StepSelectingProduct},
				err:     tt.serviceErr,
			}
			req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleCreateSession(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleAdvance_GateFailure(t *testing.T) {
	t.Parallel()

	svc := &stubSessionManager{err: &domain.TransitionError{
		Step:    domain.StepSelectingProduct,
		Missing: []string{"product_type", "parent_id"},
	}}
	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/advance", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "s1"})
	rec := httptest.NewRecorder()

	HandleAdvance(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"code":"invalid_transition"`) {
		t.Fatalf("expected invalid_transition code, got %s", body)
	}
	if !strings.Contains(body, `"product_type"`) {
		t.Fatalf("expected missing fields in details, got %s", body)
	}
}

func TestHandleMutateSelection_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	svc := &stubSessionManager{session: domain.BookingSession{ID: "s1", Step: domain.StepSelectingProduct}}
	req := httptest.NewRequest(http.MethodPatch, "/sessions/s1/selection", bytes.NewBufferString(`{"surprise":true}`))
	req = mux.SetURLVars(req, map[string]string{"id": "s1"})
	rec := httptest.NewRecorder()

	HandleMutateSelection(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleConfirmAndAbandon(t *testing.T) {
	t.Parallel()

	t.Run("confirm returns the order line", func(t *testing.T) {
		svc := &stubSessionManager{line: domain.OrderLine{
			SessionID: "s1",
			HoldID:    "hold-1",
			UnitRefs:  map[string]int{"unit-1": 2},
			Breakdown: domain.PricingBreakdown{FinalPrice: 60},
		}}
		req := httptest.NewRequest(http.MethodPost, "/sessions/s1/confirm", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "s1"})
		rec := httptest.NewRecorder()

		HandleConfirm(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"hold_id":"hold-1"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("confirm with stale hold", func(t *testing.T) {
		svc := &stubSessionManager{err: domain.ErrStaleHold}
		req := httptest.NewRequest(http.MethodPost, "/sessions/s1/confirm", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "s1"})
		rec := httptest.NewRecorder()

		HandleConfirm(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("abandon", func(t *testing.T) {
		svc := &stubSessionManager{}
		req := httptest.NewRequest(http.MethodDelete, "/sessions/s1", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "s1"})
		rec := httptest.NewRecorder()

		HandleAbandon(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := &stubSessionManager{err: domain.ErrSessionNotFound}
		req := httptest.NewRequest(http.MethodGet, "/sessions/nope", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "nope"})
		rec := httptest.NewRecorder()

		HandleGetSession(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
