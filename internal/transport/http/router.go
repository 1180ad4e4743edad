package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter binds the core's exposed operations to HTTP routes.
func NewRouter(holds HoldManager, pricing PriceQuoter, sessions SessionManager, catalog CatalogAdmin, logger *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger(logger))

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)

	r.Handle("/holds", HandleAcquireHold(holds)).Methods(http.MethodPost)
	r.Handle("/holds/{id}/renew", HandleRenewHold(holds)).Methods(http.MethodPost)
	r.Handle("/holds/{id}/release", HandleReleaseHold(holds)).Methods(http.MethodPost)
	r.Handle("/holds/{id}/consume", HandleConsumeHold(holds)).Methods(http.MethodPost)

	r.Handle("/pricing/quote", HandleQuote(pricing)).Methods(http.MethodPost)

	r.Handle("/sessions", HandleCreateSession(sessions)).Methods(http.MethodPost)
	r.Handle("/sessions/{id}", HandleGetSession(sessions)).Methods(http.MethodGet)
	r.Handle("/sessions/{id}", HandleAbandon(sessions)).Methods(http.MethodDelete)
	r.Handle("/sessions/{id}/selection", HandleMutateSelection(sessions)).Methods(http.MethodPatch)
	r.Handle("/sessions/{id}/hold", HandleSessionHold(sessions)).Methods(http.MethodPost)
	r.Handle("/sessions/{id}/advance", HandleAdvance(sessions)).Methods(http.MethodPost)
	r.Handle("/sessions/{id}/retreat", HandleRetreat(sessions)).Methods(http.MethodPost)
	r.Handle("/sessions/{id}/confirm", HandleConfirm(sessions)).Methods(http.MethodPost)

	r.Handle("/admin/units", HandleCreateUnit(catalog)).Methods(http.MethodPost)
	r.Handle("/admin/units", HandleListUnits(catalog)).Methods(http.MethodGet)
	r.Handle("/admin/options", HandleCreateOption(catalog)).Methods(http.MethodPost)
	r.Handle("/admin/discounts", HandleCreateDiscount(catalog)).Methods(http.MethodPost)
	r.Handle("/admin/transfer-rates", HandleSetTransferRates(catalog)).Methods(http.MethodPut)

	r.NotFoundHandler = NotFoundHandler()
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
