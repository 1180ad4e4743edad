package app

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cimillas/booking-core/internal/clock"
	"github.com/cimillas/booking-core/internal/domain"
)

type holdManager interface {
	Acquire(ctx context.Context, ownerToken string, unitRefs map[string]int, ttl time.Duration) (domain.Hold, error)
	Renew(ctx context.Context, holdID, ownerToken string, ttl time.Duration) (domain.Hold, error)
	Release(ctx context.Context, holdID, ownerToken string) (domain.ReleaseReceipt, error)
	Consume(ctx context.Context, holdID, ownerToken string) error
	Get(ctx context.Context, holdID string) (domain.Hold, error)
}

type priceCalculator interface {
	Calculate(ctx context.Context, req domain.PricingRequest) (domain.PricingBreakdown, error)
}

// OrderPublisher is the order/cart collaborator that materializes a confirmed
// booking. The core itself persists nothing.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, line domain.OrderLine) error
}

// SelectionUpdate is a partial update to the session's selection. Nil fields
// are left untouched; Options, when non-nil, replaces the whole option map.
type SelectionUpdate struct {
	ProductType    *domain.ProductType
	ParentID       *string
	UnitID         *string
	TripType       *domain.TripType
	TimeOfDay      *string
	Quantity       *int
	Options        map[string]int
	DiscountCode   *string
	Contact        *domain.Contact
	ClientEstimate *float64
}

// affectsHoldIdentity reports whether the update invalidates an existing
// hold's unit refs.
func (u SelectionUpdate) affectsHoldIdentity() bool {
	return u.ProductType != nil || u.ParentID != nil || u.UnitID != nil ||
		u.TripType != nil || u.Quantity != nil
}

// SessionService drives the multi-step booking pipeline. Transitions on one
// session are serialized through a per-session mutex; the underlying hold and
// pricing calls run without blocking other sessions.
type SessionService struct {
	holds   holdManager
	pricing priceCalculator
	orders  OrderPublisher
	clock   clock.Clock
	logger  *logrus.Logger
	holdTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionSlot
}

type sessionSlot struct {
	mu      sync.Mutex
	session *domain.BookingSession
}

type SessionServiceOption func(*SessionService)

// WithSessionHoldTTL sets the TTL used for holds the session acquires.
func WithSessionHoldTTL(d time.Duration) SessionServiceOption {
	return func(s *SessionService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

func NewSessionService(holds holdManager, pricing priceCalculator, orders OrderPublisher, clk clock.Clock, logger *logrus.Logger, opts ...SessionServiceOption) *SessionService {
	svc := &SessionService{
		holds:    holds,
		pricing:  pricing,
		orders:   orders,
		clock:    clk,
		logger:   logger,
		holdTTL:  defaultHoldTTL,
		sessions: make(map[string]*sessionSlot),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *SessionService) Create(ctx context.Context, ownerToken string, productType domain.ProductType) (domain.BookingSession, error) {
	if ownerToken == "" {
		return domain.BookingSession{}, domain.ErrOwnerTokenRequired
	}
	if productType != "" && !productType.Valid() {
		return domain.BookingSession{}, domain.ErrUnknownProductType
	}

	now := s.clock.Now()
	session := &domain.BookingSession{
		ID:              uuid.NewString(),
		OwnerToken:      ownerToken,
		ProductType:     productType,
		SelectedOptions: make(map[string]int),
		Errors:          make(map[string]string),
		Step:            domain.StepSelectingProduct,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionSlot{session: session}
	s.mu.Unlock()

	return session.Clone(), nil
}

func (s *SessionService) Get(ctx context.Context, sessionID string) (domain.BookingSession, error) {
	slot, err := s.slot(sessionID)
	if err != nil {
		return domain.BookingSession{}, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.session.Clone(), nil
}

// MutateSelection applies a partial update. Updates that change the hold's
// unit identity release the active hold first; re-acquisition only happens on
// an explicit RequestHold. Hold/pricing failures are surfaced without
// corrupting committed session state.
func (s *SessionService) MutateSelection(ctx context.Context, sessionID string, update SelectionUpdate) (domain.BookingSession, error) {
	slot, err := s.slot(sessionID)
	if err != nil {
		return domain.BookingSession{}, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	session := slot.session

	if update.ProductType != nil && !update.ProductType.Valid() {
		return session.Clone(), domain.ErrUnknownProductType
	}
	if update.TripType != nil && *update.TripType != domain.TripOneWay && *update.TripType != domain.TripRoundTrip {
		return session.Clone(), domain.ErrInvalidID
	}
	if update.Quantity != nil && *update.Quantity <= 0 {
		return session.Clone(), domain.ErrInvalidQuantity
	}

	if update.affectsHoldIdentity() {
		s.releaseActiveHold(ctx, session)
	}

	if update.ProductType != nil {
		session.ProductType = *update.ProductType
	}
	if update.ParentID != nil {
		session.ParentID = *update.ParentID
	}
	if update.UnitID != nil {
		session.UnitID = *update.UnitID
	}
	if update.TripType != nil {
		session.TripType = *update.TripType
	}
	if update.TimeOfDay != nil {
		session.TimeOfDay = *update.TimeOfDay
	}
	if update.Quantity != nil {
		session.Quantity = *update.Quantity
	}
	if update.Options != nil {
		session.SelectedOptions = make(map[string]int, len(update.Options))
		for id, qty := range update.Options {
			session.SelectedOptions[id] = qty
		}
	}
	if update.DiscountCode != nil {
		session.DiscountCode = *update.DiscountCode
	}
	if update.Contact != nil {
		session.Contact = *update.Contact
	}
	if update.ClientEstimate != nil {
		v := *update.ClientEstimate
		session.ClientEstimate = &v
	}
	session.UpdatedAt = s.clock.Now()

	s.reconcile(ctx, session)
	return session.Clone(), nil
}

// RequestHold acquires (or renews) a hold for the current unit and quantity.
func (s *SessionService) RequestHold(ctx context.Context, sessionID string) (domain.BookingSession, error) {
	slot, err := s.slot(sessionID)
	if err != nil {
		return domain.BookingSession{}, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	session := slot.session

	if session.UnitID == "" || session.Quantity <= 0 {
		return session.Clone(), domain.ErrInvalidQuantity
	}

	refs := map[string]int{session.UnitID: session.Quantity}

	if session.ActiveHoldID != "" {
		if hold, err := s.holds.Get(ctx, session.ActiveHoldID); err == nil &&
			hold.Status == domain.HoldStatusActive && !hold.SameRefs(refs) {
			s.releaseActiveHold(ctx, session)
		}
	}

	hold, err := s.holds.Acquire(ctx, session.OwnerToken, refs, s.holdTTL)
	if err != nil {
		session.Errors["hold"] = err.Error()
		return session.Clone(), err
	}
	session.ActiveHoldID = hold.ID
	delete(session.Errors, "hold")
	session.UpdatedAt = s.clock.Now()

	s.reconcile(ctx, session)
	return session.Clone(), nil
}

// Advance moves to the next step when the current step's validity gate holds.
// Gate failures are recorded per field and leave the session untouched.
func (s *SessionService) Advance(ctx context.Context, sessionID string) (domain.BookingSession, error) {
	slot, err := s.slot(sessionID)
	if err != nil {
		return domain.BookingSession{}, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	session := slot.session

	missing := s.gateMissing(ctx, session)
	if len(missing) > 0 {
		return session.Clone(), &domain.TransitionError{Step: session.Step, Missing: missing}
	}

	for _, field := range gateFields(session.Step) {
		delete(session.Errors, field)
	}
	session.Step = session.Step.Next()
	session.UpdatedAt = s.clock.Now()
	return session.Clone(), nil
}

// Retreat always succeeds. Moving back to schedule selection or earlier
// releases the active hold: downstream selections are no longer guaranteed.
func (s *SessionService) Retreat(ctx context.Context, sessionID string) (domain.BookingSession, error) {
	slot, err := s.slot(sessionID)
	if err != nil {
		return domain.BookingSession{}, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	session := slot.session

	session.Step = session.Step.Prev()
	if session.Step.Index() <= domain.StepSelectingSchedule.Index() {
		s.releaseActiveHold(ctx, session)
	}
	session.UpdatedAt = s.clock.Now()
	return session.Clone(), nil
}

// Confirm is the terminal success path: recompute the price, consume the
// hold, hand the order line to the collaborator, destroy the session.
func (s *SessionService) Confirm(ctx context.Context, sessionID string) (domain.OrderLine, error) {
	slot, err := s.slot(sessionID)
	if err != nil {
		return domain.OrderLine{}, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	session := slot.session

	if session.Step != domain.StepReviewingSummary {
		return domain.OrderLine{}, &domain.TransitionError{Step: session.Step, Missing: []string{"step"}}
	}
	if session.ActiveHoldID == "" {
		return domain.OrderLine{}, domain.ErrStaleHold
	}

	hold, err := s.holds.Get(ctx, session.ActiveHoldID)
	if err != nil {
		return domain.OrderLine{}, err
	}
	if hold.Status != domain.HoldStatusActive || hold.ExpiredAt(s.clock.Now()) {
		return domain.OrderLine{}, domain.ErrStaleHold
	}

	// Authoritative recomputation right before committing.
	breakdown, err := s.pricing.Calculate(ctx, s.pricingRequest(session, hold.UnitRefs[session.UnitID]))
	if err != nil {
		session.Errors["pricing"] = err.Error()
		return domain.OrderLine{}, err
	}
	session.LastBreakdown = &breakdown

	if err := s.holds.Consume(ctx, session.ActiveHoldID, session.OwnerToken); err != nil {
		return domain.OrderLine{}, err
	}

	line := domain.OrderLine{
		SessionID:  session.ID,
		HoldID:     session.ActiveHoldID,
		OwnerToken: session.OwnerToken,
		UnitRefs:   hold.UnitRefs,
		Breakdown:  breakdown,
		Contact:    session.Contact,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.orders.PublishOrder(ctx, line); err != nil {
		s.logger.WithError(err).WithField("session_id", session.ID).Error("order hand-off failed")
		return domain.OrderLine{}, err
	}

	s.drop(sessionID)
	return line, nil
}

// Abandon releases any active hold and destroys the session.
func (s *SessionService) Abandon(ctx context.Context, sessionID string) error {
	slot, err := s.slot(sessionID)
	if err != nil {
		return err
	}
	slot.mu.Lock()
	s.releaseActiveHold(ctx, slot.session)
	slot.mu.Unlock()

	s.drop(sessionID)
	return nil
}

func (s *SessionService) slot(sessionID string) (*sessionSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return slot, nil
}

func (s *SessionService) drop(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *SessionService) releaseActiveHold(ctx context.Context, session *domain.BookingSession) {
	if session.ActiveHoldID == "" {
		return
	}
	if _, err := s.holds.Release(ctx, session.ActiveHoldID, session.OwnerToken); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": session.ID,
			"hold_id":    session.ActiveHoldID,
		}).Error("release of stale hold failed")
	}
	session.ActiveHoldID = ""
}

func (s *SessionService) pricingRequest(session *domain.BookingSession, heldQty int) domain.PricingRequest {
	return domain.PricingRequest{
		UnitID:          session.UnitID,
		Quantity:        session.Quantity,
		HeldQuantity:    heldQty,
		TripType:        session.TripType,
		TimeOfDay:       session.TimeOfDay,
		SelectedOptions: session.SelectedOptions,
		DiscountCode:    session.DiscountCode,
	}
}

// heldQuantity reports how much of the selected unit the session's active
// hold has reserved, so pricing does not count the session's own reservation
// against it.
func (s *SessionService) heldQuantity(ctx context.Context, session *domain.BookingSession) int {
	if session.ActiveHoldID == "" || session.UnitID == "" {
		return 0
	}
	hold, err := s.holds.Get(ctx, session.ActiveHoldID)
	if err != nil || hold.Status != domain.HoldStatusActive || hold.ExpiredAt(s.clock.Now()) {
		return 0
	}
	return hold.UnitRefs[session.UnitID]
}

// reconcile re-requests the authoritative price after a material change and
// flags drift against the client's own estimate.
func (s *SessionService) reconcile(ctx context.Context, session *domain.BookingSession) {
	if session.UnitID == "" || session.Quantity <= 0 {
		session.LastBreakdown = nil
		session.PriceDrift = false
		return
	}

	breakdown, err := s.pricing.Calculate(ctx, s.pricingRequest(session, s.heldQuantity(ctx, session)))
	if err != nil {
		session.Errors["pricing"] = err.Error()
		session.LastBreakdown = nil
		session.PriceDrift = false
		return
	}
	delete(session.Errors, "pricing")
	session.LastBreakdown = &breakdown

	session.PriceDrift = session.ClientEstimate != nil &&
		math.Abs(*session.ClientEstimate-breakdown.FinalPrice) >= 0.005
	if session.PriceDrift {
		s.logger.WithFields(logrus.Fields{
			"session_id":    session.ID,
			"estimate":      *session.ClientEstimate,
			"authoritative": breakdown.FinalPrice,
		}).Warn("client price estimate drifted from authoritative breakdown")
	}
}

// gateMissing evaluates the validity predicate for leaving the current step.
func (s *SessionService) gateMissing(ctx context.Context, session *domain.BookingSession) []string {
	var missing []string
	record := func(field, msg string) {
		missing = append(missing, field)
		session.Errors[field] = msg
	}

	switch session.Step {
	case domain.StepSelectingProduct:
		if !session.ProductType.Valid() {
			record("product_type", "select a product type")
		}
		if session.ParentID == "" {
			record("parent_id", "select a performance, route or schedule")
		}
	case domain.StepSelectingSchedule:
		if session.UnitID == "" {
			record("unit_id", "select a section, vehicle or variant")
		}
		if session.ProductType == domain.ProductTransfer {
			if session.TripType == "" {
				record("trip_type", "select one-way or round trip")
			}
			if session.TimeOfDay == "" {
				record("time_of_day", "select a pickup time")
			}
		}
	case domain.StepSelectingQuantity:
		if session.Quantity <= 0 {
			record("quantity", "select a quantity")
		}
		if session.ActiveHoldID == "" {
			record("hold", "no active hold for the selection")
		} else if hold, err := s.holds.Get(ctx, session.ActiveHoldID); err != nil ||
			hold.Status != domain.HoldStatusActive || hold.ExpiredAt(s.clock.Now()) {
			record("hold", "hold expired, request a new one")
		}
	case domain.StepSelectingOptions:
		if session.LastBreakdown == nil {
			record("pricing", "no valid price for the selection")
		}
	case domain.StepEnteringContact:
		if session.Contact.Name == "" {
			record("contact_name", "contact name required")
		}
		if session.Contact.Email == "" {
			record("contact_email", "contact email required")
		}
	case domain.StepReviewingSummary:
		record("step", "already at the final step, confirm instead")
	}
	return missing
}

func gateFields(step domain.Step) []string {
	switch step {
	case domain.StepSelectingProduct:
		return []string{"product_type", "parent_id"}
	case domain.StepSelectingSchedule:
		return []string{"unit_id", "trip_type", "time_of_day"}
	case domain.StepSelectingQuantity:
		return []string{"quantity", "hold"}
	case domain.StepSelectingOptions:
		return []string{"pricing"}
	case domain.StepEnteringContact:
		return []string{"contact_name", "contact_email"}
	}
	return nil
}
