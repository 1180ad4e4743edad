package domain

import "time"

type Step string

const (
	StepSelectingProduct  Step = "selecting_product"
	StepSelectingSchedule Step = "selecting_schedule"
	StepSelectingQuantity Step = "selecting_quantity"
	StepSelectingOptions  Step = "selecting_options"
	StepEnteringContact   Step = "entering_contact"
	StepReviewingSummary  Step = "reviewing_summary"
)

var stepOrder = []Step{
	StepSelectingProduct,
	StepSelectingSchedule,
	StepSelectingQuantity,
	StepSelectingOptions,
	StepEnteringContact,
	StepReviewingSummary,
}

func (s Step) Index() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the following step, or the step itself at the end of the
// pipeline.
func (s Step) Next() Step {
	i := s.Index()
	if i < 0 || i == len(stepOrder)-1 {
		return s
	}
	return stepOrder[i+1]
}

// Prev returns the preceding step, or the step itself at the start.
func (s Step) Prev() Step {
	i := s.Index()
	if i <= 0 {
		return s
	}
	return stepOrder[i-1]
}

type Contact struct {
	Name  string
	Email string
	Phone string
}

// BookingSession is the single-owner, in-progress multi-step selection.
// Capacity and price truth never lives here: the hold manager and pricing
// engine are re-consulted on every material change.
type BookingSession struct {
	ID              string
	OwnerToken      string
	ProductType     ProductType
	ParentID        string
	UnitID          string
	TripType        TripType
	TimeOfDay       string
	Quantity        int
	SelectedOptions map[string]int
	DiscountCode    string
	Contact         Contact
	ClientEstimate  *float64
	Step            Step
	ActiveHoldID    string
	LastBreakdown   *PricingBreakdown
	PriceDrift      bool
	Errors          map[string]string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy safe to hand to callers.
func (s BookingSession) Clone() BookingSession {
	out := s
	if s.SelectedOptions != nil {
		out.SelectedOptions = make(map[string]int, len(s.SelectedOptions))
		for k, v := range s.SelectedOptions {
			out.SelectedOptions[k] = v
		}
	}
	if s.Errors != nil {
		out.Errors = make(map[string]string, len(s.Errors))
		for k, v := range s.Errors {
			out.Errors[k] = v
		}
	}
	if s.LastBreakdown != nil {
		b := *s.LastBreakdown
		b.Modifiers = append([]ModifierLine(nil), s.LastBreakdown.Modifiers...)
		out.LastBreakdown = &b
	}
	if s.ClientEstimate != nil {
		v := *s.ClientEstimate
		out.ClientEstimate = &v
	}
	return out
}

// OrderLine is handed to the order/cart collaborator when a session confirms.
type OrderLine struct {
	SessionID  string
	HoldID     string
	OwnerToken string
	UnitRefs   map[string]int
	Breakdown  PricingBreakdown
	Contact    Contact
	CreatedAt  time.Time
}
