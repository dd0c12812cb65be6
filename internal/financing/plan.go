package financing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedPlan is returned when a plan's numeric fields cannot be used for a quote.
	ErrMalformedPlan = errors.New("financing: malformed plan")

	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// NoMinimumThreshold is the minimum qualifying amount below which a plan is
// treated as having no minimum at all.
var NoMinimumThreshold = decimal.NewFromInt(1)

// Plan is an installment financing plan as loaded from the catalog.
type Plan struct {
	ID                    int64            `json:"id"`
	Name                  string           `json:"name"`
	Installments          int              `json:"installments"`
	SurchargePercent      decimal.Decimal  `json:"surchargePercent"`
	SurchargeFixed        decimal.Decimal  `json:"surchargeFixed"`
	MinAmount             decimal.Decimal  `json:"minAmount"`
	MaxAmount             decimal.Decimal  `json:"maxAmount"`
	MinDownPaymentPercent *decimal.Decimal `json:"minDownPaymentPercent,omitempty"`
	MinDownPaymentFixed   *decimal.Decimal `json:"minDownPaymentFixed,omitempty"`
	Active                bool             `json:"active"`
}

// IsCash reports whether the plan is the single-installment cash plan.
func (p Plan) IsCash() bool {
	return p.Installments == 1
}

// InterestFree reports whether the plan adds no surcharge.
func (p Plan) InterestFree() bool {
	return p.SurchargePercent.IsZero() && p.SurchargeFixed.IsZero()
}

// HasMinimum reports whether the plan's minimum amount is meaningful.
func (p Plan) HasMinimum() bool {
	return p.MinAmount.GreaterThanOrEqual(NoMinimumThreshold)
}

// Validate checks that the plan can be used to compute a quote.
func (p Plan) Validate() error {
	if p.Installments < 1 {
		return fmt.Errorf("%w: installments must be positive, got %d", ErrMalformedPlan, p.Installments)
	}
	if p.SurchargePercent.IsNegative() {
		return fmt.Errorf("%w: negative percentage surcharge", ErrMalformedPlan)
	}
	if p.SurchargeFixed.IsNegative() {
		return fmt.Errorf("%w: negative fixed surcharge", ErrMalformedPlan)
	}
	if p.MinAmount.IsNegative() || p.MaxAmount.IsNegative() {
		return fmt.Errorf("%w: negative amount bound", ErrMalformedPlan)
	}
	if p.MinDownPaymentPercent != nil && p.MinDownPaymentPercent.IsNegative() {
		return fmt.Errorf("%w: negative down payment percentage", ErrMalformedPlan)
	}
	if p.MinDownPaymentFixed != nil && p.MinDownPaymentFixed.IsNegative() {
		return fmt.Errorf("%w: negative fixed down payment", ErrMalformedPlan)
	}
	return nil
}

// Warning records a plan that was left out of a quote.
type Warning struct {
	PlanID   int64  `json:"planId"`
	PlanName string `json:"planName,omitempty"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

// Warning reasons.
const (
	ReasonInactive    = "inactive"
	ReasonMalformed   = "malformed"
	ReasonUndecodable = "undecodable"
)

// Dedupe keeps the first occurrence of every plan ID, preserving order.
func Dedupe(plans []Plan) []Plan {
	seen := make(map[int64]struct{}, len(plans))
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
