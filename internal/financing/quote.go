package financing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Result is a ranked quote plus the plans that were left out of it.
type Result struct {
	Price    decimal.Decimal  `json:"price"`
	Plans    []CalculatedPlan `json:"plans"`
	Warnings []Warning        `json:"-"`
}

// Available reports whether any plan can be shown.
func (r Result) Available() bool {
	return len(r.Plans) > 0
}

// Quote runs the filter, calculate and rank steps for price. Inactive and
// malformed plans are skipped and reported in Warnings; an empty plan set
// yields an empty result.
func Quote(price decimal.Decimal, plans []Plan) Result {
	res := Result{Price: price, Plans: []CalculatedPlan{}}
	if len(plans) == 0 {
		return res
	}

	active := make([]Plan, 0, len(plans))
	for _, p := range Dedupe(plans) {
		if !p.Active {
			res.Warnings = append(res.Warnings, Warning{PlanID: p.ID, PlanName: p.Name, Reason: ReasonInactive})
			continue
		}
		active = append(active, p)
	}

	eligible := Filter(price, active)
	calculated := make([]CalculatedPlan, 0, len(eligible))
	for _, p := range eligible {
		calc, err := Calculate(price, p)
		if err != nil {
			reason := ReasonMalformed
			if !errors.Is(err, ErrMalformedPlan) {
				reason = ReasonUndecodable
			}
			res.Warnings = append(res.Warnings, Warning{PlanID: p.ID, PlanName: p.Name, Reason: reason, Detail: err.Error()})
			continue
		}
		calculated = append(calculated, calc)
	}

	res.Plans = dedupeCalculated(Rank(calculated))
	return res
}

// Find returns the quoted plan with the given ID.
func (r Result) Find(planID int64) (CalculatedPlan, bool) {
	for _, c := range r.Plans {
		if c.Plan.ID == planID {
			return c, true
		}
	}
	return CalculatedPlan{}, false
}

func dedupeCalculated(in []CalculatedPlan) []CalculatedPlan {
	seen := make(map[int64]struct{}, len(in))
	out := make([]CalculatedPlan, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.Plan.ID]; ok {
			continue
		}
		seen[c.Plan.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
