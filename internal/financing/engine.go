package financing

import (
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultCashDiscountPercent applies when a cash plan name carries no NN% token.
const DefaultCashDiscountPercent = 20

var cashPercentPattern = regexp.MustCompile(`(\d+)%`)

// CashDiscountPercent extracts the cash discount embedded in a plan display
// name, e.g. "Contado 20%off" -> 20. The storefront edits the discount through
// the plan name, so the first NN% token wins and DefaultCashDiscountPercent is
// used when there is none.
func CashDiscountPercent(name string) decimal.Decimal {
	match := cashPercentPattern.FindStringSubmatch(name)
	if len(match) < 2 {
		return decimal.NewFromInt(DefaultCashDiscountPercent)
	}
	pct, err := decimal.NewFromString(match[1])
	if err != nil {
		return decimal.NewFromInt(DefaultCashDiscountPercent)
	}
	return pct
}

// Qualifies reports whether plan is offered at price.
func Qualifies(price decimal.Decimal, plan Plan) bool {
	if plan.IsCash() {
		return true
	}
	if !plan.HasMinimum() {
		return true
	}
	if price.LessThan(plan.MinAmount) {
		return false
	}
	return plan.MaxAmount.IsZero() || price.LessThanOrEqual(plan.MaxAmount)
}

// Filter returns the plans eligible at price, each plan ID at most once.
func Filter(price decimal.Decimal, plans []Plan) []Plan {
	unique := Dedupe(plans)
	out := make([]Plan, 0, len(unique))
	for _, p := range unique {
		if Qualifies(price, p) {
			out = append(out, p)
		}
	}
	return Dedupe(out)
}

// CalculatedPlan is a plan quoted for one price. It is never persisted.
type CalculatedPlan struct {
	Plan                Plan            `json:"plan"`
	MonthlyPayment      decimal.Decimal `json:"monthlyPayment"`
	DownPayment         decimal.Decimal `json:"downPayment"`
	CashPrice           decimal.Decimal `json:"cashPrice"`
	CashDiscountPercent decimal.Decimal `json:"cashDiscountPercent"`
	InterestFree        bool            `json:"interestFree"`
}

// SortKey is the amount plans are ranked by: the quoted cash price for the
// cash plan, the installment amount otherwise.
func (c CalculatedPlan) SortKey() decimal.Decimal {
	if c.Plan.IsCash() {
		return c.CashPrice
	}
	return c.MonthlyPayment
}

// Calculate quotes plan at price. Values are exact; rounding belongs to presentation.
func Calculate(price decimal.Decimal, plan Plan) (CalculatedPlan, error) {
	if err := plan.Validate(); err != nil {
		return CalculatedPlan{}, err
	}
	multiplier := one.Add(plan.SurchargePercent.Div(hundred))
	amount := price.Add(plan.SurchargeFixed).Mul(multiplier)
	monthly := amount.Div(decimal.NewFromInt(int64(plan.Installments)))

	calc := CalculatedPlan{
		Plan:                plan,
		MonthlyPayment:      monthly,
		DownPayment:         DownPayment(price, plan),
		CashPrice:           decimal.Zero,
		CashDiscountPercent: decimal.Zero,
		InterestFree:        plan.InterestFree(),
	}
	if plan.IsCash() {
		pct := CashDiscountPercent(plan.Name)
		calc.CashDiscountPercent = pct
		calc.CashPrice = price.Mul(one.Sub(pct.Div(hundred)))
	}
	return calc, nil
}

// DownPayment returns the required down payment for plan at price, or zero
// when the plan sets neither a percentage nor a fixed minimum.
func DownPayment(price decimal.Decimal, plan Plan) decimal.Decimal {
	if plan.MinDownPaymentPercent == nil && plan.MinDownPaymentFixed == nil {
		return decimal.Zero
	}
	byPercent := decimal.Zero
	if plan.MinDownPaymentPercent != nil {
		byPercent = price.Mul(plan.MinDownPaymentPercent.Div(hundred))
	}
	fixed := decimal.Zero
	if plan.MinDownPaymentFixed != nil {
		fixed = *plan.MinDownPaymentFixed
	}
	return decimal.Max(byPercent, fixed)
}

// Rank orders calculated plans ascending by SortKey. Ties keep input order.
func Rank(calculated []CalculatedPlan) []CalculatedPlan {
	out := make([]CalculatedPlan, len(calculated))
	copy(out, calculated)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey().LessThan(out[j].SortKey())
	})
	return out
}
