package financing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// View selects how a ranked quote is rendered.
type View string

const (
	// ViewCard is the compact listing card.
	ViewCard View = "card"
	// ViewPage is the full product page where a plan can be selected.
	ViewPage View = "page"
)

// ParseView maps a query value to a View, defaulting to ViewCard.
func ParseView(v string) View {
	if strings.EqualFold(strings.TrimSpace(v), string(ViewPage)) {
		return ViewPage
	}
	return ViewCard
}

// PlanView is one rendered plan.
type PlanView struct {
	PlanID              int64           `json:"planId"`
	Name                string          `json:"name"`
	Installments        int             `json:"installments"`
	Cash                bool            `json:"cash"`
	InterestFree        bool            `json:"interestFree"`
	MonthlyPayment      decimal.Decimal `json:"monthlyPayment"`
	DownPayment         decimal.Decimal `json:"downPayment"`
	CashPrice           decimal.Decimal `json:"cashPrice,omitempty"`
	CashDiscountPercent decimal.Decimal `json:"cashDiscountPercent,omitempty"`
	Headline            string          `json:"headline"`
	AmountText          string          `json:"amountText"`
	DownPaymentText     string          `json:"downPaymentText,omitempty"`
	Badge               string          `json:"badge,omitempty"`
	Selected            bool            `json:"selected"`
}

// Present renders ranked plans for view. selectedPlanID marks the plan
// currently attached to the shopping list, 0 for none.
func Present(plans []CalculatedPlan, view View, selectedPlanID int64) []PlanView {
	out := make([]PlanView, 0, len(plans))
	for _, c := range plans {
		out = append(out, present(c, view, selectedPlanID))
	}
	return out
}

func present(c CalculatedPlan, view View, selectedPlanID int64) PlanView {
	pv := PlanView{
		PlanID:         c.Plan.ID,
		Name:           c.Plan.Name,
		Installments:   c.Plan.Installments,
		Cash:           c.Plan.IsCash(),
		InterestFree:   c.InterestFree,
		MonthlyPayment: c.MonthlyPayment,
		DownPayment:    c.DownPayment,
		Selected:       selectedPlanID != 0 && selectedPlanID == c.Plan.ID,
	}
	if pv.Selected {
		pv.Badge = "Seleccionado"
	}

	if pv.Cash {
		pv.CashPrice = c.CashPrice
		pv.CashDiscountPercent = c.CashDiscountPercent
		pv.Headline = fmt.Sprintf("Contado %s%% OFF!", c.CashDiscountPercent.String())
		pv.AmountText = "$" + FormatARS(c.CashPrice)
		return pv
	}

	switch {
	case c.InterestFree:
		pv.Headline = fmt.Sprintf("%d Cuotas Sin interés de", c.Plan.Installments)
	case view == ViewPage:
		pv.Headline = fmt.Sprintf("%d cuotas mensuales de", c.Plan.Installments)
	default:
		pv.Headline = fmt.Sprintf("%d cuotas de", c.Plan.Installments)
	}
	pv.AmountText = "$" + FormatARS(c.MonthlyPayment)
	if view == ViewPage && !c.InterestFree {
		pv.AmountText += " EF"
	}
	if c.DownPayment.IsPositive() {
		pv.DownPaymentText = "Anticipo: $" + FormatARS(c.DownPayment)
	}
	return pv
}

// FormatARS formats an amount the way es-AR locales print prices:
// "." thousands separator, "," decimal separator, at most two decimals
// rounded half away from zero, trailing zeros dropped.
func FormatARS(amount decimal.Decimal) string {
	fixed := amount.Round(2).StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	if neg && fixed != "0.00" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	frac = strings.TrimRight(frac, "0")
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}
