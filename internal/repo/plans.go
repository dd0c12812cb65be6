package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/catalogo-api/internal/financing"
)

// PlanScope names the rule that selected a product's plans.
type PlanScope string

const (
	ScopeSpecial  PlanScope = "special"
	ScopeAll      PlanScope = "all"
	ScopeCategory PlanScope = "category"
	ScopeDefault  PlanScope = "default"
	ScopeNone     PlanScope = "none"
	ScopeCombo    PlanScope = "combo"
)

// PlanRow is a financing_plans row before numeric validation.
type PlanRow struct {
	ID                    int64
	Name                  string
	Installments          pgtype.Int4
	SurchargePercent      pgtype.Numeric
	SurchargeFixed        pgtype.Numeric
	MinAmount             pgtype.Numeric
	MaxAmount             pgtype.Numeric
	MinDownPaymentPercent pgtype.Numeric
	MinDownPaymentFixed   pgtype.Numeric
	Active                bool
}

// Plan decodes the row. NULL or NaN installments and surcharges fail; NULL
// bounds mean unset.
func (r PlanRow) Plan() (financing.Plan, error) {
	if !r.Installments.Valid {
		return financing.Plan{}, fmt.Errorf("installments: %w", ErrNullNumeric)
	}
	pct, err := Decimal(r.SurchargePercent)
	if err != nil {
		return financing.Plan{}, fmt.Errorf("surcharge percent: %w", err)
	}
	fixed, err := Decimal(r.SurchargeFixed)
	if err != nil {
		return financing.Plan{}, fmt.Errorf("surcharge fixed: %w", err)
	}
	if r.MinAmount.Valid && r.MinAmount.NaN {
		return financing.Plan{}, fmt.Errorf("min amount: %w", ErrNaNNumeric)
	}
	if r.MaxAmount.Valid && r.MaxAmount.NaN {
		return financing.Plan{}, fmt.Errorf("max amount: %w", ErrNaNNumeric)
	}
	downPct, err := OptionalDecimal(r.MinDownPaymentPercent)
	if err != nil {
		return financing.Plan{}, fmt.Errorf("down payment percent: %w", err)
	}
	downFixed, err := OptionalDecimal(r.MinDownPaymentFixed)
	if err != nil {
		return financing.Plan{}, fmt.Errorf("down payment fixed: %w", err)
	}
	return financing.Plan{
		ID:                    r.ID,
		Name:                  r.Name,
		Installments:          int(r.Installments.Int32),
		SurchargePercent:      pct,
		SurchargeFixed:        fixed,
		MinAmount:             DecimalOrZero(r.MinAmount),
		MaxAmount:             DecimalOrZero(r.MaxAmount),
		MinDownPaymentPercent: downPct,
		MinDownPaymentFixed:   downFixed,
		Active:                r.Active,
	}, nil
}

// PlanSet is the raw plan list that applies to one product or combo.
type PlanSet struct {
	Scope    PlanScope           `json:"scope"`
	Plans    []financing.Plan    `json:"plans"`
	Warnings []financing.Warning `json:"warnings,omitempty"`
}

// DecodePlans converts rows into plans, turning undecodable rows into warnings.
func DecodePlans(scope PlanScope, rows []PlanRow) PlanSet {
	set := PlanSet{Scope: scope, Plans: make([]financing.Plan, 0, len(rows))}
	for _, row := range rows {
		p, err := row.Plan()
		if err != nil {
			set.Warnings = append(set.Warnings, financing.Warning{
				PlanID:   row.ID,
				PlanName: row.Name,
				Reason:   financing.ReasonUndecodable,
				Detail:   err.Error(),
			})
			continue
		}
		set.Plans = append(set.Plans, p)
	}
	return set
}

// Plans selects which financing plans apply to a product or combo.
type Plans struct {
	DB DBTX
}

// NewPlans constructs a Plans over db.
func NewPlans(db DBTX) *Plans {
	return &Plans{DB: db}
}

const planColumns = `fp.id, fp.name, fp.installments, fp.surcharge_percent, fp.surcharge_fixed,
    fp.min_amount, fp.max_amount, fp.min_down_payment_percent, fp.min_down_payment_fixed, fp.active`

const productPlanFlags = `SELECT category_id, use_special_plans, use_all_plans, use_category_plans
FROM products WHERE id = $1`

const specialPlans = `SELECT ` + planColumns + `
FROM product_plans pp
JOIN financing_plans fp ON fp.id = pp.plan_id
WHERE pp.product_id = $1 AND pp.active
ORDER BY pp.id`

const allPlans = `SELECT ` + planColumns + `
FROM financing_plans fp
WHERE fp.active
ORDER BY fp.id`

const categoryPlans = `SELECT ` + planColumns + `
FROM category_plans cp
JOIN financing_plans fp ON fp.id = cp.plan_id
WHERE cp.category_id = $1 AND cp.active
ORDER BY cp.id`

const defaultPlans = `SELECT ` + planColumns + `
FROM product_default_plans dp
JOIN financing_plans fp ON fp.id = dp.plan_id
WHERE dp.product_id = $1 AND dp.active
ORDER BY dp.id`

const comboPlans = `SELECT ` + planColumns + `
FROM combo_plans cp
JOIN financing_plans fp ON fp.id = cp.plan_id
WHERE cp.combo_id = $1 AND cp.active
ORDER BY cp.id`

// PlansForProduct resolves a product's plans. Special plans win, then all
// active plans, then the category's plans, then the product defaults. A
// flagged scope without rows falls through to the next one.
func (p *Plans) PlansForProduct(ctx context.Context, productID int64) (PlanSet, error) {
	var (
		categoryID                      pgtype.Int8
		useSpecial, useAll, useCategory bool
	)
	err := p.DB.QueryRow(ctx, productPlanFlags, productID).Scan(&categoryID, &useSpecial, &useAll, &useCategory)
	if err != nil {
		return PlanSet{}, notFound(err, "product plan flags")
	}

	if useSpecial {
		rows, err := p.query(ctx, specialPlans, productID)
		if err != nil {
			return PlanSet{}, fmt.Errorf("special plans: %w", err)
		}
		if len(rows) > 0 {
			return DecodePlans(ScopeSpecial, rows), nil
		}
	}
	if useAll {
		rows, err := p.query(ctx, allPlans)
		if err != nil {
			return PlanSet{}, fmt.Errorf("all plans: %w", err)
		}
		if len(rows) > 0 {
			return DecodePlans(ScopeAll, rows), nil
		}
	}
	if useCategory && categoryID.Valid {
		rows, err := p.query(ctx, categoryPlans, categoryID.Int64)
		if err != nil {
			return PlanSet{}, fmt.Errorf("category plans: %w", err)
		}
		if len(rows) > 0 {
			return DecodePlans(ScopeCategory, rows), nil
		}
	}
	rows, err := p.query(ctx, defaultPlans, productID)
	if err != nil {
		return PlanSet{}, fmt.Errorf("default plans: %w", err)
	}
	if len(rows) > 0 {
		return DecodePlans(ScopeDefault, rows), nil
	}
	return PlanSet{Scope: ScopeNone, Plans: []financing.Plan{}}, nil
}

// PlansForCombo returns the combo's linked plans, or every active plan when
// the combo has none linked.
func (p *Plans) PlansForCombo(ctx context.Context, comboID int64) (PlanSet, error) {
	rows, err := p.query(ctx, comboPlans, comboID)
	if err != nil {
		return PlanSet{}, fmt.Errorf("combo plans: %w", err)
	}
	if len(rows) > 0 {
		return DecodePlans(ScopeCombo, rows), nil
	}
	rows, err = p.query(ctx, allPlans)
	if err != nil {
		return PlanSet{}, fmt.Errorf("all plans: %w", err)
	}
	return DecodePlans(ScopeAll, rows), nil
}

func (p *Plans) query(ctx context.Context, sql string, args ...any) ([]PlanRow, error) {
	rows, err := p.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PlanRow, error) {
		var r PlanRow
		err := row.Scan(
			&r.ID, &r.Name, &r.Installments, &r.SurchargePercent, &r.SurchargeFixed,
			&r.MinAmount, &r.MaxAmount, &r.MinDownPaymentPercent, &r.MinDownPaymentFixed, &r.Active,
		)
		return r, err
	})
}
