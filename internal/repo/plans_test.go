package repo_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/catalogo-api/internal/financing"
	"github.com/noah-isme/catalogo-api/internal/repo"
)

func num(v string) pgtype.Numeric {
	return repo.Numeric(decimal.RequireFromString(v))
}

func validRow(id int64) repo.PlanRow {
	return repo.PlanRow{
		ID:               id,
		Name:             "6 cuotas",
		Installments:     pgtype.Int4{Int32: 6, Valid: true},
		SurchargePercent: num("12.5"),
		SurchargeFixed:   num("0"),
		MinAmount:        num("1000"),
		Active:           true,
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	d, err := repo.Decimal(num("1234.56"))
	require.NoError(t, err)
	require.True(t, d.Equal(decimal.RequireFromString("1234.56")))

	_, err = repo.Decimal(pgtype.Numeric{})
	require.ErrorIs(t, err, repo.ErrNullNumeric)

	_, err = repo.Decimal(pgtype.Numeric{NaN: true, Valid: true})
	require.ErrorIs(t, err, repo.ErrNaNNumeric)

	scaled, err := repo.Decimal(pgtype.Numeric{Int: big.NewInt(15), Exp: 2, Valid: true})
	require.NoError(t, err)
	require.True(t, scaled.Equal(decimal.NewFromInt(1500)))

	require.True(t, repo.DecimalOrZero(pgtype.Numeric{}).IsZero())
}

func TestPlanRowDecode(t *testing.T) {
	row := validRow(3)
	row.MinDownPaymentFixed = num("500")
	p, err := row.Plan()
	require.NoError(t, err)
	require.Equal(t, int64(3), p.ID)
	require.Equal(t, 6, p.Installments)
	require.True(t, p.SurchargePercent.Equal(decimal.RequireFromString("12.5")))
	require.True(t, p.MaxAmount.IsZero())
	require.Nil(t, p.MinDownPaymentPercent)
	require.NotNil(t, p.MinDownPaymentFixed)
	require.True(t, p.MinDownPaymentFixed.Equal(decimal.NewFromInt(500)))
}

func TestPlanRowDecodeFailures(t *testing.T) {
	noInstallments := validRow(1)
	noInstallments.Installments = pgtype.Int4{}
	_, err := noInstallments.Plan()
	require.ErrorIs(t, err, repo.ErrNullNumeric)

	nanSurcharge := validRow(2)
	nanSurcharge.SurchargePercent = pgtype.Numeric{NaN: true, Valid: true}
	_, err = nanSurcharge.Plan()
	require.True(t, errors.Is(err, repo.ErrNaNNumeric))

	nullFixed := validRow(3)
	nullFixed.SurchargeFixed = pgtype.Numeric{}
	_, err = nullFixed.Plan()
	require.ErrorIs(t, err, repo.ErrNullNumeric)
}

func TestDecodePlansCollectsWarnings(t *testing.T) {
	broken := validRow(9)
	broken.Name = "roto"
	broken.Installments = pgtype.Int4{}

	set := repo.DecodePlans(repo.ScopeCategory, []repo.PlanRow{validRow(1), broken, validRow(2)})
	require.Equal(t, repo.ScopeCategory, set.Scope)
	require.Len(t, set.Plans, 2)
	require.Len(t, set.Warnings, 1)
	require.Equal(t, int64(9), set.Warnings[0].PlanID)
	require.Equal(t, "roto", set.Warnings[0].PlanName)
	require.Equal(t, financing.ReasonUndecodable, set.Warnings[0].Reason)
}

func TestProductRowPricing(t *testing.T) {
	starts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	row := repo.ProductRow{
		Price:            num("1000"),
		OfferPrice:       num("800"),
		OfferPercent:     num("20"),
		OfferStartsAt:    pgtype.Timestamptz{Time: starts, Valid: true},
		PromotionName:    pgtype.Text{String: "Hot Sale", Valid: true},
		PromotionPercent: num("15"),
	}
	item := row.PricingItem()
	require.True(t, item.BasePrice.Equal(decimal.NewFromInt(1000)))
	require.NotNil(t, item.Offer)
	require.True(t, item.Offer.Price.Equal(decimal.NewFromInt(800)))
	require.NotNil(t, item.Promotion)
	require.True(t, item.Promotion.Price.IsZero())

	w := row.OfferWindow()
	require.NotNil(t, w.StartsAt)
	require.Nil(t, w.EndsAt)
	require.False(t, w.Active(starts.Add(-time.Second)))
	require.True(t, w.Active(starts.Add(time.Hour)))
}

func TestComboRowPricing(t *testing.T) {
	row := repo.ComboRow{ComboPrice: num("900"), OriginalPrice: num("1000"), DiscountPercent: num("10"), Active: true}
	res := row.Pricing()
	require.True(t, res.Price.Equal(decimal.NewFromInt(900)))
	require.True(t, res.Active)
	require.True(t, res.Window.Active(time.Now()))
}
