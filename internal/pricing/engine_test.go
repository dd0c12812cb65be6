package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestResolveOfferBeatsPromotion(t *testing.T) {
	item := Item{
		BasePrice: dec("1000"),
		Offer:     &Offer{Price: dec("800"), Percent: dec("20")},
		Promotion: &Promotion{Name: "Hot Sale", Price: dec("850"), Percent: dec("15")},
	}
	res := Resolve(item, true)
	if !res.EffectivePrice.Equal(dec("800")) {
		t.Fatalf("expected offer price 800, got %s", res.EffectivePrice)
	}
	if res.DiscountLabel != DefaultOfferLabel {
		t.Fatalf("expected offer label, got %q", res.DiscountLabel)
	}
	if !res.DiscountPercent.Equal(dec("20")) {
		t.Fatalf("expected 20%% discount, got %s", res.DiscountPercent)
	}
}

func TestResolveExpiredOfferFallsBackToPromotion(t *testing.T) {
	item := Item{
		BasePrice: dec("1000"),
		Offer:     &Offer{Price: dec("800"), Percent: dec("20")},
		Promotion: &Promotion{Name: "Hot Sale", Percent: dec("15")},
	}
	res := Resolve(item, false)
	if !res.EffectivePrice.Equal(dec("850")) {
		t.Fatalf("expected derived promotion price 850, got %s", res.EffectivePrice)
	}
	if res.DiscountLabel != "Hot Sale" || !res.HasDiscount {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolveWithoutDiscount(t *testing.T) {
	res := Resolve(Item{BasePrice: dec("1234.5")}, true)
	if res.HasDiscount || res.DiscountLabel != "" {
		t.Fatalf("expected no discount, got %+v", res)
	}
	if !res.EffectivePrice.Equal(dec("1234.5")) || !res.DiscountPercent.IsZero() {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolverCustomLabel(t *testing.T) {
	r := Resolver{OfferLabel: "Special Offer"}
	res := r.Resolve(Item{BasePrice: dec("10"), Offer: &Offer{Price: dec("9"), Percent: dec("10")}}, true)
	if res.DiscountLabel != "Special Offer" {
		t.Fatalf("expected custom label, got %q", res.DiscountLabel)
	}
}

func TestWindowActive(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	cases := []struct {
		name string
		w    Window
		want bool
	}{
		{"open", Window{}, true},
		{"inside", Window{StartsAt: &before, EndsAt: &after}, true},
		{"not started", Window{StartsAt: &after}, false},
		{"ended", Window{EndsAt: &before}, false},
		{"inclusive end", Window{EndsAt: &now}, true},
	}
	for _, tc := range cases {
		if got := tc.w.Active(now); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestResolveCombo(t *testing.T) {
	now := time.Now()
	ended := now.Add(-time.Minute)
	res := ResolveCombo(ComboPricing{
		Price:           dec("900"),
		OriginalPrice:   dec("1200"),
		DiscountPercent: dec("25"),
		Active:          true,
	}, now)
	if !res.Savings.Equal(dec("300")) || !res.HasDiscount || !res.Valid {
		t.Fatalf("unexpected combo resolution %+v", res)
	}

	expired := ResolveCombo(ComboPricing{Price: dec("900"), OriginalPrice: dec("800"), Active: true, Window: Window{EndsAt: &ended}}, now)
	if expired.Valid {
		t.Fatal("expected combo outside its window to be invalid")
	}
	if !expired.Savings.IsZero() {
		t.Fatalf("expected savings clamped to zero, got %s", expired.Savings)
	}
}
