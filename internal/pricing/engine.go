package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money represents an exact currency-agnostic amount.
type Money = decimal.Decimal

// DefaultOfferLabel is shown when an individual offer drives the price.
const DefaultOfferLabel = "Oferta Especial"

var hundred = decimal.NewFromInt(100)

// Offer is an individual, time-boxed product offer.
type Offer struct {
	Price   Money
	Percent Money
}

// Promotion is a named campaign discount. Price may be zero when only the
// percentage is stored, in which case it is derived from the base price.
type Promotion struct {
	Name    string
	Price   Money
	Percent Money
}

// Item describes a priced product as loaded from the catalog.
type Item struct {
	BasePrice Money
	Offer     *Offer
	Promotion *Promotion
}

// Resolution is the single effective price shown to the customer.
type Resolution struct {
	EffectivePrice  Money  `json:"effectivePrice"`
	BasePrice       Money  `json:"basePrice"`
	HasDiscount     bool   `json:"hasDiscount"`
	DiscountPercent Money  `json:"discountPercent"`
	DiscountLabel   string `json:"discountLabel,omitempty"`
}

// Resolver resolves effective prices using a configurable offer label.
type Resolver struct {
	OfferLabel string
}

// Resolve picks the effective price for item using DefaultOfferLabel.
func Resolve(item Item, offerValid bool) Resolution {
	return Resolver{}.Resolve(item, offerValid)
}

// Resolve picks the effective price. A valid individual offer wins over a
// promotion; with neither the base price applies. Missing fields never fail.
func (r Resolver) Resolve(item Item, offerValid bool) Resolution {
	base := item.BasePrice
	res := Resolution{EffectivePrice: base, BasePrice: base, DiscountPercent: decimal.Zero}

	if offerValid && item.Offer != nil && item.Offer.Price.IsPositive() {
		res.EffectivePrice = item.Offer.Price
		res.HasDiscount = true
		res.DiscountPercent = item.Offer.Percent
		res.DiscountLabel = r.offerLabel()
		return res
	}

	if promo := item.Promotion; promo != nil {
		price := promo.Price
		if !price.IsPositive() && promo.Percent.IsPositive() {
			price = ApplyPercentOff(base, promo.Percent)
		}
		if price.IsPositive() {
			res.EffectivePrice = price
			res.HasDiscount = true
			res.DiscountPercent = promo.Percent
			res.DiscountLabel = promo.Name
		}
	}
	return res
}

func (r Resolver) offerLabel() string {
	if r.OfferLabel == "" {
		return DefaultOfferLabel
	}
	return r.OfferLabel
}

// ApplyPercentOff returns price reduced by pct percent.
func ApplyPercentOff(price, pct Money) Money {
	if !pct.IsPositive() {
		return price
	}
	return price.Mul(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
}

// Window is an optional validity interval. Nil bounds are open-ended.
type Window struct {
	StartsAt *time.Time
	EndsAt   *time.Time
}

// Active reports whether now falls inside the window (bounds inclusive).
func (w Window) Active(now time.Time) bool {
	if w.StartsAt != nil && now.Before(*w.StartsAt) {
		return false
	}
	if w.EndsAt != nil && now.After(*w.EndsAt) {
		return false
	}
	return true
}

// ComboPricing carries the stored price data of a combo.
type ComboPricing struct {
	Price           Money
	OriginalPrice   Money
	DiscountPercent Money
	Active          bool
	Window          Window
}

// ComboResolution summarises what the combo page shows.
type ComboResolution struct {
	Price           Money `json:"price"`
	OriginalPrice   Money `json:"originalPrice"`
	DiscountPercent Money `json:"discountPercent"`
	Savings         Money `json:"savings"`
	HasDiscount     bool  `json:"hasDiscount"`
	Valid           bool  `json:"valid"`
}

// ResolveCombo computes the combo display price and validity at now.
func ResolveCombo(c ComboPricing, now time.Time) ComboResolution {
	savings := c.OriginalPrice.Sub(c.Price)
	if savings.IsNegative() {
		savings = decimal.Zero
	}
	return ComboResolution{
		Price:           c.Price,
		OriginalPrice:   c.OriginalPrice,
		DiscountPercent: c.DiscountPercent,
		Savings:         savings,
		HasDiscount:     c.DiscountPercent.IsPositive(),
		Valid:           c.Active && c.Window.Active(now),
	}
}
