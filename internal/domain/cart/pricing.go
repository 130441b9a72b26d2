package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-cart/internal/domain/promo"
)

var (
	// TaxRate is the flat sales tax applied to the subtotal.
	TaxRate = decimal.RequireFromString("0.08")
	// FreeShippingThreshold is the subtotal at which standard shipping is free.
	FreeShippingThreshold = decimal.NewFromInt(50)
)

// Totals holds the amounts shown on the cart and checkout pages. The backend
// returns the same shape from GET /api/cart/totals.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// ShippingPolicy prices shipping for a subtotal.
type ShippingPolicy interface {
	Shipping(subtotal decimal.Decimal) decimal.Decimal
}

// FlatRate charges Fee below Threshold and nothing at or above it.
type FlatRate struct {
	Threshold decimal.Decimal
	Fee       decimal.Decimal
}

// DefaultShipping is the canonical cart shipping policy.
var DefaultShipping = FlatRate{
	Threshold: FreeShippingThreshold,
	Fee:       decimal.RequireFromString("9.99"),
}

// Shipping implements ShippingPolicy.
func (f FlatRate) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(f.Threshold) {
		return decimal.Zero
	}
	return f.Fee
}

// ShippingMethod names a selectable checkout shipping tier.
type ShippingMethod string

// Checkout shipping tiers.
const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

// ErrUnknownShippingMethod is returned by ParseShippingMethod.
var ErrUnknownShippingMethod = errors.New("unknown shipping method")

var tierFees = map[ShippingMethod]decimal.Decimal{
	ShippingStandard:  decimal.RequireFromString("5.99"),
	ShippingExpress:   decimal.RequireFromString("12.99"),
	ShippingOvernight: decimal.RequireFromString("24.99"),
}

// ParseShippingMethod validates a method name.
func ParseShippingMethod(s string) (ShippingMethod, error) {
	m := ShippingMethod(s)
	if _, ok := tierFees[m]; !ok {
		return "", errors.Wrapf(ErrUnknownShippingMethod, "%q", s)
	}
	return m, nil
}

// Tiered prices the checkout's selectable methods. Standard is free at or
// above FreeShippingThreshold; express and overnight always cost their fee.
type Tiered struct {
	Method ShippingMethod
}

// Shipping implements ShippingPolicy.
func (t Tiered) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	method := t.Method
	if method == "" {
		method = ShippingStandard
	}
	fee, ok := tierFees[method]
	if !ok {
		fee = tierFees[ShippingStandard]
	}
	if method == ShippingStandard && subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return fee
}

// Price derives totals for items under the given shipping policy and optional
// promo. An empty cart ships for free. Total is floored at zero and every
// amount is rounded to cents.
func Price(items []Item, shipping ShippingPolicy, code *promo.Code) (Totals, error) {
	if shipping == nil {
		shipping = DefaultShipping
	}

	subtotal := Subtotal(items)
	tax := subtotal.Mul(TaxRate)

	ship := decimal.Zero
	if len(items) > 0 {
		ship = shipping.Shipping(subtotal)
	}

	discount, err := promo.Apply(code, subtotal)
	if err != nil {
		return Totals{}, errors.Wrap(err, "apply promo")
	}

	total := subtotal.Add(tax).Add(ship).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal.Round(2),
		Tax:      tax.Round(2),
		Shipping: ship.Round(2),
		Discount: discount.Round(2),
		Total:    total.Round(2),
	}, nil
}
