package promo

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply returns the discount the code grants against subtotal. A nil code
// grants nothing, and so does a subtotal below the code's minimum order
// amount.
func Apply(c *Code, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, nil
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return decimal.Zero, nil
	}

	switch c.Type {
	case DiscountPercentage:
		return applyPercentage(c.Value, subtotal), nil
	case DiscountFixed:
		return applyFixed(c.Value, subtotal), nil
	default:
		return decimal.Zero, errors.Wrapf(ErrUnsupportedType, "%q", c.Type)
	}
}

func applyPercentage(value, subtotal decimal.Decimal) decimal.Decimal {
	amount := subtotal.Mul(value).Div(hundred)
	return floorAtZero(amount).Round(2)
}

func applyFixed(value, subtotal decimal.Decimal) decimal.Decimal {
	amount := decimal.Min(value, subtotal)
	return floorAtZero(amount).Round(2)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
