package promo

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promo discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrEmptyCode is returned when a blank code is submitted.
	ErrEmptyCode = errors.New("promo code is required")
	// ErrUnsupportedType is returned for discount types other than
	// percentage and fixed.
	ErrUnsupportedType = errors.New("unsupported discount type")
)

// Code is the active promo descriptor returned by the backend. At most one
// is active per cart.
type Code struct {
	Code           string          `json:"code"`
	Type           DiscountType    `json:"type"`
	Value          decimal.Decimal `json:"value"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
}

// Normalize trims and upper-cases a user-entered code.
func Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", ErrEmptyCode
	}
	return code, nil
}
