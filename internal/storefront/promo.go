package storefront

import (
	"context"
	"net/http"

	"github.com/xenking/oolio-kart-cart/internal/domain/promo"
)

type applyPromoRequest struct {
	Code string `json:"code"`
}

// ApplyPromoCode validates and applies code, returning the active promo.
// Invalid or expired codes come back as *HTTPError carrying the server's
// message.
func (c *Client) ApplyPromoCode(ctx context.Context, code string) (*promo.Code, error) {
	var resp struct {
		PromoCode *promo.Code `json:"promoCode"`
	}
	if err := c.do(ctx, "apply promo code", http.MethodPost, "/api/cart/promo-code", applyPromoRequest{Code: code}, &resp); err != nil {
		return nil, err
	}
	if resp.PromoCode == nil {
		return nil, errMissingField("apply promo code", "promoCode")
	}
	return resp.PromoCode, nil
}

// RemovePromoCode removes the active promo.
func (c *Client) RemovePromoCode(ctx context.Context) error {
	return c.do(ctx, "remove promo code", http.MethodDelete, "/api/cart/promo-code", nil, nil)
}
