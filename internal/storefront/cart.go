package storefront

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
)

type cartResponse struct {
	Items []cart.Item `json:"items"`
}

type addItemRequest struct {
	ProductID cart.ID  `json:"productId"`
	Quantity  int      `json:"quantity"`
	VariantID *cart.ID `json:"variantId"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type replaceCartRequest struct {
	Items []cart.ReplayLine `json:"items"`
}

// GetCart returns the authoritative cart lines.
func (c *Client) GetCart(ctx context.Context) ([]cart.Item, error) {
	var resp cartResponse
	if err := c.do(ctx, "fetch cart", http.MethodGet, "/api/cart", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AddItem adds quantity of a product (and optional variant) and returns the
// full resulting cart.
func (c *Client) AddItem(ctx context.Context, productID cart.ID, quantity int, variantID *cart.ID) ([]cart.Item, error) {
	req := addItemRequest{
		ProductID: productID,
		Quantity:  quantity,
		VariantID: variantID,
	}
	var resp cartResponse
	if err := c.do(ctx, "add to cart", http.MethodPost, "/api/cart/items", req, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// UpdateItem sets the quantity of one line and returns the resulting cart.
func (c *Client) UpdateItem(ctx context.Context, itemID cart.ID, quantity int) ([]cart.Item, error) {
	var resp cartResponse
	path := "/api/cart/items/" + url.PathEscape(itemID.String())
	if err := c.do(ctx, "update cart item", http.MethodPut, path, updateItemRequest{Quantity: quantity}, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// RemoveItem deletes one line and returns the resulting cart.
func (c *Client) RemoveItem(ctx context.Context, itemID cart.ID) ([]cart.Item, error) {
	var resp cartResponse
	path := "/api/cart/items/" + url.PathEscape(itemID.String())
	if err := c.do(ctx, "remove cart item", http.MethodDelete, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ReplaceCart replaces the whole cart with lines in a single idempotent call
// and returns the resulting cart. Only backends exposing PUT /api/cart
// support it.
func (c *Client) ReplaceCart(ctx context.Context, lines []cart.ReplayLine) ([]cart.Item, error) {
	if lines == nil {
		lines = []cart.ReplayLine{}
	}
	var resp cartResponse
	if err := c.do(ctx, "replace cart", http.MethodPut, "/api/cart", replaceCartRequest{Items: lines}, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetTotals returns the server-computed amounts for the current cart.
func (c *Client) GetTotals(ctx context.Context) (*cart.Totals, error) {
	var resp struct {
		Amounts *cart.Totals `json:"amounts"`
	}
	if err := c.do(ctx, "get totals", http.MethodGet, "/api/cart/totals", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Amounts == nil {
		return nil, errMissingField("get totals", "amounts")
	}
	return resp.Amounts, nil
}
