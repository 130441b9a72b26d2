package storefront

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
)

type wishlistResponse struct {
	Wishlist []cart.WishlistItem `json:"wishlist"`
}

type addWishlistRequest struct {
	ProductID cart.ID `json:"product_id"`
}

type moveToCartRequest struct {
	Quantity int `json:"quantity"`
}

// GetWishlist returns the authoritative wishlist.
func (c *Client) GetWishlist(ctx context.Context) ([]cart.WishlistItem, error) {
	var resp wishlistResponse
	if err := c.do(ctx, "fetch wishlist", http.MethodGet, "/api/wishlist", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Wishlist, nil
}

// AddToWishlist saves a product to the wishlist.
func (c *Client) AddToWishlist(ctx context.Context, productID cart.ID) error {
	return c.do(ctx, "add to wishlist", http.MethodPost, "/api/wishlist", addWishlistRequest{ProductID: productID}, nil)
}

// RemoveFromWishlist deletes a product from the wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID cart.ID) error {
	path := "/api/wishlist/" + url.PathEscape(productID.String())
	return c.do(ctx, "remove from wishlist", http.MethodDelete, path, nil, nil)
}

// MoveToCart moves a wishlist product into the cart server-side: the product
// is added with quantity and removed from the wishlist in one call.
func (c *Client) MoveToCart(ctx context.Context, productID cart.ID, quantity int) error {
	path := "/api/wishlist/" + url.PathEscape(productID.String()) + "/move-to-cart"
	return c.do(ctx, "move to cart", http.MethodPost, path, moveToCartRequest{Quantity: quantity}, nil)
}

// GetSharedWishlist returns another shopper's public wishlist. Only active
// products are included.
func (c *Client) GetSharedWishlist(ctx context.Context, userID cart.ID) ([]cart.WishlistItem, error) {
	var resp wishlistResponse
	path := "/api/wishlist/shared/" + url.PathEscape(userID.String())
	if err := c.do(ctx, "fetch shared wishlist", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Wishlist, nil
}
