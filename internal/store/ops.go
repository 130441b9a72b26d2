package store

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
	"github.com/xenking/oolio-kart-cart/internal/domain/promo"
	"github.com/xenking/oolio-kart-cart/internal/storefront"
)

// ItemNotFoundError indicates a cart line id is not in the local cache.
type ItemNotFoundError struct {
	ItemID cart.ID
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found in cart", e.ItemID)
}

// FetchCart replaces the cart cache with the backend's. On failure the
// cache is left as it was.
func (s *Store) FetchCart(ctx context.Context) error {
	return s.run(ctx, "fetch_cart", s.fetchCart)
}

func (s *Store) fetchCart(ctx context.Context) error {
	items, err := s.backend.GetCart(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch cart")
	}
	s.setItems(ctx, items)
	return nil
}

// FetchWishlist replaces the wishlist cache with the backend's.
func (s *Store) FetchWishlist(ctx context.Context) error {
	return s.run(ctx, "fetch_wishlist", s.fetchWishlist)
}

func (s *Store) fetchWishlist(ctx context.Context) error {
	items, err := s.backend.GetWishlist(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch wishlist")
	}
	s.setWishlist(ctx, items)
	return nil
}

// AddToCart adds quantity of a product, optionally a specific variant. The
// quantity is passed through as is; callers keep it within 1..99.
func (s *Store) AddToCart(ctx context.Context, productID cart.ID, quantity int, variantID *cart.ID) error {
	return s.run(ctx, "add_to_cart", func(ctx context.Context) error {
		items, err := s.backend.AddItem(ctx, productID, quantity, variantID)
		if err != nil {
			return errors.Wrap(err, "add to cart")
		}
		s.setItems(ctx, items)
		return nil
	})
}

// UpdateQuantity sets the quantity of one cart line.
func (s *Store) UpdateQuantity(ctx context.Context, itemID cart.ID, quantity int) error {
	return s.run(ctx, "update_quantity", func(ctx context.Context) error {
		items, err := s.backend.UpdateItem(ctx, itemID, quantity)
		if err != nil {
			return errors.Wrap(err, "update quantity")
		}
		s.setItems(ctx, items)
		return nil
	})
}

// RemoveFromCart deletes one cart line.
func (s *Store) RemoveFromCart(ctx context.Context, itemID cart.ID) error {
	return s.run(ctx, "remove_from_cart", func(ctx context.Context) error {
		items, err := s.backend.RemoveItem(ctx, itemID)
		if err != nil {
			return errors.Wrap(err, "remove from cart")
		}
		s.setItems(ctx, items)
		return nil
	})
}

// SaveForLater moves a cart line to the wishlist. It fails with
// *ItemNotFoundError, without calling the backend, when itemID is not in the
// local cart.
func (s *Store) SaveForLater(ctx context.Context, itemID cart.ID) error {
	return s.run(ctx, "save_for_later", func(ctx context.Context) error {
		item, ok := cart.FindItem(s.Items(), itemID)
		if !ok {
			return &ItemNotFoundError{ItemID: itemID}
		}
		productID := item.Key().ProductID

		if err := s.backend.AddToWishlist(ctx, productID); err != nil {
			return errors.Wrap(err, "add to wishlist")
		}
		items, err := s.backend.RemoveItem(ctx, itemID)
		if err != nil {
			return errors.Wrap(err, "remove from cart")
		}
		s.setItems(ctx, items)

		if err := s.fetchWishlist(ctx); err != nil {
			s.refreshFailed(ctx, err)
		}
		return nil
	})
}

// MoveToCart moves a wishlist product into the cart. The wishlist entry is
// removed locally first and restored if the backend rejects the move; on
// success cart and wishlist are refreshed together.
func (s *Store) MoveToCart(ctx context.Context, productID cart.ID, quantity int) error {
	return s.run(ctx, "move_to_cart", func(ctx context.Context) error {
		removed, ok := s.takeWishlistItem(productID)
		if err := s.backend.MoveToCart(ctx, productID, quantity); err != nil {
			if ok {
				s.restoreWishlistItem(removed)
			}
			return errors.Wrap(err, "move to cart")
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.fetchCart(gCtx) })
		g.Go(func() error { return s.fetchWishlist(gCtx) })
		if err := g.Wait(); err != nil {
			s.refreshFailed(ctx, err)
		}
		return nil
	})
}

// AddToWishlist saves a product to the wishlist and refreshes it.
func (s *Store) AddToWishlist(ctx context.Context, productID cart.ID) error {
	return s.run(ctx, "add_to_wishlist", func(ctx context.Context) error {
		if err := s.backend.AddToWishlist(ctx, productID); err != nil {
			return errors.Wrap(err, "add to wishlist")
		}
		if err := s.fetchWishlist(ctx); err != nil {
			s.refreshFailed(ctx, err)
		}
		return nil
	})
}

// RemoveFromWishlist deletes a product from the wishlist. Removing a product
// the backend no longer has is not an error.
func (s *Store) RemoveFromWishlist(ctx context.Context, productID cart.ID) error {
	return s.run(ctx, "remove_from_wishlist", func(ctx context.Context) error {
		err := s.backend.RemoveFromWishlist(ctx, productID)
		if err != nil && !storefront.IsNotFound(err) {
			return errors.Wrap(err, "remove from wishlist")
		}
		s.mu.Lock()
		s.wishlist = cart.WithoutProduct(s.wishlist, productID)
		s.mu.Unlock()
		s.persist(ctx)
		return nil
	})
}

// ApplyPromoCode applies code, replacing any active promo. On failure the
// active promo is kept and the backend's message is returned.
func (s *Store) ApplyPromoCode(ctx context.Context, code string) error {
	return s.run(ctx, "apply_promo_code", func(ctx context.Context) error {
		normalized, err := promo.Normalize(code)
		if err != nil {
			return err
		}
		applied, err := s.backend.ApplyPromoCode(ctx, normalized)
		if err != nil {
			return errors.Wrap(err, "apply promo code")
		}
		s.setPromo(ctx, applied)
		return nil
	})
}

// RemovePromoCode removes the active promo.
func (s *Store) RemovePromoCode(ctx context.Context) error {
	return s.run(ctx, "remove_promo_code", func(ctx context.Context) error {
		if err := s.backend.RemovePromoCode(ctx); err != nil {
			return errors.Wrap(err, "remove promo code")
		}
		s.setPromo(ctx, nil)
		return nil
	})
}

// Totals returns the backend's computed amounts, or nil when they cannot be
// fetched. Failures are logged but not recorded in Err.
func (s *Store) Totals(ctx context.Context) *cart.Totals {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	var totals *cart.Totals
	_ = s.observe(ctx, "totals", func(ctx context.Context) error {
		t, err := s.backend.GetTotals(ctx)
		if err != nil {
			return errors.Wrap(err, "get totals")
		}
		totals = t
		return nil
	})
	return totals
}

// Sync merges the local cart into the backend's, typically right after a
// guest signs in. With replace enabled the merged lines are written in one
// call. Otherwise the server cart is cleared line by line and the merged
// lines are replayed in order, which is not atomic: a failure midway leaves
// a partial server cart.
func (s *Store) Sync(ctx context.Context) error {
	return s.run(ctx, "sync", func(ctx context.Context) error {
		server, err := s.backend.GetCart(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch server cart")
		}
		local := s.Items()
		if len(local) == 0 {
			s.setItems(ctx, server)
			return nil
		}

		lines := cart.ReplayLines(cart.Merge(local, server))
		if s.replaceCart {
			items, err := s.backend.ReplaceCart(ctx, lines)
			if err != nil {
				return errors.Wrap(err, "replace cart")
			}
			s.setItems(ctx, items)
			return nil
		}

		for _, it := range server {
			if _, err := s.backend.RemoveItem(ctx, it.ID); err != nil {
				return errors.Wrapf(err, "clear server line %s", it.ID)
			}
		}
		for _, l := range lines {
			if _, err := s.backend.AddItem(ctx, l.ProductID, l.Quantity, l.VariantID); err != nil {
				return errors.Wrapf(err, "replay product %s", l.ProductID)
			}
		}
		return s.fetchCart(ctx)
	})
}

// ClearCart empties the local cart and drops the promo. The backend is not
// contacted.
func (s *Store) ClearCart(ctx context.Context) {
	s.setItems(ctx, nil)
}

// ClearWishlist empties the local wishlist.
func (s *Store) ClearWishlist(ctx context.Context) {
	s.setWishlist(ctx, nil)
}

// ClearError resets Err.
func (s *Store) ClearError() {
	s.setErr(nil)
}

// refreshFailed records a failed follow-up refresh of an operation that
// itself succeeded. The operation still returns nil.
func (s *Store) refreshFailed(ctx context.Context, err error) {
	zctx.From(ctx).Warn("Refresh after mutation", zap.Error(err))
	s.setErr(err)
}

func (s *Store) takeWishlistItem(productID cart.ID) (cart.WishlistItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := cart.FindWishlistItem(s.wishlist, productID)
	if ok {
		s.wishlist = cart.WithoutProduct(s.wishlist, productID)
	}
	return item, ok
}

func (s *Store) restoreWishlistItem(item cart.WishlistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !cart.WishlistContains(s.wishlist, item.ProductID()) {
		s.wishlist = append(s.wishlist, item)
	}
}
