package store

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
	"github.com/xenking/oolio-kart-cart/internal/domain/promo"
)

// Items returns a copy of the cached cart lines.
func (s *Store) Items() []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cart.Item(nil), s.items...)
}

// Wishlist returns a copy of the cached wishlist.
func (s *Store) Wishlist() []cart.WishlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cart.WishlistItem(nil), s.wishlist...)
}

// Promo returns the active promo, or nil.
func (s *Store) Promo() *promo.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.promo == nil {
		return nil
	}
	p := *s.promo
	return &p
}

// Subtotal is the sum of effective unit price times quantity.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.Subtotal(s.items)
}

// ItemCount is the sum of line quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.ItemCount(s.items)
}

func (s *Store) WishlistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wishlist)
}

// InCart reports whether any cart line holds productID.
func (s *Store) InCart(productID cart.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.ContainsProduct(s.items, productID)
}

func (s *Store) InWishlist(productID cart.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.WishlistContains(s.wishlist, productID)
}

// LocalTotals prices the cached cart with the active promo. A nil policy
// means cart.DefaultShipping.
func (s *Store) LocalTotals(policy cart.ShippingPolicy) (cart.Totals, error) {
	if policy == nil {
		policy = cart.DefaultShipping
	}
	s.mu.Lock()
	items, code := s.items, s.promo
	s.mu.Unlock()
	return cart.Price(items, policy, code)
}

// Loading reports whether any operation is in flight.
func (s *Store) Loading() bool {
	return s.inflight.Load() > 0
}

// Err returns the error of the last failed operation, or nil once a later
// operation starts.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Snapshot returns the persistable state.
func (s *Store) Snapshot() cart.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}
