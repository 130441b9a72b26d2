package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/oolio-kart-cart/internal/domain/promo"
)

// DefaultSnapshotKey is the key snapshots are stored under when none is
// configured.
const DefaultSnapshotKey = "cart-storage"

// ErrNoSnapshot is returned by Persister.Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no cart snapshot")

// Snapshot is the cached client state that survives restarts. It is a cache,
// not a source of truth, and is overwritten on the next successful fetch.
type Snapshot struct {
	Items    []Item         `json:"items"`
	Wishlist []WishlistItem `json:"wishlistItems"`
	Promo    *promo.Code    `json:"promoCode"`
}

// Persister stores and restores snapshots.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}
