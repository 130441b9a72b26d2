// Package cart holds the cart and wishlist data model, effective-price rules,
// totals derivation and the local/server merge algorithm. Everything here is
// pure: no I/O, no shared state.
package cart

import (
	"github.com/shopspring/decimal"
)

// MaxQuantity is the per-line quantity cap.
const MaxQuantity = 99

// Product is the product reference carried by a cart line.
type Product struct {
	ID            ID              `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug,omitempty"`
	Image         string          `json:"image,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity,omitempty"`
	IsActive      Flag            `json:"isActive,omitempty"`
}

// Variant is an optional product variant selected for a cart line.
type Variant struct {
	ID            ID              `json:"id"`
	Name          string          `json:"name"`
	Value         string          `json:"value"`
	AdjustedPrice decimal.Decimal `json:"adjustedPrice"`
	StockQuantity int             `json:"stockQuantity,omitempty"`
}

// Item is one product/variant/quantity line in the active cart. ID is
// assigned by the backend and is distinct from the product ID.
type Item struct {
	ID        ID              `json:"id"`
	ProductID ID              `json:"productId"`
	VariantID *ID             `json:"variantId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Product   Product         `json:"product"`
	Variant   *Variant        `json:"variant"`
}

// Key identifies a line by (productId, variantId-or-null).
type Key struct {
	ProductID  ID
	VariantID  ID
	HasVariant bool
}

// Key returns the composite identity of the line.
func (i Item) Key() Key {
	k := Key{ProductID: i.productID()}
	if v := i.variantID(); v != nil {
		k.VariantID = *v
		k.HasVariant = true
	}
	return k
}

// productID prefers the flat productId field and falls back to the nested
// product reference, since older backends only send the latter.
func (i Item) productID() ID {
	if i.ProductID != "" {
		return i.ProductID
	}
	return i.Product.ID
}

func (i Item) variantID() *ID {
	if i.VariantID != nil && *i.VariantID != "" {
		return i.VariantID
	}
	if i.Variant != nil && i.Variant.ID != "" {
		id := i.Variant.ID
		return &id
	}
	return nil
}

// EffectivePrice returns the per-unit price of the line: the variant's
// adjusted price when a variant with a non-zero adjusted price is selected,
// otherwise the product's base price.
func (i Item) EffectivePrice() decimal.Decimal {
	if i.Variant != nil && !i.Variant.AdjustedPrice.IsZero() {
		return i.Variant.AdjustedPrice
	}
	return i.Product.Price
}

// LineTotal returns EffectivePrice × Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// WishlistProduct is the product reference carried by a wishlist entry. The
// backend serializes it in snake_case.
type WishlistProduct struct {
	ID             ID               `json:"id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	StockQuantity  int              `json:"stock_quantity"`
	IsActive       Flag             `json:"is_active,omitempty"`
	ImageURL       string           `json:"image_url,omitempty"`
}

// WishlistItem is a saved-for-later product reference.
type WishlistItem struct {
	ID        ID              `json:"id"`
	Product   WishlistProduct `json:"product"`
	CreatedAt *Timestamp      `json:"created_at,omitempty"`
}

// ProductID returns the product the entry refers to.
func (w WishlistItem) ProductID() ID {
	return w.Product.ID
}

// ItemCount returns the sum of quantities across items.
func ItemCount(items []Item) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// Subtotal returns Σ effective unit price × quantity.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// ContainsProduct reports whether any line references productID.
func ContainsProduct(items []Item, productID ID) bool {
	for _, item := range items {
		if item.productID() == productID {
			return true
		}
	}
	return false
}

// FindItem returns the line with the given item ID.
func FindItem(items []Item, itemID ID) (Item, bool) {
	for _, item := range items {
		if item.ID == itemID {
			return item, true
		}
	}
	return Item{}, false
}

// WishlistContains reports whether the wishlist holds productID.
func WishlistContains(items []WishlistItem, productID ID) bool {
	_, ok := FindWishlistItem(items, productID)
	return ok
}

// FindWishlistItem returns the wishlist entry for productID.
func FindWishlistItem(items []WishlistItem, productID ID) (WishlistItem, bool) {
	for _, item := range items {
		if item.ProductID() == productID {
			return item, true
		}
	}
	return WishlistItem{}, false
}

// WithoutProduct returns a copy of the wishlist with productID filtered out.
func WithoutProduct(items []WishlistItem, productID ID) []WishlistItem {
	out := make([]WishlistItem, 0, len(items))
	for _, item := range items {
		if item.ProductID() != productID {
			out = append(out, item)
		}
	}
	return out
}

// ClampQuantity bounds q to [0, MaxQuantity].
func ClampQuantity(q int) int {
	switch {
	case q > MaxQuantity:
		return MaxQuantity
	case q < 0:
		return 0
	default:
		return q
	}
}
