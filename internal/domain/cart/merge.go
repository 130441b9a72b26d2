package cart

// Merge reconciles a pre-authentication local cart with the authenticated
// user's server cart. Local lines keep their order; a server line whose key
// matches a local line is folded into it with quantities summed and capped at
// MaxQuantity, adopting the server's prices. Unmatched server lines are
// appended in server order. Neither input is modified.
func Merge(local, server []Item) []Item {
	merged := make([]Item, len(local), len(local)+len(server))
	copy(merged, local)

	index := make(map[Key]int, len(merged))
	for i, item := range merged {
		if _, dup := index[item.Key()]; !dup {
			index[item.Key()] = i
		}
	}

	for _, s := range server {
		i, ok := index[s.Key()]
		if !ok {
			index[s.Key()] = len(merged)
			merged = append(merged, s)
			continue
		}

		line := merged[i]
		line.Quantity = min(line.Quantity+s.Quantity, MaxQuantity)
		line.UnitPrice = s.UnitPrice
		line.Product.Price = s.Product.Price
		if s.Variant != nil {
			v := *s.Variant
			line.Variant = &v
		}
		merged[i] = line
	}

	return merged
}

// ReplayLine is one add-to-cart call needed to rebuild a cart.
type ReplayLine struct {
	ProductID ID  `json:"productId"`
	VariantID *ID `json:"variantId"`
	Quantity  int `json:"quantity"`
}

// ReplayLines converts items into the add-to-cart calls that rebuild them,
// in order. Lines with a non-positive quantity are skipped.
func ReplayLines(items []Item) []ReplayLine {
	out := make([]ReplayLine, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		k := item.Key()
		line := ReplayLine{
			ProductID: k.ProductID,
			Quantity:  ClampQuantity(item.Quantity),
		}
		if k.HasVariant {
			line.VariantID = k.VariantID.Ptr()
		}
		out = append(out, line)
	}
	return out
}
