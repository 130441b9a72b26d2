package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
	"github.com/xenking/oolio-kart-cart/internal/domain/promo"
)

func TestPersister(t *testing.T) {
	ctx := context.Background()
	p := New()

	_, err := p.Load(ctx)
	require.ErrorIs(t, err, cart.ErrNoSnapshot)

	snap := cart.Snapshot{
		Items: []cart.Item{{
			ID:        "1",
			ProductID: "7",
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("19.99"),
			Product:   cart.Product{ID: "7", Name: "Mug", Price: decimal.RequireFromString("19.99")},
		}},
		Promo: &promo.Code{Code: "SAVE20", Type: promo.DiscountPercentage, Value: decimal.NewFromInt(20)},
	}
	require.NoError(t, p.Save(ctx, snap))

	snap.Items[0].Quantity = 50

	got, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, cart.ID("7"), got.Items[0].ProductID)
	assert.True(t, decimal.RequireFromString("19.99").Equal(got.Items[0].UnitPrice))
	require.NotNil(t, got.Promo)
	assert.Equal(t, "SAVE20", got.Promo.Code)
}
