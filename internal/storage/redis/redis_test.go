//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
	"github.com/xenking/oolio-kart-cart/internal/domain/promo"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7.4.2-alpine3.21")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return url
}

func TestPersister(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, setupRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	p := New(client, "", time.Hour)
	require.NoError(t, p.Ping(ctx))

	_, err = p.Load(ctx)
	require.ErrorIs(t, err, cart.ErrNoSnapshot)

	snap := cart.Snapshot{
		Items: []cart.Item{{
			ID:        "1",
			ProductID: "4",
			Quantity:  3,
			UnitPrice: decimal.RequireFromString("12.00"),
			Product:   cart.Product{ID: "4", Price: decimal.RequireFromString("12.00")},
		}},
		Promo: &promo.Code{Code: "WELCOME10", Type: promo.DiscountPercentage, Value: decimal.NewFromInt(10)},
	}
	require.NoError(t, p.Save(ctx, snap))

	got, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)
	require.NotNil(t, got.Promo)
	assert.Equal(t, promo.DiscountPercentage, got.Promo.Type)

	ttl, err := client.TTL(ctx, cart.DefaultSnapshotKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
