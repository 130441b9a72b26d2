// Package app wires configuration into a ready-to-use cart store.
package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
	"github.com/xenking/oolio-kart-cart/internal/storage/file"
	"github.com/xenking/oolio-kart-cart/internal/storage/memory"
	"github.com/xenking/oolio-kart-cart/internal/storage/postgres"
	"github.com/xenking/oolio-kart-cart/internal/storage/redis"
	"github.com/xenking/oolio-kart-cart/internal/store"
	"github.com/xenking/oolio-kart-cart/internal/storefront"
	"github.com/xenking/oolio-kart-cart/pkg/health"
	"github.com/xenking/oolio-kart-cart/pkg/roundtrip"
)

// Telemetry supplies tracer and meter providers. *sdk/app.Telemetry
// satisfies it.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// App is a wired client: storefront API, persister and store.
type App struct {
	Client    *storefront.Client
	Store     *store.Store
	Persister cart.Persister
	Health    *health.Checker

	driver  string
	closers []func()
}

// New builds every dependency from cfg. m may be nil. Call Close when done.
func New(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config) (*App, error) {
	ctx = zctx.Base(ctx, lg)
	a := &App{Health: health.New(), driver: cfg.Storage.Driver}
	if a.driver == "" {
		a.driver = DriverFile
	}

	transport := roundtrip.Wrap(nil,
		roundtrip.RequestID(),
		roundtrip.BearerToken(roundtrip.StaticToken(cfg.Storefront.Token)),
		roundtrip.RateLimit(roundtrip.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		roundtrip.Logging(),
	)
	client, err := storefront.New(storefront.Config{
		BaseURL: cfg.Storefront.BaseURL,
		Timeout: cfg.Storefront.Timeout,
	}, storefront.WithTransport(transport))
	if err != nil {
		return nil, errors.Wrap(err, "create storefront client")
	}
	a.Client = client
	a.Health.Add("storefront", 5*time.Second, health.PingCheck(client))

	persister, err := a.openPersister(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "open snapshot storage")
	}
	a.Persister = persister

	opts := []store.Option{
		store.WithPersister(persister),
		store.WithReplaceCart(cfg.Storefront.ReplaceCart),
	}
	if m != nil {
		opts = append(opts,
			store.WithTracerProvider(m.TracerProvider()),
			store.WithMeterProvider(m.MeterProvider()),
		)
	}
	s, err := store.Open(ctx, client, opts...)
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "open store")
	}
	a.Store = s

	lg.Debug("Initialized",
		zap.String("storefront", client.BaseURL()),
		zap.String("storage", cfg.Storage.Driver),
	)
	return a, nil
}

func (a *App) openPersister(ctx context.Context, cfg StorageConfig) (cart.Persister, error) {
	switch cfg.Driver {
	case DriverMemory:
		return memory.New(), nil
	case DriverFile, "":
		p := file.New(cfg.Path)
		zctx.From(ctx).Debug("Snapshot file", zap.String("path", p.Path()))
		a.Health.Add("snapshot_file", time.Second, health.PingCheck(p))
		return p, nil
	case DriverRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		p := redis.New(client, cfg.Key, cfg.RedisTTL)
		a.Health.Add("redis", 5*time.Second, health.PingCheck(p))
		return p, nil
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, err
		}
		p := postgres.NewPersister(pool, cfg.Key)
		a.Health.Add("postgres", 5*time.Second, health.PingCheck(p))
		return p, nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// StoredSummary describes the snapshot currently held by storage.
type StoredSummary struct {
	Driver    string          `json:"driver"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	PromoCode *string         `json:"promoCode"`
}

// Stored reads back what storage holds, or nil when nothing has been saved.
// The postgres driver answers from its indexed columns without decoding the
// document.
func (a *App) Stored(ctx context.Context) (*StoredSummary, error) {
	out := &StoredSummary{Driver: a.driver}

	if p, ok := a.Persister.(*postgres.Persister); ok {
		sum, err := p.Summary(ctx)
		switch {
		case errors.Is(err, cart.ErrNoSnapshot):
			return nil, nil
		case err != nil:
			return nil, err
		}
		out.ItemCount = sum.ItemCount
		out.Subtotal = sum.Subtotal
		out.PromoCode = sum.PromoCode
		return out, nil
	}

	snap, err := a.Persister.Load(ctx)
	switch {
	case errors.Is(err, cart.ErrNoSnapshot):
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "load snapshot")
	}
	out.ItemCount = cart.ItemCount(snap.Items)
	out.Subtotal = cart.Subtotal(snap.Items).Round(2)
	if snap.Promo != nil {
		code := snap.Promo.Code
		out.PromoCode = &code
	}
	return out, nil
}

// Close releases storage connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
