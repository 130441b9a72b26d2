// Package store keeps a local cache of a shopper's cart, wishlist and active
// promo code consistent with the storefront backend.
//
// The backend is the source of truth. Every mutating call adopts the item
// list the backend returns, and the cache is persisted after each
// replacement so it survives restarts.
package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
	"github.com/xenking/oolio-kart-cart/internal/domain/promo"
	"github.com/xenking/oolio-kart-cart/internal/storefront"
)

const instrumentationName = "github.com/xenking/oolio-kart-cart/internal/store"

// Backend is the subset of the storefront API the store talks to.
type Backend interface {
	GetCart(ctx context.Context) ([]cart.Item, error)
	AddItem(ctx context.Context, productID cart.ID, quantity int, variantID *cart.ID) ([]cart.Item, error)
	UpdateItem(ctx context.Context, itemID cart.ID, quantity int) ([]cart.Item, error)
	RemoveItem(ctx context.Context, itemID cart.ID) ([]cart.Item, error)
	ReplaceCart(ctx context.Context, lines []cart.ReplayLine) ([]cart.Item, error)

	GetWishlist(ctx context.Context) ([]cart.WishlistItem, error)
	AddToWishlist(ctx context.Context, productID cart.ID) error
	RemoveFromWishlist(ctx context.Context, productID cart.ID) error
	MoveToCart(ctx context.Context, productID cart.ID, quantity int) error

	ApplyPromoCode(ctx context.Context, code string) (*promo.Code, error)
	RemovePromoCode(ctx context.Context) error
	GetTotals(ctx context.Context) (*cart.Totals, error)
}

var _ Backend = (*storefront.Client)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPersister sets where snapshots are loaded from and saved to.
func WithPersister(p cart.Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithReplaceCart makes Sync persist the merged cart with a single
// replace call instead of clearing and replaying it line by line.
func WithReplaceCart(enabled bool) Option {
	return func(s *Store) { s.replaceCart = enabled }
}

// WithTracerProvider sets the tracer provider for operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Store) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider for operation metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Store) { s.meterProvider = mp }
}

// Store is the reconciliation state container. It is safe for concurrent
// use, but operations are not serialized: when two overlap, the last
// response to arrive wins.
type Store struct {
	backend     Backend
	persister   cart.Persister
	replaceCart bool

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	ops            metric.Int64Counter
	duration       metric.Float64Histogram

	// saveMu orders snapshot writes; it is taken before mu, never after.
	saveMu sync.Mutex

	mu       sync.Mutex
	items    []cart.Item
	wishlist []cart.WishlistItem
	promo    *promo.Code
	err      error

	inflight atomic.Int64
}

// Open creates a Store and restores the last saved snapshot, if any. A
// snapshot that cannot be read is logged and ignored.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	s := &Store{backend: backend}
	for _, o := range opts {
		o(s)
	}
	if s.tracerProvider == nil {
		s.tracerProvider = tracenoop.NewTracerProvider()
	}
	if s.meterProvider == nil {
		s.meterProvider = metricnoop.NewMeterProvider()
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.ops, err = meter.Int64Counter("cart.store.operations",
		metric.WithDescription("Number of store operations by name and outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "create operations counter")
	}
	if s.duration, err = meter.Float64Histogram("cart.store.operation.duration",
		metric.WithDescription("Duration of store operations"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, errors.Wrap(err, "create duration histogram")
	}

	if s.persister != nil {
		snap, err := s.persister.Load(ctx)
		switch {
		case errors.Is(err, cart.ErrNoSnapshot):
		case err != nil:
			zctx.From(ctx).Warn("Ignoring unreadable cart snapshot", zap.Error(err))
		default:
			s.items = snap.Items
			s.wishlist = snap.Wishlist
			s.promo = snap.Promo
		}
	}
	return s, nil
}

// run wraps one operation: it marks the store loading, clears the error,
// records the failure if fn fails, and emits a span, metrics and a log line.
func (s *Store) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	s.setErr(nil)
	err := s.observe(ctx, op, fn)
	if err != nil {
		s.setErr(err)
	}
	return err
}

func (s *Store) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+op)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("error", err != nil),
	)
	s.ops.Add(ctx, 1, attrs)
	s.duration.Record(ctx, elapsed.Seconds(), attrs)

	lg := zctx.From(ctx).With(zap.String("op", op), zap.Duration("duration", elapsed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		lg.Warn("Cart operation failed", zap.Error(err))
		return err
	}
	lg.Debug("Cart operation done")
	return nil
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// setItems replaces the cart cache. An emptied cart drops the active promo.
func (s *Store) setItems(ctx context.Context, items []cart.Item) {
	s.mu.Lock()
	s.items = items
	if len(items) == 0 {
		s.promo = nil
	}
	s.mu.Unlock()
	s.persist(ctx)
}

func (s *Store) setWishlist(ctx context.Context, items []cart.WishlistItem) {
	s.mu.Lock()
	s.wishlist = items
	s.mu.Unlock()
	s.persist(ctx)
}

func (s *Store) setPromo(ctx context.Context, code *promo.Code) {
	s.mu.Lock()
	s.promo = code
	s.mu.Unlock()
	s.persist(ctx)
}

// persist saves the current cache. Saves are serialized and each one
// snapshots the cache only once it holds saveMu, so the last save to finish
// always carries the newest state.
func (s *Store) persist(ctx context.Context) {
	if s.persister == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.persister.Save(ctx, snap); err != nil {
		zctx.From(ctx).Warn("Save cart snapshot", zap.Error(err))
	}
}

func (s *Store) snapshotLocked() cart.Snapshot {
	snap := cart.Snapshot{
		Items:    append([]cart.Item(nil), s.items...),
		Wishlist: append([]cart.WishlistItem(nil), s.wishlist...),
	}
	if s.promo != nil {
		p := *s.promo
		snap.Promo = &p
	}
	return snap
}
