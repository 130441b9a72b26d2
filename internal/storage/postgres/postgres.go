// Package postgres stores cart snapshots in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-cart/db"
	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

var _ cart.Persister = (*Persister)(nil)

// Persister keeps one snapshot row per key. Besides the JSON document it
// stores the item count, subtotal and promo code so carts can be queried
// without decoding.
type Persister struct {
	pool *pgxpool.Pool
	key  string
}

// NewPersister returns a Persister for key on pool.
func NewPersister(pool *pgxpool.Pool, key string) *Persister {
	if key == "" {
		key = cart.DefaultSnapshotKey
	}
	return &Persister{pool: pool, key: key}
}

const loadSnapshot = `SELECT snapshot FROM cart_snapshots WHERE key = $1`

// Load returns the stored snapshot or cart.ErrNoSnapshot.
func (p *Persister) Load(ctx context.Context) (cart.Snapshot, error) {
	var data []byte
	if err := p.pool.QueryRow(ctx, loadSnapshot, p.key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Snapshot{}, cart.ErrNoSnapshot
		}
		return cart.Snapshot{}, errors.Wrapf(err, "load snapshot %q", p.key)
	}

	var s cart.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return cart.Snapshot{}, errors.Wrapf(err, "decode snapshot %q", p.key)
	}
	return s, nil
}

const saveSnapshot = `
INSERT INTO cart_snapshots (key, snapshot, item_count, subtotal, promo_code, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (key) DO UPDATE SET
    snapshot   = EXCLUDED.snapshot,
    item_count = EXCLUDED.item_count,
    subtotal   = EXCLUDED.subtotal,
    promo_code = EXCLUDED.promo_code,
    updated_at = EXCLUDED.updated_at`

// Save upserts the snapshot row.
func (p *Persister) Save(ctx context.Context, s cart.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	var code *string
	if s.Promo != nil {
		code = &s.Promo.Code
	}
	subtotal := cart.Subtotal(s.Items).Round(2)

	if _, err := p.pool.Exec(ctx, saveSnapshot, p.key, data, cart.ItemCount(s.Items), subtotal, code); err != nil {
		return errors.Wrapf(err, "save snapshot %q", p.key)
	}
	return nil
}

// Summary is the queryable part of a stored snapshot.
type Summary struct {
	Key       string
	ItemCount int
	Subtotal  decimal.Decimal
	PromoCode *string
}

const loadSummary = `SELECT key, item_count, subtotal, promo_code FROM cart_snapshots WHERE key = $1`

// Summary returns the stored counters without decoding the document.
func (p *Persister) Summary(ctx context.Context) (*Summary, error) {
	var s Summary
	err := p.pool.QueryRow(ctx, loadSummary, p.key).Scan(&s.Key, &s.ItemCount, &s.Subtotal, &s.PromoCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNoSnapshot
		}
		return nil, errors.Wrapf(err, "load summary %q", p.key)
	}
	return &s, nil
}

// Ping checks the connection.
func (p *Persister) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
