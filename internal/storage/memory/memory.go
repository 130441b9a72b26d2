// Package memory keeps cart snapshots in process memory.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
)

var _ cart.Persister = (*Persister)(nil)

// Persister holds the last saved snapshot. Snapshots are stored encoded so
// callers cannot mutate saved state through shared slices.
type Persister struct {
	mu   sync.RWMutex
	data []byte
}

// New returns an empty Persister.
func New() *Persister {
	return &Persister{}
}

// Load returns the last saved snapshot or cart.ErrNoSnapshot.
func (p *Persister) Load(_ context.Context) (cart.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.data == nil {
		return cart.Snapshot{}, cart.ErrNoSnapshot
	}
	var s cart.Snapshot
	if err := json.Unmarshal(p.data, &s); err != nil {
		return cart.Snapshot{}, errors.Wrap(err, "decode snapshot")
	}
	return s, nil
}

// Save replaces the stored snapshot.
func (p *Persister) Save(_ context.Context, s cart.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	p.mu.Lock()
	p.data = data
	p.mu.Unlock()
	return nil
}
