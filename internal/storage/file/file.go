// Package file stores cart snapshots as JSON files on local disk, optionally
// gzip-compressed.
package file

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/oolio-kart-cart/internal/domain/cart"
)

var _ cart.Persister = (*Persister)(nil)

// Persister reads and writes one snapshot file.
type Persister struct {
	path     string
	compress bool
}

// New returns a Persister for path. Files ending in ".gz" are compressed.
func New(path string) *Persister {
	return &Persister{
		path:     path,
		compress: strings.HasSuffix(path, ".gz"),
	}
}

// Path returns the snapshot file location.
func (p *Persister) Path() string {
	return p.path
}

// Load reads the snapshot. A missing file yields cart.ErrNoSnapshot.
func (p *Persister) Load(ctx context.Context) (cart.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return cart.Snapshot{}, err
	}

	f, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cart.Snapshot{}, cart.ErrNoSnapshot
		}
		return cart.Snapshot{}, errors.Wrapf(err, "open %s", p.path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if p.compress {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return cart.Snapshot{}, errors.Wrapf(err, "create gzip reader for %s", p.path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var s cart.Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return cart.Snapshot{}, errors.Wrapf(err, "decode %s", p.path)
	}
	return s, nil
}

// Save writes the snapshot to a temporary file in the same directory and
// renames it into place, so readers never see a partial file.
func (p *Persister) Save(ctx context.Context, s cart.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := p.encode(tmp, s); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return errors.Wrapf(err, "rename to %s", p.path)
	}
	return nil
}

// Ping checks that the snapshot directory exists, or can be created, and
// accepts new files.
func (p *Persister) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	f, err := os.CreateTemp(dir, ".ping-*")
	if err != nil {
		return errors.Wrapf(err, "write to %s", dir)
	}
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil {
		return errors.Wrapf(err, "remove %s", f.Name())
	}
	return nil
}

func (p *Persister) encode(w io.Writer, s cart.Snapshot) error {
	if !p.compress {
		if err := json.NewEncoder(w).Encode(s); err != nil {
			return errors.Wrap(err, "encode snapshot")
		}
		return nil
	}

	gz := pgzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(s); err != nil {
		_ = gz.Close()
		return errors.Wrap(err, "encode snapshot")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "flush gzip")
	}
	return nil
}
