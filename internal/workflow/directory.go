package workflow

import (
	"context"
	"strings"
	"sync"

	"github.com/clearway-labs/psp-console/internal/domain"
)

// Directory caches the merchant list for a session. Merchants are reference
// data fetched once; Reload exists for the explicit retry action after a
// failed load.
type Directory struct {
	fetcher MerchantFetcher

	mu        sync.RWMutex
	merchants []domain.Merchant
	loaded    bool
}

func NewDirectory(fetcher MerchantFetcher) *Directory {
	return &Directory{fetcher: fetcher}
}

// Load fetches the directory if it has not been fetched yet.
func (d *Directory) Load(ctx context.Context) error {
	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	if loaded {
		return nil
	}
	return d.Reload(ctx)
}

// Reload fetches the directory unconditionally.
func (d *Directory) Reload(ctx context.Context) error {
	merchants, err := d.fetcher.Merchants(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.merchants = merchants
	d.loaded = true
	d.mu.Unlock()
	return nil
}

// Merchants returns the cached list.
func (d *Directory) Merchants() []domain.Merchant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Merchant, len(d.merchants))
	copy(out, d.merchants)
	return out
}

// Resolve returns the merchant for an id, or nil when unknown or not loaded.
func (d *Directory) Resolve(id string) *domain.Merchant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.merchants {
		if m.ID == id {
			cp := m
			return &cp
		}
	}
	return nil
}

// Search filters merchants by a case-insensitive name or id substring, for
// the searchable selector.
func (d *Directory) Search(query string) []domain.Merchant {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return d.Merchants()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Merchant, 0, len(d.merchants))
	for _, m := range d.merchants {
		if strings.Contains(strings.ToLower(m.Name), q) || strings.Contains(strings.ToLower(m.ID), q) {
			out = append(out, m)
		}
	}
	return out
}
