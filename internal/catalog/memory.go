package catalog

import (
	"context"
	"sort"
	"sync"

	"seckill/internal/models"
)

// MemoryCatalog is a fixture catalog for tests and the memory-only
// deployment mode.
type MemoryCatalog struct {
	mu       sync.RWMutex
	listings map[int64]models.SaleListing
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{listings: make(map[int64]models.SaleListing)}
}

func (c *MemoryCatalog) AddListing(listing models.SaleListing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[listing.ID] = listing
}

func (c *MemoryCatalog) GetListing(ctx context.Context, saleID int64) (*models.SaleListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	listing, ok := c.listings[saleID]
	if !ok {
		return nil, ErrNotFound
	}
	return &listing, nil
}

func (c *MemoryCatalog) ListListings(ctx context.Context) ([]models.SaleListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.SaleListing, 0, len(c.listings))
	for _, listing := range c.listings {
		out = append(out, listing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
