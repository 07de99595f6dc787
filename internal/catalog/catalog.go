// Package catalog is the read interface for sale listings. Listings are
// seeded by an administrative path; the engine only ever reads them.
package catalog

import (
	"context"
	"errors"

	"seckill/internal/models"
)

var ErrNotFound = errors.New("sale listing not found")

type Catalog interface {
	GetListing(ctx context.Context, saleID int64) (*models.SaleListing, error)
	ListListings(ctx context.Context) ([]models.SaleListing, error)
}
