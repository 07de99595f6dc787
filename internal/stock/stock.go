// Package stock owns the authoritative remaining-quantity counter and the
// purchased-buyers record for each sale. All mutation goes through
// TryDecrement, which is atomic with respect to every concurrent caller
// for the same sale: no two calls may both succeed past remaining == 0,
// and no buyer may succeed twice.
package stock

import (
	"context"
	"errors"
	"time"

	"seckill/internal/models"
)

// Result of one TryDecrement call.
type Result int

const (
	Decremented Result = iota
	AlreadyPurchased
	OutOfStock
)

func (r Result) String() string {
	switch r {
	case Decremented:
		return "decremented"
	case AlreadyPurchased:
		return "already_purchased"
	case OutOfStock:
		return "out_of_stock"
	default:
		return "unknown"
	}
}

// ErrUnknownSale is returned when a sale's counter was never seeded.
var ErrUnknownSale = errors.New("no stock counter for sale")

// Store is the single authority for a sale's stock. TryDecrement performs
// the duplicate check, the remaining>0 check, the decrement and the
// purchase-record insert as one indivisible unit. On AlreadyPurchased the
// prior record is returned; on Decremented the new one.
//
// Remaining is a point-in-time read for display and metrics only; it must
// never gate a purchase decision.
type Store interface {
	TryDecrement(ctx context.Context, saleID, buyerID int64, now time.Time) (Result, *models.PurchaseRecord, error)
	Remaining(ctx context.Context, saleID int64) (int, error)
}
