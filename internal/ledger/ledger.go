// Package ledger records the terminal state of every purchase attempt for
// auditing. Writes are best-effort: the purchase records in the stock
// store are the source of truth for duplicate detection, so a lost audit
// row is logged, never surfaced to the buyer.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"seckill/internal/models"
)

// Attempt is one audit row, keyed by its own id so replays from the
// message bus stay idempotent.
type Attempt struct {
	ID        uuid.UUID             `json:"id"`
	SaleID    int64                 `json:"sale_id"`
	BuyerID   int64                 `json:"buyer_id"`
	State     models.ExecutionState `json:"state"`
	CreatedAt time.Time             `json:"created_at"`
}

type Ledger interface {
	Record(ctx context.Context, attempt Attempt) error
}

// Nop discards every attempt. Used in tests and when auditing is disabled.
type Nop struct{}

func (Nop) Record(ctx context.Context, attempt Attempt) error { return nil }
