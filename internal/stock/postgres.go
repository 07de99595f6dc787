package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"seckill/internal/models"
)

// PostgresStore expresses the decrement as a single transaction: a
// conflict-guarded insert of the purchase record followed by a conditional
// "remaining > 0" update. Row locks on the two statements serialize
// concurrent attempts for the same sale, so the guarantee holds across
// processes sharing the database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) TryDecrement(ctx context.Context, saleID, buyerID int64, now time.Time) (Result, *models.PurchaseRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The insert goes first: a concurrent attempt by the same buyer blocks
	// on the unique key until this transaction resolves, then lands in the
	// DO NOTHING branch.
	tag, err := tx.Exec(ctx,
		`INSERT INTO purchase_records (sale_id, buyer_id, purchased_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (sale_id, buyer_id) DO NOTHING`,
		saleID, buyerID, now)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to insert purchase record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var prior models.PurchaseRecord
		err := tx.QueryRow(ctx,
			`SELECT sale_id, buyer_id, purchased_at
			 FROM purchase_records
			 WHERE sale_id = $1 AND buyer_id = $2`,
			saleID, buyerID).Scan(&prior.SaleID, &prior.BuyerID, &prior.PurchasedAt)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to load prior purchase record: %w", err)
		}
		return AlreadyPurchased, &prior, nil
	}

	tag, err = tx.Exec(ctx,
		`UPDATE stock_counters
		 SET remaining = remaining - 1
		 WHERE sale_id = $1 AND remaining > 0`,
		saleID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decrement stock counter: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Rolling back also discards the purchase record inserted above,
		// so a sold-out attempt leaves no partial effects.
		if err := s.counterExists(ctx, tx, saleID); err != nil {
			return 0, nil, err
		}
		return OutOfStock, nil, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("failed to commit purchase: %w", err)
	}

	rec := &models.PurchaseRecord{SaleID: saleID, BuyerID: buyerID, PurchasedAt: now}
	return Decremented, rec, nil
}

func (s *PostgresStore) Remaining(ctx context.Context, saleID int64) (int, error) {
	var remaining int
	err := s.pool.QueryRow(ctx,
		`SELECT remaining FROM stock_counters WHERE sale_id = $1`,
		saleID).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUnknownSale
	} else if err != nil {
		return 0, fmt.Errorf("failed to read stock counter: %w", err)
	}
	return remaining, nil
}

func (s *PostgresStore) counterExists(ctx context.Context, tx pgx.Tx, saleID int64) error {
	var one int
	err := tx.QueryRow(ctx,
		`SELECT 1 FROM stock_counters WHERE sale_id = $1`,
		saleID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUnknownSale
	} else if err != nil {
		return fmt.Errorf("failed to check stock counter: %w", err)
	}
	return nil
}
