package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

func (l *PostgresLedger) Record(ctx context.Context, attempt Attempt) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO execution_attempts (id, sale_id, buyer_id, state, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		attempt.ID, attempt.SaleID, attempt.BuyerID, string(attempt.State), attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store execution attempt: %w", err)
	}
	return nil
}
