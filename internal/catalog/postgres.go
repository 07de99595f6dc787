package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"seckill/internal/models"
)

type PostgresCatalog struct {
	pool *pgxpool.Pool
}

func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

// InitSchema creates every table the module owns: the listings, the stock
// counters, the purchase records and the execution audit trail.
func (c *PostgresCatalog) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sale_listings (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			initial_stock INT NOT NULL CHECK (initial_stock >= 0),
			start_time TIMESTAMP WITH TIME ZONE NOT NULL,
			end_time TIMESTAMP WITH TIME ZONE NOT NULL,
			CHECK (start_time < end_time)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_counters (
			sale_id BIGINT PRIMARY KEY REFERENCES sale_listings(id),
			remaining INT NOT NULL CHECK (remaining >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_records (
			sale_id BIGINT NOT NULL REFERENCES sale_listings(id),
			buyer_id BIGINT NOT NULL,
			purchased_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (sale_id, buyer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS execution_attempts (
			id UUID PRIMARY KEY,
			sale_id BIGINT NOT NULL,
			buyer_id BIGINT NOT NULL,
			state TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_execution_attempts_sale_buyer
			ON execution_attempts(sale_id, buyer_id)`,
	}

	for _, query := range queries {
		if _, err := c.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s, error: %w", query, err)
		}
	}

	return nil
}

// CreateListing inserts a listing and its stock counter together. Used by
// the seeding path only; an existing listing is left untouched.
func (c *PostgresCatalog) CreateListing(ctx context.Context, listing models.SaleListing) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO sale_listings (id, name, initial_stock, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		listing.ID, listing.Name, listing.InitialStock, listing.StartTime, listing.EndTime)
	if err != nil {
		return fmt.Errorf("failed to insert sale listing: %w", err)
	}

	if tag.RowsAffected() > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO stock_counters (sale_id, remaining)
			 VALUES ($1, $2)
			 ON CONFLICT (sale_id) DO NOTHING`,
			listing.ID, listing.InitialStock)
		if err != nil {
			return fmt.Errorf("failed to insert stock counter: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (c *PostgresCatalog) GetListing(ctx context.Context, saleID int64) (*models.SaleListing, error) {
	var listing models.SaleListing
	err := c.pool.QueryRow(ctx,
		`SELECT id, name, initial_stock, start_time, end_time
		 FROM sale_listings WHERE id = $1`,
		saleID).Scan(&listing.ID, &listing.Name, &listing.InitialStock,
		&listing.StartTime, &listing.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query sale listing: %w", err)
	}
	return &listing, nil
}

func (c *PostgresCatalog) ListListings(ctx context.Context) ([]models.SaleListing, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, name, initial_stock, start_time, end_time
		 FROM sale_listings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale listings: %w", err)
	}
	defer rows.Close()

	var listings []models.SaleListing
	for rows.Next() {
		var listing models.SaleListing
		if err := rows.Scan(&listing.ID, &listing.Name, &listing.InitialStock,
			&listing.StartTime, &listing.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan sale listing row: %w", err)
		}
		listings = append(listings, listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating through sale listings: %w", err)
	}

	return listings, nil
}
