// Package engine coordinates one purchase attempt end to end. The engine
// is stateless per call; every piece of mutable state lives behind the
// stock store and the ledger.
package engine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seckill/internal/catalog"
	"seckill/internal/ledger"
	"seckill/internal/metrics"
	"seckill/internal/models"
	"seckill/internal/stock"
	"seckill/internal/token"
	"seckill/internal/window"
)

type Engine struct {
	catalog catalog.Catalog
	stock   stock.Store
	ledger  ledger.Ledger
	codec   *token.Codec
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*Engine)

// WithClock replaces the wall clock. Tests use this to pin the window.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(cat catalog.Catalog, st stock.Store, led ledger.Ledger, codec *token.Codec, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog: cat,
		stock:   st,
		ledger:  led,
		codec:   codec,
		now:     time.Now,
		log:     log.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetSeckillList returns every known listing.
func (e *Engine) GetSeckillList(ctx context.Context) ([]models.SaleListing, error) {
	return e.catalog.ListListings(ctx)
}

// GetByID returns one listing, or catalog.ErrNotFound.
func (e *Engine) GetByID(ctx context.Context, saleID int64) (*models.SaleListing, error) {
	return e.catalog.GetListing(ctx, saleID)
}

// ExportSeckillURL is the read path that gates the purchase URL. While the
// sale window is open it carries the verification token; before and after,
// only the current and scheduled times, so the client knows when to retry.
// It never touches the stock store.
func (e *Engine) ExportSeckillURL(ctx context.Context, saleID int64) (*models.Exposer, error) {
	listing, err := e.catalog.GetListing(ctx, saleID)
	if err != nil {
		return nil, err
	}

	metrics.ExposerRequests.Inc()

	now := e.now().UTC()
	exposer := &models.Exposer{
		SaleID: saleID,
		Now:    now,
		Start:  listing.StartTime,
		End:    listing.EndTime,
	}

	if window.Classify(now, listing.StartTime, listing.EndTime) == window.PhaseOpen {
		exposer.Exposed = true
		exposer.Token = e.codec.Issue(saleID, now)
	}

	return exposer, nil
}

// ExecuteSeckill runs the purchase state machine:
// listing fetch, window check, token check, atomic decrement. Every
// outcome is a terminal state on the Execution; the engine never retries
// internally, a caller that wants another shot goes through the whole
// machine again.
func (e *Engine) ExecuteSeckill(ctx context.Context, saleID, buyerID int64, tok string) *models.Execution {
	now := e.now().UTC()
	state, record := e.attempt(ctx, saleID, buyerID, tok, now)

	execution := &models.Execution{
		SaleID:  saleID,
		BuyerID: buyerID,
		State:   state,
		Record:  record,
	}

	e.finish(ctx, execution, now)
	return execution
}

func (e *Engine) attempt(ctx context.Context, saleID, buyerID int64, tok string, now time.Time) (models.ExecutionState, *models.PurchaseRecord) {
	listing, err := e.catalog.GetListing(ctx, saleID)
	if errors.Is(err, catalog.ErrNotFound) {
		return models.StateNotFound, nil
	}
	if err != nil {
		e.log.Error().Err(err).Int64("sale_id", saleID).Msg("listing lookup failed")
		return models.StateSystemError, nil
	}

	// The window is re-checked at the moment of the attempt; a token
	// issued just before closing does not buy its holder extra time.
	if window.Classify(now, listing.StartTime, listing.EndTime) != window.PhaseOpen {
		return models.StateSaleClosed, nil
	}

	if !e.codec.Verify(saleID, tok, now) {
		return models.StateInvalidToken, nil
	}

	result, record, err := e.stock.TryDecrement(ctx, saleID, buyerID, now)
	if err != nil {
		e.log.Error().Err(err).
			Int64("sale_id", saleID).
			Int64("buyer_id", buyerID).
			Msg("stock decrement failed")
		return models.StateSystemError, nil
	}

	switch result {
	case stock.Decremented:
		return models.StateSuccess, record
	case stock.AlreadyPurchased:
		return models.StateRepeatKill, record
	default:
		return models.StateOutOfStock, nil
	}
}

// finish records the terminal state: metrics, a debug line, and the audit
// ledger. Ledger failures are logged and swallowed; the purchase record is
// the source of truth, not the audit row.
func (e *Engine) finish(ctx context.Context, execution *models.Execution, now time.Time) {
	metrics.ExecutionAttempts.WithLabelValues(string(execution.State)).Inc()

	if execution.State == models.StateSuccess {
		if remaining, err := e.stock.Remaining(ctx, execution.SaleID); err == nil {
			metrics.StockRemaining.
				WithLabelValues(strconv.FormatInt(execution.SaleID, 10)).
				Set(float64(remaining))
		}
	}

	e.log.Debug().
		Int64("sale_id", execution.SaleID).
		Int64("buyer_id", execution.BuyerID).
		Str("state", string(execution.State)).
		Msg("seckill attempt finished")

	err := e.ledger.Record(ctx, ledger.Attempt{
		ID:        uuid.New(),
		SaleID:    execution.SaleID,
		BuyerID:   execution.BuyerID,
		State:     execution.State,
		CreatedAt: now,
	})
	if err != nil {
		e.log.Warn().Err(err).
			Int64("sale_id", execution.SaleID).
			Int64("buyer_id", execution.BuyerID).
			Msg("failed to record execution attempt")
	}
}
