package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seckill/internal/catalog"
	"seckill/internal/ledger"
	"seckill/internal/models"
	"seckill/internal/stock"
	"seckill/internal/token"
)

const testSaleID = 1000

var (
	saleStart = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	saleEnd   = saleStart.Add(time.Hour)
	midSale   = saleStart.Add(30 * time.Minute)
)

// capturingLedger keeps every recorded attempt so tests can check the
// audit trail.
type capturingLedger struct {
	mu       sync.Mutex
	attempts []ledger.Attempt
}

func (l *capturingLedger) Record(ctx context.Context, attempt ledger.Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return nil
}

func (l *capturingLedger) states() []models.ExecutionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ExecutionState, len(l.attempts))
	for i, a := range l.attempts {
		out[i] = a.State
	}
	return out
}

type fixture struct {
	engine *Engine
	codec  *token.Codec
	store  *stock.MemoryStore
	ledger *capturingLedger
}

func newFixture(t *testing.T, initialStock int, now time.Time) *fixture {
	t.Helper()

	cat := catalog.NewMemoryCatalog()
	cat.AddListing(models.SaleListing{
		ID:           testSaleID,
		Name:         "1000 off iphone",
		InitialStock: initialStock,
		StartTime:    saleStart,
		EndTime:      saleEnd,
	})

	store := stock.NewMemoryStore()
	store.SeedSale(testSaleID, initialStock)

	led := &capturingLedger{}

	codec, err := token.NewCodec("engine-test-secret", 5*time.Minute)
	require.NoError(t, err)

	eng := New(cat, store, led, codec, zerolog.Nop(),
		WithClock(func() time.Time { return now }))

	return &fixture{engine: eng, codec: codec, store: store, ledger: led}
}

func (f *fixture) validToken(now time.Time) string {
	return f.codec.Issue(testSaleID, now)
}

func TestExportSeckillURLOpenSale(t *testing.T) {
	f := newFixture(t, 10, midSale)

	exposer, err := f.engine.ExportSeckillURL(context.Background(), testSaleID)
	require.NoError(t, err)

	assert.True(t, exposer.Exposed)
	assert.NotEmpty(t, exposer.Token)
	assert.Equal(t, int64(testSaleID), exposer.SaleID)
	assert.True(t, f.codec.Verify(testSaleID, exposer.Token, midSale))
}

func TestExportSeckillURLClosedSale(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
	}{
		{"before start", saleStart.Add(-time.Minute)},
		{"after end", saleEnd.Add(time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 10, tt.now)

			exposer, err := f.engine.ExportSeckillURL(context.Background(), testSaleID)
			require.NoError(t, err)

			assert.False(t, exposer.Exposed)
			assert.Empty(t, exposer.Token)
			assert.Equal(t, tt.now, exposer.Now)
			assert.Equal(t, saleStart, exposer.Start)
			assert.Equal(t, saleEnd, exposer.End)
		})
	}
}

func TestExportSeckillURLIdempotentWithinEpoch(t *testing.T) {
	f := newFixture(t, 10, midSale)

	first, err := f.engine.ExportSeckillURL(context.Background(), testSaleID)
	require.NoError(t, err)
	second, err := f.engine.ExportSeckillURL(context.Background(), testSaleID)
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
}

func TestExportSeckillURLUnknownSale(t *testing.T) {
	f := newFixture(t, 10, midSale)

	_, err := f.engine.ExportSeckillURL(context.Background(), 9999)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestExecuteSeckillSuccess(t *testing.T) {
	f := newFixture(t, 10, midSale)

	execution := f.engine.ExecuteSeckill(context.Background(), testSaleID, 13683893865, f.validToken(midSale))

	assert.Equal(t, models.StateSuccess, execution.State)
	require.NotNil(t, execution.Record)
	assert.Equal(t, int64(13683893865), execution.Record.BuyerID)
	assert.Equal(t, midSale, execution.Record.PurchasedAt)

	remaining, err := f.store.Remaining(context.Background(), testSaleID)
	require.NoError(t, err)
	assert.Equal(t, 9, remaining)

	assert.Equal(t, []models.ExecutionState{models.StateSuccess}, f.ledger.states())
}

func TestExecuteSeckillUnknownSale(t *testing.T) {
	f := newFixture(t, 10, midSale)

	execution := f.engine.ExecuteSeckill(context.Background(), 9999, 1, "whatever")

	assert.Equal(t, models.StateNotFound, execution.State)
	assert.Nil(t, execution.Record)
}

// A valid token never overrides the window: before start and at/after end
// the attempt is closed out regardless of token and stock.
func TestExecuteSeckillWindowEnforcement(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
	}{
		{"before start", saleStart.Add(-time.Second)},
		{"exactly at end", saleEnd},
		{"after end", saleEnd.Add(time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 10, tt.now)

			// Token minted as if the sale were open at tt.now.
			tok := f.validToken(tt.now)
			execution := f.engine.ExecuteSeckill(context.Background(), testSaleID, 1, tok)

			assert.Equal(t, models.StateSaleClosed, execution.State)
			assert.Nil(t, execution.Record)

			remaining, err := f.store.Remaining(context.Background(), testSaleID)
			require.NoError(t, err)
			assert.Equal(t, 10, remaining, "closed attempts must not touch stock")
		})
	}
}

func TestExecuteSeckillInvalidToken(t *testing.T) {
	f := newFixture(t, 10, midSale)

	tests := []struct {
		name string
		tok  string
	}{
		{"empty", ""},
		{"garbage", "deadbeefdeadbeefdeadbeefdeadbeef"},
		{"other sale's token", f.codec.Issue(2000, midSale)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execution := f.engine.ExecuteSeckill(context.Background(), testSaleID, 1, tt.tok)
			assert.Equal(t, models.StateInvalidToken, execution.State)
		})
	}

	remaining, err := f.store.Remaining(context.Background(), testSaleID)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}

func TestExecuteSeckillRepeatKill(t *testing.T) {
	f := newFixture(t, 10, midSale)
	ctx := context.Background()

	first := f.engine.ExecuteSeckill(ctx, testSaleID, 7, f.validToken(midSale))
	require.Equal(t, models.StateSuccess, first.State)

	second := f.engine.ExecuteSeckill(ctx, testSaleID, 7, f.validToken(midSale))
	assert.Equal(t, models.StateRepeatKill, second.State)
	require.NotNil(t, second.Record)
	assert.Equal(t, first.Record.PurchasedAt, second.Record.PurchasedAt,
		"repeat kill must carry the original purchase time")

	remaining, err := f.store.Remaining(ctx, testSaleID)
	require.NoError(t, err)
	assert.Equal(t, 9, remaining)

	assert.Equal(t,
		[]models.ExecutionState{models.StateSuccess, models.StateRepeatKill},
		f.ledger.states())
}

func TestExecuteSeckillOutOfStock(t *testing.T) {
	f := newFixture(t, 1, midSale)
	ctx := context.Background()

	first := f.engine.ExecuteSeckill(ctx, testSaleID, 1, f.validToken(midSale))
	require.Equal(t, models.StateSuccess, first.State)

	second := f.engine.ExecuteSeckill(ctx, testSaleID, 2, f.validToken(midSale))
	assert.Equal(t, models.StateOutOfStock, second.State)
	assert.Nil(t, second.Record)
}

// Two buyers race for the last item: exactly one success, one sold out,
// counter at zero.
func TestExecuteSeckillLastItemRace(t *testing.T) {
	f := newFixture(t, 1, midSale)
	ctx := context.Background()
	tok := f.validToken(midSale)

	var wg sync.WaitGroup
	executions := make([]*models.Execution, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			executions[n] = f.engine.ExecuteSeckill(ctx, testSaleID, int64(n+1), tok)
		}(i)
	}
	wg.Wait()

	states := map[models.ExecutionState]int{}
	for _, e := range executions {
		states[e.State]++
	}

	assert.Equal(t, 1, states[models.StateSuccess])
	assert.Equal(t, 1, states[models.StateOutOfStock])

	remaining, err := f.store.Remaining(ctx, testSaleID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

// Many distinct buyers against a small stock: successes come out to
// exactly min(stock, buyers).
func TestExecuteSeckillNoOversellUnderLoad(t *testing.T) {
	const (
		initialStock = 5
		buyers       = 60
	)

	f := newFixture(t, initialStock, midSale)
	ctx := context.Background()
	tok := f.validToken(midSale)

	var wg sync.WaitGroup
	executions := make([]*models.Execution, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			executions[n] = f.engine.ExecuteSeckill(ctx, testSaleID, int64(n+1), tok)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, e := range executions {
		if e.State == models.StateSuccess {
			successes++
		}
	}
	assert.Equal(t, initialStock, successes)

	remaining, err := f.store.Remaining(ctx, testSaleID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	assert.Len(t, f.ledger.states(), buyers, "every attempt lands in the ledger")
}

func TestGetByIDAndList(t *testing.T) {
	f := newFixture(t, 10, midSale)
	ctx := context.Background()

	listing, err := f.engine.GetByID(ctx, testSaleID)
	require.NoError(t, err)
	assert.Equal(t, "1000 off iphone", listing.Name)

	_, err = f.engine.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	listings, err := f.engine.GetSeckillList(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, int64(testSaleID), listings[0].ID)
}

// A ledger outage never fails the purchase itself.
func TestLedgerFailureDoesNotFailPurchase(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	cat.AddListing(models.SaleListing{
		ID: testSaleID, Name: "x", InitialStock: 1,
		StartTime: saleStart, EndTime: saleEnd,
	})

	store := stock.NewMemoryStore()
	store.SeedSale(testSaleID, 1)

	codec, err := token.NewCodec("engine-test-secret", 5*time.Minute)
	require.NoError(t, err)

	eng := New(cat, store, failingLedger{}, codec, zerolog.Nop(),
		WithClock(func() time.Time { return midSale }))

	execution := eng.ExecuteSeckill(context.Background(), testSaleID, 1, codec.Issue(testSaleID, midSale))
	assert.Equal(t, models.StateSuccess, execution.State)
}

type failingLedger struct{}

func (failingLedger) Record(ctx context.Context, attempt ledger.Attempt) error {
	return context.DeadlineExceeded
}
