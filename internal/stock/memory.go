package stock

import (
	"context"
	"sync"
	"time"

	"seckill/internal/models"
)

// MemoryStore serializes all attempts for a sale behind a per-sale mutex.
// The guarantee holds only within one process, which matches the single
// writer authority boundary: all traffic for a sale is routed to one
// instance.
type MemoryStore struct {
	mu    sync.RWMutex
	sales map[int64]*saleState
}

type saleState struct {
	mu        sync.Mutex
	remaining int
	buyers    map[int64]models.PurchaseRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sales: make(map[int64]*saleState)}
}

// SeedSale installs the counter for a sale. Re-seeding an existing sale is
// a no-op so a restart does not resurrect sold stock mid-run.
func (s *MemoryStore) SeedSale(saleID int64, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sales[saleID]; ok {
		return
	}
	if remaining < 0 {
		remaining = 0
	}
	s.sales[saleID] = &saleState{
		remaining: remaining,
		buyers:    make(map[int64]models.PurchaseRecord),
	}
}

func (s *MemoryStore) TryDecrement(ctx context.Context, saleID, buyerID int64, now time.Time) (Result, *models.PurchaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	st, err := s.sale(saleID)
	if err != nil {
		return 0, nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if prior, ok := st.buyers[buyerID]; ok {
		return AlreadyPurchased, &prior, nil
	}
	if st.remaining <= 0 {
		return OutOfStock, nil, nil
	}

	st.remaining--
	rec := models.PurchaseRecord{SaleID: saleID, BuyerID: buyerID, PurchasedAt: now}
	st.buyers[buyerID] = rec
	return Decremented, &rec, nil
}

func (s *MemoryStore) Remaining(ctx context.Context, saleID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	st, err := s.sale(saleID)
	if err != nil {
		return 0, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.remaining, nil
}

func (s *MemoryStore) sale(saleID int64) (*saleState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sales[saleID]
	if !ok {
		return nil, ErrUnknownSale
	}
	return st, nil
}
