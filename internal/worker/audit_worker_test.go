package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seckill/internal/ledger"
	"seckill/internal/models"
)

type capturingSink struct {
	mu       sync.Mutex
	attempts []ledger.Attempt
}

func (s *capturingSink) Record(ctx context.Context, attempt ledger.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func TestHandlePersistsAttempt(t *testing.T) {
	sink := &capturingSink{}
	w := &AuditWorker{sink: sink, log: zerolog.Nop()}

	attempt := ledger.Attempt{
		ID:        uuid.New(),
		SaleID:    1000,
		BuyerID:   7,
		State:     models.StateSuccess,
		CreatedAt: time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC),
	}
	value, err := json.Marshal(attempt)
	require.NoError(t, err)

	w.handle(context.Background(), kafka.Message{Key: []byte("1000"), Value: value})

	require.Len(t, sink.attempts, 1)
	assert.Equal(t, attempt, sink.attempts[0])
}

func TestHandleDropsMalformedMessage(t *testing.T) {
	sink := &capturingSink{}
	w := &AuditWorker{sink: sink, log: zerolog.Nop()}

	w.handle(context.Background(), kafka.Message{Value: []byte("not json")})

	assert.Empty(t, sink.attempts)
}
