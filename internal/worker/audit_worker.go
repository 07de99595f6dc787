// Package worker drains the audit topic into the durable ledger.
package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"seckill/internal/ledger"
)

// AuditWorker consumes execution attempts published by the Kafka ledger
// and persists them. Audit is best-effort end to end: a malformed or
// unstorable message is logged and skipped, never reprocessed forever.
type AuditWorker struct {
	reader *kafka.Reader
	sink   ledger.Ledger
	log    zerolog.Logger
}

func NewAuditWorker(brokers []string, topic, groupID string, sink ledger.Ledger, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
		sink: sink,
		log:  log.With().Str("component", "audit_worker").Logger(),
	}
}

// Run blocks until ctx is cancelled or the reader fails permanently.
func (w *AuditWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("audit worker started")

	for {
		msg, err := w.reader.FetchMessage(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		if err != nil {
			return err
		}

		w.handle(ctx, msg)

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.log.Error().Err(err).Msg("failed to commit audit message")
		}
	}
}

func (w *AuditWorker) handle(ctx context.Context, msg kafka.Message) {
	var attempt ledger.Attempt
	if err := json.Unmarshal(msg.Value, &attempt); err != nil {
		w.log.Error().Err(err).
			Str("key", string(msg.Key)).
			Msg("dropping malformed audit message")
		return
	}

	if err := w.sink.Record(ctx, attempt); err != nil {
		w.log.Error().Err(err).
			Int64("sale_id", attempt.SaleID).
			Int64("buyer_id", attempt.BuyerID).
			Msg("failed to persist audit attempt")
	}
}

func (w *AuditWorker) Close() error {
	return w.reader.Close()
}
