package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// KafkaLedger publishes attempts to a topic instead of writing them
// inline; the audit worker drains the topic into Postgres. Messages are
// keyed by sale id so attempts for one sale stay ordered on a partition.
type KafkaLedger struct {
	writer *kafka.Writer
}

func NewKafkaLedger(brokers []string, topic string) *KafkaLedger {
	return &KafkaLedger{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (l *KafkaLedger) Record(ctx context.Context, attempt Attempt) error {
	value, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode execution attempt: %w", err)
	}

	err = l.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(attempt.SaleID, 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish execution attempt: %w", err)
	}
	return nil
}

func (l *KafkaLedger) Close() error {
	return l.writer.Close()
}
