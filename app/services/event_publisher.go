package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// EventPublisher streams domain events to downstream consumers. The message
// key keeps events for one account on one partition, so consumers observe
// ledger order per account.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// TransactionPostedEvent is emitted after a ledger entry becomes visible
type TransactionPostedEvent struct {
	EntryID    string          `json:"entry_id"`
	UserID     string          `json:"user_id"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
	PostedAt   time.Time       `json:"posted_at"`
}

// UserProvisionedEvent is emitted after a user and their account are created
type UserProvisionedEvent struct {
	UserID        string    `json:"user_id"`
	Role          string    `json:"role"`
	Branch        string    `json:"branch,omitempty"`
	ProvisionedAt time.Time `json:"provisioned_at"`
}

// KafkaEventPublisher implements EventPublisher on top of a Kafka topic
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

func NewKafkaEventPublisher(brokers []string, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// NoopEventPublisher discards events. Used when no brokers are configured.
type NoopEventPublisher struct{}

func NewNoopEventPublisher() EventPublisher {
	return &NoopEventPublisher{}
}

func (NoopEventPublisher) Publish(ctx context.Context, key string, event any) error {
	return nil
}

func (NoopEventPublisher) Close() error {
	return nil
}

var _ EventPublisher = (*KafkaEventPublisher)(nil)
