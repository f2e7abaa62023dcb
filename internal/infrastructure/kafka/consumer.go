package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/korea-payment/internal/models"
	"github.com/segmentio/kafka-go"
)

const readRetryDelay = time.Second

// EventHandler receives every decoded payment event.
type EventHandler func(ctx context.Context, event models.PaymentEvent) error

type Consumer struct {
	reader  *kafka.Reader
	handler EventHandler
}

func NewConsumer(brokers []string, topic, groupID string, handler EventHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		handler: handler,
	}
}

// Consume blocks until ctx is cancelled. Undecodable messages are logged and skipped.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Kafka consumer stopped", "topic", c.reader.Config().Topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			if !sleepCtx(ctx, readRetryDelay) {
				slog.Info("Kafka consumer stopped", "topic", c.reader.Config().Topic)
				return
			}
			continue
		}

		event, err := DecodeEvent(msg)
		if err != nil {
			slog.Error("failed to decode payment event", "topic", msg.Topic, "key", string(msg.Key), "offset", msg.Offset, "error", err)
			continue
		}

		if err := c.handler(ctx, event); err != nil {
			slog.Error("failed to handle payment event", "transaction_id", event.TransactionID, "event_type", event.Type, "error", err)
		}
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func DecodeEvent(msg kafka.Message) (models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal payment event: %w", err)
	}

	switch event.Type {
	case models.EventPaymentInitialized, models.EventPaymentCompleted, models.EventPaymentCancelled:
	default:
		return event, fmt.Errorf("unknown event type %q", event.Type)
	}
	if !event.Status.IsValid() {
		return event, fmt.Errorf("invalid status %q", event.Status)
	}
	if event.TransactionID == "" {
		return event, fmt.Errorf("missing transaction_id")
	}
	if key := string(msg.Key); key != "" && key != event.TransactionID {
		return event, fmt.Errorf("message key %q does not match transaction_id %q", key, event.TransactionID)
	}
	return event, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
