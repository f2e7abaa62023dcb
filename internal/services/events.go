package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/honeynil/korea-payment/internal/infrastructure/kafka"
	"github.com/honeynil/korea-payment/internal/infrastructure/observability"
	"github.com/honeynil/korea-payment/internal/models"
)

// EventPublisher delivers lifecycle events after a transition is committed.
// Publishing never fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event models.PaymentEvent)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.PaymentEvent) {}

const (
	defaultPublishRetries = 3
	defaultPublishBackoff = time.Second
)

// KafkaEventPublisher sends events in the background, retrying with a linear
// back-off.
type KafkaEventPublisher struct {
	producer kafka.KafkaProducer
	topic    string
	retries  int
	backoff  time.Duration
	wg       sync.WaitGroup
}

func NewKafkaEventPublisher(producer kafka.KafkaProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
		topic:    topic,
		retries:  defaultPublishRetries,
		backoff:  defaultPublishBackoff,
	}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event models.PaymentEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal payment event",
			"transaction_id", event.TransactionID,
			"event_type", event.Type,
			"error", err)
		observability.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return
	}

	// The request context ends with the response; keep its values only.
	sendCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for i := 0; i < p.retries; i++ {
			if err := p.producer.Send(sendCtx, p.topic, event.TransactionID, payload); err == nil {
				observability.EventsPublished.WithLabelValues(string(event.Type), "success").Inc()
				slog.Info("payment event sent",
					"transaction_id", event.TransactionID,
					"event_type", event.Type)
				return
			}
			time.Sleep(p.backoff * time.Duration(i+1))
		}
		observability.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		slog.Error("failed to send payment event after retries",
			"transaction_id", event.TransactionID,
			"event_type", event.Type,
			"retries", p.retries)
	}()
}

// Close waits for in-flight sends and closes the producer.
func (p *KafkaEventPublisher) Close() error {
	p.wg.Wait()
	return p.producer.Close()
}
