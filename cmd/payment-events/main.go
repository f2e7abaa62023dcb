package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/honeynil/korea-payment/internal/config"
	"github.com/honeynil/korea-payment/internal/infrastructure/kafka"
	"github.com/honeynil/korea-payment/internal/infrastructure/observability"
	"github.com/honeynil/korea-payment/internal/models"
)

// payment-events tails the payment topic and logs every lifecycle event.
func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logEvent)
	defer consumer.Close()

	observability.WithContext(ctx).Info("tailing payment events",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
		"group_id", cfg.KafkaGroupID)
	consumer.Consume(ctx)
}

func logEvent(ctx context.Context, event models.PaymentEvent) error {
	logger := observability.WithContext(ctx,
		"event_type", event.Type,
		"transaction_id", event.TransactionID,
		"order_id", event.OrderID,
		"gateway", event.Gateway,
		"amount", event.Amount.String(),
		"currency", event.Currency,
		"status", event.Status,
		"occurred_at", event.OccurredAt)
	if event.Reason != "" {
		logger = logger.With("reason", event.Reason)
	}
	logger.Info("payment event")
	return nil
}
