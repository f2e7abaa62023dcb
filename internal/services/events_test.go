package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/honeynil/korea-payment/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Send(ctx context.Context, topic string, key string, value []byte) error {
	return m.Called(ctx, topic, key, value).Error(0)
}

func (m *mockProducer) Close() error {
	return m.Called().Error(0)
}

func testEvent() models.PaymentEvent {
	tx := &models.Transaction{
		ID:       "tx-1",
		OrderID:  "ORD-1",
		Gateway:  models.GatewayToss,
		Amount:   decimal.NewFromInt(10000),
		Currency: "KRW",
		Status:   models.StatusCompleted,
	}
	return models.NewPaymentEvent(models.EventPaymentCompleted, tx, time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
}

func TestKafkaEventPublisher_Publish(t *testing.T) {
	t.Run("sends keyed by transaction", func(t *testing.T) {
		producer := new(mockProducer)
		publisher := NewKafkaEventPublisher(producer, "payments")

		var sent []byte
		producer.On("Send", mock.Anything, "payments", "tx-1", mock.Anything).
			Run(func(args mock.Arguments) { sent = args.Get(3).([]byte) }).
			Return(nil).Once()
		producer.On("Close").Return(nil).Once()

		publisher.Publish(context.Background(), testEvent())
		require.NoError(t, publisher.Close())
		producer.AssertExpectations(t)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(sent, &decoded))
		assert.Equal(t, "payment.completed", decoded["event_type"])
		assert.Equal(t, "tx-1", decoded["transaction_id"])
		assert.Equal(t, "completed", decoded["status"])
	})

	t.Run("retries until success", func(t *testing.T) {
		producer := new(mockProducer)
		publisher := NewKafkaEventPublisher(producer, "payments")
		publisher.backoff = time.Millisecond

		producer.On("Send", mock.Anything, "payments", "tx-1", mock.Anything).
			Return(errors.New("broker unavailable")).Twice()
		producer.On("Send", mock.Anything, "payments", "tx-1", mock.Anything).
			Return(nil).Once()
		producer.On("Close").Return(nil).Once()

		publisher.Publish(context.Background(), testEvent())
		require.NoError(t, publisher.Close())
		producer.AssertNumberOfCalls(t, "Send", 3)
	})

	t.Run("gives up after retries", func(t *testing.T) {
		producer := new(mockProducer)
		publisher := NewKafkaEventPublisher(producer, "payments")
		publisher.backoff = time.Millisecond

		producer.On("Send", mock.Anything, "payments", "tx-1", mock.Anything).
			Return(errors.New("broker unavailable"))
		producer.On("Close").Return(nil).Once()

		publisher.Publish(context.Background(), testEvent())
		require.NoError(t, publisher.Close())
		producer.AssertNumberOfCalls(t, "Send", defaultPublishRetries)
	})

	t.Run("survives cancelled request context", func(t *testing.T) {
		producer := new(mockProducer)
		publisher := NewKafkaEventPublisher(producer, "payments")

		producer.On("Send", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }),
			"payments", "tx-1", mock.Anything).Return(nil).Once()
		producer.On("Close").Return(nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		publisher.Publish(ctx, testEvent())
		require.NoError(t, publisher.Close())
		producer.AssertExpectations(t)
	})
}

func TestNoopPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		NoopPublisher{}.Publish(context.Background(), testEvent())
	})
}
