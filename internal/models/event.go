package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventPaymentInitialized EventType = "payment.initialized"
	EventPaymentCompleted   EventType = "payment.completed"
	EventPaymentCancelled   EventType = "payment.cancelled"
)

// PaymentEvent is published after a transition has been committed.
type PaymentEvent struct {
	Type          EventType       `json:"event_type"`
	TransactionID string          `json:"transaction_id"`
	OrderID       string          `json:"order_id"`
	Gateway       Gateway         `json:"gateway"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        StatusType      `json:"status"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func NewPaymentEvent(eventType EventType, tx *Transaction, at time.Time) PaymentEvent {
	return PaymentEvent{
		Type:          eventType,
		TransactionID: tx.ID,
		OrderID:       tx.OrderID,
		Gateway:       tx.Gateway,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Status:        tx.Status,
		Reason:        tx.CancellationReason,
		OccurredAt:    at,
	}
}
