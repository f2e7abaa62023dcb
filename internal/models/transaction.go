package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID                 string          `json:"transactionId"`
	OrderID            string          `json:"orderId"`
	Gateway            Gateway         `json:"gateway"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             StatusType      `json:"status"`
	ProductName        string          `json:"productName,omitempty"`
	CustomerName       string          `json:"customerName,omitempty"`
	CustomerEmail      string          `json:"customerEmail,omitempty"`
	CustomerPhone      string          `json:"customerPhone,omitempty"`
	PaymentDetails     map[string]any  `json:"paymentDetails,omitempty"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
}

type StatusType string

const (
	StatusInitialized StatusType = "initialized"
	StatusProcessing  StatusType = "processing"
	StatusCompleted   StatusType = "completed"
	StatusCancelled   StatusType = "cancelled"
)

// transitions lists the moves the ledger may make from each status.
// completed -> cancelled is accepted as observed; the service can switch it off.
var transitions = map[StatusType][]StatusType{
	StatusInitialized: {StatusProcessing, StatusCancelled},
	StatusProcessing:  {StatusCompleted, StatusCancelled},
	StatusCompleted:   {StatusCancelled},
}

func (s StatusType) IsValid() bool {
	switch s {
	case StatusInitialized, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s StatusType) CanTransitionTo(next StatusType) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further payment progress is possible.
func (s StatusType) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Clone returns a deep copy so stores never hand out their own records.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	if t.PaymentDetails != nil {
		c.PaymentDetails = copyMap(t.PaymentDetails)
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.CancelledAt != nil {
		at := *t.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue copies the container shapes produced by decoding JSON.
func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// TransactionStatus is the read-only projection returned by status queries.
type TransactionStatus struct {
	TransactionID string          `json:"transactionId"`
	OrderID       string          `json:"orderId"`
	Status        StatusType      `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Gateway       Gateway         `json:"gateway"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (t *Transaction) Snapshot() TransactionStatus {
	return TransactionStatus{
		TransactionID: t.ID,
		OrderID:       t.OrderID,
		Status:        t.Status,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Gateway:       t.Gateway,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
