package memory

import (
	"context"
	"sync"
	"time"

	"github.com/honeynil/korea-payment/internal/infrastructure/observability"
	"github.com/honeynil/korea-payment/internal/models"
	pkgerrors "github.com/honeynil/korea-payment/pkg/errors"
)

const storeName = "memory"

// TransactionRepository keeps the ledger in process memory. Records are never
// evicted.
type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*models.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{transactions: make(map[string]*models.Transaction)}
}

func observe(method string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RepositoryCalls.WithLabelValues(storeName, method, status).Inc()
	observability.RepositoryDuration.WithLabelValues(storeName, method).Observe(time.Since(start).Seconds())
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	start := time.Now()
	err := r.create(tx)
	observe("Create", start, err)
	return err
}

func (r *TransactionRepository) create(tx *models.Transaction) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transactions[tx.ID]; exists {
		return pkgerrors.ErrDuplicateTransaction
	}
	r.transactions[tx.ID] = tx.Clone()
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	start := time.Now()
	r.mu.RLock()
	tx, ok := r.transactions[id]
	r.mu.RUnlock()
	if !ok {
		observe("GetByID", start, pkgerrors.ErrTransactionNotFound)
		return nil, pkgerrors.ErrTransactionNotFound
	}
	observe("GetByID", start, nil)
	return tx.Clone(), nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *models.Transaction, expected models.StatusType) error {
	start := time.Now()
	err := r.update(tx, expected)
	observe("Update", start, err)
	return err
}

func (r *TransactionRepository) update(tx *models.Transaction, expected models.StatusType) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.transactions[tx.ID]
	if !ok {
		return pkgerrors.ErrTransactionNotFound
	}
	if current.Status != expected {
		return pkgerrors.ErrStatusConflict
	}
	r.transactions[tx.ID] = tx.Clone()
	return nil
}

func (r *TransactionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transactions)
}

func (r *TransactionRepository) Close() error {
	return nil
}
