package redisstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/korea-payment/internal/infrastructure/observability"
	"github.com/honeynil/korea-payment/internal/infrastructure/redis"
	"github.com/honeynil/korea-payment/internal/models"
	pkgerrors "github.com/honeynil/korea-payment/pkg/errors"
)

const (
	storeName      = "redis"
	lockTTL        = 3 * time.Second
	lockAttempts   = 3
	lockRetryDelay = 10 * time.Millisecond
)

// TransactionRepository stores each transaction as JSON under
// payment:tx:<id>. Updates hold payment:tx:<id>:lock for their duration.
type TransactionRepository struct {
	client   redis.RedisClient
	newToken func() string
}

func NewTransactionRepository(client redis.RedisClient) *TransactionRepository {
	return &TransactionRepository{client: client, newToken: uuid.NewString}
}

func transactionKey(id string) string {
	return fmt.Sprintf("payment:tx:%s", id)
}

func lockKey(id string) string {
	return fmt.Sprintf("payment:tx:%s:lock", id)
}

func observe(method string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RepositoryCalls.WithLabelValues(storeName, method, status).Inc()
	observability.RepositoryDuration.WithLabelValues(storeName, method).Observe(time.Since(start).Seconds())
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) (err error) {
	defer func(start time.Time) { observe("Create", start, err) }(time.Now())

	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	ok, err := r.client.SetNX(ctx, transactionKey(tx.ID), string(data), 0)
	if err != nil {
		slog.Error("failed to store transaction in Redis", "transaction_id", tx.ID, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	if !ok {
		return pkgerrors.ErrDuplicateTransaction
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (_ *models.Transaction, err error) {
	defer func(start time.Time) { observe("GetByID", start, err) }(time.Now())
	return r.get(ctx, id)
}

func (r *TransactionRepository) get(ctx context.Context, id string) (*models.Transaction, error) {
	data, err := r.client.Get(ctx, transactionKey(id))
	if stderrors.Is(err, redis.ErrKeyNotFound) {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get transaction from Redis", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction by id: %w", err)
	}

	var tx models.Transaction
	if err := json.Unmarshal([]byte(data), &tx); err != nil {
		slog.Error("failed to unmarshal transaction", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return &tx, nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *models.Transaction, expected models.StatusType) (err error) {
	defer func(start time.Time) { observe("Update", start, err) }(time.Now())

	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}

	token, err := r.lock(ctx, tx.ID)
	if err != nil {
		return err
	}
	defer r.unlock(ctx, tx.ID, token)

	current, err := r.get(ctx, tx.ID)
	if err != nil {
		return err
	}
	if current.Status != expected {
		return pkgerrors.ErrStatusConflict
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if err := r.client.Set(ctx, transactionKey(tx.ID), string(data), 0); err != nil {
		slog.Error("failed to update transaction in Redis", "transaction_id", tx.ID, "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

// lock takes the per-transaction lock and returns the token that owns it.
// A lock held by someone else means a concurrent mutation, reported as a
// status conflict.
func (r *TransactionRepository) lock(ctx context.Context, id string) (string, error) {
	token := r.newToken()
	for attempt := 0; attempt < lockAttempts; attempt++ {
		ok, err := r.client.SetNX(ctx, lockKey(id), token, lockTTL)
		if err != nil {
			slog.Error("failed to acquire lock", "transaction_id", id, "error", err)
			return "", fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	slog.Warn("transaction is locked", "transaction_id", id)
	return "", fmt.Errorf("%w: %w", pkgerrors.ErrStatusConflict, pkgerrors.ErrLockNotAcquired)
}

// unlock releases the lock only if token still owns it; an expired lock may
// already belong to another writer.
func (r *TransactionRepository) unlock(ctx context.Context, id, token string) {
	released, err := r.client.DelIfValue(ctx, lockKey(id), token)
	if err != nil {
		slog.Error("failed to release transaction lock", "transaction_id", id, "error", err)
		return
	}
	if !released {
		slog.Warn("transaction lock expired before release", "transaction_id", id)
	}
}

func (r *TransactionRepository) Close() error {
	return r.client.Close()
}
