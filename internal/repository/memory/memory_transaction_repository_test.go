package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/honeynil/korea-payment/internal/models"
	pkgerrors "github.com/honeynil/korea-payment/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransaction(id string) *models.Transaction {
	now := time.Now().UTC()
	return &models.Transaction{
		ID:        id,
		OrderID:   "ORD-1",
		Gateway:   models.GatewayToss,
		Amount:    decimal.NewFromInt(10000),
		Currency:  "KRW",
		Status:    models.StatusInitialized,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTransactionRepository_Create(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()

	t.Run("NilTransaction", func(t *testing.T) {
		assert.ErrorIs(t, repo.Create(ctx, nil), pkgerrors.ErrNilTransaction)
	})

	t.Run("Success", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newTransaction("tx-1")))
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("Duplicate", func(t *testing.T) {
		assert.ErrorIs(t, repo.Create(ctx, newTransaction("tx-1")), pkgerrors.ErrDuplicateTransaction)
		assert.Equal(t, 1, repo.Len())
	})
}

func TestTransactionRepository_GetByID(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTransaction("tx-1")))

	t.Run("Success", func(t *testing.T) {
		tx, err := repo.GetByID(ctx, "tx-1")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", tx.ID)
		assert.Equal(t, models.StatusInitialized, tx.Status)
	})

	t.Run("ReturnsCopy", func(t *testing.T) {
		tx, err := repo.GetByID(ctx, "tx-1")
		require.NoError(t, err)
		tx.Status = models.StatusCancelled

		stored, err := repo.GetByID(ctx, "tx-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusInitialized, stored.Status)
	})

	t.Run("TransactionNotFound", func(t *testing.T) {
		tx, err := repo.GetByID(ctx, "missing")
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
	})
}

func TestTransactionRepository_Update(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTransaction("tx-1")))

	t.Run("Success", func(t *testing.T) {
		tx, _ := repo.GetByID(ctx, "tx-1")
		tx.Status = models.StatusCompleted
		require.NoError(t, repo.Update(ctx, tx, models.StatusInitialized))

		stored, _ := repo.GetByID(ctx, "tx-1")
		assert.Equal(t, models.StatusCompleted, stored.Status)
	})

	t.Run("StatusConflict", func(t *testing.T) {
		tx, _ := repo.GetByID(ctx, "tx-1")
		tx.Status = models.StatusCancelled
		assert.ErrorIs(t, repo.Update(ctx, tx, models.StatusInitialized), pkgerrors.ErrStatusConflict)

		stored, _ := repo.GetByID(ctx, "tx-1")
		assert.Equal(t, models.StatusCompleted, stored.Status)
	})

	t.Run("TransactionNotFound", func(t *testing.T) {
		assert.ErrorIs(t, repo.Update(ctx, newTransaction("missing"), models.StatusInitialized), pkgerrors.ErrTransactionNotFound)
	})

	t.Run("NilTransaction", func(t *testing.T) {
		assert.ErrorIs(t, repo.Update(ctx, nil, models.StatusInitialized), pkgerrors.ErrNilTransaction)
	})
}

func TestTransactionRepository_ConcurrentUpdateOnlyOneWins(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTransaction("tx-1")))

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := repo.GetByID(ctx, "tx-1")
			if err != nil {
				return
			}
			tx.Status = models.StatusCompleted
			if repo.Update(ctx, tx, models.StatusInitialized) == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}
