package repository

import (
	"context"

	"github.com/honeynil/korea-payment/internal/models"
)

// TransactionRepository is the ledger's storage. Implementations hand out
// copies and make Update a compare-and-swap on the stored status.
type TransactionRepository interface {
	// Create fails with ErrDuplicateTransaction when the id is taken.
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	// Update replaces the record only if its stored status still equals
	// expected, otherwise it returns ErrStatusConflict.
	Update(ctx context.Context, tx *models.Transaction, expected models.StatusType) error
	Close() error
}
