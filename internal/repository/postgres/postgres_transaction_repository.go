package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/korea-payment/internal/infrastructure/observability"
	"github.com/honeynil/korea-payment/internal/models"
	pkgerrors "github.com/honeynil/korea-payment/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	storeName           = "postgres"
	uniqueViolationCode = "23505"
	checkViolationCode  = "23514"
	numericOverflowCode = "22003"
)

const schema = `
CREATE TABLE IF NOT EXISTS payment_transactions (
	id                  TEXT PRIMARY KEY,
	order_id            TEXT NOT NULL,
	gateway             TEXT NOT NULL,
	amount              NUMERIC NOT NULL CHECK (amount > 0),
	currency            VARCHAR(3) NOT NULL,
	status              TEXT NOT NULL,
	product_name        TEXT NOT NULL DEFAULT '',
	customer_name       TEXT NOT NULL DEFAULT '',
	customer_email      TEXT NOT NULL DEFAULT '',
	customer_phone      TEXT NOT NULL DEFAULT '',
	payment_details     JSONB,
	cancellation_reason TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	completed_at        TIMESTAMPTZ,
	cancelled_at        TIMESTAMPTZ
)`

const (
	insertQuery = `INSERT INTO payment_transactions (id, order_id, gateway, amount, currency, status, product_name, customer_name, customer_email, customer_phone, payment_details, cancellation_reason, created_at, updated_at, completed_at, cancelled_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	selectQuery = `SELECT id, order_id, gateway, amount, currency, status, product_name, customer_name, customer_email, customer_phone, payment_details, cancellation_reason, created_at, updated_at, completed_at, cancelled_at FROM payment_transactions WHERE id = $1`
	updateQuery = `UPDATE payment_transactions SET status = $2, payment_details = $3, cancellation_reason = $4, updated_at = $5, completed_at = $6, cancelled_at = $7 WHERE id = $1 AND status = $8`
	existsQuery = `SELECT EXISTS (SELECT 1 FROM payment_transactions WHERE id = $1)`
)

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

// EnsureSchema creates the ledger table if it is missing.
func (r *PostgresTransactionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		slog.Error("failed to ensure schema", "method", "EnsureSchema", "error", err)
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// instrument starts a span and returns a finish func that records the outcome
// of the call in the span and in the repository metrics.
func instrument(ctx context.Context, method string) (context.Context, trace.Span, func(*error)) {
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, method)
	start := time.Now()
	return ctx, span, func(errp *error) {
		status := "success"
		if err := *errp; err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues(storeName, method, status).Inc()
		observability.RepositoryDuration.WithLabelValues(storeName, method).Observe(time.Since(start).Seconds())
		span.End()
	}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (err error) {
	ctx, span, finish := instrument(ctx, "CreateTransaction")
	defer finish(&err)

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return err
	}

	span.SetAttributes(
		attribute.String("transaction_id", tx.ID),
		attribute.String("gateway", string(tx.Gateway)),
		attribute.String("status", string(tx.Status)),
	)

	details, err := marshalDetails(tx.PaymentDetails)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, insertQuery,
		tx.ID, tx.OrderID, tx.Gateway, tx.Amount, tx.Currency, tx.Status,
		tx.ProductName, tx.CustomerName, tx.CustomerEmail, tx.CustomerPhone,
		details, tx.CancellationReason, tx.CreatedAt, tx.UpdatedAt, tx.CompletedAt, tx.CancelledAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) {
			switch pqErr.Code {
			case uniqueViolationCode:
				err = pkgerrors.ErrDuplicateTransaction
				slog.Warn("transaction id already exists", "method", "Create", "transaction_id", tx.ID)
				return err
			case checkViolationCode, numericOverflowCode:
				slog.Warn("amount rejected by database", "method", "Create", "transaction_id", tx.ID, "amount", tx.Amount.String(), "code", pqErr.Code)
				err = fmt.Errorf("%w: %s", pkgerrors.ErrInvalidAmount, tx.Amount.String())
				return err
			}
		}
		slog.Error("failed to create transaction", "method", "Create", "transaction_id", tx.ID, "error", err)
		err = fmt.Errorf("failed to create transaction: %w", err)
		return err
	}

	slog.Debug("transaction created", "method", "Create", "transaction_id", tx.ID, "status", tx.Status)
	return nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id string) (_ *models.Transaction, err error) {
	ctx, span, finish := instrument(ctx, "GetTransactionByID")
	defer finish(&err)
	span.SetAttributes(attribute.String("transaction_id", id))

	var (
		tx          models.Transaction
		details     []byte
		completedAt sql.NullTime
		cancelledAt sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, selectQuery, id).Scan(
		&tx.ID, &tx.OrderID, &tx.Gateway, &tx.Amount, &tx.Currency, &tx.Status,
		&tx.ProductName, &tx.CustomerName, &tx.CustomerEmail, &tx.CustomerPhone,
		&details, &tx.CancellationReason, &tx.CreatedAt, &tx.UpdatedAt, &completedAt, &cancelledAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction by id", "method", "GetByID", "transaction_id", id, "error", err)
		err = fmt.Errorf("failed to get transaction by id: %w", err)
		return nil, err
	}

	if len(details) > 0 {
		if err = json.Unmarshal(details, &tx.PaymentDetails); err != nil {
			slog.Error("failed to decode payment details", "method", "GetByID", "transaction_id", id, "error", err)
			err = fmt.Errorf("failed to decode payment details: %w", err)
			return nil, err
		}
	}
	if completedAt.Valid {
		tx.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		tx.CancelledAt = &cancelledAt.Time
	}
	return &tx, nil
}

func (r *PostgresTransactionRepository) Update(ctx context.Context, tx *models.Transaction, expected models.StatusType) (err error) {
	ctx, span, finish := instrument(ctx, "UpdateTransaction")
	defer finish(&err)

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		return err
	}
	span.SetAttributes(
		attribute.String("transaction_id", tx.ID),
		attribute.String("expected_status", string(expected)),
		attribute.String("status", string(tx.Status)),
	)

	details, err := marshalDetails(tx.PaymentDetails)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, updateQuery,
		tx.ID, tx.Status, details, tx.CancellationReason, tx.UpdatedAt, tx.CompletedAt, tx.CancelledAt, expected,
	)
	if err != nil {
		slog.Error("failed to update transaction", "method", "Update", "transaction_id", tx.ID, "error", err)
		err = fmt.Errorf("failed to update transaction: %w", err)
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to read affected rows: %w", err)
		return err
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err = r.db.QueryRowContext(ctx, existsQuery, tx.ID).Scan(&exists); err != nil {
		err = fmt.Errorf("failed to check transaction existence: %w", err)
		return err
	}
	if !exists {
		err = pkgerrors.ErrTransactionNotFound
		return err
	}
	err = pkgerrors.ErrStatusConflict
	slog.Warn("transaction status changed concurrently", "method", "Update", "transaction_id", tx.ID, "expected_status", expected)
	return err
}

func (r *PostgresTransactionRepository) Close() error {
	return r.db.Close()
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment details: %w", err)
	}
	return b, nil
}
