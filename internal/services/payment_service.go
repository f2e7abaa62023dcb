package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/korea-payment/internal/infrastructure/observability"
	"github.com/honeynil/korea-payment/internal/models"
	"github.com/honeynil/korea-payment/internal/repository"
	pkgerrors "github.com/honeynil/korea-payment/pkg/errors"
	"github.com/honeynil/korea-payment/pkg/payutil"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxIDAttempts = 3

type PaymentService interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Process(ctx context.Context, transactionID string, paymentDetails map[string]any) (*TransitionResult, error)
	GetStatus(ctx context.Context, transactionID string) (*models.TransactionStatus, error)
	Cancel(ctx context.Context, transactionID, reason string) (*TransitionResult, error)
	ListSupportedGateways() []models.GatewayInfo
}

type InitializeRequest struct {
	Gateway       string
	Amount        float64
	Currency      string
	OrderID       string
	ProductName   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

type InitializeResult struct {
	TransactionID   string
	OrderID         string
	FormattedAmount string
}

type TransitionResult struct {
	TransactionID string
	Status        models.StatusType
}

type Option func(*paymentService)

// WithDefaultCurrency sets the currency used when a request omits one.
func WithDefaultCurrency(code string) Option {
	return func(s *paymentService) { s.defaultCurrency = code }
}

// WithCancelCompleted controls whether completed transactions may be cancelled.
func WithCancelCompleted(allow bool) Option {
	return func(s *paymentService) { s.allowCancelCompleted = allow }
}

func WithClock(now func() time.Time) Option {
	return func(s *paymentService) { s.now = now }
}

func WithIDGenerators(transactionID, orderID func() string) Option {
	return func(s *paymentService) {
		s.newTransactionID = transactionID
		s.newOrderID = orderID
	}
}

type paymentService struct {
	repo                 repository.TransactionRepository
	publisher            EventPublisher
	defaultCurrency      string
	allowCancelCompleted bool
	now                  func() time.Time
	newTransactionID     func() string
	newOrderID           func() string
}

func NewPaymentService(repo repository.TransactionRepository, publisher EventPublisher, opts ...Option) *paymentService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	s := &paymentService{
		repo:                 repo,
		publisher:            publisher,
		defaultCurrency:      payutil.DefaultCurrency,
		allowCancelCompleted: true,
		now:                  func() time.Time { return time.Now().UTC() },
		newTransactionID:     payutil.NewTransactionID,
		newOrderID:           payutil.GenerateOrderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *paymentService) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "Initialize")
	defer span.End()

	gateway := models.Gateway(req.Gateway)
	if !gateway.IsSupported() {
		return nil, fail(span, fmt.Errorf("%w: %s", pkgerrors.ErrUnsupportedGateway, req.Gateway))
	}
	if !payutil.ValidateAmount(req.Amount) {
		return nil, fail(span, pkgerrors.ErrInvalidAmount)
	}

	currencyCode := req.Currency
	if currencyCode == "" {
		currencyCode = s.defaultCurrency
	}
	unit, err := payutil.ParseCurrency(currencyCode)
	if err != nil {
		return nil, fail(span, err)
	}
	if req.CustomerEmail != "" && !payutil.ValidateEmail(req.CustomerEmail) {
		return nil, fail(span, fmt.Errorf("%w: email %q", pkgerrors.ErrInvalidCustomerContact, req.CustomerEmail))
	}
	if req.CustomerPhone != "" && !payutil.ValidateKoreanPhone(req.CustomerPhone) {
		return nil, fail(span, fmt.Errorf("%w: phone %q", pkgerrors.ErrInvalidCustomerContact, req.CustomerPhone))
	}

	amount := decimal.NewFromFloat(req.Amount)
	formatted, err := payutil.FormatCurrency(amount, unit.String())
	if err != nil {
		return nil, fail(span, err)
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = s.newOrderID()
	}

	now := s.now()
	tx := &models.Transaction{
		OrderID:       orderID,
		Gateway:       gateway,
		Amount:        amount,
		Currency:      unit.String(),
		Status:        models.StatusInitialized,
		ProductName:   req.ProductName,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		tx.ID = s.newTransactionID()
		if err = s.repo.Create(ctx, tx); !stderrors.Is(err, pkgerrors.ErrDuplicateTransaction) {
			break
		}
	}
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(
		attribute.String("transaction_id", tx.ID),
		attribute.String("gateway", string(gateway)),
	)
	recordTransition(gateway, "", models.StatusInitialized)
	s.publisher.Publish(ctx, models.NewPaymentEvent(models.EventPaymentInitialized, tx, now))

	slog.Info("payment initialized",
		"transaction_id", tx.ID,
		"order_id", tx.OrderID,
		"gateway", gateway,
		"amount", amount.String(),
		"currency", tx.Currency)

	return &InitializeResult{
		TransactionID:   tx.ID,
		OrderID:         tx.OrderID,
		FormattedAmount: formatted,
	}, nil
}

func recordTransition(gateway models.Gateway, from, to models.StatusType) {
	observability.TransactionTransitions.WithLabelValues(string(gateway), string(from), string(to)).Inc()
}

// advance moves tx one step along the state machine.
func advance(tx *models.Transaction, next models.StatusType, at time.Time) error {
	if !tx.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", pkgerrors.ErrInvalidState, tx.Status, next)
	}
	tx.Status = next
	tx.UpdatedAt = at
	return nil
}

func (s *paymentService) Process(ctx context.Context, transactionID string, paymentDetails map[string]any) (*TransitionResult, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "Process")
	span.SetAttributes(attribute.String("transaction_id", transactionID))
	defer span.End()

	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fail(span, err)
	}
	if tx.Status != models.StatusInitialized {
		return nil, fail(span, fmt.Errorf("%w: %s", pkgerrors.ErrInvalidState, tx.Status))
	}
	expected := tx.Status

	// processing is never stored; the record is committed once, as completed.
	if err := advance(tx, models.StatusProcessing, s.now()); err != nil {
		return nil, fail(span, err)
	}
	tx.PaymentDetails = paymentDetails

	completedAt := s.now()
	if err := advance(tx, models.StatusCompleted, completedAt); err != nil {
		return nil, fail(span, err)
	}
	tx.CompletedAt = &completedAt

	if err := s.repo.Update(ctx, tx, expected); err != nil {
		if stderrors.Is(err, pkgerrors.ErrStatusConflict) {
			err = fmt.Errorf("%w: transaction changed while processing", pkgerrors.ErrInvalidState)
		}
		return nil, fail(span, err)
	}

	recordTransition(tx.Gateway, expected, models.StatusProcessing)
	recordTransition(tx.Gateway, models.StatusProcessing, models.StatusCompleted)
	s.publisher.Publish(ctx, models.NewPaymentEvent(models.EventPaymentCompleted, tx, completedAt))
	slog.Info("payment processed",
		"transaction_id", tx.ID,
		"gateway", tx.Gateway,
		"status", tx.Status,
		"payment_details", payutil.MaskPaymentDetails(paymentDetails))

	return &TransitionResult{TransactionID: tx.ID, Status: tx.Status}, nil
}

func (s *paymentService) GetStatus(ctx context.Context, transactionID string) (*models.TransactionStatus, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "GetStatus")
	span.SetAttributes(attribute.String("transaction_id", transactionID))
	defer span.End()

	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fail(span, err)
	}
	snapshot := tx.Snapshot()
	return &snapshot, nil
}

func (s *paymentService) Cancel(ctx context.Context, transactionID, reason string) (*TransitionResult, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "Cancel")
	span.SetAttributes(attribute.String("transaction_id", transactionID))
	defer span.End()

	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fail(span, err)
	}
	if tx.Status == models.StatusCancelled {
		return nil, fail(span, pkgerrors.ErrAlreadyCancelled)
	}
	if tx.Status == models.StatusCompleted && !s.allowCancelCompleted {
		return nil, fail(span, fmt.Errorf("%w: %s", pkgerrors.ErrInvalidState, tx.Status))
	}
	expected := tx.Status

	cancelledAt := s.now()
	if err := advance(tx, models.StatusCancelled, cancelledAt); err != nil {
		return nil, fail(span, err)
	}
	tx.CancellationReason = reason
	tx.CancelledAt = &cancelledAt

	if err := s.repo.Update(ctx, tx, expected); err != nil {
		if stderrors.Is(err, pkgerrors.ErrStatusConflict) {
			err = s.conflictError(ctx, transactionID)
		}
		return nil, fail(span, err)
	}

	recordTransition(tx.Gateway, expected, models.StatusCancelled)
	s.publisher.Publish(ctx, models.NewPaymentEvent(models.EventPaymentCancelled, tx, cancelledAt))
	slog.Info("payment cancelled",
		"transaction_id", tx.ID,
		"gateway", tx.Gateway,
		"previous_status", expected,
		"reason", reason)

	return &TransitionResult{TransactionID: tx.ID, Status: tx.Status}, nil
}

// conflictError explains a lost compare-and-swap using the latest stored status.
func (s *paymentService) conflictError(ctx context.Context, transactionID string) error {
	latest, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if latest.Status == models.StatusCancelled {
		return pkgerrors.ErrAlreadyCancelled
	}
	return fmt.Errorf("%w: transaction changed concurrently", pkgerrors.ErrInvalidState)
}

func (s *paymentService) ListSupportedGateways() []models.GatewayInfo {
	gateways := make([]models.GatewayInfo, 0, len(models.SupportedGateways))
	for _, g := range models.SupportedGateways {
		gateways = append(gateways, models.GatewayInfo{ID: g, Name: g.DisplayName()})
	}
	return gateways
}
