package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/korea-payment/internal/infrastructure/observability"
	"github.com/honeynil/korea-payment/internal/models"
	service "github.com/honeynil/korea-payment/internal/services"
	pkgerrors "github.com/honeynil/korea-payment/pkg/errors"
)

const (
	apiName    = "Korea Payment API"
	apiVersion = "1.0.0"
)

type Handler struct {
	service service.PaymentService
}

func NewHandler(s service.PaymentService) *Handler {
	return &Handler{service: s}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type initializeResponse struct {
	Success         bool   `json:"success"`
	TransactionID   string `json:"transactionId"`
	OrderID         string `json:"orderId"`
	FormattedAmount string `json:"formattedAmount"`
	Message         string `json:"message"`
}

type transitionResponse struct {
	Success       bool              `json:"success"`
	TransactionID string            `json:"transactionId"`
	Status        models.StatusType `json:"status"`
	Message       string            `json:"message"`
}

type transactionView struct {
	TransactionID string            `json:"transactionId"`
	OrderID       string            `json:"orderId"`
	Status        models.StatusType `json:"status"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Gateway       models.Gateway    `json:"gateway"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type statusResponse struct {
	Success     bool            `json:"success"`
	Transaction transactionView `json:"transaction"`
}

type gatewaysResponse struct {
	Success  bool                 `json:"success"`
	Gateways []models.GatewayInfo `json:"gateways"`
}

type endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var endpoints = []endpoint{
	{Method: http.MethodGet, Path: "/health", Description: "Health check"},
	{Method: http.MethodGet, Path: "/api/gateways", Description: "Get supported payment gateways"},
	{Method: http.MethodPost, Path: "/api/payment/initialize", Description: "Initialize a payment"},
	{Method: http.MethodPost, Path: "/api/payment/process", Description: "Process a payment"},
	{Method: http.MethodGet, Path: "/api/payment/status/{transactionId}", Description: "Get transaction status"},
	{Method: http.MethodPost, Path: "/api/payment/cancel", Description: "Cancel a payment"},
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		observability.WithContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		observability.WithContext(r.Context()).Warn("request rejected",
			"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Message: err.Error()})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrMalformedInput),
		errors.Is(err, pkgerrors.ErrUnsupportedGateway),
		errors.Is(err, pkgerrors.ErrInvalidAmount),
		errors.Is(err, pkgerrors.ErrUnsupportedCurrency),
		errors.Is(err, pkgerrors.ErrInvalidCustomerContact):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrInvalidState),
		errors.Is(err, pkgerrors.ErrAlreadyCancelled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a single JSON value into dst. An empty body decodes as {};
// anything after the value is malformed input.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return pkgerrors.ErrMalformedInput
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return pkgerrors.ErrMalformedInput
	}
	return nil
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/gateways", h.ListGateways).Methods(http.MethodGet)
	r.HandleFunc("/api/payment/initialize", h.InitializePayment).Methods(http.MethodPost)
	r.HandleFunc("/api/payment/process", h.ProcessPayment).Methods(http.MethodPost)
	r.HandleFunc("/api/payment/status/{transactionId}", h.GetPaymentStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/payment/cancel", h.CancelPayment).Methods(http.MethodPost)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      apiName,
		"version":   apiVersion,
		"endpoints": endpoints,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handler) ListGateways(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gatewaysResponse{Success: true, Gateways: h.service.ListSupportedGateways()})
}

func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Gateway       string `json:"gateway"`
		Amount        any    `json:"amount"`
		Currency      string `json:"currency"`
		OrderID       string `json:"orderId"`
		ProductName   string `json:"productName"`
		CustomerName  string `json:"customerName"`
		CustomerEmail string `json:"customerEmail"`
		CustomerPhone string `json:"customerPhone"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	// Only JSON numbers are amounts. Anything else fails the service's amount
	// check, which runs after the gateway check.
	amount, ok := req.Amount.(float64)
	if !ok {
		amount = math.NaN()
	}

	result, err := h.service.Initialize(r.Context(), service.InitializeRequest{
		Gateway:       req.Gateway,
		Amount:        amount,
		Currency:      req.Currency,
		OrderID:       req.OrderID,
		ProductName:   req.ProductName,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, initializeResponse{
		Success:         true,
		TransactionID:   result.TransactionID,
		OrderID:         result.OrderID,
		FormattedAmount: result.FormattedAmount,
		Message:         "Payment initialized successfully",
	})
}

func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{}
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	transactionID, _ := body["transactionId"].(string)
	delete(body, "transactionId")

	result, err := h.service.Process(r.Context(), transactionID, body)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, transitionResponse{
		Success:       true,
		TransactionID: result.TransactionID,
		Status:        result.Status,
		Message:       "Payment processed successfully",
	})
}

func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["transactionId"]

	status, err := h.service.GetStatus(r.Context(), transactionID)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Success: true,
		Transaction: transactionView{
			TransactionID: status.TransactionID,
			OrderID:       status.OrderID,
			Status:        status.Status,
			Amount:        status.Amount.InexactFloat64(),
			Currency:      status.Currency,
			Gateway:       status.Gateway,
			CreatedAt:     status.CreatedAt,
			UpdatedAt:     status.UpdatedAt,
		},
	})
}

func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transactionId"`
		Reason        string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := h.service.Cancel(r.Context(), req.TransactionID, req.Reason)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, transitionResponse{
		Success:       true,
		TransactionID: result.TransactionID,
		Status:        result.Status,
		Message:       "Payment cancelled successfully",
	})
}

// NotFound answers unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not Found", Message: "Endpoint not found"})
}
