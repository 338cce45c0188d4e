// Package handlers exposes the console API over plain net/http. Handlers
// decode and validate requests, delegate to the payment service, and write
// the shared response envelope.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/clearway-labs/psp-console/internal/domain"
	"github.com/clearway-labs/psp-console/internal/storage"
	"github.com/go-playground/validator"
)

type PaymentService interface {
	Merchants() []domain.Merchant
	CreatePayment(ctx context.Context, draft domain.PaymentDraft) (domain.SubmitReceipt, error)
	PaymentResult(ctx context.Context, id string) (*domain.PaymentResult, error)
	Refund(ctx context.Context, id string, amountCents int64, reason domain.RefundReason) (*domain.Transaction, error)
}

type Handlers struct {
	payments PaymentService
	store    storage.Repository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandlers(payments PaymentService, store storage.Repository, logger *slog.Logger) *Handlers {
	return &Handlers{
		payments: payments,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/merchants", h.HandleMerchants)
	mux.HandleFunc("POST /api/v1/payments", h.HandleCreatePayment)
	mux.HandleFunc("GET /api/v1/payments/{id}/result", h.HandlePaymentResult)
	mux.HandleFunc("GET /api/v1/transactions", h.HandleListTransactions)
	mux.HandleFunc("GET /api/v1/transactions/{id}", h.HandleGetTransaction)
	mux.HandleFunc("POST /api/v1/transactions/{id}/refund", h.HandleRefund)
}
