package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/clearway-labs/psp-console/internal/domain"
	"github.com/clearway-labs/psp-console/internal/server/middleware"
)

type CardRequest struct {
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	Cardholder string `json:"cardholder"`
}

type MetadataEntryRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type CreatePaymentRequest struct {
	MerchantID  string                 `json:"merchantId" validate:"required"`
	AmountCents int64                  `json:"amountCents" validate:"required,gt=0"`
	Currency    string                 `json:"currency" validate:"required,len=3"`
	ReferenceID string                 `json:"referenceId"`
	Description string                 `json:"description"`
	Method      string                 `json:"method" validate:"required,oneof=card bank_transfer e_wallet"`
	Card        CardRequest            `json:"card"`
	Metadata    []MetadataEntryRequest `json:"metadata" validate:"max=10"`
}

// HandleCreatePayment accepts a payment draft, re-runs the form's validation
// rules server-side, and submits it to the processor.
func (h *Handlers) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, err)
		return
	}

	var req CreatePaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(w, &domain.DomainError{
			Code:    domain.ErrCodeValidation,
			Message: "request body is not valid JSON",
		})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, &domain.DomainError{
			Code:    domain.ErrCodeValidation,
			Message: err.Error(),
		})
		return
	}

	draft := draftFromRequest(req)

	var merchant *domain.Merchant
	for _, m := range h.payments.Merchants() {
		if m.ID == draft.MerchantID {
			merchant = &m
			break
		}
	}

	if fields := domain.ValidateDraft(&draft, merchant, time.Now()); !fields.Valid() {
		respondWithFieldErrors(w, fields)
		return
	}

	receipt, err := h.payments.CreatePayment(r.Context(), draft)
	if err != nil {
		respondWithError(w, err)
		return
	}

	middleware.PaymentsCreated.WithLabelValues(string(receipt.Status)).Inc()

	respondWithJSON(w, http.StatusCreated, receipt)
}

// HandlePaymentResult reports the current outcome for a submitted payment.
func (h *Handlers) HandlePaymentResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.payments.PaymentResult(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func draftFromRequest(req CreatePaymentRequest) domain.PaymentDraft {
	draft := domain.PaymentDraft{
		MerchantID:  req.MerchantID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
		Method:      domain.PaymentMethod(req.Method),
		Card: domain.CardDetails{
			Number:     req.Card.Number,
			Expiry:     req.Card.Expiry,
			CVV:        req.Card.CVV,
			Cardholder: req.Card.Cardholder,
		},
	}
	for _, entry := range req.Metadata {
		draft.Metadata = append(draft.Metadata, domain.MetadataEntry{Key: entry.Key, Value: entry.Value})
	}
	return draft
}
