package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/clearway-labs/psp-console/internal/domain"
	"github.com/clearway-labs/psp-console/internal/storage"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// HandleListTransactions serves the filtered, paginated transaction list.
// Unknown filter values fall back to their defaults rather than erroring.
func (h *Handlers) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := storage.TransactionQuery{
		Filters:  domain.DefaultFilters(),
		Page:     defaultPage,
		PageSize: defaultPageSize,
	}

	switch s := domain.StatusTab(q.Get("status")); s {
	case domain.TabSuccess, domain.TabFailed, domain.TabPending:
		query.Filters.Status = s
	}

	query.Filters.Query = q.Get("query")

	switch d := domain.DateRange(q.Get("dateRange")); d {
	case domain.DateLast7, domain.DateLast30:
		query.Filters.DateRange = d
	}

	if m := q.Get("merchantId"); m != "" {
		query.Filters.MerchantID = m
	}

	switch a := domain.AmountRange(q.Get("amountRange")); a {
	case domain.AmountLt100, domain.Amount100To1K, domain.Amount1KTo10K, domain.AmountGt10K:
		query.Filters.AmountRange = a
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		query.Page = page
	}
	if size, err := strconv.Atoi(q.Get("pageSize")); err == nil && size > 0 {
		if size > maxPageSize {
			size = maxPageSize
		}
		query.PageSize = size
	}

	result, err := h.store.Query(r.Context(), query)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// HandleGetTransaction serves a single transaction with its timeline.
func (h *Handlers) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tx, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tx)
}

type RefundRequest struct {
	AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
	Reason      string `json:"reason" validate:"required,oneof=customer_request duplicate fraud other"`
}

// HandleRefund refunds a settled transaction.
func (h *Handlers) HandleRefund(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, err)
		return
	}

	var req RefundRequest
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

	tx, err := h.payments.Refund(r.Context(), id, req.AmountCents, domain.RefundReason(req.Reason))
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tx)
}
