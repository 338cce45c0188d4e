// Package client is the typed API client the console workflows talk through.
// Calls go through a circuit breaker so a flapping backend degrades into
// fast UPSTREAM_UNAVAILABLE errors instead of hanging every poll.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/clearway-labs/psp-console/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

const defaultTimeout = 10 * time.Second

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// FieldErrorsError carries server-side per-field validation messages back to
// the form.
type FieldErrorsError struct {
	Fields domain.FieldErrors
}

func (e *FieldErrorsError) Error() string {
	return fmt.Sprintf("draft rejected: %d field errors", len(e.Fields))
}

type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

func New(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetRetryCount(0), // the poller retries on its own schedule
		logger: logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "console-api",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"circuit", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Merchants fetches the merchant directory.
func (c *Client) Merchants(ctx context.Context) ([]domain.Merchant, error) {
	var merchants []domain.Merchant
	if err := c.get(ctx, "/api/v1/merchants", nil, &merchants); err != nil {
		return nil, err
	}
	return merchants, nil
}

// CreatePayment submits a draft and returns the processor's receipt.
func (c *Client) CreatePayment(ctx context.Context, draft domain.PaymentDraft) (domain.SubmitReceipt, error) {
	var receipt domain.SubmitReceipt
	if err := c.post(ctx, "/api/v1/payments", draft, &receipt); err != nil {
		return domain.SubmitReceipt{}, err
	}
	return receipt, nil
}

// PaymentResult fetches the current outcome for a payment id.
func (c *Client) PaymentResult(ctx context.Context, id string) (*domain.PaymentResult, error) {
	var result domain.PaymentResult
	if err := c.get(ctx, "/api/v1/payments/"+url.PathEscape(id)+"/result", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Transactions fetches one page of the filtered transaction list.
func (c *Client) Transactions(ctx context.Context, filters domain.TransactionFilters, page, pageSize int) (domain.PagedResult, error) {
	params := url.Values{}
	if filters.Status != "" && filters.Status != domain.TabAll {
		params.Set("status", string(filters.Status))
	}
	if filters.Query != "" {
		params.Set("query", filters.Query)
	}
	if filters.DateRange != "" && filters.DateRange != domain.DateAny {
		params.Set("dateRange", string(filters.DateRange))
	}
	if filters.MerchantID != "" && filters.MerchantID != domain.MerchantAny {
		params.Set("merchantId", filters.MerchantID)
	}
	if filters.AmountRange != "" && filters.AmountRange != domain.AmountAny {
		params.Set("amountRange", string(filters.AmountRange))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))

	var result domain.PagedResult
	if err := c.get(ctx, "/api/v1/transactions", params, &result); err != nil {
		return domain.PagedResult{}, err
	}
	return result, nil
}

// Transaction fetches a single transaction with its timeline.
func (c *Client) Transaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := c.get(ctx, "/api/v1/transactions/"+url.PathEscape(id), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// RefundTransaction refunds a settled transaction.
func (c *Client) RefundTransaction(ctx context.Context, id string, amountCents int64, reason domain.RefundReason) (*domain.Transaction, error) {
	body := map[string]interface{}{
		"amountCents": amountCents,
		"reason":      reason,
	}
	var tx domain.Transaction
	if err := c.post(ctx, "/api/v1/transactions/"+url.PathEscape(id)+"/refund", body, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.do(ctx, func() (*resty.Response, error) {
		req := c.http.R().SetContext(ctx)
		if params != nil {
			req.SetQueryParamsFromValues(params)
		}
		return req.Get(path)
	}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(path)
	}, out)
}

func (c *Client) do(ctx context.Context, call func() (*resty.Response, error), out interface{}) error {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := call()
		if err != nil {
			return nil, err
		}
		// 5xx counts as a breaker failure, 4xx is the caller's problem.
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, fmt.Errorf("server error: %s", resp.Status())
		}
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return domain.NewUnavailableError(err)
		}
		if resp, ok := res.(*resty.Response); ok {
			return c.decodeError(resp)
		}
		return domain.NewUnavailableError(err)
	}

	resp := res.(*resty.Response)
	if resp.IsError() {
		return c.decodeError(resp)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return domain.NewInternalError(fmt.Errorf("decode response: %w", err))
	}
	if !envelope.Success {
		return errorFromEnvelope(resp.StatusCode(), envelope.Error)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return domain.NewInternalError(fmt.Errorf("decode response data: %w", err))
		}
	}
	return nil
}

func (c *Client) decodeError(resp *resty.Response) error {
	var envelope apiEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil || envelope.Error == nil {
		return domain.NewUnavailableError(fmt.Errorf("unexpected response: %s", resp.Status()))
	}
	return errorFromEnvelope(resp.StatusCode(), envelope.Error)
}

func errorFromEnvelope(status int, apiErr *apiError) error {
	if apiErr == nil {
		return domain.NewUnavailableError(fmt.Errorf("status %d with empty error", status))
	}
	if apiErr.Code == domain.ErrCodeValidation && len(apiErr.Fields) > 0 {
		return &FieldErrorsError{Fields: apiErr.Fields}
	}
	return &domain.DomainError{Code: apiErr.Code, Message: apiErr.Message}
}
