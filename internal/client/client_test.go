package client

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clearway-labs/psp-console/internal/domain"
	"github.com/clearway-labs/psp-console/internal/processor"
	"github.com/clearway-labs/psp-console/internal/server/handlers"
	"github.com/clearway-labs/psp-console/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pendingOnce struct{}

func (pendingOnce) Initial() domain.PaymentStatus { return domain.PaymentPending }

func (pendingOnce) Resolution() (domain.PaymentStatus, int) { return domain.PaymentSuccess, 1 }

func newBackend(t *testing.T) *Client {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	repo := storage.NewMemoryRepository()
	rng := rand.New(rand.NewSource(3))
	require.NoError(t, storage.Seed(context.Background(), repo, rng, time.Now()))

	proc := processor.New(repo, storage.Merchants(), rng, logger,
		processor.WithOutcomeSource(pendingOnce{}),
		processor.WithSeq(storage.SeedCount),
	)

	mux := http.NewServeMux()
	handlers.NewHandlers(proc, repo, logger).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(srv.URL, logger)
}

func testDraft() domain.PaymentDraft {
	return domain.PaymentDraft{
		MerchantID:  "m_acme",
		AmountCents: 5000,
		Currency:    "USD",
		Method:      domain.MethodCard,
		Card: domain.CardDetails{
			Number:     "4242424242424242",
			Expiry:     "12/99",
			CVV:        "123",
			Cardholder: "Ada Lovelace",
		},
	}
}

func TestClient_Merchants(t *testing.T) {
	c := newBackend(t)

	merchants, err := c.Merchants(context.Background())
	require.NoError(t, err)
	assert.Len(t, merchants, 6)
	assert.Equal(t, "m_acme", merchants[0].ID)
}

func TestClient_CreateAndPoll(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)

	receipt, err := c.CreatePayment(ctx, testDraft())
	require.NoError(t, err)
	require.NotEmpty(t, receipt.ID)
	assert.Equal(t, domain.PaymentPending, receipt.Status)

	result, err := c.PaymentResult(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, result.Status)
	assert.Equal(t, receipt.ID, result.ID)
}

func TestClient_CreatePayment_FieldErrors(t *testing.T) {
	c := newBackend(t)

	draft := testDraft()
	draft.Card.Expiry = "01/20"

	_, err := c.CreatePayment(context.Background(), draft)
	require.Error(t, err)

	var fieldErr *FieldErrorsError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "Card has expired", fieldErr.Fields["card.expiry"])
}

func TestClient_PaymentResult_NotFound(t *testing.T) {
	c := newBackend(t)

	_, err := c.PaymentResult(context.Background(), "T-00000000-000")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestClient_Transactions(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)

	page, err := c.Transactions(ctx, domain.DefaultFilters(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, storage.SeedCount, page.Total)
	assert.Len(t, page.Items, 10)

	filters := domain.DefaultFilters()
	filters.Status = domain.TabFailed
	page, err = c.Transactions(ctx, filters, 1, 50)
	require.NoError(t, err)
	for _, tx := range page.Items {
		assert.Equal(t, domain.TxFailed, tx.Status)
	}
}

func TestClient_TransactionAndRefund(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)

	filters := domain.DefaultFilters()
	filters.Status = domain.TabSuccess
	page, err := c.Transactions(ctx, filters, 1, 1)
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	id := page.Items[0].ID

	tx, err := c.Transaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, tx.ID)

	refunded, err := c.RefundTransaction(ctx, id, tx.AmountCents, domain.RefundCustomerRequest)
	require.NoError(t, err)
	assert.Equal(t, domain.TxRefunded, refunded.Status)

	_, err = c.RefundTransaction(ctx, id, tx.AmountCents, domain.RefundDuplicate)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidState))
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Merchants(ctx)
		require.Error(t, err)
	}

	// The breaker is open now: calls fail fast as UPSTREAM_UNAVAILABLE.
	_, err := c.Merchants(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUnavailable))
}
