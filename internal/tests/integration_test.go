package tests

import (
	"bytes"
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clearway-labs/psp-console/internal/client"
	"github.com/clearway-labs/psp-console/internal/domain"
	"github.com/clearway-labs/psp-console/internal/processor"
	"github.com/clearway-labs/psp-console/internal/server/handlers"
	"github.com/clearway-labs/psp-console/internal/server/middleware"
	"github.com/clearway-labs/psp-console/internal/storage"
	"github.com/clearway-labs/psp-console/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStack wires the full in-process stack: memory repository, processor,
// HTTP handlers behind the middleware chain, and the typed client on top.
func setupStack(t *testing.T, outcomes processor.OutcomeSource) (*client.Client, *storage.MemoryRepository) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	repo := storage.NewMemoryRepository()
	rng := rand.New(rand.NewSource(11))
	require.NoError(t, storage.Seed(context.Background(), repo, rng, time.Now()))

	opts := []processor.Option{processor.WithSeq(storage.SeedCount)}
	if outcomes != nil {
		opts = append(opts, processor.WithOutcomeSource(outcomes))
	}
	proc := processor.New(repo, storage.Merchants(), rng, logger, opts...)

	mux := http.NewServeMux()
	handlers.NewHandlers(proc, repo, logger).RegisterRoutes(mux)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return client.New(srv.URL, logger), repo
}

type scriptedOutcomes struct {
	initial domain.PaymentStatus
	final   domain.PaymentStatus
	polls   int
}

func (s scriptedOutcomes) Initial() domain.PaymentStatus { return s.initial }

func (s scriptedOutcomes) Resolution() (domain.PaymentStatus, int) { return s.final, s.polls }

func fillDraft(form *workflow.DraftForm) {
	form.SetMerchant("m_acme")
	form.SetAmountCents(5000)
	form.SetCardNumber("4242424242424242")
	form.SetCardExpiry("12/99")
	form.SetCardCVV("123")
	form.SetCardholder("Ada Lovelace")
}

// TestCreateToTerminalResult drives the wizard end to end: fill the draft,
// advance, submit, then poll the pending result until it settles.
func TestCreateToTerminalResult(t *testing.T) {
	ctx := context.Background()
	api, _ := setupStack(t, scriptedOutcomes{
		initial: domain.PaymentPending,
		final:   domain.PaymentSuccess,
		polls:   2,
	})

	dir := workflow.NewDirectory(api)
	require.NoError(t, dir.Load(ctx))

	form := workflow.NewDraftForm(dir)
	wizard := workflow.NewWizard(form, api)
	fillDraft(form)

	require.NoError(t, wizard.ContinueToReview())
	receipt, err := wizard.Submit(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, receipt.ID)
	require.Equal(t, domain.PaymentPending, receipt.Status)

	poller := workflow.NewResultPoller(api, receipt.ID, slog.New(slog.DiscardHandler),
		workflow.WithPollInterval(20*time.Millisecond),
		workflow.WithTickInterval(5*time.Millisecond),
	)
	poller.Start(ctx)
	defer poller.Stop()

	require.Eventually(t, func() bool {
		snap := poller.Snapshot()
		return snap.Result != nil && snap.Result.Status.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)

	snap := poller.Snapshot()
	assert.Equal(t, domain.PaymentSuccess, snap.Result.Status)
	assert.Equal(t, int64(145), snap.Result.FeeCents)
	assert.False(t, snap.TimedOut)

	// The new transaction is queryable by the list right away.
	browser := workflow.NewTransactionBrowser(ctx, api, slog.New(slog.DiscardHandler))
	defer browser.Close()

	browser.SetQuery(receipt.ID)
	require.Eventually(t, func() bool {
		s := browser.Snapshot()
		return s.Total == 1 && len(s.Items) == 1 && s.Items[0].ID == receipt.ID
	}, 2*time.Second, 10*time.Millisecond)
}

// A valid card draft always yields a non-empty id and a known status,
// whatever outcome the processor picks.
func TestSubmitValidatedDraft(t *testing.T) {
	ctx := context.Background()
	api, _ := setupStack(t, nil) // weighted random outcomes

	dir := workflow.NewDirectory(api)
	require.NoError(t, dir.Load(ctx))

	form := workflow.NewDraftForm(dir)
	wizard := workflow.NewWizard(form, api)
	fillDraft(form)

	require.NoError(t, wizard.ContinueToReview())
	receipt, err := wizard.Submit(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)
	assert.Contains(t, []domain.PaymentStatus{
		domain.PaymentSuccess, domain.PaymentPending, domain.PaymentFailed,
	}, receipt.Status)
}

func TestInvalidDraftNeverReachesTheServer(t *testing.T) {
	ctx := context.Background()
	api, _ := setupStack(t, nil)

	dir := workflow.NewDirectory(api)
	require.NoError(t, dir.Load(ctx))

	form := workflow.NewDraftForm(dir)
	wizard := workflow.NewWizard(form, api)
	fillDraft(form)
	form.SetCardNumber("4242424242424241")

	err := wizard.ContinueToReview()
	require.ErrorIs(t, err, workflow.ErrInvalidDraft)
	assert.Equal(t, workflow.StepEdit, wizard.Step())
	assert.Equal(t, "Invalid card number", form.Errors()[domain.FieldCardNumber])
}

func TestPendingTimesOutThenManualRefreshResolves(t *testing.T) {
	ctx := context.Background()
	api, _ := setupStack(t, scriptedOutcomes{
		initial: domain.PaymentPending,
		final:   domain.PaymentSuccess,
		polls:   5, // beyond the 3-attempt budget below
	})

	receipt, err := api.CreatePayment(ctx, domain.PaymentDraft{
		MerchantID:  "m_acme",
		AmountCents: 5000,
		Currency:    "USD",
		Method:      domain.MethodCard,
		Card: domain.CardDetails{
			Number: "4242424242424242", Expiry: "12/99", CVV: "123", Cardholder: "Ada Lovelace",
		},
	})
	require.NoError(t, err)

	poller := workflow.NewResultPoller(api, receipt.ID, slog.New(slog.DiscardHandler),
		workflow.WithPollInterval(20*time.Millisecond),
		workflow.WithTickInterval(5*time.Millisecond),
		workflow.WithMaxAttempts(3),
	)
	poller.Start(ctx)
	defer poller.Stop()

	require.Eventually(t, func() bool {
		return poller.Snapshot().TimedOut
	}, 2*time.Second, 10*time.Millisecond)

	// Manual refresh re-arms the cycle; the backend resolves on the 5th fetch.
	poller.ManualRefresh()
	require.Eventually(t, func() bool {
		snap := poller.Snapshot()
		return snap.Result != nil && snap.Result.Status == domain.PaymentSuccess
	}, 2*time.Second, 10*time.Millisecond)
}

// The export must cover every filtered row even when the total exceeds the
// server's page-size cap.
func TestExportCoversTotalBeyondServerPageCap(t *testing.T) {
	ctx := context.Background()
	api, repo := setupStack(t, nil)

	now := time.Now()
	for i := 1; i <= 120; i++ {
		created := now.Add(-time.Duration(i) * time.Minute)
		tx := domain.Transaction{
			ID:           storage.FormatTransactionID(created, 100+i),
			Reference:    storage.FormatReference(created, 100+i),
			CreatedAt:    created,
			MerchantID:   "m_acme",
			MerchantName: "Acme Corp",
			AmountCents:  int64(i) * 100,
			Currency:     "USD",
			Status:       domain.TxSuccess,
			Timeline:     domain.BuildTimeline(domain.TxSuccess, created),
		}
		require.NoError(t, repo.Insert(ctx, &tx))
	}

	browser := workflow.NewTransactionBrowser(ctx, api, slog.New(slog.DiscardHandler))
	defer browser.Close()

	var buf bytes.Buffer
	require.NoError(t, browser.ExportCSV(ctx, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1+storage.SeedCount+120)
}

func TestRefundRoundTrip(t *testing.T) {
	ctx := context.Background()
	api, _ := setupStack(t, scriptedOutcomes{initial: domain.PaymentSuccess})

	receipt, err := api.CreatePayment(ctx, domain.PaymentDraft{
		MerchantID:  "m_beta",
		AmountCents: 120000,
		Currency:    "USD",
		Method:      domain.MethodBankTransfer,
	})
	require.NoError(t, err)

	tx, err := api.RefundTransaction(ctx, receipt.ID, 120000, domain.RefundDuplicate)
	require.NoError(t, err)
	assert.Equal(t, domain.TxRefunded, tx.Status)
	require.NotNil(t, tx.Refund)
	assert.Equal(t, domain.RefundDuplicate, tx.Refund.Reason)

	got, err := api.Transaction(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxRefunded, got.Status)
	assert.Equal(t, "refund", got.Timeline[len(got.Timeline)-1].ID)
}
