package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/clearway-labs/psp-console/internal/domain"
	"github.com/clearway-labs/psp-console/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

type stubMerchants struct {
	merchants []domain.Merchant
	err       error
	calls     atomic.Int32
}

func (s *stubMerchants) Merchants(ctx context.Context) ([]domain.Merchant, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.merchants, nil
}

type stubSubmitter struct {
	fn func(draft domain.PaymentDraft) (domain.SubmitReceipt, error)
}

func (s *stubSubmitter) CreatePayment(ctx context.Context, draft domain.PaymentDraft) (domain.SubmitReceipt, error) {
	return s.fn(draft)
}

type stubResults struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*domain.PaymentResult, error)
}

func (s *stubResults) PaymentResult(ctx context.Context, id string) (*domain.PaymentResult, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call)
}

func (s *stubResults) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// repoLister adapts the in-memory repository to the browser's lister.
type repoLister struct {
	repo *storage.MemoryRepository
}

func (l repoLister) Transactions(ctx context.Context, filters domain.TransactionFilters, page, pageSize int) (domain.PagedResult, error) {
	return l.repo.Query(ctx, storage.TransactionQuery{Filters: filters, Page: page, PageSize: pageSize})
}

func loadedDirectory(t *testing.T) *Directory {
	t.Helper()
	dir := NewDirectory(&stubMerchants{merchants: storage.Merchants()})
	require.NoError(t, dir.Load(context.Background()))
	return dir
}

func fillValidCardDraft(f *DraftForm) {
	f.SetMerchant("m_acme")
	f.SetAmountCents(5000)
	f.SetCardNumber("4242424242424242")
	f.SetCardExpiry("12/99")
	f.SetCardCVV("123")
	f.SetCardholder("Ada Lovelace")
}

func TestDirectory_LoadCachesOnce(t *testing.T) {
	ctx := context.Background()
	stub := &stubMerchants{merchants: storage.Merchants()}
	dir := NewDirectory(stub)

	require.NoError(t, dir.Load(ctx))
	require.NoError(t, dir.Load(ctx))
	assert.Equal(t, int32(1), stub.calls.Load())

	require.NoError(t, dir.Reload(ctx))
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestDirectory_Resolve(t *testing.T) {
	dir := loadedDirectory(t)

	m := dir.Resolve("m_acme")
	require.NotNil(t, m)
	assert.Equal(t, "Acme Corp", m.Name)

	assert.Nil(t, dir.Resolve("m_nobody"))
}

func TestDirectory_Search(t *testing.T) {
	dir := loadedDirectory(t)

	assert.Len(t, dir.Search(""), 6)

	hits := dir.Search("acme")
	require.Len(t, hits, 1)
	assert.Equal(t, "m_acme", hits[0].ID)

	assert.Empty(t, dir.Search("no such merchant"))
}

func TestDirectory_LoadError(t *testing.T) {
	stub := &stubMerchants{err: errors.New("boom")}
	dir := NewDirectory(stub)

	require.Error(t, dir.Load(context.Background()))
	assert.Empty(t, dir.Merchants())

	// A later Load retries because nothing was cached.
	stub.err = nil
	stub.merchants = storage.Merchants()
	require.NoError(t, dir.Load(context.Background()))
	assert.Len(t, dir.Merchants(), 6)
}

func TestDraftForm_MerchantSwitchAdjustsCurrency(t *testing.T) {
	form := NewDraftForm(loadedDirectory(t))

	form.SetCurrency("GBP")
	form.SetMerchant("m_acme") // Acme supports USD/EUR only

	assert.Equal(t, "USD", form.Draft().Currency)

	form.SetCurrency("EUR")
	form.SetMerchant("m_zen") // Zenith supports EUR, keep it
	assert.Equal(t, "EUR", form.Draft().Currency)
}

func TestDraftForm_EditClearsFieldError(t *testing.T) {
	form := NewDraftForm(loadedDirectory(t))
	fillValidCardDraft(form)
	form.SetCardNumber("1111")

	errs := form.ValidateAll()
	require.Equal(t, "Invalid card number", errs[domain.FieldCardNumber])

	// Typing into the field drops its stale error right away.
	form.SetCardNumber("4242424242424242")
	_, exists := form.Errors()[domain.FieldCardNumber]
	assert.False(t, exists)
}

func TestDraftForm_ValidateFieldOnlyTouchesThatField(t *testing.T) {
	form := NewDraftForm(loadedDirectory(t))
	// Everything is invalid, but only the amount gets blurred.
	msg, bad := form.ValidateField(domain.FieldAmount)
	assert.True(t, bad)
	assert.Equal(t, "Enter a valid amount", msg)

	errs := form.Errors()
	assert.Len(t, errs, 1)
	assert.Contains(t, errs, domain.FieldAmount)
}

func TestDraftForm_ValidateAllAggregates(t *testing.T) {
	form := NewDraftForm(loadedDirectory(t))

	errs := form.ValidateAll()
	assert.Contains(t, errs, domain.FieldMerchant)
	assert.Contains(t, errs, domain.FieldAmount)
	assert.Contains(t, errs, domain.FieldCardNumber)
	assert.Contains(t, errs, domain.FieldCardExpiry)
	assert.Contains(t, errs, domain.FieldCardCVV)
	assert.Contains(t, errs, domain.FieldCardholder)
}

func TestDraftForm_DirtyAndReset(t *testing.T) {
	form := NewDraftForm(loadedDirectory(t))
	assert.False(t, form.Dirty())

	form.SetDescription("march invoices")
	assert.True(t, form.Dirty())

	form.Reset()
	assert.False(t, form.Dirty())
	assert.Equal(t, domain.NewPaymentDraft(), form.Draft())
}

func TestDraftForm_AmountOverMerchantLimit(t *testing.T) {
	form := NewDraftForm(loadedDirectory(t))
	form.SetMerchant("m_acme")
	form.SetAmountCents(2500001)

	msg, bad := form.ValidateField(domain.FieldAmount)
	assert.True(t, bad)
	assert.Equal(t, "Amount exceeds merchant limit (25000.00 USD)", msg)
}
