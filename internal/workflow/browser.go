package workflow

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/clearway-labs/psp-console/internal/domain"
)

const (
	defaultBrowserPageSize = 10
	defaultDebounce        = 300 * time.Millisecond

	// exportPageSize is the chunk size for export fetches. The server caps
	// page sizes, so the export pages through the total in chunks instead of
	// asking for everything in one request.
	exportPageSize = 100
)

// Showing is the derived "X to Y of N" pagination summary.
type Showing struct {
	From  int
	To    int
	Total int
}

// BrowserSnapshot is a point-in-time copy of the list state for rendering.
type BrowserSnapshot struct {
	Filters  domain.TransactionFilters
	Page     int
	PageSize int
	Loading  bool
	Err      error
	Items    []domain.Transaction
	Total    int
}

// TransactionBrowser turns a filter snapshot plus pagination into exactly one
// authoritative result set. Every dispatch bumps a sequence counter and a
// response only lands if no newer query was dispatched meanwhile, so the list
// always reflects the most recently initiated query. Free-text input is
// debounced 300ms; every other filter change applies immediately and resets
// to page 1.
type TransactionBrowser struct {
	lister TransactionLister
	logger *slog.Logger

	debounceInterval time.Duration

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	filters  domain.TransactionFilters
	page     int
	pageSize int
	seq      uint64
	loading  bool
	err      error
	result   domain.PagedResult
	debounce *time.Timer
	closed   bool
}

type BrowserOption func(*TransactionBrowser)

// WithDebounce overrides the search debounce interval, for tests.
func WithDebounce(d time.Duration) BrowserOption {
	return func(b *TransactionBrowser) { b.debounceInterval = d }
}

func NewTransactionBrowser(ctx context.Context, lister TransactionLister, logger *slog.Logger, opts ...BrowserOption) *TransactionBrowser {
	ctx, cancel := context.WithCancel(ctx)
	b := &TransactionBrowser{
		lister:           lister,
		logger:           logger,
		debounceInterval: defaultDebounce,
		ctx:              ctx,
		cancel:           cancel,
		filters:          domain.DefaultFilters(),
		page:             1,
		pageSize:         defaultBrowserPageSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Refresh dispatches the current query.
func (b *TransactionBrowser) Refresh() {
	b.mu.Lock()
	b.dispatchLocked()
	b.mu.Unlock()
}

// dispatchLocked captures the current sequence number and filters, then
// fetches in the background. Callers hold the lock.
func (b *TransactionBrowser) dispatchLocked() {
	if b.closed {
		return
	}

	b.seq++
	seq := b.seq
	filters := b.filters
	page, size := b.page, b.pageSize
	b.loading = true

	go func() {
		result, err := b.lister.Transactions(b.ctx, filters, page, size)

		b.mu.Lock()
		defer b.mu.Unlock()
		if seq != b.seq {
			// A newer query was dispatched while this one was in flight.
			b.logger.Debug("stale transaction response discarded", "seq", seq, "latest", b.seq)
			return
		}
		b.loading = false
		if err != nil {
			b.err = err
			return
		}
		b.err = nil
		b.result = result
	}()
}

// SetStatus applies the status tab and resets to page 1.
func (b *TransactionBrowser) SetStatus(status domain.StatusTab) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters.Status = status
	b.page = 1
	b.dispatchLocked()
}

// SetDateRange applies the date range and resets to page 1.
func (b *TransactionBrowser) SetDateRange(dateRange domain.DateRange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters.DateRange = dateRange
	b.page = 1
	b.dispatchLocked()
}

// SetMerchant applies the merchant facet and resets to page 1.
func (b *TransactionBrowser) SetMerchant(merchantID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters.MerchantID = merchantID
	b.page = 1
	b.dispatchLocked()
}

// SetAmountRange applies the amount bucket and resets to page 1.
func (b *TransactionBrowser) SetAmountRange(amountRange domain.AmountRange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters.AmountRange = amountRange
	b.page = 1
	b.dispatchLocked()
}

// SetQuery updates the free-text search. The value only becomes part of the
// effective filter snapshot after the debounce interval passes without
// another keystroke.
func (b *TransactionBrowser) SetQuery(query string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if b.debounce != nil {
		b.debounce.Stop()
	}
	b.debounce = time.AfterFunc(b.debounceInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.filters.Query = query
		b.page = 1
		b.dispatchLocked()
	})
}

// SetPage navigates without touching the filters.
func (b *TransactionBrowser) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page = page
	b.dispatchLocked()
}

// SetPageSize changes the page size and resets to page 1.
func (b *TransactionBrowser) SetPageSize(size int) {
	if size < 1 {
		size = defaultBrowserPageSize
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pageSize = size
	b.page = 1
	b.dispatchLocked()
}

// Showing derives the "X to Y of N" summary from the current page and total.
func (b *TransactionBrowser) Showing() Showing {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := b.result.Total
	if total == 0 {
		return Showing{From: 0, To: 0, Total: 0}
	}

	from := (b.page-1)*b.pageSize + 1
	to := b.page * b.pageSize
	if to > total {
		to = total
	}
	return Showing{From: from, To: to, Total: total}
}

// Snapshot returns a copy of the current list state.
func (b *TransactionBrowser) Snapshot() BrowserSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := BrowserSnapshot{
		Filters:  b.filters,
		Page:     b.page,
		PageSize: b.pageSize,
		Loading:  b.loading,
		Err:      b.err,
		Total:    b.result.Total,
	}
	snap.Items = make([]domain.Transaction, len(b.result.Items))
	copy(snap.Items, b.result.Items)
	return snap
}

// ExportCSV re-fetches the full result set for the current filters and writes
// it out, paging in exportPageSize chunks until the reported total is covered.
// It never reuses the displayed page, and it fails rather than emit a partial
// file when the rows run out before the total is reached.
func (b *TransactionBrowser) ExportCSV(ctx context.Context, w io.Writer) error {
	b.mu.Lock()
	filters := b.filters
	b.mu.Unlock()

	cw := csv.NewWriter(w)
	header := []string{"id", "reference", "createdAt", "merchant", "amountCents", "currency", "feeCents", "netCents", "method", "status"}
	if err := cw.Write(header); err != nil {
		return err
	}

	written := 0
	for page := 1; ; page++ {
		chunk, err := b.lister.Transactions(ctx, filters, page, exportPageSize)
		if err != nil {
			return fmt.Errorf("export fetch page %d: %w", page, err)
		}
		for _, tx := range chunk.Items {
			record := []string{
				tx.ID,
				tx.Reference,
				tx.CreatedAt.Format(time.RFC3339),
				tx.MerchantName,
				strconv.FormatInt(tx.AmountCents, 10),
				tx.Currency,
				strconv.FormatInt(tx.FeeCents, 10),
				strconv.FormatInt(tx.NetCents, 10),
				tx.Method,
				string(tx.Status),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		written += len(chunk.Items)
		if written >= chunk.Total {
			break
		}
		if len(chunk.Items) == 0 {
			return fmt.Errorf("export incomplete: %d of %d rows", written, chunk.Total)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Close cancels in-flight queries and the pending debounce. Must be called
// when the owning view goes away.
func (b *TransactionBrowser) Close() {
	b.mu.Lock()
	b.closed = true
	if b.debounce != nil {
		b.debounce.Stop()
		b.debounce = nil
	}
	b.mu.Unlock()

	b.cancel()
}
