package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clearway-labs/psp-console/internal/domain"
)

// MemoryRepository keeps transactions in process memory. It backs local
// development and tests; the postgres implementation is the durable one.
type MemoryRepository struct {
	mu  sync.RWMutex
	txs map[string]domain.Transaction
	now func() time.Time
}

type MemoryOption func(*MemoryRepository)

// WithClock overrides the clock used by date-range filtering.
func WithClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRepository) { r.now = now }
}

func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		txs: make(map[string]domain.Transaction),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.txs[id]
	if !ok {
		return nil, domain.NewNotFoundError("transaction", id)
	}
	cp := cloneTransaction(tx)
	return &cp, nil
}

func (r *MemoryRepository) Query(ctx context.Context, q TransactionQuery) (domain.PagedResult, error) {
	r.mu.RLock()
	now := r.now()
	matched := make([]domain.Transaction, 0, len(r.txs))
	for _, tx := range r.txs {
		if q.Filters.Matches(&tx, now) {
			matched = append(matched, cloneTransaction(tx))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (q.Page - 1) * q.PageSize
	if start < 0 {
		start = 0
	}
	if start >= total {
		return domain.PagedResult{Items: []domain.Transaction{}, Total: total}, nil
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	return domain.PagedResult{Items: matched[start:end], Total: total}, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[tx.ID] = cloneTransaction(*tx)
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.txs[tx.ID]; !ok {
		return domain.NewNotFoundError("transaction", tx.ID)
	}
	r.txs[tx.ID] = cloneTransaction(*tx)
	return nil
}

// Len reports the number of stored transactions.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.txs)
}

// cloneTransaction deep-copies the slices and pointers so callers never alias
// stored state.
func cloneTransaction(tx domain.Transaction) domain.Transaction {
	cp := tx
	if tx.Timeline != nil {
		cp.Timeline = make([]domain.TimelineEvent, len(tx.Timeline))
		copy(cp.Timeline, tx.Timeline)
	}
	if tx.Error != nil {
		e := *tx.Error
		cp.Error = &e
	}
	if tx.Refund != nil {
		rf := *tx.Refund
		cp.Refund = &rf
	}
	return cp
}
