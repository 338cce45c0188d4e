// Package storage defines the transaction repository capability and its
// implementations. The workflow and handlers never touch a concrete store
// directly.
package storage

import (
	"context"

	"github.com/clearway-labs/psp-console/internal/domain"
)

// TransactionQuery combines a filter snapshot with pagination. Page is
// 1-based.
type TransactionQuery struct {
	Filters  domain.TransactionFilters
	Page     int
	PageSize int
}

// Repository is the persistence capability for transactions: lookup, filtered
// listing, insert and last-write-wins update per id.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	Query(ctx context.Context, q TransactionQuery) (domain.PagedResult, error)
	Insert(ctx context.Context, tx *domain.Transaction) error
	Update(ctx context.Context, tx *domain.Transaction) error
}
