// Package workflow holds the console's client-side logic: the payment
// creation wizard, the result poller, and the transaction browser. Each piece
// owns its timers and tears them down deterministically so no callback
// outlives its view.
package workflow

import (
	"context"

	"github.com/clearway-labs/psp-console/internal/domain"
)

// MerchantFetcher loads the merchant directory.
type MerchantFetcher interface {
	Merchants(ctx context.Context) ([]domain.Merchant, error)
}

// PaymentSubmitter sends a validated draft to the create-payment operation.
type PaymentSubmitter interface {
	CreatePayment(ctx context.Context, draft domain.PaymentDraft) (domain.SubmitReceipt, error)
}

// ResultFetcher reads the current outcome for a payment id.
type ResultFetcher interface {
	PaymentResult(ctx context.Context, id string) (*domain.PaymentResult, error)
}

// TransactionLister serves one page of the filtered transaction list.
type TransactionLister interface {
	Transactions(ctx context.Context, filters domain.TransactionFilters, page, pageSize int) (domain.PagedResult, error)
}
