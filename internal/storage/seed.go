package storage

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/clearway-labs/psp-console/internal/domain"
)

var seedMerchants = []domain.Merchant{
	{ID: "m_acme", Name: "Acme Corp", LimitCents: 2500000, Currencies: []string{"USD", "EUR"}, DefaultCurrency: "USD"},
	{ID: "m_beta", Name: "Beta Inc", LimitCents: 5000000, Currencies: []string{"USD", "GBP"}, DefaultCurrency: "USD"},
	{ID: "m_gamma", Name: "Gamma Ltd", LimitCents: 1000000, Currencies: []string{"USD"}, DefaultCurrency: "USD"},
	{ID: "m_delta", Name: "Delta Co", LimitCents: 8000000, Currencies: []string{"USD", "EUR", "JPY"}, DefaultCurrency: "USD"},
	{ID: "m_epsilon", Name: "Epsilon LLC", LimitCents: 2000000, Currencies: []string{"USD", "CNY"}, DefaultCurrency: "USD"},
	{ID: "m_zen", Name: "Zenith Market", LimitCents: 12000000, Currencies: []string{"USD", "EUR", "GBP"}, DefaultCurrency: "USD"},
}

// Merchants returns the demo merchant directory.
func Merchants() []domain.Merchant {
	out := make([]domain.Merchant, len(seedMerchants))
	copy(out, seedMerchants)
	return out
}

var (
	seedNetworks = []string{"Visa", "Mastercard", "Amex"}
	seedMethods  = []string{"Visa •••• 1234", "Mastercard •••• 8899", "Amex •••• 0005"}
)

// FormatTransactionID renders the display id used across the console,
// e.g. "T-20260115-007".
func FormatTransactionID(createdAt time.Time, seq int) string {
	return fmt.Sprintf("T-%s-%03d", createdAt.Format("20060102"), seq)
}

// FormatReference renders the default reference for a transaction.
func FormatReference(createdAt time.Time, seq int) string {
	return fmt.Sprintf("REF-%d-%04d", createdAt.Year(), seq)
}

// SeedCount is the number of demo transactions generated at startup.
const SeedCount = 36

// Seed fills the repository with demo transactions spread over the last nine
// days: one every six hours, cycling statuses and merchants. rng makes the
// amounts reproducible in tests.
func Seed(ctx context.Context, repo Repository, rng *rand.Rand, now time.Time) error {
	statuses := []domain.TransactionStatus{domain.TxSuccess, domain.TxFailed, domain.TxPending, domain.TxRefunded}

	for i := 1; i <= SeedCount; i++ {
		created := now.Add(-time.Duration(i) * 6 * time.Hour)
		status := statuses[i%len(statuses)]
		merchant := seedMerchants[i%5]

		amountCents := int64(math.Round((rng.Float64()*(50000-10) + 10) * 100))
		feeCents := domain.FeeCents(amountCents)

		tx := domain.Transaction{
			ID:           FormatTransactionID(created, i),
			Reference:    FormatReference(created, i),
			CreatedAt:    created,
			MerchantID:   merchant.ID,
			MerchantName: merchant.Name,
			AmountCents:  amountCents,
			Currency:     "USD",
			FeeCents:     feeCents,
			NetCents:     amountCents - feeCents,
			Method:       seedMethods[rng.Intn(len(seedMethods))],
			Network:      seedNetworks[rng.Intn(len(seedNetworks))],
			Status:       status,
			Timeline:     domain.BuildTimeline(status, created),
		}

		if err := repo.Insert(ctx, &tx); err != nil {
			return fmt.Errorf("seed transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}
