package domain

import (
	"strings"
	"time"
)

// StatusTab is the status facet of the transaction list. "all" disables the
// facet; refunded transactions only surface under "all".
type StatusTab string

const (
	TabAll     StatusTab = "all"
	TabSuccess StatusTab = "success"
	TabFailed  StatusTab = "failed"
	TabPending StatusTab = "pending"
)

type DateRange string

const (
	DateAny    DateRange = "any"
	DateLast7  DateRange = "last7d"
	DateLast30 DateRange = "last30d"
)

// Cutoff returns the oldest creation time included by the range, or zero
// when the range is unbounded.
func (d DateRange) Cutoff(now time.Time) time.Time {
	switch d {
	case DateLast7:
		return now.Add(-7 * 24 * time.Hour)
	case DateLast30:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// AmountRange buckets transactions by amount in whole currency units.
type AmountRange string

const (
	AmountAny     AmountRange = "any"
	AmountLt100   AmountRange = "lt100"
	Amount100To1K AmountRange = "100to1000"
	Amount1KTo10K AmountRange = "1000to10000"
	AmountGt10K   AmountRange = "gt10000"
)

// Matches reports whether an amount in cents falls in the bucket.
func (a AmountRange) Matches(amountCents int64) bool {
	units := float64(amountCents) / 100
	switch a {
	case AmountLt100:
		return units < 100
	case Amount100To1K:
		return units >= 100 && units <= 1000
	case Amount1KTo10K:
		return units >= 1000 && units <= 10000
	case AmountGt10K:
		return units > 10000
	default:
		return true
	}
}

// MerchantAny disables the merchant facet.
const MerchantAny = "any"

// TransactionFilters is an immutable filter snapshot for the transaction
// list. Any change produces a new snapshot and resets pagination to page 1.
type TransactionFilters struct {
	Status      StatusTab
	Query       string
	DateRange   DateRange
	MerchantID  string
	AmountRange AmountRange
}

func DefaultFilters() TransactionFilters {
	return TransactionFilters{
		Status:      TabAll,
		DateRange:   DateAny,
		MerchantID:  MerchantAny,
		AmountRange: AmountAny,
	}
}

// Matches applies every facet of the snapshot to a transaction. Free text
// matches the id or reference, case-insensitive.
func (f TransactionFilters) Matches(tx *Transaction, now time.Time) bool {
	if f.Status != TabAll && tx.Status != TransactionStatus(f.Status) {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(tx.ID), q) &&
			!strings.Contains(strings.ToLower(tx.Reference), q) {
			return false
		}
	}

	if f.MerchantID != MerchantAny && f.MerchantID != "" && tx.MerchantID != f.MerchantID {
		return false
	}

	if cutoff := f.DateRange.Cutoff(now); !cutoff.IsZero() && tx.CreatedAt.Before(cutoff) {
		return false
	}

	return f.AmountRange.Matches(tx.AmountCents)
}
