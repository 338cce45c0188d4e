// Package domain holds the console's core types: transactions, merchants,
// payment drafts and their validation rules.
package domain

import "time"

// TransactionStatus represents the settled state of a transaction as shown
// in the console.
type TransactionStatus string

const (
	TxSuccess  TransactionStatus = "success"
	TxFailed   TransactionStatus = "failed"
	TxPending  TransactionStatus = "pending"
	TxRefunded TransactionStatus = "refunded"
)

// TimelineEvent is a single step in a transaction's processing history.
type TimelineEvent struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
	Tone      string    `json:"tone,omitempty"`
}

// RefundReason is the merchant-supplied justification for a refund.
type RefundReason string

const (
	RefundCustomerRequest RefundReason = "customer_request"
	RefundDuplicate       RefundReason = "duplicate"
	RefundFraud           RefundReason = "fraud"
	RefundOther           RefundReason = "other"
)

// RefundRecord captures a processed refund against a transaction.
type RefundRecord struct {
	AmountCents int64        `json:"amountCents"`
	Reason      RefundReason `json:"reason"`
	RefundedAt  time.Time    `json:"refundedAt"`
}

type Transaction struct {
	ID           string            `json:"id"`
	Reference    string            `json:"reference"`
	CreatedAt    time.Time         `json:"createdAt"`
	MerchantID   string            `json:"merchantId"`
	MerchantName string            `json:"merchantName"`
	AmountCents  int64             `json:"amountCents"`
	Currency     string            `json:"currency"`
	FeeCents     int64             `json:"feeCents"`
	NetCents     int64             `json:"netCents"`
	Method       string            `json:"method"`
	Network      string            `json:"network"`
	Status       TransactionStatus `json:"status"`
	Timeline     []TimelineEvent   `json:"timeline"`
	Error        *ResultError      `json:"error,omitempty"`
	Refund       *RefundRecord     `json:"refund,omitempty"`
}

// PagedResult is one page of a transaction listing plus the unpaged total.
type PagedResult struct {
	Items []Transaction `json:"items"`
	Total int           `json:"total"`
}

// FeeCents applies the standard fee schedule: 2.9% with a 30 cent floor.
func FeeCents(amountCents int64) int64 {
	fee := int64(float64(amountCents)*0.029 + 0.5)
	if fee < 30 {
		return 30
	}
	return fee
}

// BuildTimeline derives the processing history shown in the console from a
// transaction's status and creation time. Offsets mirror what the upstream
// processor reports.
func BuildTimeline(status TransactionStatus, createdAt time.Time) []TimelineEvent {
	events := []TimelineEvent{
		{ID: "created", Label: "Created", Timestamp: createdAt, Tone: "neutral"},
		{ID: "risk", Label: "Risk check passed", Timestamp: createdAt.Add(30 * time.Second), Tone: "success"},
		{ID: "auth", Label: "Authorization approved", Timestamp: createdAt.Add(70 * time.Second), Tone: "success"},
	}

	if status == TxFailed {
		return append(events, TimelineEvent{
			ID: "failed", Label: "Authorization failed", Timestamp: createdAt.Add(120 * time.Second), Tone: "error",
		})
	}

	events = append(events, TimelineEvent{
		ID: "captured", Label: "Captured", Timestamp: createdAt.Add(120 * time.Second), Tone: "success",
	})

	if status == TxPending {
		return append(events, TimelineEvent{
			ID: "pending", Label: "Settlement pending", Timestamp: createdAt.Add(2 * time.Hour), Tone: "warning",
		})
	}

	events = append(events, TimelineEvent{
		ID: "settled", Label: "Settled", Timestamp: createdAt.Add(2 * time.Hour), Tone: "success",
	})

	if status == TxRefunded {
		events = append(events, TimelineEvent{
			ID: "refund", Label: "Refunded", Timestamp: createdAt.Add(4 * time.Hour), Tone: "info",
		})
	}
	return events
}
