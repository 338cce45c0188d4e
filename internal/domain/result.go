package domain

import "time"

// PaymentStatus is the processor-side outcome of a created payment. Pending
// results transition to success or failed exactly once; the other states are
// terminal.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// ResultError describes why a payment failed.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitReceipt is what the create-payment operation hands back to the
// wizard: an identifier plus the initial status.
type SubmitReceipt struct {
	ID     string        `json:"id"`
	Status PaymentStatus `json:"status"`
}

// PaymentResult is the server-authoritative outcome for a payment id. Fee,
// net and error become defined when status leaves pending.
type PaymentResult struct {
	ID           string        `json:"id"`
	Status       PaymentStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	MerchantID   string        `json:"merchantId"`
	MerchantName string        `json:"merchantName"`
	AmountCents  int64         `json:"amountCents"`
	Currency     string        `json:"currency"`
	Method       PaymentMethod `json:"method"`
	ReferenceID  string        `json:"referenceId"`
	FeeCents     int64         `json:"feeCents"`
	NetCents     int64         `json:"netCents"`
	Error        *ResultError  `json:"error,omitempty"`
}
