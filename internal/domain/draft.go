package domain

// PaymentMethod selects how a draft payment is funded.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodEWallet      PaymentMethod = "e_wallet"
)

// MaxMetadataEntries bounds the metadata list on a draft.
const MaxMetadataEntries = 10

// CardDetails carries the card fields required when Method is card.
// Expiry is "MM/YY".
type CardDetails struct {
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	Cardholder string `json:"cardholder"`
}

// MetadataEntry is one key/value pair attached to a payment. Keys must be
// alphanumeric or underscore and unique within a draft.
type MetadataEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PaymentDraft is the in-progress payment request being edited. It is owned
// by a single creating session and never persisted or shared.
type PaymentDraft struct {
	MerchantID  string          `json:"merchantId"`
	AmountCents int64           `json:"amountCents"`
	Currency    string          `json:"currency"`
	ReferenceID string          `json:"referenceId,omitempty"`
	Description string          `json:"description,omitempty"`
	Method      PaymentMethod   `json:"method"`
	Card        CardDetails     `json:"card"`
	Metadata    []MetadataEntry `json:"metadata,omitempty"`
}

// NewPaymentDraft returns an empty draft with the defaults the form starts
// from.
func NewPaymentDraft() PaymentDraft {
	return PaymentDraft{
		Currency: "USD",
		Method:   MethodCard,
	}
}
