package domain

import "slices"

// Merchant is read-only directory data fetched once per session. LimitCents
// bounds the amount a single payment may carry.
type Merchant struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	LimitCents      int64    `json:"limitCents"`
	Currencies      []string `json:"currencies"`
	DefaultCurrency string   `json:"defaultCurrency"`
}

// Supports reports whether the merchant accepts the given currency.
func (m *Merchant) Supports(currency string) bool {
	return slices.Contains(m.Currencies, currency)
}
