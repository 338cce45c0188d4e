package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Draft field identifiers, used as keys of the error map. Card fields use a
// dotted path so the form can address nested inputs uniformly.
const (
	FieldMerchant    = "merchantId"
	FieldAmount      = "amountCents"
	FieldCurrency    = "currency"
	FieldMethod      = "method"
	FieldCardNumber  = "card.number"
	FieldCardExpiry  = "card.expiry"
	FieldCardCVV     = "card.cvv"
	FieldCardholder  = "card.cardholder"
	FieldMetadata    = "metadata"
	FieldReferenceID = "referenceId"
	FieldDescription = "description"
)

// FieldErrors maps draft fields to user-facing messages. Validation failures
// are data, not Go errors: an empty map means the draft is valid.
type FieldErrors map[string]string

func (fe FieldErrors) Valid() bool { return len(fe) == 0 }

var (
	expiryRe      = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
	cvvRe         = regexp.MustCompile(`^\d{3,4}$`)
	metadataKeyRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	nonDigitRe    = regexp.MustCompile(`\D`)
)

// ValidateDraft runs the full rule set over a draft. merchant may be nil when
// the selected merchant has not been resolved; the amount ceiling is then not
// enforced. Validity is always re-derived from the current draft, never
// cached.
func ValidateDraft(d *PaymentDraft, merchant *Merchant, now time.Time) FieldErrors {
	errs := FieldErrors{}

	if d.MerchantID == "" {
		errs[FieldMerchant] = "Please select a merchant"
	}

	if d.Currency == "" {
		errs[FieldCurrency] = "Please select currency"
	}

	if d.AmountCents <= 0 {
		errs[FieldAmount] = "Enter a valid amount"
	} else if merchant != nil && d.AmountCents > merchant.LimitCents {
		errs[FieldAmount] = fmt.Sprintf(
			"Amount exceeds merchant limit (%.2f %s)",
			float64(merchant.LimitCents)/100, d.Currency,
		)
	}

	if d.Method == "" {
		errs[FieldMethod] = "Please select a payment method"
	}

	if d.Method == MethodCard {
		if !LuhnValid(d.Card.Number) {
			errs[FieldCardNumber] = "Invalid card number"
		}
		if !ExpiryInFuture(d.Card.Expiry, now) {
			errs[FieldCardExpiry] = "Card has expired"
		}
		if !cvvRe.MatchString(d.Card.CVV) {
			errs[FieldCardCVV] = "Invalid CVV"
		}
		if strings.TrimSpace(d.Card.Cardholder) == "" {
			errs[FieldCardholder] = "Enter cardholder name"
		}
	}

	if msg := validateMetadata(d.Metadata); msg != "" {
		errs[FieldMetadata] = msg
	}

	return errs
}

// ValidateDraftField re-runs the full rule set and reports the outcome for a
// single field: the message and whether the field currently has an error.
// Used by the form's on-blur validation mode.
func ValidateDraftField(d *PaymentDraft, merchant *Merchant, field string, now time.Time) (string, bool) {
	msg, ok := ValidateDraft(d, merchant, now)[field]
	return msg, ok
}

// LuhnValid checks a card number's checksum: alternating doubling from the
// rightmost digit, doubled digits above 9 reduced by 9, total mod 10 = 0.
// Numbers shorter than 12 digits never pass.
func LuhnValid(number string) bool {
	digits := nonDigitRe.ReplaceAllString(number, "")
	if len(digits) < 12 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ExpiryInFuture parses "MM/YY" and reports whether the card is still valid,
// counting the full last day of the expiry month (year = 2000+YY).
func ExpiryInFuture(mmYY string, now time.Time) bool {
	m := expiryRe.FindStringSubmatch(mmYY)
	if m == nil {
		return false
	}

	month := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	year := 2000 + int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if month < 1 || month > 12 {
		return false
	}

	// Day 0 of the following month is the last day of the expiry month.
	exp := time.Date(year, time.Month(month)+1, 0, 23, 59, 59, 999_000_000, now.Location())
	return !exp.Before(now)
}

// validateMetadata enforces key shape and uniqueness. Blank keys are skipped;
// the first violation wins and reporting stops there.
func validateMetadata(entries []MetadataEntry) string {
	if len(entries) == 0 {
		return ""
	}
	if len(entries) > MaxMetadataEntries {
		return fmt.Sprintf("At most %d metadata entries", MaxMetadataEntries)
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		key := strings.TrimSpace(e.Key)
		if key == "" {
			continue
		}
		if !metadataKeyRe.MatchString(key) {
			return "Invalid key format"
		}
		if _, dup := seen[key]; dup {
			return "Duplicate key"
		}
		seen[key] = struct{}{}
	}
	return ""
}
