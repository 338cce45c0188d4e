package workflow

import (
	"sync"
	"time"

	"github.com/clearway-labs/psp-console/internal/domain"
)

// DraftForm owns the in-progress payment draft, its per-field error map, and
// the dirty flag the cancel confirmation keys off. Setters clear their own
// field's error immediately; the stale message never survives an edit.
// Validation otherwise runs in two modes: per-field on blur and full on
// step-advance and submit.
type DraftForm struct {
	directory *Directory
	now       func() time.Time

	mu     sync.Mutex
	draft  domain.PaymentDraft
	errors domain.FieldErrors
	dirty  bool
}

func NewDraftForm(directory *Directory) *DraftForm {
	return &DraftForm{
		directory: directory,
		now:       time.Now,
		draft:     domain.NewPaymentDraft(),
		errors:    domain.FieldErrors{},
	}
}

// SetMerchant selects a merchant. When the current currency is not supported
// by the new merchant, the draft switches to the merchant's default currency.
func (f *DraftForm) SetMerchant(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.draft.MerchantID = id
	f.markDirty(domain.FieldMerchant)

	if m := f.directory.Resolve(id); m != nil && !m.Supports(f.draft.Currency) {
		f.draft.Currency = m.DefaultCurrency
		delete(f.errors, domain.FieldCurrency)
	}
}

func (f *DraftForm) SetAmountCents(amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.AmountCents = amount
	f.markDirty(domain.FieldAmount)
}

func (f *DraftForm) SetCurrency(currency string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Currency = currency
	f.markDirty(domain.FieldCurrency)
}

func (f *DraftForm) SetReferenceID(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.ReferenceID = ref
	f.markDirty(domain.FieldReferenceID)
}

func (f *DraftForm) SetDescription(desc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Description = desc
	f.markDirty(domain.FieldDescription)
}

func (f *DraftForm) SetMethod(method domain.PaymentMethod) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Method = method
	f.markDirty(domain.FieldMethod)
}

func (f *DraftForm) SetCardNumber(number string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Card.Number = number
	f.markDirty(domain.FieldCardNumber)
}

func (f *DraftForm) SetCardExpiry(expiry string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Card.Expiry = expiry
	f.markDirty(domain.FieldCardExpiry)
}

func (f *DraftForm) SetCardCVV(cvv string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Card.CVV = cvv
	f.markDirty(domain.FieldCardCVV)
}

func (f *DraftForm) SetCardholder(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Card.Cardholder = name
	f.markDirty(domain.FieldCardholder)
}

func (f *DraftForm) SetMetadata(entries []domain.MetadataEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Metadata = make([]domain.MetadataEntry, len(entries))
	copy(f.draft.Metadata, entries)
	f.markDirty(domain.FieldMetadata)
}

// markDirty flags the draft changed and optimistically clears the edited
// field's error. Callers hold the lock.
func (f *DraftForm) markDirty(field string) {
	f.dirty = true
	delete(f.errors, field)
}

// ValidateField re-checks a single field, the on-blur mode. Only that field's
// entry in the error map changes.
func (f *DraftForm) ValidateField(field string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	merchant := f.directory.Resolve(f.draft.MerchantID)
	msg, bad := domain.ValidateDraftField(&f.draft, merchant, field, f.now())
	if bad {
		f.errors[field] = msg
	} else {
		delete(f.errors, field)
	}
	return msg, bad
}

// ValidateAll runs the full rule set and replaces the entire error map, the
// step-advance and submit mode.
func (f *DraftForm) ValidateAll() domain.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()

	merchant := f.directory.Resolve(f.draft.MerchantID)
	f.errors = domain.ValidateDraft(&f.draft, merchant, f.now())
	return f.errorsLocked()
}

// SetErrors replaces the error map, used when the server rejects a draft the
// client considered valid.
func (f *DraftForm) SetErrors(errs domain.FieldErrors) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = domain.FieldErrors{}
	for k, v := range errs {
		f.errors[k] = v
	}
}

// Draft returns a snapshot of the current draft.
func (f *DraftForm) Draft() domain.PaymentDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.draft
	if f.draft.Metadata != nil {
		cp.Metadata = make([]domain.MetadataEntry, len(f.draft.Metadata))
		copy(cp.Metadata, f.draft.Metadata)
	}
	return cp
}

// Errors returns a copy of the current error map.
func (f *DraftForm) Errors() domain.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errorsLocked()
}

func (f *DraftForm) errorsLocked() domain.FieldErrors {
	out := make(domain.FieldErrors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Dirty reports whether any field changed since the form was created.
func (f *DraftForm) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

// Reset discards the draft and starts over from the defaults.
func (f *DraftForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = domain.NewPaymentDraft()
	f.errors = domain.FieldErrors{}
	f.dirty = false
}
