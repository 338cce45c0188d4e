package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/clearway-labs/psp-console/internal/domain"
)

// Step is the wizard's position.
type Step int

const (
	StepEdit Step = iota
	StepReview
	StepSubmitted
)

// ErrInvalidDraft is returned when advancing or submitting fails validation.
// The per-field messages live on the form's error map.
var ErrInvalidDraft = errors.New("draft failed validation")

// ErrNotOnReview is returned when Submit is called from the wrong step.
var ErrNotOnReview = errors.New("submit is only available from the review step")

// Wizard sequences the two-step create flow: Edit, Review, then a terminal
// submitted state. Advancing to review is gated on full validation; going
// back is unconditional. Submit re-validates defensively and stays on Review
// when validation or the network call fails, so the user can retry in place.
type Wizard struct {
	form      *DraftForm
	submitter PaymentSubmitter

	mu           sync.Mutex
	step         Step
	cancelPrompt bool
	receipt      domain.SubmitReceipt
}

func NewWizard(form *DraftForm, submitter PaymentSubmitter) *Wizard {
	return &Wizard{form: form, submitter: submitter}
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// ContinueToReview runs full validation. On any failing rule the wizard stays
// on Edit with every violated field populated.
func (w *Wizard) ContinueToReview() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepEdit {
		return nil
	}
	if errs := w.form.ValidateAll(); !errs.Valid() {
		return ErrInvalidDraft
	}
	w.step = StepReview
	return nil
}

// BackToEdit returns to the edit step unconditionally.
func (w *Wizard) BackToEdit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepReview {
		w.step = StepEdit
	}
}

// RequestCancel starts leaving the wizard. A clean draft discards
// immediately; a dirty one opens the confirmation prompt instead.
func (w *Wizard) RequestCancel() (discarded bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.form.Dirty() {
		w.form.Reset()
		return true
	}
	w.cancelPrompt = true
	return false
}

// CancelPromptOpen reports whether the confirmation dialog is showing.
func (w *Wizard) CancelPromptOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancelPrompt
}

// ConfirmCancel discards the draft and closes the prompt.
func (w *Wizard) ConfirmCancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelPrompt = false
	w.form.Reset()
	w.step = StepEdit
}

// DeclineCancel closes the prompt; the current step is unchanged.
func (w *Wizard) DeclineCancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelPrompt = false
}

// Submit re-runs full validation and sends the draft. Validation failure
// keeps the wizard on Review with the errors set; it never falls back to
// Edit. A transport failure also stays on Review so the user can retry. On
// success the wizard reaches the submitted state and hands the receipt to
// the result view.
func (w *Wizard) Submit(ctx context.Context) (domain.SubmitReceipt, error) {
	w.mu.Lock()
	if w.step != StepReview {
		w.mu.Unlock()
		return domain.SubmitReceipt{}, ErrNotOnReview
	}
	w.mu.Unlock()

	if errs := w.form.ValidateAll(); !errs.Valid() {
		return domain.SubmitReceipt{}, ErrInvalidDraft
	}

	receipt, err := w.submitter.CreatePayment(ctx, w.form.Draft())
	if err != nil {
		return domain.SubmitReceipt{}, err
	}

	w.mu.Lock()
	w.step = StepSubmitted
	w.receipt = receipt
	w.mu.Unlock()
	return receipt, nil
}

// Receipt returns the submission receipt once the wizard is submitted.
func (w *Wizard) Receipt() (domain.SubmitReceipt, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.receipt, w.step == StepSubmitted
}
