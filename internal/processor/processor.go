// Package processor stands in for the payment processor behind the console.
// It decides payment outcomes, resolves pending payments after a few status
// fetches, and applies refunds. A real integration replaces OutcomeSource
// and keeps the same id+status contract.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clearway-labs/psp-console/internal/domain"
	"github.com/clearway-labs/psp-console/internal/storage"
)

// OutcomeSource decides the initial status of a created payment and how a
// pending payment eventually resolves.
type OutcomeSource interface {
	// Initial returns the status reported at creation time.
	Initial() domain.PaymentStatus
	// Resolution returns the terminal status a pending payment reaches and
	// after how many result fetches it does so.
	Resolution() (domain.PaymentStatus, int)
}

// weightedOutcomes is the demo distribution: ~50% success, ~30% pending,
// ~20% failed at creation; pending resolves to success 70% of the time after
// 3 or 4 fetches.
type weightedOutcomes struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (w *weightedOutcomes) Initial() domain.PaymentStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.rng.Float64()
	switch {
	case r < 0.5:
		return domain.PaymentSuccess
	case r < 0.8:
		return domain.PaymentPending
	default:
		return domain.PaymentFailed
	}
}

func (w *weightedOutcomes) Resolution() (domain.PaymentStatus, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	status := domain.PaymentSuccess
	if w.rng.Float64() >= 0.7 {
		status = domain.PaymentFailed
	}
	polls := 3
	if w.rng.Float64() < 0.5 {
		polls = 4
	}
	return status, polls
}

var declineErrors = []domain.ResultError{
	{Code: "E-4001", Message: "Insufficient funds"},
	{Code: "E-4012", Message: "Card declined"},
	{Code: "E-4220", Message: "Invalid recipient details"},
}

var networks = []string{"Visa", "Mastercard", "Amex"}

type pendingResolution struct {
	remaining int
	final     domain.PaymentStatus
	declErr   *domain.ResultError
}

type Processor struct {
	repo      storage.Repository
	directory map[string]domain.Merchant
	outcomes  OutcomeSource
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	rng     *rand.Rand
	pending map[string]*pendingResolution
	seq     int
}

type Option func(*Processor)

// WithOutcomeSource replaces the weighted random outcome decision.
func WithOutcomeSource(src OutcomeSource) Option {
	return func(p *Processor) { p.outcomes = src }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithSeq sets the starting display-id sequence, typically the seed size.
func WithSeq(seq int) Option {
	return func(p *Processor) { p.seq = seq }
}

func New(repo storage.Repository, merchants []domain.Merchant, rng *rand.Rand, logger *slog.Logger, opts ...Option) *Processor {
	directory := make(map[string]domain.Merchant, len(merchants))
	for _, m := range merchants {
		directory[m.ID] = m
	}

	p := &Processor{
		repo:      repo,
		directory: directory,
		outcomes:  &weightedOutcomes{rng: rng},
		logger:    logger,
		now:       time.Now,
		rng:       rng,
		pending:   make(map[string]*pendingResolution),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Merchants returns the directory served to clients.
func (p *Processor) Merchants() []domain.Merchant {
	out := make([]domain.Merchant, 0, len(p.directory))
	for _, id := range sortedKeys(p.directory) {
		out = append(out, p.directory[id])
	}
	return out
}

// CreatePayment accepts a validated draft, records the transaction, and
// returns the processor's id and initial status. Pending payments are
// scheduled to resolve after a few result fetches.
func (p *Processor) CreatePayment(ctx context.Context, draft domain.PaymentDraft) (domain.SubmitReceipt, error) {
	merchant, ok := p.directory[draft.MerchantID]
	if !ok {
		return domain.SubmitReceipt{}, domain.NewUnknownMerchantError(draft.MerchantID)
	}
	if draft.AmountCents <= 0 || draft.AmountCents > merchant.LimitCents {
		return domain.SubmitReceipt{}, domain.NewInvalidAmountError(draft.AmountCents)
	}

	now := p.now()
	status := p.outcomes.Initial()
	feeCents := domain.FeeCents(draft.AmountCents)

	p.mu.Lock()
	p.seq++
	seq := p.seq
	network := networks[p.rng.Intn(len(networks))]
	var declErr *domain.ResultError
	if status == domain.PaymentFailed {
		e := declineErrors[p.rng.Intn(len(declineErrors))]
		declErr = &e
	}
	p.mu.Unlock()

	id := storage.FormatTransactionID(now, seq)
	reference := draft.ReferenceID
	if reference == "" {
		reference = storage.FormatReference(now, seq)
	}

	txStatus := transactionStatus(status)
	tx := domain.Transaction{
		ID:           id,
		Reference:    reference,
		CreatedAt:    now,
		MerchantID:   merchant.ID,
		MerchantName: merchant.Name,
		AmountCents:  draft.AmountCents,
		Currency:     draft.Currency,
		FeeCents:     feeCents,
		NetCents:     draft.AmountCents - feeCents,
		Method:       methodLabel(draft),
		Network:      network,
		Status:       txStatus,
		Timeline:     domain.BuildTimeline(txStatus, now),
		Error:        declErr,
	}

	if err := p.repo.Insert(ctx, &tx); err != nil {
		return domain.SubmitReceipt{}, domain.NewInternalError(fmt.Errorf("insert transaction: %w", err))
	}

	if status == domain.PaymentPending {
		final, polls := p.outcomes.Resolution()
		res := &pendingResolution{remaining: polls, final: final}
		if final == domain.PaymentFailed {
			p.mu.Lock()
			e := declineErrors[p.rng.Intn(len(declineErrors))]
			p.mu.Unlock()
			res.declErr = &e
		}
		p.mu.Lock()
		p.pending[id] = res
		p.mu.Unlock()
	}

	p.logger.Info("payment created",
		"transaction_id", id,
		"merchant_id", merchant.ID,
		"amount_cents", draft.AmountCents,
		"status", status,
	)

	return domain.SubmitReceipt{ID: id, Status: status}, nil
}

// PaymentResult reports the current outcome for a payment id. Each fetch of
// a pending payment counts toward its resolution; once the countdown reaches
// zero the transaction flips to its terminal status.
func (p *Processor) PaymentResult(ctx context.Context, id string) (*domain.PaymentResult, error) {
	tx, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if tx.Status == domain.TxPending {
		if resolved, rerr := p.resolvePending(ctx, tx); rerr != nil {
			return nil, rerr
		} else if resolved != nil {
			tx = resolved
		}
	}

	return resultFromTransaction(tx), nil
}

func (p *Processor) resolvePending(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	p.mu.Lock()
	res, ok := p.pending[tx.ID]
	if !ok {
		p.mu.Unlock()
		return nil, nil
	}
	res.remaining--
	if res.remaining > 0 {
		p.mu.Unlock()
		return nil, nil
	}
	delete(p.pending, tx.ID)
	p.mu.Unlock()

	txStatus := transactionStatus(res.final)
	tx.Status = txStatus
	tx.Error = res.declErr
	tx.Timeline = domain.BuildTimeline(txStatus, tx.CreatedAt)

	if err := p.repo.Update(ctx, tx); err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("finalize pending transaction: %w", err))
	}

	p.logger.Info("pending payment resolved", "transaction_id", tx.ID, "status", tx.Status)
	return tx, nil
}

// Refund marks a settled transaction refunded and records amount and reason.
func (p *Processor) Refund(ctx context.Context, id string, amountCents int64, reason domain.RefundReason) (*domain.Transaction, error) {
	tx, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if tx.Status != domain.TxSuccess {
		return nil, domain.NewInvalidStateError(string(tx.Status), string(domain.TxSuccess))
	}
	if amountCents <= 0 || amountCents > tx.AmountCents {
		return nil, domain.NewInvalidAmountError(amountCents)
	}

	tx.Status = domain.TxRefunded
	tx.Refund = &domain.RefundRecord{
		AmountCents: amountCents,
		Reason:      reason,
		RefundedAt:  p.now(),
	}
	tx.Timeline = domain.BuildTimeline(domain.TxRefunded, tx.CreatedAt)

	if err := p.repo.Update(ctx, tx); err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("update refunded transaction: %w", err))
	}

	p.logger.Info("transaction refunded",
		"transaction_id", id,
		"amount_cents", amountCents,
		"reason", reason,
	)
	return tx, nil
}

func transactionStatus(s domain.PaymentStatus) domain.TransactionStatus {
	switch s {
	case domain.PaymentPending:
		return domain.TxPending
	case domain.PaymentFailed:
		return domain.TxFailed
	default:
		return domain.TxSuccess
	}
}

func resultFromTransaction(tx *domain.Transaction) *domain.PaymentResult {
	var status domain.PaymentStatus
	switch tx.Status {
	case domain.TxPending:
		status = domain.PaymentPending
	case domain.TxFailed:
		status = domain.PaymentFailed
	default:
		status = domain.PaymentSuccess
	}

	result := &domain.PaymentResult{
		ID:           tx.ID,
		Status:       status,
		CreatedAt:    tx.CreatedAt,
		MerchantID:   tx.MerchantID,
		MerchantName: tx.MerchantName,
		AmountCents:  tx.AmountCents,
		Currency:     tx.Currency,
		Method:       methodFromLabel(tx.Method),
		ReferenceID:  tx.Reference,
		FeeCents:     tx.FeeCents,
		NetCents:     tx.NetCents,
	}
	if status == domain.PaymentFailed && tx.Error != nil {
		e := *tx.Error
		result.Error = &e
	}
	return result
}

func methodLabel(draft domain.PaymentDraft) string {
	switch draft.Method {
	case domain.MethodCard:
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, draft.Card.Number)
		last4 := "0000"
		if len(digits) >= 4 {
			last4 = digits[len(digits)-4:]
		}
		return "Card •••• " + last4
	case domain.MethodBankTransfer:
		return "Bank Transfer"
	default:
		return "E-Wallet"
	}
}

func methodFromLabel(label string) domain.PaymentMethod {
	switch {
	case strings.HasPrefix(label, "Bank Transfer"):
		return domain.MethodBankTransfer
	case strings.HasPrefix(label, "E-Wallet"):
		return domain.MethodEWallet
	default:
		return domain.MethodCard
	}
}

func sortedKeys(m map[string]domain.Merchant) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
