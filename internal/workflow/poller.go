package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clearway-labs/psp-console/internal/domain"
)

// PollerPhase is the load state of the result view. PhaseLoadError is a
// transport failure and offers the retry action; PhaseNotFound means the
// backend does not know the id, so retrying is pointless and the view should
// navigate away instead.
type PollerPhase int

const (
	PhaseLoading PollerPhase = iota
	PhaseLoaded
	PhaseLoadError
	PhaseNotFound
)

const (
	defaultPollInterval = 5 * time.Second
	defaultTickInterval = time.Second
	defaultMaxAttempts  = 12
)

// PollerSnapshot is a point-in-time copy of the poller's state for rendering.
type PollerSnapshot struct {
	Phase     PollerPhase
	Result    *domain.PaymentResult
	Attempts  int
	Countdown int
	TimedOut  bool
	Err       error
}

// ResultPoller resolves a pending payment by polling its result on a fixed
// cadence with a bounded attempt budget. A second one-second tick drives the
// visible countdown to the next poll. Transient fetch errors during polling
// are swallowed; the budget running out is a timeout, not a failure, and
// manual refresh re-arms the whole cycle. Stop tears both timers down; a
// poll firing after its view is gone is a defect.
type ResultPoller struct {
	fetcher ResultFetcher
	logger  *slog.Logger
	id      string

	pollInterval time.Duration
	tickInterval time.Duration
	maxAttempts  int

	mu          sync.Mutex
	ctx         context.Context
	phase       PollerPhase
	result      *domain.PaymentResult
	attempts    int
	countdown   int
	timedOut    bool
	err         error
	cancelCycle context.CancelFunc

	wg sync.WaitGroup
}

type PollerOption func(*ResultPoller)

// WithPollInterval overrides the poll cadence, for tests.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *ResultPoller) { p.pollInterval = d }
}

// WithTickInterval overrides the countdown cadence, for tests.
func WithTickInterval(d time.Duration) PollerOption {
	return func(p *ResultPoller) { p.tickInterval = d }
}

// WithMaxAttempts overrides the poll budget.
func WithMaxAttempts(n int) PollerOption {
	return func(p *ResultPoller) { p.maxAttempts = n }
}

func NewResultPoller(fetcher ResultFetcher, id string, logger *slog.Logger, opts ...PollerOption) *ResultPoller {
	p := &ResultPoller{
		fetcher:      fetcher,
		logger:       logger,
		id:           id,
		pollInterval: defaultPollInterval,
		tickInterval: defaultTickInterval,
		maxAttempts:  defaultMaxAttempts,
		phase:        PhaseLoading,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start performs the initial load. A pending result arms the polling cycle;
// a failed load waits for the explicit Retry action and is never retried
// automatically.
func (p *ResultPoller) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()

	p.load(ctx)
}

// Retry re-runs the initial load after a load error.
func (p *ResultPoller) Retry() {
	p.mu.Lock()
	if p.phase != PhaseLoadError {
		p.mu.Unlock()
		return
	}
	p.phase = PhaseLoading
	p.err = nil
	ctx := p.ctx
	p.mu.Unlock()

	p.load(ctx)
}

func (p *ResultPoller) load(ctx context.Context) {
	result, err := p.fetcher.PaymentResult(ctx, p.id)

	p.mu.Lock()
	if err != nil {
		if domain.IsNotFound(err) {
			p.phase = PhaseNotFound
		} else {
			p.phase = PhaseLoadError
		}
		p.err = err
		p.mu.Unlock()
		return
	}

	p.phase = PhaseLoaded
	p.result = result
	p.err = nil
	if result.Status == domain.PaymentPending {
		p.startCycleLocked(ctx)
	}
	p.mu.Unlock()
}

// startCycleLocked arms a fresh polling cycle. Callers hold the lock.
func (p *ResultPoller) startCycleLocked(parent context.Context) {
	p.countdown = int(p.pollInterval / time.Second)

	cycleCtx, cancel := context.WithCancel(parent)
	p.cancelCycle = cancel
	p.wg.Add(1)
	go p.run(cycleCtx)
}

func (p *ResultPoller) run(ctx context.Context) {
	defer p.wg.Done()

	poll := time.NewTicker(p.pollInterval)
	defer poll.Stop()
	tick := time.NewTicker(p.tickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-tick.C:
			p.mu.Lock()
			if p.countdown > 0 {
				p.countdown--
			}
			p.mu.Unlock()

		case <-poll.C:
			if done := p.pollOnce(ctx); done {
				return
			}
		}
	}
}

// pollOnce runs one poll tick and reports whether the cycle is over.
func (p *ResultPoller) pollOnce(ctx context.Context) bool {
	p.mu.Lock()
	p.attempts++
	attempts := p.attempts
	p.countdown = int(p.pollInterval / time.Second)
	p.mu.Unlock()

	result, err := p.fetcher.PaymentResult(ctx, p.id)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		// Transient poll failures are swallowed; the next tick retries.
		p.logger.Debug("poll failed", "payment_id", p.id, "attempt", attempts, "error", err)
	} else {
		p.result = result
		if result.Status.IsTerminal() {
			return true
		}
	}

	if attempts >= p.maxAttempts {
		p.timedOut = true
		p.logger.Info("polling budget exhausted", "payment_id", p.id, "attempts", attempts)
		return true
	}
	return false
}

// ManualRefresh resets the attempt budget and re-fetches once; a result that
// is still pending re-arms the full polling cycle. A terminal result
// short-circuits without a redundant fetch.
func (p *ResultPoller) ManualRefresh() {
	p.mu.Lock()
	if p.result != nil && p.result.Status.IsTerminal() {
		p.mu.Unlock()
		return
	}
	cancel := p.cancelCycle
	p.cancelCycle = nil
	ctx := p.ctx
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	p.attempts = 0
	p.timedOut = false
	p.mu.Unlock()

	result, err := p.fetcher.PaymentResult(ctx, p.id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.logger.Debug("manual refresh failed", "payment_id", p.id, "error", err)
		return
	}
	p.result = result
	if result.Status == domain.PaymentPending {
		p.startCycleLocked(ctx)
	}
}

// Stop cancels the polling cycle and waits for it to exit. Must be called
// when the owning view goes away.
func (p *ResultPoller) Stop() {
	p.mu.Lock()
	cancel := p.cancelCycle
	p.cancelCycle = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Snapshot returns a copy of the current state.
func (p *ResultPoller) Snapshot() PollerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := PollerSnapshot{
		Phase:     p.phase,
		Attempts:  p.attempts,
		Countdown: p.countdown,
		TimedOut:  p.timedOut,
		Err:       p.err,
	}
	if p.result != nil {
		cp := *p.result
		snap.Result = &cp
	}
	return snap
}
