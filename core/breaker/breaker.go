package breaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oppwatch/gateway/core/logger"
)

// State identifies a breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the canonical upper-case state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// Outcome classifies the result of an upstream call for the breaker.
type Outcome int

const (
	// OutcomeSuccess marks a healthy upstream response.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure marks a transient upstream failure.
	OutcomeFailure
	// OutcomeIgnore marks results that say nothing about upstream health
	// (auth errors, local parse failures). It never moves the state machine.
	OutcomeIgnore
)

// Snapshot is a point-in-time copy of breaker state for observability.
type Snapshot struct {
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	OpenUntil            time.Time
	LastTransition       time.Time
}

// Breaker tracks upstream health as a finite state machine.
// Safe for concurrent use; every mutation happens under one lock section.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int // meaningful only while half-open
	openUntil time.Time

	lastTransition time.Time

	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time
	log              *slog.Logger
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive half-open successes close
// the breaker.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown sets how long the breaker stays open before a trial period.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithLogger sets the logger for state transitions.
func WithLogger(log *slog.Logger) Option {
	return func(b *Breaker) {
		if log != nil {
			b.log = log
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a breaker in the CLOSED state.
// Defaults: 5 consecutive failures open it, 2 half-open successes close it,
// 60 second cooldown.
func New(opts ...Option) *Breaker {
	b := &Breaker{
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 2,
		cooldown:         60 * time.Second,
		now:              time.Now,
		log:              logger.Noop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastTransition = b.now()
	return b
}

// Before reports whether a call may proceed to the upstream.
// A false return means the call must be short-circuited. An expired cooldown
// transitions OPEN to HALF_OPEN here, admitting the trial call.
func (b *Breaker) Before() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Before(b.openUntil) {
			return false
		}
		b.transition(StateHalfOpen)
		b.successes = 0
		return true
	default:
		return true
	}
}

// After records the outcome of a call that was admitted by Before.
func (b *Breaker) After(outcome Outcome) {
	if outcome == OutcomeIgnore {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch outcome {
	case OutcomeSuccess:
		b.onSuccess()
	case OutcomeFailure:
		b.onFailure()
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.failures = 0
			b.successes = 0
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) onFailure() {
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.open()
		}
	case StateHalfOpen:
		// A single trial failure reopens with a fresh cooldown.
		b.failures = b.failureThreshold
		b.open()
	}
}

func (b *Breaker) open() {
	b.openUntil = b.now().Add(b.cooldown)
	b.successes = 0
	b.transition(StateOpen)
}

// transition must be called with the lock held.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.lastTransition = b.now()
	b.log.Info("circuit breaker state change",
		logger.Component("breaker"),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("consecutive_failures", b.failures))
}

// State returns the current state without advancing the machine.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a copy of the current breaker state and counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:                b.state,
		ConsecutiveFailures:  b.failures,
		ConsecutiveSuccesses: b.successes,
		OpenUntil:            b.openUntil,
		LastTransition:       b.lastTransition,
	}
}
