// Package breaker implements the circuit-breaker state machine over failure
// streams and data freshness (spec.md §4.7).
package breaker

import (
	"sync"
	"time"
)

// Config holds the circuit breaker's trigger thresholds (spec.md §6).
type Config struct {
	MaxConsecutiveFailures int
	ErrorRateThreshold     float64
	ErrorRateWindow        time.Duration
	ErrorRateMinSamples    int
	StalenessThreshold     time.Duration
	Cooldown               time.Duration
}

// State is one of Closed, Open, HalfOpen (spec.md §3, §4.7).
type State string

const (
	Closed   State = "Closed"
	Open     State = "Open"
	HalfOpen State = "HalfOpen"
)

type outcome struct {
	at      time.Time
	success bool
}

// Breaker tracks consecutive failures, a rolling outcomes window, and data
// freshness, transitioning between Closed/Open/HalfOpen.
type Breaker struct {
	mu sync.Mutex

	cfg Config

	state               State
	lastTransitionAt    time.Time
	lastReason          string
	consecutiveFailures int
	rollingOutcomes     []outcome
	lastDataUpdateAt    time.Time
	halfOpenProbeInFlight bool
}

// New creates a Breaker in the Closed state.
func New(cfg Config) *Breaker {
	return &Breaker{
		cfg:              cfg,
		state:            Closed,
		lastTransitionAt: time.Now(),
		lastDataUpdateAt: time.Now(),
	}
}

// RecordSuccess records a successful operation outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.rollingOutcomes = appendOutcome(b.rollingOutcomes, outcome{at: now, success: true}, b.cfg.ErrorRateWindow)
	b.consecutiveFailures = 0

	if b.stateLocked(now) == HalfOpen {
		b.transition(Closed, "probe succeeded", now)
	}
}

// RecordFailure records a failed operation outcome and evaluates the
// consecutive-failure and error-rate triggers. A failure observed while in
// HalfOpen immediately re-opens the circuit even before the consecutive
// count is reached (spec.md §4.7).
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.rollingOutcomes = appendOutcome(b.rollingOutcomes, outcome{at: now, success: false}, b.cfg.ErrorRateWindow)
	b.consecutiveFailures++

	if b.stateLocked(now) == HalfOpen {
		b.transition(Open, "probe failed in half-open", now)
		return
	}

	if b.consecutiveFailures >= b.cfg.MaxConsecutiveFailures {
		b.transition(Open, "consecutive failure threshold reached", now)
		return
	}

	if rate, n := errorRate(b.rollingOutcomes); n >= b.cfg.ErrorRateMinSamples && rate > b.cfg.ErrorRateThreshold {
		b.transition(Open, "error rate threshold exceeded", now)
	}
}

// CheckDataStaleness trips the breaker if lastUpdate is older than the
// configured staleness threshold (spec.md §4.7, §4.13).
func (b *Breaker) CheckDataStaleness(lastUpdate time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	if now.Sub(lastUpdate) > b.cfg.StalenessThreshold {
		b.transition(Open, "data staleness exceeded", now)
	}
}

// NoteDataUpdate records that fresh data arrived, used by callers that track
// freshness themselves before calling CheckDataStaleness.
func (b *Breaker) NoteDataUpdate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastDataUpdateAt = time.Now()
}

// Trip explicitly opens the breaker with a given reason (spec.md §4.7).
func (b *Breaker) Trip(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(Open, reason, time.Now())
}

// State returns the current state, self-transitioning Open -> HalfOpen when
// the cooldown has elapsed since the last transition (spec.md §4.7: "checking
// state while Open computes now-last_transition_at against cooldown_sec and
// transitions on demand — no timer goroutine needed").
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(time.Now())
}

// stateLocked is State's logic without re-acquiring the mutex; callers must
// already hold b.mu.
func (b *Breaker) stateLocked(now time.Time) State {
	if b.state == Open && now.Sub(b.lastTransitionAt) >= b.cfg.Cooldown {
		b.transition(HalfOpen, "cooldown elapsed", now)
	}
	return b.state
}

// IsTradingAllowed reports whether the current state permits a trade
// (Closed or HalfOpen).
func (b *Breaker) IsTradingAllowed() bool {
	s := b.State()
	return s == Closed || s == HalfOpen
}

// transition moves the breaker to newState, recording the reason and
// resetting per-state bookkeeping. Caller must hold b.mu.
func (b *Breaker) transition(newState State, reason string, now time.Time) {
	b.state = newState
	b.lastReason = reason
	b.lastTransitionAt = now
	if newState == Closed {
		b.consecutiveFailures = 0
		b.rollingOutcomes = nil
	}
}

// Status is the non-secret snapshot returned by /status (spec.md §4.7).
type Status struct {
	State               State
	ConsecutiveFailures int
	ErrorRate           float64
	TimeInState         time.Duration
	LastReason          string
}

// Status returns a safe-to-expose snapshot: state, counters, rate,
// time-in-state, last reason when not Closed.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	state := b.stateLocked(now)
	rate, _ := errorRate(b.rollingOutcomes)
	reason := ""
	if state != Closed {
		reason = b.lastReason
	}
	return Status{
		State:               state,
		ConsecutiveFailures: b.consecutiveFailures,
		ErrorRate:           rate,
		TimeInState:         now.Sub(b.lastTransitionAt),
		LastReason:          reason,
	}
}

// appendOutcome appends o to outcomes and drops entries older than window.
func appendOutcome(outcomes []outcome, o outcome, window time.Duration) []outcome {
	outcomes = append(outcomes, o)
	cutoff := o.at.Add(-window)
	i := 0
	for i < len(outcomes) && outcomes[i].at.Before(cutoff) {
		i++
	}
	return outcomes[i:]
}

// errorRate returns the fraction of failures in outcomes and the sample count.
func errorRate(outcomes []outcome) (float64, int) {
	if len(outcomes) == 0 {
		return 0, 0
	}
	failures := 0
	for _, o := range outcomes {
		if !o.success {
			failures++
		}
	}
	return float64(failures) / float64(len(outcomes)), len(outcomes)
}
