// Package latency tracks per-trade leg timings and reports percentile
// statistics over a bounded trailing window (spec.md §4.11).
package latency

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
)

// DefaultWindowSize is the bounded FIFO capacity of completed samples.
const DefaultWindowSize = 500

// TargetP95Ms is the threshold MeetsTarget compares P95 against.
const TargetP95Ms = 500.0

// Tracker starts a sample at opportunity detection and punches each leg's
// timestamp as the order engine drives a trade through its pipeline.
type Tracker struct {
	mu sync.Mutex

	windowSize int
	inFlight   map[string]*domain.LatencySample
	completed  []float64 // total-ms values of completed samples, FIFO-bounded
}

// New creates a Tracker with the given bounded window size (0 uses the
// default).
func New(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Tracker{
		windowSize: windowSize,
		inFlight:   make(map[string]*domain.LatencySample),
	}
}

// Start begins tracking a new trade, recording the detection timestamp.
func (t *Tracker) Start(tradeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight[tradeID] = &domain.LatencySample{TradeID: tradeID, DetectedAt: time.Now()}
}

// PunchLeg1Sent records the Leg1 order submission timestamp.
func (t *Tracker) PunchLeg1Sent(tradeID string) { t.punch(tradeID, func(s *domain.LatencySample, now time.Time) { s.Leg1SentAt = &now }) }

// PunchLeg1Filled records the Leg1 fill timestamp.
func (t *Tracker) PunchLeg1Filled(tradeID string) { t.punch(tradeID, func(s *domain.LatencySample, now time.Time) { s.Leg1FilledAt = &now }) }

// PunchLeg2Sent records the Leg2 order submission timestamp.
func (t *Tracker) PunchLeg2Sent(tradeID string) { t.punch(tradeID, func(s *domain.LatencySample, now time.Time) { s.Leg2SentAt = &now }) }

// PunchLeg2Filled records the Leg2 fill timestamp.
func (t *Tracker) PunchLeg2Filled(tradeID string) { t.punch(tradeID, func(s *domain.LatencySample, now time.Time) { s.Leg2FilledAt = &now }) }

// Complete records the completion timestamp, moves the sample's total-ms
// value into the bounded FIFO, and drops it from in-flight tracking.
func (t *Tracker) Complete(tradeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.inFlight[tradeID]
	if !ok {
		return
	}
	now := time.Now()
	s.CompletedAt = &now
	delete(t.inFlight, tradeID)

	t.completed = append(t.completed, s.TotalMs())
	if len(t.completed) > t.windowSize {
		t.completed = t.completed[len(t.completed)-t.windowSize:]
	}
}

func (t *Tracker) punch(tradeID string, set func(*domain.LatencySample, time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.inFlight[tradeID]; ok {
		set(s, time.Now())
	}
}

// Percentile computes the p-th percentile (0-100) over the current window by
// sorting total-ms values and interpolating linearly between adjacent
// samples at index (n-1)*p/100 (spec.md §4.11). Returns 0 if the window is
// empty.
func (t *Tracker) Percentile(p float64) float64 {
	t.mu.Lock()
	values := append([]float64(nil), t.completed...)
	t.mu.Unlock()

	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	if len(values) == 1 {
		return values[0]
	}

	idx := (float64(len(values) - 1)) * p / 100
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return values[lo]
	}
	frac := idx - float64(lo)
	return values[lo] + (values[hi]-values[lo])*frac
}

// RecentSamples returns the total-ms values of up to the last n completed
// trades, most recent last (spec.md §6 "/latency" "last 5 samples").
func (t *Tracker) RecentSamples(n int) []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 || n > len(t.completed) {
		n = len(t.completed)
	}
	out := make([]float64, n)
	copy(out, t.completed[len(t.completed)-n:])
	return out
}

// P50 returns the 50th percentile of completed trade latencies.
func (t *Tracker) P50() float64 { return t.Percentile(50) }

// P95 returns the 95th percentile of completed trade latencies.
func (t *Tracker) P95() float64 { return t.Percentile(95) }

// P99 returns the 99th percentile of completed trade latencies.
func (t *Tracker) P99() float64 { return t.Percentile(99) }

// MeetsTarget reports whether P95 is at or under TargetP95Ms.
func (t *Tracker) MeetsTarget() bool {
	return t.P95() <= TargetP95Ms
}

// Status is the snapshot returned by the /latency endpoint.
type Status struct {
	P50         float64
	P95         float64
	P99         float64
	SampleCount int
	MeetsTarget bool
}

// Status returns the current percentile snapshot.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	n := len(t.completed)
	t.mu.Unlock()
	return Status{
		P50:         t.P50(),
		P95:         t.P95(),
		P99:         t.P99(),
		SampleCount: n,
		MeetsTarget: t.MeetsTarget(),
	}
}
