// Package position maintains the two in-memory ledgers of open state: single
// venue positions and the arbitrage pairs that link two of them (spec.md
// §4.9).
package position

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
)

// Tracker holds the open-position ledger and the arbitrage-pair ledger,
// mutex-guarded like the risk Manager and the breaker (spec.md §5 "shared
// resource policy").
type Tracker struct {
	mu sync.Mutex

	positions map[string]domain.Position
	pairs     map[string]domain.ArbitragePair

	posSeq int64
	arbSeq int64
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		positions: make(map[string]domain.Position),
		pairs:     make(map[string]domain.ArbitragePair),
	}
}

// NextPositionID returns the next POS-<6-digit> identifier.
func (t *Tracker) NextPositionID() string {
	n := atomic.AddInt64(&t.posSeq, 1)
	return fmt.Sprintf("POS-%06d", n)
}

// NextArbitrageID returns the next ARB-<6-digit> identifier.
func (t *Tracker) NextArbitrageID() string {
	n := atomic.AddInt64(&t.arbSeq, 1)
	return fmt.Sprintf("ARB-%06d", n)
}

// OpenPosition appends pos to the open ledger, assigning an ID if pos.ID is
// empty.
func (t *Tracker) OpenPosition(pos domain.Position) domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pos.ID == "" {
		pos.ID = t.NextPositionID()
	}
	if pos.OpenedAt.IsZero() {
		pos.OpenedAt = time.Now().UTC()
	}
	t.positions[pos.ID] = pos
	return pos
}

// ClosePosition removes id from the open ledger and records the closure
// time. Returns domain.ErrNotFound if id is not open.
func (t *Tracker) ClosePosition(id string) (domain.Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos, ok := t.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	pos.ClosedAt = ptrTime(time.Now().UTC())
	delete(t.positions, id)
	return pos, nil
}

// OpenArbitrage creates a pair linking two already-open positions, recording
// joint cost and expected profit, with status=open (spec.md §4.9).
func (t *Tracker) OpenArbitrage(kPos, pPos domain.Position, expectedProfit float64) domain.ArbitragePair {
	t.mu.Lock()
	defer t.mu.Unlock()
	pair := domain.ArbitragePair{
		ID:             t.NextArbitrageID(),
		KalshiPosition: kPos.ID,
		PolyPosition:   pPos.ID,
		TotalCost:      kPos.CostUSD + pPos.CostUSD,
		ExpectedProfit: expectedProfit,
		Status:         domain.ArbStatusOpen,
		OpenedAt:       time.Now().UTC(),
	}
	t.pairs[pair.ID] = pair
	return pair
}

// SettleArbitrage marks a pair settled, records the settlement time, and
// closes both of its legs. actualPnL is optional: a nil pointer leaves
// ActualPnL unset (spec.md §4.9 "actual_pnl?").
func (t *Tracker) SettleArbitrage(id string, actualPnL *float64) (domain.ArbitragePair, error) {
	t.mu.Lock()
	pair, ok := t.pairs[id]
	if !ok {
		t.mu.Unlock()
		return domain.ArbitragePair{}, domain.ErrNotFound
	}
	now := time.Now().UTC()
	pair.Status = domain.ArbStatusSettled
	pair.SettledAt = ptrTime(now)
	pair.ActualPnL = actualPnL
	t.pairs[id] = pair
	kID, pID := pair.KalshiPosition, pair.PolyPosition
	t.mu.Unlock()

	t.mu.Lock()
	delete(t.positions, kID)
	delete(t.positions, pID)
	t.mu.Unlock()

	return pair, nil
}

// FailArbitrage marks a pair failed without touching its legs (the caller is
// responsible for driving the unwind separately via ClosePosition).
func (t *Tracker) FailArbitrage(id string) (domain.ArbitragePair, error) {
	return t.markStatus(id, domain.ArbStatusFailed)
}

// UnwindArbitrage marks a pair unwound, used when Leg2 fails and Leg1 is
// reversed (spec.md §4.10 Unwind step).
func (t *Tracker) UnwindArbitrage(id string) (domain.ArbitragePair, error) {
	return t.markStatus(id, domain.ArbStatusUnwound)
}

func (t *Tracker) markStatus(id string, status domain.ArbitragePairStatus) (domain.ArbitragePair, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pair, ok := t.pairs[id]
	if !ok {
		return domain.ArbitragePair{}, domain.ErrNotFound
	}
	pair.Status = status
	t.pairs[id] = pair
	return pair, nil
}

// OpenExposure returns the sum of CostUSD over every position currently in
// the open ledger (spec.md §4.9 "exposure queries return sums over the open
// ledger").
func (t *Tracker) OpenExposure() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total float64
	for _, p := range t.positions {
		total += p.CostUSD
	}
	return total
}

// OpenPositions returns a snapshot copy of the open-position ledger.
func (t *Tracker) OpenPositions() []domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, p)
	}
	return out
}

// OpenArbitragePairs returns a snapshot copy of the arbitrage-pair ledger
// whose status is still open.
func (t *Tracker) OpenArbitragePairs() []domain.ArbitragePair {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.ArbitragePair, 0)
	for _, p := range t.pairs {
		if p.Status == domain.ArbStatusOpen {
			out = append(out, p)
		}
	}
	return out
}

func ptrTime(t time.Time) *time.Time { return &t }
