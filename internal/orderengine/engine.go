// Package orderengine drives a detected arbitrage opportunity through the
// fixed six-step execution pipeline: preflight, dry-run gate, leg 1, leg 2,
// unwind, record (spec.md §4.10).
package orderengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/alanyoungcy/polymarketbot/internal/latency"
	"github.com/alanyoungcy/polymarketbot/internal/position"
	"github.com/alanyoungcy/polymarketbot/internal/risk"
)

// lockTTL bounds how long a single-flight lock is held for one opportunity.
// A real execution attempt (two REST legs plus a possible unwind) finishes
// well inside this, so a held-past-TTL lock means the holder died and the
// key should be acquirable again (spec.md §5).
const lockTTL = 30 * time.Second

// Opportunity bundles one arbitrage check with the sizing the engine should
// attempt.
type Opportunity struct {
	Check         domain.ArbitrageCheck
	SizeContracts float64
	KalshiTicker  string
	PolyTokenID   string
}

// Engine executes opportunities. Faster/slower venue ordering is fixed in
// placeLeg1 (Kalshi first) since the lower-latency order path should always go first to
// minimize the exposure window between fills (spec.md §4.10).
type Engine struct {
	logger *slog.Logger

	risk    *risk.Manager
	tracker *position.Tracker
	lat     *latency.Tracker

	kalshiTrade domain.KalshiTradeClient
	polyTrade   domain.PolymarketTradeClient

	// lockMgr guards single-flight-per-opportunity execution (spec.md §5).
	lockMgr domain.LockManager

	dryRun bool

	countMu          sync.Mutex
	hourlyTradeCount int
}

// New creates an order Engine.
func New(logger *slog.Logger, riskMgr *risk.Manager, tracker *position.Tracker, lat *latency.Tracker, kalshi domain.KalshiTradeClient, poly domain.PolymarketTradeClient, lockMgr domain.LockManager, dryRun bool) *Engine {
	return &Engine{
		logger:      logger,
		risk:        riskMgr,
		tracker:     tracker,
		lat:         lat,
		kalshiTrade: kalshi,
		polyTrade:   poly,
		lockMgr:     lockMgr,
		dryRun:      dryRun,
	}
}

// opportunityKey identifies an opportunity for single-flight guarding.
func opportunityKey(o Opportunity) string {
	return fmt.Sprintf("%s:%s:%s", o.KalshiTicker, o.Check.KalshiLeg, o.Check.PolyLeg)
}

// ExecuteArbitrage drives opportunity through the six-step pipeline. The
// caller must not invoke this concurrently for the same opportunity; the
// engine refuses a second entry for a key already in flight rather than
// silently serializing (spec.md §5).
func (e *Engine) ExecuteArbitrage(ctx context.Context, o Opportunity) domain.ExecutionResult {
	key := opportunityKey(o)
	unlock, err := e.lockMgr.Acquire(ctx, key, lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return domain.ExecutionResult{Status: domain.StatusPreflightFailed, Reason: "execution already in flight for this opportunity"}
		}
		return domain.ExecutionResult{Status: domain.StatusPreflightFailed, Reason: fmt.Sprintf("lock acquire failed: %s", err)}
	}
	defer unlock()

	tradeID := fmt.Sprintf("%s-%d", key, time.Now().UnixNano())
	e.lat.Start(tradeID)

	// Step 1: preflight, the in-engine mirror of the risk gates.
	ok, reason := e.risk.CheckTrade(o.Check.NetMargin, o.Check.TotalCost*o.SizeContracts)
	if !ok {
		return domain.ExecutionResult{Status: domain.StatusPreflightFailed, Reason: reason}
	}

	// Step 2: dry-run gate.
	if e.dryRun {
		return domain.ExecutionResult{Status: domain.StatusDryRun, Reason: "dry-run mode"}
	}

	// Step 3: leg 1, the faster venue, a limit order.
	e.lat.PunchLeg1Sent(tradeID)
	leg1Result, leg1OrderID, err := e.placeLeg1(ctx, o)
	if err != nil {
		return domain.ExecutionResult{Status: domain.StatusLeg1Failed, Reason: err.Error()}
	}
	e.lat.PunchLeg1Filled(tradeID)

	// Step 4: leg 2, the slower venue, fill-or-kill.
	e.lat.PunchLeg2Sent(tradeID)
	leg2Result, err := e.placeLeg2(ctx, o)
	if err != nil {
		// Step 5: unwind leg 1.
		unwound := e.unwindLeg1(ctx, leg1OrderID)
		if unwound {
			return domain.ExecutionResult{Status: domain.StatusUnwound, Reason: fmt.Sprintf("leg2 failed (%s), leg1 unwound", err)}
		}
		return domain.ExecutionResult{Status: domain.StatusLeg2Failed, Reason: err.Error()}
	}
	e.lat.PunchLeg2Filled(tradeID)

	// Step 6: record.
	arbID := e.record(o, leg1Result, leg2Result)
	e.risk.RecordTrade(o.Check.NetMargin*o.SizeContracts, o.Check.TotalCost*o.SizeContracts)
	e.lat.Complete(tradeID)
	e.countMu.Lock()
	e.hourlyTradeCount++
	e.countMu.Unlock()

	return domain.ExecutionResult{Status: domain.StatusSuccess, ArbID: arbID, Reason: "executed"}
}

// ResetHourlyCounter clears the engine's hourly trade counter, called by the
// scheduler on the hour boundary (spec.md §4.10, §4.13).
func (e *Engine) ResetHourlyCounter() {
	e.countMu.Lock()
	defer e.countMu.Unlock()
	e.hourlyTradeCount = 0
}

// HourlyTradeCount returns the number of trades recorded since the last
// hourly reset.
func (e *Engine) HourlyTradeCount() int {
	e.countMu.Lock()
	defer e.countMu.Unlock()
	return e.hourlyTradeCount
}

// ResetDailyLoss clears the risk manager's daily PnL/trade counters, called
// by the scheduler at UTC midnight (spec.md §4.10, §4.13).
func (e *Engine) ResetDailyLoss() {
	e.risk.ResetDaily()
}

// placeLeg1 issues the faster-venue limit order. Which venue is "faster" is
// fixed to Kalshi for this deployment's REST latency profile; that choice
// lives here rather than scattered across callers.
func (e *Engine) placeLeg1(ctx context.Context, o Opportunity) (domain.KalshiOrderResult, string, error) {
	priceCents := int64(o.Check.KalshiCost * 100)
	intent := domain.KalshiOrderIntent{
		Ticker:     o.KalshiTicker,
		Side:       o.Check.KalshiLeg,
		Action:     "buy",
		Count:      int64(o.SizeContracts),
		PriceCents: priceCents,
		Type:       "limit",
	}
	result, err := e.kalshiTrade.PlaceOrder(ctx, intent)
	if err != nil {
		return domain.KalshiOrderResult{}, "", err
	}
	return result, result.OrderID, nil
}

// placeLeg2 issues the slower-venue fill-or-kill order.
func (e *Engine) placeLeg2(ctx context.Context, o Opportunity) (domain.PolyOrderResult, error) {
	side := domain.PolyOrderBuy
	intent := domain.PolyOrderIntent{
		TokenID: o.PolyTokenID,
		Side:    side,
		Price:   o.Check.PolyCost,
		Size:    o.SizeContracts,
		Type:    domain.PolyOrderFOK,
	}
	return e.polyTrade.PlaceOrder(ctx, intent)
}

// unwindLeg1 cancels the leg-1 order if one was placed. No order id means
// nothing to unwind, treated as a successful unwind (spec.md §4.10).
func (e *Engine) unwindLeg1(ctx context.Context, leg1OrderID string) bool {
	if leg1OrderID == "" {
		return true
	}
	if err := e.kalshiTrade.CancelOrder(ctx, leg1OrderID); err != nil {
		e.logger.Error("leg1 unwind failed", "order_id", leg1OrderID, "error", err)
		return false
	}
	return true
}

// kalshiPositionSide derives the held side from which leg was bought: a Yes
// contract is a long position, a No contract is effectively short the
// underlying event (original_source/backend/execution/order_engine.py
// _record_positions).
func kalshiPositionSide(leg domain.KalshiSide) domain.PositionSide {
	if leg == domain.KalshiYes {
		return domain.SideLong
	}
	return domain.SideShort
}

// polyPositionSide derives the held side from which leg was bought: an Up
// contract is long, a Down contract is short.
func polyPositionSide(leg domain.PolySide) domain.PositionSide {
	if leg == domain.PolyUp {
		return domain.SideLong
	}
	return domain.SideShort
}

// record opens both legs in the position tracker with cross-references,
// opens the arbitrage pair, and returns its id.
func (e *Engine) record(o Opportunity, leg1 domain.KalshiOrderResult, leg2 domain.PolyOrderResult) string {
	kPos := e.tracker.OpenPosition(domain.Position{
		Venue:      domain.VenueKalshi,
		Side:       kalshiPositionSide(o.Check.KalshiLeg),
		Ticker:     o.KalshiTicker,
		EntryPrice: o.Check.KalshiCost,
		Size:       o.SizeContracts,
		CostUSD:    o.Check.KalshiCost * o.SizeContracts,
	})
	pPos := e.tracker.OpenPosition(domain.Position{
		Venue:      domain.VenuePolymarket,
		Side:       polyPositionSide(o.Check.PolyLeg),
		Ticker:     o.PolyTokenID,
		EntryPrice: o.Check.PolyCost,
		Size:       o.SizeContracts,
		CostUSD:    o.Check.PolyCost * o.SizeContracts,
		LinkedID:   kPos.ID,
	})
	kPos.LinkedID = pPos.ID
	e.tracker.OpenPosition(kPos)

	expectedProfit := o.Check.NetMargin * o.SizeContracts
	pair := e.tracker.OpenArbitrage(kPos, pPos, expectedProfit)
	return pair.ID
}
