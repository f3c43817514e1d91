// Package domain defines the core data model and port interfaces for the
// cross-venue arbitrage trader. Types here are tagged records rather than the
// loosely-typed maps the original Python source shuttles between layers.
package domain

import "time"

// Side of a Kalshi binary contract.
type KalshiSide string

const (
	KalshiYes KalshiSide = "Yes"
	KalshiNo  KalshiSide = "No"
)

// Side of a Polymarket binary contract, relative to the reference strike.
type PolySide string

const (
	PolyUp   PolySide = "Up"
	PolyDown PolySide = "Down"
)

// Venue identifies which exchange a position or order belongs to.
type Venue string

const (
	VenueKalshi     Venue = "Kalshi"
	VenuePolymarket Venue = "Polymarket"
)

// PositionSide is the directional side of a held position.
type PositionSide string

const (
	SideLong  PositionSide = "Long"
	SideShort PositionSide = "Short"
)

// Strike is a dollar price level at which a venue lists a binary contract.
type Strike float64

// ReferencePriceSnapshot is a monotonically-timestamped (price, timestamp)
// pair from the reference exchange. Invariant: Price > 0.
type ReferencePriceSnapshot struct {
	Price     float64
	Timestamp time.Time
}

// PolymarketSnapshot holds a pair of complementary Up/Down contracts relative
// to a single reference strike K*. Invariant: if both sides are quoted,
// AskUp+AskDown > 1 in any non-arbitrage book.
type PolymarketSnapshot struct {
	ReferenceStrike Strike
	AskUp           float64
	AskDown         float64
	Timestamp       time.Time
	// BookUp/BookDown are optional full order books for fillable-size queries.
	BookUp   *OrderBook
	BookDown *OrderBook
}

// KalshiContract is one strike's best bid/ask quote in integer cents, 0-99.
type KalshiContract struct {
	Ticker  string
	Strike  Strike
	YesBid  int64
	YesAsk  int64
	NoBid   int64
	NoAsk   int64
}

// KalshiSnapshot is the finite set of Kalshi contracts for the bound hourly
// event, sorted by Strike ascending.
type KalshiSnapshot struct {
	Contracts []KalshiContract
	Timestamp time.Time
}

// FeeParameters configures the fee engine (spec.md §4.1, §3).
type FeeParameters struct {
	KalshiFeePerWinningContract float64
	PolymarketGas               float64
	SlippageBuffer              float64
}

// ArbitrageCheck is a derived record describing one strategy pair
// (spec.md §3, §4.2).
type ArbitrageCheck struct {
	KalshiStrike    Strike
	KalshiLeg       KalshiSide
	PolyLeg         PolySide
	PolyCost        float64
	KalshiCost      float64
	TotalCost       float64
	FeeAdjustedCost float64
	RawMargin       float64
	NetMargin       float64
	IsArbitrage     bool
}

// Position is a single-leg holding on one venue (spec.md §3, §4.9).
type Position struct {
	ID        string // "POS-<6-digit>"
	Venue     Venue
	Side      PositionSide
	Ticker    string
	EntryPrice float64
	Size      float64
	CostUSD   float64
	OpenedAt  time.Time
	ClosedAt  *time.Time
	LinkedID  string // cross-reference to the paired leg's Position.ID, if any
}

// ArbitragePairStatus enumerates the lifecycle of a paired arbitrage trade.
type ArbitragePairStatus string

const (
	ArbStatusOpen    ArbitragePairStatus = "open"
	ArbStatusSettled ArbitragePairStatus = "settled"
	ArbStatusFailed  ArbitragePairStatus = "failed"
	ArbStatusUnwound ArbitragePairStatus = "unwound"
)

// ArbitragePair links two single-leg positions opened as one arbitrage trade
// (spec.md §3, §4.9).
type ArbitragePair struct {
	ID              string // "ARB-<6-digit>"
	KalshiPosition  string // Position.ID
	PolyPosition    string // Position.ID
	TotalCost       float64
	ExpectedProfit  float64
	Status          ArbitragePairStatus
	OpenedAt        time.Time
	SettledAt       *time.Time
	ActualPnL       *float64
}

// Exposure is the sum of CostUSD over all open positions, authoritative for
// risk-gate calculation (spec.md §3).
type Exposure float64

// LatencySample captures the timeline of one trade attempt (spec.md §3, §4.11).
type LatencySample struct {
	TradeID      string
	DetectedAt   time.Time
	Leg1SentAt   *time.Time
	Leg1FilledAt *time.Time
	Leg2SentAt   *time.Time
	Leg2FilledAt *time.Time
	CompletedAt  *time.Time
}

// TotalMs returns the completed sample's total duration in milliseconds, or
// -1 if the sample has not completed.
func (s LatencySample) TotalMs() float64 {
	if s.CompletedAt == nil {
		return -1
	}
	return float64(s.CompletedAt.Sub(s.DetectedAt)) / float64(time.Millisecond)
}

// StreamEvent is the unit flowing through the stream hub (spec.md §3, §4.5).
type StreamEvent struct {
	Source    string
	EventType string
	Payload   any
	Timestamp time.Time
}

// BreakerState is one of the three circuit-breaker states (spec.md §4.7).
type BreakerState string

const (
	BreakerClosed   BreakerState = "Closed"
	BreakerOpen     BreakerState = "Open"
	BreakerHalfOpen BreakerState = "HalfOpen"
)

// KillSwitchState mirrors the in-memory and sentinel-file kill-switch state
// (spec.md §3, §4.8).
type KillSwitchState struct {
	Active      bool
	Reason      string
	ActivatedAt *time.Time
}

// ExecutionStatus enumerates the order engine's terminal outcomes (spec.md §4.10, §7).
type ExecutionStatus string

const (
	StatusPreflightFailed ExecutionStatus = "PreflightFailed"
	StatusDryRun          ExecutionStatus = "DryRun"
	StatusLeg1Failed      ExecutionStatus = "Leg1Failed"
	StatusLeg2Failed      ExecutionStatus = "Leg2Failed"
	StatusUnwound         ExecutionStatus = "Unwound"
	StatusSuccess         ExecutionStatus = "Success"
)

// ExecutionResult is the terminal outcome of Engine.ExecuteArbitrage.
type ExecutionResult struct {
	Status  ExecutionStatus
	ArbID   string
	Reason  string
}
