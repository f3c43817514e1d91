package domain

import (
	"context"
	"time"
)

// ListOpts is the common pagination/filter envelope for store queries,
// following the teacher's handler/helpers.go parseListOpts convention.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TradeRecord is a persisted row in the append-only trades table (spec.md
// §3, §6), enriched with the original_source/ `error_message` column since
// it aids debugging without changing any invariant (SPEC_FULL.md §4).
type TradeRecord struct {
	ID              int64
	Timestamp       time.Time
	PolyLeg         PolySide
	KalshiLeg       KalshiSide
	KalshiStrike    Strike
	PolyCost        float64
	KalshiCost      float64
	TotalCost       float64
	FeeAdjustedCost float64
	NetMargin       float64
	SizeContracts   float64
	Status          ExecutionStatus
	ErrorMessage    string
	DryRun          bool
}

// TradeStore persists trade attempts (spec.md §4.12).
type TradeStore interface {
	RecordTrade(ctx context.Context, t TradeRecord) (int64, error)
	UpdateTradeStatus(ctx context.Context, id int64, status ExecutionStatus, errMsg string) error
	GetTradesToday(ctx context.Context) ([]TradeRecord, error)
}

// PositionStore persists single-leg positions (spec.md §4.12).
type PositionStore interface {
	RecordPosition(ctx context.Context, p Position, arbID string) error
	ClosePosition(ctx context.Context, id string) error
	GetOpenPositions(ctx context.Context) ([]Position, error)
}

// OpportunityRecord is a persisted row in the append-only opportunities table,
// enriched with the original_source/ `was_executed`/`skip_reason` columns.
type OpportunityRecord struct {
	ID           int64
	Timestamp    time.Time
	Check        ArbitrageCheck
	WasExecuted  bool
	SkipReason   string
}

// OpportunityStore persists every detected arbitrage check, executed or not.
type OpportunityStore interface {
	RecordOpportunity(ctx context.Context, o OpportunityRecord) (int64, error)
}

// EventSeverity classifies a persisted bot event.
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// EventRecord is a persisted row in the append-only events table.
type EventRecord struct {
	ID        int64
	Timestamp time.Time
	EventType string
	Severity  EventSeverity
	Details   map[string]any
}

// EventStore persists free-form bot events (circuit breaker, kill switch,
// errors). The caller is responsible for secret-scrubbing Details before
// calling LogEvent (spec.md §4.12).
type EventStore interface {
	LogEvent(ctx context.Context, eventType string, severity EventSeverity, details map[string]any) error
	GetRecentEvents(ctx context.Context, limit int) ([]EventRecord, error)
	GetEvents(ctx context.Context, eventType string, sinceDays int) ([]EventRecord, error)
}

// AggregateStore answers cross-table analytical queries (spec.md §4.12).
type AggregateStore interface {
	DailyPnL(ctx context.Context) (float64, error)
	TotalOpenExposure(ctx context.Context) (float64, error)
}

// Store bundles every persisted-state port the core depends on.
type Store interface {
	TradeStore
	PositionStore
	OpportunityStore
	EventStore
	AggregateStore
}

// RateLimiter abstracts the redis sliding-window limiter used to throttle
// per-client requests to the operator HTTP API (SPEC_FULL.md §3).
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager abstracts the distributed single-flight lock used to guarantee
// at-most-one execution per opportunity (spec.md §5).
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
