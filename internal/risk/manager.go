// Package risk implements the six ordered trade-approval gates applied to
// every live trade candidate (spec.md §4.6). The Manager is a singleton
// collaborator shared across the order engine, the scheduler, and the HTTP
// status handler; its mutating operations are atomic at the operation level
// via a single mutex, following the teacher's executor/dedup.go mutex-guarded
// in-memory accumulator pattern.
package risk

import (
	"fmt"
	"sync"
	"time"
)

// Config holds the risk-gate thresholds (spec.md §6).
type Config struct {
	MaxSingleTradeUSD   float64
	MaxTotalExposureUSD float64
	MaxDailyLossUSD     float64
	MaxTradesPerHour    int
	MinNetMargin        float64
}

// Manager tracks exposure, daily PnL, and the trailing trade-rate window in
// memory and evaluates the six gates on every candidate trade.
type Manager struct {
	mu sync.Mutex

	cfg Config

	halted    bool
	haltedReason string

	currentExposure float64
	dailyPnL        float64
	tradesToday     int
	tradeTimestamps []time.Time
}

// New creates a risk Manager from the given config.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Halt sets the halt flag, blocking every subsequent trade until Resume is
// called. Invoked by the kill switch and the circuit breaker (spec.md §4.6
// gate 1).
func (m *Manager) Halt(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halted = true
	m.haltedReason = reason
}

// Resume clears the halt flag.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halted = false
	m.haltedReason = ""
}

// CheckTrade evaluates the six ordered gates against a trade candidate with
// the given net margin and cost. The first failing gate returns
// (false, human-readable reason); success returns (true, "approved")
// (spec.md §4.6).
func (m *Manager) CheckTrade(netMargin, costUSD float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.halted {
		reason := "trading halted"
		if m.haltedReason != "" {
			reason = fmt.Sprintf("trading halted: %s", m.haltedReason)
		}
		return false, reason
	}
	if netMargin < m.cfg.MinNetMargin {
		return false, fmt.Sprintf("net margin %.4f below minimum %.4f", netMargin, m.cfg.MinNetMargin)
	}
	if costUSD > m.cfg.MaxSingleTradeUSD {
		return false, fmt.Sprintf("trade cost $%.2f exceeds max single trade $%.2f", costUSD, m.cfg.MaxSingleTradeUSD)
	}
	if m.currentExposure+costUSD > m.cfg.MaxTotalExposureUSD {
		return false, fmt.Sprintf("exposure $%.2f + cost $%.2f would exceed max exposure $%.2f", m.currentExposure, costUSD, m.cfg.MaxTotalExposureUSD)
	}
	if m.dailyPnL <= -m.cfg.MaxDailyLossUSD {
		return false, fmt.Sprintf("daily PnL $%.2f breaches max daily loss $%.2f", m.dailyPnL, m.cfg.MaxDailyLossUSD)
	}
	if n := m.countTradesWithinWindow(time.Now(), time.Hour); n >= m.cfg.MaxTradesPerHour {
		return false, fmt.Sprintf("trade rate %d within the trailing hour meets max %d", n, m.cfg.MaxTradesPerHour)
	}

	return true, "approved"
}

// countTradesWithinWindow counts trade timestamps within [now-window, now].
// Caller must hold m.mu.
func (m *Manager) countTradesWithinWindow(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	n := 0
	for _, ts := range m.tradeTimestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// RecordTrade appends a trade timestamp, adjusts daily PnL and exposure, and
// increments today's counter (spec.md §4.6).
func (m *Manager) RecordTrade(pnl, cost float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradeTimestamps = append(m.tradeTimestamps, time.Now())
	m.dailyPnL += pnl
	m.currentExposure += cost
	m.tradesToday++
}

// ClosePosition subtracts cost from exposure, floored at zero (spec.md §4.6,
// §8 exposure non-negativity invariant).
func (m *Manager) ClosePosition(cost float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentExposure -= cost
	if m.currentExposure < 0 {
		m.currentExposure = 0
	}
}

// ResetDaily clears daily PnL and today's trade counter. Idempotent: calling
// it twice in a row is identical to calling it once (spec.md §8).
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL = 0
	m.tradesToday = 0
}

// Status is the non-secret snapshot returned by the /status endpoint
// (spec.md §4.6: "never secrets").
type Status struct {
	Halted          bool
	CurrentExposure float64
	DailyPnL        float64
	TradesToday     int
	Limits          Config
}

// Status returns the current scalars and limits block.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Halted:          m.halted,
		CurrentExposure: m.currentExposure,
		DailyPnL:        m.dailyPnL,
		TradesToday:     m.tradesToday,
		Limits:          m.cfg,
	}
}
