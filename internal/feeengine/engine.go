// Package feeengine converts raw leg costs into fee-adjusted cost and net
// margin (spec.md §4.1). It is stateless: every operation is a pure function
// of its configured FeeParameters.
package feeengine

import "github.com/alanyoungcy/polymarketbot/internal/domain"

// Engine is a stateless fee calculator configured with the venues' fee
// parameters and the minimum net margin required to flag an arbitrage.
type Engine struct {
	params       domain.FeeParameters
	minNetMargin float64
}

// New creates a fee Engine from the given parameters and minimum net margin
// threshold (spec.md §6 MIN_NET_MARGIN).
func New(params domain.FeeParameters, minNetMargin float64) *Engine {
	return &Engine{params: params, minNetMargin: minNetMargin}
}

// WorstCaseFees assumes the winning venue charges its fee — i.e. takes the
// worst of the two venues' fees — and adds a static slippage buffer to cover
// crossings between quote read and fill (spec.md §4.1).
func (e *Engine) WorstCaseFees() float64 {
	worst := e.params.KalshiFeePerWinningContract
	if e.params.PolymarketGas > worst {
		worst = e.params.PolymarketGas
	}
	return worst + e.params.SlippageBuffer
}

// FeeAdjusted returns rawTotal plus the worst-case fees.
func (e *Engine) FeeAdjusted(rawTotal float64) float64 {
	return rawTotal + e.WorstCaseFees()
}

// NetMargin returns 1 - FeeAdjusted(rawTotal), the profit-per-pair after
// worst-case fees as a fraction of the $1.00 payout.
func (e *Engine) NetMargin(rawTotal float64) float64 {
	return 1 - e.FeeAdjusted(rawTotal)
}

// IsProfitable reports whether NetMargin(rawTotal) meets or exceeds the
// configured minimum net margin.
func (e *Engine) IsProfitable(rawTotal float64) bool {
	return e.NetMargin(rawTotal) >= e.minNetMargin
}
