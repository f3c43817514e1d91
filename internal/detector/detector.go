// Package detector implements the fee-aware arbitrage detector over the two
// contract universes (spec.md §4.2). It scans the Kalshi strike neighborhood
// around the Polymarket reference strike K* and builds one or two strategy
// checks per nearby strike.
package detector

import (
	"log/slog"
	"sort"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/alanyoungcy/polymarketbot/internal/feeengine"
)

// NeighborhoodRadius is the closed-window radius r around the nearest strike
// index (spec.md §4.2): at most 2*(2r+1) checks are produced.
const NeighborhoodRadius = 4

// Detector scans a Polymarket snapshot and a Kalshi snapshot for arbitrage
// opportunities, grounded on the teacher's arbitrage/detector.go +
// arbitrage/spread.go construction pattern, generalized from a single
// strategy to the spec's strike-neighborhood scan.
type Detector struct {
	fees   *feeengine.Engine
	logger *slog.Logger
}

// New creates a Detector using the given fee engine for cost/margin math.
func New(fees *feeengine.Engine, logger *slog.Logger) *Detector {
	return &Detector{fees: fees, logger: logger}
}

// Detect scans the Kalshi strike neighborhood around poly.ReferenceStrike and
// returns the full list of checks (for observability) and the filtered list
// of profitable opportunities. If the reference strike is absent (zero) or
// the Kalshi snapshot is empty, it returns two empty lists (spec.md §4.2).
func (d *Detector) Detect(poly domain.PolymarketSnapshot, kalshi domain.KalshiSnapshot) (checks []domain.ArbitrageCheck, opportunities []domain.ArbitrageCheck) {
	if poly.ReferenceStrike == 0 || len(kalshi.Contracts) == 0 {
		return nil, nil
	}

	contracts := make([]domain.KalshiContract, len(kalshi.Contracts))
	copy(contracts, kalshi.Contracts)
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].Strike < contracts[j].Strike })

	idx := nearestIndex(contracts, poly.ReferenceStrike)

	lo := idx - NeighborhoodRadius
	if lo < 0 {
		lo = 0
	}
	hi := idx + NeighborhoodRadius
	if hi > len(contracts)-1 {
		hi = len(contracts) - 1
	}

	for i := lo; i <= hi; i++ {
		c := contracts[i]
		checks = append(checks, d.strategiesFor(poly, c)...)
	}

	for _, chk := range checks {
		if chk.IsArbitrage {
			opportunities = append(opportunities, chk)
		}
	}

	return checks, opportunities
}

// nearestIndex finds the index of the Kalshi strike closest to K*, with ties
// breaking to the lower index (spec.md §4.2).
func nearestIndex(contracts []domain.KalshiContract, kStar domain.Strike) int {
	best := 0
	bestDist := absStrike(contracts[0].Strike - kStar)
	for i := 1; i < len(contracts); i++ {
		dist := absStrike(contracts[i].Strike - kStar)
		if dist < bestDist {
			best = i
			bestDist = dist
		}
		// ties break to the lower index: strictly-less keeps the first-seen
		// (lower) index when dist == bestDist.
	}
	return best
}

func absStrike(s domain.Strike) domain.Strike {
	if s < 0 {
		return -s
	}
	return s
}

// strategiesFor builds the one or two checks for a single Kalshi strike
// against the Polymarket reference strike (spec.md §4.2 strategy assignment).
func (d *Detector) strategiesFor(poly domain.PolymarketSnapshot, c domain.KalshiContract) []domain.ArbitrageCheck {
	kStar := poly.ReferenceStrike
	up := poly.AskUp
	down := poly.AskDown
	yes := float64(c.YesAsk) / 100
	no := float64(c.NoAsk) / 100

	switch {
	case kStar > c.Strike:
		return []domain.ArbitrageCheck{d.build(c.Strike, domain.KalshiYes, domain.PolyDown, down, yes)}
	case kStar < c.Strike:
		return []domain.ArbitrageCheck{d.build(c.Strike, domain.KalshiNo, domain.PolyUp, up, no)}
	default:
		return []domain.ArbitrageCheck{
			d.build(c.Strike, domain.KalshiYes, domain.PolyDown, down, yes),
			d.build(c.Strike, domain.KalshiNo, domain.PolyUp, up, no),
		}
	}
}

// build computes the derived cost/margin fields for one (kalshiLeg, polyLeg)
// pair at a given strike (spec.md §3 Arbitrage check invariants).
func (d *Detector) build(strike domain.Strike, kalshiLeg domain.KalshiSide, polyLeg domain.PolySide, polyCost, kalshiCost float64) domain.ArbitrageCheck {
	total := polyCost + kalshiCost
	adjusted := d.fees.FeeAdjusted(total)
	netMargin := d.fees.NetMargin(total)
	return domain.ArbitrageCheck{
		KalshiStrike:    strike,
		KalshiLeg:       kalshiLeg,
		PolyLeg:         polyLeg,
		PolyCost:        polyCost,
		KalshiCost:      kalshiCost,
		TotalCost:       total,
		FeeAdjustedCost: adjusted,
		RawMargin:       1 - total,
		NetMargin:       netMargin,
		IsArbitrage:     d.fees.IsProfitable(total),
	}
}
