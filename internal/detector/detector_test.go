package detector

import (
	"log/slog"
	"io"
	"testing"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/alanyoungcy/polymarketbot/internal/feeengine"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDetector(minNetMargin float64) *Detector {
	fees := feeengine.New(domain.FeeParameters{
		KalshiFeePerWinningContract: 0.01,
		PolymarketGas:               0.0,
		SlippageBuffer:              0.0,
	}, minNetMargin)
	return New(fees, testLogger())
}

func TestDetect_EmptyWhenReferenceStrikeZero(t *testing.T) {
	d := testDetector(0.01)
	checks, opps := d.Detect(domain.PolymarketSnapshot{}, domain.KalshiSnapshot{
		Contracts: []domain.KalshiContract{{Strike: 50000, YesAsk: 50, NoAsk: 50}},
	})
	if checks != nil || opps != nil {
		t.Fatal("want nil checks and opportunities with no reference strike")
	}
}

func TestDetect_EmptyWhenNoKalshiContracts(t *testing.T) {
	d := testDetector(0.01)
	checks, opps := d.Detect(domain.PolymarketSnapshot{ReferenceStrike: 50000}, domain.KalshiSnapshot{})
	if checks != nil || opps != nil {
		t.Fatal("want nil checks and opportunities with an empty Kalshi snapshot")
	}
}

func TestDetect_StrikeBelowReferenceUsesKalshiYesPolyDown(t *testing.T) {
	d := testDetector(0.01)
	poly := domain.PolymarketSnapshot{ReferenceStrike: 50000, AskUp: 0.6, AskDown: 0.3}
	kalshi := domain.KalshiSnapshot{Contracts: []domain.KalshiContract{
		{Strike: 49000, YesAsk: 50, NoAsk: 50},
	}}
	checks, _ := d.Detect(poly, kalshi)
	if len(checks) != 1 {
		t.Fatalf("want exactly 1 check for a strike below K*, got %d", len(checks))
	}
	c := checks[0]
	if c.KalshiLeg != domain.KalshiYes || c.PolyLeg != domain.PolyDown {
		t.Fatalf("want Kalshi Yes / Poly Down, got %v/%v", c.KalshiLeg, c.PolyLeg)
	}
}

func TestDetect_StrikeAboveReferenceUsesKalshiNoPolyUp(t *testing.T) {
	d := testDetector(0.01)
	poly := domain.PolymarketSnapshot{ReferenceStrike: 50000, AskUp: 0.6, AskDown: 0.3}
	kalshi := domain.KalshiSnapshot{Contracts: []domain.KalshiContract{
		{Strike: 51000, YesAsk: 50, NoAsk: 50},
	}}
	checks, _ := d.Detect(poly, kalshi)
	if len(checks) != 1 {
		t.Fatalf("want exactly 1 check for a strike above K*, got %d", len(checks))
	}
	c := checks[0]
	if c.KalshiLeg != domain.KalshiNo || c.PolyLeg != domain.PolyUp {
		t.Fatalf("want Kalshi No / Poly Up, got %v/%v", c.KalshiLeg, c.PolyLeg)
	}
}

func TestDetect_StrikeAtReferenceProducesBothStrategies(t *testing.T) {
	d := testDetector(0.01)
	poly := domain.PolymarketSnapshot{ReferenceStrike: 50000, AskUp: 0.6, AskDown: 0.3}
	kalshi := domain.KalshiSnapshot{Contracts: []domain.KalshiContract{
		{Strike: 50000, YesAsk: 50, NoAsk: 50},
	}}
	checks, _ := d.Detect(poly, kalshi)
	if len(checks) != 2 {
		t.Fatalf("want 2 checks at an exact strike match, got %d", len(checks))
	}
}

func TestDetect_FlagsProfitableOpportunity(t *testing.T) {
	d := testDetector(0.01)
	// Kalshi yes at 0.40, Poly down at 0.30: total 0.70, fee-adjusted 0.71,
	// net margin 0.29 - comfortably above the 0.01 threshold.
	poly := domain.PolymarketSnapshot{ReferenceStrike: 50000, AskUp: 0.7, AskDown: 0.3}
	kalshi := domain.KalshiSnapshot{Contracts: []domain.KalshiContract{
		{Strike: 49000, YesAsk: 40, NoAsk: 60},
	}}
	_, opps := d.Detect(poly, kalshi)
	if len(opps) != 1 {
		t.Fatalf("want 1 flagged opportunity, got %d", len(opps))
	}
	if !opps[0].IsArbitrage {
		t.Fatal("want IsArbitrage true on the returned opportunity")
	}
}

func TestDetect_FiltersUnprofitableChecks(t *testing.T) {
	d := testDetector(0.01)
	// Kalshi yes at 0.60, Poly down at 0.55: total 1.15, never profitable.
	poly := domain.PolymarketSnapshot{ReferenceStrike: 50000, AskUp: 0.45, AskDown: 0.55}
	kalshi := domain.KalshiSnapshot{Contracts: []domain.KalshiContract{
		{Strike: 49000, YesAsk: 60, NoAsk: 40},
	}}
	checks, opps := d.Detect(poly, kalshi)
	if len(checks) != 1 {
		t.Fatalf("want 1 check produced, got %d", len(checks))
	}
	if len(opps) != 0 {
		t.Fatalf("want 0 opportunities, got %d", len(opps))
	}
}

func TestDetect_NeighborhoodIsBoundedByRadius(t *testing.T) {
	d := testDetector(0.01)
	contracts := make([]domain.KalshiContract, 0, 20)
	for i := 0; i < 20; i++ {
		contracts = append(contracts, domain.KalshiContract{
			Strike: domain.Strike(48000 + i*100),
			YesAsk: 50, NoAsk: 50,
		})
	}
	poly := domain.PolymarketSnapshot{ReferenceStrike: 50000, AskUp: 0.5, AskDown: 0.5}
	checks, _ := d.Detect(poly, domain.KalshiSnapshot{Contracts: contracts})
	maxChecks := 2 * (2*NeighborhoodRadius + 1)
	if len(checks) > maxChecks {
		t.Fatalf("want at most %d checks within the neighborhood radius, got %d", maxChecks, len(checks))
	}
}
