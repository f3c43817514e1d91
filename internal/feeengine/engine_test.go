package feeengine

import (
	"testing"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
)

func TestEngine_WorstCaseFees(t *testing.T) {
	e := New(domain.FeeParameters{
		KalshiFeePerWinningContract: 0.02,
		PolymarketGas:               0.01,
		SlippageBuffer:              0.005,
	}, 0.01)
	want := 0.02 + 0.005
	if got := e.WorstCaseFees(); got != want {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestEngine_NetMarginAndProfitability(t *testing.T) {
	e := New(domain.FeeParameters{
		KalshiFeePerWinningContract: 0.01,
		PolymarketGas:               0.01,
		SlippageBuffer:              0.0,
	}, 0.02)

	// rawTotal 0.95 + fees 0.01 = 0.96 fee-adjusted, net margin 0.04.
	if margin := e.NetMargin(0.95); margin < 0.0399 || margin > 0.0401 {
		t.Fatalf("want ~0.04 net margin, got %v", margin)
	}
	if !e.IsProfitable(0.95) {
		t.Fatal("want profitable at 0.04 net margin with 0.02 threshold")
	}
}

func TestEngine_ExactThresholdIsProfitable(t *testing.T) {
	e := New(domain.FeeParameters{KalshiFeePerWinningContract: 0.0, PolymarketGas: 0.0, SlippageBuffer: 0.0}, 0.05)
	// rawTotal 0.95 -> net margin exactly 0.05, at the boundary.
	if !e.IsProfitable(0.95) {
		t.Fatal("want an exact match against the minimum margin to count as profitable")
	}
}

func TestEngine_BelowThresholdIsNotProfitable(t *testing.T) {
	e := New(domain.FeeParameters{KalshiFeePerWinningContract: 0.0, PolymarketGas: 0.0, SlippageBuffer: 0.0}, 0.05)
	if e.IsProfitable(0.951) {
		t.Fatal("want not profitable just under the minimum margin")
	}
}
