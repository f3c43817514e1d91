package position

import (
	"testing"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
)

func TestTracker_OpenPositionAssignsIDAndTimestamp(t *testing.T) {
	tr := New()
	pos := tr.OpenPosition(domain.Position{Venue: domain.VenueKalshi, CostUSD: 10})
	if pos.ID == "" {
		t.Fatal("want an assigned position ID")
	}
	if pos.OpenedAt.IsZero() {
		t.Fatal("want OpenedAt stamped")
	}
	if got := tr.OpenExposure(); got != 10 {
		t.Fatalf("want exposure 10, got %v", got)
	}
}

func TestTracker_ClosePositionRemovesFromLedger(t *testing.T) {
	tr := New()
	pos := tr.OpenPosition(domain.Position{Venue: domain.VenueKalshi, CostUSD: 10})
	closed, err := tr.ClosePosition(pos.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed.ClosedAt == nil {
		t.Fatal("want ClosedAt stamped")
	}
	if got := tr.OpenExposure(); got != 0 {
		t.Fatalf("want exposure 0 after close, got %v", got)
	}
}

func TestTracker_ClosePositionNotFound(t *testing.T) {
	tr := New()
	_, err := tr.ClosePosition("POS-999999")
	if err != domain.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestTracker_OpenArbitrageSumsLegCosts(t *testing.T) {
	tr := New()
	kPos := tr.OpenPosition(domain.Position{Venue: domain.VenueKalshi, CostUSD: 10})
	pPos := tr.OpenPosition(domain.Position{Venue: domain.VenuePolymarket, CostUSD: 12})

	pair := tr.OpenArbitrage(kPos, pPos, 0.05)
	if pair.TotalCost != 22 {
		t.Fatalf("want total cost 22, got %v", pair.TotalCost)
	}
	if pair.Status != domain.ArbStatusOpen {
		t.Fatalf("want status open, got %v", pair.Status)
	}

	pairs := tr.OpenArbitragePairs()
	if len(pairs) != 1 {
		t.Fatalf("want 1 open pair, got %d", len(pairs))
	}
}

func TestTracker_SettleArbitrageClosesBothLegs(t *testing.T) {
	tr := New()
	kPos := tr.OpenPosition(domain.Position{Venue: domain.VenueKalshi, CostUSD: 10})
	pPos := tr.OpenPosition(domain.Position{Venue: domain.VenuePolymarket, CostUSD: 12})
	pair := tr.OpenArbitrage(kPos, pPos, 0.05)

	pnl := 1.23
	settled, err := tr.SettleArbitrage(pair.ID, &pnl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settled.Status != domain.ArbStatusSettled {
		t.Fatalf("want settled status, got %v", settled.Status)
	}
	if settled.ActualPnL == nil || *settled.ActualPnL != pnl {
		t.Fatalf("want actual pnl %v, got %+v", pnl, settled.ActualPnL)
	}
	if len(tr.OpenArbitragePairs()) != 0 {
		t.Fatal("want no open pairs after settlement")
	}
	if got := tr.OpenExposure(); got != 0 {
		t.Fatalf("want exposure 0, both legs closed on settle, got %v", got)
	}
}

func TestTracker_FailAndUnwindArbitrage(t *testing.T) {
	tr := New()
	kPos := tr.OpenPosition(domain.Position{Venue: domain.VenueKalshi, CostUSD: 10})
	pPos := tr.OpenPosition(domain.Position{Venue: domain.VenuePolymarket, CostUSD: 12})
	pair := tr.OpenArbitrage(kPos, pPos, 0.05)

	failed, err := tr.FailArbitrage(pair.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed.Status != domain.ArbStatusFailed {
		t.Fatalf("want failed status, got %v", failed.Status)
	}

	unwound, err := tr.UnwindArbitrage(pair.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unwound.Status != domain.ArbStatusUnwound {
		t.Fatalf("want unwound status, got %v", unwound.Status)
	}
}

func TestTracker_SequentialIDsAreUnique(t *testing.T) {
	tr := New()
	a := tr.NextPositionID()
	b := tr.NextPositionID()
	if a == b {
		t.Fatalf("want distinct IDs, got %s twice", a)
	}
}
