package risk

import "testing"

func newTestManager() *Manager {
	return New(Config{
		MaxSingleTradeUSD:   100,
		MaxTotalExposureUSD: 500,
		MaxDailyLossUSD:     50,
		MaxTradesPerHour:    3,
		MinNetMargin:        0.02,
	})
}

func TestManager_ApprovesWithinLimits(t *testing.T) {
	m := newTestManager()
	ok, reason := m.CheckTrade(0.03, 50)
	if !ok {
		t.Fatalf("want approved, got rejected: %s", reason)
	}
	if reason != "approved" {
		t.Fatalf("want reason 'approved', got %q", reason)
	}
}

func TestManager_RejectsWhileHalted(t *testing.T) {
	m := newTestManager()
	m.Halt("operator kill switch")
	ok, reason := m.CheckTrade(0.03, 50)
	if ok {
		t.Fatal("want rejected while halted")
	}
	if reason != "trading halted: operator kill switch" {
		t.Fatalf("unexpected reason: %q", reason)
	}
	m.Resume()
	ok, _ = m.CheckTrade(0.03, 50)
	if !ok {
		t.Fatal("want approved after resume")
	}
}

func TestManager_RejectsBelowMinNetMargin(t *testing.T) {
	m := newTestManager()
	ok, _ := m.CheckTrade(0.01, 50)
	if ok {
		t.Fatal("want rejected below min net margin")
	}
}

func TestManager_RejectsAboveMaxSingleTrade(t *testing.T) {
	m := newTestManager()
	ok, _ := m.CheckTrade(0.03, 150)
	if ok {
		t.Fatal("want rejected above max single trade")
	}
}

func TestManager_RejectsWhenExposureWouldExceedMax(t *testing.T) {
	m := newTestManager()
	m.RecordTrade(1, 480)
	ok, _ := m.CheckTrade(0.03, 50)
	if ok {
		t.Fatal("want rejected, 480+50 exceeds max exposure of 500")
	}
}

func TestManager_RejectsAtMaxDailyLoss(t *testing.T) {
	m := newTestManager()
	m.RecordTrade(-50, 10)
	ok, _ := m.CheckTrade(0.03, 10)
	if ok {
		t.Fatal("want rejected once daily PnL reaches the max loss boundary")
	}
}

func TestManager_RejectsAtMaxTradesPerHour(t *testing.T) {
	m := newTestManager()
	m.RecordTrade(1, 10)
	m.RecordTrade(1, 10)
	m.RecordTrade(1, 10)
	ok, _ := m.CheckTrade(0.03, 10)
	if ok {
		t.Fatal("want rejected at the trailing-hour trade cap")
	}
}

func TestManager_ClosePositionFloorsAtZero(t *testing.T) {
	m := newTestManager()
	m.RecordTrade(1, 10)
	m.ClosePosition(100)
	if got := m.Status().CurrentExposure; got != 0 {
		t.Fatalf("want exposure floored at 0, got %v", got)
	}
}

func TestManager_ResetDailyIsIdempotent(t *testing.T) {
	m := newTestManager()
	m.RecordTrade(-20, 10)
	m.ResetDaily()
	first := m.Status()
	m.ResetDaily()
	second := m.Status()
	if first.DailyPnL != 0 || first.TradesToday != 0 {
		t.Fatalf("want daily pnl and trade count cleared, got %+v", first)
	}
	if second != first {
		t.Fatalf("want a second ResetDaily to be a no-op, got %+v vs %+v", second, first)
	}
}
