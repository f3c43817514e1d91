package breaker

import (
	"testing"
	"time"
)

func newTestBreaker() *Breaker {
	return New(Config{
		MaxConsecutiveFailures: 3,
		ErrorRateThreshold:     0.5,
		ErrorRateWindow:        time.Minute,
		ErrorRateMinSamples:    4,
		StalenessThreshold:     5 * time.Second,
		Cooldown:               50 * time.Millisecond,
	})
}

func TestBreaker_StartsClosed(t *testing.T) {
	b := newTestBreaker()
	if b.State() != Closed {
		t.Fatalf("want Closed, got %s", b.State())
	}
	if !b.IsTradingAllowed() {
		t.Fatal("trading should be allowed when closed")
	}
}

func TestBreaker_OpensOnConsecutiveFailures(t *testing.T) {
	b := newTestBreaker()
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatalf("want still Closed after 2 failures, got %s", b.State())
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("want Open after 3 consecutive failures, got %s", b.State())
	}
	if b.IsTradingAllowed() {
		t.Fatal("trading should not be allowed when open")
	}
}

func TestBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	b := newTestBreaker()
	// F,F,S,F already holds 3 failures in 4 samples, which would trip the
	// error-rate trigger; keep it out so only the consecutive count is tested.
	b.cfg.ErrorRateMinSamples = 100
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatalf("want Closed, a success should have reset the streak, got %s", b.State())
	}
}

func TestBreaker_OpensOnErrorRate(t *testing.T) {
	b := newTestBreaker()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("want Open once the error rate crosses the threshold, got %s", b.State())
	}
}

func TestBreaker_CooldownMovesToHalfOpen(t *testing.T) {
	b := newTestBreaker()
	b.Trip("manual")
	if b.State() != Open {
		t.Fatalf("want Open immediately after Trip, got %s", b.State())
	}
	time.Sleep(60 * time.Millisecond)
	if b.State() != HalfOpen {
		t.Fatalf("want HalfOpen after cooldown elapses, got %s", b.State())
	}
	if !b.IsTradingAllowed() {
		t.Fatal("trading should be allowed in half-open to admit a probe")
	}
}

func TestBreaker_HalfOpenFailureReopensImmediately(t *testing.T) {
	b := newTestBreaker()
	b.Trip("manual")
	time.Sleep(60 * time.Millisecond)
	if b.State() != HalfOpen {
		t.Fatalf("want HalfOpen, got %s", b.State())
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("want Open, a single half-open failure should re-trip immediately, got %s", b.State())
	}
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b := newTestBreaker()
	b.Trip("manual")
	time.Sleep(60 * time.Millisecond)
	b.RecordSuccess()
	if b.State() != Closed {
		t.Fatalf("want Closed after a successful probe, got %s", b.State())
	}
}

func TestBreaker_CheckDataStalenessTripsOnOldData(t *testing.T) {
	b := newTestBreaker()
	b.CheckDataStaleness(time.Now().Add(-10 * time.Second))
	if b.State() != Open {
		t.Fatalf("want Open on stale data, got %s", b.State())
	}
}

func TestBreaker_CheckDataStalenessIgnoresFreshData(t *testing.T) {
	b := newTestBreaker()
	b.CheckDataStaleness(time.Now())
	if b.State() != Closed {
		t.Fatalf("want Closed with fresh data, got %s", b.State())
	}
}

func TestBreaker_StatusHidesReasonWhenClosed(t *testing.T) {
	b := newTestBreaker()
	status := b.Status()
	if status.LastReason != "" {
		t.Fatalf("want empty reason while closed, got %q", status.LastReason)
	}
	b.Trip("manual halt")
	status = b.Status()
	if status.LastReason != "manual halt" {
		t.Fatalf("want reason to surface once open, got %q", status.LastReason)
	}
}
