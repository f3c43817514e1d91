package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/breaker"
	"github.com/alanyoungcy/polymarketbot/internal/latency"
	"github.com/alanyoungcy/polymarketbot/internal/orderengine"
	"github.com/alanyoungcy/polymarketbot/internal/position"
	"github.com/alanyoungcy/polymarketbot/internal/risk"
)

func TestDurationUntilNextUTCMidnight(t *testing.T) {
	now := time.Date(2026, 7, 29, 23, 30, 0, 0, time.UTC)
	got := durationUntilNextUTCMidnight(now)
	want := 30 * time.Minute
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestDurationUntilNextUTCMidnight_AtExactlyMidnight(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	got := durationUntilNextUTCMidnight(now)
	if got != 24*time.Hour {
		t.Fatalf("want a full 24h until the next midnight, got %s", got)
	}
}

func testScheduler(t *testing.T, freshness ...FreshnessProbe) (*Scheduler, *breaker.Breaker) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	br := breaker.New(breaker.Config{
		MaxConsecutiveFailures: 5,
		StalenessThreshold:     time.Second,
		Cooldown:               time.Second,
	})
	riskMgr := risk.New(risk.Config{MaxSingleTradeUSD: 1000, MaxTotalExposureUSD: 1000, MaxDailyLossUSD: 1000, MaxTradesPerHour: 100})
	eng := orderengine.New(logger, riskMgr, position.New(), latency.New(latency.DefaultWindowSize), nil, nil, nil, true)
	return New(logger, eng, br, 10*time.Millisecond, freshness...), br
}

func TestScheduler_RunExitsWhenContextCancelled(t *testing.T) {
	s, _ := testScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("want nil error on clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("want Run to return promptly after context cancellation")
	}
}

func TestScheduler_ProbeStalenessTripsBreakerOnStaleFeed(t *testing.T) {
	stale := time.Now().Add(-time.Hour)
	s, br := testScheduler(t, func() time.Time { return stale })

	s.probeStaleness()

	if br.State() != breaker.Open {
		t.Fatalf("want the breaker tripped open on a stale feed, got %s", br.State())
	}
}

func TestScheduler_ProbeStalenessLeavesFreshFeedAlone(t *testing.T) {
	fresh := time.Now()
	s, br := testScheduler(t, func() time.Time { return fresh })

	s.probeStaleness()

	if br.State() != breaker.Closed {
		t.Fatalf("want the breaker closed for a fresh feed, got %s", br.State())
	}
}
