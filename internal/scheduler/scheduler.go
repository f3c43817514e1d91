// Package scheduler runs the periodic housekeeping tasks: hourly counter
// reset, UTC-midnight daily reset, and a staleness probe against the
// circuit breaker (spec.md §4.13).
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/breaker"
	"github.com/alanyoungcy/polymarketbot/internal/orderengine"
)

// FreshnessProbe reports the timestamp of the freshest data a feed has seen,
// used to drive the breaker's staleness check (spec.md §4.4, §4.7).
type FreshnessProbe func() time.Time

// Scheduler drives the three periodic tasks described in spec.md §4.13.
type Scheduler struct {
	logger *slog.Logger

	engine  *orderengine.Engine
	breaker *breaker.Breaker

	pollingInterval time.Duration
	freshness       []FreshnessProbe
}

// New creates a Scheduler. freshness is the set of per-feed "last updated"
// probes the staleness task checks every polling interval.
func New(logger *slog.Logger, engine *orderengine.Engine, br *breaker.Breaker, pollingInterval time.Duration, freshness ...FreshnessProbe) *Scheduler {
	return &Scheduler{
		logger:          logger,
		engine:          engine,
		breaker:         br,
		pollingInterval: pollingInterval,
		freshness:       freshness,
	}
}

// Run drives all three periodic tasks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	hourly := time.NewTicker(time.Hour)
	defer hourly.Stop()

	staleness := time.NewTicker(s.pollingInterval)
	defer staleness.Stop()

	midnight := time.NewTimer(durationUntilNextUTCMidnight(time.Now()))
	defer midnight.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hourly.C:
			s.engine.ResetHourlyCounter()
			s.logger.Info("hourly trade counter reset")
		case <-staleness.C:
			s.probeStaleness()
		case <-midnight.C:
			s.engine.ResetDailyLoss()
			s.logger.Info("daily loss and trade counters reset")
			midnight.Reset(durationUntilNextUTCMidnight(time.Now()))
		}
	}
}

// probeStaleness checks every registered feed's freshness against the
// breaker's staleness threshold.
func (s *Scheduler) probeStaleness() {
	for _, probe := range s.freshness {
		lastUpdate := probe()
		s.breaker.CheckDataStaleness(lastUpdate)
	}
}

// durationUntilNextUTCMidnight returns the time.Duration from now until the
// next UTC midnight.
func durationUntilNextUTCMidnight(now time.Time) time.Duration {
	utc := now.UTC()
	next := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Sub(utc)
}
