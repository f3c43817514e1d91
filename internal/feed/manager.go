// Package feed owns the concurrent market-data sources this system depends
// on (spec.md §4.4, §4.5, §9): a reference-price push feed, a Polymarket
// order-book push feed, a Kalshi market-list poll, and an hourly reference
// strike (K*) binding task. It combines their latest state into detector
// inputs and republishes every update onto the shared stream hub.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/breaker"
	"github.com/alanyoungcy/polymarketbot/internal/detector"
	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/alanyoungcy/polymarketbot/internal/platform/kalshi"
	"github.com/alanyoungcy/polymarketbot/internal/platform/polymarket"
	"github.com/alanyoungcy/polymarketbot/internal/platform/refprice"
	"github.com/alanyoungcy/polymarketbot/internal/streamhub"
	"golang.org/x/sync/errgroup"
)

// Config configures the feed Manager's polling cadence.
type Config struct {
	KalshiPollInterval time.Duration // default 2s (spec.md §4.4)
	TokenUp            string
	TokenDown          string
}

// Manager owns the feeds and exposes their combined latest state.
type Manager struct {
	logger *slog.Logger

	refPrice *refprice.Client
	polyData *polymarket.Client
	polyWS   *polymarket.WSClient
	kalshi   *kalshi.Client

	hub      *streamhub.Hub
	detector *detector.Detector
	breaker  *breaker.Breaker

	pollInterval time.Duration
	tokenUp      string
	tokenDown    string

	mu           sync.RWMutex
	kStar        domain.Strike
	boundHour    time.Time // start of the UTC hour kStar was bound to
	lastRefPrice domain.ReferencePriceSnapshot
	polySnapshot domain.PolymarketSnapshot
	bookUp       *domain.OrderBook
	bookDown     *domain.OrderBook
	kalshiSnap   domain.KalshiSnapshot

	kStarErrors int64

	kalshiErrors   int64
	polyErrors     int64
	refPriceErrors int64
}

// New creates a feed Manager from its component clients.
func New(
	logger *slog.Logger,
	refPrice *refprice.Client,
	polyData *polymarket.Client,
	polyWS *polymarket.WSClient,
	kalshiClient *kalshi.Client,
	hub *streamhub.Hub,
	det *detector.Detector,
	brk *breaker.Breaker,
	cfg Config,
) *Manager {
	interval := cfg.KalshiPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	m := &Manager{
		logger:       logger.With(slog.String("component", "feed")),
		refPrice:     refPrice,
		polyData:     polyData,
		polyWS:       polyWS,
		kalshi:       kalshiClient,
		hub:          hub,
		detector:     det,
		breaker:      brk,
		pollInterval: interval,
		tokenUp:      cfg.TokenUp,
		tokenDown:    cfg.TokenDown,
	}

	m.refPrice.OnPrice(m.onRefPrice)
	m.polyWS.OnBookUpdate(m.onPolyBook)

	return m
}

// Run starts all three feeds and blocks until ctx is canceled or any feed
// returns a fatal (non-context) error. The feeds are supervised jointly:
// a fatal failure in one stops the others (spec.md §4.5 "feeds are owned
// and stopped jointly").
func (m *Manager) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return m.refPrice.Run(gctx)
	})

	g.Go(func() error {
		return m.runPolyWS(gctx)
	})

	g.Go(func() error {
		return m.runKalshiPoll(gctx)
	})

	g.Go(func() error {
		return m.runHourlyStrikeBinding(gctx)
	})

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Manager) runPolyWS(ctx context.Context) error {
	if err := m.polyWS.Connect(ctx); err != nil {
		return fmt.Errorf("feed: poly ws connect: %w", err)
	}
	if err := m.polyWS.Subscribe([]string{m.tokenUp, m.tokenDown}); err != nil {
		return fmt.Errorf("feed: poly ws subscribe: %w", err)
	}
	<-ctx.Done()
	return m.polyWS.Close()
}

func (m *Manager) runKalshiPoll(ctx context.Context) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.pollKalshiOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.pollKalshiOnce(ctx)
		}
	}
}

func (m *Manager) pollKalshiOnce(ctx context.Context) {
	snap, err := m.kalshi.FetchSnapshot(ctx)
	if err != nil {
		m.mu.Lock()
		m.kalshiErrors++
		m.mu.Unlock()
		m.logger.WarnContext(ctx, "kalshi poll failed", slog.String("error", err.Error()))
		m.breaker.RecordFailure()
		return
	}

	m.breaker.RecordSuccess()
	m.breaker.NoteDataUpdate()

	m.mu.Lock()
	m.kalshiSnap = snap
	m.mu.Unlock()

	m.hub.Emit(domain.StreamEvent{
		Source:    "kalshi",
		EventType: "snapshot",
		Payload:   snap,
		Timestamp: time.Now().UTC(),
	})

	m.emitOpportunities(ctx)
}

// onRefPrice records the continuously-updating live reference price. It
// never touches kStar: the reference strike is a fixed target captured once
// per bound hour by bindHourlyStrike, not the live ticker (spec.md §9 vs.
// §4.4 — conflating the two would re-peg the strike on every tick instead
// of holding it fixed for the bound hour).
func (m *Manager) onRefPrice(snap domain.ReferencePriceSnapshot) {
	m.mu.Lock()
	m.lastRefPrice = snap
	m.mu.Unlock()

	m.breaker.NoteDataUpdate()

	m.hub.Emit(domain.StreamEvent{
		Source:    "refprice",
		EventType: "price",
		Payload:   snap,
		Timestamp: snap.Timestamp,
	})
}

// runHourlyStrikeBinding binds kStar to the current UTC hour's open price at
// startup and again at every hour boundary, fetched once via
// refprice.Client.FetchOpenPrice rather than derived from the live ticker.
func (m *Manager) runHourlyStrikeBinding(ctx context.Context) error {
	m.bindHourlyStrike(ctx)

	for {
		wait := time.Until(nextUTCHour(time.Now().UTC()))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
			m.bindHourlyStrike(ctx)
		}
	}
}

// bindHourlyStrike fetches the open price for the hour currently in
// progress and stores it as kStar if it isn't already bound to that hour.
// A failed fetch (candle not formed yet, transient network error) leaves
// the previous kStar in place and is recorded as a breaker failure rather
// than propagated, matching the feed layer's "protocol/transient errors
// never stop the feed" contract (spec.md §7).
func (m *Manager) bindHourlyStrike(ctx context.Context) {
	hour := time.Now().UTC().Truncate(time.Hour)

	m.mu.RLock()
	alreadyBound := m.boundHour.Equal(hour)
	m.mu.RUnlock()
	if alreadyBound {
		return
	}

	open, err := m.refPrice.FetchOpenPrice(ctx, hour)
	if err != nil {
		m.mu.Lock()
		m.kStarErrors++
		m.mu.Unlock()
		m.logger.WarnContext(ctx, "hourly strike binding failed", slog.String("error", err.Error()),
			slog.Time("target_hour", hour))
		m.breaker.RecordFailure()
		return
	}

	m.mu.Lock()
	m.kStar = open
	m.boundHour = hour
	m.polySnapshot.ReferenceStrike = open
	m.mu.Unlock()

	m.breaker.RecordSuccess()
	m.logger.InfoContext(ctx, "bound hourly reference strike", slog.Float64("k_star", float64(open)),
		slog.Time("target_hour", hour))

	m.hub.Emit(domain.StreamEvent{
		Source:    "refprice",
		EventType: "k_star",
		Payload:   domain.ReferencePriceSnapshot{Price: float64(open), Timestamp: time.Now().UTC()},
		Timestamp: time.Now().UTC(),
	})
}

// nextUTCHour returns the start of the next UTC hour strictly after t.
func nextUTCHour(t time.Time) time.Time {
	return t.Truncate(time.Hour).Add(time.Hour)
}

func (m *Manager) onPolyBook(tokenID string, book domain.OrderBook) {
	m.mu.Lock()
	switch tokenID {
	case m.tokenUp:
		b := book
		m.bookUp = &b
		if ask := book.BestAsk(); ask > 0 {
			m.polySnapshot.AskUp = ask
		}
		m.polySnapshot.BookUp = &b
	case m.tokenDown:
		b := book
		m.bookDown = &b
		if ask := book.BestAsk(); ask > 0 {
			m.polySnapshot.AskDown = ask
		}
		m.polySnapshot.BookDown = &b
	}
	m.polySnapshot.Timestamp = time.Now().UTC()
	m.mu.Unlock()

	m.breaker.NoteDataUpdate()

	m.hub.Emit(domain.StreamEvent{
		Source:    "polymarket",
		EventType: "book",
		Payload:   book,
		Timestamp: time.Now().UTC(),
	})

	m.emitOpportunities(context.Background())
}

// emitOpportunities runs the detector against the latest combined snapshot
// and publishes the resulting checks to the hub.
func (m *Manager) emitOpportunities(ctx context.Context) {
	poly, kalshiSnap := m.Snapshots()
	if poly.ReferenceStrike == 0 || len(kalshiSnap.Contracts) == 0 {
		return
	}

	checks, opportunities := m.detector.Detect(poly, kalshiSnap)
	m.hub.Emit(domain.StreamEvent{
		Source:    "detector",
		EventType: "checks",
		Payload:   checks,
		Timestamp: time.Now().UTC(),
	})
	if len(opportunities) > 0 {
		m.hub.Emit(domain.StreamEvent{
			Source:    "detector",
			EventType: "opportunities",
			Payload:   opportunities,
			Timestamp: time.Now().UTC(),
		})
	}
}

// Snapshots returns the latest combined Polymarket and Kalshi snapshots.
func (m *Manager) Snapshots() (domain.PolymarketSnapshot, domain.KalshiSnapshot) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.polySnapshot, m.kalshiSnap
}

// LastUpdate returns the most recent timestamp seen across all three feeds,
// used by the circuit breaker's staleness gate.
func (m *Manager) LastUpdate() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	latest := m.polySnapshot.Timestamp
	if m.kalshiSnap.Timestamp.After(latest) {
		latest = m.kalshiSnap.Timestamp
	}
	if m.lastRefPrice.Timestamp.After(latest) {
		latest = m.lastRefPrice.Timestamp
	}
	return latest
}

// Status is the non-secret snapshot of feed connectivity and counters
// surfaced on the /streams endpoint.
type Status struct {
	RefPriceConnected bool
	RefPriceMessages  int64
	KalshiErrors      int64
	PolyErrors        int64
	KStarErrors       int64
	KStar             domain.Strike
	LastRefPrice      float64
	LastUpdate        time.Time
}

// DetectNow runs the detector against the latest combined snapshot on
// demand, used by the /arbitrage endpoint rather than waiting for the next
// feed-triggered detection pass.
func (m *Manager) DetectNow() (checks, opportunities []domain.ArbitrageCheck) {
	poly, kalshiSnap := m.Snapshots()
	if poly.ReferenceStrike == 0 || len(kalshiSnap.Contracts) == 0 {
		return nil, nil
	}
	return m.detector.Detect(poly, kalshiSnap)
}

// Status returns the combined feed health snapshot.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		RefPriceConnected: m.refPrice.Connected(),
		RefPriceMessages:  m.refPrice.MessageCount(),
		KalshiErrors:      m.kalshiErrors,
		PolyErrors:        m.polyErrors,
		KStarErrors:       m.kStarErrors,
		KStar:             m.kStar,
		LastRefPrice:      m.lastRefPrice.Price,
		LastUpdate:        m.LastUpdate(),
	}
}
