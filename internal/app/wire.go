package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/breaker"
	cacheredis "github.com/alanyoungcy/polymarketbot/internal/cache/redis"
	"github.com/alanyoungcy/polymarketbot/internal/config"
	"github.com/alanyoungcy/polymarketbot/internal/crypto"
	"github.com/alanyoungcy/polymarketbot/internal/detector"
	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/alanyoungcy/polymarketbot/internal/feed"
	"github.com/alanyoungcy/polymarketbot/internal/feeengine"
	"github.com/alanyoungcy/polymarketbot/internal/killswitch"
	"github.com/alanyoungcy/polymarketbot/internal/latency"
	"github.com/alanyoungcy/polymarketbot/internal/orderengine"
	"github.com/alanyoungcy/polymarketbot/internal/platform/kalshi"
	"github.com/alanyoungcy/polymarketbot/internal/platform/market"
	"github.com/alanyoungcy/polymarketbot/internal/platform/polymarket"
	"github.com/alanyoungcy/polymarketbot/internal/platform/refprice"
	"github.com/alanyoungcy/polymarketbot/internal/position"
	"github.com/alanyoungcy/polymarketbot/internal/risk"
	"github.com/alanyoungcy/polymarketbot/internal/scheduler"
	"github.com/alanyoungcy/polymarketbot/internal/server"
	"github.com/alanyoungcy/polymarketbot/internal/server/handler"
	"github.com/alanyoungcy/polymarketbot/internal/store/postgres"
	"github.com/alanyoungcy/polymarketbot/internal/streamhub"
)

// Dependencies bundles the wired components app.Run supervises plus the
// shared collaborators that connect them.
type Dependencies struct {
	Feeds     *feed.Manager
	Scheduler *scheduler.Scheduler
	Server    *server.Server

	Store      *postgres.Store
	Risk       *risk.Manager
	Breaker    *breaker.Breaker
	KillSwitch *killswitch.Switch
	Tracker    *position.Tracker
	Latency    *latency.Tracker
	Hub        *streamhub.Hub
	Engine     *orderengine.Engine
}

// Wire constructs every component SPEC_FULL.md names, following the
// teacher's wire.go style: one function building the object graph bottom-up
// and returning a cleanup closure that releases every resource it opened, in
// reverse order, regardless of where construction fails.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("wire: postgres client: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, cleanup, fmt.Errorf("wire: run migrations: %w", err)
		}
	}
	store := postgres.NewStore(pgClient.Pool())

	redisClient, err := cacheredis.New(ctx, cacheredis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, cleanup, fmt.Errorf("wire: redis client: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	// The single-flight lock guards the order engine's execute path
	// (spec.md §5); the rate limiter throttles the operator HTTP API. Both
	// are backed by this one Redis connection (SPEC_FULL.md §3).
	lockMgr := cacheredis.NewLockManager(redisClient)
	rateLimiter := cacheredis.NewRateLimiter(redisClient)

	var kalshiRSAKey []byte
	if cfg.Kalshi.RsaPrivateKeyPath != "" {
		kalshiRSAKey, err = os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
		if err != nil {
			cleanup()
			return nil, cleanup, fmt.Errorf("wire: read kalshi rsa key: %w", err)
		}
	}

	kalshiClient, err := kalshi.New(kalshi.Config{
		BaseURL:       cfg.Kalshi.BaseURL,
		EventTicker:   cfg.Kalshi.EventTicker,
		APIKeyID:      cfg.Kalshi.ApiKeyID,
		RSAPrivateKey: kalshiRSAKey,
		DryRun:        cfg.DryRun,
	})
	if err != nil {
		cleanup()
		return nil, cleanup, fmt.Errorf("wire: kalshi client: %w", err)
	}
	if cfg.Kalshi.EventTicker == "" {
		logger.Warn("wire: kalshi event_ticker not configured, falling back to the placeholder ticker shape",
			slog.String("example", market.KalshiTicker("", 0)))
	}

	if market.IsPlaceholder(cfg.Polymarket.TokenUp) || market.IsPlaceholder(cfg.Polymarket.TokenDown) {
		logger.Warn("wire: polymarket token id not configured for the bound hourly market, using placeholder",
			slog.String("token_up", cfg.Polymarket.TokenUp), slog.String("token_down", cfg.Polymarket.TokenDown))
	}

	polyData := polymarket.New(polymarket.Config{
		ClobHost:  cfg.Polymarket.ClobHost,
		TokenUp:   cfg.Polymarket.TokenUp,
		TokenDown: cfg.Polymarket.TokenDown,
	})
	polyWS := polymarket.NewWSClient(cfg.Polymarket.WsURL)

	var polyTradeClient domain.PolymarketTradeClient
	walletKey, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		if !cfg.DryRun {
			cleanup()
			return nil, cleanup, fmt.Errorf("wire: load wallet key: %w", err)
		}
	} else {
		signer, err := crypto.NewSigner(walletKey, cfg.Wallet.ChainID)
		if err != nil {
			cleanup()
			return nil, cleanup, fmt.Errorf("wire: polymarket signer: %w", err)
		}
		polyTrade := polymarket.NewTradeClient(cfg.Polymarket.ClobHost, signer)
		if !cfg.DryRun {
			if err := polyTrade.DeriveAPIKey(ctx); err != nil {
				cleanup()
				return nil, cleanup, fmt.Errorf("wire: polymarket derive api key: %w", err)
			}
		}
		polyTradeClient = polyTrade
	}

	refClient := refprice.New(refprice.Config{
		WsURL:      cfg.Reference.WsURL,
		RestURL:    cfg.Reference.RestURL,
		CandlesURL: cfg.Reference.CandlesURL,
		Symbol:     cfg.Reference.Symbol,
	})

	feeEngine := feeengine.New(domain.FeeParameters{
		KalshiFeePerWinningContract: cfg.Fees.KalshiFeePerContract,
		PolymarketGas:               cfg.Fees.PolymarketGasCost,
		SlippageBuffer:              cfg.Fees.SlippageBuffer,
	}, cfg.Risk.MinNetMargin)
	det := detector.New(feeEngine, logger)

	riskMgr := risk.New(risk.Config{
		MaxSingleTradeUSD:   cfg.Risk.MaxSingleTradeUSD,
		MaxTotalExposureUSD: cfg.Risk.MaxTotalExposureUSD,
		MaxDailyLossUSD:     cfg.Risk.MaxDailyLossUSD,
		MaxTradesPerHour:    cfg.Risk.MaxTradesPerHour,
		MinNetMargin:        cfg.Risk.MinNetMargin,
	})

	brk := breaker.New(breaker.Config{
		MaxConsecutiveFailures: cfg.Breaker.MaxConsecutiveFailures,
		ErrorRateThreshold:     cfg.Breaker.ErrorRateThreshold,
		ErrorRateWindow:        secondsToDuration(cfg.Breaker.ErrorRateWindowSec),
		ErrorRateMinSamples:    cfg.Breaker.ErrorRateMinSamples,
		StalenessThreshold:     secondsToDurationF(cfg.Breaker.StalenessThresholdSec),
		Cooldown:               secondsToDuration(cfg.Breaker.CooldownSec),
	})

	killSwitch := killswitch.New(killswitch.Config{
		Token:        cfg.KillSwitch.Token,
		SentinelPath: cfg.KillSwitch.SentinelPath,
	})

	tracker := position.New()
	latTracker := latency.New(latency.DefaultWindowSize)
	hub := streamhub.New()

	engine := orderengine.New(logger, riskMgr, tracker, latTracker, kalshiClient, polyTradeClient, lockMgr, cfg.DryRun)

	feedMgr := feed.New(logger, refClient, polyData, polyWS, kalshiClient, hub, det, brk, feed.Config{
		KalshiPollInterval: secondsToDurationF(cfg.PollingIntervalSec),
		TokenUp:            cfg.Polymarket.TokenUp,
		TokenDown:          cfg.Polymarket.TokenDown,
	})

	sched := scheduler.New(logger, engine, brk, secondsToDurationF(cfg.PollingIntervalSec), feedMgr.LastUpdate)

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(logger, cfg.DryRun),
		Config:     handler.NewConfigHandler(cfg),
		Arbitrage:  handler.NewArbitrageHandler(feedMgr),
		Status:     handler.NewStatusHandler(logger, riskMgr, brk, killSwitch, store),
		Positions:  handler.NewPositionsHandler(tracker),
		Latency:    handler.NewLatencyHandler(latTracker),
		Streams:    handler.NewStreamsHandler(feedMgr, hub),
		Stream:     handler.NewStreamHandler(hub, logger),
		KillSwitch: handler.NewKillSwitchHandler(killSwitch, riskMgr, brk, store, logger),
	}

	srv := server.NewServer(server.Config{
		Port:              cfg.Server.Port,
		CORSOrigins:       cfg.Server.CORSOrigins,
		Limiter:           rateLimiter,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   secondsToDurationF(cfg.Server.RateLimitWindowSec),
	}, handlers, logger)

	deps := &Dependencies{
		Feeds:      feedMgr,
		Scheduler:  sched,
		Server:     srv,
		Store:      store,
		Risk:       riskMgr,
		Breaker:    brk,
		KillSwitch: killSwitch,
		Tracker:    tracker,
		Latency:    latTracker,
		Hub:        hub,
		Engine:     engine,
	}

	return deps, cleanup, nil
}

// secondsToDuration converts a whole-second config value to a time.Duration.
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// secondsToDurationF converts a fractional-second config value to a
// time.Duration.
func secondsToDurationF(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
