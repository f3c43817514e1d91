package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/alanyoungcy/polymarketbot/internal/server/handler"
	"github.com/alanyoungcy/polymarketbot/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, general API authentication is disabled

	// Limiter, RateLimitRequests, and RateLimitWindow configure the
	// per-client operator API rate limit (spec.md §5's REST rate budget,
	// applied here to the operator surface rather than venue REST calls).
	// RateLimit is skipped entirely when Limiter is nil.
	Limiter           domain.RateLimiter
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Handlers aggregates all HTTP handlers the server registers (spec.md §6
// "Operator HTTP surface").
type Handlers struct {
	Health     *handler.HealthHandler
	Config     *handler.ConfigHandler
	Arbitrage  *handler.ArbitrageHandler
	Status     *handler.StatusHandler
	Positions  *handler.PositionsHandler
	Latency    *handler.LatencyHandler
	Streams    *handler.StreamsHandler
	Stream     *handler.StreamHandler
	KillSwitch *handler.KillSwitchHandler
}

// Server is the operator-facing HTTP API, generalized from the teacher's
// server.go to the route surface spec.md §6 requires.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with every route registered on a Go 1.22+
// method-prefixed ServeMux.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /config", handlers.Config.GetConfig)
	mux.HandleFunc("GET /arbitrage", handlers.Arbitrage.GetArbitrage)
	mux.HandleFunc("GET /status", handlers.Status.GetStatus)
	mux.HandleFunc("GET /positions", handlers.Positions.GetPositions)
	mux.HandleFunc("GET /latency", handlers.Latency.GetLatency)
	mux.HandleFunc("GET /streams", handlers.Streams.GetStreams)
	mux.HandleFunc("GET /stream", handlers.Stream.Stream)
	mux.HandleFunc("POST /kill-switch", handlers.KillSwitch.Activate)
	mux.HandleFunc("POST /kill-switch/deactivate", handlers.KillSwitch.Deactivate)

	var h http.Handler = mux
	if cfg.Limiter != nil {
		limit, window := cfg.RateLimitRequests, cfg.RateLimitWindow
		if limit <= 0 {
			limit = 60
		}
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(cfg.Limiter, limit, window)(h)
	}
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the SSE stream endpoint is long-lived
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger}
}

// Run starts the server and blocks until ctx is canceled, at which point it
// shuts down gracefully. It never returns a non-nil error for ordinary
// context cancellation.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: listen: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
