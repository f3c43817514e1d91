// Package refprice streams the underlying's reference price used to bind
// Polymarket's implicit strike at the top of each hour, grounded on
// original_source/backend/streams/binance_ws.py's reconnect-with-backoff
// shape and generalized to this module's gorilla/websocket stack.
package refprice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	// DefaultURL is Binance's public BTCUSDT rolling ticker stream. No API
	// key is required; nothing secret is ever sent or logged.
	DefaultURL = "wss://stream.binance.com:9443/ws/btcusdt@ticker"

	// DefaultRestURL is Binance's REST ticker-price endpoint, used as the
	// live-price fallback when the WS push feed is down (spec.md §5).
	DefaultRestURL = "https://api.binance.com/api/v3/ticker/price"

	// DefaultCandlesURL is Binance's klines endpoint, used once per hour to
	// fetch the 1h candle's open price — the reference strike K* (spec.md §9,
	// SPEC_FULL.md §4's "reference candles" venue URL).
	DefaultCandlesURL = "https://api.binance.com/api/v3/klines"

	// DefaultSymbol is the underlying pair this client tracks.
	DefaultSymbol = "BTCUSDT"

	reconnectDelay    = 1 * time.Second
	maxReconnectDelay = 60 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10

	// restFallbackTimeout bounds the live-price REST fallback call
	// (spec.md §5: "5 s for the reference-price REST fallback").
	restFallbackTimeout = 5 * time.Second

	// staleAfter is how long a WS-streamed price is trusted before
	// FetchCurrentPrice falls back to a live REST call instead of returning
	// it. The push feed ticks roughly every second in normal operation, so
	// anything older than this means the feed is down.
	staleAfter = 10 * time.Second

	// candlesRequestTimeout bounds the once-per-hour open-price fetch.
	candlesRequestTimeout = 10 * time.Second
)

// PriceHandler is called with every valid price update. A callback panic or
// error never stops delivery to the remaining registered handlers.
type PriceHandler func(domain.ReferencePriceSnapshot)

type tickerMessage struct {
	LastPrice string `json:"c"`
}

// Config configures a reference-price Client. Zero-valued fields fall back
// to Binance's public defaults.
type Config struct {
	WsURL      string
	RestURL    string
	CandlesURL string
	Symbol     string
}

// Client streams BTCUSDT price updates over a persistent WebSocket and
// implements domain.ReferencePriceClient two ways: FetchCurrentPrice
// returns the latest streamed value, falling back to a real REST call only
// when the stream has gone stale; FetchOpenPrice issues a one-off REST call
// for the 1h candle open price used as the reference strike K*.
type Client struct {
	url        string
	restURL    string
	candlesURL string
	symbol     string
	httpClient *http.Client

	mu           sync.RWMutex
	conn         *websocket.Conn
	closed       bool
	connected    bool
	current      domain.ReferencePriceSnapshot
	messageCount int64

	handlerMu sync.RWMutex
	handlers  []PriceHandler

	done chan struct{}
}

// New creates a reference-price Client from cfg. An empty field falls back
// to the matching Binance default.
func New(cfg Config) *Client {
	wsURL := cfg.WsURL
	if wsURL == "" {
		wsURL = DefaultURL
	}
	restURL := cfg.RestURL
	if restURL == "" {
		restURL = DefaultRestURL
	}
	candlesURL := cfg.CandlesURL
	if candlesURL == "" {
		candlesURL = DefaultCandlesURL
	}
	symbol := cfg.Symbol
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return &Client{
		url:        wsURL,
		restURL:    restURL,
		candlesURL: candlesURL,
		symbol:     symbol,
		httpClient: &http.Client{},
		done:       make(chan struct{}),
	}
}

// OnPrice registers a callback fired on every valid price update.
func (c *Client) OnPrice(handler PriceHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// FetchCurrentPrice implements domain.ReferencePriceClient. It returns the
// most recent streamed price when the stream is alive and recent; otherwise
// it falls back to a real REST call against restURL under a 5s timeout
// (spec.md §5), matching the distinction the push feed and this fallback
// make in original_source/backend/clients/binance_client.py's
// get_current_price() versus the WS-streamed value.
func (c *Client) FetchCurrentPrice(ctx context.Context) (domain.ReferencePriceSnapshot, error) {
	c.mu.RLock()
	cached := c.current
	c.mu.RUnlock()

	if cached.Price > 0 && time.Since(cached.Timestamp) < staleAfter {
		return cached, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, restFallbackTimeout)
	defer cancel()

	reqURL := c.restURL
	if q := (url.Values{"symbol": {c.symbol}}).Encode(); q != "" {
		sep := "?"
		if strings.Contains(reqURL, "?") {
			sep = "&"
		}
		reqURL += sep + q
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.ReferencePriceSnapshot{}, fmt.Errorf("refprice: build rest fallback request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if cached.Price > 0 {
			return cached, nil
		}
		return domain.ReferencePriceSnapshot{}, fmt.Errorf("refprice: %w: rest fallback failed: %v", domain.ErrStaleData, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ReferencePriceSnapshot{}, fmt.Errorf("refprice: read rest fallback response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if cached.Price > 0 {
			return cached, nil
		}
		return domain.ReferencePriceSnapshot{}, fmt.Errorf("refprice: %w: rest fallback HTTP %d", domain.ErrStaleData, resp.StatusCode)
	}

	var payload struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.ReferencePriceSnapshot{}, fmt.Errorf("refprice: decode rest fallback response: %w", err)
	}
	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil || price <= 0 {
		return domain.ReferencePriceSnapshot{}, fmt.Errorf("refprice: %w: invalid rest fallback price %q", domain.ErrStaleData, payload.Price)
	}

	snap := domain.ReferencePriceSnapshot{Price: price, Timestamp: time.Now().UTC()}
	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()
	return snap, nil
}

// FetchOpenPrice fetches the open price of the 1h candle starting at
// targetTimeUTC — the fixed reference strike K* (spec.md §9: "the
// underlying's open price at the binding event time"), distinct from the
// continuously-updating value FetchCurrentPrice returns. Grounded on
// original_source/backend/clients/binance_client.py's get_open_price:
// a single klines request with startTime pinned to the target hour and
// limit=1. Returns domain.ErrStaleData if the candle hasn't formed yet.
func (c *Client) FetchOpenPrice(ctx context.Context, targetTimeUTC time.Time) (domain.Strike, error) {
	reqCtx, cancel := context.WithTimeout(ctx, candlesRequestTimeout)
	defer cancel()

	params := url.Values{
		"symbol":    {c.symbol},
		"interval":  {"1h"},
		"startTime": {strconv.FormatInt(targetTimeUTC.UnixMilli(), 10)},
		"limit":     {"1"},
	}
	reqURL := c.candlesURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("refprice: build open-price request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("refprice: fetch open price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("refprice: read open-price response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("refprice: open-price HTTP %d: %s", resp.StatusCode, string(body))
	}

	// Binance klines rows are heterogeneously-typed JSON arrays:
	// [openTime, open, high, low, close, volume, ...]. Only the open
	// price (index 1) is needed here.
	var candles [][]json.RawMessage
	if err := json.Unmarshal(body, &candles); err != nil {
		return 0, fmt.Errorf("refprice: decode open-price response: %w", err)
	}
	if len(candles) == 0 || len(candles[0]) < 2 {
		return 0, fmt.Errorf("refprice: %w: candle for %s not formed yet", domain.ErrStaleData, targetTimeUTC.UTC().Format(time.RFC3339))
	}

	var openStr string
	if err := json.Unmarshal(candles[0][1], &openStr); err != nil {
		return 0, fmt.Errorf("refprice: decode candle open price: %w", err)
	}
	open, err := strconv.ParseFloat(openStr, 64)
	if err != nil || open <= 0 {
		return 0, fmt.Errorf("refprice: invalid candle open price %q", openStr)
	}
	return domain.Strike(open), nil
}

// Connected reports whether the underlying socket is currently open.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// MessageCount returns the number of valid price ticks processed so far.
func (c *Client) MessageCount() int64 {
	return atomic.LoadInt64(&c.messageCount)
}

// Run connects and streams until ctx is canceled or Close is called,
// reconnecting with exponential backoff on any disconnect. It is meant to
// be run in its own goroutine by the owning feed manager.
func (c *Client) Run(ctx context.Context) error {
	delay := reconnectDelay

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		err := c.connectAndListen(ctx)
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		if err == nil {
			return nil // clean shutdown
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (c *Client) connectAndListen(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("refprice: connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	pingDone := make(chan struct{})
	go c.pingLoop(conn, pingDone)
	defer close(pingDone)
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("refprice: %w: %v", domain.ErrWSDisconnect, err)
		}
		c.processMessage(raw)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage parses a ticker message, ignoring non-positive prices and
// anything unparseable rather than propagating an error up the read loop.
func (c *Client) processMessage(raw []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	price, err := strconv.ParseFloat(msg.LastPrice, 64)
	if err != nil || price <= 0 {
		return
	}

	snap := domain.ReferencePriceSnapshot{Price: price, Timestamp: time.Now().UTC()}

	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()
	atomic.AddInt64(&c.messageCount, 1)

	c.handlerMu.RLock()
	handlers := c.handlers
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() { _ = recover() }()
			h(snap)
		}()
	}
}

// Close stops the feed. Run returns nil shortly after.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Compile-time interface check.
var _ domain.ReferencePriceClient = (*Client)(nil)
