package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay and maxReconnectDelay follow spec.md's required 1s-60s
	// backoff window for the order-book push feed, tighter than a general
	// market-data stream since a stale book directly feeds the detector.
	reconnectDelay    = 1 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// BookUpdateHandler is called with the latest known book for tokenID
// whenever a snapshot or incremental update is received.
type BookUpdateHandler func(tokenID string, book domain.OrderBook)

// WSCommand is the subscribe/unsubscribe envelope sent to the CLOB feed.
type WSCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Assets  []string `json:"assets_ids"`
}

type wsBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wsBookMessage struct {
	EventType string        `json:"event_type"`
	AssetID   string        `json:"asset_id"`
	Bids      []wsBookLevel `json:"bids"`
	Asks      []wsBookLevel `json:"asks"`
}

type wsPriceChangeMessage struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Side      string `json:"side"`
	Size      string `json:"size"`
}

// WSClient subscribes to the Polymarket CLOB's real-time order-book feed
// and keeps a per-token best-known book, grounded on the teacher's
// platform/polymarket/ws.go reconnect-and-resubscribe pattern.
type WSClient struct {
	wsURL string

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool

	subscriptions []WSCommand

	books map[string]domain.OrderBook

	handlerMu sync.RWMutex
	handlers  []BookUpdateHandler

	done chan struct{}
}

// NewWSClient creates a WebSocket client for the given CLOB market feed
// endpoint, e.g. "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		books: make(map[string]domain.OrderBook),
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and restores any prior
// subscriptions (needed after a reconnect).
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("polymarket/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}
	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop()
	go w.pingLoop()

	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("polymarket/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Subscribe subscribes to the "book" and "price_change" channels for the
// given token ids.
func (w *WSClient) Subscribe(tokenIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	for _, ch := range []string{"book", "price_change"} {
		cmd := WSCommand{Type: "subscribe", Channel: ch, Assets: tokenIDs}
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("polymarket/ws: subscribe to %s: %w", ch, err)
		}
		w.subscriptions = append(w.subscriptions, cmd)
	}

	return nil
}

// Book returns the latest known book for tokenID, or false if nothing has
// been received yet.
func (w *WSClient) Book(tokenID string) (domain.OrderBook, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	book, ok := w.books[tokenID]
	return book, ok
}

// OnBookUpdate registers a handler invoked whenever a token's book changes.
func (w *WSClient) OnBookUpdate(handler BookUpdateHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Close shuts down the connection and stops the read/ping loops.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return w.conn.Close()
	}
	return nil
}

func (w *WSClient) sendCommand(cmd WSCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WSClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}
			w.reconnect()
			return
		}

		w.handleMessage(message)
	}
}

func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.RLock()
			conn := w.conn
			w.mu.RUnlock()
			if conn == nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes a raw message by its envelope's event_type. Unknown
// or unparseable messages are dropped silently rather than aborting the
// feed; a per-callback error likewise does not stop processing of the
// remaining registered handlers.
func (w *WSClient) handleMessage(raw []byte) {
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}

	switch envelope.EventType {
	case "book":
		var msg wsBookMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		book := domain.OrderBook{
			TokenID: msg.AssetID,
			Bids:    toLevels(msg.Bids),
			Asks:    toLevels(msg.Asks),
		}
		w.storeAndNotify(msg.AssetID, book)

	case "price_change":
		var msg wsPriceChangeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		w.applyPriceChange(msg)
	}
}

func (w *WSClient) applyPriceChange(msg wsPriceChangeMessage) {
	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil {
		return
	}
	size, err := strconv.ParseFloat(msg.Size, 64)
	if err != nil {
		return
	}

	w.mu.Lock()
	book := w.books[msg.AssetID]
	book.TokenID = msg.AssetID
	if msg.Side == "BUY" {
		book.Bids = upsertLevel(book.Bids, price, size)
	} else {
		book.Asks = upsertLevel(book.Asks, price, size)
	}
	w.books[msg.AssetID] = book
	w.mu.Unlock()

	w.notify(msg.AssetID, book)
}

func (w *WSClient) storeAndNotify(tokenID string, book domain.OrderBook) {
	w.mu.Lock()
	w.books[tokenID] = book
	w.mu.Unlock()
	w.notify(tokenID, book)
}

func (w *WSClient) notify(tokenID string, book domain.OrderBook) {
	w.handlerMu.RLock()
	handlers := w.handlers
	w.handlerMu.RUnlock()

	for _, h := range handlers {
		h(tokenID, book)
	}
}

// upsertLevel inserts, updates, or removes (on zero size) a price level,
// keeping the slice sorted descending by price as both bids and asks arrive.
func upsertLevel(levels []domain.PriceLevel, price, size float64) []domain.PriceLevel {
	for i, lvl := range levels {
		if lvl.Price == price {
			if size == 0 {
				return append(levels[:i], levels[i+1:]...)
			}
			levels[i].Size = size
			return levels
		}
	}
	if size == 0 {
		return levels
	}
	return append(levels, domain.PriceLevel{Price: price, Size: size})
}

func toLevels(raw []wsBookLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		price, _ := strconv.ParseFloat(lvl.Price, 64)
		size, _ := strconv.ParseFloat(lvl.Size, 64)
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out
}

// reconnect retries the connection with exponential backoff from
// reconnectDelay up to maxReconnectDelay, blocking until successful or the
// client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()
		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
