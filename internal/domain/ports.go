package domain

import (
	"context"
	"time"
)

// DataClient is the common contract for a venue's market-data fetch
// (spec.md §4.3, §6): must not raise on recoverable network errors; return a
// typed error so the core can log and continue.
type DataClient interface {
	FetchCurrentSnapshot(ctx context.Context) (any, error)
}

// PolymarketDataClient additionally exposes order-book depth.
type PolymarketDataClient interface {
	FetchSnapshot(ctx context.Context) (PolymarketSnapshot, error)
	FetchOrderBook(ctx context.Context, tokenID string) (OrderBook, error)
}

// KalshiDataClient fetches the strike universe for the bound hourly event.
type KalshiDataClient interface {
	FetchSnapshot(ctx context.Context) (KalshiSnapshot, error)
}

// ReferencePriceClient fetches reference-price data two distinct ways:
// FetchCurrentPrice is the continuously-updating live price, used as the
// REST fallback when the push feed is down (spec.md §4.4, §5);
// FetchOpenPrice is a one-off fetch of the fixed reference strike K*, the
// underlying's open price at a bound hour's start (spec.md §9). The two
// must never be conflated: K* is captured once per bound hour, the live
// price updates continuously.
type ReferencePriceClient interface {
	FetchCurrentPrice(ctx context.Context) (ReferencePriceSnapshot, error)
	FetchOpenPrice(ctx context.Context, targetTimeUTC time.Time) (Strike, error)
}

// KalshiOrderIntent is the order placement request for the Kalshi trade client.
type KalshiOrderIntent struct {
	Ticker     string
	Side       KalshiSide // Yes or No
	Action     string     // "buy" or "sell"
	Count      int64
	PriceCents int64
	Type       string // "market" or "limit"
}

// KalshiOrderResult is the response from placing (or dry-running) a Kalshi order.
type KalshiOrderResult struct {
	OrderID string
	Status  string
	DryRun  bool
}

// KalshiTradeClient places and manages orders on the Kalshi exchange
// (spec.md §6).
type KalshiTradeClient interface {
	GetBalance(ctx context.Context) (float64, error)
	GetPositions(ctx context.Context) ([]Position, error)
	PlaceOrder(ctx context.Context, intent KalshiOrderIntent) (KalshiOrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (KalshiOrderResult, error)
}

// PolyOrderType enumerates Polymarket CLOB order time-in-force types.
type PolyOrderType string

const (
	PolyOrderFOK PolyOrderType = "FOK"
	PolyOrderFAK PolyOrderType = "FAK"
	PolyOrderGTC PolyOrderType = "GTC"
)

// PolyOrderSide is BUY or SELL on the Polymarket CLOB.
type PolyOrderSide string

const (
	PolyOrderBuy  PolyOrderSide = "BUY"
	PolyOrderSell PolyOrderSide = "SELL"
)

// PolyOrderIntent is the order placement request for the Polymarket trade client.
type PolyOrderIntent struct {
	TokenID string
	Side    PolyOrderSide
	Price   float64 // in (0,1)
	Size    float64
	Type    PolyOrderType // default FOK
}

// PolyOrderResult is the response from placing a Polymarket order.
type PolyOrderResult struct {
	OrderID string
	Status  string
}

// PolymarketTradeClient places and manages orders on the Polymarket CLOB
// (spec.md §6).
type PolymarketTradeClient interface {
	SetAllowances(ctx context.Context) error
	GetBalance(ctx context.Context) (float64, error)
	GetPositions(ctx context.Context) ([]Position, error)
	PlaceOrder(ctx context.Context, intent PolyOrderIntent) (PolyOrderResult, error)
}
