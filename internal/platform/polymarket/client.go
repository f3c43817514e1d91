// Package polymarket is the REST+WS client for the Polymarket CLOB's binary
// Up/Down contracts keyed on a bound reference strike, grounded on the
// teacher's platform/polymarket/{clob,gamma,ws}.go split, generalized from
// general market discovery to the domain.PolymarketDataClient/
// PolymarketTradeClient ports this spec needs.
//
// The mapping from (event, strike) to a venue-specific token id is left as
// an open question by the source this spec was distilled from (spec.md §9);
// this adapter accepts the two token ids it needs as configuration rather
// than inventing a discovery mechanism.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
)

const (
	// polymarketMaxRetries is the number of retry attempts after the first
	// for a REST call that fails at the transport level (spec.md §5).
	polymarketMaxRetries = 2

	// polymarketRetryBaseDelay is the base of the exponential backoff
	// between retries: attempt 0 waits polymarketRetryBaseDelay, attempt 1
	// waits 2x that.
	polymarketRetryBaseDelay = 100 * time.Millisecond
)

// Config configures a Polymarket Client.
type Config struct {
	ClobHost  string // e.g. "https://clob.polymarket.com"
	TokenUp   string // CLOB token id for the Up side
	TokenDown string // CLOB token id for the Down side
}

// Client is the REST client for Polymarket CLOB price/book reads,
// implementing domain.PolymarketDataClient.
type Client struct {
	clobHost   string
	tokenUp    string
	tokenDown  string
	httpClient *http.Client
}

// New creates a Polymarket data Client.
func New(cfg Config) *Client {
	return &Client{
		clobHost:  cfg.ClobHost,
		tokenUp:   cfg.TokenUp,
		tokenDown: cfg.TokenDown,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type priceJSON struct {
	Price string `json:"price"`
}

// FetchSnapshot implements domain.PolymarketDataClient: fetches the best
// ask for both the Up and Down tokens. ReferenceStrike is left zero; the
// feed layer stamps it from the reference-price feed's value at the hour's
// binding time (spec.md §3, §9 glossary "Reference strike").
func (c *Client) FetchSnapshot(ctx context.Context) (domain.PolymarketSnapshot, error) {
	askUp, err := c.fetchBestAsk(ctx, c.tokenUp)
	if err != nil {
		return domain.PolymarketSnapshot{}, fmt.Errorf("polymarket: fetch up ask: %w", err)
	}
	askDown, err := c.fetchBestAsk(ctx, c.tokenDown)
	if err != nil {
		return domain.PolymarketSnapshot{}, fmt.Errorf("polymarket: fetch down ask: %w", err)
	}

	return domain.PolymarketSnapshot{
		AskUp:     askUp,
		AskDown:   askDown,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (c *Client) fetchBestAsk(ctx context.Context, tokenID string) (float64, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)
	params.Set("side", "SELL") // best ask is the lowest SELL price resting in the book

	path := "/price?" + params.Encode()
	body, err := c.doGet(ctx, path)
	if err != nil {
		return 0, err
	}

	var resp priceJSON
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode price: %w", err)
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", resp.Price, err)
	}
	return price, nil
}

type bookLevelJSON struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookJSON struct {
	AssetID string          `json:"asset_id"`
	Bids    []bookLevelJSON `json:"bids"`
	Asks    []bookLevelJSON `json:"asks"`
}

// FetchOrderBook implements domain.PolymarketDataClient.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)
	body, err := c.doGet(ctx, "/book?"+params.Encode())
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket: fetch order book: %w", err)
	}

	var resp bookJSON
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket: decode order book: %w", err)
	}

	return domain.OrderBook{
		TokenID: tokenID,
		Bids:    toPriceLevels(resp.Bids),
		Asks:    toPriceLevels(resp.Asks),
	}, nil
}

func toPriceLevels(raw []bookLevelJSON) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		price, _ := strconv.ParseFloat(lvl.Price, 64)
		size, _ := strconv.ParseFloat(lvl.Size, 64)
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out
}

// doGet issues a GET request, retrying up to polymarketMaxRetries times with
// exponential backoff when the request fails at the transport level. A
// response that reaches the server — even a non-2xx one — is never retried.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= polymarketMaxRetries; attempt++ {
		body, statusErr, err := c.attemptGet(ctx, path)
		if err == nil {
			if statusErr != nil {
				return nil, statusErr
			}
			return body, nil
		}
		lastErr = err
		if attempt == polymarketMaxRetries {
			break
		}
		delay := polymarketRetryBaseDelay * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("http request: %w", lastErr)
}

// attemptGet makes a single attempt. The returned error is non-nil only for
// transport-level failures the caller should retry; a non-2xx HTTP response
// is reported through statusErr instead so it is never retried.
func (c *Client) attemptGet(ctx context.Context, path string) (body []byte, statusErr error, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.clobHost+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err), nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, string(respBody)), nil
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, string(respBody)), nil
		default:
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody)), nil
		}
	}
	return respBody, nil, nil
}

// Compile-time interface check.
var _ domain.PolymarketDataClient = (*Client)(nil)
