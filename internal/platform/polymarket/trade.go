package polymarket

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/polymarketbot/internal/crypto"
	"github.com/alanyoungcy/polymarketbot/internal/domain"
)

// TradeClient places and manages orders on the Polymarket CLOB, implementing
// domain.PolymarketTradeClient. Order signing follows the teacher's
// platform/polymarket/clob.go DeriveAPIKey + L2 HMAC flow, layered over the
// EIP-712 Signer kept from crypto/signer.go.
type TradeClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	hmacAuth   *crypto.HMACAuth
}

// NewTradeClient creates a TradeClient. Call DeriveAPIKey before the first
// authenticated request; an unauthenticated client can still sign and submit
// orders that only require L1 (wallet-signature) auth, but this deployment
// always derives L2 credentials up front.
func NewTradeClient(baseURL string, signer *crypto.Signer) *TradeClient {
	return &TradeClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		signer: signer,
	}
}

// DeriveAPIKey performs the CLOB L1 auth handshake to obtain L2 HMAC
// credentials (spec.md §6 "set_allowances" companion step).
func (t *TradeClient) DeriveAPIKey(ctx context.Context) error {
	address := t.signer.Address().Hex()
	timestamp := time.Now().Unix()
	nonce := int64(0)

	sig, err := t.signer.SignAuthMessage(address, timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", address)
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("POLY_NONCE", strconv.FormatInt(nonce, 10))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket: auth request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket: read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket: auth failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(body, &authResp); err != nil {
		return fmt.Errorf("polymarket: decode auth response: %w", err)
	}

	t.hmacAuth = &crypto.HMACAuth{Key: authResp.APIKey, Secret: authResp.Secret, Passphrase: authResp.Passphrase}
	return nil
}

// SetAllowances implements domain.PolymarketTradeClient. On-chain allowance
// management (ERC-20/ERC-1155 approvals for the CLOB exchange contract) is a
// wallet operation outside the CLOB REST surface; this deployment assumes
// allowances are set once out-of-band and treats this call as a checked
// no-op requiring a derived API key.
func (t *TradeClient) SetAllowances(ctx context.Context) error {
	if t.hmacAuth == nil {
		if err := t.DeriveAPIKey(ctx); err != nil {
			return fmt.Errorf("polymarket: set allowances: %w", err)
		}
	}
	return nil
}

// GetBalance implements domain.PolymarketTradeClient. The CLOB REST surface
// does not expose an authoritative on-chain USDC balance; this mirrors the
// original_source/ behavior of returning zero with no on-chain read rather
// than inventing a balance pathway (spec.md §9 Open Questions).
func (t *TradeClient) GetBalance(ctx context.Context) (float64, error) {
	return 0, fmt.Errorf("polymarket: balance unavailable: no authoritative on-chain balance pathway configured")
}

type positionsJSON struct {
	Asset  string `json:"asset"`
	Size   string `json:"size"`
	AvgPx  string `json:"avgPrice"`
}

// GetPositions implements domain.PolymarketTradeClient.
func (t *TradeClient) GetPositions(ctx context.Context) ([]domain.Position, error) {
	body, err := t.doAuthenticatedRequest(ctx, http.MethodGet, "/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket: get positions: %w", err)
	}

	var raw []positionsJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("polymarket: decode positions: %w", err)
	}

	out := make([]domain.Position, 0, len(raw))
	for _, p := range raw {
		size, _ := strconv.ParseFloat(p.Size, 64)
		avg, _ := strconv.ParseFloat(p.AvgPx, 64)
		out = append(out, domain.Position{
			Venue:      domain.VenuePolymarket,
			Side:       domain.SideLong,
			Ticker:     p.Asset,
			EntryPrice: avg,
			Size:       size,
			CostUSD:    avg * size,
		})
	}
	return out, nil
}

type orderResultJSON struct {
	Success  bool   `json:"success"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
	ErrorMsg string `json:"errorMsg"`
}

// PlaceOrder implements domain.PolymarketTradeClient: a fill-or-kill order
// by default (spec.md §6 "Default type=FOK"). Amounts are scaled to the
// CLOB's fixed-point integer convention (6 decimals, USDC-denominated).
func (t *TradeClient) PlaceOrder(ctx context.Context, intent domain.PolyOrderIntent) (domain.PolyOrderResult, error) {
	if intent.Type == "" {
		intent.Type = domain.PolyOrderFOK
	}

	salt, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return domain.PolyOrderResult{}, fmt.Errorf("polymarket: generate salt: %w", err)
	}

	makerAmount, takerAmount := scaleAmounts(intent.Side, intent.Price, intent.Size)
	address := t.signer.Address().Hex()

	payload := crypto.OrderPayload{
		Salt:        salt.String(),
		Maker:       address,
		Signer:      address,
		Taker:       "0x0000000000000000000000000000000000000000",
		TokenID:     intent.TokenID,
		MakerAmount: makerAmount,
		TakerAmount: takerAmount,
		Expiration:  "0",
		Nonce:       "0",
		FeeRateBps:  "0",
		Side:        sideCode(intent.Side),
	}

	sig, err := t.signer.SignOrder(payload)
	if err != nil {
		return domain.PolyOrderResult{}, fmt.Errorf("polymarket: sign order: %w", err)
	}

	body := map[string]any{
		"order": map[string]any{
			"tokenID":       payload.TokenID,
			"makerAmount":   payload.MakerAmount,
			"takerAmount":   payload.TakerAmount,
			"side":          string(intent.Side),
			"feeRateBps":    payload.FeeRateBps,
			"nonce":         payload.Nonce,
			"expiration":    payload.Expiration,
			"signatureType": 0,
			"signature":     sig,
			"maker":         address,
			"signer":        address,
			"taker":         payload.Taker,
			"salt":          payload.Salt,
		},
		"owner":     address,
		"orderType": string(intent.Type),
	}

	respBody, err := t.doAuthenticatedRequest(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return domain.PolyOrderResult{}, fmt.Errorf("polymarket: place order: %w", err)
	}

	var result orderResultJSON
	if err := json.Unmarshal(respBody, &result); err != nil {
		return domain.PolyOrderResult{}, fmt.Errorf("polymarket: decode order result: %w", err)
	}
	if !result.Success {
		return domain.PolyOrderResult{}, fmt.Errorf("polymarket: order rejected: %s", result.ErrorMsg)
	}

	return domain.PolyOrderResult{OrderID: result.OrderID, Status: result.Status}, nil
}

// scaleAmounts converts a (price, size) pair to the CLOB's maker/taker
// integer amount convention: a BUY spends price*size USDC for size shares,
// a SELL gives up size shares for price*size USDC.
func scaleAmounts(side domain.PolyOrderSide, price, size float64) (maker string, taker string) {
	const scale = 1_000_000 // 6-decimal fixed point
	usdc := int64(price * size * scale)
	shares := int64(size * scale)
	if side == domain.PolyOrderBuy {
		return strconv.FormatInt(usdc, 10), strconv.FormatInt(shares, 10)
	}
	return strconv.FormatInt(shares, 10), strconv.FormatInt(usdc, 10)
}

func sideCode(side domain.PolyOrderSide) int {
	if side == domain.PolyOrderSell {
		return 1
	}
	return 0
}

func (t *TradeClient) doAuthenticatedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if t.hmacAuth != nil {
		address := t.signer.Address().Hex()
		for k, v := range t.hmacAuth.L2Headers(address, method, path, bodyStr) {
			req.Header.Set(k, v)
		}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, string(respBody))
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", domain.ErrUnauthorized, string(respBody))
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, string(respBody))
		default:
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}
	return respBody, nil
}

// Compile-time interface check.
var _ domain.PolymarketTradeClient = (*TradeClient)(nil)
