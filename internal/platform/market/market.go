// Package market centralizes the two venue-identifier stubs that spec.md §9
// leaves as open questions: how the current hour's Kalshi ticker is derived,
// and what a Polymarket token id looks like before one is supplied. Neither
// venue exposes a "give me the contract bound to this hour" lookup that this
// bot can call, so both stay documented stubs here rather than invented
// discovery logic scattered across the Kalshi and Polymarket clients.
package market

import "fmt"

// KalshiTicker builds the per-strike ticker string for the bound hourly
// event, following the "KXBTCD-STRIKE-<int>" shape named in spec.md §9. The
// event portion (e.g. "25JUL2918") still has to come from configuration
// (KalshiConfig.EventTicker) — rolling to the next hour's market is an
// operator action, not something this function infers.
func KalshiTicker(eventTicker string, strike int) string {
	if eventTicker == "" {
		return fmt.Sprintf("KXBTCD-STRIKE-%d", strike)
	}
	return fmt.Sprintf("%s-%d", eventTicker, strike)
}

// PlaceholderTokenID documents the stub Polymarket CLOB token id used until a
// real token id is configured for the bound hourly market. Polymarket mints a
// fresh pair of Up/Down token ids for every market it lists, and there is no
// API this bot can poll to learn the current hour's pair automatically, so
// deployments must supply PolymarketConfig.TokenUp/TokenDown directly.
const PlaceholderTokenID = "placeholder_token_id"

// IsPlaceholder reports whether a configured token id is still the
// documented stub rather than a real CLOB token id.
func IsPlaceholder(tokenID string) bool {
	return tokenID == "" || tokenID == PlaceholderTokenID
}
