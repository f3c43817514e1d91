package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/polymarketbot/internal/config"
)

func TestConfigHandler_ScrubsSecretsFromResponse(t *testing.T) {
	cfg := &config.Config{
		Wallet: config.WalletConfig{PrivateKey: "0xsecret"},
		KillSwitch: config.KillSwitchConfig{Token: "topsecret"},
		Environment: "staging",
	}
	h := NewConfigHandler(cfg)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	w := httptest.NewRecorder()
	h.GetConfig(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected response body: %v", err)
	}
	wallet := body["Wallet"].(map[string]any)
	if wallet["PrivateKey"] == "0xsecret" {
		t.Fatal("want the wallet private key scrubbed from the response")
	}
	if body["Environment"] != "staging" {
		t.Fatalf("want non-secret fields intact, got %v", body["Environment"])
	}
}
