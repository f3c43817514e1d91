package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/polymarketbot/internal/breaker"
	"github.com/alanyoungcy/polymarketbot/internal/domain"
	"github.com/alanyoungcy/polymarketbot/internal/killswitch"
	"github.com/alanyoungcy/polymarketbot/internal/risk"
)

type fakeEventStore struct {
	logged []string
}

func (f *fakeEventStore) LogEvent(ctx context.Context, eventType string, severity domain.EventSeverity, details map[string]any) error {
	f.logged = append(f.logged, eventType)
	return nil
}

func testKillSwitchHandler(token string) (*KillSwitchHandler, *fakeEventStore) {
	sw := killswitch.New(killswitch.Config{Token: token})
	riskMgr := risk.New(risk.Config{
		MaxSingleTradeUSD:   1000,
		MaxTotalExposureUSD: 1000,
		MaxDailyLossUSD:     1000,
		MaxTradesPerHour:    100,
	})
	brk := breaker.New(breaker.Config{Cooldown: 1})
	events := &fakeEventStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewKillSwitchHandler(sw, riskMgr, brk, events, logger), events
}

func TestKillSwitchHandler_MissingAuthHeaderReturns401(t *testing.T) {
	h, _ := testKillSwitchHandler("secret-token")
	req := httptest.NewRequest(http.MethodPost, "/kill-switch", nil)
	w := httptest.NewRecorder()

	h.Activate(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
}

func TestKillSwitchHandler_MalformedAuthHeaderReturns401(t *testing.T) {
	h, _ := testKillSwitchHandler("secret-token")
	req := httptest.NewRequest(http.MethodPost, "/kill-switch", nil)
	req.Header.Set("Authorization", "secret-token")
	w := httptest.NewRecorder()

	h.Activate(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 on a malformed header, got %d", w.Code)
	}
}

func TestKillSwitchHandler_WrongTokenReturns403(t *testing.T) {
	h, _ := testKillSwitchHandler("secret-token")
	req := httptest.NewRequest(http.MethodPost, "/kill-switch", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()

	h.Activate(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("want 403 on a wrong token, got %d", w.Code)
	}
}

func TestKillSwitchHandler_ValidTokenActivatesAndLogsCriticalEvent(t *testing.T) {
	h, events := testKillSwitchHandler("secret-token")
	req := httptest.NewRequest(http.MethodPost, "/kill-switch", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()

	h.Activate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if !h.sw.IsActive() {
		t.Fatal("want the switch active after Activate")
	}
	if h.breaker.State() != breaker.Open {
		t.Fatalf("want the breaker tripped open, got %s", h.breaker.State())
	}
	if len(events.logged) != 1 || events.logged[0] != "kill_switch_activated" {
		t.Fatalf("want one kill_switch_activated event logged, got %+v", events.logged)
	}
}

func TestKillSwitchHandler_DeactivateResumesRisk(t *testing.T) {
	h, events := testKillSwitchHandler("secret-token")
	req := httptest.NewRequest(http.MethodPost, "/kill-switch", nil)
	req.Header.Set("Authorization", "Bearer secret-token")

	w1 := httptest.NewRecorder()
	h.Activate(w1, req)

	req2 := httptest.NewRequest(http.MethodPost, "/kill-switch/deactivate", nil)
	req2.Header.Set("Authorization", "Bearer secret-token")
	w2 := httptest.NewRecorder()
	h.Deactivate(w2, req2)

	if w2.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w2.Code)
	}
	if h.sw.IsActive() {
		t.Fatal("want the switch cleared after Deactivate")
	}
	if ok, _ := h.risk.CheckTrade(1, 0); !ok {
		t.Fatal("want the risk manager resumed after Deactivate")
	}
	if len(events.logged) != 2 || events.logged[1] != "kill_switch_deactivated" {
		t.Fatalf("want a kill_switch_deactivated event logged, got %+v", events.logged)
	}
}
