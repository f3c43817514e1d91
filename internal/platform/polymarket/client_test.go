package polymarket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func httpBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func newTestClient(rt roundTripFunc) *Client {
	c := New(Config{ClobHost: "https://clob.test", TokenUp: "up", TokenDown: "down"})
	c.httpClient = &http.Client{Transport: rt}
	return c
}

func TestClient_DoGetRetriesTransportErrorsThenSucceeds(t *testing.T) {
	var attempts int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts <= 2 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return &http.Response{StatusCode: http.StatusOK, Body: httpBody(`{"price":"0.5"}`), Header: make(http.Header)}, nil
	})
	c := newTestClient(rt)

	_, err := c.doGet(context.Background(), "/price")
	if err != nil {
		t.Fatalf("want eventual success after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("want 3 attempts (1 + polymarketMaxRetries), got %d", attempts)
	}
}

func TestClient_DoGetGivesUpAfterMaxRetries(t *testing.T) {
	var attempts int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		return nil, errors.New("dial tcp: connection refused")
	})
	c := newTestClient(rt)

	_, err := c.doGet(context.Background(), "/price")
	if err == nil {
		t.Fatal("want error after exhausting retries")
	}
	if attempts != polymarketMaxRetries+1 {
		t.Fatalf("want %d attempts, got %d", polymarketMaxRetries+1, attempts)
	}
}

func TestClient_DoGetDoesNotRetryHTTPErrorStatus(t *testing.T) {
	var attempts int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		return &http.Response{StatusCode: http.StatusNotFound, Body: httpBody(`not found`), Header: make(http.Header)}, nil
	})
	c := newTestClient(rt)

	_, err := c.doGet(context.Background(), "/price")
	if err == nil {
		t.Fatal("want error surfaced from a non-2xx response")
	}
	if attempts != 1 {
		t.Fatalf("want a non-2xx response returned without retrying, got %d attempts", attempts)
	}
}

func TestClient_DoGetBackoffGrowsExponentially(t *testing.T) {
	var attempts int
	start := time.Now()
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts <= polymarketMaxRetries {
			return nil, errors.New("timeout")
		}
		return &http.Response{StatusCode: http.StatusOK, Body: httpBody(`{"price":"0.5"}`), Header: make(http.Header)}, nil
	})
	c := newTestClient(rt)

	if _, err := c.doGet(context.Background(), "/price"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < polymarketRetryBaseDelay*3 {
		t.Fatalf("want backoff delays to elapse, only waited %v", elapsed)
	}
}
