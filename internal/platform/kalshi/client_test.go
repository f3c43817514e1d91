package kalshi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func httpBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func okJSONResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       httpBody(body),
		Header:     make(http.Header),
	}
}

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func testRSAKey(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal test key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:       "https://kalshi.test",
		APIKeyID:      "key-1",
		RSAPrivateKey: testRSAKey(t),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.httpClient = &http.Client{Transport: rt}
	return c
}

func TestClient_DoSignedRequestRetriesTransportErrorsThenSucceeds(t *testing.T) {
	var attempts int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts <= 2 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return okJSONResponse(`{"markets":[]}`), nil
	})
	c := newTestClient(t, rt)

	_, err := c.doSignedRequest(context.Background(), http.MethodGet, "/markets", nil)
	if err != nil {
		t.Fatalf("want eventual success after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("want 3 attempts (1 + kalshiMaxRetries), got %d", attempts)
	}
}

func TestClient_DoSignedRequestGivesUpAfterMaxRetries(t *testing.T) {
	var attempts int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		return nil, errors.New("dial tcp: connection refused")
	})
	c := newTestClient(t, rt)

	_, err := c.doSignedRequest(context.Background(), http.MethodGet, "/markets", nil)
	if err == nil {
		t.Fatal("want error after exhausting retries")
	}
	if attempts != kalshiMaxRetries+1 {
		t.Fatalf("want %d attempts, got %d", kalshiMaxRetries+1, attempts)
	}
}

func TestClient_DoSignedRequestDoesNotRetryHTTPErrorStatus(t *testing.T) {
	var attempts int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       httpBody(`{"code":"bad_request","message":"nope"}`),
			Header:     make(http.Header),
		}, nil
	})
	c := newTestClient(t, rt)

	_, err := c.doSignedRequest(context.Background(), http.MethodGet, "/markets", nil)
	if err == nil {
		t.Fatal("want error surfaced from a non-2xx response")
	}
	if attempts != 1 {
		t.Fatalf("want a non-2xx response returned without retrying, got %d attempts", attempts)
	}
}

func TestClient_DoSignedRequestBackoffGrowsExponentially(t *testing.T) {
	var attempts int
	start := time.Now()
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts <= kalshiMaxRetries {
			return nil, errors.New("timeout")
		}
		return okJSONResponse(`{"markets":[]}`), nil
	})
	c := newTestClient(t, rt)

	if _, err := c.doSignedRequest(context.Background(), http.MethodGet, "/markets", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// kalshiRetryBaseDelay*(1 + 2) = 300ms minimum elapsed across two backoffs.
	if elapsed := time.Since(start); elapsed < kalshiRetryBaseDelay*3 {
		t.Fatalf("want backoff delays to elapse, only waited %v", elapsed)
	}
}
