package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"brokerage-sim-go/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a RestClient configured to use it.
func setupTestServer(handler http.Handler) (*RestClient, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().SetBaseURL(server.URL)
	logger := zap.NewNop() // Use a no-op logger for tests

	rc := &RestClient{
		client:  client,
		apiKey:  "test_api_key",
		logger:  logger,
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
		backoff: time.Millisecond,
	}

	return rc, server
}

func TestLookup(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/stock/NFLX/quote", r.URL.Path)
			assert.Equal(t, "test_api_key", r.URL.Query().Get("token"))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"symbol":"NFLX","companyName":"Netflix Inc.","latestPrice":485.1}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		// Act
		q, err := rc.Lookup(context.Background(), " nflx ")

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, "NFLX", q.Symbol)
		assert.Equal(t, "Netflix Inc.", q.Name)
		assert.True(t, q.Price.Equal(decimal.RequireFromString("485.1")))
	})

	t.Run("NotFound", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Unknown symbol"))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.Lookup(context.Background(), "ZZZZ")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "not found must not be retried")
	})

	t.Run("NullPrice", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"symbol":"DEAD","companyName":"Delisted","latestPrice":null}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.Lookup(context.Background(), "DEAD")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("EmptySymbol", func(t *testing.T) {
		rc, server := setupTestServer(http.NotFoundHandler())
		defer server.Close()

		_, err := rc.Lookup(context.Background(), "   ")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("APIErrorIsRetried", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"msg":"Internal error"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.Lookup(context.Background(), "AAPL")

		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
		assert.Contains(t, err.Error(), "failed to look up AAPL")
		assert.Contains(t, err.Error(), "request failed after 3 attempts")
		assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&calls))
	})

	t.Run("RecoversAfterServerError", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"symbol":"AAPL","companyName":"Apple Inc.","latestPrice":"189.84"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		q, err := rc.Lookup(context.Background(), "AAPL")

		assert.NoError(t, err)
		assert.True(t, q.Price.Equal(decimal.RequireFromString("189.84")))
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("ClientErrorIsNotRetried", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusForbidden)
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.Lookup(context.Background(), "AAPL")

		assert.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("CancelledContext", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("request must not be sent")
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := rc.Lookup(ctx, "AAPL")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})
}

func TestNewRestClient(t *testing.T) {
	cfg := &config.Quotes{
		BaseURL:        "https://example.test/stable",
		ApiKey:         "key",
		Timeout:        time.Second,
		RateLimit:      5,
		RateLimitBurst: 2,
	}
	rc := NewRestClient(cfg, zap.NewNop())
	assert.NotNil(t, rc)
	assert.Equal(t, cfg.ApiKey, rc.apiKey)
	assert.Equal(t, cfg.BaseURL, rc.client.BaseURL)
	assert.Equal(t, 2, rc.limiter.Burst())
}
