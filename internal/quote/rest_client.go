package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"brokerage-sim-go/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	quotePath  = "/stock/{symbol}/quote"
	maxRetries = 3
)

// RestClient is a client for an IEX Cloud compatible quote API.
// It implements the Provider interface.
type RestClient struct {
	client  *resty.Client
	apiKey  string
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration // first retry delay, doubled on every attempt
}

var _ Provider = (*RestClient)(nil)

// NewRestClient creates a new quote API client.
func NewRestClient(cfg *config.Quotes, logger *zap.Logger) *RestClient {
	return &RestClient{
		client:  resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(cfg.Timeout),
		apiKey:  cfg.ApiKey,
		logger:  logger.Named("quotes"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		backoff: time.Second,
	}
}

// iexQuote is the subset of the quote payload we use.
type iexQuote struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
}

// Lookup fetches the latest price of a symbol.
// Unknown symbols and quotes without a usable price yield ErrNotFound.
func (c *RestClient) Lookup(ctx context.Context, symbol string) (Quote, error) {
	symbol = Normalize(symbol)
	if symbol == "" {
		return Quote{}, ErrNotFound
	}

	req := c.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParam("token", c.apiKey).
		SetHeader("Accept", "application/json").
		SetResult(&iexQuote{})

	resp, err := c.get(ctx, quotePath, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Quote{}, err
		}
		c.logger.Error("Failed to look up quote", zap.String("symbol", symbol), zap.Error(err))
		return Quote{}, fmt.Errorf("failed to look up %s: %w", symbol, err)
	}

	result := resp.Result().(*iexQuote)
	if !result.LatestPrice.IsPositive() {
		c.logger.Warn("Quote has no usable price", zap.String("symbol", symbol))
		return Quote{}, ErrNotFound
	}

	q := Quote{Symbol: symbol, Name: result.CompanyName, Price: result.LatestPrice}
	if result.Symbol != "" {
		q.Symbol = Normalize(result.Symbol)
	}
	return q, nil
}

// get runs req with rate limiting, retrying throttled, failing or unreachable
// upstreams with exponential backoff. A 404 is ErrNotFound and is never retried.
func (c *RestClient) get(ctx context.Context, path string, req *resty.Request) (*resty.Response, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Requesting quote", zap.String("path", path), zap.Int("attempt", attempt+1))
		resp, err := req.Get(path)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		retry, wait, err := c.classify(ctx, resp, err)
		if !retry {
			return nil, err
		}
		lastErr = err
		if attempt == maxRetries-1 {
			break
		}
		if wait == 0 {
			wait = c.backoff << attempt
		}

		c.logger.Warn("Quote request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}

// classify decides whether a failed attempt is worth repeating and how long
// the upstream asked us to wait, if at all.
func (c *RestClient) classify(ctx context.Context, resp *resty.Response, err error) (bool, time.Duration, error) {
	if err != nil {
		if ctx.Err() != nil {
			return false, 0, ctx.Err()
		}
		return true, 0, err
	}

	failure := fmt.Errorf("status %s: %s", resp.Status(), resp.String())
	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return false, 0, ErrNotFound
	case code == http.StatusTooManyRequests:
		var wait time.Duration
		if seconds, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil {
			wait = time.Duration(seconds) * time.Second
		}
		return true, wait, failure
	case code >= http.StatusInternalServerError:
		return true, 0, failure
	default:
		return false, 0, fmt.Errorf("request failed: %w", failure)
	}
}
