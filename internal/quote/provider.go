// Package quote resolves stock symbols to live prices.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brokerage-sim-go/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a symbol does not resolve to a quote.
var ErrNotFound = errors.New("symbol not found")

// Quote is a live price for one symbol. It is never persisted.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Provider looks up the current quote of a symbol.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (Quote, error)
}

// Normalize returns the canonical form of a symbol: trimmed and upper-cased.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// New builds the provider selected by cfg.Provider.
func New(cfg *config.Quotes, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case "rest", "":
		if cfg.ApiKey == "" {
			logger.Warn("No quote API key configured, lookups will likely fail")
		}
		return NewRestClient(cfg, logger), nil
	case "static":
		logger.Warn("Using static quote table", zap.Int("symbols", len(cfg.Static)))
		return NewStaticFromConfig(cfg.Static)
	default:
		return nil, fmt.Errorf("unknown quote provider %q", cfg.Provider)
	}
}
