package quote

import (
	"context"
	"fmt"
	"sync"

	"brokerage-sim-go/internal/config"

	"github.com/shopspring/decimal"
)

// Static serves quotes from a fixed in-memory table.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// ensure Static implements the interface
var _ Provider = (*Static)(nil)

// NewStatic creates a static provider holding the given quotes.
func NewStatic(quotes ...Quote) *Static {
	s := &Static{quotes: make(map[string]Quote, len(quotes))}
	for _, q := range quotes {
		s.Set(q)
	}
	return s
}

// NewStaticFromConfig parses the configured quote table.
func NewStaticFromConfig(table map[string]config.StaticQuote) (*Static, error) {
	s := NewStatic()
	for symbol, sq := range table {
		price, err := decimal.NewFromString(sq.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid static price for %s: %w", symbol, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("static price for %s must be positive", symbol)
		}
		s.Set(Quote{Symbol: symbol, Name: sq.Name, Price: price})
	}
	return s, nil
}

// Set adds or replaces the quote of a symbol.
func (s *Static) Set(q Quote) {
	q.Symbol = Normalize(q.Symbol)
	s.mu.Lock()
	s.quotes[q.Symbol] = q
	s.mu.Unlock()
}

// Lookup returns the stored quote or ErrNotFound.
func (s *Static) Lookup(ctx context.Context, symbol string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[Normalize(symbol)]
	if !ok {
		return Quote{}, ErrNotFound
	}
	return q, nil
}
