package portfolio

import (
	"context"
	"errors"
	"sync"

	"brokerage-sim-go/internal/errs"
	"brokerage-sim-go/internal/ledger"
	"brokerage-sim-go/internal/quote"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Position is one valued holding.
type Position struct {
	Symbol   string          `json:"symbol"`
	Shares   int64           `json:"shares"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Valuation is a user's net worth at current prices.
type Valuation struct {
	Holdings []Position      `json:"holdings"`
	Cash     decimal.Decimal `json:"cash"`
	Total    decimal.Decimal `json:"total"`
}

// Valuator prices holdings against live quotes.
type Valuator struct {
	quotes quote.Provider
	logger *zap.Logger
}

// NewValuator creates a valuator.
func NewValuator(quotes quote.Provider, logger *zap.Logger) *Valuator {
	return &Valuator{quotes: quotes, logger: logger}
}

// Valuate reads a user's positions and cash from l and prices them.
// l should be a consistent view, such as a transaction, or a concurrent
// commit can pair old positions with new cash.
func (v *Valuator) Valuate(ctx context.Context, l ledger.Ledger, userID uint) (*Valuation, error) {
	holdings, err := ComputeHoldings(l, userID)
	if err != nil {
		return nil, err
	}
	cash, err := l.GetCash(userID)
	if err != nil {
		return nil, err
	}
	return v.Price(ctx, userID, holdings, cash)
}

// Price values holdings at current quotes. A position that cannot be priced
// fails the whole valuation with QuoteUnavailable rather than being dropped.
func (v *Valuator) Price(ctx context.Context, userID uint, holdings Holdings, cash decimal.Decimal) (*Valuation, error) {
	symbols := holdings.Symbols()
	positions := make([]Position, len(symbols))
	failures := make([]error, len(symbols))

	// Quotes are fetched concurrently; each goroutine owns one slot.
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			q, err := v.quotes.Lookup(ctx, symbol)
			if err != nil {
				failures[i] = err
				return
			}
			shares := holdings[symbol]
			positions[i] = Position{
				Symbol:   symbol,
				Shares:   shares,
				Name:     q.Name,
				Price:    q.Price,
				Subtotal: q.Price.Mul(decimal.NewFromInt(shares)).Round(2),
			}
		}(i, symbol)
	}
	wg.Wait()

	if err := errors.Join(failures...); err != nil {
		v.logger.Error("Failed to price portfolio", zap.Uint("user_id", userID), zap.Error(err))
		return nil, errs.Wrap(errs.QuoteUnavailable, err, "could not price every position")
	}

	total := cash
	for _, p := range positions {
		total = total.Add(p.Subtotal)
	}

	return &Valuation{Holdings: positions, Cash: cash, Total: total}, nil
}
