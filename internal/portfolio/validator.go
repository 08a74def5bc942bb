package portfolio

import (
	"context"
	"errors"
	"strings"
	"time"

	"brokerage-sim-go/internal/errs"
	"brokerage-sim-go/internal/ledger"
	"brokerage-sim-go/internal/models"
	"brokerage-sim-go/internal/quote"

	"github.com/shopspring/decimal"
)

// ValidatedOrder is an order that passed every rule. Its price and timestamp
// are exactly what gets written to the ledger.
type ValidatedOrder struct {
	UserID    uint
	Symbol    string
	Name      string
	Shares    int64
	Price     decimal.Decimal
	Type      models.TransactionType
	Timestamp time.Time
}

// Amount is shares times price.
func (o ValidatedOrder) Amount() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Shares))
}

// Transaction returns the ledger entry recording o.
func (o ValidatedOrder) Transaction() *models.Transaction {
	return &models.Transaction{
		UserID: o.UserID,
		Symbol: o.Symbol,
		Shares: o.Shares,
		Price:  o.Price,
		Date:   o.Timestamp,
		Type:   o.Type,
	}
}

// Request is an order that passed the input and symbol rules and carries the
// quote it will execute at. It still has to be checked against the ledger.
type Request struct {
	Side   models.TransactionType
	Shares int64
	Quote  quote.Quote
}

// Validator enforces the order rules. Rules run in a fixed order and the
// first failure is returned.
type Validator struct {
	quotes quote.Provider
	now    func() time.Time
}

// NewValidator creates a validator resolving symbols through quotes.
func NewValidator(quotes quote.Provider) *Validator {
	return &Validator{quotes: quotes, now: time.Now}
}

// ValidateBuy runs every buy rule against the current ledger state.
func (v *Validator) ValidateBuy(ctx context.Context, l ledger.Ledger, userID uint, symbol, shares string) (ValidatedOrder, error) {
	req, err := v.Prepare(ctx, models.Buy, symbol, shares)
	if err != nil {
		return ValidatedOrder{}, err
	}
	return v.CheckBuy(l, userID, req)
}

// ValidateSell runs every sell rule against the current ledger state.
func (v *Validator) ValidateSell(ctx context.Context, l ledger.Ledger, userID uint, symbol, shares string) (ValidatedOrder, error) {
	req, err := v.Prepare(ctx, models.Sell, symbol, shares)
	if err != nil {
		return ValidatedOrder{}, err
	}
	return v.CheckSell(l, userID, req)
}

// Prepare applies the rules that need no ledger state: the share count must be
// a positive whole number and the symbol must resolve to a quote.
func (v *Validator) Prepare(ctx context.Context, side models.TransactionType, symbol, shares string) (Request, error) {
	n, err := ParseShares(shares)
	if err != nil {
		return Request{}, err
	}
	q, err := v.lookup(ctx, symbol)
	if err != nil {
		return Request{}, err
	}
	return Request{Side: side, Shares: n, Quote: q}, nil
}

// CheckBuy verifies the user can afford the request.
func (v *Validator) CheckBuy(l ledger.Ledger, userID uint, req Request) (ValidatedOrder, error) {
	cash, err := l.GetCash(userID)
	if err != nil {
		return ValidatedOrder{}, err
	}
	order := v.order(userID, models.Buy, req)
	if cost := order.Amount(); cost.GreaterThan(cash) {
		return ValidatedOrder{}, errs.New(errs.InsufficientFunds,
			"not enough cash: %d %s costs %s, available %s",
			order.Shares, order.Symbol, cost.StringFixed(2), cash.StringFixed(2))
	}
	return order, nil
}

// CheckSell verifies the user holds enough shares of the requested symbol.
func (v *Validator) CheckSell(l ledger.Ledger, userID uint, req Request) (ValidatedOrder, error) {
	holdings, err := ComputeHoldings(l, userID)
	if err != nil {
		return ValidatedOrder{}, err
	}
	order := v.order(userID, models.Sell, req)
	held := holdings[order.Symbol]
	if held <= 0 {
		return ValidatedOrder{}, errs.New(errs.NoPosition, "you do not own any shares of %s", order.Symbol)
	}
	if order.Shares > held {
		return ValidatedOrder{}, errs.New(errs.InsufficientShares,
			"cannot sell %d shares of %s, you own %d", order.Shares, order.Symbol, held)
	}
	return order, nil
}

func (v *Validator) order(userID uint, side models.TransactionType, req Request) ValidatedOrder {
	return ValidatedOrder{
		UserID:    userID,
		Symbol:    req.Quote.Symbol,
		Name:      req.Quote.Name,
		Shares:    req.Shares,
		Price:     req.Quote.Price,
		Type:      side,
		Timestamp: v.now(),
	}
}

// lookup resolves a symbol. A symbol the provider does not know is
// UnknownSymbol; any other provider failure is QuoteUnavailable.
func (v *Validator) lookup(ctx context.Context, symbol string) (quote.Quote, error) {
	symbol = quote.Normalize(symbol)
	if symbol == "" {
		return quote.Quote{}, errs.New(errs.UnknownSymbol, "missing symbol")
	}
	q, err := v.quotes.Lookup(ctx, symbol)
	if errors.Is(err, quote.ErrNotFound) {
		return quote.Quote{}, errs.New(errs.UnknownSymbol, "invalid symbol %s", symbol)
	}
	if err != nil {
		return quote.Quote{}, errs.Wrap(errs.QuoteUnavailable, err, "could not get a quote for %s", symbol)
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	q.Symbol = quote.Normalize(q.Symbol)
	return q, nil
}

// ParseShares checks that raw is a number, whole, and positive, in that order.
func ParseShares(raw string) (int64, error) {
	d, err := parseBounded(raw, maxShareDigits)
	if err != nil {
		return 0, errs.Wrap(errs.InvalidInput, err, "shares must be a number of at most %d digits, got %q", maxShareDigits, raw)
	}
	if !d.IsInteger() {
		return 0, errs.New(errs.NonIntegerShares, "shares must be a whole number, got %s", d)
	}
	if !d.IsPositive() {
		return 0, errs.New(errs.NonPositiveShares, "shares must be positive, got %s", d)
	}
	if !d.LessThanOrEqual(maxShares) {
		return 0, errs.New(errs.InvalidInput, "shares must not exceed %s", maxShares)
	}
	return d.IntPart(), nil
}

const (
	maxInputLen    = 64
	maxShareDigits = 13
)

// maxShares keeps share counts and their sums far inside int64.
var maxShares = decimal.NewFromInt(1_000_000_000_000)

var errOutOfRange = errors.New("out of range")

// parseBounded parses raw and rejects values with more than maxDigits integer
// digits or an extreme scale. The checks use only the coefficient and the
// exponent: comparing or rescaling a decimal like 1e50000000 allocates a
// number with fifty million digits.
func parseBounded(raw string, maxDigits int) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxInputLen {
		return decimal.Zero, errOutOfRange
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	exp := int64(d.Exponent())
	if exp < -maxInputLen || int64(d.NumDigits())+exp > int64(maxDigits) {
		return decimal.Zero, errOutOfRange
	}
	return d, nil
}
