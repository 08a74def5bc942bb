package portfolio

import (
	"context"
	"strings"

	"brokerage-sim-go/internal/errs"
	"brokerage-sim-go/internal/ledger"
	"brokerage-sim-go/internal/models"
	"brokerage-sim-go/internal/quote"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the persistence the broker needs: atomic read-validate-write units
// and plain reads.
type Store interface {
	Atomically(ctx context.Context, fn func(l ledger.Ledger) error) error
	Reader(ctx context.Context) ledger.Ledger
}

// Broker executes buy, sell and deposit actions and serves the read side.
// Mutations of one user are serialized; different users never wait on each other.
type Broker struct {
	logger    *zap.Logger
	store     Store
	quotes    quote.Provider
	validator *Validator
	valuator  *Valuator
	locks     *userLocks
}

// NewBroker creates a new broker.
func NewBroker(logger *zap.Logger, store Store, quotes quote.Provider) *Broker {
	logger = logger.Named("broker")
	return &Broker{
		logger:    logger,
		store:     store,
		quotes:    quotes,
		validator: NewValidator(quotes),
		valuator:  NewValuator(quotes, logger),
		locks:     newUserLocks(),
	}
}

// Execution is a committed order and the cash balance it left behind.
type Execution struct {
	*models.Transaction
	Cash decimal.Decimal
}

// Buy purchases shares of symbol at the current quote.
func (b *Broker) Buy(ctx context.Context, userID uint, symbol, shares string) (*Execution, error) {
	return b.execute(ctx, userID, models.Buy, symbol, shares)
}

// Sell disposes of shares of symbol at the current quote.
func (b *Broker) Sell(ctx context.Context, userID uint, symbol, shares string) (*Execution, error) {
	return b.execute(ctx, userID, models.Sell, symbol, shares)
}

// execute validates and commits one order. The quote is fetched before the
// user lock is taken; the ledger checks and both writes happen under the lock
// in one database transaction, at the quoted price.
func (b *Broker) execute(ctx context.Context, userID uint, side models.TransactionType, symbol, shares string) (*Execution, error) {
	l := b.logger.With(
		zap.Uint("user_id", userID),
		zap.String("side", string(side)),
		zap.String("symbol", quote.Normalize(symbol)),
		zap.String("shares", shares),
	)

	req, err := b.validator.Prepare(ctx, side, symbol, shares)
	if err != nil {
		l.Info("Order rejected", zap.String("reason", string(errs.KindOf(err))), zap.Error(err))
		return nil, err
	}

	unlock := b.locks.Lock(userID)
	defer unlock()

	var committed *Execution
	err = b.store.Atomically(ctx, func(lg ledger.Ledger) error {
		var order ValidatedOrder
		var err error
		if side == models.Buy {
			order, err = b.validator.CheckBuy(lg, userID, req)
		} else {
			order, err = b.validator.CheckSell(lg, userID, req)
		}
		if err != nil {
			return err
		}

		cash, err := lg.GetCash(userID)
		if err != nil {
			return err
		}
		if side == models.Buy {
			cash = cash.Sub(order.Amount())
		} else {
			cash = cash.Add(order.Amount())
		}

		tx := order.Transaction()
		if _, err := lg.Append(tx); err != nil {
			return err
		}
		if err := lg.SetCash(userID, cash); err != nil {
			return err
		}
		committed = &Execution{Transaction: tx, Cash: cash}
		return nil
	})
	if err != nil {
		if errs.Fatal(err) {
			l.Error("Order failed", zap.Error(err))
		} else {
			l.Info("Order rejected", zap.String("reason", string(errs.KindOf(err))), zap.Error(err))
		}
		return nil, err
	}

	l.Info("Order executed",
		zap.Uint("transaction_id", committed.ID),
		zap.String("price", committed.Price.String()),
		zap.Int64("executed_shares", committed.Shares),
		zap.String("cash", committed.Cash.String()),
	)
	return committed, nil
}

// Deposit adds a positive whole amount of cash and returns the new balance.
func (b *Broker) Deposit(ctx context.Context, userID uint, amount string) (decimal.Decimal, error) {
	l := b.logger.With(zap.Uint("user_id", userID), zap.String("amount", amount))

	value, err := ParseAmount(amount)
	if err != nil {
		l.Info("Deposit rejected", zap.Error(err))
		return decimal.Zero, err
	}

	unlock := b.locks.Lock(userID)
	defer unlock()

	var balance decimal.Decimal
	err = b.store.Atomically(ctx, func(lg ledger.Ledger) error {
		cash, err := lg.GetCash(userID)
		if err != nil {
			return err
		}
		balance = cash.Add(value)
		return lg.SetCash(userID, balance)
	})
	if err != nil {
		l.Error("Deposit failed", zap.Error(err))
		return decimal.Zero, err
	}

	l.Info("Deposit credited", zap.String("balance", balance.String()))
	return balance, nil
}

// Portfolio values the user's holdings at current prices. Positions and cash
// are read in one transaction; quotes are fetched after it ends.
func (b *Broker) Portfolio(ctx context.Context, userID uint) (*Valuation, error) {
	var holdings Holdings
	var cash decimal.Decimal
	err := b.store.Atomically(ctx, func(l ledger.Ledger) error {
		var err error
		if holdings, err = ComputeHoldings(l, userID); err != nil {
			return err
		}
		cash, err = l.GetCash(userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b.valuator.Price(ctx, userID, holdings, cash)
}

// Holdings returns the user's net positions.
func (b *Broker) Holdings(ctx context.Context, userID uint) (Holdings, error) {
	return ComputeHoldings(b.store.Reader(ctx), userID)
}

// History returns every transaction of the user, oldest first.
func (b *Broker) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return b.store.Reader(ctx).ListByUser(userID)
}

// Quote resolves a symbol with the same error mapping orders use.
func (b *Broker) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	return b.validator.lookup(ctx, symbol)
}

// ParseAmount checks a deposit amount is a positive whole number.
func ParseAmount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, errs.New(errs.InvalidInput, "you must select a deposit amount")
	}
	d, err := parseBounded(raw, maxDepositDigits)
	if err != nil || !d.IsInteger() || !d.IsPositive() {
		return decimal.Zero, errs.New(errs.InvalidInput, "deposit amount must be a positive integer of at most %s", maxDeposit)
	}
	if d.GreaterThan(maxDeposit) {
		return decimal.Zero, errs.New(errs.InvalidInput, "deposit amount must not exceed %s", maxDeposit)
	}
	return d, nil
}

const maxDepositDigits = 10

var maxDeposit = decimal.NewFromInt(1_000_000_000)
