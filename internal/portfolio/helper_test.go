package portfolio

import (
	"context"
	"sync"
	"testing"
	"time"

	"brokerage-sim-go/internal/config"
	"brokerage-sim-go/internal/database"
	"brokerage-sim-go/internal/errs"
	"brokerage-sim-go/internal/ledger"
	"brokerage-sim-go/internal/models"
	"brokerage-sim-go/internal/quote"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProvider is a mock implementation of the quote.Provider interface.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Lookup(ctx context.Context, symbol string) (quote.Quote, error) {
	args := m.Called(symbol)
	return args.Get(0).(quote.Quote), args.Error(1)
}

// setupStore creates a ledger over a new, non-shared in-memory database.
func setupStore(t *testing.T) *ledger.Store {
	db, err := database.NewDatabase(&config.Database{
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	return ledger.NewStore(db, zap.NewNop())
}

// setupBroker creates a broker with a static quote table containing AAA at 50.
func setupBroker(t *testing.T) (*Broker, *ledger.Store, *quote.Static) {
	store := setupStore(t)
	quotes := quote.NewStatic(q("AAA", "50"))
	return NewBroker(zap.NewNop(), store, quotes), store, quotes
}

func newUser(t *testing.T, store *ledger.Store, name, cash string) uint {
	user, err := store.CreateUser(context.Background(), name, "hash", decimal.RequireFromString(cash))
	require.NoError(t, err)
	return user.ID
}

func q(symbol, price string) quote.Quote {
	return quote.Quote{Symbol: symbol, Name: symbol + " Corp", Price: decimal.RequireFromString(price)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cashOf(t *testing.T, store *ledger.Store, userID uint) decimal.Decimal {
	cash, err := store.Reader(context.Background()).GetCash(userID)
	require.NoError(t, err)
	return cash
}

// memStore is an in-memory Store. Unlike SQLite behind one connection it does
// not serialize Atomically units unless exclusive is set. GetCash waits briefly
// for a concurrent GetCash so unguarded read-modify-write sequences interleave.
type memStore struct {
	mu        sync.Mutex
	cash      map[uint]decimal.Decimal
	txs       []models.Transaction
	gate      chan struct{}
	tx        sync.Mutex
	exclusive bool
	afterList func()
}

func newMemStore() *memStore {
	return &memStore{cash: make(map[uint]decimal.Decimal), gate: make(chan struct{})}
}

func (m *memStore) addUser(userID uint, cash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash[userID] = dec(cash)
}

func (m *memStore) Atomically(_ context.Context, fn func(l ledger.Ledger) error) error {
	if m.exclusive {
		m.tx.Lock()
		defer m.tx.Unlock()
	}
	return fn(m)
}

func (m *memStore) Reader(context.Context) ledger.Ledger {
	return m
}

func (m *memStore) Append(tx *models.Transaction) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.ID = uint(len(m.txs) + 1)
	m.txs = append(m.txs, *tx)
	return tx.ID, nil
}

func (m *memStore) ListByUser(userID uint) ([]models.Transaction, error) {
	m.mu.Lock()
	var out []models.Transaction
	for _, tx := range m.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	hook := m.afterList
	m.afterList = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memStore) GetCash(userID uint) (decimal.Decimal, error) {
	m.mu.Lock()
	cash, ok := m.cash[userID]
	m.mu.Unlock()
	if !ok {
		return decimal.Zero, errs.New(errs.AuthFailure, "unknown user")
	}

	// Meet another reader if one arrives in time.
	select {
	case m.gate <- struct{}{}:
	case <-m.gate:
	case <-time.After(50 * time.Millisecond):
	}
	return cash, nil
}

func (m *memStore) SetCash(userID uint, cash decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash[userID] = cash
	return nil
}

func (m *memStore) cashOf(userID uint) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cash[userID]
}
