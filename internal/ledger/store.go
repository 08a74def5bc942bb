// Package ledger persists users, their cash balances and the append-only
// transaction log.
package ledger

import (
	"context"
	"errors"

	"brokerage-sim-go/internal/errs"
	"brokerage-sim-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger is the bookkeeping contract the portfolio engine works against.
type Ledger interface {
	// Append inserts a new transaction and returns its id.
	Append(tx *models.Transaction) (uint, error)
	// ListByUser returns a user's transactions in insertion order.
	ListByUser(userID uint) ([]models.Transaction, error)
	GetCash(userID uint) (decimal.Decimal, error)
	SetCash(userID uint, cash decimal.Decimal) error
}

// Store is a gorm backed Ledger.
// It implements the Ledger interface.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// ensure Store implements the interface
var _ Ledger = (*Store)(nil)

// NewStore creates a ledger store on top of an open database.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("ledger")}
}

// Reader returns a Ledger whose queries are bound to ctx and run outside any
// transaction.
func (s *Store) Reader(ctx context.Context) Ledger {
	return &Store{db: s.db.WithContext(ctx), logger: s.logger}
}

// Atomically runs fn inside a single database transaction. Every write made
// through the Ledger handed to fn commits together or not at all.
func (s *Store) Atomically(ctx context.Context, fn func(l Ledger) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
	if err != nil && errs.KindOf(err) == "" {
		s.logger.Error("Ledger transaction failed", zap.Error(err))
		return errs.Wrap(errs.StorageUnavailable, err, "ledger transaction failed")
	}
	return err
}

// Append inserts tx. Entries that already carry an id are rejected.
func (s *Store) Append(tx *models.Transaction) (uint, error) {
	switch {
	case tx.ID != 0:
		return 0, errs.New(errs.InvalidInput, "transaction %d is already recorded", tx.ID)
	case tx.UserID == 0:
		return 0, errs.New(errs.InvalidInput, "transaction has no owner")
	case tx.Symbol == "":
		return 0, errs.New(errs.InvalidInput, "transaction has no symbol")
	case tx.Shares <= 0:
		return 0, errs.New(errs.InvalidInput, "transaction shares must be positive")
	case tx.Type != models.Buy && tx.Type != models.Sell:
		return 0, errs.New(errs.InvalidInput, "unknown transaction type %q", tx.Type)
	}

	if err := s.db.Create(tx).Error; err != nil {
		s.logger.Error("Failed to append transaction", zap.Uint("user_id", tx.UserID), zap.Error(err))
		return 0, errs.Wrap(errs.StorageUnavailable, err, "could not record transaction")
	}
	return tx.ID, nil
}

// ListByUser returns every transaction of a user, oldest first.
func (s *Store) ListByUser(userID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.db.Where("user_id = ?", userID).Order("id asc").Find(&txs).Error; err != nil {
		return nil, errs.Wrap(errs.StorageUnavailable, err, "could not read transactions")
	}
	return txs, nil
}

// GetCash returns the cash balance of a user.
func (s *Store) GetCash(userID uint) (decimal.Decimal, error) {
	var user models.User
	if err := s.db.Select("id", "cash").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, errs.New(errs.AuthFailure, "unknown user")
		}
		return decimal.Zero, errs.Wrap(errs.StorageUnavailable, err, "could not read cash balance")
	}
	return user.Cash, nil
}

// SetCash overwrites the cash balance of a user. Negative balances are refused.
func (s *Store) SetCash(userID uint, cash decimal.Decimal) error {
	if cash.IsNegative() {
		return errs.New(errs.InvalidInput, "cash balance cannot be negative")
	}
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Update("cash", cash)
	if res.Error != nil {
		s.logger.Error("Failed to update cash", zap.Uint("user_id", userID), zap.Error(res.Error))
		return errs.Wrap(errs.StorageUnavailable, res.Error, "could not update cash balance")
	}
	if res.RowsAffected == 0 {
		return errs.New(errs.AuthFailure, "unknown user")
	}
	return nil
}
