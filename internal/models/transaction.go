package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the side of a ledger entry.
type TransactionType string

const (
	Buy  TransactionType = "BUY"
	Sell TransactionType = "SELL"
)

// Transaction is an immutable ledger entry. Rows are only ever inserted, so
// there are no update or soft-delete columns.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UserID    uint            `gorm:"index;not null" json:"user_id"`
	Symbol    string          `gorm:"index;not null" json:"symbol"`
	Shares    int64           `gorm:"not null" json:"shares"`
	Price     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"` // per share at execution time
	Date      time.Time       `gorm:"not null" json:"date"`
	Type      TransactionType `gorm:"type:varchar(4);not null" json:"type"`
}

// Amount is the cash value of the entry, shares times price.
func (t Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares))
}
