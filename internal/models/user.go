package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is a registered account and its cash balance.
type User struct {
	gorm.Model
	Username string          `gorm:"uniqueIndex;not null"`
	Hash     string          `gorm:"not null"`
	Cash     decimal.Decimal `gorm:"type:decimal(20,4);not null"`

	Transactions []Transaction `gorm:"foreignKey:UserID"`
}
