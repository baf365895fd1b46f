package models

import (
	"github.com/shopspring/decimal"

	"pocketbook/internal/period"
)

// TransactionKind distinguishes money coming in from money going out.
type TransactionKind string

const (
	TransactionKindIncome  TransactionKind = "income"
	TransactionKindExpense TransactionKind = "expense"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	return k == TransactionKindIncome || k == TransactionKindExpense
}

// Transaction is a single income or expense on a calendar date.
type Transaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index:idx_transactions_owner" json:"user_id"`
	CategoryID  uint            `gorm:"not null;index:idx_transactions_owner" json:"category_id"`
	Kind        TransactionKind `gorm:"type:varchar(16);not null;index" json:"kind"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Description string          `json:"description"`
	Date        period.Date     `gorm:"type:date;not null;index" json:"date"`
	Active      bool            `gorm:"not null;default:true" json:"active"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
