package models

import "github.com/shopspring/decimal"

// User is an account holder.
type User struct {
	Base
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// AvailableBudget is the opening balance the user declared at sign-up.
	AvailableBudget decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"available_budget"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`
}
