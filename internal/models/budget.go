package models

import (
	"github.com/shopspring/decimal"

	"pocketbook/internal/period"
)

// Budget is a spending ceiling for one category over a recurring period.
// StartDate and EndDate bound the current period and are advanced in place
// when the period elapses.
type Budget struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index:idx_budgets_user_category" json:"user_id"`
	CategoryID  uint            `gorm:"not null;index:idx_budgets_user_category" json:"category_id"`
	LimitAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"limit_amount"`
	PeriodType  period.Type     `gorm:"type:varchar(16);not null" json:"period_type"`
	StartDate   period.Date     `gorm:"type:date;not null" json:"start_date"`
	EndDate     period.Date     `gorm:"type:date;not null" json:"end_date"`
	Active      bool            `gorm:"not null;default:true;index" json:"active"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"-"`
}

// Window returns the budget's current period.
func (b *Budget) Window() period.Window {
	return period.Window{Start: b.StartDate, End: b.EndDate}
}
