// Package repository implements the persistence boundaries used by the
// budget engine on top of GORM. Methods return raw driver errors; callers
// decide how to classify them.
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"pocketbook/internal/models"
	"pocketbook/internal/pagination"
	"pocketbook/internal/period"
)

// BudgetStore is durable storage for budget records. Only active rows are
// visible through the Find methods.
type BudgetStore interface {
	FindActiveByUser(ctx context.Context, userID string) ([]models.Budget, error)
	// FindActiveByUserAndCategory returns nil, nil when no active budget exists.
	FindActiveByUserAndCategory(ctx context.Context, userID string, categoryID uint) (*models.Budget, error)
	// Insert stores budget, failing with ErrDuplicateActiveBudget when an
	// active budget already exists for the same user and category.
	Insert(ctx context.Context, budget *models.Budget) (*models.Budget, error)
	UpdateDates(ctx context.Context, budgetID string, w period.Window) (int64, error)
	UpdateFields(ctx context.Context, budgetID, userID string, changes BudgetChanges) (int64, error)
	SoftDelete(ctx context.Context, budgetID, userID string) (int64, error)
}

// TransactionStore is durable storage for incomes and expenses.
type TransactionStore interface {
	// SumAmount totals active transactions of kind for one user and category
	// dated within w (inclusive). It returns zero when nothing matches.
	SumAmount(ctx context.Context, userID string, categoryID uint, kind models.TransactionKind, w period.Window) (decimal.Decimal, error)
	Insert(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, userID, id string) (*models.Transaction, error)
	List(ctx context.Context, userID string, filter TransactionFilter, page pagination.PageRequest) ([]models.Transaction, int64, error)
	SoftDelete(ctx context.Context, userID, id string) (int64, error)
	// UpdateFields applies changes to an active transaction owned by userID.
	UpdateFields(ctx context.Context, userID, id string, changes TransactionChanges) (int64, error)
	DailyTotals(ctx context.Context, userID string, kind models.TransactionKind, w period.Window) ([]DayTotal, error)
	CategoryTotals(ctx context.Context, userID string, kind models.TransactionKind, w period.Window, limit int) ([]CategoryTotal, error)
	TotalByKind(ctx context.Context, userID string, kind models.TransactionKind) (decimal.Decimal, error)
}

// BudgetChanges is a partial update. Nil fields are left untouched.
type BudgetChanges struct {
	LimitAmount *decimal.Decimal
	PeriodType  *period.Type
	StartDate   *period.Date
	EndDate     *period.Date
}

// IsEmpty reports whether no field is set.
func (c BudgetChanges) IsEmpty() bool {
	return c.LimitAmount == nil && c.PeriodType == nil && c.StartDate == nil && c.EndDate == nil
}

// columns maps the set fields to their column names.
func (c BudgetChanges) columns() map[string]interface{} {
	cols := make(map[string]interface{}, 5)
	if c.LimitAmount != nil {
		cols["limit_amount"] = *c.LimitAmount
	}
	if c.PeriodType != nil {
		cols["period_type"] = *c.PeriodType
	}
	if c.StartDate != nil {
		cols["start_date"] = *c.StartDate
	}
	if c.EndDate != nil {
		cols["end_date"] = *c.EndDate
	}
	return cols
}

// TransactionChanges is a partial update of a transaction. The kind of a
// transaction never changes.
type TransactionChanges struct {
	CategoryID  *uint
	Amount      *decimal.Decimal
	Description *string
	Date        *period.Date
}

// IsEmpty reports whether no field is set.
func (c TransactionChanges) IsEmpty() bool {
	return c.CategoryID == nil && c.Amount == nil && c.Description == nil && c.Date == nil
}

func (c TransactionChanges) columns() map[string]interface{} {
	cols := make(map[string]interface{}, 5)
	if c.CategoryID != nil {
		cols["category_id"] = *c.CategoryID
	}
	if c.Amount != nil {
		cols["amount"] = *c.Amount
	}
	if c.Description != nil {
		cols["description"] = *c.Description
	}
	if c.Date != nil {
		cols["date"] = *c.Date
	}
	return cols
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	Kind       *models.TransactionKind
	CategoryID *uint
	From       *period.Date
	To         *period.Date
}

// DayTotal is the sum of transactions on one date.
type DayTotal struct {
	Date  period.Date     `gorm:"column:date"`
	Total decimal.Decimal `gorm:"column:total"`
}

// CategoryTotal is the sum of transactions in one category.
type CategoryTotal struct {
	CategoryID  uint            `gorm:"column:category_id" json:"category_id"`
	Description string          `gorm:"column:description" json:"description"`
	Total       decimal.Decimal `gorm:"column:total" json:"total"`
}
