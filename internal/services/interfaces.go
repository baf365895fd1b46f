package services

import (
	"context"

	"github.com/shopspring/decimal"

	"pocketbook/internal/models"
	"pocketbook/internal/pagination"
	"pocketbook/internal/period"
	"pocketbook/internal/repository"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string, availableBudget decimal.Decimal) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID, description string, kind models.TransactionKind) (*models.Category, error)
	GetUserCategories(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(ctx context.Context, userID string, categoryID uint) (*models.Category, error)
}

// TransactionInput holds the fields of a new income or expense.
type TransactionInput struct {
	CategoryID  uint
	Kind        models.TransactionKind
	Amount      decimal.Decimal
	Description string
	// Date defaults to today when nil.
	Date *period.Date
}

// TransactionUpdate is a partial update of an income or expense. Nil fields
// are left unchanged.
type TransactionUpdate struct {
	CategoryID  *uint
	Amount      *decimal.Decimal
	Description *string
	Date        *period.Date
}

// IsEmpty reports whether no field is set.
func (u TransactionUpdate) IsEmpty() bool {
	return u.CategoryID == nil && u.Amount == nil && u.Description == nil && u.Date == nil
}

// MonthlyTotals holds one slot per calendar month, January first. Months
// without transactions are zero.
type MonthlyTotals struct {
	Year   int                    `json:"year"`
	Kind   models.TransactionKind `json:"kind"`
	Months [12]decimal.Decimal    `json:"months"`
	Total  decimal.Decimal        `json:"total"`
}

// Balance is the user's opening budget plus incomes minus expenses.
type Balance struct {
	AvailableBudget decimal.Decimal `json:"available_budget"`
	TotalIncome     decimal.Decimal `json:"total_income"`
	TotalExpense    decimal.Decimal `json:"total_expense"`
	Balance         decimal.Decimal `json:"balance"`
}

// TransactionServicer defines the contract for income and expense logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, input TransactionInput) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter repository.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
	GetMonthlyTotals(ctx context.Context, userID string, kind models.TransactionKind, year int) (*MonthlyTotals, error)
	GetTopCategories(ctx context.Context, userID string, year int) ([]repository.CategoryTotal, error)
	GetCategoryTotals(ctx context.Context, userID string, kind models.TransactionKind, year int) ([]repository.CategoryTotal, error)
	GetBalance(ctx context.Context, userID string) (*Balance, error)
}

// BudgetInput holds the fields of a new budget. The end date is always
// derived from the start date and period type.
type BudgetInput struct {
	CategoryID  uint
	LimitAmount decimal.Decimal
	PeriodType  period.Type
	// StartDate defaults to today when nil.
	StartDate *period.Date
}

// BudgetUpdate is a partial update. Nil fields are left unchanged.
type BudgetUpdate struct {
	LimitAmount *decimal.Decimal
	PeriodType  *period.Type
	StartDate   *period.Date
	EndDate     *period.Date
}

// IsEmpty reports whether no field is set.
func (u BudgetUpdate) IsEmpty() bool {
	return u.LimitAmount == nil && u.PeriodType == nil && u.StartDate == nil && u.EndDate == nil
}

// Spending holds the metrics derived from a budget's limit and the amount
// spent in its current period.
type Spending struct {
	TotalSpent   decimal.Decimal `json:"total_spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	PercentUsed  float64         `json:"percent_used"`
	IsOverBudget bool            `json:"is_over_budget"`
	IsNearLimit  bool            `json:"is_near_limit"`
}

// BudgetWithSpending is a budget whose period is current, together with
// its spending in that period.
type BudgetWithSpending struct {
	models.Budget
	CategoryName string `json:"category_name"`
	// RolledOver is set when this read advanced the budget's period.
	RolledOver bool `json:"rolled_over"`
	Spending
}

// FailureStage names the pipeline step at which a budget failed.
type FailureStage string

const (
	StageRollover    FailureStage = "rollover"
	StageReload      FailureStage = "reload"
	StageAggregation FailureStage = "aggregation"
)

// BudgetFailure describes a budget that could not be brought current or
// whose spending could not be computed.
type BudgetFailure struct {
	BudgetID     string       `json:"budget_id"`
	CategoryID   uint         `json:"category_id"`
	CategoryName string       `json:"category_name"`
	Stage        FailureStage `json:"stage"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	Err          error        `json:"-"`
}

// BudgetListing is the result of reading every active budget of a user.
// A failure of one budget does not prevent the others from being listed.
type BudgetListing struct {
	Budgets  []BudgetWithSpending `json:"budgets"`
	Failures []BudgetFailure      `json:"failures"`
}

// BudgetAlerts lists the budgets that are over or near their limit.
type BudgetAlerts struct {
	TotalAlerts     int                  `json:"total_alerts"`
	OverBudgetCount int                  `json:"over_budget_count"`
	NearLimitCount  int                  `json:"near_limit_count"`
	OverBudget      []BudgetWithSpending `json:"over_budget"`
	NearLimit       []BudgetWithSpending `json:"near_limit"`
	Failures        []BudgetFailure      `json:"failures"`
}

// BudgetSummary aggregates a user's budgets.
type BudgetSummary struct {
	TotalBudgets    int             `json:"total_budgets"`
	TotalAlerts     int             `json:"total_alerts"`
	OverBudgetCount int             `json:"over_budget_count"`
	NearLimitCount  int             `json:"near_limit_count"`
	TotalBudgeted   decimal.Decimal `json:"total_budgeted"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	TotalRemaining  decimal.Decimal `json:"total_remaining"`
	Failures        []BudgetFailure `json:"failures"`
}

// BudgetServicer defines the contract for the budget lifecycle. Every read
// brings expired periods forward before spending is computed.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, input BudgetInput) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	GetBudgetsWithSpending(ctx context.Context, userID string) (*BudgetListing, error)
	GetBudgetByCategory(ctx context.Context, userID string, categoryID uint) (*BudgetWithSpending, error)
	GetBudgetAlerts(ctx context.Context, userID string) (*BudgetAlerts, error)
	GetBudgetSummary(ctx context.Context, userID string) (*BudgetSummary, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
