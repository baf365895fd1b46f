package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/clock"
	apperrors "pocketbook/internal/errors"
	"pocketbook/internal/models"
	"pocketbook/internal/pagination"
	"pocketbook/internal/period"
	"pocketbook/internal/repository"
)

const topCategoriesLimit = 5

// transactionService handles income and expense business logic.
type transactionService struct {
	transactions repository.TransactionStore
	categories   CategoryServicer
	users        UserServicer
	clock        clock.Clock
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(
	transactions repository.TransactionStore,
	categories CategoryServicer,
	users UserServicer,
	clk clock.Clock,
) TransactionServicer {
	if clk == nil {
		clk = clock.System{}
	}
	return &transactionService{
		transactions: transactions,
		categories:   categories,
		users:        users,
		clock:        clk,
	}
}

// CreateTransaction records an income or expense in one of the user's categories.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, input TransactionInput) (*models.Transaction, error) {
	if !input.Kind.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be income or expense")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}

	category, err := s.categories.GetCategoryByID(ctx, userID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	date := period.Today(s.clock)
	if input.Date != nil {
		date = *input.Date
	}

	tx := &models.Transaction{
		UserID:      userID,
		CategoryID:  category.ID,
		Kind:        input.Kind,
		Amount:      input.Amount,
		Description: input.Description,
		Date:        date,
		Active:      true,
	}
	if err := s.transactions.Insert(ctx, tx); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	tx.Category = category

	return tx, nil
}

// GetUserTransactions returns a paginated list of the user's active transactions.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter repository.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	txs, total, err := s.transactions.List(ctx, userID, filter, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	result := pagination.NewPageResponse(txs, page.Page, page.PageSize, total)
	return &result, nil
}

// GetTransactionByID returns an active transaction owned by the user.
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, userID, transactionID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	if tx == nil {
		return nil, apperrors.ErrTransactionNotFound
	}
	return tx, nil
}

// UpdateTransaction changes the set fields of an active transaction. Budget
// spending is summed on read, so budgets see the new values immediately.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	if update.IsEmpty() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no fields to update")
	}
	if update.Amount != nil && !update.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if update.CategoryID != nil {
		if _, err := s.categories.GetCategoryByID(ctx, userID, *update.CategoryID); err != nil {
			return nil, err
		}
	}

	changes := repository.TransactionChanges{
		CategoryID:  update.CategoryID,
		Amount:      update.Amount,
		Description: update.Description,
		Date:        update.Date,
	}
	affected, err := s.transactions.UpdateFields(ctx, userID, transactionID, changes)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return nil, apperrors.ErrTransactionNotFound
	}

	return s.GetTransactionByID(ctx, userID, transactionID)
}

// DeleteTransaction soft-deletes a transaction.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	affected, err := s.transactions.SoftDelete(ctx, userID, transactionID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// GetMonthlyTotals returns the totals of kind for every month of year.
func (s *transactionService) GetMonthlyTotals(ctx context.Context, userID string, kind models.TransactionKind, year int) (*MonthlyTotals, error) {
	if !kind.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be income or expense")
	}
	w, err := yearWindow(year)
	if err != nil {
		return nil, err
	}

	days, err := s.transactions.DailyTotals(ctx, userID, kind, w)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	totals := &MonthlyTotals{Year: year, Kind: kind}
	for i := range totals.Months {
		totals.Months[i] = decimal.Zero
	}
	for _, d := range days {
		m := d.Date.Month - 1
		totals.Months[m] = totals.Months[m].Add(d.Total)
		totals.Total = totals.Total.Add(d.Total)
	}
	return totals, nil
}

// GetTopCategories returns the five categories the user spent most on in year.
func (s *transactionService) GetTopCategories(ctx context.Context, userID string, year int) ([]repository.CategoryTotal, error) {
	w, err := yearWindow(year)
	if err != nil {
		return nil, err
	}

	totals, err := s.transactions.CategoryTotals(ctx, userID, models.TransactionKindExpense, w, topCategoriesLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	if totals == nil {
		totals = []repository.CategoryTotal{}
	}
	return totals, nil
}

// GetCategoryTotals returns the totals of kind per category for year,
// largest first.
func (s *transactionService) GetCategoryTotals(ctx context.Context, userID string, kind models.TransactionKind, year int) ([]repository.CategoryTotal, error) {
	if !kind.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be income or expense")
	}
	w, err := yearWindow(year)
	if err != nil {
		return nil, err
	}

	totals, err := s.transactions.CategoryTotals(ctx, userID, kind, w, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	if totals == nil {
		totals = []repository.CategoryTotal{}
	}
	return totals, nil
}

// GetBalance returns the user's available budget plus all incomes minus all expenses.
func (s *transactionService) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	income, err := s.transactions.TotalByKind(ctx, userID, models.TransactionKindIncome)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	expense, err := s.transactions.TotalByKind(ctx, userID, models.TransactionKindExpense)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	return &Balance{
		AvailableBudget: user.AvailableBudget,
		TotalIncome:     income,
		TotalExpense:    expense,
		Balance:         user.AvailableBudget.Add(income).Sub(expense),
	}, nil
}

func yearWindow(year int) (period.Window, error) {
	if year < 1 || year > 9999 {
		return period.Window{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "year is out of range")
	}
	return period.Window{
		Start: period.NewDate(year, time.January, 1),
		End:   period.NewDate(year, time.December, 31),
	}, nil
}
