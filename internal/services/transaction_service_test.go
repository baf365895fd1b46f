package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pocketbook/internal/clock"
	"pocketbook/internal/models"
	"pocketbook/internal/pagination"
	"pocketbook/internal/period"
	"pocketbook/internal/repository"
	"pocketbook/internal/testutil"
)

func newTestTransactionService(db *gorm.DB, clk clock.Clock) TransactionServicer {
	return NewTransactionService(
		repository.NewTransactionRepository(db),
		NewCategoryService(db),
		NewUserService(db),
		clk,
	)
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestTransactionService(db, clockAt("2024-04-02"))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategoryNamed(t, db, user.ID, "Food")

		tx, err := svc.CreateTransaction(ctx, user.ID, TransactionInput{
			CategoryID:  cat.ID,
			Kind:        models.TransactionKindExpense,
			Amount:      decimal.RequireFromString("12.34"),
			Description: "Lunch",
		})
		testutil.AssertNoError(t, err)

		if tx.ID == "" {
			t.Fatal("expected transaction ID to be set")
		}
		if tx.Date.String() != "2024-04-02" {
			t.Errorf("expected date to default to today, got %s", tx.Date)
		}
		if tx.Category == nil || tx.Category.Description != "Food" {
			t.Errorf("expected category to be attached, got %+v", tx.Category)
		}
		testutil.AssertDecimal(t, "12.34", tx.Amount)
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestTransactionService(db, clockAt("2024-04-02"))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.CreateTransaction(ctx, user.ID, TransactionInput{CategoryID: cat.ID, Kind: models.TransactionKindExpense, Amount: decimal.RequireFromString("-5")})
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")
	})

	t.Run("invalid_kind", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestTransactionService(db, clockAt("2024-04-02"))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.CreateTransaction(ctx, user.ID, TransactionInput{CategoryID: cat.ID, Kind: "refund", Amount: decimal.RequireFromString("5")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestTransactionService(db, clockAt("2024-04-02"))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateTransaction(ctx, user.ID, TransactionInput{CategoryID: 4242, Kind: models.TransactionKindIncome, Amount: decimal.RequireFromString("5")})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestGetUserTransactions(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestTransactionService(db, clockAt("2024-04-02"))
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)

	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "1", period.MustParseDate("2024-01-01"))
	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "2", period.MustParseDate("2024-01-02"))
	testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionKindIncome, "3", period.MustParseDate("2024-01-03"))

	income := models.TransactionKindIncome
	result, err := svc.GetUserTransactions(ctx, user.ID, pagination.PageRequest{}, repository.TransactionFilter{Kind: &income})
	testutil.AssertNoError(t, err)

	if result.TotalItems != 1 || len(result.Data) != 1 {
		t.Fatalf("expected 1 income, got %d", result.TotalItems)
	}
	if result.PageSize != 20 {
		t.Errorf("expected default page size 20, got %d", result.PageSize)
	}
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestTransactionService(db, clockAt("2024-04-02"))
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)
	tx := testutil.CreateTestExpense(t, db, user.ID, cat.ID, "10", period.MustParseDate("2024-04-01"))

	err := svc.DeleteTransaction(ctx, other.ID, tx.ID)
	testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")

	testutil.AssertNoError(t, svc.DeleteTransaction(ctx, user.ID, tx.ID))

	_, err = svc.GetTransactionByID(ctx, user.ID, tx.ID)
	testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")

	err = svc.DeleteTransaction(ctx, user.ID, tx.ID)
	testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("moves_spending_between_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clk := clockAt("2024-04-20")
		svc := newTestTransactionService(db, clk)
		budgets := newTestBudgetService(db, clk, BudgetOptions{})
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategoryNamed(t, db, user.ID, "Food")
		fun := testutil.CreateTestCategoryNamed(t, db, user.ID, "Fun")
		testutil.CreateTestBudget(t, db, user.ID, food.ID, "100", period.Monthly, period.MustParseDate("2024-04-01"))
		testutil.CreateTestBudget(t, db, user.ID, fun.ID, "100", period.Monthly, period.MustParseDate("2024-04-01"))
		tx := testutil.CreateTestExpense(t, db, user.ID, food.ID, "40", period.MustParseDate("2024-04-05"))

		amount := decimal.RequireFromString("55.50")
		updated, err := svc.UpdateTransaction(ctx, user.ID, tx.ID, TransactionUpdate{CategoryID: &fun.ID, Amount: &amount})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "55.50", updated.Amount)
		if updated.CategoryID != fun.ID || updated.Date.String() != "2024-04-05" {
			t.Errorf("unexpected transaction %+v", updated)
		}

		listing, err := budgets.GetBudgetsWithSpending(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if len(listing.Budgets) != 2 {
			t.Fatalf("expected 2 budgets, got %d", len(listing.Budgets))
		}
		// Sorted by category description.
		testutil.AssertDecimal(t, "0", listing.Budgets[0].TotalSpent)
		testutil.AssertDecimal(t, "55.50", listing.Budgets[1].TotalSpent)
	})

	t.Run("date_moved_out_of_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clk := clockAt("2024-04-20")
		svc := newTestTransactionService(db, clk)
		budgets := newTestBudgetService(db, clk, BudgetOptions{})
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100", period.Monthly, period.MustParseDate("2024-04-01"))
		tx := testutil.CreateTestExpense(t, db, user.ID, cat.ID, "40", period.MustParseDate("2024-04-05"))

		march := period.MustParseDate("2024-03-31")
		_, err := svc.UpdateTransaction(ctx, user.ID, tx.ID, TransactionUpdate{Date: &march})
		testutil.AssertNoError(t, err)

		got, err := budgets.GetBudgetByCategory(ctx, user.ID, cat.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "0", got.TotalSpent)
	})

	t.Run("rejected_updates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestTransactionService(db, clockAt("2024-04-20"))
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		foreign := testutil.CreateTestCategory(t, db, other.ID)
		tx := testutil.CreateTestExpense(t, db, user.ID, cat.ID, "40", period.MustParseDate("2024-04-05"))
		zero := decimal.Zero
		note := "taxi"

		_, err := svc.UpdateTransaction(ctx, user.ID, tx.ID, TransactionUpdate{})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.UpdateTransaction(ctx, user.ID, tx.ID, TransactionUpdate{Amount: &zero})
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")

		_, err = svc.UpdateTransaction(ctx, user.ID, tx.ID, TransactionUpdate{CategoryID: &foreign.ID})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")

		_, err = svc.UpdateTransaction(ctx, other.ID, tx.ID, TransactionUpdate{Description: &note})
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")

		testutil.AssertNoError(t, svc.DeleteTransaction(ctx, user.ID, tx.ID))
		_, err = svc.UpdateTransaction(ctx, user.ID, tx.ID, TransactionUpdate{Description: &note})
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestGetCategoryTotals(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestTransactionService(db, clockAt("2024-04-20"))
	user := testutil.CreateTestUser(t, db)
	food := testutil.CreateTestCategoryNamed(t, db, user.ID, "Food")
	salary := testutil.CreateTestCategoryNamed(t, db, user.ID, "Salary")
	names := []string{"A", "B", "C", "D", "E", "F"}
	for i, name := range names {
		cat := testutil.CreateTestCategoryNamed(t, db, user.ID, name)
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, decimal.NewFromInt(int64(i+1)).String(), period.MustParseDate("2024-02-01"))
	}
	testutil.CreateTestExpense(t, db, user.ID, food.ID, "0.10", period.MustParseDate("2024-03-01"))
	testutil.CreateTestExpense(t, db, user.ID, food.ID, "0.20", period.MustParseDate("2024-03-02"))
	testutil.CreateTestTransaction(t, db, user.ID, salary.ID, models.TransactionKindIncome, "3000", period.MustParseDate("2024-03-01"))

	expenses, err := svc.GetCategoryTotals(ctx, user.ID, models.TransactionKindExpense, 2024)
	testutil.AssertNoError(t, err)
	if len(expenses) != 7 {
		t.Fatalf("expected every expense category, got %d", len(expenses))
	}
	if expenses[0].Description != "F" {
		t.Errorf("expected largest first, got %s", expenses[0].Description)
	}
	testutil.AssertDecimal(t, "0.30", expenses[6].Total)

	incomes, err := svc.GetCategoryTotals(ctx, user.ID, models.TransactionKindIncome, 2024)
	testutil.AssertNoError(t, err)
	if len(incomes) != 1 || incomes[0].Description != "Salary" {
		t.Errorf("unexpected incomes %+v", incomes)
	}

	_, err = svc.GetCategoryTotals(ctx, user.ID, "savings", 2024)
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}

func TestGetMonthlyTotals(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestTransactionService(db, clockAt("2024-12-31"))
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)

	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "10", period.MustParseDate("2024-01-05"))
	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "5.50", period.MustParseDate("2024-01-31"))
	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "7", period.MustParseDate("2024-12-31"))
	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "99", period.MustParseDate("2025-01-01"))

	totals, err := svc.GetMonthlyTotals(ctx, user.ID, models.TransactionKindExpense, 2024)
	testutil.AssertNoError(t, err)

	testutil.AssertDecimal(t, "15.50", totals.Months[0])
	testutil.AssertDecimal(t, "0", totals.Months[5])
	testutil.AssertDecimal(t, "7", totals.Months[11])
	testutil.AssertDecimal(t, "22.50", totals.Total)

	_, err = svc.GetMonthlyTotals(ctx, user.ID, models.TransactionKindExpense, 0)
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}

func TestGetTopCategories(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestTransactionService(db, clockAt("2024-12-31"))
	user := testutil.CreateTestUser(t, db)

	for i, name := range []string{"A", "B", "C", "D", "E", "F"} {
		cat := testutil.CreateTestCategoryNamed(t, db, user.ID, name)
		amount := decimal.NewFromInt(int64(10 * (i + 1))).String()
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, amount, period.MustParseDate("2024-06-01"))
	}

	top, err := svc.GetTopCategories(ctx, user.ID, 2024)
	testutil.AssertNoError(t, err)

	if len(top) != 5 {
		t.Fatalf("expected 5 categories, got %d", len(top))
	}
	if top[0].Description != "F" || top[4].Description != "B" {
		t.Errorf("expected F first and B last, got %s and %s", top[0].Description, top[4].Description)
	}

	none, err := svc.GetTopCategories(ctx, user.ID, 2023)
	testutil.AssertNoError(t, err)
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty, non-nil result, got %v", none)
	}
}

func TestGetBalance(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestTransactionService(db, clockAt("2024-12-31"))
	users := NewUserService(db)

	user, err := users.CreateUser(ctx, "balance@example.com", "password123", "", "", decimal.RequireFromString("1000"))
	testutil.AssertNoError(t, err)
	cat := testutil.CreateTestCategory(t, db, user.ID)
	testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionKindIncome, "500", period.MustParseDate("2024-02-01"))
	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "120.25", period.MustParseDate("2024-02-02"))

	balance, err := svc.GetBalance(ctx, user.ID)
	testutil.AssertNoError(t, err)

	testutil.AssertDecimal(t, "1000", balance.AvailableBudget)
	testutil.AssertDecimal(t, "500", balance.TotalIncome)
	testutil.AssertDecimal(t, "120.25", balance.TotalExpense)
	testutil.AssertDecimal(t, "1379.75", balance.Balance)
}
