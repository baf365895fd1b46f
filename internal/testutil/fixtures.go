package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"pocketbook/internal/models"
	"pocketbook/internal/period"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:           email,
		Password:        string(hash),
		FirstName:       "Test",
		LastName:        "User",
		AvailableBudget: decimal.Zero,
		IsActive:        true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates an expense category with a unique description.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string) *models.Category {
	t.Helper()
	return CreateTestCategoryNamed(t, db, userID, fmt.Sprintf("Test Category %d", nextID()))
}

// CreateTestCategoryNamed creates an expense category with the given description.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, userID, description string) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID:      userID,
		Description: description,
		Kind:        models.TransactionKindExpense,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestBudget creates an active budget whose current period starts at
// start and ends where the period type says it should.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, categoryID uint, limit string, pt period.Type, start period.Date) *models.Budget {
	t.Helper()

	end, err := period.EndDateOf(start, pt)
	if err != nil {
		t.Fatalf("failed to compute end date: %v", err)
	}

	budget := &models.Budget{
		UserID:      userID,
		CategoryID:  categoryID,
		LimitAmount: decimal.RequireFromString(limit),
		PeriodType:  pt,
		StartDate:   start,
		EndDate:     end,
		Active:      true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestTransaction creates an active transaction.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, categoryID uint, kind models.TransactionKind, amount string, date period.Date) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      userID,
		CategoryID:  categoryID,
		Kind:        kind,
		Amount:      decimal.RequireFromString(amount),
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Date:        date,
		Active:      true,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestExpense creates an active expense.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID string, categoryID uint, amount string, date period.Date) *models.Transaction {
	t.Helper()
	return CreateTestTransaction(t, db, userID, categoryID, models.TransactionKindExpense, amount, date)
}
