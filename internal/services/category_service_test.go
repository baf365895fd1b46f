package services

import (
	"context"
	"testing"

	"pocketbook/internal/models"
	"pocketbook/internal/pagination"
	"pocketbook/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		cat, err := svc.CreateCategory(ctx, user.ID, "  Groceries ", models.TransactionKindExpense)
		testutil.AssertNoError(t, err)

		if cat.ID == 0 {
			t.Fatal("expected non-zero category ID")
		}
		if cat.Description != "Groceries" {
			t.Errorf("expected description Groceries, got %q", cat.Description)
		}
		if cat.Kind != models.TransactionKindExpense {
			t.Errorf("expected kind expense, got %s", cat.Kind)
		}
	})

	t.Run("kind_defaults_to_expense", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		cat, err := svc.CreateCategory(ctx, user.ID, "Misc", "")
		testutil.AssertNoError(t, err)

		if cat.Kind != models.TransactionKindExpense {
			t.Errorf("expected kind expense, got %s", cat.Kind)
		}
	})

	t.Run("duplicate_description", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(ctx, user.ID, "Food", models.TransactionKindExpense)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateCategory(ctx, user.ID, "Food", models.TransactionKindExpense)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("same_description_other_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(ctx, user1.ID, "Food", models.TransactionKindExpense)
		testutil.AssertNoError(t, err)
		_, err = svc.CreateCategory(ctx, user2.ID, "Food", models.TransactionKindExpense)
		testutil.AssertNoError(t, err)
	})

	t.Run("empty_description", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(ctx, user.ID, "   ", models.TransactionKindExpense)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_kind", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(ctx, user.ID, "Food", "transfer")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserCategories(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	for _, name := range []string{"Rent", "Books", "Food"} {
		testutil.CreateTestCategoryNamed(t, db, user.ID, name)
	}
	testutil.CreateTestCategory(t, db, other.ID)

	result, err := svc.GetUserCategories(ctx, user.ID, pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)

	if result.TotalItems != 3 {
		t.Errorf("expected 3 total items, got %d", result.TotalItems)
	}
	if result.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", result.TotalPages)
	}
	if len(result.Data) != 2 || result.Data[0].Description != "Books" || result.Data[1].Description != "Food" {
		t.Errorf("expected Books, Food on first page, got %+v", result.Data)
	}
}

func TestGetCategoryByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestCategory(t, db, user.ID)

		cat, err := svc.GetCategoryByID(ctx, user.ID, created.ID)
		testutil.AssertNoError(t, err)

		if cat.Description != created.Description {
			t.Errorf("expected %s, got %s", created.Description, cat.Description)
		}
	})

	t.Run("other_users_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestCategory(t, db, other.ID)

		_, err := svc.GetCategoryByID(ctx, user.ID, created.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}
