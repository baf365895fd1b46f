package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "pocketbook/internal/errors"
	"pocketbook/internal/models"
	"pocketbook/internal/period"
)

type budgetRepository struct {
	db *gorm.DB
}

// NewBudgetRepository returns a BudgetStore backed by db.
func NewBudgetRepository(db *gorm.DB) BudgetStore {
	return &budgetRepository{db: db}
}

func (r *budgetRepository) FindActiveByUser(ctx context.Context, userID string) ([]models.Budget, error) {
	var budgets []models.Budget
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at ASC").
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *budgetRepository) FindActiveByUserAndCategory(ctx context.Context, userID string, categoryID uint) (*models.Budget, error) {
	var budget models.Budget
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ? AND category_id = ? AND active = ?", userID, categoryID, true).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &budget, nil
}

// Insert re-checks uniqueness inside the write transaction so that two
// concurrent creates for the same pair cannot both succeed.
func (r *budgetRepository) Insert(ctx context.Context, budget *models.Budget) (*models.Budget, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Budget{}).
			Where("user_id = ? AND category_id = ? AND active = ?", budget.UserID, budget.CategoryID, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.ErrDuplicateActiveBudget
		}
		return tx.Create(budget).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateActiveBudget
		}
		return nil, err
	}
	return budget, nil
}

func (r *budgetRepository) UpdateDates(ctx context.Context, budgetID string, w period.Window) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Budget{}).
		Where("id = ? AND active = ?", budgetID, true).
		Updates(map[string]interface{}{
			"start_date": w.Start,
			"end_date":   w.End,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *budgetRepository) UpdateFields(ctx context.Context, budgetID, userID string, changes BudgetChanges) (int64, error) {
	cols := changes.columns()
	cols["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.Budget{}).
		Where("id = ? AND user_id = ? AND active = ?", budgetID, userID, true).
		Updates(cols)
	return result.RowsAffected, result.Error
}

func (r *budgetRepository) SoftDelete(ctx context.Context, budgetID, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Budget{}).
		Where("id = ? AND user_id = ? AND active = ?", budgetID, userID, true).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}
