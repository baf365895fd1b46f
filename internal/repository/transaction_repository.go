package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pocketbook/internal/models"
	"pocketbook/internal/pagination"
	"pocketbook/internal/period"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository returns a TransactionStore backed by db.
func NewTransactionRepository(db *gorm.DB) TransactionStore {
	return &transactionRepository{db: db}
}

// moneyScale matches the decimal(15,2) amount column. sqlite sums a
// NUMERIC column as a binary float, so totals are rounded back to it.
const moneyScale = 2

// sumResult receives aggregate queries; scanning straight into a
// decimal.Decimal is not supported by every driver.
type sumResult struct {
	Total decimal.Decimal `gorm:"column:total"`
}

func (r *transactionRepository) SumAmount(ctx context.Context, userID string, categoryID uint, kind models.TransactionKind, w period.Window) (decimal.Decimal, error) {
	var result sumResult
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND category_id = ? AND kind = ? AND active = ?", userID, categoryID, kind, true).
		Where("date BETWEEN ? AND ?", w.Start, w.End).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total.Round(moneyScale), nil
}

func (r *transactionRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, userID, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND user_id = ? AND active = ?", id, userID, true).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) List(ctx context.Context, userID string, filter TransactionFilter, page pagination.PageRequest) ([]models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("user_id = ? AND active = ?", userID, true)

	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []models.Transaction
	err := query.
		Preload("Category").
		Order("date DESC, created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (r *transactionRepository) SoftDelete(ctx context.Context, userID, id string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND user_id = ? AND active = ?", id, userID, true).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *transactionRepository) UpdateFields(ctx context.Context, userID, id string, changes TransactionChanges) (int64, error) {
	cols := changes.columns()
	cols["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND user_id = ? AND active = ?", id, userID, true).
		Updates(cols)
	return result.RowsAffected, result.Error
}

func (r *transactionRepository) DailyTotals(ctx context.Context, userID string, kind models.TransactionKind, w period.Window) ([]DayTotal, error) {
	var rows []DayTotal
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("date, SUM(amount) AS total").
		Where("user_id = ? AND kind = ? AND active = ?", userID, kind, true).
		Where("date BETWEEN ? AND ?", w.Start, w.End).
		Group("date").
		Order("date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(moneyScale)
	}
	return rows, nil
}

func (r *transactionRepository) CategoryTotals(ctx context.Context, userID string, kind models.TransactionKind, w period.Window, limit int) ([]CategoryTotal, error) {
	query := r.db.WithContext(ctx).
		Table("transactions").
		Select("transactions.category_id AS category_id, categories.description AS description, SUM(transactions.amount) AS total").
		Joins("JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.user_id = ? AND transactions.kind = ? AND transactions.active = ?", userID, kind, true).
		Where("transactions.date BETWEEN ? AND ?", w.Start, w.End).
		Group("transactions.category_id, categories.description").
		Order("total DESC, categories.description ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []CategoryTotal
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(moneyScale)
	}
	return rows, nil
}

func (r *transactionRepository) TotalByKind(ctx context.Context, userID string, kind models.TransactionKind) (decimal.Decimal, error) {
	var result sumResult
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND kind = ? AND active = ?", userID, kind, true).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total.Round(moneyScale), nil
}
