package services

import (
	"context"

	"github.com/shopspring/decimal"

	apperrors "pocketbook/internal/errors"
	"pocketbook/internal/models"
	"pocketbook/internal/period"
	"pocketbook/internal/repository"
)

// nearLimitPercent is the share of the limit at which a budget starts
// alerting.
var (
	nearLimitPercent = decimal.NewFromInt(80)
	hundred          = decimal.NewFromInt(100)
)

// SpendingAggregator sums what a user spent in a category over a period.
type SpendingAggregator struct {
	transactions repository.TransactionStore
}

// NewSpendingAggregator creates a SpendingAggregator reading from transactions.
func NewSpendingAggregator(transactions repository.TransactionStore) *SpendingAggregator {
	return &SpendingAggregator{transactions: transactions}
}

// SumActiveAmount returns the total of active expenses of userID in
// categoryID dated within w, bounds included. No matching rows yields zero.
func (a *SpendingAggregator) SumActiveAmount(ctx context.Context, userID string, categoryID uint, w period.Window) (decimal.Decimal, error) {
	total, err := a.transactions.SumAmount(ctx, userID, categoryID, models.TransactionKindExpense, w)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrAggregationFailure, err)
	}
	return total, nil
}

// ComputeSpending derives the spending metrics of a budget. A budget is
// over when spent exceeds the limit, and near its limit when it has used
// at least 80% but less than 100%; the two never hold together.
func ComputeSpending(limit, spent decimal.Decimal) Spending {
	m := Spending{
		TotalSpent:   spent,
		Remaining:    limit.Sub(spent),
		IsOverBudget: spent.GreaterThan(limit),
	}
	if !limit.IsPositive() {
		return m
	}

	pct := spent.Div(limit).Mul(hundred)
	m.PercentUsed = pct.Round(2).InexactFloat64()
	m.IsNearLimit = pct.GreaterThanOrEqual(nearLimitPercent) && pct.LessThan(hundred)
	return m
}
