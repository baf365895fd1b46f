package services

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"pocketbook/internal/clock"
	apperrors "pocketbook/internal/errors"
	"pocketbook/internal/logger"
	"pocketbook/internal/models"
	"pocketbook/internal/period"
	"pocketbook/internal/repository"
)

const defaultBudgetConcurrency = 4

// BudgetOptions tunes the budget service.
type BudgetOptions struct {
	// MaxConcurrency bounds how many budgets of one user are brought current
	// at the same time.
	MaxConcurrency int
	// RecomputeEndDate derives a new end date when an update changes the
	// period type or start date without supplying an end date.
	RecomputeEndDate bool
}

// budgetService manages the budget lifecycle.
type budgetService struct {
	budgets    repository.BudgetStore
	spending   *SpendingAggregator
	categories CategoryServicer
	audit      AuditServicer
	clock      clock.Clock
	opts       BudgetOptions
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(
	budgets repository.BudgetStore,
	spending *SpendingAggregator,
	categories CategoryServicer,
	audit AuditServicer,
	clk clock.Clock,
	opts BudgetOptions,
) BudgetServicer {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = defaultBudgetConcurrency
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &budgetService{
		budgets:    budgets,
		spending:   spending,
		categories: categories,
		audit:      audit,
		clock:      clk,
		opts:       opts,
	}
}

// CreateBudget creates a budget whose first period starts at input.StartDate,
// or today when no start date is given.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, input BudgetInput) (*models.Budget, error) {
	if !input.PeriodType.Valid() {
		return nil, apperrors.ErrInvalidPeriodType
	}
	if !input.LimitAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit amount must be greater than zero")
	}

	category, err := s.categories.GetCategoryByID(ctx, userID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	start := period.Today(s.clock)
	if input.StartDate != nil {
		start = *input.StartDate
	}
	end, err := period.EndDateOf(start, input.PeriodType)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidPeriodType, err)
	}

	existing, err := s.budgets.FindActiveByUserAndCategory(ctx, userID, input.CategoryID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicateActiveBudget
	}

	budget, err := s.budgets.Insert(ctx, &models.Budget{
		UserID:      userID,
		CategoryID:  input.CategoryID,
		LimitAmount: input.LimitAmount,
		PeriodType:  input.PeriodType,
		StartDate:   start,
		EndDate:     end,
		Active:      true,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateActiveBudget) {
			return nil, apperrors.ErrDuplicateActiveBudget
		}
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	budget.Category = *category

	s.logAudit(ctx, userID, "create", budget.ID, map[string]interface{}{
		"category_id":  budget.CategoryID,
		"limit_amount": budget.LimitAmount.String(),
		"period_type":  budget.PeriodType,
		"start_date":   budget.StartDate.String(),
		"end_date":     budget.EndDate.String(),
	})
	return budget, nil
}

// UpdateBudget applies the fields set in update. The resulting period must
// not end before it starts.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error) {
	if update.IsEmpty() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no fields to update")
	}
	if update.PeriodType != nil && !update.PeriodType.Valid() {
		return nil, apperrors.ErrInvalidPeriodType
	}
	if update.LimitAmount != nil && !update.LimitAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit amount must be greater than zero")
	}

	current, err := s.findActive(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	changes := repository.BudgetChanges{
		LimitAmount: update.LimitAmount,
		PeriodType:  update.PeriodType,
		StartDate:   update.StartDate,
		EndDate:     update.EndDate,
	}

	start, pt := current.StartDate, current.PeriodType
	if update.StartDate != nil {
		start = *update.StartDate
	}
	if update.PeriodType != nil {
		pt = *update.PeriodType
	}
	if s.opts.RecomputeEndDate && update.EndDate == nil && (update.StartDate != nil || update.PeriodType != nil) {
		end, err := period.EndDateOf(start, pt)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidPeriodType, err)
		}
		changes.EndDate = &end
	}

	end := current.EndDate
	if changes.EndDate != nil {
		end = *changes.EndDate
	}
	if end.Before(start) {
		return nil, apperrors.ErrInvalidBudgetPeriod
	}

	affected, err := s.budgets.UpdateFields(ctx, budgetID, userID, changes)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return nil, apperrors.ErrBudgetNotFound
	}

	s.logAudit(ctx, userID, "update", budgetID, changesForAudit(changes))
	return s.findActive(ctx, userID, budgetID)
}

// DeleteBudget soft-deletes a budget. Deleting it again reports not found.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	affected, err := s.budgets.SoftDelete(ctx, budgetID, userID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return apperrors.ErrBudgetNotFound
	}

	s.logAudit(ctx, userID, "delete", budgetID, nil)
	return nil
}

// GetBudgetsWithSpending brings every active budget of the user current and
// attaches its spending. Budgets are ordered by category description.
func (s *budgetService) GetBudgetsWithSpending(ctx context.Context, userID string) (*BudgetListing, error) {
	budgets, err := s.budgets.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	today := period.Today(s.clock)
	results := make([]*BudgetWithSpending, len(budgets))
	failures := make([]*BudgetFailure, len(budgets))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrency)
	// Per-budget errors are reported through failures[i]; the goroutines
	// never fail the group, so Wait only joins them.
	for i := range budgets {
		g.Go(func() error {
			results[i], failures[i] = s.bringCurrent(ctx, userID, budgets[i], today)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	listing := &BudgetListing{
		Budgets:  make([]BudgetWithSpending, 0, len(budgets)),
		Failures: []BudgetFailure{},
	}
	for i := range budgets {
		if failures[i] != nil {
			listing.Failures = append(listing.Failures, *failures[i])
			continue
		}
		listing.Budgets = append(listing.Budgets, *results[i])
	}

	sort.Slice(listing.Budgets, func(i, j int) bool {
		a, b := listing.Budgets[i], listing.Budgets[j]
		if a.CategoryName != b.CategoryName {
			return a.CategoryName < b.CategoryName
		}
		return a.ID < b.ID
	})
	sort.Slice(listing.Failures, func(i, j int) bool {
		a, b := listing.Failures[i], listing.Failures[j]
		if a.CategoryName != b.CategoryName {
			return a.CategoryName < b.CategoryName
		}
		return a.BudgetID < b.BudgetID
	})

	return listing, nil
}

// GetBudgetByCategory returns the active budget of a category, brought
// current and with its spending.
func (s *budgetService) GetBudgetByCategory(ctx context.Context, userID string, categoryID uint) (*BudgetWithSpending, error) {
	budget, err := s.budgets.FindActiveByUserAndCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	if budget == nil {
		return nil, apperrors.ErrBudgetNotFound
	}

	result, failure := s.bringCurrent(ctx, userID, *budget, period.Today(s.clock))
	if failure != nil {
		return nil, failure.Err
	}
	return result, nil
}

// GetBudgetAlerts returns the budgets that are over or near their limit.
// It reads through the same pipeline as GetBudgetsWithSpending.
func (s *budgetService) GetBudgetAlerts(ctx context.Context, userID string) (*BudgetAlerts, error) {
	listing, err := s.GetBudgetsWithSpending(ctx, userID)
	if err != nil {
		return nil, err
	}
	return alertsOf(listing), nil
}

// GetBudgetSummary totals the user's budgets for the current periods.
func (s *budgetService) GetBudgetSummary(ctx context.Context, userID string) (*BudgetSummary, error) {
	listing, err := s.GetBudgetsWithSpending(ctx, userID)
	if err != nil {
		return nil, err
	}
	alerts := alertsOf(listing)

	summary := &BudgetSummary{
		TotalBudgets:    len(listing.Budgets),
		TotalAlerts:     alerts.TotalAlerts,
		OverBudgetCount: alerts.OverBudgetCount,
		NearLimitCount:  alerts.NearLimitCount,
		Failures:        listing.Failures,
	}
	for _, b := range listing.Budgets {
		summary.TotalBudgeted = summary.TotalBudgeted.Add(b.LimitAmount)
		summary.TotalSpent = summary.TotalSpent.Add(b.TotalSpent)
	}
	summary.TotalRemaining = summary.TotalBudgeted.Sub(summary.TotalSpent)
	return summary, nil
}

func alertsOf(listing *BudgetListing) *BudgetAlerts {
	alerts := &BudgetAlerts{
		OverBudget: []BudgetWithSpending{},
		NearLimit:  []BudgetWithSpending{},
		Failures:   listing.Failures,
	}
	for _, b := range listing.Budgets {
		switch {
		case b.IsOverBudget:
			alerts.OverBudget = append(alerts.OverBudget, b)
		case b.IsNearLimit:
			alerts.NearLimit = append(alerts.NearLimit, b)
		}
	}
	alerts.OverBudgetCount = len(alerts.OverBudget)
	alerts.NearLimitCount = len(alerts.NearLimit)
	alerts.TotalAlerts = alerts.OverBudgetCount + alerts.NearLimitCount
	return alerts
}

// bringCurrent runs one budget through the read pipeline: decide whether
// its period elapsed, persist and re-read the new period if so, then
// aggregate spending against the stored window. Exactly one of the results
// is non-nil.
func (s *budgetService) bringCurrent(ctx context.Context, userID string, budget models.Budget, today period.Date) (*BudgetWithSpending, *BudgetFailure) {
	categoryName := budget.Category.Description

	rollover, err := period.CheckAndRollover(budget.Window(), budget.PeriodType, today)
	if err != nil {
		return nil, newBudgetFailure(&budget, categoryName, StageRollover, apperrors.Wrap(apperrors.ErrInvalidPeriodType, err))
	}

	if rollover != nil {
		if _, err := s.budgets.UpdateDates(ctx, budget.ID, rollover.Window); err != nil {
			return nil, newBudgetFailure(&budget, categoryName, StageRollover, apperrors.Wrap(apperrors.ErrStoreUnavailable, err))
		}

		reloaded, err := s.budgets.FindActiveByUserAndCategory(ctx, userID, budget.CategoryID)
		if err != nil {
			return nil, newBudgetFailure(&budget, categoryName, StageReload, apperrors.Wrap(apperrors.ErrStoreUnavailable, err))
		}
		if reloaded == nil || reloaded.ID != budget.ID {
			return nil, newBudgetFailure(&budget, categoryName, StageReload, apperrors.ErrBudgetNotFound)
		}

		logger.Get().Infow("budget period rolled over",
			"user_id", userID,
			"budget_id", budget.ID,
			"from_end_date", budget.EndDate.String(),
			"start_date", reloaded.StartDate.String(),
			"end_date", reloaded.EndDate.String(),
			"steps", rollover.Steps,
		)
		s.logAudit(ctx, userID, "rollover", budget.ID, map[string]interface{}{
			"previous_start_date": budget.StartDate.String(),
			"previous_end_date":   budget.EndDate.String(),
			"start_date":          reloaded.StartDate.String(),
			"end_date":            reloaded.EndDate.String(),
			"steps":               rollover.Steps,
		})

		if reloaded.Category.Description != "" {
			categoryName = reloaded.Category.Description
		}
		budget = *reloaded
	}

	spent, err := s.spending.SumActiveAmount(ctx, userID, budget.CategoryID, budget.Window())
	if err != nil {
		return nil, newBudgetFailure(&budget, categoryName, StageAggregation, err)
	}

	return &BudgetWithSpending{
		Budget:       budget,
		CategoryName: categoryName,
		RolledOver:   rollover != nil,
		Spending:     ComputeSpending(budget.LimitAmount, spent),
	}, nil
}

func newBudgetFailure(budget *models.Budget, categoryName string, stage FailureStage, err error) *BudgetFailure {
	failure := &BudgetFailure{
		BudgetID:     budget.ID,
		CategoryID:   budget.CategoryID,
		CategoryName: categoryName,
		Stage:        stage,
		Code:         apperrors.ErrInternalServer.Code,
		Message:      apperrors.ErrInternalServer.Message,
		Err:          err,
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		failure.Code = appErr.Code
		failure.Message = appErr.Message
	}

	logger.Get().Warnw("budget could not be brought current",
		"budget_id", budget.ID,
		"category_id", budget.CategoryID,
		"stage", stage,
		"error", err,
	)
	return failure
}

// findActive returns the user's active budget with the given ID.
func (s *budgetService) findActive(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	budgets, err := s.budgets.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	for i := range budgets {
		if budgets[i].ID == budgetID {
			return &budgets[i], nil
		}
	}
	return nil, apperrors.ErrBudgetNotFound
}

func (s *budgetService) logAudit(ctx context.Context, userID, action, budgetID string, changes map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Log(userID, action, "budget", budgetID, ClientIPFrom(ctx), changes)
}

func changesForAudit(c repository.BudgetChanges) map[string]interface{} {
	out := make(map[string]interface{}, 4)
	if c.LimitAmount != nil {
		out["limit_amount"] = c.LimitAmount.String()
	}
	if c.PeriodType != nil {
		out["period_type"] = *c.PeriodType
	}
	if c.StartDate != nil {
		out["start_date"] = c.StartDate.String()
	}
	if c.EndDate != nil {
		out["end_date"] = c.EndDate.String()
	}
	return out
}
