package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pocketbook/internal/period"
	"pocketbook/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CreateBudgetRequest represents the request payload for creating a budget.
// The end date is derived from the start date and period type.
type CreateBudgetRequest struct {
	CategoryID  uint            `json:"category_id" binding:"required"`
	LimitAmount decimal.Decimal `json:"limit_amount" binding:"required,gt=0" swaggertype:"string" example:"500.00"`
	PeriodType  period.Type     `json:"period_type" binding:"required,period_type" example:"monthly"`
	StartDate   string          `json:"start_date" binding:"omitempty,calendar_date" example:"2026-01-15"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
// Omitted fields are left unchanged.
type UpdateBudgetRequest struct {
	LimitAmount *decimal.Decimal `json:"limit_amount" binding:"omitempty,gt=0" swaggertype:"string"`
	PeriodType  *period.Type     `json:"period_type" binding:"omitempty,period_type"`
	StartDate   *string          `json:"start_date" binding:"omitempty,calendar_date"`
	EndDate     *string          `json:"end_date" binding:"omitempty,calendar_date"`
}

// BudgetListResponse is the body of GET /budgets.
type BudgetListResponse = services.BudgetListing

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Create a recurring budget for a category. Only one active budget may exist per category.
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input or period type"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Category already has an active budget"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	input := services.BudgetInput{
		CategoryID:  req.CategoryID,
		LimitAmount: req.LimitAmount,
		PeriodType:  req.PeriodType,
	}
	if req.StartDate != "" {
		if input.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
			respondWithError(c, err)
			return
		}
	}

	budget, err := h.budgetService.CreateBudget(requestContext(c), userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetBudgets lists the user's active budgets with their spending.
// @Summary     List budgets
// @Description Bring every active budget into its current period and return it with its spending. Budgets that fail are reported under failures.
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} BudgetListResponse "Budgets with spending"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Store unavailable"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	listing, err := h.budgetService.GetBudgetsWithSpending(requestContext(c), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// GetBudgetByCategory returns the active budget of one category.
// @Summary     Get budget by category
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       categoryId path int true "Category ID"
// @Success     200 {object} services.BudgetWithSpending "Budget with spending"
// @Failure     400 {object} ErrorResponse "Invalid category ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No active budget for the category"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/category/{categoryId} [get]
func (h *BudgetHandler) GetBudgetByCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parseUintParam(c, "categoryId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByCategory(requestContext(c), userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// GetBudgetAlerts lists budgets that are over or near their limit.
// @Summary     Get budget alerts
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.BudgetAlerts "Alerts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Store unavailable"
// @Router      /budgets/alerts [get]
func (h *BudgetHandler) GetBudgetAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	alerts, err := h.budgetService.GetBudgetAlerts(requestContext(c), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// GetBudgetSummary totals the user's budgets.
// @Summary     Get budget summary
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.BudgetSummary "Summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Store unavailable"
// @Router      /budgets/summary [get]
func (h *BudgetHandler) GetBudgetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.budgetService.GetBudgetSummary(requestContext(c), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// UpdateBudget handles a partial update of a budget.
// @Summary     Update a budget
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to change"
// @Success     200 {object} models.Budget "Budget updated"
// @Failure     400 {object} ErrorResponse "Invalid input or period"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parseUUIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	update := services.BudgetUpdate{
		LimitAmount: req.LimitAmount,
		PeriodType:  req.PeriodType,
	}
	if req.StartDate != nil {
		if update.StartDate, err = parseDate("start_date", *req.StartDate); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if req.EndDate != nil {
		if update.EndDate, err = parseDate("end_date", *req.EndDate); err != nil {
			respondWithError(c, err)
			return
		}
	}

	budget, err := h.budgetService.UpdateBudget(requestContext(c), userID, budgetID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget deactivates a budget, freeing its category for a new one.
// @Summary     Delete a budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} MessageResponse "Budget deleted"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parseUUIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(requestContext(c), userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Budget deleted successfully"})
}
