package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pocketbook/internal/errors"
	"pocketbook/internal/models"
	"pocketbook/internal/pagination"
	"pocketbook/internal/repository"
	"pocketbook/internal/services"
)

// TransactionHandler handles income and expense requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	CategoryID  uint                   `json:"category_id" binding:"required"`
	Kind        models.TransactionKind `json:"kind" binding:"required,transaction_kind" example:"expense"`
	Amount      decimal.Decimal        `json:"amount" swaggertype:"string" example:"42.50"`
	Description string                 `json:"description" binding:"max=500"`
	Date        string                 `json:"date" binding:"omitempty,calendar_date" example:"2026-03-01"`
}

// UpdateTransactionRequest is a partial update. Omitted fields keep their values.
type UpdateTransactionRequest struct {
	CategoryID  *uint            `json:"category_id" binding:"omitempty,min=1"`
	Amount      *decimal.Decimal `json:"amount" swaggertype:"string" example:"19.99"`
	Description *string          `json:"description" binding:"omitempty,max=500"`
	Date        *string          `json:"date" binding:"omitempty,calendar_date" example:"2026-03-02"`
}

// TransactionListQuery holds the filters of GET /transactions.
type TransactionListQuery struct {
	pagination.PageRequest
	Kind       models.TransactionKind `form:"kind" binding:"omitempty,transaction_kind"`
	CategoryID uint                   `form:"category_id"`
	From       string                 `form:"from" binding:"omitempty,calendar_date"`
	To         string                 `form:"to" binding:"omitempty,calendar_date"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record an income or expense. The date defaults to today.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or amount"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	input := services.TransactionInput{
		CategoryID:  req.CategoryID,
		Kind:        req.Kind,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Date != "" {
		if input.Date, err = parseDate("date", req.Date); err != nil {
			respondWithError(c, err)
			return
		}
	}

	transaction, err := h.transactionService.CreateTransaction(requestContext(c), userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions lists the user's transactions, newest first.
// @Summary     List transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       kind        query string false "income or expense"
// @Param       category_id query int    false "Category ID"
// @Param       from        query string false "First date (YYYY-MM-DD)"
// @Param       to          query string false "Last date (YYYY-MM-DD)"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	var filter repository.TransactionFilter
	if q.Kind != "" {
		filter.Kind = &q.Kind
	}
	if q.CategoryID != 0 {
		filter.CategoryID = &q.CategoryID
	}
	if q.From != "" {
		if filter.From, err = parseDate("from", q.From); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if q.To != "" {
		if filter.To, err = parseDate("to", q.To); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "to must not be before from"))
		return
	}

	result, err := h.transactionService.GetUserTransactions(requestContext(c), userID, q.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction returns one transaction.
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parseUUIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(requestContext(c), userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction changes an income or expense.
// @Summary     Update a transaction
// @Description Update the category, amount, description or date. Budgets covering the old or new date reflect the change on their next read.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to change"
// @Success     200 {object} models.Transaction "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input or amount"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or category not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parseUUIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	update := services.TransactionUpdate{
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Date != nil {
		if update.Date, err = parseDate("date", *req.Date); err != nil {
			respondWithError(c, err)
			return
		}
	}

	transaction, err := h.transactionService.UpdateTransaction(requestContext(c), userID, transactionID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction deactivates a transaction.
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parseUUIDParam(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(requestContext(c), userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Transaction deleted successfully"})
}

// GetMonthlyTotals returns per-month totals of one kind for a year.
// @Summary     Monthly totals
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       kind query string false "income or expense (default expense)"
// @Param       year query int    false "Year (default current year)"
// @Success     200 {object} services.MonthlyTotals "Monthly totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports/monthly [get]
func (h *TransactionHandler) GetMonthlyTotals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	kind := models.TransactionKind(c.DefaultQuery("kind", string(models.TransactionKindExpense)))
	if !kind.Valid() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be 'income' or 'expense'"))
		return
	}
	year, err := queryYear(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	totals, err := h.transactionService.GetMonthlyTotals(requestContext(c), userID, kind, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, totals)
}

// GetTopCategories returns the categories with the largest expenses in a year.
// @Summary     Top expense categories
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       year query int false "Year (default current year)"
// @Success     200 {array}  repository.CategoryTotal "Top categories"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports/top-categories [get]
func (h *TransactionHandler) GetTopCategories(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year, err := queryYear(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	top, err := h.transactionService.GetTopCategories(requestContext(c), userID, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "categories": top})
}

// GetCategoryTotals returns the totals of one kind for every category in a year.
// @Summary     Totals by category
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       kind query string false "income or expense (default expense)"
// @Param       year query int    false "Year (default current year)"
// @Success     200 {array}  repository.CategoryTotal "Category totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports/categories [get]
func (h *TransactionHandler) GetCategoryTotals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	kind := models.TransactionKind(c.DefaultQuery("kind", string(models.TransactionKindExpense)))
	if !kind.Valid() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be 'income' or 'expense'"))
		return
	}
	year, err := queryYear(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	totals, err := h.transactionService.GetCategoryTotals(requestContext(c), userID, kind, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "kind": kind, "categories": totals})
}

// GetBalance returns the user's running balance.
// @Summary     Balance
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Balance "Balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports/balance [get]
func (h *TransactionHandler) GetBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	balance, err := h.transactionService.GetBalance(requestContext(c), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func queryYear(c *gin.Context) (int, error) {
	raw := c.Query("year")
	if raw == "" {
		return time.Now().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 || year > 9999 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "year must be between 1 and 9999")
	}
	return year, nil
}
