package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/apgoswamieww-droid/expense-tracker/internal/errors"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/services"
)

// ExpenseHandler handles expense-related requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	auditService   services.AuditServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer, auditService services.AuditServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auditService: auditService}
}

// ExpenseRequest is the create and update payload. UserID is optional and,
// when present, must name the caller.
type ExpenseRequest struct {
	Title    string          `json:"title" binding:"required,max=255"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string" example:"249.50"`
	Category models.Category `json:"category" binding:"required,expense_category"`
	UserID   string          `json:"user_id" binding:"omitempty,uuid"`
}

// ExpenseResponse wraps a single expense.
type ExpenseResponse struct {
	Expense models.Expense `json:"expense"`
}

// ExpenseListResponse wraps the caller's expenses.
type ExpenseListResponse struct {
	Expenses []models.Expense `json:"expenses"`
}

// ListExpenses returns the caller's expenses, newest first
// @Summary     List expenses
// @Description List every expense owned by the authenticated user, newest first
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       user_id query string false "Owner filter; must be the caller"
// @Success     200 {object} ExpenseListResponse "Expenses"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Owner mismatch"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [get]
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if owner := c.Query("user_id"); owner != "" && owner != userID {
		respondWithError(c, apperrors.ErrOwnerMismatch)
		return
	}

	expenses, err := h.expenseService.ListExpenses(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExpenseListResponse{Expenses: expenses})
}

// GetExpense returns one expense
// @Summary     Get an expense
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Expense ID"
// @Success     200 {object} ExpenseResponse "Expense"
// @Failure     400 {object} ErrorResponse "Invalid id"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parseExpenseID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpense(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExpenseResponse{Expense: *expense})
}

// CreateExpense records a new expense for the caller
// @Summary     Create an expense
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ExpenseRequest true "Expense details"
// @Success     201 {object} ExpenseResponse "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Owner mismatch"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.UserID != "" && req.UserID != userID {
		respondWithError(c, apperrors.ErrOwnerMismatch)
		return
	}

	expense, err := h.expenseService.CreateExpense(userID, req.Title, req.Amount, req.Category)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateExpense, "expense", strconv.FormatInt(expense.ID, 10), c.ClientIP(),
		map[string]interface{}{"title": expense.Title, "amount": expense.Amount.String(), "category": expense.Category})

	c.JSON(http.StatusCreated, ExpenseResponse{Expense: *expense})
}

// UpdateExpense replaces the title, amount and category of an expense
// @Summary     Update an expense
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int            true "Expense ID"
// @Param       request body ExpenseRequest true "New expense details"
// @Success     200 {object} ExpenseResponse "Expense updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parseExpenseID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.UserID != "" && req.UserID != userID {
		respondWithError(c, apperrors.ErrOwnerMismatch)
		return
	}

	expense, err := h.expenseService.UpdateExpense(userID, id, req.Title, req.Amount, req.Category)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdateExpense, "expense", strconv.FormatInt(id, 10), c.ClientIP(),
		map[string]interface{}{"title": expense.Title, "amount": expense.Amount.String(), "category": expense.Category})

	c.JSON(http.StatusOK, ExpenseResponse{Expense: *expense})
}

// DeleteExpense removes an expense
// @Summary     Delete an expense
// @Tags        expenses
// @Security    BearerAuth
// @Param       id path int true "Expense ID"
// @Success     204 "Expense deleted"
// @Failure     400 {object} ErrorResponse "Invalid id"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parseExpenseID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseService.DeleteExpense(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteExpense, "expense", strconv.FormatInt(id, 10), c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}
