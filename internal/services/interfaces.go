package services

import (
	"github.com/shopspring/decimal"

	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	// ValidateSession fails unless sessionID is the user's live session.
	ValidateSession(userID, sessionID string) (*models.User, error)
	// RotateSession replaces the session id, revoking every issued token.
	RotateSession(userID string) (string, error)
}

// ExpenseServicer defines the contract for owner-scoped expense storage.
type ExpenseServicer interface {
	ListExpenses(userID string) ([]models.Expense, error)
	GetExpense(userID string, id int64) (*models.Expense, error)
	CreateExpense(userID, title string, amount decimal.Decimal, category models.Category) (*models.Expense, error)
	UpdateExpense(userID string, id int64, title string, amount decimal.Decimal, category models.Category) (*models.Expense, error)
	DeleteExpense(userID string, id int64) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
