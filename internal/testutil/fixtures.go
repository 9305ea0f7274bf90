package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/uuid"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

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

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		IsActive:  true,
		SessionID: uuid.New(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestExpense creates an expense for the user with the given amount.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID, title string, amount int64, category models.Category) *models.Expense {
	t.Helper()
	return CreateTestExpenseAt(t, db, userID, title, amount, category, time.Now())
}

// CreateTestExpenseAt creates an expense with an explicit creation time.
func CreateTestExpenseAt(t *testing.T, db *gorm.DB, userID, title string, amount int64, category models.Category, createdAt time.Time) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		Title:     title,
		Amount:    decimal.NewFromInt(amount),
		Category:  category,
		CreatedAt: createdAt,
		UserID:    userID,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}
