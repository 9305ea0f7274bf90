package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrAmountPrecision = errors.New("amount can have at most two decimal places")
	ErrAmountTooLarge  = errors.New("amount is too large")
	ErrInvalidCategory = errors.New("category is not one of the known categories")
	ErrMissingOwner    = errors.New("expense has no owner")
	ErrMissingID       = errors.New("expense has no id")
)

// Expense is a single spending entry owned by one user.
type Expense struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string          `gorm:"not null" json:"title"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Category  Category        `gorm:"type:varchar(32);not null" json:"category"`
	CreatedAt time.Time       `gorm:"not null;index" json:"created_at"`
	UserID    string          `gorm:"type:uuid;not null;index" json:"user_id"`
}

// Amounts are stored as numeric(12,2).
const amountScale = 2

var maxAmount = decimal.New(1, 10)

// ValidateEntry checks the client-editable fields of an expense.
func ValidateEntry(title string, amount decimal.Decimal, category Category) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(amountScale)) {
		return ErrAmountPrecision
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return ErrAmountTooLarge
	}
	if !category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

// Validate checks a stored record, including the store-assigned fields.
func (e Expense) Validate() error {
	if e.ID <= 0 {
		return ErrMissingID
	}
	if e.UserID == "" {
		return ErrMissingOwner
	}
	return ValidateEntry(e.Title, e.Amount, e.Category)
}
