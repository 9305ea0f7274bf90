package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/apgoswamieww-droid/expense-tracker/internal/errors"
	"github.com/apgoswamieww-droid/expense-tracker/internal/events"
	"github.com/apgoswamieww-droid/expense-tracker/internal/logger"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
)

// expenseService stores expenses scoped to their owner and announces
// committed changes.
type expenseService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewExpenseService creates a new ExpenseServicer. A nil publisher drops
// change events.
func NewExpenseService(db *gorm.DB, publisher events.Publisher) ExpenseServicer {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &expenseService{db: db, publisher: publisher}
}

// ListExpenses returns the user's expenses, newest first.
func (s *expenseService) ListExpenses(userID string) ([]models.Expense, error) {
	expenses := []models.Expense{}
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&expenses).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expenses, nil
}

// GetExpense loads one of the user's expenses. Other users' records are
// reported as not found.
func (s *expenseService) GetExpense(userID string, id int64) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// CreateExpense inserts a new expense owned by userID.
func (s *expenseService) CreateExpense(userID, title string, amount decimal.Decimal, category models.Category) (*models.Expense, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	title = strings.TrimSpace(title)
	if err := validateEntry(title, amount, category); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		Title:    title,
		Amount:   amount,
		Category: category,
		UserID:   userID,
	}
	if err := s.db.Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.publish(events.ExpenseCreated, expense)
	return expense, nil
}

// UpdateExpense replaces the editable fields of one of the user's expenses.
func (s *expenseService) UpdateExpense(userID string, id int64, title string, amount decimal.Decimal, category models.Category) (*models.Expense, error) {
	title = strings.TrimSpace(title)
	if err := validateEntry(title, amount, category); err != nil {
		return nil, err
	}

	expense, err := s.GetExpense(userID, id)
	if err != nil {
		return nil, err
	}

	expense.Title = title
	expense.Amount = amount
	expense.Category = category
	err = s.db.Model(expense).
		Select("title", "amount", "category").
		Updates(expense).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.publish(events.ExpenseUpdated, expense)
	return expense, nil
}

// DeleteExpense removes one of the user's expenses.
func (s *expenseService) DeleteExpense(userID string, id int64) error {
	expense, err := s.GetExpense(userID, id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(&models.Expense{}, expense.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.publish(events.ExpenseDeleted, expense)
	return nil
}

// publish never fails the request; the change is already committed.
func (s *expenseService) publish(typ string, expense *models.Expense) {
	if err := s.publisher.Publish(context.Background(), events.NewExpenseEvent(typ, expense)); err != nil {
		logger.Get().Warnw("failed to publish expense event",
			"type", typ,
			"expense_id", expense.ID,
			"error", err,
		)
	}
}

func validateEntry(title string, amount decimal.Decimal, category models.Category) error {
	if err := models.ValidateEntry(title, amount, category); err != nil {
		return apperrors.WrapWithMessage(apperrors.ErrInvalidInput, err.Error(), err)
	}
	return nil
}
