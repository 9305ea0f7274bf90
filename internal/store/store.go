// Package store defines the remote expense store the tracker talks to.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
)

// Client performs authenticated CRUD against the hosted expense table and
// exposes the current identity. Failures are returned as *errors.AppError
// values matching errors.ErrStore.
type Client interface {
	// CurrentIdentity returns nil and no error when nobody is signed in.
	CurrentIdentity(ctx context.Context) (*models.Identity, error)
	// ListExpenses returns the owner's expenses, newest first.
	ListExpenses(ctx context.Context, owner string) ([]models.Expense, error)
	InsertExpense(ctx context.Context, owner, title string, amount decimal.Decimal, category models.Category) (*models.Expense, error)
	UpdateExpense(ctx context.Context, id int64, title string, amount decimal.Decimal, category models.Category) error
	DeleteExpense(ctx context.Context, id int64) error

	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	SignUp(ctx context.Context, email, password string) (*models.Identity, error)
	SignOut(ctx context.Context) error
}
