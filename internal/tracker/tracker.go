// Package tracker holds one user session of the expense tracker: the
// authoritative expense snapshot, the session identity, the filter and the
// entry form. It coordinates every mutation against the remote store.
package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/apgoswamieww-droid/expense-tracker/internal/errors"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/store"
	"github.com/apgoswamieww-droid/expense-tracker/internal/view"
)

// DefaultBudget is the monthly budget used when none is configured.
var DefaultBudget = decimal.NewFromInt(15000)

// Form is the entry form. A nil Amount means the field is empty.
type Form struct {
	Title    string
	Amount   *decimal.Decimal
	Category models.Category
}

// DefaultForm is the empty entry form.
func DefaultForm() Form {
	return Form{Category: models.DefaultCategory}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithBudget sets the monthly budget used for savings.
func WithBudget(budget decimal.Decimal) Option {
	return func(t *Tracker) { t.budget = budget }
}

// WithLogger sets the logger for initialization and store failures.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// Tracker is safe for concurrent readers. Remote operations are serialized
// by the busy flag.
type Tracker struct {
	store    store.Client
	prompter Prompter
	notifier Notifier
	log      *zap.SugaredLogger
	budget   decimal.Decimal

	busy busyFlag

	mu           sync.RWMutex
	identity     *models.Identity
	expenses     []models.Expense
	criteria     view.Criteria
	form         Form
	editing      *int64
	initializing bool
}

// New creates a signed-out tracker over client. Nil prompter declines every
// confirmation and nil notifier discards notices.
func New(client store.Client, prompter Prompter, notifier Notifier, opts ...Option) *Tracker {
	if prompter == nil {
		prompter = declinePrompter{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	t := &Tracker{
		store:    client,
		prompter: prompter,
		notifier: notifier,
		log:      zap.NewNop().Sugar(),
		budget:   DefaultBudget,
		criteria: view.DefaultCriteria(),
		form:     DefaultForm(),
		expenses: []models.Expense{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Identity returns the signed-in user, or nil.
func (t *Tracker) Identity() *models.Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.identity == nil {
		return nil
	}
	id := *t.identity
	return &id
}

// Authenticated reports whether a user is signed in.
func (t *Tracker) Authenticated() bool {
	return t.Identity() != nil
}

// Initializing is true while Start runs.
func (t *Tracker) Initializing() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.initializing
}

// Busy is true while a remote operation is in flight.
func (t *Tracker) Busy() bool {
	return t.busy.held()
}

// Budget returns the configured monthly budget.
func (t *Tracker) Budget() decimal.Decimal {
	return t.budget
}

// Expenses returns a copy of the authoritative snapshot, newest first.
func (t *Tracker) Expenses() []models.Expense {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Expense, len(t.expenses))
	copy(out, t.expenses)
	return out
}

// Criteria returns the active filter.
func (t *Tracker) Criteria() view.Criteria {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.criteria
}

// SetCriteria replaces the active filter. An empty category means All.
func (t *Tracker) SetCriteria(c view.Criteria) {
	if c.Category == "" {
		c.Category = models.CategoryAll
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.criteria = c
}

// ClearFilters restores the default filter.
func (t *Tracker) ClearFilters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.criteria.Clear()
}

// View returns the snapshot filtered by the active criteria.
func (t *Tracker) View() []models.Expense {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return view.Apply(t.expenses, t.criteria)
}

// Summary totals the whole snapshot against the budget.
func (t *Tracker) Summary() view.Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return view.Summarize(t.expenses, t.budget)
}

// Form returns the entry form.
func (t *Tracker) Form() Form {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyForm(t.form)
}

// SetForm replaces the entry form.
func (t *Tracker) SetForm(f Form) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.form = copyForm(f)
}

// Editing returns the id of the record in edit mode.
func (t *Tracker) Editing() (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.editing == nil {
		return 0, false
	}
	return *t.editing, true
}

// Start checks for a signed-in user and loads their expenses. Failures are
// logged and leave the session signed out. The returned error matches
// ErrInitialization.
func (t *Tracker) Start(ctx context.Context) error {
	t.setInitializing(true)
	defer t.setInitializing(false)

	id, err := t.store.CurrentIdentity(ctx)
	if err != nil {
		return t.initFailed(err, "identity check failed")
	}
	t.resetSession(id)
	if id == nil {
		return nil
	}

	release, err := t.busy.acquire()
	if err != nil {
		return t.initFailed(err, "initial refresh skipped")
	}
	defer release()

	if err := t.reload(ctx); err != nil {
		return t.initFailed(err, "initial refresh failed")
	}
	t.log.Debugw("session started", "user_id", id.ID, "expenses", len(t.Expenses()))
	return nil
}

// Refresh replaces the snapshot with the store's current list.
func (t *Tracker) Refresh(ctx context.Context) error {
	release, err := t.busy.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := t.reload(ctx); err != nil {
		return t.storeFailed(ctx, "refresh", err)
	}
	return nil
}

// Create validates and inserts a new expense, then reloads the snapshot and
// resets the form. An empty or All category is stored as the default.
func (t *Tracker) Create(ctx context.Context, title string, amount *decimal.Decimal, category models.Category) (*models.Expense, error) {
	title, value, category, err := t.validate(ctx, title, amount, category)
	if err != nil {
		return nil, err
	}
	owner, err := t.owner(ctx)
	if err != nil {
		return nil, err
	}

	release, err := t.busy.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	created, err := t.store.InsertExpense(ctx, owner, title, value, category)
	if err != nil {
		return nil, t.storeFailed(ctx, "insert", err)
	}
	if err := t.reload(ctx); err != nil {
		return created, t.storeFailed(ctx, "refresh after insert", err)
	}
	t.finishEdit()
	t.notify(ctx, LevelSuccess, titleAdded, msgAdded)
	return created, nil
}

// Update validates and saves the record currently in edit mode.
func (t *Tracker) Update(ctx context.Context, id int64, title string, amount *decimal.Decimal, category models.Category) error {
	title, value, category, err := t.validate(ctx, title, amount, category)
	if err != nil {
		return err
	}
	if editing, ok := t.Editing(); !ok || editing != id {
		t.notify(ctx, LevelWarning, titleInvalidInput, apperrors.ErrNotEditing.Message)
		return apperrors.ErrNotEditing
	}
	if _, err := t.owner(ctx); err != nil {
		return err
	}

	release, err := t.busy.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := t.store.UpdateExpense(ctx, id, title, value, category); err != nil {
		return t.storeFailed(ctx, "update", err)
	}
	if err := t.reload(ctx); err != nil {
		return t.storeFailed(ctx, "refresh after update", err)
	}
	t.finishEdit()
	t.notify(ctx, LevelSuccess, titleUpdated, msgUpdated)
	return nil
}

// Submit saves the entry form: an update in edit mode, a create otherwise.
func (t *Tracker) Submit(ctx context.Context) error {
	f := t.Form()
	if id, ok := t.Editing(); ok {
		return t.Update(ctx, id, f.Title, f.Amount, f.Category)
	}
	_, err := t.Create(ctx, f.Title, f.Amount, f.Category)
	return err
}

// BeginEdit puts the snapshot record id into edit mode and pre-fills the form.
func (t *Tracker) BeginEdit(id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.expenses {
		if e.ID == id {
			amount := e.Amount
			t.form = Form{Title: e.Title, Amount: &amount, Category: e.Category}
			t.editing = &id
			return nil
		}
	}
	return apperrors.ErrExpenseNotFound
}

// CancelEdit leaves edit mode and resets the form.
func (t *Tracker) CancelEdit() {
	t.finishEdit()
}

// Delete asks for confirmation, then removes id and reloads. Declining is a
// no-op.
func (t *Tracker) Delete(ctx context.Context, id int64) error {
	if _, err := t.owner(ctx); err != nil {
		return err
	}
	if t.busy.held() {
		return apperrors.ErrBusy
	}

	ok, err := t.prompter.Confirm(ctx, titleConfirmDelete, msgConfirmDelete)
	if err != nil {
		t.log.Warnw("delete confirmation failed", "expense_id", id, "error", err)
		return err
	}
	if !ok {
		return nil
	}

	release, err := t.busy.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := t.store.DeleteExpense(ctx, id); err != nil {
		return t.storeFailed(ctx, "delete", err)
	}
	if err := t.reload(ctx); err != nil {
		return t.storeFailed(ctx, "refresh after delete", err)
	}
	if editing, ok := t.Editing(); ok && editing == id {
		t.finishEdit()
	}
	t.notify(ctx, LevelSuccess, titleDeleted, msgDeleted)
	return nil
}

// SignIn authenticates and starts the session.
func (t *Tracker) SignIn(ctx context.Context, email, password string) error {
	return t.authenticate(ctx, email, password, t.store.SignIn, titleSignedIn)
}

// SignUp registers, then starts the session.
func (t *Tracker) SignUp(ctx context.Context, email, password string) error {
	return t.authenticate(ctx, email, password, t.store.SignUp, titleSuccess)
}

// SignOut ends the session. Local state is cleared even when the store
// call fails.
func (t *Tracker) SignOut(ctx context.Context) error {
	release, err := t.busy.acquire()
	if err != nil {
		return err
	}
	defer release()

	err = t.store.SignOut(ctx)
	t.resetSession(nil)
	if err != nil {
		return t.storeFailed(ctx, "sign out", err)
	}
	return nil
}

type authFunc func(ctx context.Context, email, password string) (*models.Identity, error)

func (t *Tracker) authenticate(ctx context.Context, email, password string, call authFunc, successTitle string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		t.notify(ctx, LevelWarning, titleInvalidInput, msgInvalidCreds)
		return apperrors.WithMessage(apperrors.ErrInvalidInput, msgInvalidCreds)
	}

	err := func() error {
		release, err := t.busy.acquire()
		if err != nil {
			return err
		}
		defer release()

		if _, err := call(ctx, email, password); err != nil {
			return t.storeFailed(ctx, "authenticate", err)
		}
		return nil
	}()
	if err != nil {
		return err
	}

	if err := t.Start(ctx); err != nil {
		t.notify(ctx, LevelError, titleError, messageOf(err))
		return err
	}
	t.notify(ctx, LevelSuccess, successTitle, email)
	return nil
}

// reload fetches the owner's list and swaps it in. The caller holds the
// busy flag. The snapshot is untouched on failure.
func (t *Tracker) reload(ctx context.Context) error {
	id := t.Identity()
	if id == nil {
		return apperrors.ErrNotSignedIn
	}
	list, err := t.store.ListExpenses(ctx, id.ID)
	if err != nil {
		return err
	}
	snapshot := make([]models.Expense, len(list))
	copy(snapshot, list)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.expenses = snapshot
	if t.editing != nil && !containsID(snapshot, *t.editing) {
		t.editing = nil
		t.form = DefaultForm()
	}
	return nil
}

func (t *Tracker) validate(ctx context.Context, title string, amount *decimal.Decimal, category models.Category) (string, decimal.Decimal, models.Category, error) {
	title = strings.TrimSpace(title)
	if title == "" || amount == nil || !amount.IsPositive() {
		t.notify(ctx, LevelWarning, titleInvalidInput, msgInvalidEntry)
		return "", decimal.Zero, "", apperrors.WithMessage(apperrors.ErrInvalidInput, msgInvalidEntry)
	}
	category = category.OrDefault()
	if err := models.ValidateEntry(title, *amount, category); err != nil {
		t.notify(ctx, LevelWarning, titleInvalidInput, err.Error())
		return "", decimal.Zero, "", apperrors.WrapWithMessage(apperrors.ErrInvalidInput, err.Error(), err)
	}
	return title, *amount, category, nil
}

func (t *Tracker) owner(ctx context.Context) (string, error) {
	id := t.Identity()
	if id == nil {
		t.notify(ctx, LevelError, titleError, apperrors.ErrNotSignedIn.Message)
		return "", apperrors.ErrNotSignedIn
	}
	return id.ID, nil
}

func (t *Tracker) storeFailed(ctx context.Context, op string, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.WrapWithMessage(apperrors.ErrStore, err.Error(), err)
	}
	t.log.Warnw("store operation failed", "op", op, "code", appErr.Code, "error", err)
	t.notify(ctx, LevelError, titleError, appErr.Message)
	return appErr
}

func (t *Tracker) initFailed(err error, msg string) error {
	t.log.Errorw(msg, "error", err)
	t.resetSession(nil)
	return apperrors.Wrap(apperrors.ErrInitialization, err)
}

func (t *Tracker) notify(ctx context.Context, level Level, title, message string) {
	t.notifier.Notify(ctx, Notice{Level: level, Title: title, Message: message})
}

func (t *Tracker) finishEdit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.editing = nil
	t.form = DefaultForm()
}

func (t *Tracker) resetSession(id *models.Identity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id != nil {
		cp := *id
		t.identity = &cp
	} else {
		t.identity = nil
	}
	t.expenses = []models.Expense{}
	t.editing = nil
	t.form = DefaultForm()
	t.criteria = view.DefaultCriteria()
}

func (t *Tracker) setInitializing(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initializing = v
}

func copyForm(f Form) Form {
	if f.Amount != nil {
		a := *f.Amount
		f.Amount = &a
	}
	return f
}

func containsID(list []models.Expense, id int64) bool {
	for _, e := range list {
		if e.ID == id {
			return true
		}
	}
	return false
}

func messageOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
