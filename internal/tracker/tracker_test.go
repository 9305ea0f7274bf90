package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/apgoswamieww-droid/expense-tracker/internal/errors"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/store/storetest"
	"github.com/apgoswamieww-droid/expense-tracker/internal/view"
)

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

type answer struct {
	yes   bool
	err   error
	asked int
}

func (a *answer) Confirm(context.Context, string, string) (bool, error) {
	a.asked++
	return a.yes, a.err
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

type fixture struct {
	store    *storetest.Store
	tracker  *Tracker
	notices  *recorder
	prompter *answer
	owner    models.Identity
}

// newFixture signs a user in with Coffee (id 1) and Rent (id 2) seeded.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := storetest.New()
	owner := fake.AddUser("priya@example.com", "password123")
	fake.SetCurrent(&owner)
	fake.Seed(
		models.Expense{ID: 1, Title: "Coffee", Amount: decimal.NewFromInt(50), Category: models.CategoryFood, CreatedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), UserID: owner.ID},
		models.Expense{ID: 2, Title: "Rent", Amount: decimal.NewFromInt(8000), Category: models.CategoryRent, CreatedAt: time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC), UserID: owner.ID},
	)

	f := &fixture{store: fake, notices: &recorder{}, prompter: &answer{yes: true}, owner: owner}
	f.tracker = New(fake, f.prompter, f.notices, WithBudget(decimal.NewFromInt(15000)))
	require.NoError(t, f.tracker.Start(context.Background()))
	fake.ResetCalls()
	return f
}

func ids(list []models.Expense) []int64 {
	out := make([]int64, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestStartWithoutIdentitySkipsFetch(t *testing.T) {
	fake := storetest.New()
	tr := New(fake, nil, nil)

	require.NoError(t, tr.Start(context.Background()))
	assert.False(t, tr.Authenticated())
	assert.False(t, tr.Initializing())
	assert.Equal(t, 0, fake.CallCount(storetest.OpList))
	assert.Empty(t, tr.Expenses())
}

func TestStartLoadsSnapshot(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.tracker.Authenticated())
	assert.Equal(t, f.owner.ID, f.tracker.Identity().ID)
	assert.Equal(t, []int64{1, 2}, ids(f.tracker.Expenses()))
}

func TestStartHoldsInitializingUntilLoaded(t *testing.T) {
	fake := storetest.New()
	owner := fake.AddUser("a@b.c", "pw")
	fake.SetCurrent(&owner)

	tr := New(fake, nil, nil)
	seen := map[string]bool{}
	fake.BeforeCall = func(op string) { seen[op] = tr.Initializing() }

	require.NoError(t, tr.Start(context.Background()))
	assert.True(t, seen[storetest.OpCurrentIdentity])
	assert.True(t, seen[storetest.OpList])
	assert.False(t, tr.Initializing())
}

func TestStartIdentityFailureFallsBackToSignedOut(t *testing.T) {
	fake := storetest.New()
	fake.FailNext(storetest.OpCurrentIdentity, storetest.StoreError("network down"))
	tr := New(fake, nil, nil)

	err := tr.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInitialization)
	assert.False(t, tr.Authenticated())
	assert.False(t, tr.Initializing())
	assert.False(t, tr.Busy())
}

func TestStartRefreshFailureFallsBackToSignedOut(t *testing.T) {
	fake := storetest.New()
	owner := fake.AddUser("a@b.c", "pw")
	fake.SetCurrent(&owner)
	fake.FailNext(storetest.OpList, storetest.StoreError("permission denied"))
	tr := New(fake, nil, nil)

	err := tr.Start(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInitialization)
	assert.False(t, tr.Authenticated())
	assert.False(t, tr.Busy())
}

func TestSummaryScenario(t *testing.T) {
	f := newFixture(t)

	s := f.tracker.Summary()
	assert.True(t, s.TotalBalance.Equal(decimal.NewFromInt(8050)))
	assert.True(t, s.Savings.Equal(decimal.NewFromInt(6950)))

	f.tracker.SetCriteria(view.Criteria{Search: "cof"})
	got := f.tracker.View()
	require.Len(t, got, 1)
	assert.Equal(t, "Coffee", got[0].Title)
	assert.True(t, f.tracker.Summary().TotalBalance.Equal(decimal.NewFromInt(8050)), "totals ignore filters")

	f.tracker.ClearFilters()
	f.tracker.ClearFilters()
	assert.Equal(t, view.DefaultCriteria(), f.tracker.Criteria())
	assert.Len(t, f.tracker.View(), 2)
}

func TestCreateScenario(t *testing.T) {
	f := newFixture(t)
	busyDuring := map[string]bool{}
	f.store.BeforeCall = func(op string) { busyDuring[op] = f.tracker.Busy() }

	created, err := f.tracker.Create(context.Background(), "Taxi", dec(300), models.CategoryTravel)
	require.NoError(t, err)
	require.NotNil(t, created)

	calls := f.store.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, storetest.OpInsert, calls[0].Op)
	assert.Equal(t, f.owner.ID, calls[0].Owner)
	assert.Equal(t, "Taxi", calls[0].Title)
	assert.True(t, calls[0].Amount.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, models.CategoryTravel, calls[0].Category)
	assert.Equal(t, storetest.OpList, calls[1].Op)

	assert.True(t, busyDuring[storetest.OpInsert])
	assert.True(t, busyDuring[storetest.OpList])
	assert.False(t, f.tracker.Busy())

	snapshot := f.tracker.Expenses()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "Taxi", snapshot[0].Title, "new record is newest")

	assert.Equal(t, DefaultForm(), f.tracker.Form())
	_, editing := f.tracker.Editing()
	assert.False(t, editing)
	assert.Equal(t, Notice{Level: LevelSuccess, Title: "Added!", Message: "Expense added successfully"}, f.notices.last())
}

func TestCreateSubstitutesDefaultCategory(t *testing.T) {
	f := newFixture(t)

	for _, c := range []models.Category{models.CategoryAll, ""} {
		_, err := f.tracker.Create(context.Background(), "Snack", dec(20), c)
		require.NoError(t, err)
	}
	for _, call := range f.store.Calls() {
		if call.Op == storetest.OpInsert {
			assert.Equal(t, models.CategoryFood, call.Category)
		}
	}
}

func TestCreateValidationMakesNoRemoteCall(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		amount *decimal.Decimal
	}{
		{name: "zero_amount", title: "Taxi", amount: dec(0)},
		{name: "negative_amount", title: "Taxi", amount: dec(-5)},
		{name: "missing_amount", title: "Taxi", amount: nil},
		{name: "empty_title", title: "", amount: dec(300)},
		{name: "blank_title", title: "   ", amount: dec(300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			before := f.tracker.Expenses()

			_, err := f.tracker.Create(context.Background(), tt.title, tt.amount, models.CategoryTravel)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Empty(t, f.store.Calls())
			assert.Equal(t, before, f.tracker.Expenses())
			assert.Equal(t, Notice{Level: LevelWarning, Title: "Invalid Input", Message: "Please enter a valid title and amount!"}, f.notices.last())
		})
	}
}

func TestCreateRejectsAmountsTheStoreCannotHold(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   error
	}{
		{name: "sub_paisa", amount: "0.004", want: models.ErrAmountPrecision},
		{name: "three_places", amount: "1.005", want: models.ErrAmountPrecision},
		{name: "too_large", amount: "10000000000", want: models.ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			amount := decimal.RequireFromString(tt.amount)

			_, err := f.tracker.Create(context.Background(), "Gum", &amount, models.CategoryFood)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.store.Calls())
			assert.Equal(t, LevelWarning, f.notices.last().Level)
		})
	}
}

func TestCreateUnknownCategoryRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.tracker.Create(context.Background(), "Fuel", dec(10), models.Category("Fuel"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.ErrorIs(t, err, models.ErrInvalidCategory)
	assert.Empty(t, f.store.Calls())
}

func TestCreateStoreFailureKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	before := f.tracker.Expenses()
	f.store.FailNext(storetest.OpInsert, storetest.StoreError("new row violates row-level security policy"))

	_, err := f.tracker.Create(context.Background(), "Taxi", dec(300), models.CategoryTravel)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStore)
	assert.Equal(t, before, f.tracker.Expenses())
	assert.False(t, f.tracker.Busy())
	assert.Equal(t, 0, f.store.CallCount(storetest.OpList), "no refresh after a failed mutation")
	assert.Equal(t, Notice{Level: LevelError, Title: "Error", Message: "new row violates row-level security policy"}, f.notices.last())
}

func TestPlainStoreErrorsAreWrapped(t *testing.T) {
	f := newFixture(t)
	f.store.FailNext(storetest.OpList, errors.New("connection reset"))

	err := f.tracker.Refresh(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStore)
	assert.Equal(t, "connection reset", f.notices.last().Message)
}

func TestBusyRejectsOverlappingOperations(t *testing.T) {
	f := newFixture(t)
	var nested error
	f.store.BeforeCall = func(op string) {
		if op == storetest.OpInsert {
			f.store.BeforeCall = nil
			nested = f.tracker.Refresh(context.Background())
		}
	}

	_, err := f.tracker.Create(context.Background(), "Taxi", dec(300), models.CategoryTravel)
	require.NoError(t, err)
	assert.ErrorIs(t, nested, apperrors.ErrBusy)
	assert.False(t, f.tracker.Busy())
}

func TestDeleteWhileBusySkipsConfirmation(t *testing.T) {
	f := newFixture(t)
	var nested error
	f.store.BeforeCall = func(op string) {
		if op == storetest.OpInsert {
			f.store.BeforeCall = nil
			nested = f.tracker.Delete(context.Background(), 1)
		}
	}

	_, err := f.tracker.Create(context.Background(), "Taxi", dec(300), models.CategoryTravel)
	require.NoError(t, err)
	assert.ErrorIs(t, nested, apperrors.ErrBusy)
	assert.Equal(t, 0, f.prompter.asked)
	assert.Equal(t, 0, f.store.CallCount(storetest.OpDelete))
}

func TestBusyReleasedOnPanic(t *testing.T) {
	f := newFixture(t)
	f.store.BeforeCall = func(op string) {
		if op == storetest.OpInsert {
			panic("transport exploded")
		}
	}

	func() {
		defer func() { _ = recover() }()
		_, _ = f.tracker.Create(context.Background(), "Taxi", dec(300), models.CategoryTravel)
	}()
	assert.False(t, f.tracker.Busy())

	f.store.BeforeCall = nil
	assert.NoError(t, f.tracker.Refresh(context.Background()))
}

func TestUpdateScenario(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tracker.BeginEdit(2))

	form := f.tracker.Form()
	assert.Equal(t, "Rent", form.Title)
	require.NotNil(t, form.Amount)
	assert.True(t, form.Amount.Equal(decimal.NewFromInt(8000)))

	require.NoError(t, f.tracker.Update(context.Background(), 2, "Rent", dec(8500), models.CategoryRent))

	calls := f.store.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, storetest.OpUpdate, calls[0].Op)
	assert.Equal(t, int64(2), calls[0].ID)

	var rent models.Expense
	for _, e := range f.tracker.Expenses() {
		if e.ID == 2 {
			rent = e
		}
	}
	assert.True(t, rent.Amount.Equal(decimal.NewFromInt(8500)))
	_, editing := f.tracker.Editing()
	assert.False(t, editing)
	assert.Equal(t, DefaultForm(), f.tracker.Form())
	assert.Equal(t, LevelSuccess, f.notices.last().Level)
}

func TestUpdateRequiresEditMode(t *testing.T) {
	f := newFixture(t)

	err := f.tracker.Update(context.Background(), 2, "Rent", dec(8500), models.CategoryRent)
	assert.ErrorIs(t, err, apperrors.ErrNotEditing)

	require.NoError(t, f.tracker.BeginEdit(1))
	err = f.tracker.Update(context.Background(), 2, "Rent", dec(8500), models.CategoryRent)
	assert.ErrorIs(t, err, apperrors.ErrNotEditing)
	assert.Empty(t, f.store.Calls())
}

func TestBeginEditUnknownRecord(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.tracker.BeginEdit(99), apperrors.ErrExpenseNotFound)
}

func TestCancelEdit(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tracker.BeginEdit(1))

	f.tracker.CancelEdit()
	_, editing := f.tracker.Editing()
	assert.False(t, editing)
	assert.Equal(t, DefaultForm(), f.tracker.Form())
	assert.Empty(t, f.store.Calls())
}

func TestSubmitRoutesByEditMode(t *testing.T) {
	f := newFixture(t)

	f.tracker.SetForm(Form{Title: "Book", Amount: dec(450), Category: models.CategoryEducation})
	require.NoError(t, f.tracker.Submit(context.Background()))
	assert.Equal(t, 1, f.store.CallCount(storetest.OpInsert))

	require.NoError(t, f.tracker.BeginEdit(1))
	form := f.tracker.Form()
	form.Amount = dec(60)
	f.tracker.SetForm(form)
	require.NoError(t, f.tracker.Submit(context.Background()))
	assert.Equal(t, 1, f.store.CallCount(storetest.OpUpdate))
	assert.Equal(t, 1, f.store.CallCount(storetest.OpInsert))
}

func TestDeleteDeclinedDoesNothing(t *testing.T) {
	f := newFixture(t)
	f.prompter.yes = false
	before := f.tracker.Expenses()

	require.NoError(t, f.tracker.Delete(context.Background(), 1))
	assert.Equal(t, 1, f.prompter.asked)
	assert.Empty(t, f.store.Calls())
	assert.Equal(t, before, f.tracker.Expenses())
	assert.Equal(t, 0, f.notices.count())
}

func TestDeletePromptErrorDoesNothing(t *testing.T) {
	f := newFixture(t)
	f.prompter.err = context.Canceled

	assert.ErrorIs(t, f.tracker.Delete(context.Background(), 1), context.Canceled)
	assert.Empty(t, f.store.Calls())
}

func TestDeleteConfirmed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tracker.BeginEdit(1))

	require.NoError(t, f.tracker.Delete(context.Background(), 1))
	assert.Equal(t, []int64{2}, ids(f.tracker.Expenses()))
	_, editing := f.tracker.Editing()
	assert.False(t, editing, "deleting the edited record leaves edit mode")
	assert.Equal(t, Notice{Level: LevelSuccess, Title: "Deleted!", Message: "Your expense has been deleted."}, f.notices.last())
}

func TestDeleteForeignRecordFails(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(models.Expense{ID: 50, Title: "Other", Amount: decimal.NewFromInt(1), Category: models.CategoryOther, UserID: "someone-else"})
	before := f.tracker.Expenses()

	err := f.tracker.Delete(context.Background(), 50)
	assert.ErrorIs(t, err, apperrors.ErrStore)
	assert.Equal(t, before, f.tracker.Expenses())
}

func TestMutationsRequireSession(t *testing.T) {
	tr := New(storetest.New(), &answer{yes: true}, nil)

	_, err := tr.Create(context.Background(), "Taxi", dec(300), models.CategoryTravel)
	assert.ErrorIs(t, err, apperrors.ErrNotSignedIn)
	assert.ErrorIs(t, tr.Delete(context.Background(), 1), apperrors.ErrNotSignedIn)
}

func TestSignInStartsSession(t *testing.T) {
	fake := storetest.New()
	owner := fake.AddUser("priya@example.com", "password123")
	fake.Seed(models.Expense{Title: "Coffee", Amount: decimal.NewFromInt(50), Category: models.CategoryFood, UserID: owner.ID})
	notices := &recorder{}
	tr := New(fake, nil, notices)

	err := tr.SignIn(context.Background(), "priya@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrStore)
	assert.Equal(t, LevelError, notices.last().Level)
	assert.False(t, tr.Authenticated())

	require.NoError(t, tr.SignIn(context.Background(), "priya@example.com", "password123"))
	assert.True(t, tr.Authenticated())
	assert.Len(t, tr.Expenses(), 1)
	assert.Equal(t, LevelSuccess, notices.last().Level)
}

func TestSignInRequiresCredentials(t *testing.T) {
	fake := storetest.New()
	notices := &recorder{}
	tr := New(fake, nil, notices)

	err := tr.SignIn(context.Background(), " ", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, "Enter email and password!", notices.last().Message)
	assert.Empty(t, fake.Calls())
}

func TestSignUpThenSignOut(t *testing.T) {
	fake := storetest.New()
	tr := New(fake, nil, nil)

	require.NoError(t, tr.SignUp(context.Background(), "new@example.com", "password123"))
	require.True(t, tr.Authenticated())
	_, err := tr.Create(context.Background(), "Taxi", dec(300), models.CategoryTravel)
	require.NoError(t, err)
	tr.SetCriteria(view.Criteria{Search: "tax"})

	require.NoError(t, tr.SignOut(context.Background()))
	assert.False(t, tr.Authenticated())
	assert.Empty(t, tr.Expenses())
	assert.Equal(t, view.DefaultCriteria(), tr.Criteria())

	err = tr.SignUp(context.Background(), "new@example.com", "password123")
	assert.ErrorIs(t, err, apperrors.ErrStore)
}
