package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apgoswamieww-droid/expense-tracker/internal/config"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/store"
	"github.com/apgoswamieww-droid/expense-tracker/internal/store/storetest"
)

type harness struct {
	fake *storetest.Store
	user models.Identity
}

func newHarness() *harness {
	fake := storetest.New()
	return &harness{fake: fake, user: fake.AddUser("asha@example.com", "secret1")}
}

func (h *harness) signIn() {
	h.fake.SetCurrent(&h.user)
}

// run executes one CLI invocation with stdin and returns the exit code,
// stdout and stderr.
func (h *harness) run(stdin string, args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	env := Env{
		In:  strings.NewReader(stdin),
		Out: &out,
		Err: &errOut,
		Config: &config.Config{
			StoreURL:      "http://localhost:8080",
			StoreTimeout:  time.Second,
			MonthlyBudget: decimal.NewFromInt(15000),
			Timezone:      "UTC",
		},
		Client: func(*config.Config, *zap.SugaredLogger) (store.Client, error) {
			return h.fake, nil
		},
	}
	code := Execute(context.Background(), env, args)
	return code, out.String(), errOut.String()
}

func (h *harness) seed(title string, amount int64, category models.Category) models.Expense {
	e := models.Expense{Title: title, Amount: decimal.NewFromInt(amount), Category: category, UserID: h.user.ID}
	h.fake.Seed(e)
	records := h.fake.Records()
	return records[len(records)-1]
}

func TestWhoAmI(t *testing.T) {
	h := newHarness()

	code, out, _ := h.run("", "whoami")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Not signed in\n", out)

	h.signIn()
	code, out, _ = h.run("", "whoami")
	assert.Equal(t, 0, code)
	assert.Equal(t, "asha@example.com\n", out)
}

func TestSignIn(t *testing.T) {
	t.Run("piped password", func(t *testing.T) {
		h := newHarness()
		code, out, errOut := h.run("secret1\n", "signin", "asha@example.com")
		require.Equal(t, 0, code, errOut)
		assert.Contains(t, out, "Signed in asha@example.com")
	})

	t.Run("wrong password is reported once", func(t *testing.T) {
		h := newHarness()
		code, out, errOut := h.run("nope\n", "signin", "asha@example.com")
		assert.Equal(t, 1, code)
		assert.Contains(t, out, "Error Invalid email or password")
		assert.NotContains(t, errOut, "Error:")
	})

	t.Run("empty password", func(t *testing.T) {
		h := newHarness()
		code, out, _ := h.run("\n", "signin", "asha@example.com")
		assert.Equal(t, 1, code)
		assert.Contains(t, out, "Invalid Input Enter email and password!")
		assert.Zero(t, h.fake.CallCount(storetest.OpSignIn))
	})
}

func TestSignUpAndSignOut(t *testing.T) {
	h := newHarness()

	code, out, _ := h.run("secret2\n", "signup", "ravi@example.com")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Success ravi@example.com")

	code, out, _ = h.run("", "signout")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Signed out")

	code, out, _ = h.run("", "whoami")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Not signed in\n", out)
}

func TestList(t *testing.T) {
	h := newHarness()

	code, _, errOut := h.run("", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not signed in")

	h.signIn()
	h.seed("Lunch", 250, models.CategoryFood)
	h.seed("Rent", 12000, models.CategoryRent)

	code, out, errOut := h.run("", "list")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Total Balance")
	assert.Contains(t, out, "₹12,250.00")
	assert.Contains(t, out, "₹2,750.00")
	assert.Less(t, strings.Index(out, "Rent"), strings.Index(out, "Lunch"), "newest first")

	code, out, _ = h.run("", "list", "--search", "LUN")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Lunch")
	assert.NotContains(t, out, "₹12,000.00")
	assert.Contains(t, out, "₹12,250.00", "dashboard totals ignore the filter")

	code, out, _ = h.run("", "list", "--category", "Travel")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No expenses found")

	code, _, errOut = h.run("", "list", "--category", "Gadgets")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown category")

	code, _, errOut = h.run("", "list", "--from", "03/01/2024", "--to", "2024-03-02")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, errOut)
}

func TestAdd(t *testing.T) {
	h := newHarness()
	h.signIn()

	code, out, errOut := h.run("", "add", "Team", "lunch", "₹1,250.50", "--category", "food")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Added! Expense added successfully")

	records := h.fake.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Team lunch", records[0].Title)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("1250.5")))
	assert.Equal(t, models.CategoryFood, records[0].Category)

	code, out, _ = h.run("", "add", "Tea", "abc")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Invalid Input Please enter a valid title and amount!")
	assert.Len(t, h.fake.Records(), 1)

	code, _, _ = h.run("", "add", "Cab", "120", "--category", "All")
	require.Equal(t, 0, code)
	assert.Equal(t, models.CategoryFood, h.fake.Records()[1].Category)
}

func TestEdit(t *testing.T) {
	h := newHarness()
	h.signIn()
	e := h.seed("Movie", 300, models.CategoryEntertainment)

	code, out, errOut := h.run("", "edit", "1", "--amount", "450", "--title", "Concert")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Updated! Expense updated successfully")

	records := h.fake.Records()
	require.Len(t, records, 1)
	assert.Equal(t, e.ID, records[0].ID)
	assert.Equal(t, "Concert", records[0].Title)
	assert.True(t, records[0].Amount.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, models.CategoryEntertainment, records[0].Category)

	code, _, errOut = h.run("", "edit", "99", "--amount", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "expense 99")
}

func TestDelete(t *testing.T) {
	h := newHarness()
	h.signIn()
	h.seed("Snacks", 60, models.CategoryFood)

	code, out, _ := h.run("n\n", "delete", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Are you sure? You won't be able to revert this! [y/N]:")
	assert.Len(t, h.fake.Records(), 1)
	assert.Zero(t, h.fake.CallCount(storetest.OpDelete))

	code, out, _ = h.run("y\n", "delete", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Deleted! Your expense has been deleted.")
	assert.Empty(t, h.fake.Records())
}

func TestDelete_AssumeYes(t *testing.T) {
	h := newHarness()
	h.signIn()
	h.seed("Snacks", 60, models.CategoryFood)

	code, out, _ := h.run("", "delete", "1", "--yes")
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "[y/N]")
	assert.Empty(t, h.fake.Records())
}

func TestShell(t *testing.T) {
	h := newHarness()
	h.signIn()
	h.seed("Rent", 12000, models.CategoryRent)

	script := strings.Join([]string{
		"add",
		"title Coffee beans",
		"amount 480",
		"category Grocery",
		"save",
		"edit 1",
		"amount 12500",
		"save",
		"search coffee",
		"filter Grocery",
		"clear",
		"delete 2",
		"y",
		"bogus",
		"quit",
	}, "\n") + "\n"

	code, out, errOut := h.run(script, "shell")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Added! Expense added successfully")
	assert.Contains(t, out, "Updated! Expense updated successfully")
	assert.Contains(t, out, "Deleted! Your expense has been deleted.")
	assert.Contains(t, out, `unknown command "bogus"`)

	records := h.fake.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Rent", records[0].Title)
	assert.True(t, records[0].Amount.Equal(decimal.NewFromInt(12500)))
}

func TestShell_EndsOnEOF(t *testing.T) {
	h := newHarness()
	h.signIn()

	code, out, _ := h.run("list\n", "shell")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "No expenses found")
}

func TestVersion(t *testing.T) {
	h := newHarness()
	code, out, _ := h.run("", "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "dev")
}
