package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apgoswamieww-droid/expense-tracker/internal/config"
	apperrors "github.com/apgoswamieww-droid/expense-tracker/internal/errors"
	"github.com/apgoswamieww-droid/expense-tracker/internal/logger"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/store/httpstore"
	"github.com/apgoswamieww-droid/expense-tracker/internal/testutil"
	"github.com/apgoswamieww-droid/expense-tracker/internal/tracker"
	"github.com/apgoswamieww-droid/expense-tracker/internal/view"
)

const testAPIKey = "anon-test-key"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	config.Set(&config.Config{Env: "test", JWTSecret: "server-test-secret", JWTExpirationDur: time.Hour})
	os.Exit(m.Run())
}

type notices struct {
	mu   sync.Mutex
	list []tracker.Notice
}

func (n *notices) Notify(_ context.Context, notice tracker.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notice)
}

func (n *notices) last() tracker.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return tracker.Notice{}
	}
	return n.list[len(n.list)-1]
}

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	deps := NewDeps(db, nil, testAPIKey)
	deps.Swagger = false
	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server, tokens httpstore.TokenStore, opts ...httpstore.Option) *httpstore.Client {
	opts = append([]httpstore.Option{httpstore.WithAPIKey(testAPIKey)}, opts...)
	return httpstore.New(srv.URL, srv.Client(), tokens, opts...)
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestTrackerAgainstAPI(t *testing.T) {
	ctx := context.Background()
	srv := newAPI(t)

	tokens := httpstore.NewMemoryTokenStore()
	var seen notices
	confirm := tracker.PrompterFunc(func(context.Context, string, string) (bool, error) { return true, nil })
	tr := tracker.New(newClient(srv, tokens), confirm, &seen)

	require.NoError(t, tr.Start(ctx))
	assert.False(t, tr.Authenticated())

	require.NoError(t, tr.SignUp(ctx, "asha@example.com", "secret1"))
	require.True(t, tr.Authenticated())
	assert.Equal(t, "asha@example.com", tr.Identity().Email)
	assert.Empty(t, tr.Expenses())

	lunch, err := tr.Create(ctx, "Lunch", amount("250"), models.CategoryFood)
	require.NoError(t, err)
	_, err = tr.Create(ctx, "Rent", amount("12000"), models.CategoryRent)
	require.NoError(t, err)
	snack, err := tr.Create(ctx, "Snack", amount("99.50"), models.CategoryAll)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryFood, snack.Category)
	assert.Equal(t, "Added!", seen.last().Title)

	expenses := tr.Expenses()
	require.Len(t, expenses, 3)
	assert.Equal(t, "Snack", expenses[0].Title, "newest first")
	assert.Equal(t, "Lunch", expenses[2].Title)

	summary := tr.Summary()
	assert.True(t, summary.TotalBalance.Equal(decimal.RequireFromString("12349.5")), summary.TotalBalance.String())
	assert.True(t, summary.Savings.Equal(decimal.RequireFromString("2650.5")), summary.Savings.String())

	t.Run("edit", func(t *testing.T) {
		require.NoError(t, tr.BeginEdit(lunch.ID))
		form := tr.Form()
		assert.Equal(t, "Lunch", form.Title)
		form.Title = "Team lunch"
		form.Amount = amount("640")
		tr.SetForm(form)

		require.NoError(t, tr.Submit(ctx))
		_, editing := tr.Editing()
		assert.False(t, editing)
		assert.Equal(t, "Updated!", seen.last().Title)

		var found bool
		for _, e := range tr.Expenses() {
			if e.ID == lunch.ID {
				found = true
				assert.Equal(t, "Team lunch", e.Title)
				assert.True(t, e.Amount.Equal(decimal.NewFromInt(640)))
			}
		}
		assert.True(t, found)
	})

	t.Run("filter", func(t *testing.T) {
		c := view.DefaultCriteria()
		c.Search = "RENT"
		tr.SetCriteria(c)
		got := tr.View()
		require.Len(t, got, 1)
		assert.Equal(t, "Rent", got[0].Title)
		tr.ClearFilters()
		assert.Len(t, tr.View(), 3)
	})

	t.Run("owner isolation", func(t *testing.T) {
		other := tracker.New(newClient(srv, nil), confirm, nil)
		require.NoError(t, other.SignUp(ctx, "ravi@example.com", "secret2"))
		assert.Empty(t, other.Expenses())

		err := other.Delete(ctx, lunch.ID)
		require.Error(t, err)
		assert.True(t, apperrors.CodeOf(err) == "STORE_ERROR", apperrors.CodeOf(err))
		assert.Len(t, tr.Expenses(), 3)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, tr.Delete(ctx, snack.ID))
		assert.Len(t, tr.Expenses(), 2)
		assert.Equal(t, "Deleted!", seen.last().Title)
	})

	t.Run("sign out revokes the token", func(t *testing.T) {
		sess, err := tokens.Load()
		require.NoError(t, err)
		require.NotNil(t, sess)

		require.NoError(t, tr.SignOut(ctx))
		assert.False(t, tr.Authenticated())
		assert.Empty(t, tr.Expenses())

		require.NoError(t, tokens.Save(sess))
		id, err := newClient(srv, tokens).CurrentIdentity(ctx)
		require.NoError(t, err)
		assert.Nil(t, id)
		stored, _ := tokens.Load()
		assert.Nil(t, stored, "rejected session is cleared")
	})

	t.Run("sign in restores data", func(t *testing.T) {
		require.NoError(t, tr.SignIn(ctx, "asha@example.com", "secret1"))
		assert.Len(t, tr.Expenses(), 2)
		assert.Equal(t, "Signed in", seen.last().Title)
	})
}

func TestAPIKeyRequired(t *testing.T) {
	srv := newAPI(t)
	client := httpstore.New(srv.URL, srv.Client(), nil)

	_, err := client.SignUp(context.Background(), "nokey@example.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, "STORE_ERROR", apperrors.CodeOf(err))
	assert.Equal(t, "Invalid or missing API key", err.Error())
}

func TestSignInFailureIsReported(t *testing.T) {
	ctx := context.Background()
	srv := newAPI(t)
	var seen notices
	tr := tracker.New(newClient(srv, nil), nil, &seen)

	err := tr.SignIn(ctx, "ghost@example.com", "whatever")
	require.Error(t, err)
	assert.False(t, tr.Authenticated())
	assert.Equal(t, tracker.Notice{Level: tracker.LevelError, Title: "Error", Message: "Invalid email or password"}, seen.last())
}

func TestCORSAllowsAPIKeyHeaders(t *testing.T) {
	srv := newAPI(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/expenses", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "x-api-key, authorization")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	allowed := strings.Split(resp.Header.Get("Access-Control-Allow-Headers"), ", ")
	assert.Contains(t, allowed, "X-API-Key")
	assert.Contains(t, allowed, "apikey")
	assert.Contains(t, allowed, "Authorization")
}

func TestHealthAndNoRoute(t *testing.T) {
	srv := newAPI(t)

	resp, err := srv.Client().Get(srv.URL + "/api/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/api/v2/nothing")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
