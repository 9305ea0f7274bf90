// Package httpstore implements store.Client over the expense API's REST
// endpoints.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/apgoswamieww-droid/expense-tracker/internal/errors"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/store"
)

const apiPrefix = "/api/v1"

var _ store.Client = (*Client)(nil)

// RemoteError describes a non-2xx response from the API.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the apikey header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithLogger sets the logger used for session bookkeeping failures.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

// Client communicates with the expense API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tokens     TokenStore
	log        *zap.SugaredLogger
}

// New creates a client for the API at baseURL. A nil tokens keeps the
// session in memory only.
func New(baseURL string, httpClient *http.Client, tokens TokenStore, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authResponse struct {
	AccessToken string          `json:"access_token"`
	User        models.Identity `json:"user"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type expenseRequest struct {
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Category models.Category `json:"category"`
	UserID   string          `json:"user_id,omitempty"`
}

// CurrentIdentity asks the API who the stored token belongs to. A missing,
// expired or revoked token yields no identity and clears the stored session.
func (c *Client) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	sess, err := c.tokens.Load()
	if err != nil {
		return nil, apperrors.WrapWithMessage(apperrors.ErrStore, err.Error(), err)
	}
	if sess == nil {
		return nil, nil
	}

	var result struct {
		User models.Identity `json:"user"`
	}
	err = c.do(ctx, "fetching identity", http.MethodGet, "/auth/user", nil, &result)
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Status == http.StatusUnauthorized {
		c.clearSession()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if result.User.ID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrStore, "identity response has no user id")
	}
	return &result.User, nil
}

// ListExpenses fetches every expense owned by owner.
func (c *Client) ListExpenses(ctx context.Context, owner string) ([]models.Expense, error) {
	q := url.Values{}
	q.Set("user_id", owner)

	var result struct {
		Expenses []models.Expense `json:"expenses"`
	}
	if err := c.do(ctx, "listing expenses", http.MethodGet, "/expenses?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	for i := range result.Expenses {
		if err := checkRecord(result.Expenses[i]); err != nil {
			return nil, err
		}
	}
	if result.Expenses == nil {
		result.Expenses = []models.Expense{}
	}
	return result.Expenses, nil
}

// InsertExpense creates an expense and returns the stored record.
func (c *Client) InsertExpense(ctx context.Context, owner, title string, amount decimal.Decimal, category models.Category) (*models.Expense, error) {
	body := expenseRequest{Title: title, Amount: amount, Category: category, UserID: owner}

	var result struct {
		Expense models.Expense `json:"expense"`
	}
	if err := c.do(ctx, "inserting expense", http.MethodPost, "/expenses", body, &result); err != nil {
		return nil, err
	}
	if err := checkRecord(result.Expense); err != nil {
		return nil, err
	}
	return &result.Expense, nil
}

// UpdateExpense replaces the editable fields of expense id.
func (c *Client) UpdateExpense(ctx context.Context, id int64, title string, amount decimal.Decimal, category models.Category) error {
	body := expenseRequest{Title: title, Amount: amount, Category: category}
	return c.do(ctx, "updating expense", http.MethodPut, "/expenses/"+strconv.FormatInt(id, 10), body, nil)
}

// DeleteExpense removes expense id.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.do(ctx, "deleting expense", http.MethodDelete, "/expenses/"+strconv.FormatInt(id, 10), nil, nil)
}

// SignIn exchanges credentials for a session and stores it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	return c.authenticate(ctx, "signing in", "/auth/signin", email, password)
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Identity, error) {
	return c.authenticate(ctx, "signing up", "/auth/signup", email, password)
}

// SignOut revokes the session on the server and forgets it locally. The
// local session is dropped even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	sess, err := c.tokens.Load()
	if err != nil || sess == nil {
		c.clearSession()
		return nil
	}
	err = c.do(ctx, "signing out", http.MethodPost, "/auth/signout", nil, nil)
	c.clearSession()

	var remote *RemoteError
	if errors.As(err, &remote) && remote.Status == http.StatusUnauthorized {
		return nil
	}
	return err
}

func (c *Client) authenticate(ctx context.Context, op, path, email, password string) (*models.Identity, error) {
	var result authResponse
	if err := c.do(ctx, op, http.MethodPost, path, credentials{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" || result.User.ID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrStore, op+": response has no session")
	}
	if err := c.tokens.Save(&Session{AccessToken: result.AccessToken, User: result.User}); err != nil {
		return nil, apperrors.WrapWithMessage(apperrors.ErrStore, "saving session: "+err.Error(), err)
	}
	return &result.User, nil
}

func (c *Client) clearSession() {
	if err := c.tokens.Clear(); err != nil {
		c.log.Warnw("failed to clear stored session", "error", err)
	}
}

// do sends one request. in is JSON encoded when non-nil and out is decoded
// from a 2xx body when non-nil. Every failure is an ErrStore AppError whose
// message is the API's message when it sent one.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apperrors.WrapWithMessage(apperrors.ErrStore, op+": encoding request: "+err.Error(), err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return apperrors.WrapWithMessage(apperrors.ErrStore, op+": creating request: "+err.Error(), err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if sess, err := c.tokens.Load(); err == nil && sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.WrapWithMessage(apperrors.ErrStore, op+": "+err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := decodeRemoteError(resp)
		return apperrors.WrapWithMessage(apperrors.ErrStore, remote.Message, remote)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.WrapWithMessage(apperrors.ErrStore, op+": decoding response: "+err.Error(), err)
	}
	return nil
}

func decodeRemoteError(resp *http.Response) *RemoteError {
	remote := &RemoteError{Status: resp.StatusCode}

	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err == nil {
		remote.Code = payload.Error.Code
		remote.Message = payload.Error.Message
	}
	if remote.Message == "" {
		remote.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return remote
}

func checkRecord(e models.Expense) error {
	if err := e.Validate(); err != nil {
		return apperrors.WrapWithMessage(apperrors.ErrStore,
			fmt.Sprintf("invalid expense %d from store: %v", e.ID, err), err)
	}
	return nil
}
