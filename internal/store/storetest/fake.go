// Package storetest provides an in-memory store.Client for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/apgoswamieww-droid/expense-tracker/internal/errors"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/store"
)

// Operation names recorded in Calls.
const (
	OpCurrentIdentity = "CurrentIdentity"
	OpList            = "ListExpenses"
	OpInsert          = "InsertExpense"
	OpUpdate          = "UpdateExpense"
	OpDelete          = "DeleteExpense"
	OpSignIn          = "SignIn"
	OpSignUp          = "SignUp"
	OpSignOut         = "SignOut"
)

var _ store.Client = (*Store)(nil)

// Call is one recorded invocation.
type Call struct {
	Op       string
	ID       int64
	Owner    string
	Title    string
	Amount   decimal.Decimal
	Category models.Category
}

type account struct {
	identity models.Identity
	password string
}

// Store is a fake remote store. Records are owner scoped like the real API.
type Store struct {
	mu       sync.Mutex
	accounts map[string]account
	expenses []models.Expense
	current  *models.Identity
	nextID   int64
	clock    time.Time
	calls    []Call
	failures map[string]error

	// BeforeCall, when set, runs at the start of every operation without
	// the fake's lock held.
	BeforeCall func(op string)
}

// New returns an empty fake with nobody signed in.
func New() *Store {
	return &Store{
		accounts: make(map[string]account),
		failures: make(map[string]error),
		nextID:   1,
		clock:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// AddUser registers an account and returns its identity.
func (s *Store) AddUser(email, password string) models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := models.Identity{ID: fmt.Sprintf("user-%d", len(s.accounts)+1), Email: strings.ToLower(email)}
	s.accounts[id.Email] = account{identity: id, password: password}
	return id
}

// SetCurrent signs id in without a SignIn call. Nil signs out.
func (s *Store) SetCurrent(id *models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == nil {
		s.current = nil
		return
	}
	cp := *id
	s.current = &cp
}

// Seed stores records as-is, assigning missing IDs and timestamps.
func (s *Store) Seed(records ...models.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range records {
		if e.ID == 0 {
			e.ID = s.nextID
		}
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.tick()
		}
		s.expenses = append(s.expenses, e)
	}
}

// FailNext makes the next call of op return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Calls returns the recorded invocations in order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts recorded invocations of op.
func (s *Store) CallCount(op string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded invocations.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Records returns every stored expense regardless of owner.
func (s *Store) Records() []models.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Expense, len(s.expenses))
	copy(out, s.expenses)
	return out
}

func (s *Store) CurrentIdentity(_ context.Context) (*models.Identity, error) {
	if err := s.begin(Call{Op: OpCurrentIdentity}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, nil
	}
	cp := *s.current
	return &cp, nil
}

func (s *Store) ListExpenses(_ context.Context, owner string) ([]models.Expense, error) {
	if err := s.begin(Call{Op: OpList, Owner: owner}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.authorized(owner); err != nil {
		return nil, err
	}
	out := []models.Expense{}
	for _, e := range s.expenses {
		if e.UserID == owner {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, owner, title string, amount decimal.Decimal, category models.Category) (*models.Expense, error) {
	if err := s.begin(Call{Op: OpInsert, Owner: owner, Title: title, Amount: amount, Category: category}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.authorized(owner); err != nil {
		return nil, err
	}
	e := models.Expense{
		ID:        s.nextID,
		Title:     title,
		Amount:    amount,
		Category:  category,
		CreatedAt: s.tick(),
		UserID:    owner,
	}
	s.nextID++
	s.expenses = append(s.expenses, e)
	return &e, nil
}

func (s *Store) UpdateExpense(_ context.Context, id int64, title string, amount decimal.Decimal, category models.Category) error {
	if err := s.begin(Call{Op: OpUpdate, ID: id, Title: title, Amount: amount, Category: category}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.owned(id)
	if err != nil {
		return err
	}
	s.expenses[i].Title = title
	s.expenses[i].Amount = amount
	s.expenses[i].Category = category
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	if err := s.begin(Call{Op: OpDelete, ID: id}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.owned(id)
	if err != nil {
		return err
	}
	s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
	return nil
}

func (s *Store) SignIn(_ context.Context, email, password string) (*models.Identity, error) {
	if err := s.begin(Call{Op: OpSignIn, Title: email}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(email)]
	if !ok || acct.password != password {
		return nil, apperrors.WrapWithMessage(apperrors.ErrStore, apperrors.ErrInvalidCredentials.Message, apperrors.ErrInvalidCredentials)
	}
	id := acct.identity
	s.current = &id
	return &id, nil
}

func (s *Store) SignUp(_ context.Context, email, password string) (*models.Identity, error) {
	if err := s.begin(Call{Op: OpSignUp, Title: email}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	if _, exists := s.accounts[key]; exists {
		return nil, apperrors.WrapWithMessage(apperrors.ErrStore, apperrors.ErrDuplicateEmail.Message, apperrors.ErrDuplicateEmail)
	}
	id := models.Identity{ID: fmt.Sprintf("user-%d", len(s.accounts)+1), Email: key}
	s.accounts[key] = account{identity: id, password: password}
	s.current = &id
	return &id, nil
}

func (s *Store) SignOut(_ context.Context) error {
	if err := s.begin(Call{Op: OpSignOut}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	return nil
}

func (s *Store) begin(c Call) error {
	if s.BeforeCall != nil {
		s.BeforeCall(c.Op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	if err, ok := s.failures[c.Op]; ok {
		delete(s.failures, c.Op)
		return err
	}
	return nil
}

func (s *Store) authorized(owner string) error {
	if s.current == nil {
		return apperrors.WrapWithMessage(apperrors.ErrStore, apperrors.ErrUnauthorized.Message, apperrors.ErrUnauthorized)
	}
	if owner != s.current.ID {
		return apperrors.WrapWithMessage(apperrors.ErrStore, apperrors.ErrOwnerMismatch.Message, apperrors.ErrOwnerMismatch)
	}
	return nil
}

func (s *Store) owned(id int64) (int, error) {
	if s.current == nil {
		return -1, apperrors.WrapWithMessage(apperrors.ErrStore, apperrors.ErrUnauthorized.Message, apperrors.ErrUnauthorized)
	}
	for i, e := range s.expenses {
		if e.ID == id && e.UserID == s.current.ID {
			return i, nil
		}
	}
	return -1, apperrors.WrapWithMessage(apperrors.ErrStore, apperrors.ErrExpenseNotFound.Message, apperrors.ErrExpenseNotFound)
}

func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

// StoreError builds an error shaped like a remote failure.
func StoreError(message string) error {
	return apperrors.WithMessage(apperrors.ErrStore, message)
}
