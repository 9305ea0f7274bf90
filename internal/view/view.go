// Package view derives the displayed expense list and dashboard totals from
// the authoritative collection. Everything here is pure and recomputed on
// every call.
package view

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
)

// DayLayout is the input format for filter dates.
const DayLayout = "2006-01-02"

// Criteria holds the active filter. Zero dates are unset.
type Criteria struct {
	Search    string
	Category  models.Category
	StartDate time.Time
	EndDate   time.Time
}

// DefaultCriteria matches every record.
func DefaultCriteria() Criteria {
	return Criteria{Category: models.CategoryAll}
}

// Clear resets c to DefaultCriteria.
func (c *Criteria) Clear() {
	*c = DefaultCriteria()
}

// HasDateRange reports whether both bounds are set. A single bound is ignored.
func (c Criteria) HasDateRange() bool {
	return !c.StartDate.IsZero() && !c.EndDate.IsZero()
}

// IsDefault reports whether c filters nothing out.
func (c Criteria) IsDefault() bool {
	return c.Search == "" && c.matchesAllCategories() && c.StartDate.IsZero() && c.EndDate.IsZero()
}

func (c Criteria) matchesAllCategories() bool {
	return c.Category == "" || c.Category.IsAll()
}

// Matches reports whether e passes every active criterion.
func (c Criteria) Matches(e models.Expense) bool {
	if c.Search != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(c.Search)) {
		return false
	}
	if !c.matchesAllCategories() && e.Category != c.Category {
		return false
	}
	if c.HasDateRange() {
		from := StartOfDay(c.StartDate)
		until := StartOfDay(c.EndDate).AddDate(0, 0, 1)
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(until) {
			return false
		}
	}
	return true
}

// Apply returns the records of expenses matching c, in their original order.
// The result is never nil.
func Apply(expenses []models.Expense, c Criteria) []models.Expense {
	out := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Summary is the dashboard aggregate.
type Summary struct {
	TotalBalance decimal.Decimal
	Budget       decimal.Decimal
	Savings      decimal.Decimal
	Count        int
}

// OverBudget is true once spending exceeds the budget.
func (s Summary) OverBudget() bool {
	return s.Savings.IsNegative()
}

// Summarize totals the whole collection. Filters never affect it.
func Summarize(all []models.Expense, budget decimal.Decimal) Summary {
	total := decimal.Zero
	for _, e := range all {
		total = total.Add(e.Amount)
	}
	return Summary{
		TotalBalance: total,
		Budget:       budget,
		Savings:      budget.Sub(total),
		Count:        len(all),
	}
}

// ByCategory sums amounts per category over expenses, in display order, and
// omits categories with no spending.
func ByCategory(expenses []models.Expense) []CategoryTotal {
	sums := make(map[models.Category]decimal.Decimal)
	for _, e := range expenses {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	var out []CategoryTotal
	for _, c := range models.Categories() {
		if total, ok := sums[c]; ok {
			out = append(out, CategoryTotal{Category: c, Total: total})
		}
	}
	return out
}

// CategoryTotal is one row of ByCategory.
type CategoryTotal struct {
	Category models.Category
	Total    decimal.Decimal
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDay parses a YYYY-MM-DD date as midnight in loc. An empty string
// yields the zero time.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DayLayout, s, loc)
}
