package view

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
)

var (
	d1 = time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	d2 = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
)

func sample() []models.Expense {
	return []models.Expense{
		{ID: 1, Title: "Coffee", Amount: decimal.NewFromInt(50), Category: models.CategoryFood, CreatedAt: d1, UserID: "u1"},
		{ID: 2, Title: "Rent", Amount: decimal.NewFromInt(8000), Category: models.CategoryRent, CreatedAt: d2, UserID: "u1"},
	}
}

func TestSummarizeScenario(t *testing.T) {
	s := Summarize(sample(), decimal.NewFromInt(15000))

	assert.True(t, s.TotalBalance.Equal(decimal.NewFromInt(8050)), "total = %s", s.TotalBalance)
	assert.True(t, s.Savings.Equal(decimal.NewFromInt(6950)), "savings = %s", s.Savings)
	assert.Equal(t, 2, s.Count)
	assert.False(t, s.OverBudget())
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, decimal.NewFromInt(15000))

	assert.True(t, s.TotalBalance.IsZero())
	assert.True(t, s.Savings.Equal(decimal.NewFromInt(15000)))
}

func TestSummarizeOverBudget(t *testing.T) {
	s := Summarize(sample(), decimal.NewFromInt(5000))

	assert.True(t, s.Savings.Equal(decimal.NewFromInt(-3050)))
	assert.True(t, s.OverBudget())
}

func TestSummaryIgnoresFilters(t *testing.T) {
	all := sample()
	c := DefaultCriteria()
	c.Search = "cof"
	filtered := Apply(all, c)
	require.Len(t, filtered, 1)

	s := Summarize(all, decimal.NewFromInt(15000))
	assert.True(t, s.TotalBalance.Equal(decimal.NewFromInt(8050)))
}

func TestApplySearchIsCaseInsensitive(t *testing.T) {
	c := DefaultCriteria()
	c.Search = "cof"

	got := Apply(sample(), c)
	require.Len(t, got, 1)
	assert.Equal(t, "Coffee", got[0].Title)

	c.Search = "RENT"
	got = Apply(sample(), c)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestApplyCategory(t *testing.T) {
	c := DefaultCriteria()
	c.Category = models.CategoryRent
	got := Apply(sample(), c)
	require.Len(t, got, 1)
	assert.Equal(t, models.CategoryRent, got[0].Category)

	c.Category = models.CategoryTravel
	assert.Empty(t, Apply(sample(), c))

	c.Category = models.CategoryAll
	assert.Len(t, Apply(sample(), c), 2)
}

func TestApplyEmptyResultIsNotNil(t *testing.T) {
	c := DefaultCriteria()
	c.Search = "nothing matches this"

	got := Apply(sample(), c)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NotNil(t, Apply(nil, DefaultCriteria()))
}

func TestApplyKeepsOrder(t *testing.T) {
	all := sample()
	got := Apply(all, DefaultCriteria())
	require.Len(t, got, 2)
	assert.Equal(t, all[0].ID, got[0].ID)
	assert.Equal(t, all[1].ID, got[1].ID)
}

func TestApplyIsSubsetWithoutDuplicates(t *testing.T) {
	all := sample()
	all = append(all, models.Expense{ID: 3, Title: "Coffee beans", Amount: decimal.NewFromInt(400), Category: models.CategoryGrocery, CreatedAt: d2, UserID: "u1"})

	criteria := []Criteria{
		DefaultCriteria(),
		{Search: "coffee", Category: models.CategoryAll},
		{Category: models.CategoryGrocery},
		{Search: "e", Category: models.CategoryAll, StartDate: d2, EndDate: d2},
		{Search: "zzz"},
	}
	for _, c := range criteria {
		got := Apply(all, c)
		seen := map[int64]bool{}
		for _, e := range got {
			assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
			seen[e.ID] = true
			assert.Contains(t, all, e)
		}
		assert.LessOrEqual(t, len(got), len(all))
	}
}

func TestDateRangeRequiresBothBounds(t *testing.T) {
	far := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	onlyStart := DefaultCriteria()
	onlyStart.StartDate = far
	assert.Len(t, Apply(sample(), onlyStart), 2)

	onlyEnd := DefaultCriteria()
	onlyEnd.EndDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Len(t, Apply(sample(), onlyEnd), 2)
}

func TestDateRangeEndDayIsInclusive(t *testing.T) {
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	records := []models.Expense{
		{ID: 1, Title: "midnight", CreatedAt: end, Category: models.CategoryFood},
		{ID: 2, Title: "late", CreatedAt: end.Add(24*time.Hour - time.Nanosecond), Category: models.CategoryFood},
		{ID: 3, Title: "next day", CreatedAt: end.Add(24 * time.Hour), Category: models.CategoryFood},
		{ID: 4, Title: "before start", CreatedAt: time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), Category: models.CategoryFood},
		{ID: 5, Title: "start", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Category: models.CategoryFood},
	}

	c := DefaultCriteria()
	c.StartDate = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	c.EndDate = end

	got := Apply(records, c)
	ids := make([]int64, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{1, 2, 5}, ids)
}

func TestClearIsIdempotent(t *testing.T) {
	c := Criteria{Search: "x", Category: models.CategoryRent, StartDate: d1, EndDate: d2}
	c.Clear()
	once := c
	c.Clear()

	assert.Equal(t, once, c)
	assert.Equal(t, DefaultCriteria(), c)
	assert.True(t, c.IsDefault())
	assert.Equal(t, models.CategoryAll, c.Category)
}

func TestByCategory(t *testing.T) {
	all := append(sample(), models.Expense{ID: 3, Title: "Lunch", Amount: decimal.NewFromInt(150), Category: models.CategoryFood, UserID: "u1"})
	got := ByCategory(all)

	require.Len(t, got, 2)
	assert.Equal(t, models.CategoryFood, got[0].Category)
	assert.True(t, got[0].Total.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, models.CategoryRent, got[1].Category)
}

func TestParseDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	got, err := ParseDay("2024-03-02", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, loc), got)

	zero, err := ParseDay("  ", loc)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = ParseDay("02/03/2024", loc)
	assert.Error(t, err)
}
