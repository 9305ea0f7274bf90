package models

import "strings"

// Category is the closed set of expense categories.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryGrocery       Category = "Grocery"
	CategoryRent          Category = "Rent"
	CategoryTravel        Category = "Travel"
	CategoryBills         Category = "Bills"
	CategoryEntertainment Category = "Entertainment"
	CategoryShopping      Category = "Shopping"
	CategoryMedical       Category = "Medical"
	CategoryInvestment    Category = "Investment"
	CategoryOther         Category = "Other"
	CategoryEducation     Category = "Education"

	// CategoryAll selects every category in a filter. It is never stored.
	CategoryAll Category = "All"
)

// DefaultCategory is substituted when an entry is submitted without a concrete category.
const DefaultCategory = CategoryFood

var categories = []Category{
	CategoryFood,
	CategoryGrocery,
	CategoryRent,
	CategoryTravel,
	CategoryBills,
	CategoryEntertainment,
	CategoryShopping,
	CategoryMedical,
	CategoryInvestment,
	CategoryOther,
	CategoryEducation,
}

// Categories returns the storable categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c may be stored on an expense.
func (c Category) Valid() bool {
	for _, v := range categories {
		if c == v {
			return true
		}
	}
	return false
}

// IsAll reports whether c is the filter-only "All" selector.
func (c Category) IsAll() bool {
	return c == CategoryAll
}

// OrDefault returns c, or DefaultCategory when c is empty or the "All" selector.
func (c Category) OrDefault() Category {
	if c == "" || c == CategoryAll {
		return DefaultCategory
	}
	return c
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory resolves a case-insensitive name to a Category, including "All".
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(CategoryAll)) {
		return CategoryAll, true
	}
	for _, v := range categories {
		if strings.EqualFold(s, string(v)) {
			return v, true
		}
	}
	return "", false
}
