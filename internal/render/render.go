// Package render formats tracker state for the terminal.
package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/tracker"
	"github.com/apgoswamieww-droid/expense-tracker/internal/view"
)

// DateLayout is the display format for expense dates.
const DateLayout = "02 Jan 2006"

const (
	emptyTitle = "No expenses found"
	emptyHint  = "Try adjusting your filters or add a new expense."
)

type badgeColors struct {
	bg, fg string
}

// Category badge palette.
var palette = map[models.Category]badgeColors{
	models.CategoryFood:          {"#ffc107", "#212529"},
	models.CategoryGrocery:       {"#198754", "#ffffff"},
	models.CategoryShopping:      {"#198754", "#ffffff"},
	models.CategoryTravel:        {"#0dcaf0", "#212529"},
	models.CategoryRent:          {"#dc3545", "#ffffff"},
	models.CategoryBills:         {"#dc3545", "#ffffff"},
	models.CategoryEntertainment: {"#0d6efd", "#ffffff"},
	models.CategoryMedical:       {"#0d6efd", "#ffffff"},
	models.CategoryInvestment:    {"#212529", "#ffffff"},
	models.CategoryOther:         {"#6c757d", "#ffffff"},
	models.CategoryEducation:     {"#f8f9fa", "#212529"},
}

// Money formats an amount as rupees with two decimals and digit grouping.
func Money(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + "₹" + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

// Date formats t in loc using DateLayout.
func Date(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// Renderer writes styled output for one terminal.
type Renderer struct {
	w   io.Writer
	r   *lipgloss.Renderer
	loc *time.Location

	title   lipgloss.Style
	muted   lipgloss.Style
	card    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

// New creates a Renderer for w. Colour is used only when w is a terminal.
func New(w io.Writer, loc *time.Location) *Renderer {
	r := lipgloss.NewRenderer(w)
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{
		w:       w,
		r:       r,
		loc:     loc,
		title:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Faint(true),
		card:    r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2).Width(24),
		success: r.NewStyle().Foreground(lipgloss.Color("#198754")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("#ffc107")).Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("#dc3545")).Bold(true),
	}
}

// Badge renders a category pill.
func (p *Renderer) Badge(c models.Category) string {
	style := p.r.NewStyle().Padding(0, 1)
	if colors, ok := palette[c]; ok {
		style = style.Background(lipgloss.Color(colors.bg)).Foreground(lipgloss.Color(colors.fg))
	}
	return style.Render(c.String())
}

// Dashboard renders the Total Balance, Monthly Budget and Savings cards.
func (p *Renderer) Dashboard(s view.Summary) string {
	savings := p.card.BorderForeground(lipgloss.Color("#198754"))
	if s.OverBudget() {
		savings = p.card.BorderForeground(lipgloss.Color("#dc3545"))
	}
	cards := []string{
		p.card.BorderForeground(lipgloss.Color("#0d6efd")).Render(p.muted.Render("Total Balance") + "\n" + p.title.Render(Money(s.TotalBalance))),
		p.card.Render(p.muted.Render("Monthly Budget") + "\n" + p.title.Render(Money(s.Budget))),
		savings.Render(p.muted.Render("Savings") + "\n" + p.title.Render(Money(s.Savings))),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// Table renders expenses in order, or the empty state when there are none.
func (p *Renderer) Table(expenses []models.Expense) string {
	if len(expenses) == 0 {
		return p.EmptyState()
	}

	rows := make([][]string, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Title,
			p.Badge(e.Category),
			Money(e.Amount),
			Date(e.CreatedAt, p.loc),
		})
	}

	header := p.title
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.muted).
		Headers("ID", "Item", "Category", "Amount", "Date").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			s := p.r.NewStyle().Padding(0, 1)
			if col == 0 || col == 3 {
				s = s.Align(lipgloss.Right)
			}
			return s
		}).
		String()
}

// EmptyState is shown when no expense passes the filter.
func (p *Renderer) EmptyState() string {
	return p.title.Render(emptyTitle) + "\n" + p.muted.Render(emptyHint)
}

// Criteria describes the active filter, or "" when none is set.
func (p *Renderer) Criteria(c view.Criteria) string {
	if c.IsDefault() {
		return ""
	}
	var parts []string
	if c.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", c.Search))
	}
	if !c.Category.IsAll() && c.Category != "" {
		parts = append(parts, "category "+c.Category.String())
	}
	if !c.StartDate.IsZero() {
		parts = append(parts, "from "+c.StartDate.Format(DateLayout))
	}
	if !c.EndDate.IsZero() {
		parts = append(parts, "to "+c.EndDate.Format(DateLayout))
	}
	if c.StartDate.IsZero() != c.EndDate.IsZero() {
		parts = append(parts, "date range ignored until both ends are set")
	}
	return p.muted.Render("Filters: " + strings.Join(parts, ", "))
}

// Notice renders a tracker notice on one line.
func (p *Renderer) Notice(n tracker.Notice) string {
	style := p.title
	switch n.Level {
	case tracker.LevelSuccess:
		style = p.success
	case tracker.LevelWarning:
		style = p.warning
	case tracker.LevelError:
		style = p.failure
	}
	return style.Render(n.Title) + " " + n.Message
}

// Session renders the list screen: dashboard, active filters and table.
func (p *Renderer) Session(s view.Summary, c view.Criteria, expenses []models.Expense) string {
	var b strings.Builder
	b.WriteString(p.Dashboard(s))
	b.WriteString("\n")
	if f := p.Criteria(c); f != "" {
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString(p.Table(expenses))
	return b.String()
}

// Println writes s and a newline.
func (p *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}

// Notifier prints notices through the renderer.
func (p *Renderer) Notifier() tracker.Notifier {
	return tracker.NotifierFunc(func(_ context.Context, n tracker.Notice) {
		p.Println(p.Notice(n))
	})
}
