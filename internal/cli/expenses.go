package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/view"
)

type filterFlags struct {
	search   string
	category string
	from     string
	to       string
}

func (f filterFlags) criteria(a *app) (view.Criteria, error) {
	c := view.DefaultCriteria()
	c.Search = f.search
	if f.category != "" {
		cat, ok := models.ParseCategory(f.category)
		if !ok {
			return c, fmt.Errorf("unknown category %q", f.category)
		}
		c.Category = cat
	}
	loc := a.cfg.Location()
	if f.from != "" {
		day, err := view.ParseDay(f.from, loc)
		if err != nil {
			return c, err
		}
		c.StartDate = day
	}
	if f.to != "" {
		day, err := view.ParseDay(f.to, loc)
		if err != nil {
			return c, err
		}
		c.EndDate = day
	}
	return c, nil
}

func newListCommand() *cobra.Command {
	var f filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the dashboard and your expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			c, err := f.criteria(a)
			if err != nil {
				return err
			}
			if err := a.session(cmd.Context()); err != nil {
				return err
			}
			a.tracker.SetCriteria(c)
			a.printSession()
			return nil
		},
	}

	cmd.Flags().StringVar(&f.search, "search", "", "case-insensitive title search")
	cmd.Flags().StringVar(&f.category, "category", "", "only this category (All for every category)")
	cmd.Flags().StringVar(&f.from, "from", "", "first day, YYYY-MM-DD (needs --to)")
	cmd.Flags().StringVar(&f.to, "to", "", "last day, YYYY-MM-DD (needs --from)")
	return cmd
}

func newAddCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <title> <amount>",
		Short: "Record a new expense",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			title := strings.Join(args[:len(args)-1], " ")
			amount := parseAmount(args[len(args)-1])
			cat, err := parseCategory(category)
			if err != nil {
				return err
			}
			if err := a.session(cmd.Context()); err != nil {
				return err
			}
			_, err = a.tracker.Create(cmd.Context(), title, amount, cat)
			return reported(err)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(models.DefaultCategory), "expense category")
	return cmd
}

func newEditCommand() *cobra.Command {
	var title, amount, category string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an expense's title, amount or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.session(cmd.Context()); err != nil {
				return err
			}
			if err := a.tracker.BeginEdit(id); err != nil {
				return fmt.Errorf("expense %d: %w", id, err)
			}

			form := a.tracker.Form()
			if cmd.Flags().Changed("title") {
				form.Title = title
			}
			if cmd.Flags().Changed("amount") {
				form.Amount = parseAmount(amount)
			}
			if cmd.Flags().Changed("category") {
				form.Category, err = parseCategory(category)
				if err != nil {
					return err
				}
			}
			a.tracker.SetForm(form)
			return reported(a.tracker.Submit(cmd.Context()))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.session(cmd.Context()); err != nil {
				return err
			}
			a.assumeYes = yes
			return reported(a.tracker.Delete(cmd.Context(), id))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func (a *app) printSession() {
	a.println(a.render.Session(a.tracker.Summary(), a.tracker.Criteria(), a.tracker.View()))
}

// parseAmount returns nil for an unparsable amount so the tracker reports
// it like an empty form field.
func parseAmount(s string) *decimal.Decimal {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "₹"))
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil
	}
	return &d
}

func parseCategory(s string) (models.Category, error) {
	if s == "" {
		return models.DefaultCategory, nil
	}
	c, ok := models.ParseCategory(s)
	if !ok {
		return "", fmt.Errorf("unknown category %q (one of %s)", s, categoryList())
	}
	return c, nil
}

func categoryList() string {
	names := make([]string, 0, len(models.Categories()))
	for _, c := range models.Categories() {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense id %q", s)
	}
	return id, nil
}
