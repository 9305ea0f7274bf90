package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/view"
)

const shellHelp = `Commands:
  list                      show dashboard and filtered expenses
  refresh                   reload expenses from the store
  add                       start a new entry (resets the form)
  edit <id>                 load an expense into the form
  title <text>              set the form title
  amount <number>           set the form amount
  category <name>           set the form category
  form                      show the form
  save                      save the form (create or update)
  cancel                    leave edit mode and reset the form
  delete <id>               delete an expense after confirmation
  search <text>             filter by title (no text clears)
  filter <category|All>     filter by category
  from <YYYY-MM-DD>         filter start day (no value clears)
  to <YYYY-MM-DD>           filter end day (no value clears)
  clear                     reset all filters
  whoami                    show the signed-in user
  help                      show this help
  quit                      leave the shell`

func newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session over one loaded expense list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.session(cmd.Context()); err != nil {
				return err
			}
			a.printSession()
			return a.shell(cmd.Context())
		},
	}
}

var errQuit = errors.New("quit")

func (a *app) shell(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, _ = fmt.Fprint(a.env.Out, "> ")
		line, err := a.readLine()
		if err == io.EOF {
			_, _ = fmt.Fprintln(a.env.Out)
			return nil
		}
		if err != nil {
			return err
		}

		err = a.dispatch(ctx, strings.TrimSpace(line))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil && !IsReported(err) {
			a.println("Error: " + err.Error())
		}
	}
}

func (a *app) dispatch(ctx context.Context, line string) error {
	if line == "" {
		return nil
	}
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	t := a.tracker

	switch strings.ToLower(verb) {
	case "quit", "exit":
		return errQuit
	case "help", "?":
		a.println(shellHelp)
	case "list", "ls":
		a.printSession()
	case "refresh":
		if err := t.Refresh(ctx); err != nil {
			return reported(err)
		}
		a.printSession()
	case "whoami":
		if id := t.Identity(); id != nil {
			a.println(id.Email)
		} else {
			a.println("Not signed in")
		}

	case "add", "new":
		t.CancelEdit()
		a.printForm()
	case "edit":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		if err := t.BeginEdit(id); err != nil {
			return fmt.Errorf("expense %d: %w", id, err)
		}
		a.printForm()
	case "title":
		f := t.Form()
		f.Title = rest
		t.SetForm(f)
	case "amount":
		f := t.Form()
		f.Amount = parseAmount(rest)
		t.SetForm(f)
	case "category":
		c, err := parseCategory(rest)
		if err != nil {
			return err
		}
		f := t.Form()
		f.Category = c
		t.SetForm(f)
	case "form":
		a.printForm()
	case "save":
		if err := t.Submit(ctx); err != nil {
			return reported(err)
		}
		a.printSession()
	case "cancel":
		t.CancelEdit()
	case "delete", "rm":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		if err := t.Delete(ctx, id); err != nil {
			return reported(err)
		}
		a.printSession()

	case "search":
		return a.updateCriteria(func(c *view.Criteria) error {
			c.Search = rest
			return nil
		})
	case "filter":
		return a.updateCriteria(func(c *view.Criteria) error {
			if rest == "" {
				c.Category = models.CategoryAll
				return nil
			}
			cat, ok := models.ParseCategory(rest)
			if !ok {
				return fmt.Errorf("unknown category %q", rest)
			}
			c.Category = cat
			return nil
		})
	case "from", "to":
		return a.updateCriteria(func(c *view.Criteria) error {
			day, err := a.parseOptionalDay(rest)
			if err != nil {
				return err
			}
			if strings.EqualFold(verb, "from") {
				c.StartDate = day
			} else {
				c.EndDate = day
			}
			return nil
		})
	case "clear":
		t.ClearFilters()
		a.printSession()

	default:
		return fmt.Errorf("unknown command %q, try help", verb)
	}
	return nil
}

func (a *app) updateCriteria(change func(*view.Criteria) error) error {
	c := a.tracker.Criteria()
	if err := change(&c); err != nil {
		return err
	}
	a.tracker.SetCriteria(c)
	a.printSession()
	return nil
}

func (a *app) parseOptionalDay(s string) (day time.Time, err error) {
	if s == "" {
		return day, nil
	}
	return view.ParseDay(s, a.cfg.Location())
}

func (a *app) printForm() {
	f := a.tracker.Form()
	amount := ""
	if f.Amount != nil {
		amount = f.Amount.String()
	}
	mode := "New expense"
	if id, ok := a.tracker.Editing(); ok {
		mode = fmt.Sprintf("Editing expense %d", id)
	}
	a.println(fmt.Sprintf("%s\n  title:    %s\n  amount:   %s\n  category: %s", mode, f.Title, amount, f.Category))
}
