package tracker

import "context"

// Level classifies a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a non-blocking outcome message for the user.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// Notifier presents notices. Implementations must not block on user input.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Prompter asks the user a yes/no question and waits for the answer.
type Prompter interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, title, message string) (bool, error)

func (f PrompterFunc) Confirm(ctx context.Context, title, message string) (bool, error) {
	return f(ctx, title, message)
}

// Fixed user-facing texts.
const (
	titleInvalidInput = "Invalid Input"
	msgInvalidEntry   = "Please enter a valid title and amount!"
	msgInvalidCreds   = "Enter email and password!"

	titleAdded   = "Added!"
	msgAdded     = "Expense added successfully"
	titleUpdated = "Updated!"
	msgUpdated   = "Expense updated successfully"
	titleDeleted = "Deleted!"
	msgDeleted   = "Your expense has been deleted."

	titleConfirmDelete = "Are you sure?"
	msgConfirmDelete   = "You won't be able to revert this!"

	titleError    = "Error"
	titleSuccess  = "Success"
	titleSignedIn = "Signed in"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}

type declinePrompter struct{}

func (declinePrompter) Confirm(context.Context, string, string) (bool, error) { return false, nil }
