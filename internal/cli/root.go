package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apgoswamieww-droid/expense-tracker/internal/buildinfo"
)

type appKey struct{}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(env Env) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:     "expense-tracker",
		Short:   "Track personal expenses against a monthly budget",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(env, verbose)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}
	rootCmd.SetIn(env.In)
	rootCmd.SetOut(env.Out)
	rootCmd.SetErr(env.Err)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(
		newSignUpCommand(),
		newSignInCommand(),
		newSignOutCommand(),
		newWhoAmICommand(),
		newListCommand(),
		newAddCommand(),
		newEditCommand(),
		newDeleteCommand(),
		newShellCommand(),
	)

	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, env Env, args []string) int {
	cmd := NewRootCommand(env)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !IsReported(err) {
			_, _ = fmt.Fprintln(env.Err, "Error:", err)
		}
		return 1
	}
	return 0
}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

// session runs the session gate. Commands that need a user call it first.
func (a *app) session(ctx context.Context) error {
	if err := a.tracker.Start(ctx); err != nil {
		return err
	}
	if !a.tracker.Authenticated() {
		return fmt.Errorf("not signed in: run 'expense-tracker signin <email>'")
	}
	return nil
}
