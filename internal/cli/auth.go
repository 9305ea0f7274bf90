package cli

import (
	"github.com/spf13/cobra"
)

func newSignUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			password, err := a.readPassword("Password: ")
			if err != nil {
				return err
			}
			return reported(a.tracker.SignUp(cmd.Context(), args[0], password))
		},
	}
}

func newSignInCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signin <email>",
		Short: "Sign in with email and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			password, err := a.readPassword("Password: ")
			if err != nil {
				return err
			}
			return reported(a.tracker.SignIn(cmd.Context(), args[0], password))
		},
	}
}

func newSignOutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.tracker.Start(cmd.Context()); err != nil {
				return err
			}
			if err := a.tracker.SignOut(cmd.Context()); err != nil {
				return reported(err)
			}
			a.println("Signed out")
			return nil
		},
	}
}

func newWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.tracker.Start(cmd.Context()); err != nil {
				return err
			}
			id := a.tracker.Identity()
			if id == nil {
				a.println("Not signed in")
				return nil
			}
			a.println(id.Email)
			return nil
		},
	}
}
