package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// confirmPrompter asks y/N questions on the app's streams.
type confirmPrompter struct {
	a *app
}

func (p confirmPrompter) Confirm(_ context.Context, title, message string) (bool, error) {
	if p.a.assumeYes {
		return true, nil
	}
	_, _ = fmt.Fprintf(p.a.env.Out, "%s %s [y/N]: ", title, message)
	line, err := p.a.readLine()
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// readLine returns the next input line without its newline.
func (a *app) readLine() (string, error) {
	line, err := a.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads without echo from a terminal, or a plain line from
// piped input.
func (a *app) readPassword(prompt string) (string, error) {
	if f, ok := a.env.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(a.env.Out, prompt)
		password, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(a.env.Out)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}
	return a.readLine()
}
