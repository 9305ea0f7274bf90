// Package cli implements the expense-tracker command line client.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/apgoswamieww-droid/expense-tracker/internal/config"
	"github.com/apgoswamieww-droid/expense-tracker/internal/logger"
	"github.com/apgoswamieww-droid/expense-tracker/internal/render"
	"github.com/apgoswamieww-droid/expense-tracker/internal/store"
	"github.com/apgoswamieww-droid/expense-tracker/internal/store/httpstore"
	"github.com/apgoswamieww-droid/expense-tracker/internal/tracker"
)

// Env is the process environment the commands run in.
type Env struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Config overrides config.Load.
	Config *config.Config
	// Client overrides the HTTP store client.
	Client func(cfg *config.Config, log *zap.SugaredLogger) (store.Client, error)
}

// DefaultEnv uses the process's standard streams.
func DefaultEnv() Env {
	return Env{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// app is the state shared by one command invocation.
type app struct {
	env     Env
	cfg     *config.Config
	log     *zap.SugaredLogger
	input   *bufio.Reader
	render  *render.Renderer
	tracker *tracker.Tracker

	// assumeYes answers delete confirmations without asking.
	assumeYes bool
}

func newApp(env Env, verbose bool) (*app, error) {
	cfg := env.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}

	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	log := logger.NewConsole(env.Err, level)

	newClient := env.Client
	if newClient == nil {
		newClient = httpClient
	}
	client, err := newClient(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{
		env:    env,
		cfg:    cfg,
		log:    log,
		input:  bufio.NewReader(env.In),
		render: render.New(env.Out, cfg.Location()),
	}
	a.tracker = tracker.New(client, confirmPrompter{a}, a.render.Notifier(),
		tracker.WithBudget(cfg.MonthlyBudget),
		tracker.WithLogger(log.Named("tracker")),
	)
	return a, nil
}

func httpClient(cfg *config.Config, log *zap.SugaredLogger) (store.Client, error) {
	tokens := httpstore.NewFileTokenStore(cfg.SessionFile)
	return httpstore.New(cfg.StoreURL, &http.Client{Timeout: cfg.StoreTimeout}, tokens,
		httpstore.WithAPIKey(cfg.APIKey),
		httpstore.WithLogger(log.Named("store")),
	), nil
}

func (a *app) println(s string) {
	a.render.Println(s)
}

// reportedError marks an error the tracker has already shown as a notice.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
