package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/apgoswamieww-droid/expense-tracker/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.DefaultEnv(), os.Args[1:])
	stop()
	os.Exit(code)
}
