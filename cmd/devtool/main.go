// cmd/devtool/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"devtool/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Cancel in-flight API calls on shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &cli.App{
		ConfigDir: ".",
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
	return cli.Execute(ctx, app, os.Args[1:])
}
