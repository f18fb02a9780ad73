// Command console is the directory admin console.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"directory-console/internal/app"
	"directory-console/internal/apperr"
	"directory-console/internal/config"
)

const (
	exitOK = iota
	exitError
	exitSessionExpired
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, buildApp)
	stop()
	os.Exit(code)
}

func buildApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg)
}

// run executes one command line and maps the outcome to an exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, build func() (*app.App, error)) int {
	c := &cli{build: build, stdin: stdin}
	defer c.close()

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, apperr.ErrSessionExpired):
		// The expiry observer has already told the user to sign in again.
		return exitSessionExpired
	case errors.Is(err, errReported):
		return exitError
	}
	fmt.Fprintln(stderr, "Error:", apperr.UserMessage(err))
	return exitError
}
