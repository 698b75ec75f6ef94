// internal/cli/root.go

// Package cli wires configuration, logging and the GitHub components into
// the devtool command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"devtool/internal/config"
	ghclient "devtool/internal/github"
)

const (
	Name    = "devtool"
	Version = "0.1.0"
)

// App holds the process-level dependencies shared by every command.
type App struct {
	// ConfigDir is the directory searched for an optional .env file.
	ConfigDir string
	Stdout    io.Writer
	Stderr    io.Writer
}

// Execute runs the command tree with args and returns the process exit code.
// Failures are printed to Stderr as "Error: <message>".
func Execute(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(app.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand builds the devtool command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           Name,
		Short:         "Internal developer tooling CLI for integrations + debugging",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	root.AddCommand(
		newStatusCommand(app),
		newSyncCommand(app),
		newDoctorCommand(app),
	)
	return root
}

type runFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error

// run loads configuration, builds the command-scoped logger and runs fn.
// Errors from fn are logged before they are returned to Execute.
func (a *App) run(command string, fn runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(a.ConfigDir)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger := newLogger(a.Stderr, cfg, command)
		logger.Debug("Configuration loaded", "app_env", cfg.AppEnv, "api_url", cfg.GithubAPIURL)

		if err := fn(cmd.Context(), cfg, logger); err != nil {
			logger.Error("Command failed", "error", err)
			return err
		}
		return nil
	}
}

// newGitHubClient enforces the credential precondition and configures the
// client from cfg.
func newGitHubClient(cfg *config.Config, logger *slog.Logger) (*ghclient.Client, error) {
	token, err := cfg.RequireGithubToken()
	if err != nil {
		return nil, err
	}

	opts := []ghclient.Option{
		ghclient.WithBaseURL(cfg.GithubAPIURL),
		ghclient.WithUserAgent(Name + "/" + Version),
		ghclient.WithTimeout(cfg.GithubTimeout),
		ghclient.WithPageConcurrency(cfg.PageConcurrency),
	}
	if cfg.RequestsPerSecond > 0 {
		opts = append(opts, ghclient.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)))
	}
	return ghclient.NewClient(token, logger, opts...)
}
