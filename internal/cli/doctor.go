// internal/cli/doctor.go
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"devtool/internal/config"
	"devtool/internal/doctor"
)

func newDoctorCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose integration problems",
	}
	cmd.AddCommand(newDoctorGitHubCommand(app))
	return cmd
}

func newDoctorGitHubCommand(app *App) *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "github",
		Short: "Check that the GitHub token can see the expected repositories",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&org, "org", "", "GitHub organization to check access to")

	cmd.RunE = app.run("doctor github", func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
		scope, err := scopeFromFlag(cmd, org)
		if err != nil {
			return err
		}
		client, err := newGitHubClient(cfg, logger)
		if err != nil {
			return err
		}
		return doctor.NewDoctor(client, cmd.OutOrStdout(), logger).Run(ctx, scope.Org)
	})
	return cmd
}
