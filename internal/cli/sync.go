// internal/cli/sync.go
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"devtool/internal/config"
	custom_errors "devtool/internal/errors"
	"devtool/internal/model"
	"devtool/internal/snapshot"
	"devtool/internal/syncer"
)

func newSyncCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-github",
		Short: "Sync GitHub data into the local cache",
	}
	cmd.AddCommand(newSyncReposCommand(app))
	return cmd
}

func newSyncReposCommand(app *App) *cobra.Command {
	var org, out string

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Snapshot repositories and report what changed since the last run",
		Example: "  devtool sync-github repos\n" +
			"  devtool sync-github repos --org acme --out .cache/github/acme.json",
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&org, "org", "", "GitHub organization to sync instead of the authenticated user")
	cmd.Flags().StringVar(&out, "out", "", "Snapshot path (defaults to CACHE_PATH, "+snapshot.DefaultPath+")")

	cmd.RunE = app.run("sync-github repos", func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
		scope, err := scopeFromFlag(cmd, org)
		if err != nil {
			return err
		}
		outputPath := cfg.CachePath
		if cmd.Flags().Changed("out") {
			outputPath = strings.TrimSpace(out)
			if outputPath == "" {
				return &custom_errors.InvalidArgumentError{Flag: "out", Value: out, Reason: "must not be blank"}
			}
		}

		client, err := newGitHubClient(cfg, logger)
		if err != nil {
			return err
		}
		s := syncer.NewSyncer(client, snapshot.NewOSStore(logger), syncer.RealClock{}, logger)

		report, err := s.SyncRepositories(ctx, scope, outputPath)
		if err != nil {
			return err
		}
		printSyncReport(cmd.OutOrStdout(), report)
		return nil
	})
	return cmd
}

// scopeFromFlag validates --org. An unset flag selects the authenticated user.
func scopeFromFlag(cmd *cobra.Command, org string) (model.Scope, error) {
	if !cmd.Flags().Changed("org") {
		return model.UserScope, nil
	}
	name := strings.TrimSpace(org)
	switch {
	case name == "":
		return model.Scope{}, &custom_errors.InvalidArgumentError{Flag: "org", Value: org, Reason: "must not be blank"}
	case strings.ContainsAny(name, " \t\r\n/"):
		return model.Scope{}, &custom_errors.InvalidArgumentError{Flag: "org", Value: org, Reason: "must be a bare organization login"}
	}
	return model.OrgScope(name), nil
}

func printSyncReport(w io.Writer, r *model.SyncReport) {
	fmt.Fprintf(w, "✔ Synced GitHub repos (%s)\n", r.Scope)
	fmt.Fprintf(w, "  Output: %s\n", r.OutputPath)
	if r.PreviousFound {
		fmt.Fprintln(w, "  Previous snapshot: found")
	} else {
		fmt.Fprintln(w, "  Previous snapshot: none (every repo counts as added)")
	}
	fmt.Fprintf(w, "  Total: %d (private %d, archived %d)\n", r.Total, r.Private, r.Archived)
	fmt.Fprintf(w, "  Added: %d  Removed: %d  Changed: %d  Unchanged: %d\n", r.Added, r.Removed, r.Changed, r.Unchanged)

	if len(r.ChangedSample) == 0 {
		return
	}
	fmt.Fprintf(w, "Changed (showing %d of %d):\n", len(r.ChangedSample), r.Changed)
	for _, repo := range r.ChangedSample {
		fmt.Fprintf(w, "  - %s  updated_at=%s  pushed_at=%s\n", repo.FullName, deref(repo.UpdatedAt), deref(repo.PushedAt))
	}
}

func deref(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
