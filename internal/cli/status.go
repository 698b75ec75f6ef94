// internal/cli/status.go
package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"devtool/internal/config"
)

// StatusInfo is the metadata printed by the status command.
type StatusInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Go      string `json:"go"`
	Env     string `json:"env"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Time    string `json:"time"`
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tool status and environment info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// status reports even when the configuration is broken.
			cfg, err := config.LoadConfig(app.ConfigDir)
			if err != nil {
				cfg = &config.Config{AppEnv: "unknown", LogLevel: "info", LogFormat: "text"}
			}
			logger := newLogger(app.Stderr, cfg, "status")
			if err != nil {
				logger.Warn("Configuration could not be loaded", "error", err)
			}

			info := StatusInfo{
				Name:    Name,
				Version: Version,
				Go:      runtime.Version(),
				Env:     cfg.AppEnv,
				OS:      runtime.GOOS,
				Arch:    runtime.GOARCH,
				Time:    time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			}
			logger.Info("status", "env", info.Env, "go", info.Go)

			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
