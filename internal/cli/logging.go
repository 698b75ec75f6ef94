// internal/cli/logging.go
package cli

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"devtool/internal/config"
)

// newLogger builds the slog logger for one invocation. Every record carries
// an op_id so the lines of a single run can be grouped.
func newLogger(w io.Writer, cfg *config.Config, command string) *slog.Logger {
	logLevel := new(slog.LevelVar)
	setLogLevel(cfg.LogLevel, logLevel)

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("op_id", uuid.NewString(), "command", command)
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
