// internal/snapshot/store.go
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"devtool/internal/model"
)

// DefaultPath is where sync writes its snapshot when no path is given.
const DefaultPath = ".cache/github/repos.json"

// History is the outcome of reading a previous snapshot. Valid is false
// when there is no usable prior history, whatever the reason.
type History struct {
	Repos []model.Repository
	Valid bool
}

// Store reads and writes snapshot files.
type Store struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewStore creates a Store on the given filesystem.
func NewStore(fs afero.Fs, logger *slog.Logger) *Store {
	return &Store{fs: fs, logger: logger}
}

// NewOSStore creates a Store on the host filesystem.
func NewOSStore(logger *slog.Logger) *Store {
	return NewStore(afero.NewOsFs(), logger)
}

// ReadPrevious loads the snapshot at path. A missing, unreadable or
// malformed file is reported as absent history, never as an error.
func (s *Store) ReadPrevious(path string) History {
	logger := s.logger.With("path", path)

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		logger.Debug("No previous snapshot", "reason", err)
		return History{}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Debug("Previous snapshot is not valid JSON, ignoring", "reason", err)
		return History{}
	}
	raw, ok := doc["repos"]
	if !ok || !isArray(raw) {
		logger.Debug("Previous snapshot has no repos array, ignoring")
		return History{}
	}

	var repos []model.Repository
	if err := json.Unmarshal(raw, &repos); err != nil {
		logger.Debug("Previous snapshot repos are malformed, ignoring", "reason", err)
		return History{}
	}

	logger.Debug("Loaded previous snapshot", "count", len(repos))
	return History{Repos: repos, Valid: true}
}

// Write replaces the file at path with snap, creating parent directories.
// Count is set from the number of repos. Nothing is backed up and the write
// is not atomic: a crash mid-write leaves a file ReadPrevious treats as absent.
func (s *Store) Write(path string, snap model.Snapshot) error {
	snap.Count = len(snap.Repos)
	if snap.Repos == nil {
		snap.Repos = []model.Repository{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	s.logger.Debug("Snapshot written", "path", path, "count", snap.Count, "bytes", len(data))
	return nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
