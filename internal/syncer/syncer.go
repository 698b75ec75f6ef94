// internal/syncer/syncer.go
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v62/github"

	"devtool/internal/diff"
	"devtool/internal/model"
	"devtool/internal/normalize"
	"devtool/internal/snapshot"
)

const (
	// MaxChangedSample is how many changed repositories a report carries.
	MaxChangedSample = 10

	generatedAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

// RepositoryLister fetches the full repository collection of a scope.
type RepositoryLister interface {
	ListRepositories(ctx context.Context, scope model.Scope) ([]*github.Repository, error)
}

// SnapshotStore loads and persists snapshot files.
type SnapshotStore interface {
	ReadPrevious(path string) snapshot.History
	Write(path string, snap model.Snapshot) error
}

// Clock abstracts time retrieval so snapshots are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Syncer orchestrates fetching, diffing and storing repository snapshots.
type Syncer struct {
	lister RepositoryLister
	store  SnapshotStore
	clock  Clock
	logger *slog.Logger
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(lister RepositoryLister, store SnapshotStore, clock Clock, logger *slog.Logger) *Syncer {
	return &Syncer{
		lister: lister,
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// SyncRepositories fetches every repository in scope, compares it with the
// snapshot at outputPath and overwrites that snapshot. A fetch failure aborts
// the run before anything is written.
func (s *Syncer) SyncRepositories(ctx context.Context, scope model.Scope, outputPath string) (*model.SyncReport, error) {
	logger := s.logger.With("scope", scope.String(), "path", outputPath)
	logger.Info("Syncing repositories")

	previous := s.store.ReadPrevious(outputPath)
	if previous.Valid {
		logger.Info("Loaded previous snapshot", "count", len(previous.Repos))
	} else {
		logger.Info("No usable previous snapshot, starting without history")
	}

	raw, err := s.lister.ListRepositories(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("fetching repositories: %w", err)
	}
	logger.Info("Fetched repositories", "count", len(raw))

	current := normalize.Repositories(raw)
	result := diff.Compute(previous.Repos, current)

	snap := model.Snapshot{
		GeneratedAt: s.clock.Now().UTC().Format(generatedAtLayout),
		Count:       len(current),
		Repos:       current,
	}
	if err := s.store.Write(outputPath, snap); err != nil {
		return nil, err
	}

	report := buildReport(scope, outputPath, previous.Valid, snap, result)
	logger.Info("Sync complete",
		"total", report.Total,
		"added", report.Added,
		"removed", report.Removed,
		"changed", report.Changed,
		"unchanged", report.Unchanged,
	)
	return report, nil
}

func buildReport(scope model.Scope, outputPath string, previousFound bool, snap model.Snapshot, result model.DiffResult) *model.SyncReport {
	report := &model.SyncReport{
		Scope:         scope,
		OutputPath:    outputPath,
		GeneratedAt:   snap.GeneratedAt,
		PreviousFound: previousFound,
		Total:         len(snap.Repos),
		Added:         len(result.Added),
		Removed:       len(result.Removed),
		Changed:       len(result.Changed),
		Unchanged:     len(result.Unchanged),
	}
	for _, r := range snap.Repos {
		if r.Private {
			report.Private++
		}
		if r.Archived {
			report.Archived++
		}
	}

	sample := result.Changed
	if len(sample) > MaxChangedSample {
		sample = sample[:MaxChangedSample]
	}
	report.ChangedSample = append([]model.Repository(nil), sample...)
	return report
}
