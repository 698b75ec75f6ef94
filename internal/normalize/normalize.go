// internal/normalize/normalize.go

// Package normalize maps raw go-github repository records onto model.Repository.
// It is the only place the loosely typed API shape is read.
package normalize

import (
	"time"

	"github.com/google/go-github/v62/github"

	"devtool/internal/model"
)

// Repository translates a github.Repository to our internal model.Repository.
// Absent booleans become false and absent nullable strings become nil.
// A nil owner yields a nil OwnerLogin.
func Repository(r *github.Repository) model.Repository {
	return model.Repository{
		ID:            r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Private:       r.GetPrivate(),
		DefaultBranch: r.DefaultBranch,
		UpdatedAt:     timestamp(r.UpdatedAt),
		PushedAt:      timestamp(r.PushedAt),
		HTMLURL:       r.GetHTMLURL(),
		OwnerLogin:    ownerLogin(r.Owner),
		Archived:      r.GetArchived(),
		Fork:          r.GetFork(),
	}
}

// Repositories normalizes a fetched collection, preserving order.
func Repositories(raw []*github.Repository) []model.Repository {
	repos := make([]model.Repository, 0, len(raw))
	for _, r := range raw {
		repos = append(repos, Repository(r))
	}
	return repos
}

func timestamp(ts *github.Timestamp) *string {
	if ts == nil || ts.IsZero() {
		return nil
	}
	s := ts.UTC().Format(time.RFC3339)
	return &s
}

func ownerLogin(u *github.User) *string {
	if u == nil {
		return nil
	}
	return u.Login
}
