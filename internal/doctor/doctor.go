// internal/doctor/doctor.go

// Package doctor walks through the usual reasons a GitHub token cannot see
// the repositories a user expects.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/go-github/v62/github"

	custom_errors "devtool/internal/errors"
)

// sampleSize is how many repository names are shown after a successful listing.
const sampleSize = 5

// ErrChecksFailed is returned when a check the rest of the run depends on fails.
var ErrChecksFailed = errors.New("github doctor checks failed")

// Prober is the subset of the GitHub client the checks need.
type Prober interface {
	GetAuthenticatedUser(ctx context.Context) (*github.User, error)
	GetOrganization(ctx context.Context, org string) (*github.Organization, error)
	GetOrgMembership(ctx context.Context, org, login string) (*github.Membership, error)
	ListOrgRepositories(ctx context.Context, org string) ([]*github.Repository, error)
}

// Doctor runs the diagnostic checks and writes a human readable report.
type Doctor struct {
	prober Prober
	out    io.Writer
	logger *slog.Logger
}

// NewDoctor creates a Doctor that reports to out.
func NewDoctor(prober Prober, out io.Writer, logger *slog.Logger) *Doctor {
	return &Doctor{prober: prober, out: out, logger: logger}
}

// Run executes the checks. The caller has already verified that a token is
// configured. It returns ErrChecksFailed when the token cannot authenticate
// or, for an org, when the org's repositories cannot be listed.
func (d *Doctor) Run(ctx context.Context, org string) error {
	d.println("GitHub Doctor")
	d.println("------------")
	d.println("✔ GITHUB_TOKEN is set")

	user, err := d.prober.GetAuthenticatedUser(ctx)
	if err != nil {
		d.warn("viewer", err)
		d.println("✖ Could not authenticate with GitHub")
		d.printf("  → %s\n", hint(err))
		d.println("  Fix: regenerate token or ensure it has access, then re-export GITHUB_TOKEN.")
		return ErrChecksFailed
	}
	d.printf("✔ Authenticated as: %s\n", user.GetLogin())

	if org == "" {
		d.println("✔ No org provided (user scope)")
		d.println("Next: try `sync-github repos` (user scope) or add `--org <org>` to diagnose org access.")
		return nil
	}
	d.printf("✔ Org check requested: %s\n", org)

	// A missing org is reported but the remaining checks still run; the
	// membership probe often explains why.
	o, err := d.prober.GetOrganization(ctx, org)
	if err != nil {
		d.warn("org", err)
		d.printf("✖ Org %q not accessible\n", org)
		d.printf("  → %s\n", hint(err))
		d.println("  Fix: confirm org name is correct, and that your account can view it.")
	} else {
		login := o.GetLogin()
		if login == "" {
			login = org
		}
		d.printf("✔ Org exists/visible: %s\n", login)
	}

	m, err := d.prober.GetOrgMembership(ctx, org, "")
	if err != nil {
		d.warn("org-membership", err)
		d.printf("✖ Cannot confirm membership for org %q\n", org)
		d.printf("  → %s\n", hint(err))
		d.println("  Common causes:")
		d.println("  - You are not a member of the org (or membership is private)")
		d.println("  - Token is not authorized for org access (SSO/org policy)")
		d.println("  - Token permissions too limited")
	} else {
		d.printf("✔ Org membership: state=%s, role=%s\n", orUnknown(m.GetState()), orUnknown(m.GetRole()))
	}

	repos, err := d.prober.ListOrgRepositories(ctx, org)
	if err != nil {
		d.warn("org-repos", err)
		d.printf("✖ Cannot list org repos for %q\n", org)
		d.printf("  → %s\n", hint(err))
		d.println("  Fix:")
		d.println("  - Ensure your fine-grained token includes repo read access for that org")
		d.println("  - If org requires SSO, authorize the token for SSO")
		return ErrChecksFailed
	}

	d.printf("✔ Org repos visible to token: %d\n", len(repos))
	if len(repos) == 0 {
		d.println("ℹ Seeing 0 repos usually means:")
		d.println("  - You don't have access to any repos in that org, or")
		d.println("  - The org has no repos, or")
		d.println("  - Visibility is restricted by org policies.")
		d.println("Suggestion:")
		d.println("  - Verify you're a member of the org and have access to at least one repo")
		d.println("  - Recreate the token and explicitly grant access to that org's repos")
	} else {
		d.printf("Sample repos (top %d):\n", sampleSize)
		for i, r := range repos {
			if i == sampleSize {
				break
			}
			d.printf("  - %s\n", r.GetFullName())
		}
	}

	d.println("Doctor complete ✅")
	return nil
}

func (d *Doctor) warn(label string, err error) {
	d.logger.Warn("GitHub doctor check failed", "label", label, "error", err)
}

func (d *Doctor) println(s string) {
	fmt.Fprintln(d.out, s)
}

func (d *Doctor) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

// hint renders the cause of a failed probe, prefixed with the HTTP status
// when the API answered.
func hint(err error) string {
	var apiErr *custom_errors.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%d %s. %s", apiErr.StatusCode, apiErr.Status, apiErr.Hint)
	}
	return custom_errors.HintOf(err)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
