// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingCredential is returned when a command that talks to the GitHub API
// is run without a token.
var ErrMissingCredential = errors.New("missing GitHub credential")

// MissingEnvError is returned when a required environment variable is unset or blank.
type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing %s. Set it in your shell:\n  export %s=YOUR_TOKEN_HERE", e.Name, e.Name)
}

// Unwrap lets callers match on ErrMissingCredential.
func (e *MissingEnvError) Unwrap() error { return ErrMissingCredential }

// InvalidArgumentError is returned when a command-line flag fails validation.
type InvalidArgumentError struct {
	Flag   string
	Value  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid --%s %q: %s", e.Flag, e.Value, e.Reason)
}

// APIError is a non-2xx response from the GitHub API, with a hint
// describing the likely cause.
type APIError struct {
	StatusCode int
	Status     string
	Hint       string
	Body       string

	// RateLimited is set when the request was rejected for exhausted quota.
	RateLimited    bool
	RateLimitReset time.Time
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("GitHub API %d %s. %s", e.StatusCode, e.Status, e.Hint)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += "\n" + body
	}
	return strings.TrimSpace(msg)
}

// Hints for the failure classes of the GitHub API.
const (
	HintUnauthorized = "Token invalid/expired or missing access."
	HintForbidden    = "Forbidden. Check token permissions / org access (SSO authorization may be required)."
	HintNotFound     = "Not found. The resource may not exist or is not visible to this token."
	HintGeneric      = "Request failed."
)

// HintFor derives the remediation hint for an HTTP status. remaining is the
// raw X-RateLimit-Remaining header value and reset the quota reset time.
func HintFor(status int, remaining string, reset time.Time) string {
	switch {
	case status == 401:
		return HintUnauthorized
	case status == 403 && remaining == "0":
		if reset.IsZero() {
			return "Rate limited."
		}
		return fmt.Sprintf("Rate limited. Resets at unix=%d (%s).", reset.Unix(), reset.UTC().Format(time.RFC3339))
	case status == 403:
		return HintForbidden
	case status == 404:
		return HintNotFound
	default:
		return HintGeneric
	}
}

// HintOf returns the hint carried by err, or a generic one for errors that
// never reached an HTTP response.
func HintOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Hint
	}
	return "Request failed. See error details."
}
