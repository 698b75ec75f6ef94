// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	custom_errors "devtool/internal/errors"
	"devtool/internal/model"
)

const (
	// PerPage is the page size requested from listing endpoints. A shorter page ends the listing.
	PerPage = 100

	DefaultUserAgent = "devtool"
	DefaultTimeout   = 30 * time.Second

	maxErrorBody = 64 << 10
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh              *github.Client
	logger          *slog.Logger
	limiter         *rate.Limiter
	pageConcurrency int
}

type clientOptions struct {
	baseURL         string
	userAgent       string
	timeout         time.Duration
	limiter         *rate.Limiter
	pageConcurrency int
}

// Option configures a Client.
type Option func(*clientOptions)

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithUserAgent sets the User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

// WithTimeout bounds every HTTP request; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithLimiter paces outgoing requests. Requests are delayed, never retried.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *clientOptions) { o.limiter = l }
}

// WithPageConcurrency allows up to n listing pages in flight once the last
// page number is known from the first response. Values below 2 keep listing sequential.
func WithPageConcurrency(n int) Option {
	return func(o *clientOptions) { o.pageConcurrency = n }
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client; a blank
// token fails before any request is made.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, custom_errors.ErrMissingCredential
	}

	o := clientOptions{
		userAgent:       DefaultUserAgent,
		timeout:         DefaultTimeout,
		pageConcurrency: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = o.timeout

	gh := github.NewClient(tc)
	gh.UserAgent = o.userAgent
	if o.baseURL != "" {
		u, err := url.Parse(o.baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid GitHub API URL %q", o.baseURL)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:              gh,
		logger:          logger,
		limiter:         o.limiter,
		pageConcurrency: o.pageConcurrency,
	}, nil
}

// GetAuthenticatedUser fetches the identity the token belongs to.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*github.User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetching authenticated user: %w", translateError(err))
	}
	return user, nil
}

// GetOrganization fetches an organization by login.
func (c *Client) GetOrganization(ctx context.Context, org string) (*github.Organization, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	o, _, err := c.gh.Organizations.Get(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("fetching organization %q: %w", org, translateError(err))
	}
	return o, nil
}

// GetOrgMembership fetches login's membership in org. An empty login asks
// for the membership of the authenticated user.
func (c *Client) GetOrgMembership(ctx context.Context, org, login string) (*github.Membership, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	m, _, err := c.gh.Organizations.GetOrgMembership(ctx, login, org)
	if err != nil {
		return nil, fmt.Errorf("fetching membership in %q: %w", org, translateError(err))
	}
	return m, nil
}

// ListRepositories lists every repository visible in scope, most recently updated first.
func (c *Client) ListRepositories(ctx context.Context, scope model.Scope) ([]*github.Repository, error) {
	if scope.IsOrg() {
		return c.ListOrgRepositories(ctx, scope.Org)
	}
	return c.ListUserRepositories(ctx)
}

// ListUserRepositories lists the authenticated user's repositories.
// It handles API pagination transparently.
func (c *Client) ListUserRepositories(ctx context.Context) ([]*github.Repository, error) {
	return c.listAll(ctx, model.UserScope, func(ctx context.Context, page int) ([]*github.Repository, *github.Response, error) {
		opts := &github.RepositoryListByAuthenticatedUserOptions{
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{Page: page, PerPage: PerPage},
		}
		return c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
	})
}

// ListOrgRepositories lists the repositories of org visible to the token.
// It handles API pagination transparently.
func (c *Client) ListOrgRepositories(ctx context.Context, org string) ([]*github.Repository, error) {
	return c.listAll(ctx, model.OrgScope(org), func(ctx context.Context, page int) ([]*github.Repository, *github.Response, error) {
		opts := &github.RepositoryListByOrgOptions{
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{Page: page, PerPage: PerPage},
		}
		return c.gh.Repositories.ListByOrg(ctx, org, opts)
	})
}

type pageFunc func(ctx context.Context, page int) ([]*github.Repository, *github.Response, error)

// listAll walks pages 1, 2, ... until a page holds fewer than PerPage items.
// When concurrency is enabled and the first response names the last page,
// pages 2..last are fetched in parallel and stitched back in page order.
func (c *Client) listAll(ctx context.Context, scope model.Scope, fetch pageFunc) ([]*github.Repository, error) {
	logger := c.logger.With("scope", scope.String())

	first, resp, err := c.fetchPage(ctx, scope, logger, fetch, 1)
	if err != nil {
		return nil, err
	}
	batches := [][]*github.Repository{first}
	next := 2

	if len(first) == PerPage && c.pageConcurrency > 1 && resp.LastPage > 1 {
		rest, err := c.fetchPages(ctx, scope, logger, fetch, 2, resp.LastPage)
		if err != nil {
			return nil, err
		}
		batches = append(batches, rest...)
		next = resp.LastPage + 1
	}

	var all []*github.Repository
	for _, batch := range batches {
		all = append(all, batch...)
		if len(batch) < PerPage {
			logger.Debug("Listed repositories", "count", len(all))
			return all, nil
		}
	}

	for page := next; ; page++ {
		batch, _, err := c.fetchPage(ctx, scope, logger, fetch, page)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < PerPage {
			logger.Debug("Listed repositories", "count", len(all))
			return all, nil
		}
	}
}

func (c *Client) fetchPages(ctx context.Context, scope model.Scope, logger *slog.Logger, fetch pageFunc, from, last int) ([][]*github.Repository, error) {
	results := make([][]*github.Repository, last-from+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.pageConcurrency)
	for page := from; page <= last; page++ {
		page := page
		g.Go(func() error {
			batch, _, err := c.fetchPage(gctx, scope, logger, fetch, page)
			if err != nil {
				return err
			}
			results[page-from] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) fetchPage(ctx context.Context, scope model.Scope, logger *slog.Logger, fetch pageFunc, page int) ([]*github.Repository, *github.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, nil, err
	}
	logger.Debug("Fetching repositories page", "page", page)

	batch, resp, err := fetch(ctx, page)
	if err != nil {
		return nil, nil, fmt.Errorf("listing %s repositories (page %d): %w", scope, page, translateError(err))
	}
	return batch, resp, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// translateError turns go-github's response errors into an APIError.
// Errors that never produced a response are returned unchanged.
func translateError(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return newAPIError(rateErr.Response, rateErr.Message, true, rateErr.Rate.Reset.Time)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return newAPIError(abuseErr.Response, abuseErr.Message, false, time.Time{})
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		return newAPIError(respErr.Response, respErr.Message, false, time.Time{})
	}
	return err
}

func newAPIError(resp *http.Response, message string, quotaExhausted bool, reset time.Time) *custom_errors.APIError {
	var status int
	var remaining string
	if resp != nil {
		status = resp.StatusCode
		remaining = resp.Header.Get("X-RateLimit-Remaining")
		if reset.IsZero() {
			reset = parseReset(resp.Header.Get("X-RateLimit-Reset"))
		}
	}
	if quotaExhausted {
		remaining = "0"
	}

	body := readBody(resp)
	if body == "" {
		body = message
	}

	apiErr := &custom_errors.APIError{
		StatusCode: status,
		Status:     http.StatusText(status),
		Hint:       custom_errors.HintFor(status, remaining, reset),
		Body:       body,
	}
	if status == http.StatusForbidden && remaining == "0" {
		apiErr.RateLimited = true
		apiErr.RateLimitReset = reset
	}
	return apiErr
}

// readBody returns the error body go-github left readable on the response.
func readBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func parseReset(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
