// internal/github/client_test.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	custom_errors "devtool/internal/errors"
	"devtool/internal/model"
	"devtool/internal/testutil"
)

const testToken = "test-token"

// setupTestClient creates a fake GitHub API and a client pointing to it.
func setupTestClient(t *testing.T, opts ...Option) (*Client, *testutil.FakeGitHub) {
	t.Helper()
	fake := testutil.NewFakeGitHub(t)
	fake.Token = testToken

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, err := NewClient(testToken, logger, append([]Option{WithBaseURL(fake.URL())}, opts...)...)
	require.NoError(t, err)

	return client, fake
}

func repoIDs(t *testing.T, client *Client, scope model.Scope) []int64 {
	t.Helper()
	repos, err := client.ListRepositories(context.Background(), scope)
	require.NoError(t, err)
	ids := make([]int64, 0, len(repos))
	for _, r := range repos {
		ids = append(ids, r.GetID())
	}
	return ids
}

func seq(from, to int64) []int64 {
	var out []int64
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestNewClient_RequiresToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	for _, token := range []string{"", "   "} {
		client, err := NewClient(token, logger)
		assert.Nil(t, client)
		assert.ErrorIs(t, err, custom_errors.ErrMissingCredential)
	}

	_, err := NewClient(testToken, logger, WithBaseURL("not a url"))
	assert.Error(t, err)
}

func TestClient_ListUserRepositories_Pagination(t *testing.T) {
	t.Run("stops after a short page", func(t *testing.T) {
		client, fake := setupTestClient(t)
		fake.UserRepos = testutil.Repos("octocat", 1, 237)

		ids := repoIDs(t, client, model.UserScope)

		assert.Equal(t, seq(1, 237), ids)
		requests := fake.Requests(testutil.RouteUserRepos)
		require.Len(t, requests, 3)
		for i, r := range requests {
			assert.Equal(t, i+1, r.Page)
			assert.Equal(t, 100, r.PerPage)
			assert.Equal(t, "updated", r.Sort)
			assert.Equal(t, "desc", r.Direction)
		}
	})

	t.Run("full last page needs one more request", func(t *testing.T) {
		client, fake := setupTestClient(t)
		fake.UserRepos = testutil.Repos("octocat", 1, 100)

		ids := repoIDs(t, client, model.UserScope)

		assert.Len(t, ids, 100)
		assert.Len(t, fake.Requests(testutil.RouteUserRepos), 2)
	})

	t.Run("empty listing", func(t *testing.T) {
		client, fake := setupTestClient(t)

		ids := repoIDs(t, client, model.UserScope)

		assert.Empty(t, ids)
		assert.Len(t, fake.Requests(testutil.RouteUserRepos), 1)
	})
}

func TestClient_RequestHeaders(t *testing.T) {
	client, fake := setupTestClient(t, WithUserAgent("devtool-test"))
	fake.UserRepos = testutil.Repos("octocat", 1, 3)

	_, err := client.ListUserRepositories(context.Background())
	require.NoError(t, err)
	_, err = client.GetAuthenticatedUser(context.Background())
	require.NoError(t, err)

	requests := fake.Requests("")
	require.Len(t, requests, 2)
	for _, r := range requests {
		assert.Equal(t, "Bearer "+testToken, r.Authorization)
		assert.Equal(t, "devtool-test", r.UserAgent)
		assert.Equal(t, "2022-11-28", r.APIVersion)
	}
}

func TestClient_ListOrgRepositories(t *testing.T) {
	client, fake := setupTestClient(t)
	fake.OrgRepos["acme"] = testutil.Repos("acme", 500, 150)

	ids := repoIDs(t, client, model.OrgScope("acme"))

	assert.Equal(t, seq(500, 649), ids)
	requests := fake.Requests(testutil.RouteOrgRepos)
	require.Len(t, requests, 2)
	assert.Equal(t, "/orgs/acme/repos", requests[0].Path)
	assert.Equal(t, "updated", requests[0].Sort)
	assert.Empty(t, fake.Requests(testutil.RouteUserRepos))
}

func TestClient_ConcurrentPagination(t *testing.T) {
	t.Run("keeps page order", func(t *testing.T) {
		client, fake := setupTestClient(t, WithPageConcurrency(4))
		fake.LinkHeaders = true
		fake.UserRepos = testutil.Repos("octocat", 1, 537)

		ids := repoIDs(t, client, model.UserScope)

		assert.Equal(t, seq(1, 537), ids)
		assert.Len(t, fake.Requests(testutil.RouteUserRepos), 6)
	})

	t.Run("continues past a full last page", func(t *testing.T) {
		client, fake := setupTestClient(t, WithPageConcurrency(4))
		fake.LinkHeaders = true
		fake.UserRepos = testutil.Repos("octocat", 1, 300)

		ids := repoIDs(t, client, model.UserScope)

		assert.Equal(t, seq(1, 300), ids)
		assert.Len(t, fake.Requests(testutil.RouteUserRepos), 4)
	})

	t.Run("sequential without concurrency even with link headers", func(t *testing.T) {
		client, fake := setupTestClient(t)
		fake.LinkHeaders = true
		fake.UserRepos = testutil.Repos("octocat", 1, 237)

		ids := repoIDs(t, client, model.UserScope)

		assert.Equal(t, seq(1, 237), ids)
		requests := fake.Requests(testutil.RouteUserRepos)
		require.Len(t, requests, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{requests[0].Page, requests[1].Page, requests[2].Page})
	})

	t.Run("page failure fails the listing", func(t *testing.T) {
		client, fake := setupTestClient(t, WithPageConcurrency(3))
		fake.LinkHeaders = true
		fake.UserRepos = testutil.Repos("octocat", 1, 250)

		repos, err := client.ListUserRepositories(context.Background())
		require.NoError(t, err)
		require.Len(t, repos, 250)

		fake.Fail(testutil.RouteUserRepos, testutil.Failure{Status: http.StatusBadGateway, Body: `{"message":"bad gateway"}`})
		repos, err = client.ListUserRepositories(context.Background())
		assert.Nil(t, repos)
		var apiErr *custom_errors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	})
}

func TestClient_ErrorTranslation(t *testing.T) {
	reset := time.Now().Add(time.Hour).Truncate(time.Second)

	tests := []struct {
		name        string
		failure     testutil.Failure
		wantStatus  int
		wantHint    string
		wantBody    string
		rateLimited bool
	}{
		{
			name:       "unauthorized",
			failure:    testutil.Failure{Status: 401, Body: `{"message": "Bad credentials"}`},
			wantStatus: 401,
			wantHint:   custom_errors.HintUnauthorized,
			wantBody:   "Bad credentials",
		},
		{
			name: "rate limited",
			failure: testutil.Failure{
				Status: 403,
				Header: map[string]string{
					"X-RateLimit-Limit":     "5000",
					"X-RateLimit-Remaining": "0",
					"X-RateLimit-Reset":     fmt.Sprintf("%d", reset.Unix()),
				},
				Body: `{"message": "API rate limit exceeded"}`,
			},
			wantStatus:  403,
			wantHint:    fmt.Sprintf("Rate limited. Resets at unix=%d", reset.Unix()),
			wantBody:    "API rate limit exceeded",
			rateLimited: true,
		},
		{
			name: "forbidden with quota left",
			failure: testutil.Failure{
				Status: 403,
				Header: map[string]string{"X-RateLimit-Remaining": "4999"},
				Body:   `{"message": "Resource not accessible by personal access token"}`,
			},
			wantStatus: 403,
			wantHint:   custom_errors.HintForbidden,
			wantBody:   "Resource not accessible",
		},
		{
			name:       "not found",
			failure:    testutil.Failure{Status: 404, Body: `{"message": "Not Found"}`},
			wantStatus: 404,
			wantHint:   custom_errors.HintNotFound,
			wantBody:   "Not Found",
		},
		{
			name:       "server error",
			failure:    testutil.Failure{Status: 500, Body: `{"message": "boom"}`},
			wantStatus: 500,
			wantHint:   custom_errors.HintGeneric,
			wantBody:   "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, fake := setupTestClient(t)
			fake.Fail(testutil.RouteUserRepos, tt.failure)

			repos, err := client.ListUserRepositories(context.Background())

			assert.Nil(t, repos)
			var apiErr *custom_errors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, http.StatusText(tt.wantStatus), apiErr.Status)
			assert.Contains(t, apiErr.Hint, tt.wantHint)
			assert.Contains(t, apiErr.Body, tt.wantBody)
			assert.Equal(t, tt.rateLimited, apiErr.RateLimited)
			if tt.rateLimited {
				assert.Equal(t, reset.Unix(), apiErr.RateLimitReset.Unix())
			}
			assert.Len(t, fake.Requests(testutil.RouteUserRepos), 1, "failures are never retried")
		})
	}
}

func TestClient_NoRetryOnServerError(t *testing.T) {
	client, fake := setupTestClient(t)
	fake.Fail(testutil.RouteUser, testutil.Failure{Status: http.StatusServiceUnavailable})

	_, err := client.GetAuthenticatedUser(context.Background())

	var apiErr *custom_errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Len(t, fake.Requests(testutil.RouteUser), 1)
}

func TestClient_BadToken(t *testing.T) {
	fake := testutil.NewFakeGitHub(t)
	fake.Token = "the-real-token"
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client, err := NewClient("wrong-token", logger, WithBaseURL(fake.URL()))
	require.NoError(t, err)

	_, err = client.GetAuthenticatedUser(context.Background())

	var apiErr *custom_errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, custom_errors.HintUnauthorized, apiErr.Hint)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL + "/"
	server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client, err := NewClient(testToken, logger, WithBaseURL(url), WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = client.ListUserRepositories(context.Background())

	require.Error(t, err)
	var apiErr *custom_errors.APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_IdentityAndOrgLookups(t *testing.T) {
	client, fake := setupTestClient(t)
	fake.Login = "hubber"
	fake.Orgs["acme"] = map[string]any{"login": "acme", "id": 77}
	fake.Memberships["acme"] = map[string]any{"state": "active", "role": "admin"}
	ctx := context.Background()

	user, err := client.GetAuthenticatedUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hubber", user.GetLogin())

	org, err := client.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", org.GetLogin())

	membership, err := client.GetOrgMembership(ctx, "acme", "")
	require.NoError(t, err)
	assert.Equal(t, "active", membership.GetState())
	assert.Equal(t, "admin", membership.GetRole())
	assert.Equal(t, "/user/memberships/orgs/acme", fake.Requests(testutil.RouteUserMembership)[0].Path)

	membership, err = client.GetOrgMembership(ctx, "acme", "hubber")
	require.NoError(t, err)
	assert.Equal(t, "admin", membership.GetRole())
	assert.Equal(t, "/orgs/acme/memberships/hubber", fake.Requests(testutil.RouteOrgMembership)[0].Path)

	_, err = client.GetOrganization(ctx, "ghost")
	var apiErr *custom_errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, err.Error(), `fetching organization "ghost"`)
}

func TestClient_Limiter(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client, fake := setupTestClient(t, WithLimiter(limiter))

	_, err := client.GetAuthenticatedUser(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.GetAuthenticatedUser(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter wait failed")
	assert.Len(t, fake.Requests(testutil.RouteUser), 1, "a paced request is not sent once its context is done")
}
