// internal/testutil/github.go

// Package testutil provides an in-process fake of the GitHub REST endpoints
// used by devtool.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Route names accepted by FakeGitHub.Fail and FakeGitHub.Requests.
const (
	RouteUser           = "user"
	RouteUserRepos      = "user_repos"
	RouteOrg            = "org"
	RouteOrgRepos       = "org_repos"
	RouteUserMembership = "user_membership"
	RouteOrgMembership  = "org_membership"
)

// Failure is a canned non-2xx response.
type Failure struct {
	Status int
	Header map[string]string
	Body   string
}

// Request is what the fake saw for one call.
type Request struct {
	Route         string
	Path          string
	Page          int
	PerPage       int
	Sort          string
	Direction     string
	Authorization string
	UserAgent     string
	APIVersion    string
}

// FakeGitHub serves a small subset of the GitHub REST API from memory.
type FakeGitHub struct {
	Server *httptest.Server

	// Token, when set, is the only bearer token accepted; others get a 401.
	Token string
	Login string

	UserRepos   []map[string]any
	OrgRepos    map[string][]map[string]any
	Orgs        map[string]map[string]any
	Memberships map[string]map[string]any

	// LinkHeaders makes listing responses carry a Link header with next/last relations.
	LinkHeaders bool

	mu       sync.Mutex
	failures map[string]Failure
	requests []Request
}

// NewFakeGitHub starts a fake server that is closed when the test ends.
func NewFakeGitHub(t *testing.T) *FakeGitHub {
	t.Helper()
	f := &FakeGitHub{
		Login:       "octocat",
		OrgRepos:    map[string][]map[string]any{},
		Orgs:        map[string]map[string]any{},
		Memberships: map[string]map[string]any{},
		failures:    map[string]Failure{},
	}
	f.Server = httptest.NewServer(f.router())
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the API base URL to hand to the client.
func (f *FakeGitHub) URL() string { return f.Server.URL + "/" }

// Fail makes every request to route answer with failure.
func (f *FakeGitHub) Fail(route string, failure Failure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = failure
}

// Requests returns the recorded requests, optionally filtered by route.
func (f *FakeGitHub) Requests(route string) []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Request
	for _, r := range f.requests {
		if route == "" || r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeGitHub) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/user", f.handle(RouteUser, func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]any{"login": f.Login, "id": 1, "type": "User"})
	}))
	r.Get("/user/repos", f.handle(RouteUserRepos, func(w http.ResponseWriter, r *http.Request) {
		f.respondWithPage(w, r, f.UserRepos)
	}))
	r.Get("/user/memberships/orgs/{org}", f.handle(RouteUserMembership, func(w http.ResponseWriter, r *http.Request) {
		f.respondWithMembership(w, chi.URLParam(r, "org"))
	}))
	r.Get("/orgs/{org}", f.handle(RouteOrg, func(w http.ResponseWriter, r *http.Request) {
		org, ok := f.Orgs[chi.URLParam(r, "org")]
		if !ok {
			respondWithJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		respondWithJSON(w, http.StatusOK, org)
	}))
	r.Get("/orgs/{org}/repos", f.handle(RouteOrgRepos, func(w http.ResponseWriter, r *http.Request) {
		repos, ok := f.OrgRepos[chi.URLParam(r, "org")]
		if !ok {
			respondWithJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		f.respondWithPage(w, r, repos)
	}))
	r.Get("/orgs/{org}/memberships/{login}", f.handle(RouteOrgMembership, func(w http.ResponseWriter, r *http.Request) {
		f.respondWithMembership(w, chi.URLParam(r, "org"))
	}))
	return r
}

// handle records the request, enforces the bearer token and applies injected failures.
func (f *FakeGitHub) handle(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		perPage, _ := strconv.Atoi(q.Get("per_page"))

		f.mu.Lock()
		f.requests = append(f.requests, Request{
			Route:         route,
			Path:          r.URL.Path,
			Page:          page,
			PerPage:       perPage,
			Sort:          q.Get("sort"),
			Direction:     q.Get("direction"),
			Authorization: r.Header.Get("Authorization"),
			UserAgent:     r.Header.Get("User-Agent"),
			APIVersion:    r.Header.Get("X-GitHub-Api-Version"),
		})
		failure, failing := f.failures[route]
		f.mu.Unlock()

		if f.Token != "" && r.Header.Get("Authorization") != "Bearer "+f.Token {
			respondWithJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		if failing {
			for k, v := range failure.Header {
				w.Header().Set(k, v)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failure.Status)
			fmt.Fprint(w, failure.Body)
			return
		}
		next(w, r)
	}
}

func (f *FakeGitHub) respondWithPage(w http.ResponseWriter, r *http.Request, all []map[string]any) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(q.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 30
	}

	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}

	if f.LinkHeaders {
		last := (len(all) + perPage - 1) / perPage
		if last > 1 && page < last {
			base := "http://" + r.Host + r.URL.Path
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=%d&per_page=%d>; rel="next", <%s?page=%d&per_page=%d>; rel="last"`,
				base, page+1, perPage, base, last, perPage))
		}
	}

	batch := all[start:end]
	if batch == nil {
		batch = []map[string]any{}
	}
	respondWithJSON(w, http.StatusOK, batch)
}

func (f *FakeGitHub) respondWithMembership(w http.ResponseWriter, org string) {
	m, ok := f.Memberships[org]
	if !ok {
		respondWithJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

// Repos builds n raw repository records owned by owner, ids starting at firstID.
func Repos(owner string, firstID, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		id := firstID + i
		name := fmt.Sprintf("repo-%d", id)
		out = append(out, map[string]any{
			"id":             id,
			"name":           name,
			"full_name":      owner + "/" + name,
			"private":        id%2 == 0,
			"default_branch": "main",
			"updated_at":     "2024-01-01T00:00:00Z",
			"pushed_at":      "2024-01-01T00:00:00Z",
			"html_url":       "https://github.com/" + owner + "/" + name,
			"owner":          map[string]any{"login": owner},
			"archived":       false,
			"fork":           false,
		})
	}
	return out
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
