// internal/model/models.go
package model

// Repository is the normalized, persisted shape of a GitHub repository.
// Nullable fields are pointers so they serialize as JSON null.
type Repository struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	FullName      string  `json:"full_name"`
	Private       bool    `json:"private"`
	DefaultBranch *string `json:"default_branch"`
	UpdatedAt     *string `json:"updated_at"`
	PushedAt      *string `json:"pushed_at"`
	HTMLURL       string  `json:"html_url"`
	OwnerLogin    *string `json:"owner_login"`
	Archived      bool    `json:"archived"`
	Fork          bool    `json:"fork"`
}

// Snapshot is the content of the cache file written by a sync run.
type Snapshot struct {
	GeneratedAt string       `json:"generated_at"`
	Count       int          `json:"count"`
	Repos       []Repository `json:"repos"`
}

// DiffResult partitions the current collection against the previous one.
type DiffResult struct {
	Added     []Repository
	Removed   []Repository
	Changed   []Repository
	Unchanged []Repository
}

// Scope selects whose repositories are listed.
type Scope struct {
	// Org is the organization login; empty means the authenticated user.
	Org string
}

// UserScope is the authenticated user's repositories.
var UserScope = Scope{}

// OrgScope returns the scope of the named organization.
func OrgScope(org string) Scope { return Scope{Org: org} }

func (s Scope) IsOrg() bool { return s.Org != "" }

func (s Scope) String() string {
	if s.IsOrg() {
		return "org:" + s.Org
	}
	return "user"
}

// SyncReport summarizes a completed sync run.
type SyncReport struct {
	Scope         Scope
	OutputPath    string
	GeneratedAt   string
	PreviousFound bool

	Total    int
	Private  int
	Archived int

	Added     int
	Removed   int
	Changed   int
	Unchanged int

	// ChangedSample holds at most ten changed records, in fetch order.
	ChangedSample []Repository
}
