// Package models contains the persisted records shared by the ingestion,
// activation and storage layers.
package models

import (
	"time"

	"github.com/stacklok/toolhive-catalog-sync/internal/status"
)

// Provider keys used to select an adapter.
const (
	ProviderGitHub              = "github"
	ProviderBitbucket           = "bitbucket"
	ProviderBitbucketEnterprise = "bitbucket_enterprise"
)

// Access levels of an account.
const (
	AccessPublic  = "public"
	AccessPrivate = "private"
)

// RepositoryType is the value of Repository.Type for every repository record.
const RepositoryType = "repository"

// Account is a credentialed identity on one provider.
type Account struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	Owner         string   `json:"owner"`
	AccessLevel   string   `json:"access"`
	Domain        string   `json:"domain"`
	GlobalID      string   `json:"GID"`
	Token         string   `json:"-"`
	RefreshToken  string   `json:"-"`
	Username      string   `json:"username,omitempty"`
	Password      string   `json:"-"`
	Organizations []string `json:"organizations,omitempty"`

	// Filter restricts which repositories are kept during ingestion
	Filter *Filter `json:"filter,omitempty"`

	// SyncStatus tracks the last ingestion pass for this account
	SyncStatus *status.SyncStatus `json:"syncStatus,omitempty"`
}

// HasToken reports whether the account carries an access token.
func (a *Account) HasToken() bool {
	return a != nil && a.Token != ""
}

// Filter types.
const (
	FilterWhitelist = "whitelist"
	FilterBlacklist = "blacklist"
)

// Filter suppresses repositories that do not match the configured policy.
type Filter struct {
	Type  string   `json:"type" yaml:"type"`
	Value []string `json:"value" yaml:"value"`
}

// SourceEntry records that an account saw a repository during a sync pass.
type SourceEntry struct {
	Name string    `json:"name"`
	TS   time.Time `json:"ts"`
}

// CatalogRef points at a catalog entry a branch or tag contributed to.
type CatalogRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Ref is a branch or tag inside a repository.
type Ref struct {
	Name     string       `json:"name"`
	Active   bool         `json:"active"`
	TS       *time.Time   `json:"ts,omitempty"`
	Commit   string       `json:"commit,omitempty"`
	Catalogs []CatalogRef `json:"catalogs,omitempty"`
}

// Repository is a discovered repository. It is unique per (Repository, Domain).
type Repository struct {
	ID         string        `json:"id"`
	Repository string        `json:"repository"`
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Owner      string        `json:"owner"`
	Provider   string        `json:"provider"`
	Domain     string        `json:"domain"`
	Access     string        `json:"access,omitempty"`
	Active     bool          `json:"active"`
	Branches   []Ref         `json:"branches,omitempty"`
	Tags       []Ref         `json:"tags,omitempty"`
	Source     []SourceEntry `json:"source,omitempty"`
}

// IsOrphaned reports whether no account references the repository anymore.
func (r *Repository) IsOrphaned() bool {
	return len(r.Source) == 0
}

// FindBranch returns the branch with the given name or nil.
func (r *Repository) FindBranch(name string) *Ref {
	return findRef(r.Branches, name)
}

// FindTag returns the tag with the given name or nil.
func (r *Repository) FindTag(name string) *Ref {
	return findRef(r.Tags, name)
}

// SetSource adds or refreshes the source entry for owner.
func (r *Repository) SetSource(owner string, ts time.Time) {
	for i := range r.Source {
		if r.Source[i].Name == owner {
			r.Source[i].TS = ts
			return
		}
	}
	r.Source = append(r.Source, SourceEntry{Name: owner, TS: ts})
}

// PruneSource drops the entry of owner when it is older than before.
// It reports whether an entry was removed.
func (r *Repository) PruneSource(owner string, before time.Time) bool {
	for i := range r.Source {
		if r.Source[i].Name == owner && r.Source[i].TS.Before(before) {
			r.Source = append(r.Source[:i], r.Source[i+1:]...)
			return true
		}
	}
	return false
}

// HasSource reports whether owner is one of the repository sources.
func (r *Repository) HasSource(owner string) bool {
	for _, s := range r.Source {
		if s.Name == owner {
			return true
		}
	}
	return false
}

func findRef(refs []Ref, name string) *Ref {
	for i := range refs {
		if refs[i].Name == name {
			return &refs[i]
		}
	}
	return nil
}

// MergeRefs merges fresh provider refs into existing ones, keeping activation
// state of refs that still exist. Active refs that disappeared upstream are kept.
func MergeRefs(existing, fresh []Ref) []Ref {
	out := make([]Ref, 0, len(fresh))
	seen := make(map[string]bool, len(fresh))
	for _, f := range fresh {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		if old := findRef(existing, f.Name); old != nil {
			merged := *old
			if f.Commit != "" {
				merged.Commit = f.Commit
			}
			out = append(out, merged)
			continue
		}
		out = append(out, f)
	}
	for _, old := range existing {
		if !seen[old.Name] && old.Active {
			out = append(out, old)
		}
	}
	return out
}
