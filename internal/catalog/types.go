// Package catalog builds the versioned catalog entries derived from repository
// manifests and keeps their branch membership consistent.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by registries when no entry exists for (name, type)
var ErrNotFound = errors.New("catalog entry not found")

// Source identifies the repository a catalog entry was built from
type Source struct {
	Provider string `json:"provider"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
}

// SourceFromRepository splits an "owner/repo" full name into a Source
func SourceFromRepository(provider, fullName string) (Source, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return Source{}, fmt.Errorf("invalid repository name %q: expected owner/repo", fullName)
	}
	return Source{Provider: provider, Owner: owner, Repo: repo}, nil
}

func (s Source) String() string {
	return s.Provider + ":" + s.Owner + "/" + s.Repo
}

// LastSync records which ref last wrote a version and when
type LastSync struct {
	Branch string    `json:"branch"`
	TS     time.Time `json:"ts"`
}

// Documentation holds the serialized readme and release notes
type Documentation struct {
	Readme  string `json:"readme,omitempty"`
	Release string `json:"release,omitempty"`
}

// Metadata is the descriptive part of an entry
type Metadata struct {
	Tags       []string       `json:"tags,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Program    string         `json:"program,omitempty"`
}

// Configuration carries the runtime settings of service and daemon entries
type Configuration struct {
	Port  int    `json:"port,omitempty"`
	Group string `json:"group,omitempty"`

	// Maintenance is either a flag or the maintenance endpoint settings
	// ({readiness, port: {type}}), copied from the manifest as is
	Maintenance any  `json:"maintenance,omitempty"`
	Swagger     bool `json:"swagger,omitempty"`
}

// Version is the catalog payload of one manifest version. It is kept only
// while at least one branch reports it.
type Version struct {
	Version       string         `json:"version"`
	LastSync      LastSync       `json:"lastSync"`
	Soa           string         `json:"soa"`
	Branches      []string       `json:"branches"`
	Documentation *Documentation `json:"documentation,omitempty"`
	Swagger       string         `json:"swagger,omitempty"`
	APIs          any            `json:"apis,omitempty"`
}

// HasBranch reports whether branch reports this version
func (v *Version) HasBranch(branch string) bool {
	for _, b := range v.Branches {
		if b == branch {
			return true
		}
	}
	return false
}

// Entry is the durable description of a repository capability, unique per (Name, Type)
type Entry struct {
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Description   string         `json:"description,omitempty"`
	Src           Source         `json:"src"`
	Metadata      *Metadata      `json:"metadata,omitempty"`
	UI            map[string]any `json:"ui,omitempty"`
	Documentation *Documentation `json:"documentation,omitempty"`
	Configuration *Configuration `json:"configuration,omitempty"`
	Versions      []Version      `json:"versions"`
}

// Clone returns a deep copy of e
func (e *Entry) Clone() (*Entry, error) {
	if e == nil {
		return nil, nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to copy catalog entry %s: %w", e.Name, err)
	}
	var out Entry
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy catalog entry %s: %w", e.Name, err)
	}
	return &out, nil
}

// FindVersion returns the version entry for v or nil
func (e *Entry) FindVersion(v string) *Version {
	for i := range e.Versions {
		if e.Versions[i].Version == v {
			return &e.Versions[i]
		}
	}
	return nil
}
