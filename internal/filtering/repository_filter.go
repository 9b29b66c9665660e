package filtering

import (
	"fmt"
	"log/slog"

	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

// RepositoryFilter applies an account filter to normalized repositories
type RepositoryFilter interface {
	// Allows reports whether repo survives filter, with the reason
	Allows(repo *models.Repository, filter *models.Filter) (bool, string)

	// Apply returns the repositories that survive filter
	Apply(repos []*models.Repository, filter *models.Filter) []*models.Repository
}

type defaultRepositoryFilter struct {
	nameFilter NameFilter
}

var _ RepositoryFilter = (*defaultRepositoryFilter)(nil)

// NewDefaultRepositoryFilter creates a repository filter backed by glob patterns
func NewDefaultRepositoryFilter() RepositoryFilter {
	return &defaultRepositoryFilter{nameFilter: NewDefaultNameFilter()}
}

// NewRepositoryFilter creates a repository filter with a custom name filter
func NewRepositoryFilter(nameFilter NameFilter) RepositoryFilter {
	return &defaultRepositoryFilter{nameFilter: nameFilter}
}

// Allows checks the full name first and falls back to the short name
func (f *defaultRepositoryFilter) Allows(repo *models.Repository, filter *models.Filter) (bool, string) {
	if filter == nil || len(filter.Value) == 0 {
		return true, "no filter configured"
	}

	names := []string{repo.Repository}
	if repo.Name != "" && repo.Name != repo.Repository {
		names = append(names, repo.Name)
	}

	switch filter.Type {
	case models.FilterWhitelist:
		reason := ""
		for _, name := range names {
			ok, why := f.nameFilter.ShouldInclude(name, filter.Value, nil)
			if ok {
				return true, why
			}
			reason = why
		}
		return false, reason
	case models.FilterBlacklist:
		for _, name := range names {
			ok, why := f.nameFilter.ShouldInclude(name, nil, filter.Value)
			if !ok {
				return false, why
			}
		}
		return true, fmt.Sprintf("no match in blacklist %v", filter.Value)
	default:
		return true, fmt.Sprintf("unknown filter type %q ignored", filter.Type)
	}
}

// Apply filters repos, logging every suppressed repository
func (f *defaultRepositoryFilter) Apply(repos []*models.Repository, filter *models.Filter) []*models.Repository {
	if filter == nil || len(filter.Value) == 0 {
		return repos
	}

	kept := make([]*models.Repository, 0, len(repos))
	for _, repo := range repos {
		ok, reason := f.Allows(repo, filter)
		if !ok {
			slog.Debug("Repository filtered out",
				"repository", repo.Repository,
				"filter", filter.Type,
				"reason", reason)
			continue
		}
		kept = append(kept, repo)
	}
	return kept
}
