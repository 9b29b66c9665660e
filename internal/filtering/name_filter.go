package filtering

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// NameFilter matches names against include and exclude glob patterns
type NameFilter interface {
	// ShouldInclude determines if a name should be included based on include/exclude patterns
	// Returns (shouldInclude bool, reason string)
	ShouldInclude(name string, include, exclude []string) (bool, string)
}

// defaultNameFilter implements name filtering using glob patterns
type defaultNameFilter struct{}

var _ NameFilter = (*defaultNameFilter)(nil)

// NewDefaultNameFilter creates a new defaultNameFilter
func NewDefaultNameFilter() NameFilter {
	return &defaultNameFilter{}
}

// matchPattern matches a glob pattern against a name. filepath.Match only
// validates the pattern; gobwas/glob without separators lets * cross slashes.
func matchPattern(pattern, name string) (bool, error) {
	if _, err := filepath.Match(pattern, "test"); err != nil {
		return false, err
	}
	compiled, err := glob.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid glob pattern: %v", err)
	}
	return compiled.Match(name), nil
}

// ShouldInclude applies exclude patterns first, then include patterns. A name
// is included when it matches no exclude pattern and either matches an include
// pattern or no include patterns are given.
func (*defaultNameFilter) ShouldInclude(name string, include, exclude []string) (bool, string) {
	for _, pattern := range exclude {
		matches, err := matchPattern(pattern, name)
		if err != nil {
			return false, fmt.Sprintf("invalid exclude pattern '%s': %v", pattern, err)
		}
		if matches {
			return false, fmt.Sprintf("excluded by pattern '%s'", pattern)
		}
	}

	if len(include) > 0 {
		for _, pattern := range include {
			matches, err := matchPattern(pattern, name)
			if err != nil {
				return false, fmt.Sprintf("invalid include pattern '%s': %v", pattern, err)
			}
			if matches {
				return true, fmt.Sprintf("included by pattern '%s'", pattern)
			}
		}
		return false, fmt.Sprintf("no match found in include patterns %v", include)
	}

	if len(exclude) > 0 {
		return true, fmt.Sprintf("no match in exclude patterns %v", exclude)
	}
	return true, "no name filters specified"
}

// ValidatePatterns reports the first invalid pattern
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := matchPattern(pattern, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}
