package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrDuplicate is matched by every DuplicateError
var ErrDuplicate = errors.New("catalog entry owned by another repository")

// DuplicateError is returned when (name, type) already belongs to another source
type DuplicateError struct {
	Name      string
	Type      string
	Existing  Source
	Requested Source
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("catalog %s %q is owned by %s, cannot be claimed by %s",
		e.Type, e.Name, e.Existing, e.Requested)
}

// Is matches ErrDuplicate
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// Getter reads a catalog entry by name and type
type Getter interface {
	GetCatalog(ctx context.Context, name, entryType string) (*Entry, error)
}

// CheckDuplicateSource returns the existing entry for (name, entryType) when
// it was built from src, nil when none exists and a *DuplicateError when it
// belongs to a different source.
func CheckDuplicateSource(ctx context.Context, getter Getter, name, entryType string, src Source) (*Entry, error) {
	existing, err := getter.GetCatalog(ctx, name, entryType)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up catalog %s %q: %w", entryType, name, err)
	}
	if existing.Src != src {
		return nil, &DuplicateError{Name: name, Type: entryType, Existing: existing.Src, Requested: src}
	}
	return existing, nil
}
