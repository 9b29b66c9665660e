package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/stacklok/toolhive-catalog-sync/internal/manifest"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

// ErrUnsupportedType is returned by NewBuilder for manifest types without a builder
var ErrUnsupportedType = errors.New("unsupported catalog type")

// BuildContext carries everything a builder needs for one activated ref
type BuildContext struct {
	Repository *models.Repository
	Branch     string
	Manifest   *manifest.Document

	// Swagger is the serialized API description, service and daemon only
	Swagger string

	Readme  string
	Release string
	Now     time.Time
}

// Builder merges a manifest into a catalog entry
type Builder interface {
	// CreateCatalog returns a new entry built from existing (which may be nil)
	// and the manifest in bc. existing is never modified.
	CreateCatalog(bc BuildContext, existing *Entry) (*Entry, error)
}

// NewBuilder returns the builder for a manifest type
func NewBuilder(entryType string) (Builder, error) {
	switch entryType {
	case manifest.TypeService, manifest.TypeDaemon:
		return &serviceBuilder{entryType: entryType}, nil
	case manifest.TypeCustom, manifest.TypeStatic, manifest.TypeConfig:
		return &basicBuilder{entryType: entryType}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, entryType)
	}
}

// basicBuilder handles custom, static and config entries
type basicBuilder struct {
	entryType string
}

func (b *basicBuilder) CreateCatalog(bc BuildContext, existing *Entry) (*Entry, error) {
	entry, version, err := buildCommon(bc, existing, b.entryType)
	if err != nil {
		return nil, err
	}
	entry.Versions = reconcileVersions(entry.Versions, version, bc.Branch)
	return entry, nil
}

// serviceBuilder handles service and daemon entries, which also carry an API
// description and runtime configuration
type serviceBuilder struct {
	entryType string
}

func (b *serviceBuilder) CreateCatalog(bc BuildContext, existing *Entry) (*Entry, error) {
	entry, version, err := buildCommon(bc, existing, b.entryType)
	if err != nil {
		return nil, err
	}

	doc := bc.Manifest
	version.APIs = doc.Content["apis"]
	version.Swagger = bc.Swagger

	if entry.Configuration == nil {
		entry.Configuration = &Configuration{}
	}
	entry.Configuration.Swagger = bc.Swagger != ""
	if port, ok := intValue(doc.Content["port"]); ok {
		entry.Configuration.Port = port
	}
	if group := doc.String("group"); group != "" {
		entry.Configuration.Group = group
	}
	if maintenance, ok := doc.Content["maintenance"]; ok && maintenance != nil {
		entry.Configuration.Maintenance = maintenance
	}

	entry.Versions = reconcileVersions(entry.Versions, version, bc.Branch)
	return entry, nil
}

// buildCommon copies existing and applies the fields shared by every type.
// It returns the entry and the version payload still to be reconciled.
func buildCommon(bc BuildContext, existing *Entry, entryType string) (*Entry, Version, error) {
	if bc.Repository == nil || bc.Manifest == nil {
		return nil, Version{}, errors.New("build context requires a repository and a manifest")
	}
	if bc.Branch == "" {
		return nil, Version{}, errors.New("build context requires a branch")
	}

	doc := bc.Manifest
	src, err := SourceFromRepository(bc.Repository.Provider, bc.Repository.Repository)
	if err != nil {
		return nil, Version{}, err
	}

	entry, err := existing.Clone()
	if err != nil {
		return nil, Version{}, err
	}
	if entry == nil {
		entry = &Entry{Src: src}
	} else if entry.Src != src {
		return nil, Version{}, &DuplicateError{Name: entry.Name, Type: entry.Type, Existing: entry.Src, Requested: src}
	}

	entry.Name = doc.Name
	entry.Type = entryType
	if description := doc.String("description"); description != "" {
		entry.Description = description
	}

	entry.Metadata = &Metadata{
		Tags:       doc.Strings("tags"),
		Attributes: doc.Object("attributes"),
		Program:    doc.String("program"),
	}
	if ui := uiSettings(doc); ui != nil {
		entry.UI = ui
	}

	var docs *Documentation
	if bc.Readme != "" || bc.Release != "" {
		docs = &Documentation{Readme: bc.Readme, Release: bc.Release}
		entry.Documentation = docs
	}

	soa, err := doc.Serialize()
	if err != nil {
		return nil, Version{}, err
	}

	now := bc.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	version := Version{
		Version:       doc.Version,
		LastSync:      LastSync{Branch: bc.Branch, TS: now},
		Soa:           soa,
		Documentation: docs,
	}
	return entry, version, nil
}

// uiSettings reads the ui object, accepting a bare tab name as shorthand
func uiSettings(doc *manifest.Document) map[string]any {
	if ui := doc.Object("ui"); ui != nil {
		return ui
	}
	if tab := doc.String("tab"); tab != "" {
		return map[string]any{"tab": tab}
	}
	return nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
