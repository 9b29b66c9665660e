package catalog

import (
	"fmt"
	"strings"

	"github.com/stacklok/toolhive-catalog-sync/internal/manifest"
	"github.com/stacklok/toolhive-catalog-sync/internal/versions"
)

// LegacyVersion is one version in the flat shape
type LegacyVersion struct {
	Branches []string `json:"branches"`
	Port     int      `json:"port,omitempty"`
	Swagger  bool     `json:"swagger,omitempty"`
	Soa      string   `json:"soa"`
}

// LegacyEntry is the flat record older consumers read for services and daemons
type LegacyEntry struct {
	Name        string                   `json:"name"`
	Type        string                   `json:"type"`
	Group       string                   `json:"group,omitempty"`
	Port        int                      `json:"port,omitempty"`
	Description string                   `json:"description,omitempty"`
	Maintenance any                      `json:"maintenance,omitempty"`
	Src         Source                   `json:"src"`
	Version     string                   `json:"version,omitempty"`
	Versions    map[string]LegacyVersion `json:"versions"`
}

// ToLegacy flattens a service or daemon entry. Version keys have dots
// replaced by underscores; Version holds the newest key's original string.
func ToLegacy(entry *Entry) (*LegacyEntry, error) {
	if entry.Type != manifest.TypeService && entry.Type != manifest.TypeDaemon {
		return nil, fmt.Errorf("%w: legacy view is not available for %q", ErrUnsupportedType, entry.Type)
	}

	out := &LegacyEntry{
		Name:        entry.Name,
		Type:        entry.Type,
		Description: entry.Description,
		Src:         entry.Src,
		Versions:    make(map[string]LegacyVersion, len(entry.Versions)),
	}

	var cfg Configuration
	if entry.Configuration != nil {
		cfg = *entry.Configuration
	}
	out.Group = cfg.Group
	out.Port = cfg.Port
	out.Maintenance = cfg.Maintenance

	all := make([]string, 0, len(entry.Versions))
	for _, v := range entry.Versions {
		all = append(all, v.Version)
		out.Versions[SanitizeVersion(v.Version)] = LegacyVersion{
			Branches: v.Branches,
			Port:     cfg.Port,
			Swagger:  v.Swagger != "",
			Soa:      v.Soa,
		}
	}
	out.Version = versions.Latest(all)
	return out, nil
}

// SanitizeVersion makes a version string usable as a document key
func SanitizeVersion(v string) string {
	return strings.ReplaceAll(v, ".", "_")
}
