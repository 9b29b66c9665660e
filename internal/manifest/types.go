// Package manifest locates, parses and normalizes the manifest a repository
// declares at a branch or tag.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Manifest types
const (
	TypeService = "service"
	TypeDaemon  = "daemon"
	TypeCustom  = "custom"
	TypeStatic  = "static"
	TypeConfig  = "config"
	TypeMulti   = "multi"
)

// DefaultVersion is applied when a manifest declares no version
const DefaultVersion = "1"

// Candidate file names in search order
const (
	FileSoaJSON  = "soa.json"
	FileConfigJS = "config.js"
	FileSoaJS    = "soa.js"
)

// SearchOrder lists the files tried under every folder prefix
var SearchOrder = []string{FileSoaJSON, FileConfigJS, FileSoaJS}

// ErrManifestNotFound is returned when no candidate file exists
var ErrManifestNotFound = errors.New("manifest not found")

// ParseError is returned when a manifest file exists but cannot be parsed
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a manifest does not satisfy the schema of its type
type ValidationError struct {
	Type string
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest %s is not a valid %s manifest: %v", e.Path, e.Type, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsResolverFailure reports whether err means the repository has no usable
// manifest, in which case callers fall back to a synthetic one.
func IsResolverFailure(err error) bool {
	var parseErr *ParseError
	return errors.Is(err, ErrManifestNotFound) || errors.As(err, &parseErr)
}

// Document is a parsed and normalized manifest
type Document struct {
	Type    string
	Version string
	Name    string

	// Content is the normalized manifest object
	Content map[string]any

	// Path is the repository path the manifest was read from
	Path string

	// Folder is the prefix the manifest was resolved under, empty for the root
	Folder string

	// Synthetic marks a manifest generated because the repository has none
	Synthetic bool
}

// String returns the string value of key, or "" when absent or not a string
func (d *Document) String(key string) string {
	s, _ := d.Content[key].(string)
	return s
}

// Object returns the object value of key, or nil
func (d *Document) Object(key string) map[string]any {
	m, _ := d.Content[key].(map[string]any)
	return m
}

// Strings returns the string items of the array at key
func (d *Document) Strings(key string) []string {
	items, _ := d.Content[key].([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Folders returns the sub-folder prefixes of a multi manifest
func (d *Document) Folders() []string {
	folders := d.Strings("folders")
	out := folders[:0]
	for _, f := range folders {
		if f = strings.Trim(f, "/"); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Serialize returns the normalized manifest as JSON
func (d *Document) Serialize() (string, error) {
	data, err := json.Marshal(d.Content)
	if err != nil {
		return "", fmt.Errorf("failed to serialize manifest: %w", err)
	}
	return string(data), nil
}

// Synthesize returns the custom manifest used when a repository declares none
func Synthesize(repoName string) *Document {
	return &Document{
		Type:    TypeCustom,
		Version: DefaultVersion,
		Name:    repoName,
		Content: map[string]any{
			"name":    repoName,
			"type":    TypeCustom,
			"version": DefaultVersion,
		},
		Synthetic: true,
	}
}
