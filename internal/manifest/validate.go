package manifest

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaBaseURL = "https://stacklok.com/schemas/catalog-sync/"

//go:embed schemas/*.json
var schemaFS embed.FS

// schemaFiles maps each manifest type to the schema it is validated against
var schemaFiles = map[string]string{
	TypeService: "service.json",
	TypeDaemon:  "service.json",
	TypeCustom:  "generic.json",
	TypeStatic:  "generic.json",
	TypeConfig:  "generic.json",
	TypeMulti:   "multi.json",
}

// Validator checks documents against the JSON schema of their type
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded manifest schemas
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiled := make(map[string]*jsonschema.Schema)

	for _, file := range schemaFiles {
		if _, ok := compiled[file]; ok {
			continue
		}
		data, err := schemaFS.ReadFile("schemas/" + file)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", file, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode schema %s: %w", file, err)
		}
		if err := compiler.AddResource(schemaBaseURL+file, doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", file, err)
		}
		compiled[file] = nil
	}

	for file := range compiled {
		schema, err := compiler.Compile(schemaBaseURL + file)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", file, err)
		}
		compiled[file] = schema
	}

	schemas := make(map[string]*jsonschema.Schema, len(schemaFiles))
	for docType, file := range schemaFiles {
		schemas[docType] = compiled[file]
	}
	return &Validator{schemas: schemas}, nil
}

// Validate returns a *ValidationError when doc does not satisfy the schema of its type
func (v *Validator) Validate(doc *Document) error {
	schema, ok := v.schemas[doc.Type]
	if !ok {
		return &ValidationError{Type: doc.Type, Path: doc.Path, Err: fmt.Errorf("unknown manifest type %q", doc.Type)}
	}

	// round trip so numbers are decoded the way the schema library expects
	data, err := json.Marshal(doc.Content)
	if err != nil {
		return &ValidationError{Type: doc.Type, Path: doc.Path, Err: err}
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &ValidationError{Type: doc.Type, Path: doc.Path, Err: err}
	}

	if err := schema.Validate(instance); err != nil {
		return &ValidationError{Type: doc.Type, Path: doc.Path, Err: err}
	}
	return nil
}
