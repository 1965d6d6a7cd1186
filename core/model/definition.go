package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/artpar/crudkit/core/convention"
	"gopkg.in/yaml.v3"
)

// Definition is a model plus how it is exposed over HTTP.
//
//	name: author
//	fields:
//	  - { name: id, type: integer, primary_key: true }
//	  - { name: name, type: string, max_length: 100 }
//	api:
//	  viewset: model
//	  pagination: limit_offset
//	  page_size: 20
//	  filters: [field, search, ordering]
type Definition struct {
	Model `yaml:",inline"`

	API API `yaml:"api,omitempty"`
}

// API configures the viewset generated for a model.
type API struct {
	// Path is the collection path. Derived from the model name when empty.
	Path string `yaml:"path,omitempty"`

	// ViewSet selects a capability set: "model" (all actions) or "readonly".
	ViewSet string `yaml:"viewset,omitempty"`

	// Actions lists capabilities explicitly, overriding ViewSet.
	Actions []string `yaml:"actions,omitempty"`

	// Fields restricts the serialized fields. Empty means all fields.
	Fields []string `yaml:"fields,omitempty"`

	// LookupField identifies a single object. Defaults to the primary key.
	LookupField string `yaml:"lookup_field,omitempty"`

	// LookupPattern is the regular expression the path segment must match.
	LookupPattern string `yaml:"lookup_pattern,omitempty"`

	// Pagination is "", "limit_offset" or "page_number".
	Pagination string `yaml:"pagination,omitempty"`

	// PageSize is the default page size.
	PageSize int `yaml:"page_size,omitempty"`

	// MaxPageSize caps client-requested page sizes.
	MaxPageSize int `yaml:"max_page_size,omitempty"`

	// Filters lists filter backends in application order:
	// "field", "search", "ordering".
	Filters []string `yaml:"filters,omitempty"`

	// Permissions maps an action name to the permission it requires.
	Permissions map[string]string `yaml:"permissions,omitempty"`
}

// ApplyDefaults fills derived names.
func (d *Definition) ApplyDefaults() {
	if d.Table == "" {
		d.Table = convention.TableName(d.Name)
	}
	if d.API.Path == "" {
		d.API.Path = convention.CollectionPath(d.Name)
	}
	if d.API.ViewSet == "" && len(d.API.Actions) == 0 {
		d.API.ViewSet = "model"
	}
}

// Validate checks the model and API settings.
func (d *Definition) Validate() error {
	if err := d.Model.Validate(); err != nil {
		return err
	}
	if !strings.HasPrefix(d.API.Path, "/") {
		return fmt.Errorf("model %q: api.path must start with /", d.Name)
	}
	switch d.API.ViewSet {
	case "", "model", "readonly":
	default:
		return fmt.Errorf("model %q: api.viewset must be 'model' or 'readonly', got %q", d.Name, d.API.ViewSet)
	}
	switch d.API.Pagination {
	case "", "limit_offset", "page_number":
	default:
		return fmt.Errorf("model %q: api.pagination must be 'limit_offset' or 'page_number', got %q", d.Name, d.API.Pagination)
	}
	if d.API.LookupField != "" {
		if _, ok := d.Field(d.API.LookupField); !ok {
			return fmt.Errorf("model %q: api.lookup_field %q is not a field", d.Name, d.API.LookupField)
		}
	}
	for _, name := range d.API.Fields {
		if _, ok := d.Field(name); !ok {
			return fmt.Errorf("model %q: api.fields: unknown field %q", d.Name, name)
		}
	}
	return nil
}

// Parse parses and validates a model definition from YAML bytes.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse yaml: %w", err)
	}

	def.ApplyDefaults()
	if err := def.Validate(); err != nil {
		return Definition{}, fmt.Errorf("validate model %q: %w", def.Name, err)
	}

	return def, nil
}

// ParseFile parses a model definition from a YAML file.
func ParseFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read file %s: %w", path, err)
	}

	return Parse(data)
}

// ParseDir parses every *.yaml / *.yml file in dir, including subdirectories.
func ParseDir(dir string) ([]Definition, error) {
	var defs []Definition

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			defs = append(defs, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		def, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}
