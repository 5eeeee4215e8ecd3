// Package tableschema loads declarative table schemas from JSON files and
// converts them into table definitions. A schema file names the table, its
// fields with portable base types and its primary keys; components ship them
// in a schemas/ folder next to the source.
package tableschema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"component-sdk/manifest"
)

var validate = validator.New()

// FieldSchema defines the name and type specification of a single field.
type FieldSchema struct {
	Name        string `json:"name" validate:"required"`
	BaseType    string `json:"base_type,omitempty"`
	Description string `json:"description,omitempty"`
	Nullable    bool   `json:"nullable,omitempty"`
	Length      string `json:"length,omitempty"`
	Default     string `json:"default,omitempty"`
}

// TableSchema defines the schema and metadata of one table.
type TableSchema struct {
	Name         string        `json:"name" validate:"required"`
	Fields       []FieldSchema `json:"fields" validate:"required,dive"`
	PrimaryKeys  []string      `json:"primary_keys,omitempty"`
	ParentTables []string      `json:"parent_tables,omitempty"`
	Description  string        `json:"description,omitempty"`
}

// FieldNames returns the field names in declaration order.
func (s *TableSchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// CSVName returns the file name the table is written under.
func (s *TableSchema) CSVName() string {
	return s.Name + ".csv"
}

// AddField appends an extra field to the schema.
func (s *TableSchema) AddField(field FieldSchema) {
	s.Fields = append(s.Fields, field)
}

// Parse decodes and validates a schema document. Errors distinguish a
// malformed field list from a malformed table object.
func Parse(data []byte) (*TableSchema, error) {
	var raw struct {
		Name         string          `json:"name"`
		Fields       json.RawMessage `json:"fields"`
		PrimaryKeys  []string        `json:"primary_keys"`
		ParentTables []string        `json:"parent_tables"`
		Description  string          `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("table schema definition is invalid: %w", err)
	}

	schema := &TableSchema{
		Name:         raw.Name,
		PrimaryKeys:  raw.PrimaryKeys,
		ParentTables: raw.ParentTables,
		Description:  raw.Description,
	}
	if len(raw.Fields) > 0 {
		if err := json.Unmarshal(raw.Fields, &schema.Fields); err != nil {
			return nil, fmt.Errorf("table schema field definitions are invalid: %w", err)
		}
	}

	if err := validate.Struct(schema); err != nil {
		return nil, fmt.Errorf("table schema %q is incomplete: %w", raw.Name, err)
	}
	for _, f := range schema.Fields {
		if f.BaseType == "" {
			continue
		}
		if _, err := manifest.ParseBaseType(strings.ToUpper(f.BaseType)); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return schema, nil
}

// FromMap builds a table schema from an already decoded document, e.g. a
// schema embedded in component parameters.
func FromMap(doc map[string]any) (*TableSchema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("table schema definition is invalid: %w", err)
	}
	return Parse(data)
}

// Load reads the schema named name from folder. The file is expected at
// <folder>/<name>.json.
func Load(folder, name string) (*TableSchema, error) {
	path := filepath.Join(folder, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("schema %q not found, make sure %s.json exists in %s: %w", name, name, folder, err)
		}
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return Parse(data)
}

// ManifestSchema converts the table schema into the typed column schema of a
// table definition.
func (s *TableSchema) ManifestSchema() (*manifest.Schema, error) {
	out := manifest.NewSchema()
	for _, f := range s.Fields {
		types := manifest.Base(manifest.TypeString)
		if f.BaseType != "" {
			types = manifest.Base(manifest.BaseType(strings.ToUpper(f.BaseType)))
			if f.Length != "" {
				types = types.WithLength(f.Length)
			}
			if f.Default != "" {
				types = types.WithDefault(f.Default)
			}
		}
		col := manifest.TypedColumn(types)
		col.Nullable = f.Nullable
		col.Description = f.Description
		if err := out.Add(f.Name, col); err != nil {
			return nil, err
		}
	}
	if err := out.SetPrimaryKey(s.PrimaryKeys...); err != nil {
		return nil, err
	}
	return out, nil
}

// LegacyMetadata converts the table schema into the metadata object used by
// legacy manifests, where types and descriptions travel as reserved
// key/value pairs instead of a typed column list.
func (s *TableSchema) LegacyMetadata() (*manifest.TableMetadata, error) {
	tm := manifest.NewTableMetadata()
	if s.Description != "" {
		tm.AddTableDescription(s.Description)
	}
	for _, f := range s.Fields {
		if f.Description != "" {
			tm.AddColumnMetadata(f.Name, manifest.MetaDescription, f.Description)
		}
		if f.BaseType == "" {
			continue
		}
		var def any
		if f.Default != "" {
			def = f.Default
		}
		baseType := manifest.BaseType(strings.ToUpper(f.BaseType))
		if err := tm.AddColumnDataType(f.Name, baseType, "", f.Nullable, f.Length, def); err != nil {
			return nil, err
		}
	}
	return tm, nil
}
