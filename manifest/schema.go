package manifest

import "fmt"

// Schema is an ordered mapping of column name to ColumnDefinition, owned by
// exactly one TableDefinition. Insertion order defines the column order in
// rendered manifests; column names are unique.
type Schema struct {
	names []string
	cols  map[string]ColumnDefinition
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{cols: map[string]ColumnDefinition{}}
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.names) }

// Names returns the column names in insertion order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get returns the definition of the named column.
func (s *Schema) Get(name string) (ColumnDefinition, bool) {
	col, ok := s.cols[name]
	return col, ok
}

// Add appends a column. Adding a name that already exists is an error.
func (s *Schema) Add(name string, def ColumnDefinition) error {
	if _, ok := s.cols[name]; ok {
		return &ValidationError{Msg: fmt.Sprintf("column with name %q already exists", name)}
	}
	if err := def.validate(); err != nil {
		return err
	}
	if s.cols == nil {
		s.cols = map[string]ColumnDefinition{}
	}
	s.names = append(s.names, name)
	s.cols[name] = def
	return nil
}

// AddPlain appends columns with the default STRING definition.
func (s *Schema) AddPlain(names ...string) error {
	for _, name := range names {
		if err := s.Add(name, NewColumn()); err != nil {
			return err
		}
	}
	return nil
}

// Update replaces the definition of an existing column, keeping its position.
func (s *Schema) Update(name string, def ColumnDefinition) error {
	if _, ok := s.cols[name]; !ok {
		return &ValidationError{Msg: fmt.Sprintf("column with name %q not found", name)}
	}
	if err := def.validate(); err != nil {
		return err
	}
	s.cols[name] = def
	return nil
}

// Delete removes a column.
func (s *Schema) Delete(name string) error {
	if _, ok := s.cols[name]; !ok {
		return &ValidationError{Msg: fmt.Sprintf("column with name %q not found", name)}
	}
	delete(s.cols, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteMany removes several columns, stopping at the first unknown name.
func (s *Schema) DeleteMany(names ...string) error {
	for _, name := range names {
		if err := s.Delete(name); err != nil {
			return err
		}
	}
	return nil
}

// SetPrimaryKey flags the named columns as primary-key members. Every name
// must already exist in the schema; the error names the missing column.
func (s *Schema) SetPrimaryKey(names ...string) error {
	for _, name := range names {
		if _, ok := s.cols[name]; !ok {
			return &ValidationError{
				Msg: fmt.Sprintf("primary key column %q not found in schema, specify all columns first", name),
			}
		}
	}
	for _, name := range names {
		col := s.cols[name]
		col.PrimaryKey = true
		s.cols[name] = col
	}
	return nil
}

// PrimaryKey returns the names of the primary-key columns in schema order.
// Primary-key membership is always derived from the per-column flags; there
// is no separate list to fall out of sync with.
func (s *Schema) PrimaryKey() []string {
	var out []string
	for _, name := range s.names {
		if s.cols[name].PrimaryKey {
			out = append(out, name)
		}
	}
	return out
}

// setMetadata attaches column metadata, creating a default column when the
// name is unknown. Used when layering legacy column metadata beneath an
// already loaded schema.
func (s *Schema) setMetadata(name string, metadata map[string]any) {
	col, ok := s.cols[name]
	if !ok {
		col = NewColumn()
		s.names = append(s.names, name)
	}
	col.Metadata = metadata
	if s.cols == nil {
		s.cols = map[string]ColumnDefinition{}
	}
	s.cols[name] = col
}

// toList renders the native manifest schema array in column order.
func (s *Schema) toList() []any {
	out := make([]any, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.cols[name].toMap(name))
	}
	return out
}
