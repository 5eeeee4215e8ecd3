package manifest

import (
	"sort"

	"github.com/spf13/cast"
)

// orderedKV is a key/value store with upsert semantics that remembers
// insertion order, so manifest projections stay deterministic.
type orderedKV struct {
	keys []string
	vals map[string]any
}

func (o *orderedKV) set(key string, value any) {
	if o.vals == nil {
		o.vals = map[string]any{}
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = value
}

func (o *orderedKV) get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

func (o *orderedKV) len() int { return len(o.keys) }

// TableMetadata abstracts the free-form table and column annotations carried
// by a manifest, so callers can set descriptions, base types and arbitrary
// keys without knowing the platform's metadata key vocabulary or either wire
// encoding.
type TableMetadata struct {
	table   orderedKV
	colKeys []string
	columns map[string]*orderedKV
}

// NewTableMetadata returns an empty metadata store.
func NewTableMetadata() *TableMetadata {
	return &TableMetadata{columns: map[string]*orderedKV{}}
}

// AddTableMetadata upserts one table-level key; the last write wins.
func (m *TableMetadata) AddTableMetadata(key string, value any) {
	m.table.set(key, value)
}

// AddColumnMetadata upserts one column-level key; the last write for a given
// column/key pair wins.
func (m *TableMetadata) AddColumnMetadata(column, key string, value any) {
	if m.columns == nil {
		m.columns = map[string]*orderedKV{}
	}
	kv, ok := m.columns[column]
	if !ok {
		kv = &orderedKV{}
		m.columns[column] = kv
		m.colKeys = append(m.colKeys, column)
	}
	kv.set(key, value)
}

// AddTableDescription sets the reserved description key shown in the
// storage UI.
func (m *TableMetadata) AddTableDescription(description string) {
	m.AddTableMetadata(MetaDescription, description)
}

// TableDescription returns the reserved description key, or "".
func (m *TableMetadata) TableDescription() string {
	v, _ := m.table.get(MetaDescription)
	return cast.ToString(v)
}

// AddColumnDescriptions sets the reserved description key for each column.
func (m *TableMetadata) AddColumnDescriptions(descriptions map[string]string) {
	for column, desc := range descriptions {
		m.AddColumnMetadata(column, MetaDescription, desc)
	}
}

// AddColumnDataType writes the reserved data-type keys (base type,
// nullability and optionally source type, length, default) for one column.
// Only supported base types are accepted.
//
// Deprecated: column data types moved to the TableDefinition schema; use
// ColumnDefinition. Retained for components still emitting legacy manifests.
func (m *TableMetadata) AddColumnDataType(column string, dataType BaseType, sourceType string, nullable bool, length string, def any) error {
	if _, err := ParseBaseType(string(dataType)); err != nil {
		return err
	}
	m.AddColumnMetadata(column, MetaBaseDataType, string(dataType))
	m.AddColumnMetadata(column, MetaDataTypeNullable, nullable)
	if sourceType != "" {
		m.AddColumnMetadata(column, MetaSourceDataType, sourceType)
	}
	if length != "" {
		m.AddColumnMetadata(column, MetaDataTypeLength, length)
	}
	if def != nil {
		m.AddColumnMetadata(column, MetaDataTypeDefault, def)
	}
	return nil
}

// AddColumnDataTypes writes the reserved base-type key for several columns
// at once.
//
// Deprecated: column data types moved to the TableDefinition schema; use
// ColumnDefinition.
func (m *TableMetadata) AddColumnDataTypes(columnTypes map[string]BaseType) error {
	for _, column := range sortedKeys(columnTypes) {
		if err := m.AddColumnDataType(column, columnTypes[column], "", false, "", nil); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromManifest rebuilds the store from a raw manifest document of either
// dialect. A document mixing the native "schema" key with any of the legacy
// "metadata"/"column_metadata"/"columns" keys is rejected.
func (m *TableMetadata) LoadFromManifest(doc map[string]any) error {
	if hasKey(doc, "schema") &&
		(hasKey(doc, "metadata") || hasKey(doc, "column_metadata") || hasKey(doc, "columns")) {
		return &ManifestError{Msg: "manifest cannot combine native 'schema' with legacy 'metadata'/'column_metadata'/'columns'"}
	}

	if !hasKey(doc, "schema") {
		for column, rawList := range cast.ToStringMap(doc["column_metadata"]) {
			for _, raw := range cast.ToSlice(rawList) {
				entry := cast.ToStringMap(raw)
				key := cast.ToString(entry["key"])
				if key == "" {
					continue
				}
				m.AddColumnMetadata(column, key, entry["value"])
			}
		}
		for _, raw := range cast.ToSlice(doc["metadata"]) {
			entry := cast.ToStringMap(raw)
			key := cast.ToString(entry["key"])
			if key == "" {
				continue
			}
			m.AddTableMetadata(key, entry["value"])
		}
		return nil
	}

	// native dialect: table metadata is a merged key/value object
	for key, value := range cast.ToStringMap(doc["table_metadata"]) {
		m.AddTableMetadata(key, value)
	}
	return nil
}

// TableMetadataForManifest projects the table-level store into its wire
// shape: a list of {key, value} objects for the legacy dialect, a merged
// key/value object for the native one.
func (m *TableMetadata) TableMetadataForManifest(legacy bool) any {
	if legacy {
		out := make([]any, 0, m.table.len())
		for _, key := range m.table.keys {
			out = append(out, map[string]any{"key": key, "value": m.table.vals[key]})
		}
		return out
	}
	out := make(map[string]any, m.table.len())
	for _, key := range m.table.keys {
		out[key] = m.table.vals[key]
	}
	return out
}

// ColumnMetadataForManifest projects the column-level store into the legacy
// "column_metadata" object of {key, value} lists. The native dialect carries
// column metadata inside the schema's per-column objects instead.
func (m *TableMetadata) ColumnMetadataForManifest() map[string]any {
	out := make(map[string]any, len(m.colKeys))
	for _, column := range m.colKeys {
		kv := m.columns[column]
		list := make([]any, 0, kv.len())
		for _, key := range kv.keys {
			list = append(list, map[string]any{"key": key, "value": kv.vals[key]})
		}
		out[column] = list
	}
	return out
}

// ColumnMetadata returns a plain view of the column-level store:
// column name to key/value map.
func (m *TableMetadata) ColumnMetadata() map[string]map[string]any {
	out := make(map[string]map[string]any, len(m.colKeys))
	for _, column := range m.colKeys {
		kv := m.columns[column]
		entry := make(map[string]any, kv.len())
		for _, key := range kv.keys {
			entry[key] = kv.vals[key]
		}
		out[column] = entry
	}
	return out
}

// TableMetadataMap returns a plain key/value view of the table-level store.
func (m *TableMetadata) TableMetadataMap() map[string]any {
	out := make(map[string]any, m.table.len())
	for _, key := range m.table.keys {
		out[key] = m.table.vals[key]
	}
	return out
}

// layerOntoSchema copies the column-level annotations into the schema's
// per-column Metadata, creating a default column for names the schema does
// not know yet. Legacy manifests carry column annotations separately from
// the column list, so the two views are joined here.
func (m *TableMetadata) layerOntoSchema(s *Schema) {
	for _, column := range m.colKeys {
		kv := m.columns[column]
		entry := make(map[string]any, kv.len())
		for _, key := range kv.keys {
			entry[key] = kv.vals[key]
		}
		s.setMetadata(column, entry)
	}
}

func hasKey(doc map[string]any, key string) bool {
	v, ok := doc[key]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}

// sortedKeys orders map keys for deterministic iteration.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
