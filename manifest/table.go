package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
)

// TableDefinition describes a single CSV table together with everything its
// manifest sidecar carries. Output properties are set through functional
// options or the setters; input-only properties are populated when the
// definition is built from an existing manifest.
type TableDefinition struct {
	// FullPath points at the CSV file, or at the slice folder when the
	// table is sliced. Empty for orphaned manifests.
	FullPath string
	IsSliced bool
	Stage    Stage

	Destination string
	Incremental *bool
	WriteAlways bool
	Delimiter   string
	Enclosure   string
	DeleteWhere *DeleteWhere
	Metadata    *TableMetadata

	name      string
	schema    *Schema
	hasHeader *bool

	// forceLegacy marks manifests that declare a primary key without
	// columns. Such tables cannot express a typed schema and always
	// render in the legacy dialect.
	forceLegacy      bool
	legacyPrimaryKey []string

	// input manifest attributes, read-only
	id             string
	uri            string
	created        string
	lastChangeDate string
	lastImportDate string
	rowsCount      int64
	dataSizeBytes  int64
	isAlias        *bool
	indexedColumns []string
	attributes     map[string]any

	pendingPrimaryKey []string
}

// TableOption configures a TableDefinition during construction.
type TableOption func(*TableDefinition) error

// NewTableDefinition creates a table definition with the given name. Options
// are applied in order; a primary key given via WithPrimaryKey is applied
// last so it may reference columns added by any other option.
func NewTableDefinition(name string, opts ...TableOption) (*TableDefinition, error) {
	if name == "" {
		return nil, &ValidationError{Msg: "table name must not be empty"}
	}
	td := &TableDefinition{
		Stage:     StageOut,
		Delimiter: ",",
		Enclosure: `"`,
		Metadata:  NewTableMetadata(),
		name:      name,
		schema:    NewSchema(),
	}
	for _, opt := range opts {
		if err := opt(td); err != nil {
			return nil, err
		}
	}
	if td.pendingPrimaryKey != nil {
		if err := td.schema.SetPrimaryKey(td.pendingPrimaryKey...); err != nil {
			return nil, err
		}
		td.pendingPrimaryKey = nil
	}
	return td, nil
}

// WithFullPath sets the location of the CSV file or slice folder.
func WithFullPath(path string) TableOption {
	return func(td *TableDefinition) error {
		td.FullPath = path
		return nil
	}
}

// Sliced marks the table as sliced, its full path then points at a folder.
func Sliced() TableOption {
	return func(td *TableDefinition) error {
		td.IsSliced = true
		return nil
	}
}

// WithStage sets the table stage, StageOut is the default.
func WithStage(stage Stage) TableOption {
	return func(td *TableDefinition) error {
		if stage != StageIn && stage != StageOut {
			return &ValidationError{Msg: fmt.Sprintf("invalid stage %q, supported values are: %q, %q", stage, StageIn, StageOut)}
		}
		td.Stage = stage
		return nil
	}
}

// WithDestination sets the target Storage table id, e.g. "out.c-main.orders".
func WithDestination(destination string) TableOption {
	return func(td *TableDefinition) error {
		td.Destination = destination
		return nil
	}
}

// WithColumns adds plain string columns in the given order.
func WithColumns(names ...string) TableOption {
	return func(td *TableDefinition) error {
		for _, name := range names {
			if err := td.schema.AddPlain(name); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithSchema replaces the table schema.
func WithSchema(schema *Schema) TableOption {
	return func(td *TableDefinition) error {
		if schema == nil {
			schema = NewSchema()
		}
		td.schema = schema
		return nil
	}
}

// WithPrimaryKey marks the named columns as the primary key. The columns must
// exist in the schema by the time all options are applied.
func WithPrimaryKey(names ...string) TableOption {
	return func(td *TableDefinition) error {
		td.pendingPrimaryKey = append([]string{}, names...)
		return nil
	}
}

// WithIncremental sets the incremental load flag explicitly. An unset flag
// never appears in the manifest, an explicit false does.
func WithIncremental(incremental bool) TableOption {
	return func(td *TableDefinition) error {
		td.Incremental = &incremental
		return nil
	}
}

// WithDelimiter overrides the default "," CSV delimiter.
func WithDelimiter(delimiter string) TableOption {
	return func(td *TableDefinition) error {
		td.Delimiter = delimiter
		return nil
	}
}

// WithEnclosure overrides the default '"' CSV enclosure.
func WithEnclosure(enclosure string) TableOption {
	return func(td *TableDefinition) error {
		td.Enclosure = enclosure
		return nil
	}
}

// WithDeleteWhere sets the row deletion clause used by incremental loads.
func WithDeleteWhere(where *DeleteWhere) TableOption {
	return func(td *TableDefinition) error {
		if where != nil {
			if err := where.normalize(); err != nil {
				return err
			}
		}
		td.DeleteWhere = where
		return nil
	}
}

// WithWriteAlways makes the table upload even when the job fails.
func WithWriteAlways(writeAlways bool) TableOption {
	return func(td *TableDefinition) error {
		td.WriteAlways = writeAlways
		return nil
	}
}

// WithHasHeader overrides the header row inference.
func WithHasHeader(hasHeader bool) TableOption {
	return func(td *TableDefinition) error {
		td.hasHeader = &hasHeader
		return nil
	}
}

// WithTableMetadata replaces the metadata container.
func WithTableMetadata(metadata *TableMetadata) TableOption {
	return func(td *TableDefinition) error {
		if metadata == nil {
			metadata = NewTableMetadata()
		}
		td.Metadata = metadata
		return nil
	}
}

// WithDescription sets the table description metadata.
func WithDescription(description string) TableOption {
	return func(td *TableDefinition) error {
		td.Metadata.AddTableDescription(description)
		return nil
	}
}

// Name returns the table name.
func (td *TableDefinition) Name() string { return td.name }

// Schema returns the mutable column schema.
func (td *TableDefinition) Schema() *Schema { return td.schema }

// ColumnNames returns the column names in schema order.
func (td *TableDefinition) ColumnNames() []string { return td.schema.Names() }

// PrimaryKey returns the primary key column names. For tables forced into
// legacy mode it returns the primary key carried by the source manifest.
func (td *TableDefinition) PrimaryKey() []string {
	if td.forceLegacy {
		return td.legacyPrimaryKey
	}
	return td.schema.PrimaryKey()
}

// SetPrimaryKey marks the named schema columns as the primary key.
func (td *TableDefinition) SetPrimaryKey(names ...string) error {
	return td.schema.SetPrimaryKey(names...)
}

// AddColumn appends a plain string column to the schema.
func (td *TableDefinition) AddColumn(name string) error {
	return td.schema.AddPlain(name)
}

// AddTypedColumn appends a column with an explicit definition.
func (td *TableDefinition) AddTypedColumn(name string, col ColumnDefinition) error {
	return td.schema.Add(name, col)
}

// SetHasHeader overrides the header row inference.
func (td *TableDefinition) SetHasHeader(hasHeader bool) {
	td.hasHeader = &hasHeader
}

// HasHeader reports whether the CSV file carries a header row. Unless
// overridden, sliced tables and output tables with known columns have no
// header and everything else does.
func (td *TableDefinition) HasHeader() bool {
	if td.hasHeader != nil {
		return *td.hasHeader
	}
	switch {
	case td.IsSliced:
		return false
	case td.schema.Len() > 0 && td.Stage != StageIn:
		return false
	default:
		return true
	}
}

// Input manifest accessors.

func (td *TableDefinition) ID() string             { return td.id }
func (td *TableDefinition) URI() string            { return td.uri }
func (td *TableDefinition) Created() string        { return td.created }
func (td *TableDefinition) LastChangeDate() string { return td.lastChangeDate }
func (td *TableDefinition) LastImportDate() string { return td.lastImportDate }
func (td *TableDefinition) RowsCount() int64       { return td.rowsCount }
func (td *TableDefinition) DataSizeBytes() int64   { return td.dataSizeBytes }

func (td *TableDefinition) IndexedColumns() []string   { return td.indexedColumns }
func (td *TableDefinition) Attributes() map[string]any { return td.attributes }

// IsAlias reports whether the source table is an alias.
func (td *TableDefinition) IsAlias() bool { return td.isAlias != nil && *td.isAlias }

// ManifestOptions select the dialect and stage a manifest renders in.
type ManifestOptions struct {
	// Stage of the manifest. When zero, the table's own stage is used.
	Stage Stage
	// LegacyQueue marks projects on the legacy job queue, some output
	// properties are not allowed there.
	LegacyQueue bool
	// LegacyManifest selects the flat dialect with columns, primary_key
	// and the metadata key/value lists.
	LegacyManifest bool
	// Logger receives the legacy queue warning. Defaults to slog.Default.
	Logger *slog.Logger
}

// Manifest renders the manifest document for the table. The result contains
// only fields applicable to the selected stage and dialect, with empty
// values removed.
func (td *TableDefinition) Manifest(opts ManifestOptions) map[string]any {
	stage := opts.Stage
	if stage == "" {
		stage = td.Stage
	}
	legacyManifest := opts.LegacyManifest || td.forceLegacy

	fields := map[string]any{
		"id":               td.id,
		"uri":              td.uri,
		"name":             td.name,
		"created":          td.created,
		"last_change_date": td.lastChangeDate,
		"last_import_date": td.lastImportDate,
		"rows_count":       td.rowsCount,
		"data_size_bytes":  td.dataSizeBytes,
		"is_alias":         boolValue(td.isAlias),
		"indexed_columns":  td.indexedColumns,
		"attributes":       td.attributes,

		"destination":     td.Destination,
		"incremental":     boolValue(td.Incremental),
		"primary_key":     td.PrimaryKey(),
		"write_always":    td.WriteAlways,
		"delimiter":       td.Delimiter,
		"enclosure":       td.Enclosure,
		"metadata":        td.Metadata.TableMetadataForManifest(true),
		"column_metadata": td.Metadata.ColumnMetadataForManifest(),
		"manifest_type":   string(stage),
		"has_header":      td.HasHeader(),
		"table_metadata":  td.Metadata.TableMetadataForManifest(false),
		"schema":          td.schema.toList(),
	}
	if td.DeleteWhere != nil {
		fields["delete_where_column"] = td.DeleteWhere.Column
		fields["delete_where_values"] = td.DeleteWhere.Values
		fields["delete_where_operator"] = td.DeleteWhere.Operator
	}
	if legacyManifest {
		fields["columns"] = td.ColumnNames()
	}

	allowed := tableAttributes.byStage(stage, opts.LegacyQueue, legacyManifest, opts.Logger)
	doc := make(map[string]any, len(fields))
	for _, attr := range allowed {
		if value, ok := fields[attr]; ok {
			doc[attr] = value
		}
	}
	return stripEmpty(doc)
}

// Store writes the manifest to path, creating parent folders as needed.
func (td *TableDefinition) Store(path string, opts ManifestOptions) error {
	return writeManifest(path, td.Manifest(opts))
}

func writeManifest(path string, doc map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest folder: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode manifest %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

func boolValue(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// BuildTableFromManifest creates a TableDefinition from a manifest path. The
// path names the manifest sidecar, e.g. "orders.csv.manifest"; the data
// counterpart is derived by stripping the ".manifest" suffix. The manifest
// file itself may be missing as long as the counterpart exists, and the
// counterpart may be missing for orphaned manifests.
func BuildTableFromManifest(manifestPath string) (*TableDefinition, error) {
	doc := map[string]any{}
	if data, err := os.ReadFile(manifestPath); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &ManifestError{Msg: fmt.Sprintf("malformed manifest %s: %v", manifestPath, err)}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}

	filePath := strings.TrimSuffix(manifestPath, ".manifest")
	info, statErr := os.Stat(filePath)
	fileExists := statErr == nil

	isSliced := false
	switch {
	case fileExists && info.IsDir() && len(doc) > 0:
		isSliced = true
	case fileExists && info.IsDir():
		return nil, &ResourceError{Path: manifestPath, Msg: fmt.Sprintf("the manifest does not exist and its matching file %s is a folder", filePath)}
	case !fileExists && len(doc) == 0:
		return nil, &ResourceError{Path: filePath, Msg: "neither the manifest file nor the corresponding table file exists"}
	}

	fullPath := ""
	name := ""
	if fileExists {
		fullPath = filePath
		name = filepath.Base(filePath)
	} else {
		name = strings.TrimSuffix(filepath.Base(manifestPath), ".manifest")
	}

	metadata := NewTableMetadata()
	if err := metadata.LoadFromManifest(doc); err != nil {
		return nil, err
	}

	td := &TableDefinition{
		FullPath:       fullPath,
		IsSliced:       isSliced,
		Stage:          StageOut,
		Delimiter:      cast.ToString(defaultValue(doc["delimiter"], ",")),
		Enclosure:      cast.ToString(defaultValue(doc["enclosure"], `"`)),
		Metadata:       metadata,
		name:           name,
		id:             cast.ToString(doc["id"]),
		uri:            cast.ToString(doc["uri"]),
		created:        cast.ToString(doc["created"]),
		lastChangeDate: cast.ToString(doc["last_change_date"]),
		lastImportDate: cast.ToString(doc["last_import_date"]),
		rowsCount:      cast.ToInt64(doc["rows_count"]),
		dataSizeBytes:  cast.ToInt64(doc["data_size_bytes"]),
		indexedColumns: toStringSlice(doc["indexed_columns"]),
	}
	if td.id != "" {
		td.Stage = StageIn
	}
	if raw, ok := doc["is_alias"]; ok {
		isAlias := cast.ToBool(raw)
		td.isAlias = &isAlias
	}
	if raw, ok := doc["incremental"]; ok {
		incremental := cast.ToBool(raw)
		td.Incremental = &incremental
	}
	if raw, ok := doc["write_always"]; ok {
		td.WriteAlways = cast.ToBool(raw)
	}
	if raw, ok := doc["destination"]; ok {
		td.Destination = cast.ToString(raw)
	}
	if attrs, ok := doc["attributes"].(map[string]any); ok {
		td.attributes = attrs
	}
	if column := cast.ToString(doc["delete_where_column"]); column != "" {
		td.DeleteWhere = &DeleteWhere{
			Column:   column,
			Values:   toStringSlice(doc["delete_where_values"]),
			Operator: cast.ToString(doc["delete_where_operator"]),
		}
		if err := td.DeleteWhere.normalize(); err != nil {
			return nil, err
		}
	}

	primaryKey := toStringSlice(doc["primary_key"])
	if len(primaryKey) > 0 && len(toStringSlice(doc["columns"])) == 0 && !hasKey(doc, "schema") {
		td.forceLegacy = true
		td.legacyPrimaryKey = primaryKey
	}

	schema, err := schemaFromManifest(doc, primaryKey)
	if err != nil {
		return nil, err
	}
	td.schema = schema

	// column descriptions and data types recorded in metadata become part
	// of the schema view
	metadata.layerOntoSchema(schema)

	return td, nil
}

// schemaFromManifest reconstructs the column schema from either dialect.
// Native manifests carry a full column list under "schema"; legacy ones are
// assembled from "columns", "primary_key" and "column_metadata".
func schemaFromManifest(doc map[string]any, primaryKey []string) (*Schema, error) {
	schema := NewSchema()

	if rawSchema, ok := doc["schema"].([]any); ok && len(rawSchema) > 0 {
		for _, raw := range rawSchema {
			entry, ok := raw.(map[string]any)
			if !ok {
				return nil, &ManifestError{Msg: fmt.Sprintf("schema entries must be objects, got %v", raw)}
			}
			name := cast.ToString(entry["name"])
			if name == "" {
				return nil, &ManifestError{Msg: fmt.Sprintf("schema entry is missing a column name: %v", entry)}
			}
			if err := schema.Add(name, columnFromMap(entry)); err != nil {
				return nil, err
			}
		}
		return schema, nil
	}

	columnMetadata, _ := doc["column_metadata"].(map[string]any)
	inPrimaryKey := make(map[string]bool, len(primaryKey))
	for _, name := range primaryKey {
		inPrimaryKey[name] = true
	}
	for _, name := range toStringSlice(doc["columns"]) {
		col := legacyColumnDefinition(columnMetadata[name])
		col.PrimaryKey = inPrimaryKey[name]
		if err := schema.Add(name, col); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// legacyColumnDefinition derives a column from its legacy metadata list,
// falling back to a plain nullable STRING.
func legacyColumnDefinition(rawMetadata any) ColumnDefinition {
	col := NewColumn()
	items, ok := rawMetadata.([]any)
	if !ok {
		return col
	}
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch cast.ToString(item["key"]) {
		case MetaBaseDataType:
			col.DataTypes = DataTypes{BackendBase: {Type: cast.ToString(item["value"])}}
		case MetaDataTypeNullable:
			col.Nullable = cast.ToBool(item["value"])
		}
	}
	return col
}

func toStringSlice(raw any) []string {
	if raw == nil {
		return nil
	}
	values, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil
	}
	return values
}

func defaultValue(raw any, fallback string) any {
	if raw == nil || raw == "" {
		return fallback
	}
	return raw
}
