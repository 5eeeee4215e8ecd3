package manifest

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableManifestMinimalLegacy(t *testing.T) {
	td, err := NewTableDefinition("testDef",
		WithFullPath("somepath"),
		WithColumns("foo", "bar"),
		WithPrimaryKey("foo", "bar"),
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"columns":      []string{"foo", "bar"},
		"delimiter":    ",",
		"enclosure":    `"`,
		"primary_key":  []string{"foo", "bar"},
		"write_always": false,
	}, td.Manifest(ManifestOptions{LegacyManifest: true}))
}

func TestTableManifestPrimaryKeyColumnMissing(t *testing.T) {
	_, err := NewTableDefinition("testDef",
		WithColumns("bar"),
		WithPrimaryKey("foo"),
	)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), `"foo"`)
}

func TestTableManifestFullLegacy(t *testing.T) {
	td, err := NewTableDefinition("testDef",
		WithFullPath("somepath"),
		WithColumns("foo", "bar"),
		WithDestination("some-destination"),
		WithPrimaryKey("foo"),
		WithIncremental(true),
		WithDeleteWhere(&DeleteWhere{Column: "lilly", Values: []string{"a", "b"}, Operator: OperatorEquals}),
	)
	require.NoError(t, err)

	td.Metadata.AddColumnMetadata("bar", "foo", "gogo")
	td.Metadata.AddTableMetadata("bar", "kochba")

	got := td.Manifest(ManifestOptions{Stage: StageOut, LegacyManifest: true})
	spew.Dump(got)

	assert.Equal(t, map[string]any{
		"destination": "some-destination",
		"columns":     []string{"foo", "bar"},
		"primary_key": []string{"foo"},
		"incremental": true,
		"delimiter":   ",",
		"enclosure":   `"`,
		"metadata":    []any{map[string]any{"key": "bar", "value": "kochba"}},
		"column_metadata": map[string]any{
			"bar": []any{map[string]any{"key": "foo", "value": "gogo"}},
		},
		"delete_where_column":   "lilly",
		"delete_where_values":   []string{"a", "b"},
		"delete_where_operator": "eq",
		"write_always":          false,
	}, got)
}

func TestTableManifestNative(t *testing.T) {
	td, err := NewTableDefinition("testDef",
		WithFullPath("somepath"),
		WithColumns("foo", "bar"),
		WithDestination("some-destination"),
		WithHasHeader(true),
		WithPrimaryKey("foo"),
		WithIncremental(true),
		WithDeleteWhere(&DeleteWhere{Column: "lilly", Values: []string{"a", "b"}}),
		WithDescription("some description"),
	)
	require.NoError(t, err)
	td.Metadata.AddTableMetadata("bar", "kochba")

	assert.Equal(t, map[string]any{
		"destination":           "some-destination",
		"incremental":           true,
		"write_always":          false,
		"delimiter":             ",",
		"enclosure":             `"`,
		"manifest_type":         "out",
		"has_header":            true,
		"delete_where_column":   "lilly",
		"delete_where_values":   []string{"a", "b"},
		"delete_where_operator": "eq",
		"table_metadata": map[string]any{
			MetaDescription: "some description",
			"bar":           "kochba",
		},
		"schema": []any{
			map[string]any{"name": "foo", "data_type": map[string]any{"base": map[string]any{"type": "STRING"}}, "nullable": true, "primary_key": true},
			map[string]any{"name": "bar", "data_type": map[string]any{"base": map[string]any{"type": "STRING"}}, "nullable": true},
		},
	}, td.Manifest(ManifestOptions{}))
}

func TestTableManifestNativeTypedColumns(t *testing.T) {
	td, err := NewTableDefinition("testDef",
		WithColumns("foo", "bar", "to_delete"),
		WithHasHeader(true),
	)
	require.NoError(t, err)

	require.NoError(t, td.Schema().Update("foo", TypedColumn(Base(TypeInteger))))

	bar, ok := td.Schema().Get("bar")
	require.True(t, ok)
	require.NoError(t, bar.AddDataType("redshift", DataType{Type: "STRING", Length: "255"}))
	require.NoError(t, td.Schema().Update("bar", bar))

	require.NoError(t, td.AddTypedColumn("note", ColumnDefinition{DataTypes: Base(TypeString)}))
	require.NoError(t, td.Schema().Delete("to_delete"))

	doc := td.Manifest(ManifestOptions{})
	assert.Equal(t, []any{
		map[string]any{"name": "foo", "data_type": map[string]any{"base": map[string]any{"type": "INTEGER"}}, "nullable": true},
		map[string]any{"name": "bar", "data_type": map[string]any{
			"base":     map[string]any{"type": "STRING"},
			"redshift": map[string]any{"type": "STRING", "length": "255"},
		}, "nullable": true},
		map[string]any{"name": "note", "data_type": map[string]any{"base": map[string]any{"type": "STRING"}}},
	}, doc["schema"])
}

func TestTableManifestDoesNotAliasDefinitionState(t *testing.T) {
	td, err := NewTableDefinition("testDef",
		WithFullPath("somepath"),
		WithColumns("foo"),
		WithDeleteWhere(&DeleteWhere{Column: "region", Values: []string{"EU", "US"}}),
	)
	require.NoError(t, err)

	opts := ManifestOptions{Stage: StageOut, LegacyManifest: true}
	doc := td.Manifest(opts)
	doc["delete_where_values"].([]string)[0] = "MUTATED"
	doc["columns"].([]string)[0] = "MUTATED"

	assert.Equal(t, []string{"EU", "US"}, td.DeleteWhere.Values)
	again := td.Manifest(opts)
	assert.Equal(t, []string{"EU", "US"}, again["delete_where_values"])
	assert.Equal(t, []string{"foo"}, again["columns"])
}

func TestTableManifestInputStage(t *testing.T) {
	td, err := NewTableDefinition("testDef",
		WithStage(StageIn),
		WithColumns("foo"),
		WithDestination("ignored-on-input"),
	)
	require.NoError(t, err)

	doc := td.Manifest(ManifestOptions{LegacyManifest: true})
	assert.NotContains(t, doc, "destination")
	assert.NotContains(t, doc, "write_always")
	assert.Equal(t, "testDef", doc["name"])
	assert.Equal(t, []string{"foo"}, doc["columns"])
}

func TestLegacyQueueExcludesWriteAlways(t *testing.T) {
	td, err := NewTableDefinition("testDef", WithWriteAlways(true))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	doc := td.Manifest(ManifestOptions{LegacyQueue: true, LegacyManifest: true, Logger: logger})
	assert.NotContains(t, doc, "write_always")
	assert.Contains(t, buf.String(), "legacy queue")
	assert.Contains(t, buf.String(), "write_always")

	doc = td.Manifest(ManifestOptions{LegacyManifest: true})
	assert.Equal(t, true, doc["write_always"])
}

func TestHasHeaderInference(t *testing.T) {
	cases := []struct {
		name string
		opts []TableOption
		want bool
	}{
		{"sliced", []TableOption{Sliced(), WithColumns("a")}, false},
		{"output with columns", []TableOption{WithColumns("a")}, false},
		{"output without columns", nil, true},
		{"input with columns", []TableOption{WithStage(StageIn), WithColumns("a")}, true},
		{"explicit override", []TableOption{WithColumns("a"), WithHasHeader(true)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			td, err := NewTableDefinition("t", tc.opts...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, td.HasHeader())
		})
	}
}

func TestDeleteWhereValidation(t *testing.T) {
	cases := []struct {
		name string
		spec map[string]any
	}{
		{"missing keys", map[string]any{"a": "b"}},
		{"values not a list", map[string]any{"column": "a", "values": "b"}},
		{"bad operator", map[string]any{"column": "a", "values": []any{"b"}, "operator": "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDeleteWhere(tc.spec)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}

	where, err := ParseDeleteWhere(map[string]any{"column": "a", "values": []any{"b"}})
	require.NoError(t, err)
	assert.Equal(t, OperatorEquals, where.Operator)
}

func writeTableFixture(t *testing.T, dir, name string, doc map[string]any, withFile bool) string {
	t.Helper()
	manifestPath := filepath.Join(dir, name+".manifest")
	if doc != nil {
		data, err := json.Marshal(doc)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(manifestPath, data, 0o644))
	}
	if withFile {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("a,b\n1,2\n"), 0o644))
	}
	return manifestPath
}

func TestBuildTableFromManifestLegacy(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeTableFixture(t, dir, "sample.csv", map[string]any{
		"destination": "some-destination",
		"columns":     []string{"foo", "bar"},
		"primary_key": []string{"foo"},
		"incremental": true,
		"metadata":    []any{map[string]any{"key": "bar", "value": "kochba"}},
		"column_metadata": map[string]any{
			"bar": []any{map[string]any{"key": "foo", "value": "gogo"}},
		},
		"delete_where_column":   "lilly",
		"delete_where_values":   []string{"a", "b"},
		"delete_where_operator": "eq",
	}, true)

	td, err := BuildTableFromManifest(manifestPath)
	require.NoError(t, err)

	assert.Equal(t, "sample.csv", td.Name())
	assert.Equal(t, filepath.Join(dir, "sample.csv"), td.FullPath)
	assert.False(t, td.IsSliced)
	assert.Equal(t, StageOut, td.Stage)
	assert.Equal(t, "some-destination", td.Destination)
	assert.Equal(t, []string{"foo", "bar"}, td.ColumnNames())
	assert.Equal(t, []string{"foo"}, td.PrimaryKey())
	require.NotNil(t, td.Incremental)
	assert.True(t, *td.Incremental)
	require.NotNil(t, td.DeleteWhere)
	assert.Equal(t, "lilly", td.DeleteWhere.Column)
	assert.Equal(t, []string{"a", "b"}, td.DeleteWhere.Values)
	assert.Equal(t, map[string]any{"bar": "kochba"}, td.Metadata.TableMetadataMap())
	assert.Equal(t, map[string]map[string]any{"bar": {"foo": "gogo"}}, td.Metadata.ColumnMetadata())
}

func TestBuildTableFromManifestLegacyColumnTypes(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeTableFixture(t, dir, "typed.csv", map[string]any{
		"columns":     []string{"id", "note"},
		"primary_key": []string{"id"},
		"column_metadata": map[string]any{
			"id": []any{
				map[string]any{"key": MetaBaseDataType, "value": "INTEGER"},
				map[string]any{"key": MetaDataTypeNullable, "value": false},
			},
		},
	}, true)

	td, err := BuildTableFromManifest(manifestPath)
	require.NoError(t, err)

	id, ok := td.Schema().Get("id")
	require.True(t, ok)
	assert.Equal(t, "INTEGER", id.DataTypes[BackendBase].Type)
	assert.False(t, id.Nullable)
	assert.True(t, id.PrimaryKey)

	note, ok := td.Schema().Get("note")
	require.True(t, ok)
	assert.Equal(t, "STRING", note.DataTypes[BackendBase].Type)
	assert.True(t, note.Nullable)
	assert.False(t, note.PrimaryKey)
}

func TestBuildTableFromManifestNative(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeTableFixture(t, dir, "native.csv", map[string]any{
		"destination": "out.c-main.native",
		"schema": []any{
			map[string]any{"name": "foo", "data_type": map[string]any{"base": map[string]any{"type": "INTEGER"}}, "nullable": true, "primary_key": true},
			map[string]any{"name": "bar", "data_type": map[string]any{"base": map[string]any{"type": "STRING"}}, "nullable": true},
		},
		"table_metadata": map[string]any{"bar": "kochba"},
	}, true)

	td, err := BuildTableFromManifest(manifestPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"foo", "bar"}, td.ColumnNames())
	assert.Equal(t, []string{"foo"}, td.PrimaryKey())
	foo, _ := td.Schema().Get("foo")
	assert.Equal(t, "INTEGER", foo.DataTypes[BackendBase].Type)
	assert.Equal(t, map[string]any{"bar": "kochba"}, td.Metadata.TableMetadataMap())

	// rendering the loaded definition reproduces the source document
	doc := td.Manifest(ManifestOptions{})
	assert.Equal(t, map[string]any{"bar": "kochba"}, doc["table_metadata"])
	assert.Equal(t, "out.c-main.native", doc["destination"])
}

func TestBuildTableFromManifestMixedDialects(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeTableFixture(t, dir, "mixed.csv", map[string]any{
		"schema":   []any{map[string]any{"name": "foo"}},
		"metadata": []any{map[string]any{"key": "a", "value": "b"}},
	}, true)

	_, err := BuildTableFromManifest(manifestPath)
	var merr *ManifestError
	require.ErrorAs(t, err, &merr)
}

func TestBuildTableFromManifestForcedLegacy(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeTableFixture(t, dir, "legacy.csv", map[string]any{
		"primary_key": []string{"a"},
	}, true)

	td, err := BuildTableFromManifest(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, td.PrimaryKey())

	// such tables always render in the legacy dialect
	doc := td.Manifest(ManifestOptions{})
	assert.Equal(t, []string{"a"}, doc["primary_key"])
	assert.NotContains(t, doc, "schema")
	assert.NotContains(t, doc, "manifest_type")
}

func TestBuildTableFromManifestInputStage(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeTableFixture(t, dir, "sample.csv", map[string]any{
		"id":               "in.c-main.test",
		"uri":              "https://connection.keboola.com//v2/storage/tables/in.c-main.test",
		"created":          "2015-11-02T09:11:37+0100",
		"last_change_date": "2015-11-02T09:11:37+0100",
		"last_import_date": "2015-11-02T09:11:37+0100",
		"rows_count":       400,
		"data_size_bytes":  81920,
		"is_alias":         false,
		"columns":          []string{"x", "y"},
		"primary_key":      []string{"x"},
		"indexed_columns":  []string{"x"},
	}, true)

	td, err := BuildTableFromManifest(manifestPath)
	require.NoError(t, err)

	assert.Equal(t, StageIn, td.Stage)
	assert.Equal(t, "in.c-main.test", td.ID())
	assert.Equal(t, "2015-11-02T09:11:37+0100", td.Created())
	assert.Equal(t, int64(400), td.RowsCount())
	assert.Equal(t, int64(81920), td.DataSizeBytes())
	assert.False(t, td.IsAlias())
	assert.Equal(t, []string{"x"}, td.PrimaryKey())
}

func TestBuildTableFromManifestSliced(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sliced.csv"), 0o755))
	manifestPath := writeTableFixture(t, dir, "sliced.csv", map[string]any{
		"columns": []string{"a"},
	}, false)

	td, err := BuildTableFromManifest(manifestPath)
	require.NoError(t, err)
	assert.True(t, td.IsSliced)
	assert.False(t, td.HasHeader())
}

func TestBuildTableFromManifestOrphanedManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeTableFixture(t, dir, "orphan.csv", map[string]any{
		"columns": []string{"a"},
	}, false)

	td, err := BuildTableFromManifest(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, "orphan.csv", td.Name())
	assert.Empty(t, td.FullPath)
}

func TestBuildTableFromManifestMissingEverything(t *testing.T) {
	dir := t.TempDir()

	_, err := BuildTableFromManifest(filepath.Join(dir, "nope.csv.manifest"))
	var rerr *ResourceError
	require.ErrorAs(t, err, &rerr)
}

func TestBuildTableFromManifestFolderWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sliced.csv"), 0o755))

	_, err := BuildTableFromManifest(filepath.Join(dir, "sliced.csv.manifest"))
	var rerr *ResourceError
	require.ErrorAs(t, err, &rerr)
}

func TestTableManifestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	td, err := NewTableDefinition("orders.csv",
		WithColumns("id", "total"),
		WithPrimaryKey("id"),
		WithIncremental(true),
		WithDestination("out.c-main.orders"),
	)
	require.NoError(t, err)

	manifestPath := filepath.Join(dir, "orders.csv.manifest")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"), []byte("1,2\n"), 0o644))
	require.NoError(t, td.Store(manifestPath, ManifestOptions{}))

	loaded, err := BuildTableFromManifest(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, td.ColumnNames(), loaded.ColumnNames())
	assert.Equal(t, td.PrimaryKey(), loaded.PrimaryKey())
	assert.Equal(t, td.Destination, loaded.Destination)
	require.NotNil(t, loaded.Incremental)
	assert.True(t, *loaded.Incremental)

	// a second render of the loaded definition is stable
	assert.Equal(t, loaded.Manifest(ManifestOptions{}), td.Manifest(ManifestOptions{}))
}
