// Package component implements the common interface of a data-pipeline
// component: the data folder layout, configuration and state handling,
// discovery of input tables and files, and manifest writing for outputs.
package component

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"component-sdk/configuration"
	"component-sdk/internal/logging"
	"component-sdk/manifest"
	"component-sdk/tableschema"
)

// CommonInterface handles the standard tasks of the container contract:
// config load, state files, input discovery and output manifests.
type CommonInterface struct {
	dataDir     string
	schemaDir   string
	config      *configuration.Configuration
	env         configuration.EnvironmentVariables
	logger      *slog.Logger
	closeLogger func()

	// legacyQueue marks projects still running on the legacy job queue.
	legacyQueue bool

	actions map[string]ActionFunc
	stdout  io.Writer
}

// Option configures the CommonInterface during construction.
type Option func(*CommonInterface)

// WithDataDir overrides the data folder path. The override takes precedence
// over the KBC_DATADIR environment variable.
func WithDataDir(path string) Option {
	return func(ci *CommonInterface) { ci.dataDir = path }
}

// WithSchemaDir overrides the schema folder path.
func WithSchemaDir(path string) Option {
	return func(ci *CommonInterface) { ci.schemaDir = path }
}

// WithLogger replaces the logger New would otherwise set up from the
// container environment.
func WithLogger(logger *slog.Logger) Option {
	return func(ci *CommonInterface) { ci.logger = logger }
}

// WithEnvironment replaces the environment read from the process.
func WithEnvironment(env configuration.EnvironmentVariables) Option {
	return func(ci *CommonInterface) { ci.env = env }
}

// OnLegacyQueue marks the project as running on the legacy job queue.
func OnLegacyQueue() Option {
	return func(ci *CommonInterface) { ci.legacyQueue = true }
}

// New initializes the common interface: resolves the data folder (explicit
// override, then KBC_DATADIR, then ../data relative to the working
// directory) and loads config.json from it.
func New(opts ...Option) (*CommonInterface, error) {
	ci := &CommonInterface{
		env:     configuration.EnvironmentFromOS(),
		actions: map[string]ActionFunc{},
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(ci)
	}
	if ci.logger == nil {
		ci.logger, ci.closeLogger = logging.Setup(logging.Options{
			SinkAddr: ci.env.LoggerAddr,
			SinkPort: ci.env.LoggerPort,
		})
	}

	if ci.dataDir == "" {
		if ci.env.DataDir != "" {
			ci.dataDir = ci.env.DataDir
		} else {
			wd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("resolve working directory: %w", err)
			}
			ci.dataDir = filepath.Join(filepath.Dir(wd), "data")
		}
	}

	cfg, err := configuration.Load(ci.dataDir)
	if err != nil {
		return nil, err
	}
	ci.config = cfg

	if ci.schemaDir == "" {
		ci.schemaDir = defaultSchemaDir()
	}
	return ci, nil
}

// defaultSchemaDir finds the conventional schema folder, preferring the
// container layout over the local one.
func defaultSchemaDir() string {
	for _, dir := range []string{"src/schemas", "schemas"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}

// Configuration returns the parsed config.json.
func (ci *CommonInterface) Configuration() *configuration.Configuration {
	return ci.config
}

// Environment returns the container environment variables.
func (ci *CommonInterface) Environment() configuration.EnvironmentVariables {
	return ci.env
}

// DataDir returns the resolved data folder path.
func (ci *CommonInterface) DataDir() string { return ci.dataDir }

// Close flushes the log sink when New set one up. Loggers passed in through
// WithLogger are the caller's to close.
func (ci *CommonInterface) Close() {
	if ci.closeLogger != nil {
		ci.closeLogger()
	}
}

func (ci *CommonInterface) InTablesPath() string {
	return filepath.Join(ci.dataDir, "in", "tables")
}

func (ci *CommonInterface) OutTablesPath() string {
	return filepath.Join(ci.dataDir, "out", "tables")
}

func (ci *CommonInterface) InFilesPath() string {
	return filepath.Join(ci.dataDir, "in", "files")
}

func (ci *CommonInterface) OutFilesPath() string {
	return filepath.Join(ci.dataDir, "out", "files")
}

// ValidateParameters checks that every required key is present in the
// configuration parameters. The error names all missing keys.
func (ci *CommonInterface) ValidateParameters(required ...string) error {
	var missing []string
	for _, key := range required {
		if _, ok := ci.config.Parameters[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &manifest.ValidationError{
			Msg: fmt.Sprintf("missing required configuration parameters: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}

// GetInputTables builds table definitions for everything in in/tables:
// manifests with their data counterparts, orphaned manifests and plain data
// files without one.
func (ci *CommonInterface) GetInputTables() ([]*manifest.TableDefinition, error) {
	paths, err := collectManifestPaths(ci.InTablesPath())
	if err != nil {
		return nil, err
	}
	tables := make([]*manifest.TableDefinition, 0, len(paths))
	for _, path := range paths {
		td, err := manifest.BuildTableFromManifest(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, td)
	}
	return tables, nil
}

// GetInputFiles builds file definitions for everything in in/files.
func (ci *CommonInterface) GetInputFiles() ([]*manifest.FileDefinition, error) {
	paths, err := collectManifestPaths(ci.InFilesPath())
	if err != nil {
		return nil, err
	}
	files := make([]*manifest.FileDefinition, 0, len(paths))
	for _, path := range paths {
		fd, err := manifest.BuildFileFromManifest(path)
		if err != nil {
			return nil, err
		}
		files = append(files, fd)
	}
	return files, nil
}

// collectManifestPaths lists the manifest path of every artifact in a
// folder, whether the manifest, the data counterpart or both exist.
func collectManifestPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}
	seen := map[string]struct{}{}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".manifest")
		seen[filepath.Join(dir, name+".manifest")] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// CreateOutTableDefinition creates a table definition rooted in out/tables.
func (ci *CommonInterface) CreateOutTableDefinition(name string, opts ...manifest.TableOption) (*manifest.TableDefinition, error) {
	opts = append([]manifest.TableOption{
		manifest.WithFullPath(filepath.Join(ci.OutTablesPath(), name)),
		manifest.WithStage(manifest.StageOut),
	}, opts...)
	return manifest.NewTableDefinition(name, opts...)
}

// CreateInTableDefinition creates a table definition rooted in in/tables.
func (ci *CommonInterface) CreateInTableDefinition(name string, opts ...manifest.TableOption) (*manifest.TableDefinition, error) {
	opts = append([]manifest.TableOption{
		manifest.WithFullPath(filepath.Join(ci.InTablesPath(), name)),
		manifest.WithStage(manifest.StageIn),
	}, opts...)
	return manifest.NewTableDefinition(name, opts...)
}

// CreateOutFileDefinition creates a file definition rooted in out/files.
func (ci *CommonInterface) CreateOutFileDefinition(name string, tags ...string) *manifest.FileDefinition {
	fd := manifest.NewFileDefinition(filepath.Join(ci.OutFilesPath(), name))
	fd.Tags = tags
	return fd
}

// manifestOptions returns the rendering options of this project: dialect by
// the native-types flag, plus the legacy queue marker.
func (ci *CommonInterface) manifestOptions() manifest.ManifestOptions {
	return manifest.ManifestOptions{
		LegacyQueue:    ci.legacyQueue,
		LegacyManifest: !ci.env.NativeTypesEnabled(),
		Logger:         ci.logger,
	}
}

// WriteTableManifest writes the manifest sidecar next to the table's full
// path.
func (ci *CommonInterface) WriteTableManifest(td *manifest.TableDefinition) error {
	if td.FullPath == "" {
		return &manifest.ValidationError{Msg: fmt.Sprintf("table %q has no full path, cannot place its manifest", td.Name())}
	}
	return td.Store(td.FullPath+".manifest", ci.manifestOptions())
}

// WriteTableManifests writes manifests for several tables.
func (ci *CommonInterface) WriteTableManifests(tds []*manifest.TableDefinition) error {
	for _, td := range tds {
		if err := ci.WriteTableManifest(td); err != nil {
			return err
		}
	}
	return nil
}

// WriteFileManifest writes the manifest sidecar next to the file's full
// path.
func (ci *CommonInterface) WriteFileManifest(fd *manifest.FileDefinition) error {
	if fd.FullPath == "" {
		return &manifest.ValidationError{Msg: "file has no full path, cannot place its manifest"}
	}
	return fd.Store(fd.FullPath+".manifest", ci.manifestOptions())
}

// GetTableSchema loads a table schema by name from the schema folder.
func (ci *CommonInterface) GetTableSchema(name string) (*tableschema.TableSchema, error) {
	if ci.schemaDir == "" {
		return nil, &manifest.ResourceError{
			Msg: "no schema folder found, create src/schemas or pass an explicit schema folder path",
		}
	}
	return tableschema.Load(ci.schemaDir, name)
}

// CreateOutTableDefinitionFromSchema creates an output table definition from
// a table schema. Projects without native types get the schema encoded as
// legacy metadata; others get the typed column schema and the description.
func (ci *CommonInterface) CreateOutTableDefinitionFromSchema(schema *tableschema.TableSchema, opts ...manifest.TableOption) (*manifest.TableDefinition, error) {
	if !ci.env.NativeTypesEnabled() {
		tm, err := schema.LegacyMetadata()
		if err != nil {
			return nil, err
		}
		base := []manifest.TableOption{
			manifest.WithColumns(schema.FieldNames()...),
			manifest.WithPrimaryKey(schema.PrimaryKeys...),
			manifest.WithTableMetadata(tm),
		}
		return ci.CreateOutTableDefinition(schema.CSVName(), append(base, opts...)...)
	}

	ms, err := schema.ManifestSchema()
	if err != nil {
		return nil, err
	}
	base := []manifest.TableOption{manifest.WithSchema(ms)}
	if schema.Description != "" {
		base = append(base, manifest.WithDescription(schema.Description))
	}
	return ci.CreateOutTableDefinition(schema.CSVName(), append(base, opts...)...)
}
