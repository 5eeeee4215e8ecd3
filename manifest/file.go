package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// systemTagPrefixes mark tags maintained by the platform itself. Tags with
// these prefixes are filtered out of UserTags.
var systemTagPrefixes = []string{
	"componentId:",
	"configurationId:",
	"configurationRowId:",
	"runId:",
	"branchId:",
}

// IsSystemTag reports whether the tag is maintained by the platform.
func IsSystemTag(tag string) bool {
	for _, prefix := range systemTagPrefixes {
		if strings.HasPrefix(tag, prefix) {
			return true
		}
	}
	return false
}

// S3Credentials are the temporary credentials of an S3 staging location.
type S3Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// S3Staging describes a file staged directly on S3 instead of the local
// data folder.
type S3Staging struct {
	IsSliced    bool
	Region      string
	Bucket      string
	Key         string
	Credentials S3Credentials
}

// ABSCredentials are the SAS credentials of an Azure Blob staging location.
type ABSCredentials struct {
	SASConnectionString string
	Expiration          string
}

// ABSStaging describes a file staged on Azure Blob Storage instead of the
// local data folder.
type ABSStaging struct {
	IsSliced    bool
	Container   string
	Name        string
	Credentials ABSCredentials
}

// FileDefinition describes a single file in the in/files or out/files folder
// together with its manifest sidecar. Output properties are plain fields;
// input-only properties are populated when the definition is built from an
// existing manifest.
type FileDefinition struct {
	FullPath string
	Stage    Stage

	Tags        []string
	IsPublic    bool
	IsPermanent bool
	IsEncrypted bool
	Notify      bool

	// input manifest attributes, read-only
	id         string
	s3         *S3Staging
	abs        *ABSStaging
	created    string
	sizeBytes  int64
	maxAgeDays int
}

// NewFileDefinition creates an output file definition for the given path.
// Flags and tags are set directly on the returned value.
func NewFileDefinition(fullPath string) *FileDefinition {
	return &FileDefinition{FullPath: fullPath, Stage: StageOut}
}

// BuildFileFromManifest creates a FileDefinition from a manifest path. The
// path names the manifest sidecar, e.g. "photo.jpg.manifest"; unlike tables,
// the file counterpart must always exist.
func BuildFileFromManifest(manifestPath string) (*FileDefinition, error) {
	doc := map[string]any{}
	if data, err := os.ReadFile(manifestPath); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &ManifestError{Msg: fmt.Sprintf("malformed manifest %s: %v", manifestPath, err)}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}

	filePath := strings.TrimSuffix(manifestPath, ".manifest")
	if _, err := os.Stat(filePath); err != nil {
		return nil, &ResourceError{Path: filePath, Msg: fmt.Sprintf("the corresponding file %s does not exist", filePath)}
	}

	fd := &FileDefinition{
		FullPath:    filePath,
		Stage:       StageOut,
		Tags:        toStringSlice(doc["tags"]),
		IsPublic:    cast.ToBool(doc["is_public"]),
		IsPermanent: cast.ToBool(doc["is_permanent"]),
		IsEncrypted: cast.ToBool(doc["is_encrypted"]),
		Notify:      cast.ToBool(doc["notify"]),
		id:          cast.ToString(doc["id"]),
		created:     cast.ToString(doc["created"]),
		sizeBytes:   cast.ToInt64(doc["size_bytes"]),
		maxAgeDays:  cast.ToInt(doc["max_age_days"]),
	}
	if fd.id != "" {
		fd.Stage = StageIn
	}
	if raw, ok := doc["s3"].(map[string]any); ok {
		creds := cast.ToStringMap(raw["credentials"])
		fd.s3 = &S3Staging{
			IsSliced: cast.ToBool(raw["isSliced"]),
			Region:   cast.ToString(raw["region"]),
			Bucket:   cast.ToString(raw["bucket"]),
			Key:      cast.ToString(raw["key"]),
			Credentials: S3Credentials{
				AccessKeyID:     cast.ToString(creds["access_key_id"]),
				SecretAccessKey: cast.ToString(creds["secret_access_key"]),
				SessionToken:    cast.ToString(creds["session_token"]),
			},
		}
	}
	if raw, ok := doc["abs"].(map[string]any); ok {
		creds := cast.ToStringMap(raw["credentials"])
		fd.abs = &ABSStaging{
			IsSliced:  cast.ToBool(raw["is_sliced"]),
			Container: cast.ToString(raw["container"]),
			Name:      cast.ToString(raw["name"]),
			Credentials: ABSCredentials{
				SASConnectionString: cast.ToString(creds["sas_connection_string"]),
				Expiration:          cast.ToString(creds["expiration"]),
			},
		}
	}
	return fd, nil
}

// Name returns the file name excluding the storage id prefix, when present.
// Input files land on disk as "<id>_<name>".
func (fd *FileDefinition) Name() string {
	name := filepath.Base(fd.FullPath)
	if fd.id != "" {
		if _, rest, ok := strings.Cut(name, "_"); ok {
			return rest
		}
	}
	return name
}

// FullName returns the file name directly from the path, including the
// storage id prefix when present.
func (fd *FileDefinition) FullName() string {
	return filepath.Base(fd.FullPath)
}

// UserTags returns the tags excluding platform-maintained system tags.
func (fd *FileDefinition) UserTags() []string {
	out := make([]string, 0, len(fd.Tags))
	for _, tag := range fd.Tags {
		if !IsSystemTag(tag) {
			out = append(out, tag)
		}
	}
	return out
}

// Input manifest accessors.

func (fd *FileDefinition) ID() string       { return fd.id }
func (fd *FileDefinition) SizeBytes() int64 { return fd.sizeBytes }
func (fd *FileDefinition) MaxAgeDays() int  { return fd.maxAgeDays }

// S3 returns the S3 staging block, or nil for locally staged files.
func (fd *FileDefinition) S3() *S3Staging { return fd.s3 }

// ABS returns the Azure Blob staging block, or nil for locally staged files.
func (fd *FileDefinition) ABS() *ABSStaging { return fd.abs }

// Created parses the storage creation timestamp. The zero time is returned
// when the manifest carried none.
func (fd *FileDefinition) Created() (time.Time, error) {
	if fd.created == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeFormat, fd.created)
}

// Manifest renders the manifest document for the file. File manifests have a
// single dialect, so only the stage and queue options apply.
func (fd *FileDefinition) Manifest(opts ManifestOptions) map[string]any {
	stage := opts.Stage
	if stage == "" {
		stage = fd.Stage
	}

	fields := map[string]any{
		"is_public":    fd.IsPublic,
		"is_permanent": fd.IsPermanent,
		"is_encrypted": fd.IsEncrypted,
		"tags":         fd.Tags,
		"notify":       fd.Notify,
	}
	if stage == StageIn {
		fields["id"] = fd.id
		fields["created"] = fd.created
		fields["name"] = fd.Name()
		fields["size_bytes"] = fd.sizeBytes
		fields["max_age_days"] = fd.maxAgeDays
	}

	allowed := fileAttributes.byStage(stage, opts.LegacyQueue, opts.LegacyManifest, opts.Logger)
	doc := make(map[string]any, len(fields))
	for _, attr := range allowed {
		if value, ok := fields[attr]; ok {
			doc[attr] = value
		}
	}
	return stripEmpty(doc)
}

// Store writes the manifest to path, creating parent folders as needed.
func (fd *FileDefinition) Store(path string, opts ManifestOptions) error {
	return writeManifest(path, fd.Manifest(opts))
}
