package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileManifestMinimal(t *testing.T) {
	fd := NewFileDefinition("/data/out/files/report.pdf")

	assert.Equal(t, map[string]any{
		"is_public":    false,
		"is_permanent": false,
		"is_encrypted": false,
		"notify":       false,
	}, fd.Manifest(ManifestOptions{}))
}

func TestFileManifestFull(t *testing.T) {
	fd := NewFileDefinition("/data/out/files/report.pdf")
	fd.Tags = []string{"foo", "bar"}
	fd.IsPublic = true
	fd.IsPermanent = true
	fd.IsEncrypted = true
	fd.Notify = true

	assert.Equal(t, map[string]any{
		"tags":         []string{"foo", "bar"},
		"is_public":    true,
		"is_permanent": true,
		"is_encrypted": true,
		"notify":       true,
	}, fd.Manifest(ManifestOptions{Stage: StageOut}))
}

func TestFileManifestDoesNotAliasTags(t *testing.T) {
	fd := NewFileDefinition("/data/out/files/report.pdf")
	fd.Tags = []string{"raw"}

	doc := fd.Manifest(ManifestOptions{Stage: StageOut})
	doc["tags"].([]string)[0] = "MUTATED"

	assert.Equal(t, []string{"raw"}, fd.Tags)
	assert.Equal(t, []string{"raw"}, fd.Manifest(ManifestOptions{Stage: StageOut})["tags"])
}

func TestFileOutputManifestIgnoresInputAttributes(t *testing.T) {
	dir := t.TempDir()
	writeFileFixture(t, dir, "151971405_photo.jpg", map[string]any{
		"id":           "151971405",
		"created":      "2015-11-02T09:11:37+0100",
		"size_bytes":   2048,
		"max_age_days": 15,
		"is_encrypted": true,
		"tags":         []string{"dilbert"},
	})

	fd, err := BuildFileFromManifest(filepath.Join(dir, "151971405_photo.jpg.manifest"))
	require.NoError(t, err)
	require.Equal(t, StageIn, fd.Stage)

	// rendering for the output stage drops the read-only attributes
	assert.Equal(t, map[string]any{
		"is_public":    false,
		"is_permanent": false,
		"is_encrypted": true,
		"notify":       false,
		"tags":         []string{"dilbert"},
	}, fd.Manifest(ManifestOptions{Stage: StageOut}))
}

func TestBuildFileFromManifest(t *testing.T) {
	dir := t.TempDir()
	writeFileFixture(t, dir, "151971405_photo.jpg", map[string]any{
		"id":           "151971405",
		"name":         "photo.jpg",
		"created":      "2015-11-02T09:11:37+0100",
		"size_bytes":   2048,
		"max_age_days": 15,
		"tags":         []string{"dilbert"},
	})

	fd, err := BuildFileFromManifest(filepath.Join(dir, "151971405_photo.jpg.manifest"))
	require.NoError(t, err)

	assert.Equal(t, "photo.jpg", fd.Name())
	assert.Equal(t, "151971405_photo.jpg", fd.FullName())
	assert.Equal(t, "151971405", fd.ID())
	assert.Equal(t, int64(2048), fd.SizeBytes())
	assert.Equal(t, 15, fd.MaxAgeDays())
	assert.Equal(t, []string{"dilbert"}, fd.Tags)

	created, err := fd.Created()
	require.NoError(t, err)
	assert.Equal(t, 2015, created.Year())
	_, offset := created.Zone()
	assert.Equal(t, int(time.Hour/time.Second), offset)
}

func TestBuildFileFromManifestMissingFileFails(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "orphan.jpg.manifest")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`{"tags": []}`), 0o644))

	_, err := BuildFileFromManifest(manifestPath)
	var rerr *ResourceError
	require.ErrorAs(t, err, &rerr)
}

func TestFileStagingBlocks(t *testing.T) {
	dir := t.TempDir()
	writeFileFixture(t, dir, "data.csv", map[string]any{
		"id": "1",
		"s3": map[string]any{
			"isSliced": true,
			"region":   "us-east-1",
			"bucket":   "kbc-bucket",
			"key":      "exp/data.csv",
			"credentials": map[string]any{
				"access_key_id":     "AK",
				"secret_access_key": "SK",
				"session_token":     "ST",
			},
		},
	})

	fd, err := BuildFileFromManifest(filepath.Join(dir, "data.csv.manifest"))
	require.NoError(t, err)

	s3 := fd.S3()
	require.NotNil(t, s3)
	assert.True(t, s3.IsSliced)
	assert.Equal(t, "kbc-bucket", s3.Bucket)
	assert.Equal(t, "AK", s3.Credentials.AccessKeyID)
	assert.Nil(t, fd.ABS())
}

func TestUserTags(t *testing.T) {
	fd := NewFileDefinition("x")
	fd.Tags = []string{
		"foo",
		"componentId:1234",
		"configurationId:12345",
		"runId:22123",
		"bar",
	}

	assert.Equal(t, []string{"foo", "bar"}, fd.UserTags())
	assert.True(t, IsSystemTag("branchId:12"))
	assert.False(t, IsSystemTag("branch:12"))
}

func writeFileFixture(t *testing.T, dir, name string, doc map[string]any) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("payload"), 0o644))
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".manifest"), data, 0o644))
}
