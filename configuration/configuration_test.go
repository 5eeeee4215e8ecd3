package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "parameters": {
    "api_token": "secret",
    "debug": true
  },
  "image_parameters": {
    "vendor": "acme"
  },
  "action": "run",
  "storage": {
    "input": {
      "tables": [
        {
          "source": "in.c-main.orders",
          "destination": "orders.csv",
          "columns": ["id", "total"],
          "where_values": ["active"],
          "where_operator": "eq",
          "days": 7,
          "column_types": [
            {"source": "id", "type": "BIGINT", "nullable": false}
          ]
        }
      ],
      "files": [
        {"tags": ["raw"], "filter_by_run_id": true}
      ]
    },
    "output": {
      "tables": [
        {
          "source": "report.csv",
          "destination": "out.c-main.report",
          "incremental": true,
          "primary_key": ["id"]
        }
      ],
      "files": [
        {"source": "chart.png", "is_permanent": true, "tags": ["viz"]}
      ]
    }
  },
  "authorization": {
    "oauth_api": {
      "id": "123",
      "credentials": {
        "id": "main",
        "appKey": "key",
        "#appSecret": "shh",
        "#data": {"access_token": "tok"}
      }
    }
  }
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, sampleConfig)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "run", cfg.Action)
	assert.Equal(t, "secret", cfg.Parameters["api_token"])
	assert.Equal(t, true, cfg.Parameters["debug"])
	assert.Equal(t, "acme", cfg.ImageParameters["vendor"])

	require.Len(t, cfg.Storage.Input.Tables, 1)
	in := cfg.Storage.Input.Tables[0]
	assert.Equal(t, "in.c-main.orders", in.Source)
	assert.Equal(t, "orders.csv", in.Destination)
	assert.Equal(t, []string{"id", "total"}, in.Columns)
	assert.Equal(t, 7, in.Days)
	require.Len(t, in.ColumnTypes, 1)
	assert.Equal(t, "BIGINT", in.ColumnTypes[0].Type)

	require.Len(t, cfg.Storage.Output.Tables, 1)
	out := cfg.Storage.Output.Tables[0]
	assert.Equal(t, "report.csv", out.Source)
	assert.True(t, out.Incremental)
	assert.Equal(t, []string{"id"}, out.PrimaryKey)

	require.Len(t, cfg.Storage.Input.Files, 1)
	assert.True(t, cfg.Storage.Input.Files[0].FilterByRunID)

	require.Len(t, cfg.Storage.Output.Files, 1)
	assert.Equal(t, "chart.png", cfg.Storage.Output.Files[0].Source)

	oauth := cfg.OAuth()
	assert.Equal(t, "key", oauth.AppKey)
	assert.Equal(t, "shh", oauth.AppSecret)
	assert.Equal(t, "tok", oauth.Data["access_token"])
}

func TestLoadKeepsParameterKeyCase(t *testing.T) {
	dir := writeConfig(t, `{
  "parameters": {
    "apiToken": "secret",
    "maxRetries": 3
  },
  "image_parameters": {
    "baseUrl": "https://example.com"
  },
  "authorization": {
    "oauth_api": {
      "credentials": {
        "#data": {"accessToken": "tok"}
      }
    }
  }
}`)
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Parameters["apiToken"])
	assert.NotContains(t, cfg.Parameters, "apitoken")
	assert.Equal(t, "https://example.com", cfg.ImageParameters["baseUrl"])
	assert.Equal(t, "tok", cfg.OAuth().Data["accessToken"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.json")
}

func TestLoadRejectsOutputTableWithoutSource(t *testing.T) {
	dir := writeConfig(t, `{
  "storage": {
    "output": {
      "tables": [{"destination": "out.c-main.report"}]
    }
  }
}`)
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage mapping")
}

func TestEnvironmentFromOS(t *testing.T) {
	t.Setenv("KBC_DATADIR", "/data")
	t.Setenv("KBC_PROJECTID", "42")
	t.Setenv("KBC_DATA_TYPE_SUPPORT", "authoritative")

	env := EnvironmentFromOS()
	assert.Equal(t, "/data", env.DataDir)
	assert.Equal(t, "42", env.ProjectID)
	assert.True(t, env.NativeTypesEnabled())

	t.Setenv("KBC_DATA_TYPE_SUPPORT", "")
	assert.False(t, EnvironmentFromOS().NativeTypesEnabled())
}
