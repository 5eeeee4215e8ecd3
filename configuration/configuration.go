// Package configuration loads the config.json document the host injects into
// the component's data folder, together with the environment variables of
// the container contract.
package configuration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Configuration is the parsed config.json.
type Configuration struct {
	Parameters      map[string]any `mapstructure:"parameters"`
	ImageParameters map[string]any `mapstructure:"image_parameters"`
	Action          string         `mapstructure:"action"`
	Authorization   Authorization  `mapstructure:"authorization"`
	Storage         Storage        `mapstructure:"storage"`
}

// Storage holds the input and output mappings of the configuration.
type Storage struct {
	Input  StorageInput  `mapstructure:"input"`
	Output StorageOutput `mapstructure:"output"`
}

type StorageInput struct {
	Tables []TableInputMapping `mapstructure:"tables" validate:"dive"`
	Files  []FileInputMapping  `mapstructure:"files" validate:"dive"`
}

type StorageOutput struct {
	Tables []TableOutputMapping `mapstructure:"tables" validate:"dive"`
	Files  []FileOutputMapping  `mapstructure:"files" validate:"dive"`
}

// TableColumnTypes describes per-column type coercion of an input mapping,
// applicable only for workspaces.
type TableColumnTypes struct {
	Source                   string `mapstructure:"source"`
	Type                     string `mapstructure:"type"`
	Destination              string `mapstructure:"destination"`
	Length                   int    `mapstructure:"length"`
	Nullable                 bool   `mapstructure:"nullable"`
	ConvertEmptyValuesToNull bool   `mapstructure:"convert_empty_values_to_null"`
}

// TableInputMapping is one table of the storage input mapping.
type TableInputMapping struct {
	Source        string             `mapstructure:"source" validate:"required"`
	Destination   string             `mapstructure:"destination"`
	Limit         int                `mapstructure:"limit"`
	Columns       []string           `mapstructure:"columns"`
	WhereValues   []string           `mapstructure:"where_values"`
	WhereOperator string             `mapstructure:"where_operator"`
	Days          int                `mapstructure:"days"`
	ColumnTypes   []TableColumnTypes `mapstructure:"column_types"`

	// FullPath is resolved against the data folder after loading, it is
	// not part of the document.
	FullPath string `mapstructure:"full_path"`
}

// TableOutputMapping is one table of the storage output mapping.
type TableOutputMapping struct {
	Source              string   `mapstructure:"source" validate:"required"`
	Destination         string   `mapstructure:"destination" validate:"required"`
	Incremental         bool     `mapstructure:"incremental"`
	Columns             []string `mapstructure:"columns"`
	PrimaryKey          []string `mapstructure:"primary_key"`
	DeleteWhereColumn   string   `mapstructure:"delete_where_column"`
	DeleteWhereOperator string   `mapstructure:"delete_where_operator"`
	DeleteWhereValues   []string `mapstructure:"delete_where_values"`
	Delimiter           string   `mapstructure:"delimiter"`
	Enclosure           string   `mapstructure:"enclosure"`
}

// FileInputMapping is one entry of the storage file input mapping.
type FileInputMapping struct {
	Tags          []string `mapstructure:"tags"`
	Query         string   `mapstructure:"query"`
	FilterByRunID bool     `mapstructure:"filter_by_run_id"`
}

// FileOutputMapping is one entry of the storage file output mapping.
type FileOutputMapping struct {
	Source      string   `mapstructure:"source" validate:"required"`
	IsPublic    bool     `mapstructure:"is_public"`
	IsPermanent bool     `mapstructure:"is_permanent"`
	Tags        []string `mapstructure:"tags"`
}

// OAuthCredentials carry the oauth_api authorization block.
type OAuthCredentials struct {
	ID           string         `mapstructure:"id"`
	Created      string         `mapstructure:"created"`
	Data         map[string]any `mapstructure:"#data"`
	OAuthVersion string         `mapstructure:"oauthVersion"`
	AppKey       string         `mapstructure:"appKey"`
	AppSecret    string         `mapstructure:"#appSecret"`
}

type Authorization struct {
	OAuthAPI struct {
		ID          string           `mapstructure:"id"`
		Credentials OAuthCredentials `mapstructure:"credentials"`
	} `mapstructure:"oauth_api"`
}

// Load reads and validates <dataDir>/config.json.
func Load(dataDir string) (*Configuration, error) {
	path := filepath.Join(dataDir, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration %s: %w", path, err)
	}

	// viper lowercases map keys. The free-form blocks are user authored and
	// their key case must survive, so decode them again straight from the
	// document.
	var freeForm struct {
		Parameters      map[string]any `json:"parameters"`
		ImageParameters map[string]any `json:"image_parameters"`
		Authorization   struct {
			OAuthAPI struct {
				Credentials struct {
					Data map[string]any `json:"#data"`
				} `json:"credentials"`
			} `json:"oauth_api"`
		} `json:"authorization"`
	}
	if err := json.Unmarshal(data, &freeForm); err != nil {
		return nil, fmt.Errorf("parse configuration %s: %w", path, err)
	}
	cfg.Parameters = freeForm.Parameters
	cfg.ImageParameters = freeForm.ImageParameters
	cfg.Authorization.OAuthAPI.Credentials.Data = freeForm.Authorization.OAuthAPI.Credentials.Data

	if err := validate.Struct(cfg.Storage); err != nil {
		return nil, fmt.Errorf("invalid storage mapping in %s: %w", path, err)
	}
	return &cfg, nil
}

// OAuth returns the oauth_api credentials of the authorization block.
func (c *Configuration) OAuth() OAuthCredentials {
	return c.Authorization.OAuthAPI.Credentials
}
