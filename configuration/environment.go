package configuration

import "os"

// EnvironmentVariables are the variables the host injects into the
// container environment.
type EnvironmentVariables struct {
	DataDir         string
	RunID           string
	ProjectID       string
	StackID         string
	ConfigID        string
	ComponentID     string
	BranchID        string
	ProjectName     string
	TokenID         string
	TokenDesc       string
	Token           string
	URL             string
	LoggerAddr      string
	LoggerPort      string
	StagingProvider string
	DataTypeSupport string
}

// EnvironmentFromOS reads the KBC_* variables from the process environment.
// Missing variables are left empty.
func EnvironmentFromOS() EnvironmentVariables {
	return EnvironmentVariables{
		DataDir:         os.Getenv("KBC_DATADIR"),
		RunID:           os.Getenv("KBC_RUNID"),
		ProjectID:       os.Getenv("KBC_PROJECTID"),
		StackID:         os.Getenv("KBC_STACKID"),
		ConfigID:        os.Getenv("KBC_CONFIGID"),
		ComponentID:     os.Getenv("KBC_COMPONENTID"),
		BranchID:        os.Getenv("KBC_BRANCHID"),
		ProjectName:     os.Getenv("KBC_PROJECTNAME"),
		TokenID:         os.Getenv("KBC_TOKENID"),
		TokenDesc:       os.Getenv("KBC_TOKENDESC"),
		Token:           os.Getenv("KBC_TOKEN"),
		URL:             os.Getenv("KBC_URL"),
		LoggerAddr:      os.Getenv("KBC_LOGGER_ADDR"),
		LoggerPort:      os.Getenv("KBC_LOGGER_PORT"),
		StagingProvider: os.Getenv("KBC_STAGING_FILE_PROVIDER"),
		DataTypeSupport: os.Getenv("KBC_DATA_TYPE_SUPPORT"),
	}
}

// NativeTypesEnabled reports whether the project has native data types
// turned on. Components emit legacy manifests otherwise.
func (e EnvironmentVariables) NativeTypesEnabled() bool {
	return e.DataTypeSupport != ""
}
