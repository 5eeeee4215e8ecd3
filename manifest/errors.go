package manifest

// ValidationError reports a value that violates schema or manifest
// construction rules: an unknown base type, a malformed delete-where clause,
// a primary-key column missing from the schema and so on. The message always
// names the offending value.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ManifestError reports an internally inconsistent manifest document, such as
// one mixing the native and legacy dialects. It is raised when loading, never
// when rendering.
type ManifestError struct {
	Msg string
}

func (e *ManifestError) Error() string { return e.Msg }

// ResourceError reports a missing file-system counterpart: a manifest whose
// data file or folder cannot be found, or vice versa. Distinct from
// ValidationError so callers can tell bad data from bad input.
type ResourceError struct {
	Path string
	Msg  string
}

func (e *ResourceError) Error() string { return e.Msg }
