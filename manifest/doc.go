// Package manifest holds the data model for the JSON manifest sidecar files
// that describe table and file artifacts exchanged with the host platform.
//
// The central type is TableDefinition: an aggregate of destination routing,
// load semantics, CSV dialect, an ordered column schema and free-form
// metadata. A TableDefinition never persists itself; it renders a manifest
// document on demand and leaves writing to the caller.
//
// # Manifest dialects
//
// Two wire dialects exist and both are derived from the same in-memory state:
//
//   - legacy: a flat document with plain "columns" and "primary_key" name
//     lists, a "metadata" list of {key, value} objects and a
//     "column_metadata" object of such lists
//   - native: a document carrying a "schema" array of per-column objects
//     (name, data_type, nullable, primary_key, description, metadata) and a
//     "table_metadata" object of merged key/value pairs
//
// A manifest must commit to one dialect; loading a document that mixes the
// native "schema" key with any of the legacy keys fails.
//
// # Rendering
//
// Manifest() is a pure function of (stage, legacy queue, legacy dialect)
// applied to the definition's current state. The full candidate field set is
// computed eagerly, intersected with the allow-list for the requested stage
// and dialect, reduced by the legacy-queue exclusions (with a warning naming
// the dropped fields) and finally stripped of empty values. Explicitly set
// booleans always survive the strip; tri-state flags such as "incremental"
// only render once set.
package manifest
