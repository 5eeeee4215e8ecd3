package manifest

import "github.com/spf13/cast"

// BackendBase is the backend identifier holding the portable base type of a
// column. Other keys name storage-specific backends (e.g. "snowflake",
// "redshift") carrying the exact type used there.
const BackendBase = "base"

// DataType is one backend-specific type representation of a column.
type DataType struct {
	Type    string
	Length  string
	Default string
}

// DataTypes maps a storage backend identifier to the column type used on
// that backend.
type DataTypes map[string]DataType

// Base returns a data-type mapping holding only the portable base type.
func Base(t BaseType) DataTypes {
	return DataTypes{BackendBase: {Type: string(t)}}
}

// WithLength returns d with the length of the base entry set.
func (d DataTypes) WithLength(length string) DataTypes {
	dt := d[BackendBase]
	dt.Length = length
	d[BackendBase] = dt
	return d
}

// WithDefault returns d with the default value of the base entry set.
func (d DataTypes) WithDefault(def string) DataTypes {
	dt := d[BackendBase]
	dt.Default = def
	d[BackendBase] = dt
	return d
}

// toMap renders the nested data_type object of the native column
// representation, dropping empty length/default entries.
func (d DataTypes) toMap() map[string]any {
	out := make(map[string]any, len(d))
	for backend, dt := range d {
		entry := map[string]any{"type": dt.Type}
		if dt.Length != "" {
			entry["length"] = dt.Length
		}
		if dt.Default != "" {
			entry["default"] = dt.Default
		}
		out[backend] = entry
	}
	return out
}

func dataTypesFromMap(raw map[string]any) DataTypes {
	if len(raw) == 0 {
		return nil
	}
	out := make(DataTypes, len(raw))
	for backend, v := range raw {
		entry := cast.ToStringMap(v)
		out[backend] = DataType{
			Type:    cast.ToString(entry["type"]),
			Length:  cast.ToString(entry["length"]),
			Default: cast.ToString(entry["default"]),
		}
	}
	return out
}
