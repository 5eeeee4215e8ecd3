package manifest

import (
	"fmt"

	"github.com/spf13/cast"
)

// ColumnDefinition is the contract of one column within a table schema.
// The zero value is not useful; NewColumn returns the default definition
// (base type STRING, nullable).
type ColumnDefinition struct {
	// DataTypes holds the per-backend type representations. The BackendBase
	// entry, when present, must name a supported BaseType.
	DataTypes   DataTypes
	Nullable    bool
	PrimaryKey  bool
	Description string
	// Metadata carries arbitrary string-keyed column annotations.
	Metadata map[string]any
}

// NewColumn returns a column definition with the default base type STRING,
// mirroring a plain headless CSV column.
func NewColumn() ColumnDefinition {
	return ColumnDefinition{DataTypes: Base(TypeString), Nullable: true}
}

// TypedColumn returns a nullable column definition with the given data types.
func TypedColumn(types DataTypes) ColumnDefinition {
	return ColumnDefinition{DataTypes: types, Nullable: true}
}

// AddDataType registers a type representation for a backend that has none
// yet. Use UpdateDataType to replace an existing one.
func (c *ColumnDefinition) AddDataType(backend string, dt DataType) error {
	if _, ok := c.DataTypes[backend]; ok {
		return &ValidationError{Msg: fmt.Sprintf("data type for backend %q already exists, use UpdateDataType instead", backend)}
	}
	if c.DataTypes == nil {
		c.DataTypes = DataTypes{}
	}
	c.DataTypes[backend] = dt
	return nil
}

// UpdateDataType replaces the type representation of a backend that already
// has one. Use AddDataType to register a new backend.
func (c *ColumnDefinition) UpdateDataType(backend string, dt DataType) error {
	if _, ok := c.DataTypes[backend]; !ok {
		return &ValidationError{Msg: fmt.Sprintf("data type for backend %q does not exist, use AddDataType instead", backend)}
	}
	c.DataTypes[backend] = dt
	return nil
}

// validate enforces that the base backend entry, when present, names a
// supported base type.
func (c ColumnDefinition) validate() error {
	if dt, ok := c.DataTypes[BackendBase]; ok {
		if _, err := ParseBaseType(dt.Type); err != nil {
			return err
		}
	}
	return nil
}

// toMap renders the native per-column manifest object. False booleans and
// empty values are dropped from the emitted object.
func (c ColumnDefinition) toMap(name string) map[string]any {
	out := map[string]any{"name": name}
	if len(c.DataTypes) > 0 {
		out["data_type"] = c.DataTypes.toMap()
	}
	if c.Nullable {
		out["nullable"] = true
	}
	if c.PrimaryKey {
		out["primary_key"] = true
	}
	if c.Description != "" {
		out["description"] = c.Description
	}
	if len(c.Metadata) > 0 {
		md := make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			md[k] = v
		}
		out["metadata"] = md
	}
	return out
}

// columnFromMap rebuilds a column definition from its native manifest object.
func columnFromMap(raw map[string]any) ColumnDefinition {
	col := ColumnDefinition{
		DataTypes:   dataTypesFromMap(cast.ToStringMap(raw["data_type"])),
		Nullable:    cast.ToBool(raw["nullable"]),
		PrimaryKey:  cast.ToBool(raw["primary_key"]),
		Description: cast.ToString(raw["description"]),
	}
	if md := cast.ToStringMap(raw["metadata"]); len(md) > 0 {
		col.Metadata = md
	}
	return col
}
