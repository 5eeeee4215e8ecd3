package manifest

import "fmt"

// BaseType is the closed set of portable column types supported by the
// platform storage.
type BaseType string

const (
	TypeString    BaseType = "STRING"
	TypeInteger   BaseType = "INTEGER"
	TypeNumeric   BaseType = "NUMERIC"
	TypeFloat     BaseType = "FLOAT"
	TypeBoolean   BaseType = "BOOLEAN"
	TypeDate      BaseType = "DATE"
	TypeTimestamp BaseType = "TIMESTAMP"
)

// BaseTypes returns every supported base type, in declaration order.
func BaseTypes() []BaseType {
	return []BaseType{
		TypeString,
		TypeInteger,
		TypeNumeric,
		TypeFloat,
		TypeBoolean,
		TypeDate,
		TypeTimestamp,
	}
}

// Valid reports whether b is a member of the supported base type set.
func (b BaseType) Valid() bool {
	switch b {
	case TypeString, TypeInteger, TypeNumeric, TypeFloat, TypeBoolean, TypeDate, TypeTimestamp:
		return true
	}
	return false
}

// ParseBaseType validates a raw base type string. The error names the
// offending value and lists the supported set.
func ParseBaseType(s string) (BaseType, error) {
	b := BaseType(s)
	if !b.Valid() {
		return "", &ValidationError{
			Msg: fmt.Sprintf("datatype %q is not a valid base type, supported base types are: %v", s, BaseTypes()),
		}
	}
	return b, nil
}

// Stage marks which side of the data folder an artifact belongs to.
type Stage string

const (
	// StageIn marks host-provided input artifacts with read-only attributes.
	StageIn Stage = "in"
	// StageOut marks component-produced output artifacts.
	StageOut Stage = "out"
)

// ParseStage validates a raw stage string.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageIn, StageOut:
		return Stage(s), nil
	}
	return "", &ValidationError{Msg: fmt.Sprintf("invalid stage %q, supported values are: %q, %q", s, StageIn, StageOut)}
}

// Reserved metadata keys recognized by the platform storage.
const (
	MetaBaseDataType               = "KBC.datatype.basetype"
	MetaSourceDataType             = "KBC.datatype.type"
	MetaDataTypeNullable           = "KBC.datatype.nullable"
	MetaDataTypeLength             = "KBC.datatype.length"
	MetaDataTypeDefault            = "KBC.datatype.default"
	MetaDescription                = "KBC.description"
	MetaSharedDescription          = "KBC.sharedDescription"
	MetaCreatedByComponent         = "KBC.createdBy.component.id"
	MetaCreatedByConfiguration     = "KBC.createdBy.configuration.id"
	MetaCreatedByBranch            = "KBC.createdBy.branch.id"
	MetaLastUpdatedByComponent     = "KBC.lastUpdatedBy.component.id"
	MetaLastUpdatedByConfiguration = "KBC.lastUpdatedBy.configuration.id"
	MetaLastUpdatedByBranch        = "KBC.lastUpdatedBy.branch.id"
)

// TimeFormat is the timestamp layout used by the platform storage in
// manifest attributes such as "created".
const TimeFormat = "2006-01-02T15:04:05-0700"
