package manifest

import (
	"fmt"

	"github.com/spf13/cast"
)

// Where operators accepted by a delete-where clause.
const (
	OperatorEquals    = "eq"
	OperatorNotEquals = "ne"
)

// DeleteWhere restricts which rows an incremental load removes before
// importing. A clause is either fully specified or absent; partial
// specification is an error.
type DeleteWhere struct {
	Column   string
	Values   []string
	Operator string // OperatorEquals (default) or OperatorNotEquals
}

func (w *DeleteWhere) normalize() error {
	if w.Column == "" || w.Values == nil {
		return &ValidationError{Msg: "delete-where specification must contain both a column and values"}
	}
	if w.Operator == "" {
		w.Operator = OperatorEquals
	}
	if w.Operator != OperatorEquals && w.Operator != OperatorNotEquals {
		return &ValidationError{Msg: fmt.Sprintf("delete-where operator must be %q or %q, got %q", OperatorEquals, OperatorNotEquals, w.Operator)}
	}
	return nil
}

// ParseDeleteWhere builds a clause from a raw configuration object of the
// shape {"column": ..., "values": [...], "operator": ...}.
func ParseDeleteWhere(spec map[string]any) (*DeleteWhere, error) {
	if len(spec) == 0 {
		return nil, nil
	}
	rawColumn, okColumn := spec["column"]
	rawValues, okValues := spec["values"]
	if !okColumn || !okValues {
		return nil, &ValidationError{Msg: "delete-where specification must contain keys 'column' and 'values'"}
	}
	column, err := cast.ToStringE(rawColumn)
	if err != nil || column == "" {
		return nil, &ValidationError{Msg: fmt.Sprintf("delete-where column must be a string, got %v", rawColumn)}
	}
	if _, ok := rawValues.([]any); !ok {
		if _, ok := rawValues.([]string); !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf("delete-where values must be a list, got %v", rawValues)}
		}
	}
	values, err := cast.ToStringSliceE(rawValues)
	if err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("delete-where values must be a list of strings, got %v", rawValues)}
	}
	where := &DeleteWhere{
		Column:   column,
		Values:   values,
		Operator: cast.ToString(spec["operator"]),
	}
	if err := where.normalize(); err != nil {
		return nil, err
	}
	return where, nil
}
