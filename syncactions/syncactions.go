// Package syncactions builds the JSON documents a sync action writes to
// stdout. The host calls a component with an action name and reads a single
// JSON document back; everything else on stdout breaks the contract.
package syncactions

import (
	"encoding/json"
	"fmt"
)

// MessageType classifies a validation message for the host UI.
type MessageType string

const (
	MessageSuccess MessageType = "success"
	MessageInfo    MessageType = "info"
	MessageWarning MessageType = "warning"
	MessageDanger  MessageType = "danger"
)

// Result is one sync action result object.
type Result interface {
	resultObject() map[string]any
}

// ValidationResult is the result of a validation-style action, a message
// with a severity shown to the user.
type ValidationResult struct {
	Message string
	Type    MessageType
}

func (r ValidationResult) resultObject() map[string]any {
	mt := r.Type
	if mt == "" {
		mt = MessageInfo
	}
	return map[string]any{
		"message": r.Message,
		"type":    string(mt),
		"status":  "success",
	}
}

// SelectElement is one option of a dynamic select box. Unlike other results
// it carries no status field.
type SelectElement struct {
	Value string
	// Label defaults to Value when empty.
	Label string
}

func (e SelectElement) resultObject() map[string]any {
	label := e.Label
	if label == "" {
		label = e.Value
	}
	return map[string]any{
		"value": e.Value,
		"label": label,
	}
}

// ProcessResult serializes an action result into the string the host expects
// on stdout. Accepted shapes are nil (plain success), a single Result, a
// Result slice, or a raw map for pre-built documents.
func ProcessResult(result any) (string, error) {
	switch v := result.(type) {
	case nil:
		return `{"status": "success"}`, nil
	case Result:
		return marshal(v.resultObject())
	case []Result:
		docs := make([]map[string]any, len(v))
		for i, r := range v {
			docs[i] = r.resultObject()
		}
		return marshal(docs)
	case []SelectElement:
		docs := make([]map[string]any, len(v))
		for i, r := range v {
			docs[i] = r.resultObject()
		}
		return marshal(docs)
	case map[string]any:
		return marshal(v)
	default:
		return "", fmt.Errorf("sync action result must be nil, a Result or a Result slice, got %T", result)
	}
}

func marshal(doc any) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode sync action result: %w", err)
	}
	return string(data), nil
}
