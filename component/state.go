package component

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadStateFile reads in/state.json. A missing state file yields an empty
// state, a malformed one is an error.
func (ci *CommonInterface) ReadStateFile() (map[string]any, error) {
	path := filepath.Join(ci.dataDir, "in", "state.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read state file %s: %w", path, err)
	}
	state := map[string]any{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("malformed state file %s: %w", path, err)
	}
	return state, nil
}

// WriteStateFile writes out/state.json, creating the out folder as needed.
func (ci *CommonInterface) WriteStateFile(state map[string]any) error {
	path := filepath.Join(ci.dataDir, "out", "state.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create out folder: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write state file %s: %w", path, err)
	}
	return nil
}
