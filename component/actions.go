package component

import (
	"context"
	"fmt"

	"component-sdk/manifest"
	"component-sdk/syncactions"
)

// ActionFunc is one registered sync action. Its result is serialized to
// stdout through the syncactions package; any shape syncactions.ProcessResult
// accepts is valid.
type ActionFunc func(ctx context.Context) (any, error)

// RegisterAction registers a sync action under the given name. The name
// "run" is reserved for the main execution path.
func (ci *CommonInterface) RegisterAction(name string, fn ActionFunc) error {
	if name == "run" {
		return &manifest.ValidationError{Msg: `action name "run" is reserved for the main execution`}
	}
	if _, ok := ci.actions[name]; ok {
		return &manifest.ValidationError{Msg: fmt.Sprintf("action %q is already registered", name)}
	}
	ci.actions[name] = fn
	return nil
}

// Execute dispatches on the configuration's action. The default "run" action
// invokes run; any other action must have been registered and has its result
// printed to stdout as a single JSON document.
func (ci *CommonInterface) Execute(ctx context.Context, run func(ctx context.Context) error) error {
	action := ci.config.Action
	if action == "" {
		ci.logger.Warn("no action defined in the configuration, using the default run action")
		action = "run"
	}
	if action == "run" {
		return run(ctx)
	}

	fn, ok := ci.actions[action]
	if !ok {
		return &manifest.ValidationError{Msg: fmt.Sprintf("the defined action %q is not implemented", action)}
	}
	result, err := fn(ctx)
	if err != nil {
		return fmt.Errorf("action %s: %w", action, err)
	}
	out, err := syncactions.ProcessResult(result)
	if err != nil {
		return fmt.Errorf("action %s: %w", action, err)
	}
	if _, err := fmt.Fprintln(ci.stdout, out); err != nil {
		return fmt.Errorf("write action result: %w", err)
	}
	return nil
}
