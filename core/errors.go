package core

// Errors here describe scripts and configurations that are wrong.
// Business-rule violations during a dispatch are not errors; actions
// report those as Log ops.

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError occurs when a Registry can't be built from the
// given modules, usually because two modules claim the same name.
type ConfigurationError struct {
	Module string
	Kind   string
	Name   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("module %q %s %q: %s", e.Module, e.Kind, e.Name, e.Reason)
}

// EvaluationError occurs when a condition names an op that no module
// provides.
type EvaluationError struct {
	Op    string
	Valid []string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("invalid op %q: expected one of %s", e.Op, strings.Join(e.Valid, ", "))
}

// UnknownAction occurs when an action is executed but isn't
// registered.
type UnknownAction struct {
	Name string
}

func (e *UnknownAction) Error() string {
	return `invalid action "` + e.Name + `"`
}

// MissingScheduleTime occurs when an action's "when" names a time
// that the trip hasn't scheduled.
type MissingScheduleTime struct {
	Action string
	When   string
}

func (e *MissingScheduleTime) Error() string {
	return `action "` + e.Action + `" scheduled at "` + e.When + `", which is not in the trip schedule`
}

// BadOffset occurs when an action's "offset" isn't a signed duration
// shorthand.
type BadOffset struct {
	Action string
	Offset string
}

func (e *BadOffset) Error() string {
	return `action "` + e.Action + `" has invalid offset "` + e.Offset + `"`
}

// ValidationError collects every problem found in a script.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d script problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// NoRegistry occurs when a Kernel or Evaluator is used without a
// Registry.
var NoRegistry = errors.New("no registry")
