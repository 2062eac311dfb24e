package core

import (
	"sort"
)

// ParamSpec describes an action parameter, an event spec field or a
// condition property.  Used for documentation and validation.
type ParamSpec struct {
	Type       string `json:"type"`
	Required   bool   `json:"required,omitempty"`
	Collection string `json:"collection,omitempty"`
	Help       string `json:"help,omitempty"`
}

// GetOpsFunc computes the ops for an action.  It should return Log
// ops for business-rule violations and an error only for contract
// violations.
type GetOpsFunc func(params Params, ac *ActionContext) ([]ResultOp, error)

// MatchEventFunc decides whether a runtime event satisfies an event
// spec of the same type.
type MatchEventFunc func(spec Params, event Params, ac *ActionContext) (bool, error)

// EvalFunc evaluates a leaf condition.
type EvalFunc func(params Params, ac *ActionContext) (bool, error)

type ActionDef struct {
	Help   string
	Params map[string]*ParamSpec
	GetOps GetOpsFunc
}

type EventDef struct {
	Help       string
	SpecParams map[string]*ParamSpec
	MatchEvent MatchEventFunc
}

type ConditionDef struct {
	Help       string
	Properties map[string]*ParamSpec
	Eval       EvalFunc
}

// Resource is what a module contributes for one resource type.
type Resource struct {
	Actions    map[string]*ActionDef
	Events     map[string]*EventDef
	Conditions map[string]*ConditionDef
}

// Module is a named collection of resources.
type Module struct {
	Name      string
	Resources map[string]*Resource
}

// Registry is the immutable catalogue of actions, events and
// conditions.  Build it once with NewRegistry and share it.
type Registry struct {
	actions    map[string]*ActionDef
	events     map[string]*EventDef
	conditions map[string]*ConditionDef
}

// builtinOps are the combinators the Evaluator handles itself.
var builtinOps = []string{"and", "or", "not"}

// NewRegistry builds a Registry from the given modules.
//
// Any name claimed twice, any definition without its function, and
// any condition that tries to shadow a combinator results in a
// ConfigurationError.
func NewRegistry(mods ...*Module) (*Registry, error) {
	r := &Registry{
		actions:    make(map[string]*ActionDef, 64),
		events:     make(map[string]*EventDef, 32),
		conditions: make(map[string]*ConditionDef, 32),
	}

	for _, mod := range mods {
		for _, resName := range sortedKeys(mod.Resources) {
			res := mod.Resources[resName]
			if res == nil {
				continue
			}
			for name, def := range res.Actions {
				if err := claim(mod.Name, "action", name, def == nil || def.GetOps == nil, r.actions[name] != nil); err != nil {
					return nil, err
				}
				r.actions[name] = def
			}
			for typ, def := range res.Events {
				if err := claim(mod.Name, "event", typ, def == nil || def.MatchEvent == nil, r.events[typ] != nil); err != nil {
					return nil, err
				}
				r.events[typ] = def
			}
			for op, def := range res.Conditions {
				taken := r.conditions[op] != nil
				for _, b := range builtinOps {
					if b == op {
						taken = true
					}
				}
				if err := claim(mod.Name, "condition", op, def == nil || def.Eval == nil, taken); err != nil {
					return nil, err
				}
				r.conditions[op] = def
			}
		}
	}

	return r, nil
}

func claim(module, kind, name string, missing, taken bool) error {
	switch {
	case name == "":
		return &ConfigurationError{module, kind, name, "missing name"}
	case missing:
		return &ConfigurationError{module, kind, name, "missing implementation"}
	case taken:
		return &ConfigurationError{module, kind, name, "duplicate name"}
	}
	return nil
}

// MustRegistry is NewRegistry that panics.  For process start.
func MustRegistry(mods ...*Module) *Registry {
	r, err := NewRegistry(mods...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Action(name string) (*ActionDef, bool) {
	def, have := r.actions[name]
	return def, have
}

func (r *Registry) Event(typ string) (*EventDef, bool) {
	def, have := r.events[typ]
	return def, have
}

func (r *Registry) Condition(op string) (*ConditionDef, bool) {
	def, have := r.conditions[op]
	return def, have
}

// ConditionOps lists every op an Evaluator accepts.
func (r *Registry) ConditionOps() []string {
	acc := append([]string{}, builtinOps...)
	acc = append(acc, sortedKeys(r.conditions)...)
	sort.Strings(acc)
	return acc
}

func (r *Registry) ActionNames() []string {
	return sortedKeys(r.actions)
}

func (r *Registry) EventTypes() []string {
	return sortedKeys(r.events)
}

func sortedKeys[V any](m map[string]V) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}
