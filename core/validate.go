package core

import (
	"fmt"
)

// ValidateScript checks a script against the registry: every action,
// event type and condition op must be registered, actions must have
// their required parameters, and every scene a trigger names must
// exist.  It runs when a script is loaded, never
// during a dispatch.
func (r *Registry) ValidateScript(c *ScriptContent) error {
	var problems []string
	complain := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	var checkCond func(Condition, string)
	checkCond = func(cond Condition, path string) {
		switch vv := cond.(type) {
		case *And:
			for i, item := range vv.Items {
				checkCond(item, fmt.Sprintf("%s.items[%d]", path, i))
			}
		case *Or:
			for i, item := range vv.Items {
				checkCond(item, fmt.Sprintf("%s.items[%d]", path, i))
			}
		case *Not:
			if vv.Item != nil {
				checkCond(vv.Item, path+".item")
			}
		case *Leaf:
			if _, have := r.Condition(vv.Operation); !have {
				complain("%s: unknown condition op %q", path, vv.Operation)
			}
		}
	}

	checkAction := func(a *PlainAction, path string) {
		def, have := r.Action(a.Name)
		if !have {
			complain("%s: unknown action %q", path, a.Name)
		} else {
			for _, name := range sortedKeys(def.Params) {
				if _, given := a.Params[name]; def.Params[name].Required && !given {
					complain("%s: %s requires %q", path, a.Name, name)
				}
			}
		}
		if a.Offset != "" && !TimeOffsetRegex.MatchString(a.Offset) {
			complain("%s: invalid offset %q", path, a.Offset)
		}
	}

	for _, scene := range c.Scenes {
		if scene.ActiveIf.Condition != nil {
			checkCond(scene.ActiveIf.Condition, "scenes."+scene.Name+".active_if")
		}
	}

	seen := make(map[string]bool, len(c.Triggers))
	for i, t := range c.Triggers {
		path := fmt.Sprintf("triggers[%d]", i)
		if t.Name == "" {
			complain("%s: missing name", path)
		} else if seen[t.Name] {
			complain("%s: duplicate trigger name %q", path, t.Name)
		}
		seen[t.Name] = true

		if t.Event == nil || t.Event.Type() == "" {
			complain("%s.event: missing type", path)
		} else if _, have := r.Event(t.Event.Type()); !have {
			complain("%s.event: unknown event type %q", path, t.Event.Type())
		}
		if t.Scene != "" && c.Scene(t.Scene) == nil {
			complain("%s.scene: unknown scene %q", path, t.Scene)
		}
		if t.ActiveIf.Condition != nil {
			checkCond(t.ActiveIf.Condition, path+".active_if")
		}
		WalkClause(&t.Clause, path, checkAction, checkCond)
	}

	if 0 < len(problems) {
		return &ValidationError{Problems: problems}
	}
	return nil
}
