package core

// MatchEvent reports whether the event satisfies the trigger's event
// spec.  Types must be equal; then the event type's own matcher
// decides.  An event type without a registered matcher never matches.
func (e *Evaluator) MatchEvent(trigger *Trigger, event Params, ac *ActionContext) (bool, error) {
	if trigger.Event == nil || trigger.Event.Type() != event.Type() {
		return false, nil
	}
	if e.Registry == nil {
		return false, NoRegistry
	}
	def, have := e.Registry.Event(event.Type())
	if !have {
		return false, nil
	}
	return def.MatchEvent(trigger.Event, event, ac)
}

// doesEventFireTrigger adds the rule that time_occurred triggers
// only ever fire once.
func (e *Evaluator) doesEventFireTrigger(trigger *Trigger, event Params, ac *ActionContext) (bool, error) {
	if event.Type() == "time_occurred" && hasFired(trigger.Name, ac) {
		return false, nil
	}
	return e.MatchEvent(trigger, event, ac)
}

func hasFired(triggerName string, ac *ActionContext) bool {
	history := ac.EvalContext.Map("history")
	return history != nil && Truthy(history[triggerName])
}

// IsSceneActive reports whether the scene exists, its active_if
// holds, and it is either global or current.
func (e *Evaluator) IsSceneActive(sceneName string, ac *ActionContext) (bool, error) {
	scene := ac.ScriptContent.Scene(sceneName)
	if scene == nil {
		return false, nil
	}
	ok, err := e.If(ac, scene.ActiveIf.Condition)
	if err != nil || !ok {
		return false, err
	}
	if scene.Global {
		return true, nil
	}
	current, _ := ac.EvalContext["currentSceneName"].(string)
	return current == sceneName, nil
}

// IsTriggerActive checks the trigger's scene, its active_if, and
// whether a non-repeatable trigger has already fired.
func (e *Evaluator) IsTriggerActive(trigger *Trigger, ac *ActionContext) (bool, error) {
	if trigger.Scene != "" {
		ok, err := e.IsSceneActive(trigger.Scene, ac)
		if err != nil || !ok {
			return false, err
		}
	}
	ok, err := e.If(ac, trigger.ActiveIf.Condition)
	if err != nil || !ok {
		return false, err
	}
	if !trigger.IsRepeatable() && hasFired(trigger.Name, ac) {
		return false, nil
	}
	return true, nil
}

// TriggersForEvent returns the active triggers that the event fires,
// in declaration order.  The given context should already include
// the event.
func (e *Evaluator) TriggersForEvent(event Params, ac *ActionContext) ([]*Trigger, error) {
	if ac.ScriptContent == nil {
		return nil, nil
	}
	var acc []*Trigger
	for _, trigger := range ac.ScriptContent.Triggers {
		active, err := e.IsTriggerActive(trigger, ac)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		fires, err := e.doesEventFireTrigger(trigger, event, ac)
		if err != nil {
			return nil, err
		}
		if fires {
			acc = append(acc, trigger)
		}
	}
	return acc, nil
}
