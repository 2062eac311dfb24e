package core

import (
	"time"
)

// Kernel runs the whole pipeline: match triggers, flatten and
// schedule their actions, execute and fold.  It holds no state
// besides the Registry and is safe for concurrent use.
type Kernel struct {
	*Evaluator
}

func NewKernel(r *Registry) *Kernel {
	return &Kernel{Evaluator: NewEvaluator(r)}
}

// OpsForImmediateAction computes the ops of one action.  The action's
// originating event is visible as "event".
func (k *Kernel) OpsForImmediateAction(action *ScheduledAction, ac *ActionContext) ([]ResultOp, error) {
	if k.Registry == nil {
		return nil, NoRegistry
	}
	def, have := k.Registry.Action(action.Name)
	if !have {
		return nil, &UnknownAction{Name: action.Name}
	}
	params := action.Params
	if params == nil {
		params = Params{}
	}
	return def.GetOps(params, ac.WithEvent(action.Event))
}

// ResultForImmediateAction runs an action now, then fires the
// triggers of any events it emits.  A trigger fires at most once
// along one chain of emitted events.
func (k *Kernel) ResultForImmediateAction(action *ScheduledAction, ac *ActionContext) (*Result, error) {
	return k.resultForImmediateAction(action, ac, nil)
}

func (k *Kernel) resultForImmediateAction(action *ScheduledAction, ac *ActionContext, history []string) (*Result, error) {
	ops, err := k.OpsForImmediateAction(action, ac)
	if err != nil {
		return nil, err
	}
	return k.resultForActionOps(ops, ac, history)
}

// resultForActionOps folds an action's ops and fires the triggers of
// the events among them.
func (k *Kernel) resultForActionOps(ops []ResultOp, ac *ActionContext, history []string) (*Result, error) {
	latest := ResultForOps(ops, ac)
	for _, op := range ops {
		emitted, is := op.(*EmitEvent)
		if !is {
			continue
		}
		next, err := k.resultForEvent(emitted.Event, latest.NextContext, history)
		if err != nil {
			return nil, err
		}
		latest = ConcatResult(latest, next)
	}
	return latest, nil
}

// ResultForEvent fires every active trigger that the event matches,
// in declaration order, each seeing the effects of the ones before.
func (k *Kernel) ResultForEvent(event Params, ac *ActionContext) (*Result, error) {
	return k.resultForEvent(event, ac, nil)
}

func (k *Kernel) resultForEvent(event Params, ac *ActionContext, history []string) (*Result, error) {
	latest := InitialResult(ac)
	triggers, err := k.TriggersForEvent(event, ac.WithEvent(event))
	if err != nil {
		return nil, err
	}
	for _, trigger := range triggers {
		if contains(history, trigger.Name) {
			continue
		}
		next, err := k.resultForTrigger(trigger, event, latest.NextContext, ac, history)
		if err != nil {
			return nil, err
		}
		latest = ConcatResult(latest, next)
	}
	return latest, nil
}

// ResultForTrigger fires one trigger for the event.
func (k *Kernel) ResultForTrigger(trigger *Trigger, event Params, ac *ActionContext) (*Result, error) {
	return k.resultForTrigger(trigger, event, ac, ac, nil)
}

// resultForTrigger records the firing in the trip history, expands
// the actions against the context as it was when the trigger fired,
// and then runs or schedules each action in order.
//
// A Wait op pushes back every action after it.  An action that ends
// up scheduled for later is only looked at for waits here; its errors
// and emitted events belong to the time it fires.
func (k *Kernel) resultForTrigger(trigger *Trigger, event Params, ac, whenTriggered *ActionContext, history []string) (*Result, error) {
	latest := ResultForOps([]ResultOp{&UpdateTripHistory{
		History: Values{trigger.Name: ISO(ac.EvaluateAt)},
	}}, ac)
	chain := append(append([]string{}, history...), trigger.Name)

	actions, logs, err := k.UnpackedActionsForTrigger(trigger, event, whenTriggered)
	if err != nil {
		return nil, err
	}
	if 0 < len(logs) {
		latest = ConcatResult(latest, ResultForOps(logs, latest.NextContext))
	}

	waitingUntil := ac.EvaluateAt
	for _, action := range actions {
		at := action.ScheduleAt
		if waitingUntil.After(at) {
			at = waitingUntil
		}
		deferred := at.After(ac.EvaluateAt)

		ops, err := k.OpsForImmediateAction(action, latest.NextContext)
		if err != nil && !deferred {
			return nil, err
		}

		if waits := waitsIn(ops); 0 < len(waits) {
			for _, w := range waits {
				until := waitingUntil.Add(time.Duration(w.Seconds * float64(time.Second)))
				if w.Until != nil {
					until = *w.Until
				}
				if until.After(waitingUntil) {
					waitingUntil = until
				}
			}
			continue
		}

		if deferred {
			scheduled := *action
			scheduled.ScheduleAt = at
			latest.ScheduledActions = append(latest.ScheduledActions, &scheduled)
			continue
		}

		result, err := k.resultForActionOps(ops, latest.NextContext, chain)
		if err != nil {
			return nil, err
		}
		latest = ConcatResult(latest, result)
	}

	return latest, nil
}

func waitsIn(ops []ResultOp) []*Wait {
	var acc []*Wait
	for _, op := range ops {
		if w, is := op.(*Wait); is {
			acc = append(acc, w)
		}
	}
	return acc
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
