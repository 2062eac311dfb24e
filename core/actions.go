package core

import (
	"strconv"
	"time"
)

// ScheduledAction is a fully resolved action invocation.  When
// ScheduleAt is not after the dispatch's evaluation time, the kernel
// runs it right away; otherwise an external scheduler owns it.
type ScheduledAction struct {
	ID          string    `json:"id,omitempty"`
	TripID      string    `json:"tripId,omitempty"`
	Name        string    `json:"name"`
	Params      Params    `json:"params"`
	ScheduleAt  time.Time `json:"scheduleAt"`
	TriggerName string    `json:"triggerName,omitempty"`
	Event       Params    `json:"event,omitempty"`

	// TriggeringRoleName is the role whose event fired the trigger,
	// restored when the action runs later.
	TriggeringRoleName string `json:"triggeringRoleName,omitempty"`
}

// PackedActionsForClause selects the branch of the clause whose
// condition holds and flattens it, recursively, into plain actions
// in declaration order.
//
// Conditions are evaluated once, now.
func (e *Evaluator) PackedActionsForClause(clause *Clause, ac *ActionContext) ([]*PlainAction, error) {
	branch, err := e.branchForClause(clause, ac)
	if err != nil {
		return nil, err
	}
	var acc []*PlainAction
	for _, node := range branch {
		switch vv := node.(type) {
		case *PlainAction:
			acc = append(acc, vv)
		case *ConditionalAction:
			nested, err := e.PackedActionsForClause(&vv.Clause, ac)
			if err != nil {
				return nil, err
			}
			acc = append(acc, nested...)
		}
	}
	return acc, nil
}

func (e *Evaluator) branchForClause(clause *Clause, ac *ActionContext) (ActionList, error) {
	if clause.If.Condition == nil {
		return clause.Actions, nil
	}
	ok, err := e.If(ac, clause.If.Condition)
	if err != nil {
		return nil, err
	}
	if ok {
		return clause.Actions, nil
	}
	for _, elseif := range clause.ElseIfs {
		ok, err := e.If(ac, elseif.If.Condition)
		if err != nil {
			return nil, err
		}
		if ok {
			return elseif.Actions, nil
		}
	}
	return clause.Else, nil
}

// UnpackAction resolves when the action should run:
//
//	scheduleAt = (when ? schedule[when] : evaluateAt) + offset
//
// The schedule is read from the evaluation context, so it reflects
// ops folded earlier in the dispatch.
func UnpackAction(action *PlainAction, ac *ActionContext) (*ScheduledAction, error) {
	at := ac.EvaluateAt
	if action.When != "" {
		schedule := ac.EvalContext.Map("schedule")
		t, ok := AsTime(schedule[action.When])
		if !ok {
			return nil, &MissingScheduleTime{Action: action.Name, When: action.When}
		}
		at = t
	}
	offset, err := DurationForOffset(action.Offset)
	if err != nil {
		return nil, &BadOffset{Action: action.Name, Offset: action.Offset}
	}
	return &ScheduledAction{
		Name:       action.Name,
		Params:     action.Params.Copy(),
		ScheduleAt: at.Add(offset),
	}, nil
}

// UnpackedActionsForTrigger expands a trigger for the given event.
// The event is visible to conditions as "event".
//
// Actions whose timing can't be resolved are skipped; each skip is
// reported as an error-level Log op so the dispatch can go on.
func (e *Evaluator) UnpackedActionsForTrigger(trigger *Trigger, event Params, ac *ActionContext) ([]*ScheduledAction, []ResultOp, error) {
	ac = ac.WithEvent(event)
	packed, err := e.PackedActionsForClause(&trigger.Clause, ac)
	if err != nil {
		return nil, nil, err
	}
	var (
		acc  = make([]*ScheduledAction, 0, len(packed))
		logs []ResultOp
	)
	for _, action := range packed {
		sa, err := UnpackAction(action, ac)
		if err != nil {
			logs = append(logs, Errorf("trigger %q: %s", trigger.Name, err))
			continue
		}
		sa.TriggerName = trigger.Name
		sa.Event = event
		sa.TriggeringRoleName = ac.TriggeringRoleName
		acc = append(acc, sa)
	}
	return acc, logs, nil
}

// WalkActions visits every plain action and every condition in an
// action tree.  Paths look like "actions[0].elseifs[1].if".
func WalkActions(actions ActionList, path string, actionFn func(*PlainAction, string), ifFn func(Condition, string)) {
	for i, node := range actions {
		indexPath := path + "[" + strconv.Itoa(i) + "]"
		switch vv := node.(type) {
		case *PlainAction:
			if actionFn != nil {
				actionFn(vv, indexPath)
			}
		case *ConditionalAction:
			WalkClause(&vv.Clause, indexPath, actionFn, ifFn)
		}
	}
}

// WalkClause is WalkActions for a whole clause.
func WalkClause(clause *Clause, path string, actionFn func(*PlainAction, string), ifFn func(Condition, string)) {
	prefix := path
	if prefix != "" {
		prefix += "."
	}
	if clause.If.Condition != nil && ifFn != nil {
		ifFn(clause.If.Condition, prefix+"if")
	}
	WalkActions(clause.Actions, prefix+"actions", actionFn, ifFn)
	for j, elseif := range clause.ElseIfs {
		elseifPath := prefix + "elseifs[" + strconv.Itoa(j) + "]"
		if elseif.If.Condition != nil && ifFn != nil {
			ifFn(elseif.If.Condition, elseifPath+".if")
		}
		WalkActions(elseif.Actions, elseifPath+".actions", actionFn, ifFn)
	}
	WalkActions(clause.Else, prefix+"else", actionFn, ifFn)
}
