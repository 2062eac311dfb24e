package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Condition is a parsed "if" clause.  A node is either one of the
// combinators (And, Or, Not) or a Leaf that a module evaluates.
type Condition interface {
	Op() string
}

type And struct {
	Items []Condition
}

type Or struct {
	Items []Condition
}

// Not negates Item.  A Not without an Item is true.
type Not struct {
	Item Condition
}

// Leaf is a module-contributed predicate.
type Leaf struct {
	Operation string
	Params    Params
}

func (*And) Op() string { return "and" }

func (*Or) Op() string { return "or" }

func (*Not) Op() string { return "not" }

func (l *Leaf) Op() string { return l.Operation }

var BadCondition = errors.New("condition must be an object with an op")

// ParseCondition builds a Condition from its generic representation.
// A nil x gives a nil Condition.
func ParseCondition(x interface{}) (Condition, error) {
	if x == nil {
		return nil, nil
	}
	m := asMap(x)
	if m == nil {
		return nil, BadCondition
	}
	op, _ := m["op"].(string)
	switch op {
	case "":
		return nil, BadCondition
	case "and", "or":
		xs, _ := m["items"].([]interface{})
		items := make([]Condition, 0, len(xs))
		for i, y := range xs {
			c, err := ParseCondition(y)
			if err != nil {
				return nil, fmt.Errorf("%s.items[%d]: %w", op, i, err)
			}
			if c != nil {
				items = append(items, c)
			}
		}
		if op == "and" {
			return &And{Items: items}, nil
		}
		return &Or{Items: items}, nil
	case "not":
		c, err := ParseCondition(m["item"])
		if err != nil {
			return nil, fmt.Errorf("not.item: %w", err)
		}
		return &Not{Item: c}, nil
	default:
		return &Leaf{
			Operation: op,
			Params:    Params(m).Without("op"),
		}, nil
	}
}

// MustParseCondition is ParseCondition that panics.  For tests and
// literals.
func MustParseCondition(x interface{}) Condition {
	c, err := ParseCondition(x)
	if err != nil {
		panic(err)
	}
	return c
}

// ConditionMap renders a Condition back to its generic form.
func ConditionMap(c Condition) map[string]interface{} {
	switch vv := c.(type) {
	case nil:
		return nil
	case *And:
		return map[string]interface{}{"op": "and", "items": conditionMaps(vv.Items)}
	case *Or:
		return map[string]interface{}{"op": "or", "items": conditionMaps(vv.Items)}
	case *Not:
		m := map[string]interface{}{"op": "not"}
		if vv.Item != nil {
			m["item"] = ConditionMap(vv.Item)
		}
		return m
	case *Leaf:
		m := make(map[string]interface{}, len(vv.Params)+1)
		for k, v := range vv.Params {
			m[k] = v
		}
		m["op"] = vv.Operation
		return m
	}
	return nil
}

func conditionMaps(cs []Condition) []interface{} {
	acc := make([]interface{}, len(cs))
	for i, c := range cs {
		acc[i] = ConditionMap(c)
	}
	return acc
}

// Cond wraps a Condition so that it can live in a decoded struct.  A
// zero Cond is an absent condition.
type Cond struct {
	Condition
}

func (c *Cond) UnmarshalJSON(js []byte) error {
	var x interface{}
	if err := json.Unmarshal(js, &x); err != nil {
		return err
	}
	cond, err := ParseCondition(x)
	if err != nil {
		return err
	}
	c.Condition = cond
	return nil
}

func (c Cond) MarshalJSON() ([]byte, error) {
	return json.Marshal(ConditionMap(c.Condition))
}

// ActionNode is an element of an action list: a PlainAction or a
// ConditionalAction.
type ActionNode interface {
	actionNode()
}

// PlainAction invokes a registered action.  When and Offset are the
// scheduling modifiers, already removed from Params.
type PlainAction struct {
	Name   string
	Params Params
	When   string
	Offset string
}

// ConditionalAction is a nested if/elseifs/else node.
type ConditionalAction struct {
	Clause
}

func (*PlainAction) actionNode() {}

func (*ConditionalAction) actionNode() {}

// Clause is the if/actions/elseifs/else construct shared by triggers
// and conditional actions.
type Clause struct {
	If      Cond       `json:"if,omitempty"`
	Actions ActionList `json:"actions,omitempty"`
	ElseIfs []*ElseIf  `json:"elseifs,omitempty"`
	Else    ActionList `json:"else,omitempty"`
}

type ElseIf struct {
	If      Cond       `json:"if"`
	Actions ActionList `json:"actions,omitempty"`
}

// ActionList decodes each element as a PlainAction when it has a
// name (other than "conditional") and as a ConditionalAction
// otherwise.
type ActionList []ActionNode

// reserved keys that are not action parameters.
var actionKeys = []string{"name", "id", "when", "offset"}

// ParseAction builds an ActionNode from its generic representation.
func ParseAction(x interface{}) (ActionNode, error) {
	m := asMap(x)
	if m == nil {
		return nil, fmt.Errorf("expected action to be an object, was %T", x)
	}
	name, _ := m["name"].(string)
	if name != "" && name != "conditional" {
		ps := Params(m)
		return &PlainAction{
			Name:   name,
			Params: ps.Without(actionKeys...),
			When:   ps.String("when"),
			Offset: ps.String("offset"),
		}, nil
	}
	js, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var ca ConditionalAction
	if err = json.Unmarshal(js, &ca.Clause); err != nil {
		return nil, err
	}
	return &ca, nil
}

func (l *ActionList) UnmarshalJSON(js []byte) error {
	var xs []interface{}
	if err := json.Unmarshal(js, &xs); err != nil {
		return fmt.Errorf("expected actions to be an array: %w", err)
	}
	acc := make(ActionList, 0, len(xs))
	for i, x := range xs {
		a, err := ParseAction(x)
		if err != nil {
			return fmt.Errorf("actions[%d]: %w", i, err)
		}
		acc = append(acc, a)
	}
	*l = acc
	return nil
}

func (a *PlainAction) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(a.Params)+3)
	for k, v := range a.Params {
		m[k] = v
	}
	m["name"] = a.Name
	if a.When != "" {
		m["when"] = a.When
	}
	if a.Offset != "" {
		m["offset"] = a.Offset
	}
	return json.Marshal(m)
}

func (a *ConditionalAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(&a.Clause)
}

// Trigger is an event spec plus an action tree.
type Trigger struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`

	// Scene optionally restricts the trigger to times when the
	// scene is active.
	Scene string `json:"scene,omitempty"`

	// Event is the event spec, tagged by its "type".
	Event Params `json:"event"`

	ActiveIf Cond `json:"active_if,omitempty"`

	// Repeatable defaults to true.
	Repeatable *bool `json:"repeatable,omitempty"`

	Clause
}

// IsRepeatable reports whether the trigger may fire more than once.
func (t *Trigger) IsRepeatable() bool {
	return t.Repeatable == nil || *t.Repeatable
}
