package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResultOp describes a side effect.  The kernel never performs one;
// callers apply them after a dispatch.
type ResultOp interface {
	Operation() string
}

// Projector is implemented by ops that change what later actions in
// the same dispatch see.  Project returns a new evaluation context
// and must not modify the given one.
type Projector interface {
	ResultOp
	Project(ec Values) Values
}

// UpdatePlayerFields changes a player, found by role name or id.
type UpdatePlayerFields struct {
	RoleName string `json:"roleName,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Fields   Values `json:"fields"`
}

type UpdateTripFields struct {
	Fields Values `json:"fields"`
}

type UpdateTripValues struct {
	Values Values `json:"values"`
}

type UpdateTripHistory struct {
	History Values `json:"history"`
}

// Log levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log reports a business-rule violation or a note from a "log"
// action.
type Log struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// EmitEvent fires another event in the same dispatch.
type EmitEvent struct {
	Event Params `json:"event"`
}

type CreateMessage struct {
	SuppressRelayID string `json:"suppressRelayId,omitempty"`
	Fields          Values `json:"fields"`
}

type SendEmail struct {
	From     string   `json:"from"`
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	BodyHTML string   `json:"bodyHtml"`
	BodyText string   `json:"bodyText"`
}

// Twiml is a telephony instruction for the call with the given
// role pair.
type Twiml struct {
	Clause  string `json:"clause"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Voice   string `json:"voice,omitempty"`
	Message string `json:"message,omitempty"`
	Media   string `json:"media,omitempty"`
}

type UpdateAudio struct {
	RoleName string `json:"roleName,omitempty"`
}

type UpdateUI struct {
	Instruction string `json:"instruction"`
	Tripwide    bool   `json:"tripwide,omitempty"`
	RoleName    string `json:"roleName,omitempty"`
}

type SwitchRole struct {
	RoleName string `json:"roleName"`
	NewRole  string `json:"newRole"`
}

// Wait delays the actions that follow it in the same trigger, either
// by a number of seconds or until a time.
type Wait struct {
	Seconds float64    `json:"seconds,omitempty"`
	Until   *time.Time `json:"until,omitempty"`
}

func (*UpdatePlayerFields) Operation() string { return "updatePlayerFields" }

func (*UpdateTripFields) Operation() string { return "updateTripFields" }

func (*UpdateTripValues) Operation() string { return "updateTripValues" }

func (*UpdateTripHistory) Operation() string { return "updateTripHistory" }

func (*Log) Operation() string { return "log" }

func (*EmitEvent) Operation() string { return "event" }

func (*CreateMessage) Operation() string { return "createMessage" }

func (*SendEmail) Operation() string { return "sendEmail" }

func (*Twiml) Operation() string { return "twiml" }

func (*UpdateAudio) Operation() string { return "updateAudio" }

func (*UpdateUI) Operation() string { return "updateUi" }

func (*SwitchRole) Operation() string { return "switchRole" }

func (*Wait) Operation() string { return "wait" }

// Project merges Fields into the player's record: every record with
// the PlayerID when one is given, else the role's.
func (op *UpdatePlayerFields) Project(ec Values) Values {
	if op.PlayerID != "" {
		return op.projectPlayer(ec)
	}
	if op.RoleName == "" {
		return ec
	}
	record := map[string]interface{}(Values(asMap(ec[op.RoleName])).Copy().Merge(op.Fields))
	acc := ec.Copy().Extend(op.RoleName, record)

	// Keep "player." references in step with the role's record.
	if states, _ := ec.Map("roleStates")[op.RoleName].([]interface{}); len(states) > 0 {
		updated := append([]interface{}{record}, states[1:]...)
		roleStates := Values(ec.Map("roleStates")).Copy().Extend(op.RoleName, updated)
		acc.Extend("roleStates", map[string]interface{}(roleStates))
	}
	return acc
}

// Project merges Fields into the context.  The schedule and
// waypointOptions maps are merged key by key.
func (op *UpdatePlayerFields) projectPlayer(ec Values) Values {
	merge := func(x interface{}) map[string]interface{} {
		return map[string]interface{}(Values(asMap(x)).Copy().Merge(op.Fields))
	}
	acc := ec.Copy()
	for k, x := range ec {
		if m := asMap(x); k != "roleStates" && m != nil && m["id"] == op.PlayerID {
			acc[k] = merge(x)
		}
	}

	roleStates := Values(ec.Map("roleStates")).Copy()
	found := false
	for role, x := range roleStates {
		states, _ := x.([]interface{})
		for i, state := range states {
			if asMap(state)["id"] != op.PlayerID {
				continue
			}
			updated := append([]interface{}(nil), states...)
			updated[i] = merge(state)
			roleStates[role] = updated
			found = true
			break
		}
	}
	if found {
		acc["roleStates"] = map[string]interface{}(roleStates)
	}
	return acc
}

func (op *UpdateTripFields) Project(ec Values) Values {
	acc := ec.Copy()
	for k, x := range op.Fields {
		switch k {
		case "schedule", "waypointOptions":
			m := Values(ec.Map(k)).Copy().Merge(asMap(x))
			acc[k] = map[string]interface{}(m)
		default:
			acc[k] = x
		}
	}
	return acc
}

func (op *UpdateTripValues) Project(ec Values) Values {
	return ec.Copy().Merge(op.Values)
}

func (op *UpdateTripHistory) Project(ec Values) Values {
	history := Values(ec.Map("history")).Copy().Merge(op.History)
	return ec.Copy().Extend("history", map[string]interface{}(history))
}

// Errorf makes an error-level Log op.
func Errorf(format string, args ...interface{}) *Log {
	return &Log{Level: LevelError, Message: fmt.Sprintf(format, args...)}
}

// Warnf makes a warn-level Log op.
func Warnf(format string, args ...interface{}) *Log {
	return &Log{Level: LevelWarn, Message: fmt.Sprintf(format, args...)}
}

// Ops is a list of ResultOps that encodes each op with its
// "operation" tag.
type Ops []ResultOp

func (ops Ops) MarshalJSON() ([]byte, error) {
	acc := make([]json.RawMessage, 0, len(ops))
	for _, op := range ops {
		js, err := MarshalOp(op)
		if err != nil {
			return nil, err
		}
		acc = append(acc, js)
	}
	return json.Marshal(acc)
}

func (ops *Ops) UnmarshalJSON(js []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(js, &raws); err != nil {
		return err
	}
	acc := make(Ops, 0, len(raws))
	for _, raw := range raws {
		op, err := DecodeResultOp(raw)
		if err != nil {
			return err
		}
		acc = append(acc, op)
	}
	*ops = acc
	return nil
}

// MarshalOp renders an op as a JSON object with an "operation"
// property.
func MarshalOp(op ResultOp) ([]byte, error) {
	js, err := json.Marshal(op)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]interface{}, 1)
	}
	m["operation"] = op.Operation()
	return json.Marshal(m)
}

var opMakers = map[string]func() ResultOp{
	"updatePlayerFields": func() ResultOp { return &UpdatePlayerFields{} },
	"updateTripFields":   func() ResultOp { return &UpdateTripFields{} },
	"updateTripValues":   func() ResultOp { return &UpdateTripValues{} },
	"updateTripHistory":  func() ResultOp { return &UpdateTripHistory{} },
	"log":                func() ResultOp { return &Log{} },
	"event":              func() ResultOp { return &EmitEvent{} },
	"createMessage":      func() ResultOp { return &CreateMessage{} },
	"sendEmail":          func() ResultOp { return &SendEmail{} },
	"twiml":              func() ResultOp { return &Twiml{} },
	"updateAudio":        func() ResultOp { return &UpdateAudio{} },
	"updateUi":           func() ResultOp { return &UpdateUI{} },
	"switchRole":         func() ResultOp { return &SwitchRole{} },
	"wait":               func() ResultOp { return &Wait{} },
}

// UnknownOperation occurs when decoding an op with an unrecognized
// "operation".
type UnknownOperation struct {
	Operation string
}

func (e *UnknownOperation) Error() string {
	return `unknown operation "` + e.Operation + `"`
}

// DecodeResultOp is the inverse of MarshalOp.
func DecodeResultOp(js []byte) (ResultOp, error) {
	var tag struct {
		Operation string `json:"operation"`
	}
	if err := json.Unmarshal(js, &tag); err != nil {
		return nil, err
	}
	mk, have := opMakers[tag.Operation]
	if !have {
		return nil, &UnknownOperation{tag.Operation}
	}
	op := mk()
	if err := json.Unmarshal(js, op); err != nil {
		return nil, err
	}
	return op, nil
}
