package store

import (
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
)

// Apply changes the trip according to the ops that describe trip
// state: field, value, history, player and role updates.  Every
// other op (messages, telephony, emails, logs ...) is returned, in
// order, for the caller to carry out.
func Apply(trip *core.Trip, ops []core.ResultOp) []core.ResultOp {
	var unapplied []core.ResultOp
	for _, op := range ops {
		switch vv := op.(type) {
		case *core.UpdateTripFields:
			applyTripFields(trip, vv.Fields)
		case *core.UpdateTripValues:
			if trip.Values == nil {
				trip.Values = make(map[string]interface{}, len(vv.Values))
			}
			for k, v := range vv.Values {
				trip.Values[k] = v
			}
		case *core.UpdateTripHistory:
			if trip.History == nil {
				trip.History = make(map[string]time.Time, len(vv.History))
			}
			for name, x := range vv.History {
				if t, ok := core.AsTime(x); ok {
					trip.History[name] = t
				}
			}
		case *core.UpdatePlayerFields:
			for _, p := range trip.Players {
				if vv.PlayerID != "" && p.ID != vv.PlayerID {
					continue
				}
				if vv.PlayerID == "" && p.RoleName != vv.RoleName {
					continue
				}
				applyPlayerFields(p, vv.Fields)
			}
		case *core.SwitchRole:
			if p := trip.PlayerForRole(vv.RoleName); p != nil {
				p.RoleName = vv.NewRole
			}
		default:
			unapplied = append(unapplied, op)
		}
	}
	return unapplied
}

func applyTripFields(trip *core.Trip, fields core.Values) {
	for k, x := range fields {
		switch k {
		case "currentSceneName":
			trip.CurrentSceneName, _ = x.(string)
		case "timezone":
			trip.Timezone, _ = x.(string)
		case "schedule":
			m, _ := x.(map[string]interface{})
			if trip.Schedule == nil {
				trip.Schedule = make(map[string]time.Time, len(m))
			}
			for name, at := range m {
				if t, ok := core.AsTime(at); ok {
					trip.Schedule[name] = t
				}
			}
		case "waypointOptions":
			m, _ := x.(map[string]interface{})
			if trip.WaypointOptions == nil {
				trip.WaypointOptions = make(map[string]string, len(m))
			}
			for name, opt := range m {
				if s, is := opt.(string); is {
					trip.WaypointOptions[name] = s
				}
			}
		}
	}
}

// applyPlayerFields ignores fields that are derived when the
// evaluation context is gathered, like "directive".
func applyPlayerFields(p *core.Player, fields core.Values) {
	for k, x := range fields {
		switch k {
		case "currentPageName":
			p.CurrentPageName, _ = x.(string)
		case "audio":
			switch vv := x.(type) {
			case map[string]interface{}:
				p.Audio = vv
			case core.Values:
				p.Audio = vv
			default:
				p.Audio = nil
			}
		case "values":
			if m, is := x.(map[string]interface{}); is {
				if p.Values == nil {
					p.Values = make(map[string]interface{}, len(m))
				}
				for k, v := range m {
					p.Values[k] = v
				}
			}
		}
	}
}
