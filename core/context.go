package core

import (
	"time"
)

// ActionContext is threaded through every evaluation and execution.
// Treat it as immutable; the With methods return modified copies.
type ActionContext struct {
	ScriptContent      *ScriptContent
	EvalContext        Values
	EvaluateAt         time.Time
	Timezone           string
	TriggeringPlayerID string
	TriggeringRoleName string
}

// WithEvalContext returns a copy using the given evaluation context.
func (ac *ActionContext) WithEvalContext(ec Values) *ActionContext {
	acc := *ac
	acc.EvalContext = ec
	return &acc
}

// WithEvent returns a copy whose evaluation context includes the
// event (or nil) as "event".
func (ac *ActionContext) WithEvent(event Params) *ActionContext {
	var x interface{}
	if event != nil {
		x = map[string]interface{}(event)
	}
	return ac.WithEvalContext(ac.EvalContext.Copy().Extend("event", x))
}

// ResolveRoleName turns the special role name "current" into the
// triggering role, which may be "".
func (ac *ActionContext) ResolveRoleName(name string) string {
	if name == "current" {
		return ac.TriggeringRoleName
	}
	return name
}

// Location returns the trip's time zone, defaulting to UTC.
func (ac *ActionContext) Location() *time.Location {
	return LoadLocation(ac.Timezone)
}

// LoadLocation is time.LoadLocation that falls back to UTC.
func LoadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DateFormat renders trip dates in evaluation contexts ("Saturday,
// February 1").
const DateFormat = "Monday, January 2"

// GatherEvalContext builds the EvaluationContext for a trip.  The
// result depends only on its arguments.
func GatherEvalContext(env *Env, script *ScriptContent, trip *Trip) Values {
	ec := NewValues()
	ec.Merge(trip.Customizations, trip.Values)

	var date interface{}
	if d, err := time.Parse("2006-01-02", trip.Date); err == nil {
		date = d.Format(DateFormat)
	}

	schedule := make(map[string]interface{}, len(trip.Schedule))
	for name, at := range trip.Schedule {
		schedule[name] = ISO(at)
	}
	// Times are also reachable by their slugged titles.  A slug never
	// shadows a declared time of that name.
	for name, at := range trip.Schedule {
		if t := script.Time(name); t != nil && t.Title != "" {
			if slug := VarForText(t.Title); slug != "" && script.Time(slug) == nil {
				schedule[slug] = ISO(at)
			}
		}
	}

	history := make(map[string]interface{}, len(trip.History))
	for name, at := range trip.History {
		history[name] = ISO(at)
	}

	waypointOptions := make(map[string]interface{}, len(trip.WaypointOptions))
	for name, opt := range trip.WaypointOptions {
		waypointOptions[name] = opt
	}

	ec.Extend("date", date).
		Extend("currentSceneName", trip.CurrentSceneName).
		Extend("waypointOptions", waypointOptions).
		Extend("schedule", schedule).
		Extend("history", history)

	// Selected waypoint options can carry values.
	for _, name := range sortedKeys(trip.WaypointOptions) {
		w := script.Waypoint(name)
		if w == nil {
			continue
		}
		for _, opt := range w.Options {
			if opt.Name == trip.WaypointOptions[name] {
				ec.Merge(opt.Values)
			}
		}
	}

	roleStates := make(map[string]interface{}, 8)
	for _, player := range trip.Players {
		role := script.Role(player.RoleName)
		if role == nil {
			continue
		}
		record := gatherPlayerEvalContext(env, script, trip, role, player)
		ec[player.RoleName] = record
		states, _ := roleStates[player.RoleName].([]interface{})
		roleStates[player.RoleName] = append(states, record)
	}
	ec.Extend("roleStates", roleStates)

	return ec
}

func gatherPlayerEvalContext(env *Env, script *ScriptContent, trip *Trip, role *Role, player *Player) map[string]interface{} {
	var (
		user    = player.User
		profile = player.Profile
	)
	if user == nil {
		user = &User{}
	}
	if profile == nil {
		profile = &Profile{}
	}

	record := NewValues().Merge(profile.Values, player.Values)

	host := ""
	if env != nil {
		host = env.Host
	}

	var directive interface{}
	if page := script.Page(player.CurrentPageName); page != nil && page.Directive != "" {
		directive = page.Directive
	}

	var audio interface{}
	if player.Audio != nil {
		audio = player.Audio
	}

	record.Extend("id", player.ID).
		Extend("roleName", player.RoleName).
		Extend("currentPageName", nullable(player.CurrentPageName)).
		Extend("link", host+"/s/"+player.ID).
		Extend("contact_name", nullable(first(role.Title, user.Name))).
		Extend("email", nullable(first(profile.Email, user.Email))).
		Extend("photo", nullable(profile.Photo)).
		Extend("facetime", nullable(profile.FacetimeUsername)).
		Extend("skype", nullable(profile.SkypeUsername)).
		Extend("phone_number", nullable(first(profile.PhoneNumber, user.PhoneNumber))).
		Extend("directive", directive).
		Extend("audio", audio)

	if loc := user.Location; loc != nil {
		record.Extend("location_latitude", loc.Latitude).
			Extend("location_longitude", loc.Longitude).
			Extend("location_accuracy", loc.Accuracy).
			Extend("location_timestamp", ISO(loc.Timestamp))
	} else {
		record.Extend("location_latitude", nil).
			Extend("location_longitude", nil).
			Extend("location_accuracy", nil).
			Extend("location_timestamp", nil)
	}

	return record
}

func first(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// nullable turns empty strings into nils, which is how missing
// details appear in evaluation contexts.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
