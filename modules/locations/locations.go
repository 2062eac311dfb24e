// Package locations matches geofence events and conditions.
package locations

import (
	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/geo"
)

var Module = &core.Module{
	Name: "locations",
	Resources: map[string]*core.Resource{
		"geofence": {
			Events: map[string]*core.EventDef{
				"geofence_entered": {
					Help: "Occurs when a role enters a geofence.",
					SpecParams: map[string]*core.ParamSpec{
						"role":     {Type: "reference", Collection: "roles", Required: true},
						"geofence": {Type: "reference", Collection: "geofences", Required: true},
					},
					MatchEvent: func(spec, event core.Params, ac *core.ActionContext) (bool, error) {
						return spec.String("role") == event.String("role") &&
							spec.String("geofence") == event.String("geofence"), nil
					},
				},
			},
			Conditions: map[string]*core.ConditionDef{
				"role_in_geofence": {
					Help: "Passes if the role's last known location is inside the geofence.",
					Properties: map[string]*core.ParamSpec{
						"role_name":     {Type: "reference", Collection: "roles", Required: true},
						"geofence_name": {Type: "reference", Collection: "geofences", Required: true},
					},
					Eval: roleInGeofence,
				},
			},
		},
	},
}

func roleInGeofence(ps core.Params, ac *core.ActionContext) (bool, error) {
	g := ac.ScriptContent.Geofence(ps.String("geofence_name"))
	if g == nil {
		return false, nil
	}
	record := ac.EvalContext.Map(ac.ResolveRoleName(ps.String("role_name")))
	p := geo.PointFrom(record, "location_latitude", "location_longitude", "location_accuracy")
	return geo.IsOverlappingGeofence(ac.ScriptContent, geo.WaypointOptions(ac.EvalContext), p, g), nil
}

// GeofenceEvents returns the geofence_entered events for a role that
// has moved from one point to another: one for every geofence that
// contains the new point but not the old one.
func GeofenceEvents(c *core.ScriptContent, waypointOptions map[string]string, roleName string, from, to geo.Point) []core.Params {
	before := make(map[string]bool)
	for _, g := range geo.GeofencesInArea(c, waypointOptions, from) {
		before[g.Name] = true
	}
	var acc []core.Params
	for _, g := range geo.GeofencesInArea(c, waypointOptions, to) {
		if before[g.Name] {
			continue
		}
		acc = append(acc, core.Params{
			"type":     "geofence_entered",
			"role":     roleName,
			"geofence": g.Name,
		})
	}
	return acc
}
