// Package geo provides the spatial predicates behind location events
// and conditions.
package geo

import (
	"math"

	"github.com/firstpersontravel/charter-sub005/core"
)

const (
	earthRadius = 6371e3 // meters

	// MaxAccuracy caps how much a reported location accuracy can
	// widen a geofence.
	MaxAccuracy = 10.0
)

// Distance is the great-circle distance in meters (haversine).
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLng := deg2rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180
}

// OptionForWaypoint returns the selected option for the waypoint.
// Without a valid selection the first option is used.  Returns nil
// only for an unknown waypoint or one without options.
func OptionForWaypoint(script *core.ScriptContent, waypointName string, waypointOptions map[string]string) *core.WaypointOption {
	w := script.Waypoint(waypointName)
	if w == nil || len(w.Options) == 0 {
		return nil
	}
	if selected, have := waypointOptions[waypointName]; have {
		for _, opt := range w.Options {
			if opt.Name == selected {
				return opt
			}
		}
	}
	return w.Options[0]
}

// WaypointOptions extracts the selections from an evaluation context.
func WaypointOptions(ec core.Values) map[string]string {
	m := ec.Map("waypointOptions")
	acc := make(map[string]string, len(m))
	for k, v := range m {
		if s, is := v.(string); is {
			acc[k] = s
		}
	}
	return acc
}

// Point is a reported location.  A nil coordinate means unknown.
type Point struct {
	Latitude  *float64
	Longitude *float64
	Accuracy  float64
}

// PointFrom reads latitude, longitude and accuracy from a map like an
// event's "location".
func PointFrom(m map[string]interface{}, latKey, lngKey, accKey string) Point {
	var p Point
	if f, ok := core.AsFloat(m[latKey]); ok {
		p.Latitude = &f
	}
	if f, ok := core.AsFloat(m[lngKey]); ok {
		p.Longitude = &f
	}
	p.Accuracy, _ = core.AsFloat(m[accKey])
	return p
}

// IsOverlappingGeofence reports whether the point, widened by its
// accuracy (at most MaxAccuracy), is within the geofence.
func IsOverlappingGeofence(script *core.ScriptContent, waypointOptions map[string]string, p Point, g *core.Geofence) bool {
	return IsWithinGeofence(script, waypointOptions, p, g, MaxAccuracy)
}

// IsWithinGeofence is IsOverlappingGeofence with a caller's own cap on
// the accuracy grace.
func IsWithinGeofence(script *core.ScriptContent, waypointOptions map[string]string, p Point, g *core.Geofence, maxAccuracy float64) bool {
	if p.Latitude == nil || p.Longitude == nil || g == nil {
		return false
	}
	opt := OptionForWaypoint(script, g.Center, waypointOptions)
	if opt == nil || len(opt.Coords) < 2 {
		return false
	}
	dist := Distance(*p.Latitude, *p.Longitude, opt.Coords[0], opt.Coords[1])
	accuracy := math.Min(math.Max(p.Accuracy, 0), maxAccuracy)
	return dist-accuracy <= g.Distance
}

// GeofencesInArea returns every geofence that contains the point.
func GeofencesInArea(script *core.ScriptContent, waypointOptions map[string]string, p Point) []*core.Geofence {
	if p.Latitude == nil || p.Longitude == nil || script == nil {
		return nil
	}
	var acc []*core.Geofence
	for _, g := range script.Geofences {
		if IsOverlappingGeofence(script, waypointOptions, p, g) {
			acc = append(acc, g)
		}
	}
	return acc
}
