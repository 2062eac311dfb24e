// Package charter runs interactive experiences described by scripts.
//
// A script declares roles, scenes, pages and triggers.  The kernel in
// package 'core' turns an event into the ops and scheduled actions its
// triggers call for.  Package 'modules' registers the actions, events
// and conditions scripts may use.  Package 'service' applies results
// to stored trips, fires scheduled actions, and feeds time and
// location events in.  The `charter` command in cmd/charter serves
// all of this over HTTP, websockets and MQTT.
package charter
