package messages

import (
	"math"
	"testing"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	. "github.com/firstpersontravel/charter-sub005/util/testutil"
	"github.com/google/go-cmp/cmp"
)

var now = time.Date(2017, 2, 16, 21, 0, 0, 0, time.UTC)

var script = &core.ScriptContent{
	Roles: []*core.Role{
		{Name: "Traveler", Type: "traveler"},
		{Name: "Guide", Actor: true},
		{Name: "Narrator"},
	},
	Messages: []*core.Message{
		{Name: "WELCOME", Medium: "text", Content: "Hi {{Traveler.contact_name}}", From: "Guide", To: "Traveler", Read: true},
		{Name: "LOOSE", Medium: "image", Content: "x.jpg", From: "Guide"},
	},
	Waypoints: []*core.Waypoint{
		{Name: "park", Options: []*core.WaypointOption{{Name: "p", Coords: []float64{37.8, -122.4}}}},
	},
	Geofences: []*core.Geofence{{Name: "gate", Center: "park", Distance: 50}},
}

func ac() *core.ActionContext {
	return &core.ActionContext{
		ScriptContent: script,
		EvalContext:   core.Values{"Traveler": map[string]interface{}{"contact_name": "Ada"}},
		EvaluateAt:    now,
		Timezone:      "UTC",
	}
}

func TestSendText(t *testing.T) {
	ops, err := sendText(core.Params{
		"from_role_name": "Traveler",
		"to_role_name":   "Guide",
		"content":        "hello from {{Traveler.contact_name}}",
		"latitude":       37.8,
		"longitude":      -122.4,
	}, ac())
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Fatal(ops)
	}
	cm := ops[0].(*core.CreateMessage)
	if cm.Fields["content"] != "hello from Ada" || cm.Fields["isReplyNeeded"] != true || cm.Fields["medium"] != "text" {
		t.Fatal(JS(cm))
	}
	if cm.Fields["createdAt"] != "2017-02-16T21:00:00.000Z" {
		t.Fatal(cm.Fields["createdAt"])
	}
	ev := ops[1].(*core.EmitEvent).Event
	want := Map(`{
		"type": "text_received",
		"message": {"from":"Traveler","to":"Guide","medium":"text","content":"hello from Ada"},
		"location": {"latitude":37.8,"longitude":-122.4,"accuracy":null}
	}`)
	if diff := cmp.Diff(want, Dwimjs(JS(ev))); diff != "" {
		t.Fatal(diff)
	}

	ops, _ = sendText(core.Params{"from_role_name": "Nobody"}, ac())
	if _, is := ops[0].(*core.Log); !is {
		t.Fatalf("%#v", ops)
	}
}

func TestSendCustomMessage(t *testing.T) {
	ops, _ := sendCustomMessage(core.Params{
		"from_role_name": "Narrator",
		"to_role_name":   "Guide",
		"medium":         "image",
		"content":        "pic.jpg",
	}, ac())
	cm := ops[0].(*core.CreateMessage)
	if cm.Fields["isReplyNeeded"] != true || cm.Fields["isInGallery"] != true {
		t.Fatal(JS(cm))
	}
	if ev := ops[1].(*core.EmitEvent).Event; ev.Type() != "message_received" {
		t.Fatal(ev)
	}

	ops, _ = sendCustomMessage(core.Params{
		"from_role_name": "Guide",
		"to_role_name":   "Traveler",
		"medium":         "text",
		"content":        "hi",
	}, ac())
	if ops[0].(*core.CreateMessage).Fields["isReplyNeeded"] != false {
		t.Fatal("actors don't need replies from themselves")
	}

	ops, _ = sendCustomMessage(core.Params{
		"from_role_name": "Guide",
		"to_role_name":   "Traveler",
		"medium":         "fax",
	}, ac())
	if _, is := ops[0].(*core.Log); !is {
		t.Fatalf("%#v", ops)
	}
}

func TestSendMessage(t *testing.T) {
	ops, _ := sendMessage(core.Params{"message_name": "WELCOME"}, ac())
	want := []core.ResultOp{&core.CreateMessage{Fields: core.Values{
		"sentByRoleName": "Guide",
		"sentToRoleName": "Traveler",
		"createdAt":      "2017-02-16T21:00:00.000Z",
		"readAt":         "2017-02-16T21:00:00.000Z",
		"name":           "WELCOME",
		"medium":         "text",
		"content":        "Hi Ada",
	}}}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatal(diff)
	}

	for _, ps := range []core.Params{{"message_name": "NOPE"}, {"message_name": "LOOSE"}} {
		ops, _ := sendMessage(ps, ac())
		if l, is := ops[0].(*core.Log); !is || l.Level != core.LevelError {
			t.Fatalf("%v: %#v", ps, ops)
		}
	}

	ops, _ = sendMessage(core.Params{"message_name": "LOOSE", "to_role_name": "Traveler"}, ac())
	if f := ops[0].(*core.CreateMessage).Fields; f["sentToRoleName"] != "Traveler" || f["readAt"] != nil {
		t.Fatal(JS(f))
	}
}

func TestMessageEvents(t *testing.T) {
	r := core.MustRegistry(Module)
	event := core.Params(Map(`{
		"message": {"from":"Traveler","to":"Guide","medium":"text","content":"Hello There"},
		"location": {"latitude":37.8,"longitude":-122.4,"accuracy":5}
	}`))
	image := core.Params(Map(`{
		"message": {"from":"Traveler","to":"Guide","medium":"image","content":"x.jpg"},
		"location": {}
	}`))

	tests := []struct {
		typ   string
		spec  string
		event core.Params
		want  bool
	}{
		{"text_received", `{}`, event, true},
		{"text_received", `{"from":"Traveler"}`, event, true},
		{"text_received", `{"from":"Guide"}`, event, false},
		{"text_received", `{"to":"Guide","contains":"THERE"}`, event, true},
		{"text_received", `{"contains":"bye"}`, event, false},
		{"text_received", `{"geofence":"gate"}`, event, true},
		{"text_received", `{"geofence":"missing"}`, event, false},
		{"text_received", `{}`, image, false},
		{"image_received", `{}`, image, true},
		{"image_received", `{"geofence":"gate"}`, image, false},
		{"image_received", `{}`, event, false},
		{"message_received", `{}`, image, true},
		{"message_received", `{"medium":"text"}`, image, false},
		{"message_received", `{"medium":"text","contains":"hello"}`, event, true},
	}
	for _, tt := range tests {
		def, have := r.Event(tt.typ)
		if !have {
			t.Fatal(tt.typ)
		}
		got, err := def.MatchEvent(core.Params(Map(tt.spec)), tt.event, ac())
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Fatalf("%s %s: got %v", tt.typ, tt.spec, got)
		}
	}
}

// Reported accuracy widens the geofence by at most 15 meters.
func TestMessageGeofenceAccuracy(t *testing.T) {
	def, _ := core.MustRegistry(Module).Event("text_received")
	spec := core.Params{"geofence": "gate"}
	metersNorth := func(m float64) float64 {
		return 37.8 + m/(6371e3*math.Pi/180)
	}
	tests := []struct {
		meters, accuracy float64
		want             bool
	}{
		{0, 500, true},
		{45, 0, true},
		{63, 15, true},
		{63, 500, true},
		{63, 10, false},
		{66, 15, false},
		{66, 500, false},
	}
	for _, tt := range tests {
		loc := map[string]interface{}{
			"latitude":  metersNorth(tt.meters),
			"longitude": -122.4,
			"accuracy":  tt.accuracy,
		}
		event := core.Params{"location": loc}
		event["message"] = map[string]interface{}{"from": "Traveler", "medium": "text", "content": "here"}
		got, err := def.MatchEvent(spec, event, ac())
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Fatalf("%vm accuracy %v: got %v", tt.meters, tt.accuracy, got)
		}
	}
}

func TestMessageContains(t *testing.T) {
	c := ac().WithEvent(core.Params(Map(`{"message":{"content":"Where is the KEY?"}}`)))
	if ok, _ := messageContains(core.Params{"part": "key"}, c); !ok {
		t.Fatal("expected a match")
	}
	if ok, _ := messageContains(core.Params{"part": "lock"}, c); ok {
		t.Fatal("unexpected match")
	}
	if ok, _ := messageContains(core.Params{"part": "key"}, ac()); ok {
		t.Fatal("no event, no match")
	}
}
