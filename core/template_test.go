package core

import (
	"testing"

	. "github.com/firstpersontravel/charter-sub005/util/testutil"
)

func TestLookupRef(t *testing.T) {
	ec := Values(Map(`{
		"a": {"b": [{"c": "deep"}]},
		"flag": true,
		"roleStates": {"Player": [{"name":"first"}]}
	}`))

	tests := []struct {
		ref  interface{}
		want interface{}
	}{
		{true, true},
		{nil, nil},
		{3.5, 3.5},
		{"12", float64(12)},
		{"true", true},
		{"null", nil},
		{`"quoted"`, "quoted"},
		{`'single'`, "single"},
		{"a.b[0].c", "deep"},
		{"a.b.0.c", "deep"},
		{"flag", true},
		{"missing.path", nil},
		{"player.name", "first"},
	}
	for _, tt := range tests {
		if got := LookupRef(ec, tt.ref, "Player"); got != tt.want {
			t.Fatalf("%v: got %#v, want %#v", tt.ref, got, tt.want)
		}
	}

	// Without a role, "player." is just a path.
	if got := LookupRef(ec, "player.name", ""); got != nil {
		t.Fatal(got)
	}
}

func TestTemplateText(t *testing.T) {
	ec := Values(Map(`{
		"name": "Ada",
		"on": true,
		"off": false,
		"phone": "5551234567",
		"when": "2017-02-16T21:44:02.000Z",
		"count": 3
	}`))

	tests := []struct {
		text interface{}
		want string
	}{
		{nil, ""},
		{true, "Yes"},
		{false, "No"},
		{float64(7), "7"},
		{"Hi {{ name }}!", "Hi Ada!"},
		{"{{count}} left", "3 left"},
		{"Call {{phone}}", "Call (555) 123-4567"},
		{"At {{when}}", "At 9:44pm"},
		{"{% if on %}yes{% else %}no{% endif %}", "yes"},
		{"{% if off %}yes{% else %}no{% endif %}", "no"},
		{"{% if off %}yes{% endif %}.", "."},
		{"{{missing}}|", "|"},
	}
	for _, tt := range tests {
		if got := TemplateText(ec, tt.text, "UTC", ""); got != tt.want {
			t.Fatalf("%v: got %q, want %q", tt.text, got, tt.want)
		}
	}
}
