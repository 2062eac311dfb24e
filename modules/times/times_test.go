package times

import (
	"testing"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/store"
)

var now = time.Date(2017, 2, 16, 21, 0, 0, 0, time.UTC)

func ac() *core.ActionContext {
	return &core.ActionContext{
		EvalContext: core.Values{
			"schedule": map[string]interface{}{
				"start": "2017-02-16T21:00:00.000Z",
			},
		},
		EvaluateAt: now,
		Timezone:   "US/Pacific",
	}
}

func TestWait(t *testing.T) {
	ops, _ := wait(core.Params{"duration": "10m"}, ac())
	if w, is := ops[0].(*core.Wait); !is || w.Seconds != 600 {
		t.Fatalf("%#v", ops[0])
	}
	ops, _ = wait(core.Params{"duration": "soon"}, ac())
	if _, is := ops[0].(*core.Log); !is {
		t.Fatalf("%#v", ops[0])
	}
}

func TestSetTime(t *testing.T) {
	c := ac()
	c.EvaluateAt = now.Add(time.Hour)
	ops, _ := setTime(core.Params{"time_name": "later"}, c)
	op := ops[0].(*core.UpdateTripFields)
	schedule := op.Fields["schedule"].(map[string]interface{})
	if len(schedule) != 1 || schedule["later"] != "2017-02-16T22:00:00.000Z" {
		t.Fatal(schedule)
	}

	// Folding keeps the other times.
	folded := op.Project(c.EvalContext).Map("schedule")
	if folded["later"] != "2017-02-16T22:00:00.000Z" || folded["start"] != "2017-02-16T21:00:00.000Z" {
		t.Fatal(folded)
	}
	if len(c.EvalContext.Map("schedule")) != 1 {
		t.Fatal("modified the context")
	}
}

func TestSetTimeTwiceMovesTitle(t *testing.T) {
	script := &core.ScriptContent{
		Times: []*core.Time{{Name: "TIME-1", Title: "Show Start"}},
	}
	trip := &core.Trip{ID: "t"}
	for _, d := range []time.Duration{time.Hour, 2 * time.Hour} {
		c := &core.ActionContext{
			ScriptContent: script,
			EvalContext:   core.GatherEvalContext(&core.Env{}, script, trip),
			EvaluateAt:    now.Add(d),
		}
		ops, _ := setTime(core.Params{"time_name": "TIME-1"}, c)
		if rest := store.Apply(trip, ops); len(rest) != 0 {
			t.Fatal(rest)
		}
	}

	if _, have := trip.Schedule["show_start"]; have {
		t.Fatal(trip.Schedule)
	}
	schedule := core.GatherEvalContext(&core.Env{}, script, trip).Map("schedule")
	if schedule["TIME-1"] != "2017-02-16T23:00:00.000Z" || schedule["show_start"] != schedule["TIME-1"] {
		t.Fatal(schedule)
	}

	// An alias persisted by older trips doesn't stick.
	trip.Schedule["show_start"] = now
	schedule = core.GatherEvalContext(&core.Env{}, script, trip).Map("schedule")
	if schedule["show_start"] != "2017-02-16T23:00:00.000Z" {
		t.Fatal(schedule)
	}
}

func TestTimeOccurred(t *testing.T) {
	unix := func(t time.Time) float64 { return float64(t.Unix()) }

	tests := []struct {
		name  string
		spec  core.Params
		event core.Params
		want  bool
	}{
		{"at", core.Params{"time": "start"}, core.Params{"timestamp": unix(now)}, true},
		{"early", core.Params{"time": "start"}, core.Params{"timestamp": unix(now) - 1}, false},
		{"already", core.Params{"time": "start"}, core.Params{"timestamp": unix(now) + 60, "last_timestamp": unix(now)}, false},
		{"window", core.Params{"time": "start"}, core.Params{"timestamp": unix(now) + 60, "last_timestamp": unix(now) - 60}, true},
		{"after", core.Params{"time": "start", "after": "5m"}, core.Params{"timestamp": unix(now) + 60}, false},
		{"after passed", core.Params{"time": "start", "after": "5m"}, core.Params{"timestamp": unix(now) + 300}, true},
		{"before", core.Params{"time": "start", "before": "5m"}, core.Params{"timestamp": unix(now) - 300}, true},
		{"offset", core.Params{"time": "start", "offset": "-1m"}, core.Params{"timestamp": unix(now) - 60}, true},
		{"unscheduled", core.Params{"time": "never"}, core.Params{"timestamp": unix(now)}, false},
		{"legacy", core.Params{"time": "start"}, core.Params{"to_timestamp": unix(now)}, true},
	}
	for _, tt := range tests {
		got, err := timeOccurred(tt.spec, tt.event, ac())
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %v", tt.name, got)
		}
	}
}

func TestTimeOccurredEvent(t *testing.T) {
	ev := TimeOccurredEvent(time.Time{}, now)
	if _, have := ev["last_timestamp"]; have {
		t.Fatal(ev)
	}
	ev = TimeOccurredEvent(now.Add(-time.Minute), now)
	if last, _ := ev.Float("last_timestamp"); last != float64(now.Unix()-60) {
		t.Fatal(ev)
	}
}

func TestTimeMatches(t *testing.T) {
	// 21:00 UTC is 13:00 in US/Pacific in February.
	c := ac()
	c.EvaluateAt = now.Add(30 * time.Second)
	for expr, want := range map[string]bool{
		"0 13 * * *":   true,
		"0 21 * * *":   false,
		"*/15 * * * *": true,
		"5 13 * * *":   false,
		"* 13 16 2 *":  true,
	} {
		got, err := timeMatches(core.Params{"cron": expr}, c)
		if err != nil {
			t.Fatal(expr, err)
		}
		if got != want {
			t.Fatalf("%s: got %v", expr, got)
		}
	}
	if _, err := timeMatches(core.Params{"cron": "nonsense"}, c); err == nil {
		t.Fatal("expected an error")
	}
}
