package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInitialResult(t *testing.T) {
	ac := testContext(`{"x":1}`)
	r := InitialResult(ac)
	if r.NextContext != ac || len(r.ResultOps) != 0 || len(r.ScheduledActions) != 0 {
		t.Fatal(r)
	}
}

func TestResultForOpsFolds(t *testing.T) {
	ac := testContext(`{
		"Tester": {"currentPageName":"PAGE-1","link":"/s/1"},
		"history": {"old":"2017-02-16T20:00:00.000Z"},
		"v": 1
	}`)
	ops := []ResultOp{
		&UpdatePlayerFields{RoleName: "Tester", Fields: Values{"currentPageName": "PAGE-2"}},
		&UpdateTripFields{Fields: Values{"currentSceneName": "SCENE-2"}},
		&UpdateTripValues{Values: Values{"v": 2, "w": "new"}},
		&UpdateTripHistory{History: Values{"t1": "2017-02-16T21:00:00.000Z"}},
		&Log{Level: LevelInfo, Message: "passes through"},
	}

	r := ResultForOps(ops, ac)

	want := Values{
		"Tester":           map[string]interface{}{"currentPageName": "PAGE-2", "link": "/s/1"},
		"history":          map[string]interface{}{"old": "2017-02-16T20:00:00.000Z", "t1": "2017-02-16T21:00:00.000Z"},
		"v":                2,
		"w":                "new",
		"currentSceneName": "SCENE-2",
	}
	if diff := cmp.Diff(want, r.NextContext.EvalContext); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
	if len(r.ResultOps) != len(ops) {
		t.Fatal(len(r.ResultOps))
	}

	// The original context is untouched.
	if ac.EvalContext["v"] != float64(1) {
		t.Fatal(ac.EvalContext["v"])
	}
	if ac.EvalContext.Map("Tester")["currentPageName"] != "PAGE-1" {
		t.Fatal(ac.EvalContext["Tester"])
	}
}

func TestResultForOpsFoldsByPlayerID(t *testing.T) {
	ac := testContext(`{
		"Tester": {"id":"p1","currentPageName":"PAGE-1"},
		"Other": {"id":"p2","currentPageName":"PAGE-1"},
		"roleStates": {
			"Tester": [{"id":"p1","currentPageName":"PAGE-1"}],
			"Other": [{"id":"p2","currentPageName":"PAGE-1"}]
		}
	}`)
	r := ResultForOps([]ResultOp{
		&UpdatePlayerFields{PlayerID: "p1", Fields: Values{"currentPageName": "PAGE-2"}},
	}, ac)

	ec := r.NextContext.EvalContext
	if got := ec.Map("Tester")["currentPageName"]; got != "PAGE-2" {
		t.Fatal(got)
	}
	if got, _ := ec.Get("roleStates.Tester[0].currentPageName"); got != "PAGE-2" {
		t.Fatal(got)
	}
	if got := ec.Map("Other")["currentPageName"]; got != "PAGE-1" {
		t.Fatal(got)
	}
	if got := ac.EvalContext.Map("Tester")["currentPageName"]; got != "PAGE-1" {
		t.Fatal("original context changed")
	}
}

func TestResultForOpsMergesSchedule(t *testing.T) {
	ac := testContext(`{"schedule": {"a":"2017-02-16T20:00:00.000Z"}}`)
	r := ResultForOps([]ResultOp{
		&UpdateTripFields{Fields: Values{
			"schedule":         map[string]interface{}{"b": "2017-02-16T21:00:00.000Z"},
			"currentSceneName": "S",
		}},
	}, ac)
	want := map[string]interface{}{
		"a": "2017-02-16T20:00:00.000Z",
		"b": "2017-02-16T21:00:00.000Z",
	}
	if diff := cmp.Diff(want, r.NextContext.EvalContext.Map("schedule")); diff != "" {
		t.Fatal(diff)
	}
	if r.NextContext.EvalContext["currentSceneName"] != "S" {
		t.Fatal(r.NextContext.EvalContext)
	}
}

func TestResultForOpsPassThrough(t *testing.T) {
	ac := testContext(`{"v":1}`)
	r := ResultForOps([]ResultOp{
		&Log{Level: LevelWarn, Message: "m"},
		&SendEmail{Subject: "s"},
		&CreateMessage{},
		&EmitEvent{Event: Params{"type": "x"}},
		&Twiml{Clause: "say"},
	}, ac)
	if diff := cmp.Diff(ac.EvalContext, r.NextContext.EvalContext); diff != "" {
		t.Fatal(diff)
	}
}

func TestConcatResult(t *testing.T) {
	ac := testContext(`{}`)
	a := ResultForOps([]ResultOp{&Log{Message: "a"}}, ac)
	a.ScheduledActions = append(a.ScheduledActions, &ScheduledAction{Name: "one"})
	b := ResultForOps([]ResultOp{&UpdateTripValues{Values: Values{"x": 1}}}, ac)
	b.ScheduledActions = append(b.ScheduledActions, &ScheduledAction{Name: "two"})

	c := ConcatResult(a, b)
	if c.NextContext != b.NextContext {
		t.Fatal("expected b's context")
	}
	if len(c.ResultOps) != 2 || c.ResultOps[0].(*Log).Message != "a" {
		t.Fatal(c.ResultOps)
	}
	if len(c.ScheduledActions) != 2 || c.ScheduledActions[1].Name != "two" {
		t.Fatal(c.ScheduledActions)
	}

	// Associative on ops.
	d := ResultForOps([]ResultOp{&Log{Message: "d"}}, ac)
	left := ConcatResult(ConcatResult(a, b), d)
	right := ConcatResult(a, ConcatResult(b, d))
	if len(left.ResultOps) != len(right.ResultOps) || left.NextContext != right.NextContext {
		t.Fatal("not associative")
	}
}

// An action sees the folded effects of an earlier action in the same
// dispatch before anything is persisted.
func TestResultFoldingVisibleToLaterActions(t *testing.T) {
	k := NewKernel(testRegistry(t))
	ac := testContext(`{}`)

	first, err := k.ResultForImmediateAction(&ScheduledAction{
		Name:   "set",
		Params: Params{"value_ref": "x", "value": 1},
	}, ac)
	if err != nil {
		t.Fatal(err)
	}
	second, err := k.ResultForImmediateAction(&ScheduledAction{
		Name:   "record",
		Params: Params{"ref": "x"},
	}, first.NextContext)
	if err != nil {
		t.Fatal(err)
	}
	if msg := second.ResultOps[0].(*Log).Message; msg != "1" {
		t.Fatal(msg)
	}
	if _, have := ac.EvalContext["x"]; have {
		t.Fatal("original context changed")
	}
}
