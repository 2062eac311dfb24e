package core

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	. "github.com/firstpersontravel/charter-sub005/util/testutil"
)

// testModule is a tiny module for exercising the kernel without the
// real resource modules.
var testModule = &Module{
	Name: "test",
	Resources: map[string]*Resource{
		"test": {
			Actions: map[string]*ActionDef{
				"cue": {
					GetOps: func(ps Params, ac *ActionContext) ([]ResultOp, error) {
						return []ResultOp{&EmitEvent{Event: Params{
							"type": "cue_signaled",
							"cue":  ps.String("cue_name"),
						}}}, nil
					},
				},
				"set": {
					GetOps: func(ps Params, ac *ActionContext) ([]ResultOp, error) {
						return []ResultOp{&UpdateTripValues{Values: Values{
							ps.String("value_ref"): ps["value"],
						}}}, nil
					},
				},
				"record": {
					GetOps: func(ps Params, ac *ActionContext) ([]ResultOp, error) {
						return []ResultOp{&Log{
							Level:   LevelInfo,
							Message: fmt.Sprintf("%v", LookupRef(ac.EvalContext, ps.String("ref"), "")),
						}}, nil
					},
				},
				"pause": {
					GetOps: func(ps Params, ac *ActionContext) ([]ResultOp, error) {
						secs, _ := ps.Float("seconds")
						return []ResultOp{&Wait{Seconds: secs}}, nil
					},
				},
				"explode": {
					GetOps: func(ps Params, ac *ActionContext) ([]ResultOp, error) {
						return nil, fmt.Errorf("exploded")
					},
				},
			},
			Events: map[string]*EventDef{
				"cue_signaled": {
					MatchEvent: func(spec, event Params, ac *ActionContext) (bool, error) {
						return spec.String("cue") == event.String("cue"), nil
					},
				},
				"time_occurred": {
					MatchEvent: func(spec, event Params, ac *ActionContext) (bool, error) {
						return true, nil
					},
				},
			},
			Conditions: map[string]*ConditionDef{
				"istrue": {
					Eval: func(ps Params, ac *ActionContext) (bool, error) {
						return Truthy(LookupRef(ac.EvalContext, ps["ref"], ac.TriggeringRoleName)), nil
					},
				},
			},
		},
	},
}

func testRegistry(t *testing.T) *Registry {
	r, err := NewRegistry(testModule)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

var testNow = time.Date(2017, 2, 16, 21, 0, 0, 0, time.UTC)

func testContext(ec string) *ActionContext {
	return &ActionContext{
		ScriptContent: &ScriptContent{},
		EvalContext:   Values(Map(ec)),
		EvaluateAt:    testNow,
		Timezone:      "US/Pacific",
	}
}

func parseClause(t *testing.T, js string) *Clause {
	var c Clause
	if err := json.Unmarshal([]byte(js), &c); err != nil {
		t.Fatal(err)
	}
	return &c
}

func parseScript(t *testing.T, js string) *ScriptContent {
	c, err := ParseScript([]byte(js))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func names(as []*PlainAction) []string {
	acc := make([]string, len(as))
	for i, a := range as {
		acc[i] = a.Name + ":" + a.Params.String("cue_name")
	}
	return acc
}
