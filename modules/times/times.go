// Package times provides waits, schedule changes and the time
// events and conditions.
package times

import (
	"fmt"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/gorhill/cronexpr"
)

var Module = &core.Module{
	Name: "time",
	Resources: map[string]*core.Resource{
		"time": {
			Actions: map[string]*core.ActionDef{
				"wait": {
					Help: "Delay the actions after this one.",
					Params: map[string]*core.ParamSpec{
						"duration": {Type: "duration", Required: true, Help: `For example "10m".`},
					},
					GetOps: wait,
				},
				"set_time": {
					Help: "Set a named time to now.",
					Params: map[string]*core.ParamSpec{
						"time_name": {Type: "reference", Collection: "times", Required: true},
					},
					GetOps: setTime,
				},
			},
			Events: map[string]*core.EventDef{
				"time_occurred": {
					Help: "Occurs when a scheduled time, plus or minus an offset, passes.",
					SpecParams: map[string]*core.ParamSpec{
						"time":   {Type: "reference", Collection: "times", Required: true},
						"before": {Type: "duration"},
						"after":  {Type: "duration"},
					},
					MatchEvent: timeOccurred,
				},
			},
			Conditions: map[string]*core.ConditionDef{
				"time_matches": {
					Help: "Passes if the current minute, in the trip's time zone, matches the cron expression.",
					Properties: map[string]*core.ParamSpec{
						"cron": {Type: "string", Required: true, Help: `For example "*/5 9-17 * * *".`},
					},
					Eval: timeMatches,
				},
			},
		},
	},
}

func wait(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	d := ps.String("duration")
	secs := core.SecondsForDurationShorthand(d)
	if secs <= 0 {
		return []core.ResultOp{core.Errorf("Invalid wait duration %q.", d)}, nil
	}
	return []core.ResultOp{&core.Wait{Seconds: secs}}, nil
}

func setTime(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	name := ps.String("time_name")
	if name == "" {
		return []core.ResultOp{core.Errorf("set_time without a time_name")}, nil
	}
	return []core.ResultOp{&core.UpdateTripFields{
		Fields: core.Values{"schedule": map[string]interface{}{
			name: core.ISO(ac.EvaluateAt),
		}},
	}}, nil
}

// TimeForSpec resolves a time_occurred spec against the schedule in
// the evaluation context.
func TimeForSpec(spec core.Params, ec core.Values) (time.Time, bool) {
	at, ok := core.AsTime(ec.Map("schedule")[spec.String("time")])
	if !ok {
		return time.Time{}, false
	}
	var offset float64
	switch {
	case spec.String("after") != "":
		offset = core.SecondsForDurationShorthand(spec.String("after"))
	case spec.String("before") != "":
		offset = -core.SecondsForDurationShorthand(spec.String("before"))
	default:
		offset = core.SecondsForOffsetShorthand(spec.String("offset"))
	}
	return at.Add(time.Duration(offset * float64(time.Second))), true
}

// timeOccurred matches when the spec's time is in
// (last_timestamp, timestamp].
func timeOccurred(spec, event core.Params, ac *core.ActionContext) (bool, error) {
	at, ok := TimeForSpec(spec, ac.EvalContext)
	if !ok {
		return false, nil
	}
	if last, have := event.Float("last_timestamp"); have && last != 0 {
		if !at.After(time.Unix(int64(last), 0)) {
			return false, nil
		}
	}
	to, have := event.Float("timestamp")
	if !have {
		to, _ = event.Float("to_timestamp")
	}
	if at.After(time.Unix(int64(to), 0)) {
		return false, nil
	}
	return true, nil
}

// TimeOccurredEvent is the event a clock tick produces.
func TimeOccurredEvent(last, now time.Time) core.Params {
	ev := core.Params{
		"type":      "time_occurred",
		"timestamp": float64(now.Unix()),
	}
	if !last.IsZero() {
		ev["last_timestamp"] = float64(last.Unix())
	}
	return ev
}

func timeMatches(ps core.Params, ac *core.ActionContext) (bool, error) {
	src := ps.String("cron")
	expr, err := cronexpr.Parse(src)
	if err != nil {
		return false, fmt.Errorf("time_matches: bad cron expression %q: %w", src, err)
	}
	minute := ac.EvaluateAt.In(ac.Location()).Truncate(time.Minute)
	return expr.Next(minute.Add(-time.Second)).Equal(minute), nil
}
