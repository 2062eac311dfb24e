// Package cues signals named cues.
package cues

import (
	"github.com/firstpersontravel/charter-sub005/core"
)

var Module = &core.Module{
	Name: "cues",
	Resources: map[string]*core.Resource{
		"cue": {
			Actions: map[string]*core.ActionDef{
				"signal_cue": {
					Help: "Signal a cue, which fires the triggers waiting for it.",
					Params: map[string]*core.ParamSpec{
						"cue_name": {Type: "reference", Collection: "cues", Required: true},
					},
					GetOps: func(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
						return []core.ResultOp{&core.EmitEvent{Event: Event(ps.String("cue_name"))}}, nil
					},
				},
			},
			Events: map[string]*core.EventDef{
				"cue_signaled": {
					Help: "Occurs when a cue is signaled.",
					SpecParams: map[string]*core.ParamSpec{
						"cue": {Type: "reference", Collection: "cues", Required: true},
					},
					MatchEvent: func(spec, event core.Params, ac *core.ActionContext) (bool, error) {
						return spec.String("cue") == event.String("cue"), nil
					},
				},
			},
		},
	},
}

// Event is the event for a signaled cue.
func Event(cue string) core.Params {
	return core.Params{"type": "cue_signaled", "cue": cue}
}
