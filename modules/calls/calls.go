// Package calls drives phone calls between roles.
package calls

import (
	"github.com/firstpersontravel/charter-sub005/core"
)

// DefaultVoice speaks clips that have no recording.
const DefaultVoice = "alice"

var fromTo = map[string]*core.ParamSpec{
	"from": {Type: "reference", Collection: "roles", Required: true},
	"to":   {Type: "reference", Collection: "roles", Required: true},
}

func exactFromTo(spec, event core.Params, ac *core.ActionContext) (bool, error) {
	return spec.String("from") == event.String("from") &&
		spec.String("to") == event.String("to"), nil
}

var Module = &core.Module{
	Name: "calls",
	Resources: map[string]*core.Resource{
		"call": {
			Actions: map[string]*core.ActionDef{
				"initiate_call": {
					Help: "Call one role from another.",
					Params: map[string]*core.ParamSpec{
						"to_role_name":     {Type: "reference", Collection: "roles", Required: true},
						"as_role_name":     {Type: "reference", Collection: "roles", Required: true},
						"detect_voicemail": {Type: "boolean"},
					},
					GetOps: initiateCall,
				},
				"play_clip": {
					Help: "Play or speak a clip on the active call.",
					Params: map[string]*core.ParamSpec{
						"clip_name": {Type: "reference", Collection: "clips", Required: true},
					},
					GetOps: playClip,
				},
				"hangup": {
					Help:   "End the active call.",
					GetOps: hangup,
				},
			},
			Events: map[string]*core.EventDef{
				"call_answered": {
					Help:       "Occurs when an outgoing call is answered.",
					SpecParams: fromTo,
					MatchEvent: exactFromTo,
				},
				"call_received": {
					Help:       "Occurs when an incoming call arrives.",
					SpecParams: fromTo,
					MatchEvent: exactFromTo,
				},
				"call_ended": {
					Help: "Occurs when a call including the role ends.",
					SpecParams: map[string]*core.ParamSpec{
						"role": {Type: "reference", Collection: "roles", Required: true},
					},
					MatchEvent: func(spec, event core.Params, ac *core.ActionContext) (bool, error) {
						role := spec.String("role")
						for _, r := range event.Strings("roles") {
							if r == role {
								return true, nil
							}
						}
						return false, nil
					},
				},
			},
		},
	},
}

func initiateCall(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	to, as := ps.String("to_role_name"), ps.String("as_role_name")
	if ac.ScriptContent.Role(to) == nil || ac.ScriptContent.Role(as) == nil {
		return []core.ResultOp{core.Errorf("Could not find roles %q and %q.", to, as)}, nil
	}
	clause := "dial"
	if ps.Bool("detect_voicemail") {
		clause = "dial_detect_voicemail"
	}
	return []core.ResultOp{&core.Twiml{Clause: clause, From: as, To: to}}, nil
}

// callRoles names the parties of the call that triggered the action.
func callRoles(ac *core.ActionContext) (from, to string) {
	from, _ = ac.EvalContext.Map("event")["from"].(string)
	to, _ = ac.EvalContext.Map("event")["to"].(string)
	return
}

func playClip(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	name := ps.String("clip_name")
	clip := ac.ScriptContent.Clip(name)
	if clip == nil {
		return []core.ResultOp{core.Errorf("Could not find clip named %q.", name)}, nil
	}
	from, to := callRoles(ac)
	if clip.AudioPath != "" {
		return []core.ResultOp{&core.Twiml{Clause: "play", From: from, To: to, Media: clip.AudioPath}}, nil
	}
	voice := clip.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	return []core.ResultOp{&core.Twiml{
		Clause:  "say",
		From:    from,
		To:      to,
		Voice:   voice,
		Message: core.TemplateText(ac.EvalContext, clip.Transcript, ac.Timezone, ac.TriggeringRoleName),
	}}, nil
}

func hangup(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	from, to := callRoles(ac)
	return []core.ResultOp{&core.Twiml{Clause: "hangup", From: from, To: to}}, nil
}
