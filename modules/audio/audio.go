// Package audio controls each role's background audio.
//
// A role's audio state lives in its player record as "audio":
//
//	{name, path, isPlaying, startedAt, startedTime, pausedTime}
//
// startedAt is when playback (re)started and startedTime is the
// offset into the track, in seconds, at that moment.
package audio

import (
	"github.com/firstpersontravel/charter-sub005/core"
)

var roleParam = map[string]*core.ParamSpec{
	"role_name": {Type: "reference", Collection: "roles", Required: true, Help: `A role, or "current".`},
}

var Module = &core.Module{
	Name: "audio",
	Resources: map[string]*core.Resource{
		"audio": {
			Actions: map[string]*core.ActionDef{
				"play_audio": {
					Help: "Start audio from the beginning.",
					Params: map[string]*core.ParamSpec{
						"role_name":  roleParam["role_name"],
						"audio_name": {Type: "reference", Collection: "audio", Required: true},
					},
					GetOps: playAudio,
				},
				"pause_audio": {
					Help:   "Pause the current audio.",
					Params: roleParam,
					GetOps: pauseAudio,
				},
				"resume_audio": {
					Help:   "Resume paused audio.",
					Params: roleParam,
					GetOps: resumeAudio,
				},
				"stop_audio": {
					Help:   "Stop and forget the current audio.",
					Params: roleParam,
					GetOps: stopAudio,
				},
			},
			Conditions: map[string]*core.ConditionDef{
				"audio_is_playing": {
					Help:       "Passes if the role's audio is playing.",
					Properties: roleParam,
					Eval: func(ps core.Params, ac *core.ActionContext) (bool, error) {
						state := State(ac, ac.ResolveRoleName(ps.String("role_name")))
						return state != nil && core.Truthy(state["isPlaying"]), nil
					},
				},
			},
		},
	},
}

// State returns the role's audio state, or nil.
func State(ac *core.ActionContext, roleName string) core.Values {
	if m := core.Values(ac.EvalContext.Map(roleName)).Map("audio"); m != nil {
		return core.Values(m)
	}
	return nil
}

func update(roleName string, state core.Values) []core.ResultOp {
	var audio interface{}
	if state != nil {
		audio = map[string]interface{}(state)
	}
	return []core.ResultOp{
		&core.UpdatePlayerFields{
			RoleName: roleName,
			Fields:   core.Values{"audio": audio},
		},
		&core.UpdateAudio{RoleName: roleName},
	}
}

// roleFor resolves the role parameter or explains why it couldn't.
func roleFor(ps core.Params, ac *core.ActionContext) (string, *core.Log) {
	name := ps.String("role_name")
	role := ac.ResolveRoleName(name)
	if role == "" {
		if name == "current" {
			return "", core.Errorf("No current role in event when expected.")
		}
		return "", core.Errorf("Missing role_name.")
	}
	return role, nil
}

func playAudio(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	role, problem := roleFor(ps, ac)
	if problem != nil {
		return []core.ResultOp{problem}, nil
	}
	name := ps.String("audio_name")
	a := ac.ScriptContent.AudioNamed(name)
	if a == nil {
		return []core.ResultOp{core.Errorf("Could not find audio named %q.", name)}, nil
	}
	return update(role, core.Values{
		"name":        a.Name,
		"path":        a.Path,
		"isPlaying":   true,
		"startedAt":   core.ISO(ac.EvaluateAt),
		"startedTime": float64(0),
		"pausedTime":  nil,
	}), nil
}

func pauseAudio(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	role, problem := roleFor(ps, ac)
	if problem != nil {
		return []core.ResultOp{problem}, nil
	}
	state := State(ac, role)
	if state == nil {
		return []core.ResultOp{core.Errorf("Tried to pause audio when none was started.")}, nil
	}
	if !core.Truthy(state["isPlaying"]) {
		return []core.ResultOp{core.Warnf("Tried to pause audio when audio was already paused.")}, nil
	}
	startedAt, ok := core.AsTime(state["startedAt"])
	if !ok {
		return []core.ResultOp{core.Errorf("Tried to pause audio with no start time.")}, nil
	}
	startedTime, _ := core.AsFloat(state["startedTime"])
	elapsed := ac.EvaluateAt.Sub(startedAt).Seconds()

	next := state.Copy()
	next["isPlaying"] = false
	next["pausedTime"] = startedTime + elapsed
	return update(role, next), nil
}

func resumeAudio(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	role, problem := roleFor(ps, ac)
	if problem != nil {
		return []core.ResultOp{problem}, nil
	}
	state := State(ac, role)
	if state == nil {
		return []core.ResultOp{core.Errorf("Tried to resume audio when none was started.")}, nil
	}
	if core.Truthy(state["isPlaying"]) {
		return []core.ResultOp{core.Warnf("Tried to resume audio when audio was already playing.")}, nil
	}
	if !core.Truthy(state["pausedTime"]) {
		return []core.ResultOp{core.Errorf("Tried to resume audio when no pause time was available.")}, nil
	}

	next := state.Copy()
	next["isPlaying"] = true
	next["startedAt"] = core.ISO(ac.EvaluateAt)
	next["startedTime"] = state["pausedTime"]
	next["pausedTime"] = nil
	return update(role, next), nil
}

func stopAudio(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	role, problem := roleFor(ps, ac)
	if problem != nil {
		return []core.ResultOp{problem}, nil
	}
	return update(role, nil), nil
}
