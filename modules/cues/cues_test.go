package cues

import (
	"testing"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/google/go-cmp/cmp"
)

func TestSignalCue(t *testing.T) {
	r := core.MustRegistry(Module)
	action, _ := r.Action("signal_cue")
	ops, err := action.GetOps(core.Params{"cue_name": "CUE-GO"}, &core.ActionContext{})
	if err != nil {
		t.Fatal(err)
	}
	want := []core.ResultOp{&core.EmitEvent{Event: core.Params{"type": "cue_signaled", "cue": "CUE-GO"}}}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatal(diff)
	}

	event, _ := r.Event("cue_signaled")
	if ok, _ := event.MatchEvent(core.Params{"cue": "CUE-GO"}, Event("CUE-GO"), nil); !ok {
		t.Fatal("expected a match")
	}
	if ok, _ := event.MatchEvent(core.Params{"cue": "CUE-GO"}, Event("CUE-STOP"), nil); ok {
		t.Fatal("unexpected match")
	}
}
