package pages

import (
	"testing"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/google/go-cmp/cmp"
)

func ac() *core.ActionContext {
	return &core.ActionContext{
		ScriptContent: &core.ScriptContent{
			Roles: []*core.Role{{Name: "Player"}},
			Pages: []*core.Page{{Name: "PAGE", Directive: "Go north"}},
		},
		EvalContext:        core.Values{"Player": map[string]interface{}{"currentPageName": "PAGE"}},
		TriggeringRoleName: "Player",
	}
}

func TestSendToPage(t *testing.T) {
	ops, err := sendToPage(core.Params{"role_name": "current", "page_name": "PAGE"}, ac())
	if err != nil {
		t.Fatal(err)
	}
	want := []core.ResultOp{&core.UpdatePlayerFields{
		RoleName: "Player",
		Fields:   core.Values{"currentPageName": "PAGE", "directive": "Go north"},
	}}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatal(diff)
	}

	for _, ps := range []core.Params{
		{"role_name": "Nobody", "page_name": "PAGE"},
		{"role_name": "Player", "page_name": "NOPE"},
	} {
		ops, _ := sendToPage(ps, ac())
		if l, is := ops[0].(*core.Log); !is || l.Level != core.LevelError {
			t.Fatalf("%v: %#v", ps, ops)
		}
	}
}

func TestRefreshPage(t *testing.T) {
	ops, _ := refreshPage(core.Params{}, ac())
	if ui := ops[0].(*core.UpdateUI); !ui.Tripwide {
		t.Fatalf("%#v", ui)
	}
	ops, _ = refreshPage(core.Params{"role_name": "Player"}, ac())
	if ui := ops[0].(*core.UpdateUI); ui.Tripwide || ui.RoleName != "Player" {
		t.Fatalf("%#v", ui)
	}
}

func TestRolePageIs(t *testing.T) {
	if ok, _ := rolePageIs(core.Params{"role_name": "Player", "page_name": "PAGE"}, ac()); !ok {
		t.Fatal("expected true")
	}
	if ok, _ := rolePageIs(core.Params{"role_name": "Player", "page_name": "OTHER"}, ac()); ok {
		t.Fatal("expected false")
	}
	if ok, _ := rolePageIs(core.Params{"role_name": "Ghost", "page_name": "PAGE"}, ac()); ok {
		t.Fatal("expected false")
	}
}
