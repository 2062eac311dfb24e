package roles

import (
	"testing"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/google/go-cmp/cmp"
)

func TestSwitchRole(t *testing.T) {
	ac := &core.ActionContext{
		ScriptContent:      &core.ScriptContent{Roles: []*core.Role{{Name: "Scout"}, {Name: "Leader"}}},
		TriggeringRoleName: "Scout",
	}

	ops, _ := switchRole(core.Params{"role_name": "current", "new_role_name": "Leader"}, ac)
	want := []core.ResultOp{&core.SwitchRole{RoleName: "Scout", NewRole: "Leader"}}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatal(diff)
	}

	if ops, _ := switchRole(core.Params{"role_name": "Scout", "new_role_name": "Scout"}, ac); len(ops) != 0 {
		t.Fatal(ops)
	}
	ops, _ = switchRole(core.Params{"role_name": "Scout", "new_role_name": "King"}, ac)
	if _, is := ops[0].(*core.Log); !is {
		t.Fatalf("%#v", ops)
	}
}
