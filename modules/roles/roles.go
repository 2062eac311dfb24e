// Package roles moves players between roles.
package roles

import (
	"github.com/firstpersontravel/charter-sub005/core"
)

var Module = &core.Module{
	Name: "roles",
	Resources: map[string]*core.Resource{
		"role": {
			Actions: map[string]*core.ActionDef{
				"switch_role": {
					Help: "Give a role's player a different role.",
					Params: map[string]*core.ParamSpec{
						"role_name":     {Type: "reference", Collection: "roles", Required: true, Help: `A role, or "current".`},
						"new_role_name": {Type: "reference", Collection: "roles", Required: true},
					},
					GetOps: switchRole,
				},
			},
		},
	},
}

func switchRole(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	from := ac.ResolveRoleName(ps.String("role_name"))
	to := ps.String("new_role_name")
	if ac.ScriptContent.Role(from) == nil {
		return []core.ResultOp{core.Errorf("Could not find role named %q.", from)}, nil
	}
	if ac.ScriptContent.Role(to) == nil {
		return []core.ResultOp{core.Errorf("Could not find role named %q.", to)}, nil
	}
	if from == to {
		return nil, nil
	}
	return []core.ResultOp{&core.SwitchRole{RoleName: from, NewRole: to}}, nil
}
