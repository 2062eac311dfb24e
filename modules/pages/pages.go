// Package pages moves players between interface pages.
package pages

import (
	"github.com/firstpersontravel/charter-sub005/core"
)

var Module = &core.Module{
	Name: "pages",
	Resources: map[string]*core.Resource{
		"page": {
			Actions: map[string]*core.ActionDef{
				"send_to_page": {
					Help: "Show a page to a role.",
					Params: map[string]*core.ParamSpec{
						"role_name": {Type: "reference", Collection: "roles", Required: true},
						"page_name": {Type: "reference", Collection: "pages", Required: true},
					},
					GetOps: sendToPage,
				},
				"refresh_page": {
					Help: "Ask a role's interface, or every interface, to reload.",
					Params: map[string]*core.ParamSpec{
						"role_name": {Type: "reference", Collection: "roles"},
					},
					GetOps: refreshPage,
				},
			},
			Conditions: map[string]*core.ConditionDef{
				"role_page_is": {
					Help: "Passes if the role is on the page.",
					Properties: map[string]*core.ParamSpec{
						"role_name": {Type: "reference", Collection: "roles", Required: true},
						"page_name": {Type: "reference", Collection: "pages", Required: true},
					},
					Eval: rolePageIs,
				},
			},
		},
	},
}

func sendToPage(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	role := ac.ResolveRoleName(ps.String("role_name"))
	if ac.ScriptContent.Role(role) == nil {
		return []core.ResultOp{core.Errorf("Could not find role named %q.", role)}, nil
	}
	name := ps.String("page_name")
	page := ac.ScriptContent.Page(name)
	if page == nil {
		return []core.ResultOp{core.Errorf("Could not find page named %q.", name)}, nil
	}
	var directive interface{}
	if page.Directive != "" {
		directive = page.Directive
	}
	return []core.ResultOp{&core.UpdatePlayerFields{
		RoleName: role,
		Fields: core.Values{
			"currentPageName": name,
			"directive":       directive,
		},
	}}, nil
}

func refreshPage(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	role := ac.ResolveRoleName(ps.String("role_name"))
	if role == "" {
		return []core.ResultOp{&core.UpdateUI{Instruction: "refresh", Tripwide: true}}, nil
	}
	return []core.ResultOp{&core.UpdateUI{Instruction: "refresh", RoleName: role}}, nil
}

func rolePageIs(ps core.Params, ac *core.ActionContext) (bool, error) {
	role := ac.ResolveRoleName(ps.String("role_name"))
	record := ac.EvalContext.Map(role)
	current, _ := record["currentPageName"].(string)
	return current != "" && current == ps.String("page_name"), nil
}
