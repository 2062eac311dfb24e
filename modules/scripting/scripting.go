// Package scripting evaluates ECMAScript expressions as conditions.
package scripting

import (
	"context"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/interpreters/goja"
)

// Interpreter evaluates every expression_is_true condition.
var Interpreter = goja.NewInterpreter()

var Module = &core.Module{
	Name: "scripting",
	Resources: map[string]*core.Resource{
		"expression": {
			Conditions: map[string]*core.ConditionDef{
				"expression_is_true": {
					Help: "Passes if the expression is truthy.  The evaluation context's values are globals, and \"player\" is the triggering role's record.",
					Properties: map[string]*core.ParamSpec{
						"expression": {Type: "string", Required: true},
					},
					Eval: expressionIsTrue,
				},
			},
		},
	},
}

func expressionIsTrue(ps core.Params, ac *core.ActionContext) (bool, error) {
	vars := ac.EvalContext.Copy()
	if role := ac.TriggeringRoleName; role != "" {
		if record := ac.EvalContext.Map(role); record != nil {
			vars["player"] = record
		}
	}
	return Interpreter.Test(context.Background(), ps.String("expression"), &goja.Env{
		Vars: vars,
		Now:  ac.EvaluateAt,
	})
}
