// Package logs lets scripts write to the trip's log.
package logs

import (
	"github.com/firstpersontravel/charter-sub005/core"
)

var Module = &core.Module{
	Name: "logs",
	Resources: map[string]*core.Resource{
		"log": {
			Actions: map[string]*core.ActionDef{
				"log": {
					Help: "Write a templated message to the log.",
					Params: map[string]*core.ParamSpec{
						"level":   {Type: "enum", Help: "info, warn or error.  Defaults to info."},
						"message": {Type: "string", Required: true},
					},
					GetOps: log,
				},
			},
		},
	},
}

func log(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	level := ps.String("level")
	switch level {
	case core.LevelInfo, core.LevelWarn, core.LevelError:
	case "":
		level = core.LevelInfo
	default:
		return []core.ResultOp{core.Errorf("Invalid log level %q.", level)}, nil
	}
	return []core.ResultOp{&core.Log{
		Level:   level,
		Message: core.TemplateText(ac.EvalContext, ps["message"], ac.Timezone, ac.TriggeringRoleName),
	}}, nil
}
