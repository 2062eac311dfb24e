// Package scenes provides scene changes.
package scenes

import (
	"sort"

	"github.com/firstpersontravel/charter-sub005/core"
)

var Module = &core.Module{
	Name: "scenes",
	Resources: map[string]*core.Resource{
		"scene": {
			Actions: map[string]*core.ActionDef{
				"start_scene": {
					Help: "Start a new scene.",
					Params: map[string]*core.ParamSpec{
						"scene_name": {Type: "reference", Collection: "scenes", Required: true},
					},
					GetOps: startScene,
				},
			},
			Events: map[string]*core.EventDef{
				"scene_started": {
					Help: "Occurs when a scene starts.",
					SpecParams: map[string]*core.ParamSpec{
						"scene": {Type: "reference", Collection: "scenes", Required: true},
					},
					MatchEvent: func(spec, event core.Params, ac *core.ActionContext) (bool, error) {
						return spec.String("scene") == event.String("scene"), nil
					},
				},
			},
			Conditions: map[string]*core.ConditionDef{
				"scene_is_current": {
					Help: "Passes if the scene is the current scene.",
					Properties: map[string]*core.ParamSpec{
						"scene_name": {Type: "reference", Collection: "scenes", Required: true},
					},
					Eval: func(ps core.Params, ac *core.ActionContext) (bool, error) {
						current, _ := ac.EvalContext["currentSceneName"].(string)
						return current != "" && current == ps.String("scene_name"), nil
					},
				},
			},
		},
	},
}

// startScene makes the scene current and moves every player with an
// interface to the first of that interface's pages in the scene.
// Starting the current scene, or a global one, does nothing.
func startScene(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	name := ps.String("scene_name")
	scene := ac.ScriptContent.Scene(name)
	if scene == nil {
		return []core.ResultOp{core.Errorf("Could not find scene named %q.", name)}, nil
	}
	if current, _ := ac.EvalContext["currentSceneName"].(string); current == name {
		return nil, nil
	}
	if scene.Global {
		return nil, nil
	}

	ops := []core.ResultOp{&core.UpdateTripFields{
		Fields: core.Values{"currentSceneName": name},
	}}

	for _, role := range ac.ScriptContent.Roles {
		if role.Interface == "" {
			continue
		}
		var page interface{}
		if p := firstPage(ac.ScriptContent, role.Interface, name); p != nil {
			page = p.Name
		}
		ops = append(ops, &core.UpdatePlayerFields{
			RoleName: role.Name,
			Fields:   core.Values{"currentPageName": page},
		})
	}

	return append(ops, &core.EmitEvent{Event: core.Params{
		"type":  "scene_started",
		"scene": name,
	}}), nil
}

func firstPage(c *core.ScriptContent, iface, scene string) *core.Page {
	var pages []*core.Page
	for _, p := range c.Pages {
		if p.Interface == iface && p.Scene == scene {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Name < pages[j].Name
	})
	return pages[0]
}
