package tools

import (
	"sort"

	"github.com/firstpersontravel/charter-sub005/core"
)

// ScriptAnalysis is a static report on a script.
type ScriptAnalysis struct {
	Errors     []string `json:"errors,omitempty"`
	Roles      int      `json:"roles"`
	Scenes     int      `json:"scenes"`
	Triggers   int      `json:"triggers"`
	Actions    int      `json:"actions"`
	Conditions int      `json:"conditions"`
	Scheduled  int      `json:"scheduled"`

	// EventTypes are the event types the triggers wait for.
	EventTypes []string `json:"eventTypes,omitempty"`

	// Entries are triggers that no other trigger can fire.
	Entries []string `json:"entries,omitempty"`

	// Unheard are signals (cues, scene starts) that some action
	// causes but no trigger waits for.
	Unheard []string `json:"unheard,omitempty"`

	// Unsignaled are cues some trigger waits for that no action
	// signals.
	Unsignaled []string `json:"unsignaled,omitempty"`

	// UnstartedScenes are non-global scenes, other than the
	// opening one, that no action starts.
	UnstartedScenes []string `json:"unstartedScenes,omitempty"`

	// UnusedPages are pages no action sends anyone to.
	UnusedPages []string `json:"unusedPages,omitempty"`
}

// Analyze looks over the script.  When reg isn't nil, the script is
// validated against it and any problem lands in Errors.
func Analyze(c *core.ScriptContent, reg *core.Registry) *ScriptAnalysis {
	a := &ScriptAnalysis{
		Roles:    len(c.Roles),
		Scenes:   len(c.Scenes),
		Triggers: len(c.Triggers),
	}
	if reg != nil {
		if err := reg.ValidateScript(c); err != nil {
			a.Errors = append(a.Errors, err.Error())
		}
	}

	var (
		types     = make(map[string]bool)
		signaled  = make(map[string]bool)
		started   = make(map[string]bool)
		pages     = make(map[string]bool)
		listening = make(map[string]bool)
		unheard   = make(map[string]bool)
	)

	countIf := func(core.Condition, string) { a.Conditions++ }
	for _, t := range c.Triggers {
		l := Listens(t)
		if l.Type != "" {
			types[l.Type] = true
		}
		if l.Type == "cue_signaled" {
			listening[l.Name] = true
		}
		if t.ActiveIf.Condition != nil {
			a.Conditions++
		}
		core.WalkClause(&t.Clause, "", func(pa *core.PlainAction, _ string) {
			a.Actions++
			if pa.When != "" || pa.Offset != "" || pa.Name == "wait" {
				a.Scheduled++
			}
			switch pa.Name {
			case "signal_cue":
				signaled[pa.Params.String("cue_name")] = true
			case "start_scene":
				started[pa.Params.String("scene_name")] = true
			case "send_to_page":
				pages[pa.Params.String("page_name")] = true
			}
		}, countIf)
	}

	for _, e := range emissions(c) {
		if e.signal.Type != "cue_signaled" && e.signal.Type != "scene_started" {
			continue
		}
		heard := false
		for _, t := range c.Triggers {
			if e.signal.heardBy(Listens(t)) {
				heard = true
				break
			}
		}
		if !heard {
			unheard[e.signal.String()] = true
		}
	}

	reached := make(map[string]bool)
	for _, e := range Edges(c) {
		reached[e.To] = true
	}
	for _, t := range c.Triggers {
		if !reached[t.Name] {
			a.Entries = append(a.Entries, t.Name)
		}
	}

	unsignaled := make(map[string]bool)
	for cue := range listening {
		if !signaled[cue] {
			unsignaled[cue] = true
		}
	}
	unstarted := make(map[string]bool)
	for i, s := range c.Scenes {
		// Trips open in the first scene.
		if i > 0 && !s.Global && !started[s.Name] {
			unstarted[s.Name] = true
		}
	}
	unused := make(map[string]bool)
	for _, p := range c.Pages {
		if !pages[p.Name] {
			unused[p.Name] = true
		}
	}

	a.EventTypes = keys(types)
	a.Unheard = keys(unheard)
	a.Unsignaled = keys(unsignaled)
	a.UnstartedScenes = keys(unstarted)
	a.UnusedPages = keys(unused)
	return a
}

func keys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}
