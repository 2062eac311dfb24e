/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package tools has utilities for looking at scripts: a static
// analysis and renderings of the trigger graph.
package tools

import (
	"sort"

	"github.com/firstpersontravel/charter-sub005/core"
)

// Signal is an event that an action can cause, as far as a static
// reading of the script can tell.  Name is the cue, scene or sending
// role, depending on Type.
type Signal struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

func (s Signal) String() string {
	if s.Name == "" {
		return s.Type
	}
	return s.Type + ":" + s.Name
}

// Edge connects a trigger whose actions can cause an event to a
// trigger that listens for it.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Signal Signal `json:"signal"`
	Path   string `json:"path"`
}

// Emits reports what event, if any, a plain action can cause.
func Emits(a *core.PlainAction) (Signal, bool) {
	switch a.Name {
	case "signal_cue":
		return Signal{"cue_signaled", a.Params.String("cue_name")}, true
	case "start_scene":
		return Signal{"scene_started", a.Params.String("scene_name")}, true
	case "send_text":
		return Signal{"text_received", a.Params.String("from_role_name")}, true
	case "send_custom_message":
		return Signal{"message_received", a.Params.String("from_role_name")}, true
	}
	return Signal{}, false
}

// Listens reports what a trigger's event spec waits for.  An empty
// Name matches any emitted signal of the type.
func Listens(t *core.Trigger) Signal {
	ev := t.Event
	switch typ := ev.Type(); typ {
	case "cue_signaled", "scene_started":
		name := ev.String("cue")
		if typ == "scene_started" {
			name = ev.String("scene")
		}
		return Signal{typ, name}
	case "text_received", "message_received", "image_received":
		return Signal{typ, ev.String("from")}
	default:
		return Signal{Type: typ}
	}
}

func (s Signal) heardBy(l Signal) bool {
	if s.Type != l.Type {
		// A text is also a message.
		if !(s.Type == "text_received" && l.Type == "message_received") {
			return false
		}
	}
	return l.Name == "" || l.Name == s.Name
}

type emission struct {
	trigger string
	signal  Signal
	path    string
}

func emissions(c *core.ScriptContent) []emission {
	var acc []emission
	for _, t := range c.Triggers {
		name := t.Name
		core.WalkClause(&t.Clause, "", func(a *core.PlainAction, path string) {
			if s, ok := Emits(a); ok {
				acc = append(acc, emission{name, s, path})
			}
		}, nil)
	}
	return acc
}

// Edges returns the trigger graph of the script, sorted by source
// trigger and then target.
func Edges(c *core.ScriptContent) []*Edge {
	var acc []*Edge
	for _, e := range emissions(c) {
		for _, t := range c.Triggers {
			if e.signal.heardBy(Listens(t)) {
				acc = append(acc, &Edge{
					From:   e.trigger,
					To:     t.Name,
					Signal: e.signal,
					Path:   e.path,
				})
			}
		}
	}
	sort.SliceStable(acc, func(i, j int) bool {
		if acc[i].From != acc[j].From {
			return acc[i].From < acc[j].From
		}
		return acc[i].To < acc[j].To
	})
	return acc
}
