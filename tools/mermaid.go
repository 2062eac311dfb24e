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

package tools

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/firstpersontravel/charter-sub005/core"
)

type MermaidOpts struct {
	// ShowSignals labels each edge with the event that links the
	// two triggers.
	ShowSignals bool `json:"showSignals"`

	// EntryFill is the fill color for triggers that only outside
	// events (texts from players, geofences, clocks) can fire.
	EntryFill string `json:"entryFill,omitempty"`
}

// Mermaid writes a Mermaid (https://mermaidjs.github.io/) flowchart
// of the script's trigger graph.
func Mermaid(c *core.ScriptContent, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowSignals: true,
			EntryFill:   "#bcf2db",
		}
	}

	edges := Edges(c)
	reached := make(map[string]bool, len(edges))
	for _, e := range edges {
		reached[e.To] = true
	}

	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "graph TB\n")

	nids := make(map[string]string, len(c.Triggers))
	for i, t := range c.Triggers {
		nid := fmt.Sprintf("n%d", i+1)
		nids[t.Name] = nid
		fmt.Fprintf(out, "  %s[\"%s\"]\n", nid, mermaidLabel(t))
		if !reached[t.Name] && opts.EntryFill != "" {
			fmt.Fprintf(out, "  style %s fill:%s\n", nid, opts.EntryFill)
		}
	}

	for _, e := range edges {
		label := ""
		if opts.ShowSignals {
			label = fmt.Sprintf(`-- "%s"`, quoteMermaid(e.Signal.String()))
		}
		fmt.Fprintf(out, "  %s %s --> %s\n", nids[e.From], label, nids[e.To])
	}

	fmt.Fprintf(out, "\n")
	return out.Flush()
}

func mermaidLabel(t *core.Trigger) string {
	label := t.Name
	if t.Title != "" {
		label = t.Title
	}
	label = quoteMermaid(label)
	if typ := t.Event.Type(); typ != "" {
		label += "<br/><i>" + quoteMermaid(typ) + "</i>"
	}
	return label
}

func quoteMermaid(s string) string {
	return strings.Replace(s, `"`, `'`, -1)
}
