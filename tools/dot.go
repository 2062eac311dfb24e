package tools

// dot -Tpng g.dot > g.png

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/firstpersontravel/charter-sub005/core"

	"gopkg.in/yaml.v2"
)

// Dot writes a Graphviz dot file for the script's trigger graph.
// Each node shows the trigger's event spec as YAML.  The optional
// highlight names a trigger to draw in red.
func Dot(c *core.ScriptContent, w io.Writer, highlight string) error {
	edges := Edges(c)
	reached := make(map[string]bool, len(edges))
	for _, e := range edges {
		reached[e.To] = true
	}

	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "digraph G {\n")
	fmt.Fprintf(out, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	for _, t := range c.Triggers {
		label := html.EscapeString(t.Name)
		if t.Title != "" {
			label += "<BR/><FONT POINT-SIZE='8'>" + html.EscapeString(t.Title) + "</FONT>"
		}
		if t.Event != nil {
			bs, err := yaml.Marshal(map[string]interface{}(t.Event))
			if err != nil {
				return err
			}
			src := html.EscapeString(string(bs))
			label += `<FONT POINT-SIZE="6"><BR/>` +
				strings.Replace(src, "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		}

		color, fill, style := "black", "#99ddc8", "filled"
		if !reached[t.Name] {
			fill = "#2d93ad"
			style += ",bold"
		}
		if t.Scene != "" {
			fill = "#52aa5e"
		}
		if t.Name == highlight {
			color, fill = "red", "#f98b8b"
		}
		if !t.IsRepeatable() {
			style += ",dashed"
		}
		fmt.Fprintf(out, "  %q [shape=\"record\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			t.Name, style, color, fill, label)
	}

	for _, e := range edges {
		fmt.Fprintf(out, "  %q -> %q [label=%q]\n", e.From, e.To, e.Signal.String())
	}

	fmt.Fprintf(out, "}\n")
	return out.Flush()
}
