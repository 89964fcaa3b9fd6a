package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Comcast/sonde/instrument"

	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the given instrument definition.
//
// Static transitions become solid edges.  A scripted handler becomes
// a dashed self-loop, since its targets aren't known statically.  The
// optional currentState, if non-zero, gets highlighted.
func Dot(d *instrument.Definition, w io.Writer, currentState string) error {
	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	states := make(map[string]bool)
	for _, h := range d.Handlers {
		states[h.State] = true
		if h.Target != "" {
			states[h.Target] = true
		}
	}
	if d.InitialState != "" {
		states[d.InitialState] = true
	}

	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fillcolor := "#99ddc8"
		style := "rounded,filled"
		if name == d.InitialState {
			style += ",bold"
		}
		if name == currentState {
			fillcolor = "#f98b8b"
		}
		fmt.Fprintf(w, "  %q [style=\"%s\", fillcolor=\"%s\"]\n", name, style, fillcolor)
	}

	for _, h := range d.Handlers {
		if h.Target != "" {
			fmt.Fprintf(w, "  %q -> %q [label=%q]\n", h.State, h.Target, h.Event)
		} else {
			fmt.Fprintf(w, "  %q -> %q [label=%q, style=\"dashed\"]\n", h.State, h.State, h.Event)
		}
	}

	if 0 < len(d.Schedules) {
		// A legend with the schedules, which fire events from
		// outside the graph.
		bs, err := yaml.Marshal(d.Schedules)
		if err != nil {
			return err
		}
		label := strings.Replace(string(bs), "\n", `\l`, -1)
		fmt.Fprintf(w, "  schedules [shape=\"note\", style=\"filled\", fillcolor=\"#eeeeee\", label=\"%s\"]\n",
			strings.Replace(label, `"`, `\"`, -1))
	}

	fmt.Fprintf(w, "}\n")

	return nil
}
