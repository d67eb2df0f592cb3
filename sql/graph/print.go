// Copyright 2023 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"fmt"
	"strings"
)

// String renders the graph one node per line, connections first, then
// joins, fans and the terminus, with stable labels for cross-references.
// The rendering is deterministic and meant for tests and debug logs.
func (g *Graph) String() string {
	labels := map[Node]string{}
	for i, c := range g.connections {
		labels[c] = fmt.Sprintf("C%d", i+1)
	}
	for i, j := range g.joins {
		labels[j] = fmt.Sprintf("J%d", i+1)
	}
	for i, f := range g.fanOuts {
		labels[f] = fmt.Sprintf("F%d", i+1)
	}
	for i, f := range g.fanIns {
		labels[f] = fmt.Sprintf("I%d", i+1)
	}
	if g.terminus != nil {
		labels[g.terminus] = "T"
	}

	var lines []string
	for _, c := range g.connections {
		attrs := ""
		if c.pinned {
			attrs += " pinned"
		}
		if c.unlimited {
			attrs += " unlimited"
		}
		lines = append(lines, fmt.Sprintf("%s: (connection: %s%s)", labels[c], c.source.name, attrs))
	}
	for _, j := range g.joins {
		attrs := ""
		if !j.flippable {
			attrs += " noflip"
		}
		if j.pinned {
			attrs += " pinned"
		}
		lines = append(lines, fmt.Sprintf("%s: (%s %s %s%s)", labels[j], j.typ, labels[j.parent], labels[j.child], attrs))
	}
	for _, f := range g.fanOuts {
		outs := make([]string, len(f.outs))
		for i, o := range f.outs {
			outs[i] = labels[o]
		}
		lines = append(lines, fmt.Sprintf("%s: (fanout %s %s -> %s)", labels[f], f.mode, labels[f.input], strings.Join(outs, " ")))
	}
	for _, f := range g.fanIns {
		ins := make([]string, len(f.inputs))
		for i, in := range f.inputs {
			ins[i] = labels[in]
		}
		lines = append(lines, fmt.Sprintf("%s: (fanin %s %s)", labels[f], f.mode, strings.Join(ins, " ")))
	}
	if g.terminus != nil {
		lines = append(lines, fmt.Sprintf("T: (terminus %s)", labels[g.terminus.input]))
	}

	var b strings.Builder
	b.WriteString("graph:\n")
	for i, l := range lines {
		if i == len(lines)-1 {
			b.WriteString("└── ")
		} else {
			b.WriteString("├── ")
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
