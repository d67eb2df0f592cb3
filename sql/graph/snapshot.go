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

// planningSnapshot captures all mutable planning state in vectors
// parallel to the graph's node slices. Restoring a snapshot is
// byte-identical with respect to planning behavior.
type planningSnapshot struct {
	connections []connectionState
	joins       []joinState
	fanOuts     []FanMode
	fanIns      []FanMode
}

type connectionState struct {
	constraints map[string]branchConstraints
	unlimited   bool
	pinned      bool
}

type joinState struct {
	typ    JoinType
	pinned bool
}

// capturePlanningSnapshot deep-copies the mutable state of every node.
func (g *Graph) capturePlanningSnapshot() planningSnapshot {
	snap := planningSnapshot{
		connections: make([]connectionState, len(g.connections)),
		joins:       make([]joinState, len(g.joins)),
		fanOuts:     make([]FanMode, len(g.fanOuts)),
		fanIns:      make([]FanMode, len(g.fanIns)),
	}
	for i, c := range g.connections {
		snap.connections[i] = connectionState{
			constraints: c.captureConstraints(),
			unlimited:   c.unlimited,
			pinned:      c.pinned,
		}
	}
	for i, j := range g.joins {
		snap.joins[i] = joinState{typ: j.typ, pinned: j.pinned}
	}
	for i, f := range g.fanOuts {
		snap.fanOuts[i] = f.mode
	}
	for i, f := range g.fanIns {
		snap.fanIns[i] = f.mode
	}
	return snap
}

// restorePlanningSnapshot puts every node back into the captured state.
// The snapshot must come from this graph.
func (g *Graph) restorePlanningSnapshot(snap planningSnapshot) {
	if len(snap.connections) != len(g.connections) ||
		len(snap.joins) != len(g.joins) ||
		len(snap.fanOuts) != len(g.fanOuts) ||
		len(snap.fanIns) != len(g.fanIns) {
		panic("planner graph: snapshot shape does not match graph")
	}
	for i, c := range g.connections {
		c.restoreConstraints(snap.connections[i].constraints)
		c.unlimited = snap.connections[i].unlimited
		c.pinned = snap.connections[i].pinned
	}
	for i, j := range g.joins {
		j.typ = snap.joins[i].typ
		j.pinned = snap.joins[i].pinned
	}
	for i, f := range g.fanOuts {
		f.mode = snap.fanOuts[i]
	}
	for i, f := range g.fanIns {
		f.mode = snap.fanIns[i]
	}
}

// CapturePlanningSnapshot exposes snapshotting for callers that want to
// restore the graph after experiments, e.g. tests.
func (g *Graph) CapturePlanningSnapshot() interface{} {
	return g.capturePlanningSnapshot()
}

// RestorePlanningSnapshot restores a snapshot captured with
// CapturePlanningSnapshot.
func (g *Graph) RestorePlanningSnapshot(snapshot interface{}) {
	snap, ok := snapshot.(planningSnapshot)
	if !ok {
		panic("planner graph: not a planning snapshot")
	}
	g.restorePlanningSnapshot(snap)
}
