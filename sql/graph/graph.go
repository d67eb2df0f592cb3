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
	"sort"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

// DefaultMaxStartingPoints bounds the multi-start search: planning runs
// min(connections, this) attempts, each greedily growing a plan from a
// different cheapest-first starting connection.
const DefaultMaxStartingPoints = 6

// Graph owns every node of one planning problem and drives the search. A
// graph belongs to a single planning call; concurrent planners must build
// independent graphs.
type Graph struct {
	sources     map[string]*Source
	connections []*Connection
	joins       []*Join
	fanOuts     []*FanOut
	fanIns      []*FanIn
	terminus    *Terminus
	listener    sql.PlanListener
}

// New returns an empty graph reporting planning events to |listener|.
func New(listener sql.PlanListener) *Graph {
	if listener == nil {
		listener = sql.NopListener{}
	}
	return &Graph{
		sources:  map[string]*Source{},
		listener: listener,
	}
}

// EnsureSource returns the source for |table|, creating it on first use.
// A table queried twice shares one source but scans through separate
// connections.
func (g *Graph) EnsureSource(table string, costModel sql.CostModel) *Source {
	if s, ok := g.sources[table]; ok {
		return s
	}
	s := &Source{name: table, costModel: costModel}
	g.sources[table] = s
	return s
}

// Connect mints a fresh connection of |src| and registers it with the
// graph.
func (g *Graph) Connect(src *Source, ordering sql.Ordering, filter sql.Condition, limit, planID int) *Connection {
	c := &Connection{
		source:      src,
		ordering:    ordering,
		filter:      filter,
		limit:       limit,
		planID:      planID,
		constraints: map[string]branchConstraints{},
	}
	src.connections = append(src.connections, c)
	g.connections = append(g.connections, c)
	return c
}

// NewJoin creates a join over |parent| and |child| and wires both inputs'
// downstream edges to it.
func (g *Graph) NewJoin(parent, child Node, parentCols, childCols []string, flippable bool, planID int) *Join {
	j := &Join{
		planID:     planID,
		parent:     parent,
		child:      child,
		parentCols: append([]string(nil), parentCols...),
		childCols:  append([]string(nil), childCols...),
		flippable:  flippable,
	}
	g.link(parent, j)
	g.link(child, j)
	g.joins = append(g.joins, j)
	return j
}

// NewFanOut creates the upstream half of a disjunction over |input|.
func (g *Graph) NewFanOut(input Node) *FanOut {
	f := &FanOut{input: input}
	g.link(input, f)
	g.fanOuts = append(g.fanOuts, f)
	return f
}

// NewFanIn creates the downstream half of a disjunction, merging
// |inputs|, and pairs it with |fanOut| so their modes stay in sync.
func (g *Graph) NewFanIn(fanOut *FanOut, inputs []Node) *FanIn {
	f := &FanIn{inputs: append([]Node(nil), inputs...), pair: fanOut}
	fanOut.pair = f
	for _, in := range inputs {
		g.link(in, f)
	}
	g.fanIns = append(g.fanIns, f)
	return f
}

// SetTerminus closes the graph with its sink over |input|.
func (g *Graph) SetTerminus(input Node) *Terminus {
	if g.terminus != nil {
		panic("planner graph: terminus set twice")
	}
	t := &Terminus{input: input}
	g.link(input, t)
	g.terminus = t
	return t
}

// Terminus returns the graph's sink, nil before SetTerminus.
func (g *Graph) Terminus() *Terminus { return g.terminus }

// Connections returns the graph's connections in insertion order.
func (g *Graph) Connections() []*Connection { return g.connections }

// Joins returns the graph's joins in insertion order.
func (g *Graph) Joins() []*Join { return g.joins }

// JoinByPlanID returns the join carrying |planID|, nil if none does.
func (g *Graph) JoinByPlanID(planID int) *Join {
	for _, j := range g.joins {
		if j.planID == planID {
			return j
		}
	}
	return nil
}

// link sets |up|'s downstream edge to |down|. Fan-outs take any number of
// downstream edges, everything else exactly one.
func (g *Graph) link(up, down Node) {
	switch t := up.(type) {
	case *Connection:
		t.setDownstream(down)
	case *Join:
		t.setDownstream(down)
	case *FanIn:
		t.setDownstream(down)
	case *FanOut:
		t.addDownstream(down)
	default:
		nodePanic(up)
	}
}

// ResetPlanningState returns every node to its post-construction state.
func (g *Graph) ResetPlanningState() {
	for _, c := range g.connections {
		c.resetPlanningState()
	}
	for _, j := range g.joins {
		j.resetPlanningState()
	}
	for _, f := range g.fanOuts {
		f.resetPlanningState()
	}
	for _, f := range g.fanIns {
		f.resetPlanningState()
	}
}

// PropagateConstraints reprices the graph under the current join
// directions and fan modes: accumulated constraints are dropped and one
// pass runs from the terminus. Within the pass accumulation is monotonic,
// so fan-in convergence delivering an entry several times keeps the
// first.
func (g *Graph) PropagateConstraints() {
	for _, c := range g.connections {
		c.clearConstraints()
	}
	g.terminus.PropagateConstraints()
}

// TotalCost evaluates the whole plan from the terminus.
func (g *Graph) TotalCost() (float64, error) {
	est, err := g.terminus.EstimateCost()
	if err != nil {
		return 0, err
	}
	return est.RunningCost, nil
}

type candidate struct {
	conn *Connection
	cost float64
}

// connectionCosts prices every connection in insertion order, so that
// the stable candidate sort breaks cost ties on insertion order.
func (g *Graph) connectionCosts() ([]candidate, error) {
	out := make([]candidate, 0, len(g.connections))
	for _, c := range g.connections {
		est, err := c.estimateCost()
		if err != nil {
			return nil, err
		}
		out = append(out, candidate{conn: c, cost: est.RunningCost})
	}
	return out, nil
}

func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].cost < cands[j].cost })
}

func unpinnedOf(cands []candidate) []candidate {
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if !c.conn.pinned {
			out = append(out, c)
		}
	}
	return out
}

func (g *Graph) listing(cands []candidate) []sql.ConnectionCost {
	out := make([]sql.ConnectionCost, len(cands))
	for i, c := range cands {
		out[i] = sql.ConnectionCost{
			Table:  c.conn.source.name,
			PlanID: c.conn.planID,
			Cost:   c.cost,
			Pinned: c.conn.pinned,
		}
	}
	return out
}

func (g *Graph) unpinnedCount() int {
	n := 0
	for _, c := range g.connections {
		if !c.pinned {
			n++
		}
	}
	return n
}

// Plan runs the multi-start greedy search. On success the graph is left
// in the best plan found (directions, modes, constraints) and Plan
// returns true. When no attempt fully pins the graph, the state is reset
// and Plan returns false: no valid plan exists and the query falls back
// to default semantics. Cost model faults abort with an error.
func (g *Graph) Plan(maxStartingPoints int) (bool, error) {
	if g.terminus == nil {
		panic("planner graph: Plan called before SetTerminus")
	}
	if maxStartingPoints <= 0 {
		maxStartingPoints = DefaultMaxStartingPoints
	}
	attempts := len(g.connections)
	if attempts > maxStartingPoints {
		attempts = maxStartingPoints
	}

	var best planningSnapshot
	var bestCost float64
	found := false

	for i := 0; i < attempts; i++ {
		g.ResetPlanningState()
		g.PropagateConstraints()
		g.listener.AttemptStarted(i)

		ok, total, err := g.attempt(i)
		if err != nil {
			return false, err
		}
		if !ok {
			g.listener.AttemptFailed(i)
			continue
		}
		g.listener.AttemptCompleted(i, total)
		if !found || total < bestCost {
			found = true
			bestCost = total
			best = g.capturePlanningSnapshot()
			g.listener.BestPlanFound(i, total)
		}
	}

	if !found {
		g.ResetPlanningState()
		return false, nil
	}
	g.restorePlanningSnapshot(best)
	return true, nil
}

// attempt grows one plan starting from the attempt-th cheapest
// connection. It reports whether every connection was pinned and the
// resulting total cost.
func (g *Graph) attempt(attempt int) (bool, float64, error) {
	costs, err := g.connectionCosts()
	if err != nil {
		return false, 0, err
	}
	sortCandidates(costs)
	root := costs[attempt]

	if err := g.pinAndTraverse(root.conn, attempt); err != nil {
		if sql.ErrUnflippableJoin.Is(err) {
			// unflippable initial root abandons the whole attempt
			return false, 0, nil
		}
		return false, 0, err
	}
	g.PropagateConstraints()

	for g.unpinnedCount() > 0 {
		costs, err := g.connectionCosts()
		if err != nil {
			return false, 0, err
		}
		g.listener.CandidateCosts(attempt, g.listing(costs))

		cands := unpinnedOf(costs)
		sortCandidates(cands)

		pinned := false
		for _, cand := range cands {
			snap := g.capturePlanningSnapshot()
			if err := g.pinAndTraverse(cand.conn, attempt); err != nil {
				if sql.ErrUnflippableJoin.Is(err) {
					g.restorePlanningSnapshot(snap)
					continue
				}
				return false, 0, err
			}
			g.PropagateConstraints()
			pinned = true
			break
		}
		if !pinned {
			return false, 0, nil
		}
	}

	total, err := g.TotalCost()
	if err != nil {
		return false, 0, err
	}
	return true, total, nil
}

// pinAndTraverse pins |c| and walks downstream to the terminus, or to the
// first pinned join it reaches on that join's probed side, flipping joins
// entered from the child side, pinning joins it passes, and switching
// fan-ins traversed after a flip to union mode.
func (g *Graph) pinAndTraverse(c *Connection, attempt int) error {
	var flipped []int
	if err := g.traverse(c, c.out, false, &flipped); err != nil {
		return err
	}
	c.pinned = true
	g.listener.ConnectionPinned(attempt, c.source.name, c.planID, flipped)
	return nil
}

func (g *Graph) traverse(from, n Node, sawFlip bool, flipped *[]int) error {
	switch t := n.(type) {
	case *Join:
		if t.pinned && t.probedSide() == from {
			// the walk reached territory an earlier pin already drives
			return nil
		}
		didFlip, err := t.flipIfNeeded(from)
		if err != nil {
			return err
		}
		if didFlip {
			*flipped = append(*flipped, t.planID)
			g.unlimit(t.child)
			sawFlip = true
		}
		t.pinned = true
		return g.traverse(t, t.out, sawFlip, flipped)
	case *FanOut:
		for _, out := range t.outs {
			if err := g.traverse(t, out, sawFlip, flipped); err != nil {
				return err
			}
		}
		return nil
	case *FanIn:
		if sawFlip {
			t.setUnion()
		}
		return g.traverse(t, t.out, sawFlip, flipped)
	case *Terminus:
		return nil
	case *Connection:
		panic("planner graph: traversal reached a connection")
	}
	nodePanic(n)
	return nil
}

// probedSide is the non-driving input of a pinned join.
func (j *Join) probedSide() Node {
	if j.typ == JoinTypeFlipped {
		return j.parent
	}
	return j.child
}

// unlimit clears scan limits in the child subgraph of a freshly flipped
// join: the child no longer stops at the first match. Semi joins along
// the way continue through their parent; another flipped join is already
// unlimited and stops the walk.
func (g *Graph) unlimit(n Node) {
	switch t := n.(type) {
	case *Connection:
		t.unlimited = true
	case *Join:
		if t.typ == JoinTypeFlipped {
			return
		}
		g.unlimit(t.parent)
	case *FanOut:
		g.unlimit(t.input)
	case *FanIn:
		for _, in := range t.inputs {
			g.unlimit(in)
		}
	case *Terminus:
		nodePanic(n)
	}
}
