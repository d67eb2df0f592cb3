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
	"testing"

	"github.com/stretchr/testify/require"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

type tableCost struct {
	base        sql.CostEstimate
	constrained sql.CostEstimate
}

// testModel prices a table at its baseline when the constraint is empty
// and at its constrained estimate otherwise.
func testModel(costs map[string]tableCost) sql.CostModelFunc {
	return func(table string, _ sql.Ordering, _ sql.Condition, constraint sql.Constraint) (sql.CostEstimate, error) {
		tc, ok := costs[table]
		if !ok {
			return sql.CostEstimate{}, sql.ErrUnknownTable.New(table)
		}
		if len(constraint) > 0 {
			return tc.constrained, nil
		}
		return tc.base, nil
	}
}

func est(rows, selectivity float64) sql.CostEstimate {
	return sql.CostEstimate{Rows: rows, RunningCost: rows, Selectivity: selectivity}
}

type recordingListener struct {
	sql.NopListener
	completed []float64
	best      []float64
	failed    []int
	pinned    []string
}

func (l *recordingListener) ConnectionPinned(attempt int, table string, planID int, flipped []int) {
	l.pinned = append(l.pinned, table)
}

func (l *recordingListener) AttemptCompleted(attempt int, totalCost float64) {
	l.completed = append(l.completed, totalCost)
}

func (l *recordingListener) BestPlanFound(attempt int, totalCost float64) {
	l.best = append(l.best, totalCost)
}

func (l *recordingListener) AttemptFailed(attempt int) {
	l.failed = append(l.failed, attempt)
}

// existsGraph builds `users WHERE EXISTS posts`, flippable or not.
func existsGraph(listener sql.PlanListener, flippable bool) (*Graph, *Connection, *Connection, *Join) {
	model := testModel(map[string]tableCost{
		"users": {base: est(10000, 1), constrained: est(1, 1)},
		"posts": {base: est(100, 1), constrained: est(1, 0.5)},
	})
	g := New(listener)
	users := g.Connect(g.EnsureSource("users", model), nil, nil, 0, 0)
	posts := g.Connect(g.EnsureSource("posts", model), nil, nil, 0, 1)
	j := g.NewJoin(users, posts, []string{"id"}, []string{"userId"}, flippable, 1)
	g.SetTerminus(j)
	return g, users, posts, j
}

func TestPlanFlipsExists(t *testing.T) {
	listener := &recordingListener{}
	g, users, posts, j := existsGraph(listener, true)

	planned, err := g.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)
	require.True(t, planned)

	require.Equal(t, JoinTypeFlipped, j.Type())
	require.True(t, users.Pinned())
	require.True(t, posts.Pinned())

	// the flipped attempt scans posts once and looks one user up per
	// post; the semi attempt scans every user and probes posts
	require.Equal(t, []float64{300, 25000}, listener.completed)
	require.Equal(t, []float64{300}, listener.best)

	total, err := g.TotalCost()
	require.NoError(t, err)
	require.InDelta(t, 300, total, 1e-9)
}

func TestPlanRespectsUnflippable(t *testing.T) {
	listener := &recordingListener{}
	g, _, _, j := existsGraph(listener, false)

	planned, err := g.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)
	require.True(t, planned)

	// the cheap posts-first attempt dies on the unflippable join and
	// the semi order wins by default
	require.Equal(t, JoinTypeSemi, j.Type())
	require.Equal(t, []int{0}, listener.failed)
	require.Equal(t, []float64{25000}, listener.completed)
}

func TestPlanBestOfAttempts(t *testing.T) {
	listener := &recordingListener{}
	g, _, _, _ := existsGraph(listener, true)

	planned, err := g.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)
	require.True(t, planned)

	first := listener.completed[0]
	best := listener.best[len(listener.best)-1]
	require.True(t, best <= first)
}

// disjunctionGraph builds `users WHERE EXISTS posts OR EXISTS comments`.
func disjunctionGraph(listener sql.PlanListener) (*Graph, []*Join, *FanIn) {
	model := testModel(map[string]tableCost{
		"users":    {base: est(10000, 1), constrained: est(1, 1)},
		"posts":    {base: est(100, 1), constrained: est(1, 0.5)},
		"comments": {base: est(100, 1), constrained: est(1, 0.5)},
	})
	g := New(listener)
	users := g.Connect(g.EnsureSource("users", model), nil, nil, 0, 0)
	posts := g.Connect(g.EnsureSource("posts", model), nil, nil, 0, 1)
	comments := g.Connect(g.EnsureSource("comments", model), nil, nil, 0, 2)
	fanOut := g.NewFanOut(users)
	j1 := g.NewJoin(fanOut, posts, []string{"id"}, []string{"userId"}, true, 1)
	j2 := g.NewJoin(fanOut, comments, []string{"id"}, []string{"userId"}, true, 2)
	fanIn := g.NewFanIn(fanOut, []Node{j1, j2})
	g.SetTerminus(fanIn)
	return g, []*Join{j1, j2}, fanIn
}

func TestPlanDisjunction(t *testing.T) {
	listener := &recordingListener{}
	g, joins, fanIn := disjunctionGraph(listener)

	planned, err := g.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)
	require.True(t, planned)

	// both branches flip independently, which forces the union fan-in
	require.Equal(t, JoinTypeFlipped, joins[0].Type())
	require.Equal(t, JoinTypeFlipped, joins[1].Type())
	require.Equal(t, FanModeUnion, fanIn.Mode())
	require.Equal(t, FanModeUnion, fanIn.pair.Mode())

	require.Equal(t, []float64{600, 600, 25000}, listener.completed)
	require.Equal(t, []float64{600}, listener.best)
}

func TestPlanKeepsPlainFanInWithoutFlips(t *testing.T) {
	g, joins, fanIn := disjunctionGraph(nil)

	// force the users-first attempt only
	g.ResetPlanningState()
	g.PropagateConstraints()
	require.NoError(t, g.pinAndTraverse(g.connections[0], 0))

	require.Equal(t, FanModePlain, fanIn.Mode())
	require.Equal(t, JoinTypeSemi, joins[0].Type())
	require.Equal(t, JoinTypeSemi, joins[1].Type())
}

func TestPlanImpossible(t *testing.T) {
	// a parent with seven cheap NOT EXISTS children: every starting
	// point the search is willing to try is an unflippable child, so
	// no attempt survives
	costs := map[string]tableCost{
		"parent": {base: est(10000, 1), constrained: est(10, 1)},
	}
	names := []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6"}
	for _, n := range names {
		costs[n] = tableCost{base: est(100, 1), constrained: est(1, 0.5)}
	}
	model := testModel(costs)

	listener := &recordingListener{}
	g := New(listener)
	parent := g.Connect(g.EnsureSource("parent", model), nil, nil, 0, 0)
	var current Node = parent
	for i, n := range names {
		child := g.Connect(g.EnsureSource(n, model), nil, nil, 0, i+1)
		current = g.NewJoin(current, child, []string{"id"}, []string{"pid"}, false, i+1)
	}
	g.SetTerminus(current)

	planned, err := g.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)
	require.False(t, planned)
	require.Len(t, listener.failed, DefaultMaxStartingPoints)

	// the graph is left reset: no flips, nothing pinned
	for _, j := range g.Joins() {
		require.Equal(t, JoinTypeSemi, j.Type())
		require.False(t, j.Pinned())
	}
	for _, c := range g.Connections() {
		require.False(t, c.Pinned())
	}
}

func TestPlanSingleConnection(t *testing.T) {
	model := testModel(map[string]tableCost{
		"users": {base: est(10000, 1), constrained: est(1, 1)},
	})
	listener := &recordingListener{}
	g := New(listener)
	users := g.Connect(g.EnsureSource("users", model), nil, nil, 0, 0)
	g.SetTerminus(users)

	planned, err := g.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)
	require.True(t, planned)
	require.True(t, users.Pinned())

	// total cost is the baseline scan
	require.Equal(t, []float64{10000}, listener.completed)
}

func TestPlanCostModelFault(t *testing.T) {
	bad := sql.CostModelFunc(func(string, sql.Ordering, sql.Condition, sql.Constraint) (sql.CostEstimate, error) {
		return sql.CostEstimate{Rows: -1, RunningCost: 1, Selectivity: 1}, nil
	})
	g := New(nil)
	users := g.Connect(g.EnsureSource("users", bad), nil, nil, 0, 0)
	g.SetTerminus(users)

	_, err := g.Plan(DefaultMaxStartingPoints)
	require.Error(t, err)
	require.True(t, sql.ErrCostModelFault.Is(err))
}

func TestResetThenPlanMatchesFreshPlan(t *testing.T) {
	g1, _, _, j1 := existsGraph(nil, true)
	planned, err := g1.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)
	require.True(t, planned)

	g1.ResetPlanningState()
	planned, err = g1.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)
	require.True(t, planned)

	g2, _, _, j2 := existsGraph(nil, true)
	planned, err = g2.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)
	require.True(t, planned)

	require.Equal(t, j2.Type(), j1.Type())
	require.Equal(t, g2.String(), g1.String())
}

func TestPlanDeterministic(t *testing.T) {
	l1 := &recordingListener{}
	g1, _, _ := disjunctionGraph(l1)
	_, err := g1.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)

	l2 := &recordingListener{}
	g2, _, _ := disjunctionGraph(l2)
	_, err = g2.Plan(DefaultMaxStartingPoints)
	require.NoError(t, err)

	require.Equal(t, l1.completed, l2.completed)
	require.Equal(t, l1.pinned, l2.pinned)
	require.Equal(t, g1.String(), g2.String())
}

func TestSnapshotRoundTrip(t *testing.T) {
	g, joins, fanIn := disjunctionGraph(nil)
	g.PropagateConstraints()

	before := g.capturePlanningSnapshot()
	beforeStr := g.String()

	// scribble over every kind of mutable state
	joins[0].typ = JoinTypeFlipped
	fanIn.setUnion()
	g.connections[0].pinned = true
	g.connections[1].unlimited = true
	g.PropagateConstraints()

	g.restorePlanningSnapshot(before)
	require.Equal(t, beforeStr, g.String())
	require.Equal(t, JoinTypeSemi, joins[0].Type())
	require.Equal(t, FanModePlain, fanIn.Mode())
	require.False(t, g.connections[0].pinned)
	require.False(t, g.connections[1].unlimited)
	require.Equal(t, before.connections[0].constraints, g.connections[0].constraints)
}

func TestSourcesDedupedByName(t *testing.T) {
	model := testModel(map[string]tableCost{
		"users": {base: est(10, 1), constrained: est(1, 1)},
	})
	g := New(nil)
	s1 := g.EnsureSource("users", model)
	s2 := g.EnsureSource("users", model)
	require.True(t, s1 == s2)

	c1 := g.Connect(s1, nil, nil, 0, 0)
	c2 := g.Connect(s2, nil, nil, 0, 1)
	require.True(t, c1 != c2)
	require.Len(t, s1.Connections(), 2)
}

func TestUnlimitWalk(t *testing.T) {
	// users(limit 10) EXISTS posts: flipping the join must clear the
	// child-side limit, stopping at already-flipped joins
	model := testModel(map[string]tableCost{
		"users": {base: est(10000, 1), constrained: est(1, 1)},
		"posts": {base: est(100, 1), constrained: est(1, 0.5)},
	})
	g := New(nil)
	users := g.Connect(g.EnsureSource("users", model), nil, nil, 0, 0)
	posts := g.Connect(g.EnsureSource("posts", model), nil, nil, 10, 1)
	j := g.NewJoin(users, posts, []string{"id"}, []string{"userId"}, true, 1)
	g.SetTerminus(j)

	g.PropagateConstraints()
	require.NoError(t, g.pinAndTraverse(posts, 0))
	require.Equal(t, JoinTypeFlipped, j.Type())
	require.True(t, posts.unlimited)

	est, err := posts.estimateCost()
	require.NoError(t, err)
	require.Equal(t, float64(0), est.Limit)
}
