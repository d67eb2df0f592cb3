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

// Package analyzer lowers query trees into planning graphs, runs the
// planner, and writes the chosen join directions back onto an annotated
// copy of the input.
package analyzer

import (
	"github.com/pkg/errors"

	"gopkg.in/src-d/go-query-planner.v0/sql"
	"gopkg.in/src-d/go-query-planner.v0/sql/graph"
)

// Analyzer plans query trees. One Analyzer may plan any number of
// queries; every call builds its own graph, so concurrent calls are
// safe as long as the statistics provider and cost model are.
type Analyzer struct {
	Stats             sql.StatisticsProvider
	CostModel         sql.CostModel
	Listener          sql.PlanListener
	MaxStartingPoints int
}

// New returns an Analyzer with the default attempt bound.
func New(stats sql.StatisticsProvider, costModel sql.CostModel, listener sql.PlanListener) *Analyzer {
	if listener == nil {
		listener = sql.NopListener{}
	}
	return &Analyzer{
		Stats:             stats,
		CostModel:         costModel,
		Listener:          listener,
		MaxStartingPoints: graph.DefaultMaxStartingPoints,
	}
}

// PlanQuery plans |q| and returns an annotated copy: every subquery
// condition carries a stable plan id, and Flip is set on those whose
// join ended up child-driven. The input is never mutated. When no valid
// plan exists the copy comes back without Flip annotations and remains
// executable under default semantics.
func (a *Analyzer) PlanQuery(q *sql.QueryNode) (*sql.QueryNode, error) {
	if q == nil {
		return nil, sql.ErrMalformedQuery.New("nil query")
	}
	out := copyQueryNode(q)
	if err := a.validate(out); err != nil {
		return nil, err
	}
	ids := &planIDCounter{next: 1}
	assignPlanIDs(out, ids)
	if err := a.planTree(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Lower translates |q|'s where tree into a fresh planning graph. The
// query must already carry plan ids; PlanQuery assigns them.
func (a *Analyzer) Lower(q *sql.QueryNode) (*graph.Graph, error) {
	g := graph.New(a.Listener)

	b := &lowering{analyzer: a, graph: g}
	root := g.Connect(g.EnsureSource(q.Table, a.CostModel), q.OrderBy, sql.ScanFilter(q.Where), q.Limit, 0)
	end, err := b.lowerCondition(root, q.Where)
	if err != nil {
		return nil, errors.Wrapf(err, "lowering query over table %s", q.Table)
	}
	g.SetTerminus(end)
	return g, nil
}

// planTree builds and plans one graph for |q|'s where tree, then plans
// every related entry, at any depth, on a fresh graph of its own.
func (a *Analyzer) planTree(q *sql.QueryNode) error {
	g, err := a.Lower(q)
	if err != nil {
		return err
	}

	planned, err := g.Plan(a.MaxStartingPoints)
	if err != nil {
		return err
	}
	if planned {
		annotateFlips(q.Where, g)
	}

	return a.planRelated(q)
}

func (a *Analyzer) planRelated(q *sql.QueryNode) error {
	for _, rel := range q.Related {
		if err := a.planTree(rel.Subquery); err != nil {
			return errors.Wrapf(err, "planning related subquery %q", rel.Alias)
		}
	}
	return walkSubqueries(q.Where, func(cond *sql.SubqueryCondition) error {
		return a.planRelated(cond.Subquery)
	})
}

// lowering carries the state of one tree-to-graph translation.
type lowering struct {
	analyzer *Analyzer
	graph    *graph.Graph
}

// lowerCondition translates |cond| into graph structure hanging off
// |current| and returns the new open end of the chain. Simple conditions
// contribute no nodes; they reach the cost model as part of the
// connection's filter.
func (b *lowering) lowerCondition(current graph.Node, cond sql.Condition) (graph.Node, error) {
	switch c := cond.(type) {
	case nil:
		return current, nil
	case *sql.SimpleCondition:
		return current, nil
	case *sql.AndCondition:
		var err error
		for _, child := range c.Conds {
			current, err = b.lowerCondition(current, child)
			if err != nil {
				return nil, err
			}
		}
		return current, nil
	case *sql.OrCondition:
		return b.lowerDisjunction(current, c)
	case *sql.SubqueryCondition:
		return b.lowerSubquery(current, c)
	}
	return nil, sql.ErrMalformedQuery.New("unknown condition variant")
}

// lowerDisjunction expands an OR with at least one subquery branch into
// a FanOut–branches–FanIn triangle. Branches without subqueries are
// filter-only and collapse into a single pass-through edge; an OR with
// no subquery anywhere stays an opaque filter on the parent connection.
func (b *lowering) lowerDisjunction(current graph.Node, c *sql.OrCondition) (graph.Node, error) {
	if !sql.HasSubquery(c) {
		return current, nil
	}

	fanOut := b.graph.NewFanOut(current)
	var ends []graph.Node
	passThrough := false
	for _, child := range c.Conds {
		if !sql.HasSubquery(child) {
			if !passThrough {
				passThrough = true
				ends = append(ends, fanOut)
			}
			continue
		}
		end, err := b.lowerCondition(fanOut, child)
		if err != nil {
			return nil, err
		}
		ends = append(ends, end)
	}
	return b.graph.NewFanIn(fanOut, ends), nil
}

// lowerSubquery mints (or reuses) the child source, opens the child
// connection, lowers the child's own where tree, and closes the branch
// with a join. NOT EXISTS joins are not flippable.
func (b *lowering) lowerSubquery(current graph.Node, c *sql.SubqueryCondition) (graph.Node, error) {
	sub := c.Subquery
	src := b.graph.EnsureSource(sub.Table, b.analyzer.CostModel)
	conn := b.graph.Connect(src, sub.OrderBy, sql.ScanFilter(sub.Where), sub.Limit, c.PlanID)
	childEnd, err := b.lowerCondition(conn, sub.Where)
	if err != nil {
		return nil, err
	}
	return b.graph.NewJoin(
		current,
		childEnd,
		c.Correlation.ParentColumns,
		c.Correlation.ChildColumns,
		c.Op == sql.Exists,
		c.PlanID,
	), nil
}

// annotateFlips copies join directions out of the planned graph into the
// condition tree, matching by plan id.
func annotateFlips(cond sql.Condition, g *graph.Graph) {
	_ = walkSubqueries(cond, func(c *sql.SubqueryCondition) error {
		if j := g.JoinByPlanID(c.PlanID); j != nil && j.Type() == graph.JoinTypeFlipped {
			c.Flip = true
		}
		annotateFlips(c.Subquery.Where, g)
		return nil
	})
}

// walkSubqueries visits every subquery condition of one condition tree,
// without descending into the subqueries' own trees.
func walkSubqueries(cond sql.Condition, fn func(*sql.SubqueryCondition) error) error {
	if cond == nil {
		return nil
	}
	if c, ok := cond.(*sql.SubqueryCondition); ok {
		return fn(c)
	}
	for _, child := range cond.Children() {
		if err := walkSubqueries(child, fn); err != nil {
			return err
		}
	}
	return nil
}

// planIDCounter mints plan ids, shared across a whole top-level PlanQuery
// call so related subplans stay unique too.
type planIDCounter struct {
	next int
}

func (c *planIDCounter) mint() int {
	id := c.next
	c.next++
	return id
}

// assignPlanIDs numbers every subquery condition in a single pre-order
// traversal of the tree: the where tree first, related entries after,
// recursing into subqueries as they are met. Replanning the same input
// always produces the same numbering.
func assignPlanIDs(q *sql.QueryNode, ids *planIDCounter) {
	_ = walkSubqueries(q.Where, func(c *sql.SubqueryCondition) error {
		c.PlanID = ids.mint()
		assignPlanIDs(c.Subquery, ids)
		return nil
	})
	for _, rel := range q.Related {
		assignPlanIDs(rel.Subquery, ids)
	}
}

// copyQueryNode deep-copies a query tree so planning can annotate
// without touching the caller's input.
func copyQueryNode(q *sql.QueryNode) *sql.QueryNode {
	if q == nil {
		return nil
	}
	out := &sql.QueryNode{
		Table:   q.Table,
		OrderBy: append(sql.Ordering(nil), q.OrderBy...),
		Limit:   q.Limit,
		Where:   copyCondition(q.Where),
	}
	for _, rel := range q.Related {
		out.Related = append(out.Related, &sql.RelatedQuery{
			Alias:       rel.Alias,
			Correlation: copyCorrelation(rel.Correlation),
			Subquery:    copyQueryNode(rel.Subquery),
		})
	}
	return out
}

func copyCondition(cond sql.Condition) sql.Condition {
	switch c := cond.(type) {
	case nil:
		return nil
	case *sql.SimpleCondition:
		out := *c
		return &out
	case *sql.AndCondition:
		out := &sql.AndCondition{Conds: make([]sql.Condition, len(c.Conds))}
		for i, child := range c.Conds {
			out.Conds[i] = copyCondition(child)
		}
		return out
	case *sql.OrCondition:
		out := &sql.OrCondition{Conds: make([]sql.Condition, len(c.Conds))}
		for i, child := range c.Conds {
			out.Conds[i] = copyCondition(child)
		}
		return out
	case *sql.SubqueryCondition:
		return &sql.SubqueryCondition{
			Op:          c.Op,
			Correlation: copyCorrelation(c.Correlation),
			Subquery:    copyQueryNode(c.Subquery),
			PlanID:      c.PlanID,
			Flip:        c.Flip,
		}
	}
	panic("planner: unknown condition variant")
}

func copyCorrelation(c sql.Correlation) sql.Correlation {
	return sql.Correlation{
		ParentColumns: append([]string(nil), c.ParentColumns...),
		ChildColumns:  append([]string(nil), c.ChildColumns...),
	}
}
