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

import "gopkg.in/src-d/go-query-planner.v0/sql"

// JoinType is the direction of a join. Every join starts semi
// (parent-driven); planning may flip it so the child drives.
type JoinType byte

const (
	// JoinTypeSemi probes the child once per parent row and stops at the
	// first match.
	JoinTypeSemi JoinType = iota
	// JoinTypeFlipped scans the child and looks up matching parents.
	JoinTypeFlipped
)

func (t JoinType) String() string {
	if t == JoinTypeFlipped {
		return "flipped"
	}
	return "semi"
}

// Join is the two-input operator behind an EXISTS or NOT EXISTS
// condition. The parent input is the correlated outer side, the child
// input is the end of the subquery's subgraph. NOT EXISTS joins are not
// flippable: anti semantics only work parent-driven.
type Join struct {
	planID     int
	parent     Node
	child      Node
	parentCols []string
	childCols  []string
	flippable  bool
	out        Node

	// mutable planning state
	typ    JoinType
	pinned bool
}

// PlanID returns the join's plan id.
func (j *Join) PlanID() int { return j.planID }

// Type returns the join's current direction.
func (j *Join) Type() JoinType { return j.typ }

// Pinned reports whether traversal locked the join into the current
// attempt.
func (j *Join) Pinned() bool { return j.pinned }

// Flippable reports whether the join may transition to flipped.
func (j *Join) Flippable() bool { return j.flippable }

func (j *Join) setDownstream(n Node) {
	if j.out != nil {
		panic("planner graph: join downstream set twice")
	}
	j.out = n
}

// flipIfNeeded flips the join when traversal arrives on the child input
// and is a no-op when it arrives on the parent input. It reports whether
// a flip happened. Flipping a non-flippable join is ErrUnflippableJoin;
// arriving from a node that is neither input is a programming error.
func (j *Join) flipIfNeeded(from Node) (bool, error) {
	switch from {
	case j.child:
		if j.typ == JoinTypeFlipped {
			return false, nil
		}
		if !j.flippable {
			return false, sql.ErrUnflippableJoin.New(j.planID)
		}
		j.typ = JoinTypeFlipped
		return true, nil
	case j.parent:
		return false, nil
	}
	panic("planner graph: flipIfNeeded caller is not an input of the join")
}

// parentConstraint is the parent-side correlation columns tagged with
// this join, applied to the parent scan when the join is flipped.
func (j *Join) parentConstraint() sql.Constraint {
	out := make(sql.Constraint, len(j.parentCols))
	for _, col := range j.parentCols {
		out[col] = sql.ConstraintCol{SourceJoinID: j.planID}
	}
	return out
}

// childConstraint is the child-side correlation columns tagged with this
// join, applied to the child scan when the join is semi.
func (j *Join) childConstraint() sql.Constraint {
	out := make(sql.Constraint, len(j.childCols))
	for _, col := range j.childCols {
		out[col] = sql.ConstraintCol{SourceJoinID: j.planID}
	}
	return out
}

// propagateConstraints forwards asymmetrically by direction. Semi: the
// child is probed per parent row, so it receives the child-side
// correlation columns; the incoming constraint passes through to the
// parent untouched. Flipped: the child drives, so it receives only the
// branch pattern; the parent receives the incoming constraint merged
// with the parent-side correlation columns.
func (j *Join) propagateConstraints(pattern []int, c sql.Constraint, sourceJoinID int) {
	switch j.typ {
	case JoinTypeSemi:
		j.child.propagateConstraints(pattern, j.childConstraint(), j.planID)
		j.parent.propagateConstraints(pattern, c, sourceJoinID)
	case JoinTypeFlipped:
		j.child.propagateConstraints(pattern, sql.Constraint{}, sql.UnknownJoin)
		j.parent.propagateConstraints(pattern, c.Merge(j.parentConstraint()), j.planID)
	}
}

// estimateCost combines the input costs by direction.
//
// Semi pays the parent scan plus, per scanned parent row, the child probe
// and the expected rows read before the first match. Flipped pays the
// child scan plus a full parent lookup per child row; the parent's own
// constraints already shrink that lookup.
func (j *Join) estimateCost() (sql.CostEstimate, error) {
	parent, err := j.parent.estimateCost()
	if err != nil {
		return sql.CostEstimate{}, err
	}
	child, err := j.child.estimateCost()
	if err != nil {
		return sql.CostEstimate{}, err
	}

	scanEst := parent.Rows
	if parent.Limit > 0 && child.Selectivity > 0 {
		if limited := parent.Limit / child.Selectivity; limited < scanEst {
			scanEst = limited
		}
	}

	out := sql.CostEstimate{
		Rows:        parent.Rows * child.Selectivity,
		Selectivity: parent.Selectivity * child.Selectivity,
		Limit:       parent.Limit,
	}
	switch j.typ {
	case JoinTypeSemi:
		out.RunningCost = parent.RunningCost + scanEst*(child.RunningCost+child.Rows*(1-child.Selectivity))
	case JoinTypeFlipped:
		out.RunningCost = child.RunningCost + child.Rows*(parent.RunningCost+parent.Rows)
	}
	return out, nil
}

func (j *Join) resetPlanningState() {
	j.typ = JoinTypeSemi
	j.pinned = false
}
