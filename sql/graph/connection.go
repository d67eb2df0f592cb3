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

// Connection is a single logical scan of a source under a fixed ordering
// and filter. During planning it accumulates constraints keyed by branch
// pattern and by the join that contributed them; the branch pattern
// encodes how many times the scan runs under the current disjunction
// structure.
type Connection struct {
	source   *Source
	ordering sql.Ordering
	filter   sql.Condition
	limit    int
	planID   int
	out      Node

	// mutable planning state
	constraints map[string]branchConstraints
	unlimited   bool
	pinned      bool
}

// branchConstraints is one branch pattern's accumulated constraints,
// keyed by the join that contributed them.
type branchConstraints map[int]sql.Constraint

// Source returns the connection's source.
func (c *Connection) Source() *Source { return c.source }

// PlanID returns the plan id the connection was minted under.
func (c *Connection) PlanID() int { return c.planID }

// Pinned reports whether the connection is pinned in the current attempt.
func (c *Connection) Pinned() bool { return c.pinned }

func (c *Connection) setDownstream(n Node) {
	if c.out != nil {
		panic("planner graph: connection downstream set twice")
	}
	c.out = n
}

// propagateConstraints files |constraint| under (pattern, sourceJoinID).
// A prior entry under the same key is never overwritten; distinct sources
// add new entries. Fan-in convergence delivers the same entry several
// times, the first delivery wins.
func (c *Connection) propagateConstraints(pattern []int, constraint sql.Constraint, sourceJoinID int) {
	key := branchKey(pattern)
	bucket, ok := c.constraints[key]
	if !ok {
		bucket = branchConstraints{}
		c.constraints[key] = bucket
	}
	if _, ok := bucket[sourceJoinID]; !ok {
		bucket[sourceJoinID] = constraint.Copy()
	}
}

// getConstraintsBySource returns the constraint contributed by
// |sourceJoinID| under |pattern|, nil if it contributed none. Joins use
// this to read back their own contribution when computing semi-join
// selectivity from per-join fan-out.
func (c *Connection) getConstraintsBySource(pattern []int, sourceJoinID int) sql.Constraint {
	bucket, ok := c.constraints[branchKey(pattern)]
	if !ok {
		return nil
	}
	return bucket[sourceJoinID]
}

// estimateCost prices the scan. Each branch pattern present costs one
// cost model call over the union of that pattern's constraints; the scan
// total is the sum across patterns. A connection below a union fan-in
// therefore pays once per branch.
func (c *Connection) estimateCost() (sql.CostEstimate, error) {
	keys := make([]string, 0, len(c.constraints))
	for k := range c.constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		// nothing propagated yet: price the baseline scan
		est, err := c.modelEstimate(sql.Constraint{})
		if err != nil {
			return sql.CostEstimate{}, err
		}
		return c.withLimit(est), nil
	}

	var total sql.CostEstimate
	for i, k := range keys {
		union := c.unionConstraints(c.constraints[k])
		est, err := c.modelEstimate(union)
		if err != nil {
			return sql.CostEstimate{}, err
		}
		if i == 0 {
			total.Selectivity = est.Selectivity
		}
		total.Rows += est.Rows
		total.RunningCost += est.RunningCost
	}
	return c.withLimit(total), nil
}

func (c *Connection) unionConstraints(bucket branchConstraints) sql.Constraint {
	ids := make([]int, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	union := sql.Constraint{}
	for _, id := range ids {
		union = union.Merge(bucket[id])
	}
	return union
}

func (c *Connection) modelEstimate(constraint sql.Constraint) (sql.CostEstimate, error) {
	est, err := c.source.costModel.EstimateScan(c.source.name, c.ordering, c.filter, constraint)
	if err != nil {
		return sql.CostEstimate{}, err
	}
	if err := est.Validate(); err != nil {
		return sql.CostEstimate{}, err
	}
	return est, nil
}

func (c *Connection) withLimit(est sql.CostEstimate) sql.CostEstimate {
	if c.limit > 0 && !c.unlimited {
		est.Limit = float64(c.limit)
	} else {
		est.Limit = 0
	}
	return est
}

// clearConstraints drops accumulated constraints ahead of a fresh
// propagation pass; pinned and unlimited survive.
func (c *Connection) clearConstraints() {
	c.constraints = map[string]branchConstraints{}
}

func (c *Connection) resetPlanningState() {
	c.constraints = map[string]branchConstraints{}
	c.unlimited = false
	c.pinned = false
}

// captureConstraints deep-copies the branch pattern map for a snapshot.
func (c *Connection) captureConstraints() map[string]branchConstraints {
	out := make(map[string]branchConstraints, len(c.constraints))
	for k, bucket := range c.constraints {
		copied := make(branchConstraints, len(bucket))
		for id, con := range bucket {
			copied[id] = con.Copy()
		}
		out[k] = copied
	}
	return out
}

// restoreConstraints replaces the branch pattern map from a snapshot.
func (c *Connection) restoreConstraints(snapshot map[string]branchConstraints) {
	restored := make(map[string]branchConstraints, len(snapshot))
	for k, bucket := range snapshot {
		copied := make(branchConstraints, len(bucket))
		for id, con := range bucket {
			copied[id] = con.Copy()
		}
		restored[k] = copied
	}
	c.constraints = restored
}
