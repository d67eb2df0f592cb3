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

// Package graph implements the planning graph for correlated subquery
// queries and the cost-based search that picks a join direction for every
// EXISTS / NOT EXISTS and an opening order for every table scan.
//
// The graph is a DAG. Connections are the leaves, the terminus is the
// unique sink, and every edge points downstream. Constraints propagate the
// other way, from the terminus up into the connections, keyed by branch
// pattern so that disjunction structure is priced correctly.
package graph

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

// Node is one vertex of the planning graph. The variant set is closed:
// *Connection, *Join, *FanOut, *FanIn, *Terminus. Planning dispatches on
// the concrete type.
type Node interface {
	// propagateConstraints delivers |c| under |pattern| travelling
	// upstream. |sourceJoinID| identifies the join that contributed the
	// constraint, sql.UnknownJoin if none did.
	propagateConstraints(pattern []int, c sql.Constraint, sourceJoinID int)

	// estimateCost prices the subgraph upstream of this node under the
	// currently propagated constraints.
	estimateCost() (sql.CostEstimate, error)

	// resetPlanningState returns the node's mutable state to its
	// post-construction value.
	resetPlanningState()
}

// branchKey encodes a branch pattern as a map key. Patterns are short
// sequences of small ints, so a dotted decimal string keeps them readable
// in debug output and sorts deterministically enough once collected and
// sorted as strings.
func branchKey(pattern []int) string {
	if len(pattern) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range pattern {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

func appendPattern(pattern []int, prefix int) []int {
	out := make([]int, len(pattern)+1)
	copy(out, pattern)
	out[len(pattern)] = prefix
	return out
}

func nodePanic(n Node) {
	panic(fmt.Sprintf("planner graph: unexpected node type %T", n))
}
