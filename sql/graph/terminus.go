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

// Terminus is the unique sink of the graph. It seeds constraint
// propagation with the empty pattern and evaluates total plan cost.
type Terminus struct {
	input Node
}

// PropagateConstraints kicks off a propagation pass over the whole
// graph.
func (t *Terminus) PropagateConstraints() {
	t.input.propagateConstraints(nil, sql.Constraint{}, sql.UnknownJoin)
}

func (t *Terminus) propagateConstraints(pattern []int, c sql.Constraint, sourceJoinID int) {
	nodePanic(t)
}

// EstimateCost prices the whole plan under the current directions and
// constraints.
func (t *Terminus) EstimateCost() (sql.CostEstimate, error) {
	return t.input.estimateCost()
}

func (t *Terminus) estimateCost() (sql.CostEstimate, error) {
	return t.input.estimateCost()
}

func (t *Terminus) resetPlanningState() {}
