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

// FanMode is the disjunction evaluation mode of a FanOut/FanIn pair.
type FanMode byte

const (
	// FanModePlain shares one upstream scan across all branches.
	FanModePlain FanMode = iota
	// FanModeUnion scans the upstream once per branch. Entered when a
	// branch is driven in isolation, after a flip inside the
	// disjunction.
	FanModeUnion
)

func (m FanMode) String() string {
	if m == FanModeUnion {
		return "union"
	}
	return "plain"
}

// FanOut splits the upstream scan into the branches of a disjunction. It
// has a single upstream input and one downstream edge per branch.
type FanOut struct {
	input Node
	outs  []Node
	pair  *FanIn

	mode FanMode
}

// Mode returns the fan's current mode.
func (f *FanOut) Mode() FanMode { return f.mode }

func (f *FanOut) addDownstream(n Node) {
	f.outs = append(f.outs, n)
}

// propagateConstraints forwards upstream unchanged. Branch multiplicity
// is already encoded in the pattern by the paired FanIn.
func (f *FanOut) propagateConstraints(pattern []int, c sql.Constraint, sourceJoinID int) {
	f.input.propagateConstraints(pattern, c, sourceJoinID)
}

// estimateCost amortizes the upstream cost across branches. Every branch
// asks for the upstream estimate once, and the upstream connection has
// already multiplied itself by its branch pattern count, so dividing by
// the branch count makes the fan-in's sum price each actual scan exactly
// once.
func (f *FanOut) estimateCost() (sql.CostEstimate, error) {
	est, err := f.input.estimateCost()
	if err != nil {
		return sql.CostEstimate{}, err
	}
	if n := float64(len(f.outs)); n > 1 {
		est.Rows /= n
		est.RunningCost /= n
	}
	return est, nil
}

func (f *FanOut) resetPlanningState() {
	f.mode = FanModePlain
}

// FanIn merges the branches of a disjunction back into a single
// downstream edge.
type FanIn struct {
	inputs []Node
	out    Node
	pair   *FanOut

	mode FanMode
}

// Mode returns the fan's current mode.
func (f *FanIn) Mode() FanMode { return f.mode }

func (f *FanIn) setDownstream(n Node) {
	if f.out != nil {
		panic("planner graph: fan-in downstream set twice")
	}
	f.out = n
}

// setUnion switches the pair to union mode. Irreversible within an
// attempt; snapshot restore is the only way back.
func (f *FanIn) setUnion() {
	f.mode = FanModeUnion
	if f.pair != nil {
		f.pair.mode = FanModeUnion
	}
}

// propagateConstraints composes the branch prefix onto the incoming
// pattern and forwards to every input. Plain mode gives all branches
// prefix 0, so upstream scans converge on a single pattern; union mode
// gives each branch its own prefix, so upstream scans pay per branch.
func (f *FanIn) propagateConstraints(pattern []int, c sql.Constraint, sourceJoinID int) {
	for i, in := range f.inputs {
		prefix := 0
		if f.mode == FanModeUnion {
			prefix = i
		}
		in.propagateConstraints(appendPattern(pattern, prefix), c, sourceJoinID)
	}
}

// estimateCost sums the branches and combines selectivity with the
// complement product rule.
func (f *FanIn) estimateCost() (sql.CostEstimate, error) {
	missProduct := 1.0
	var out sql.CostEstimate
	for _, in := range f.inputs {
		est, err := in.estimateCost()
		if err != nil {
			return sql.CostEstimate{}, err
		}
		out.Rows += est.Rows
		out.RunningCost += est.RunningCost
		missProduct *= 1 - est.Selectivity
	}
	out.Selectivity = 1 - missProduct
	if out.Selectivity == 0 {
		// no inputs, or branch selectivities too small to register
		out.Selectivity = 1
	}
	return out, nil
}

func (f *FanIn) resetPlanningState() {
	f.mode = FanModePlain
}
