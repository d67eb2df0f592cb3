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

package sql

import (
	"math"
	"sort"
	"strings"
)

// CostEstimate is a cost model's answer for one scan, or a combined
// estimate for a subtree of the planning graph.
//
// Rows and RunningCost are absolute; Selectivity is the fraction of
// driving rows the subtree lets through, always in (0, 1]. Limit <= 0
// means the scan is unbounded.
type CostEstimate struct {
	Rows        float64
	RunningCost float64
	Selectivity float64
	Limit       float64
}

// Validate checks the cost model contract: finite non-negative rows and
// running cost, selectivity in (0, 1].
func (e CostEstimate) Validate() error {
	for _, v := range []float64{e.Rows, e.RunningCost} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return ErrCostModelFault.New(v)
		}
	}
	if math.IsNaN(e.Selectivity) || e.Selectivity <= 0 || e.Selectivity > 1 {
		return ErrCostModelFault.New(e.Selectivity)
	}
	return nil
}

// CostModel estimates the cost of a single scan of |table| under |ordering|
// and |filter|, narrowed by the columns in |constraint|. Implementations
// must be deterministic for identical arguments within one planning call,
// and are invoked synchronously on the planning goroutine.
type CostModel interface {
	EstimateScan(table string, ordering Ordering, filter Condition, constraint Constraint) (CostEstimate, error)
}

// CostModelFunc adapts a function to the CostModel interface.
type CostModelFunc func(table string, ordering Ordering, filter Condition, constraint Constraint) (CostEstimate, error)

// EstimateScan implements CostModel.
func (f CostModelFunc) EstimateScan(table string, ordering Ordering, filter Condition, constraint Constraint) (CostEstimate, error) {
	return f(table, ordering, filter, constraint)
}

// UnknownJoin marks a constraint column that was not contributed by any
// join, e.g. the empty constraint seeded by the terminus.
const UnknownJoin = 0

// Constraint is a set of columns pinned to correlated values, each tagged
// with the plan id of the join that contributed it. The tag lets a cost
// model group columns by join and price each group with that join's
// fan-out.
type Constraint map[string]ConstraintCol

// ConstraintCol carries the provenance of a constrained column.
type ConstraintCol struct {
	SourceJoinID int
}

// Merge returns the union of c and other. Entries already present in c
// win; constraint accumulation is monotonic within a planning attempt.
func (c Constraint) Merge(other Constraint) Constraint {
	if len(other) == 0 {
		return c
	}
	out := make(Constraint, len(c)+len(other))
	for col, v := range other {
		out[col] = v
	}
	for col, v := range c {
		out[col] = v
	}
	return out
}

// Copy returns a deep copy of the constraint.
func (c Constraint) Copy() Constraint {
	if c == nil {
		return nil
	}
	out := make(Constraint, len(c))
	for col, v := range c {
		out[col] = v
	}
	return out
}

// Columns returns the constrained column names in sorted order.
func (c Constraint) Columns() []string {
	cols := make([]string, 0, len(c))
	for col := range c {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// ColumnsBySource groups the constrained columns by contributing join,
// sorted by join id and then by column name, for deterministic per-join
// fan-out lookups.
func (c Constraint) ColumnsBySource() []SourceColumns {
	byID := map[int][]string{}
	for col, v := range c {
		byID[v.SourceJoinID] = append(byID[v.SourceJoinID], col)
	}
	out := make([]SourceColumns, 0, len(byID))
	for id, cols := range byID {
		sort.Strings(cols)
		out = append(out, SourceColumns{SourceJoinID: id, Columns: cols})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceJoinID < out[j].SourceJoinID })
	return out
}

func (c Constraint) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, sc := range c.ColumnsBySource() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strings.Join(sc.Columns, ","))
	}
	b.WriteByte('}')
	return b.String()
}

// SourceColumns is one join's contribution to a constraint.
type SourceColumns struct {
	SourceJoinID int
	Columns      []string
}
