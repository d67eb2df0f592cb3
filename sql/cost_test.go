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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCostEstimateValidate(t *testing.T) {
	tests := []struct {
		name string
		est  CostEstimate
		ok   bool
	}{
		{"valid", CostEstimate{Rows: 1, RunningCost: 1, Selectivity: 1}, true},
		{"zero rows", CostEstimate{Rows: 0, RunningCost: 0, Selectivity: 0.5}, true},
		{"negative rows", CostEstimate{Rows: -1, RunningCost: 1, Selectivity: 1}, false},
		{"nan cost", CostEstimate{Rows: 1, RunningCost: math.NaN(), Selectivity: 1}, false},
		{"inf rows", CostEstimate{Rows: math.Inf(1), RunningCost: 1, Selectivity: 1}, false},
		{"zero selectivity", CostEstimate{Rows: 1, RunningCost: 1, Selectivity: 0}, false},
		{"selectivity above one", CostEstimate{Rows: 1, RunningCost: 1, Selectivity: 1.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.est.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.True(t, ErrCostModelFault.Is(err))
			}
		})
	}
}

func TestConstraintMerge(t *testing.T) {
	a := Constraint{"x": {SourceJoinID: 1}}
	b := Constraint{"x": {SourceJoinID: 2}, "y": {SourceJoinID: 2}}

	merged := a.Merge(b)
	// entries already present win
	require.Equal(t, Constraint{
		"x": {SourceJoinID: 1},
		"y": {SourceJoinID: 2},
	}, merged)

	// inputs are untouched
	require.Equal(t, Constraint{"x": {SourceJoinID: 1}}, a)
	require.Len(t, b, 2)

	// merging the empty constraint is the identity
	require.Equal(t, a, a.Merge(Constraint{}))
}

func TestConstraintColumnsBySource(t *testing.T) {
	c := Constraint{
		"b": {SourceJoinID: 2},
		"a": {SourceJoinID: 1},
		"c": {SourceJoinID: 1},
	}

	require.Equal(t, []SourceColumns{
		{SourceJoinID: 1, Columns: []string{"a", "c"}},
		{SourceJoinID: 2, Columns: []string{"b"}},
	}, c.ColumnsBySource())
	require.Equal(t, []string{"a", "b", "c"}, c.Columns())
	require.Equal(t, "{a,c, b}", c.String())
}

func TestConstraintCopy(t *testing.T) {
	c := Constraint{"x": {SourceJoinID: 1}}
	cp := c.Copy()
	cp["y"] = ConstraintCol{SourceJoinID: 2}
	require.Len(t, c, 1)

	require.Nil(t, Constraint(nil).Copy())
}

func TestScanFilter(t *testing.T) {
	simpleA := &SimpleCondition{Column: "a", Op: OpEq, Value: 1}
	simpleB := &SimpleCondition{Column: "b", Op: OpEq, Value: 2}
	sub := &SubqueryCondition{Op: Exists, Subquery: &QueryNode{Table: "t"}}

	tests := []struct {
		name string
		in   Condition
		exp  Condition
	}{
		{"nil", nil, nil},
		{"simple passes through", simpleA, simpleA},
		{"subquery dropped", sub, nil},
		{"simple-only or kept", &OrCondition{Conds: []Condition{simpleA, simpleB}}, &OrCondition{Conds: []Condition{simpleA, simpleB}}},
		{"or with subquery dropped", &OrCondition{Conds: []Condition{simpleA, sub}}, nil},
		{"and keeps residue", &AndCondition{Conds: []Condition{simpleA, sub, simpleB}}, &AndCondition{Conds: []Condition{simpleA, simpleB}}},
		{"and collapses to single child", &AndCondition{Conds: []Condition{sub, simpleA}}, simpleA},
		{"and of subqueries dropped", &AndCondition{Conds: []Condition{sub, sub}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.exp, ScanFilter(tt.in))
		})
	}
}

func TestHasSubquery(t *testing.T) {
	simple := &SimpleCondition{Column: "a", Op: OpEq, Value: 1}
	sub := &SubqueryCondition{Op: Exists, Subquery: &QueryNode{Table: "t"}}

	require.False(t, HasSubquery(nil))
	require.False(t, HasSubquery(simple))
	require.True(t, HasSubquery(sub))
	require.True(t, HasSubquery(&AndCondition{Conds: []Condition{simple, sub}}))
	require.False(t, HasSubquery(&OrCondition{Conds: []Condition{simple, simple}}))
}
