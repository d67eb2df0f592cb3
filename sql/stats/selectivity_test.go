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

package stats

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

type fixedStats struct {
	cardinalities map[string]float64
}

func (s fixedStats) RowCount(string) (float64, error) { return 1000, nil }

func (s fixedStats) Cardinality(_, column string) (float64, error) {
	card, ok := s.cardinalities[column]
	if !ok {
		return 0, fmt.Errorf("no cardinality for %s", column)
	}
	return card, nil
}

func (s fixedStats) FanOut(string, []string) (float64, sql.FanOutConfidence, error) {
	return 1, sql.FanOutUnknown, nil
}

func TestFilterSelectivity(t *testing.T) {
	prov := fixedStats{cardinalities: map[string]float64{"id": 100}}

	eq := func(col string, op sql.SimpleOp, v interface{}) sql.Condition {
		return &sql.SimpleCondition{Column: col, Op: op, Value: v}
	}

	tests := []struct {
		name string
		cond sql.Condition
		exp  float64
	}{
		{"nil filter", nil, 1},
		{"equality uses cardinality", eq("id", sql.OpEq, 1), 0.01},
		{"equality default", eq("other", sql.OpEq, 1), DefaultEqSelectivity},
		{"inequality", eq("id", sql.OpNotEq, 1), 0.99},
		{"in list", eq("id", sql.OpIn, []interface{}{1, 2, 3}), 0.03},
		{"not in list", eq("id", sql.OpNotIn, []interface{}{1, 2, 3}), 0.97},
		{"range", eq("id", sql.OpLt, 5), DefaultRangeSelectivity},
		{"like", eq("name", sql.OpLike, "a%"), DefaultLikeSelectivity},
		{"not like", eq("name", sql.OpNotLike, "a%"), 0.9},
		{
			"subquery default",
			&sql.SubqueryCondition{Op: sql.Exists, Subquery: &sql.QueryNode{Table: "t"}},
			DefaultSubquerySelectivity,
		},
		{
			"and multiplies",
			&sql.AndCondition{Conds: []sql.Condition{
				eq("id", sql.OpEq, 1),
				eq("id", sql.OpLt, 5),
			}},
			0.01 * DefaultRangeSelectivity,
		},
		{
			"or complements",
			&sql.OrCondition{Conds: []sql.Condition{
				eq("id", sql.OpEq, 1),
				eq("id", sql.OpEq, 2),
			}},
			1 - 0.99*0.99,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterSelectivity("t", tt.cond, prov)
			require.InDelta(t, tt.exp, got, 1e-12)
		})
	}
}

func TestSelectivityClamped(t *testing.T) {
	prov := fixedStats{cardinalities: map[string]float64{"id": 10}}

	// a huge IN list saturates at 1
	big := make([]interface{}, 100)
	sel := FilterSelectivity("t", &sql.SimpleCondition{Column: "id", Op: sql.OpIn, Value: big}, prov)
	require.Equal(t, float64(1), sel)

	// NOT IN of the same list floors just above zero
	sel = FilterSelectivity("t", &sql.SimpleCondition{Column: "id", Op: sql.OpNotIn, Value: big}, prov)
	require.True(t, sel > 0 && sel < 1e-6)
}

func TestDeriveFanOut(t *testing.T) {
	f, conf := DeriveFanOut(1000, 100)
	require.Equal(t, float64(10), f)
	require.Equal(t, sql.FanOutDerived, conf)

	// fan-out never drops below one row per key
	f, _ = DeriveFanOut(10, 100)
	require.Equal(t, float64(1), f)

	f, conf = DeriveFanOut(0, 0)
	require.Equal(t, float64(1), f)
	require.Equal(t, sql.FanOutUnknown, conf)
}

func TestPrefixCardinality(t *testing.T) {
	prov := fixedStats{cardinalities: map[string]float64{"a": 10, "b": 20}}

	require.Equal(t, float64(200), PrefixCardinality("t", []string{"a", "b"}, 1000, prov))
	// capped at the row count
	require.Equal(t, float64(100), PrefixCardinality("t", []string{"a", "b"}, 100, prov))
	// unknown columns contribute nothing
	require.Equal(t, float64(10), PrefixCardinality("t", []string{"a", "x"}, 1000, prov))
	require.Equal(t, float64(0), PrefixCardinality("t", []string{"x"}, 1000, prov))
}
