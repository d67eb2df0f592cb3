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

// Package stats is the statistics toolkit behind the planner's cost
// inputs: filter selectivity estimation with PostgreSQL-style defaults,
// fan-out derivation, a HyperLogLog cardinality sketch, and an optional
// bolt-backed statistics catalog.
package stats

import (
	"github.com/spf13/cast"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

// Defaults used when no cardinality is available, following the
// PostgreSQL planner's conventions.
const (
	DefaultEqSelectivity       = 0.005
	DefaultRangeSelectivity    = 0.333
	DefaultLikeSelectivity     = 0.1
	DefaultSubquerySelectivity = 0.5

	// selectivityFloor keeps estimates inside the cost model contract's
	// open lower bound.
	selectivityFloor = 1e-9
)

// FilterSelectivity estimates the fraction of |table|'s rows that pass
// |filter|. AND multiplies children, OR combines them with the
// complement product rule, and leaves fall back to PostgreSQL-style
// defaults when |prov| has no cardinality for the column.
func FilterSelectivity(table string, filter sql.Condition, prov sql.StatisticsProvider) float64 {
	return clampSelectivity(conditionSelectivity(table, filter, prov))
}

func conditionSelectivity(table string, cond sql.Condition, prov sql.StatisticsProvider) float64 {
	switch c := cond.(type) {
	case nil:
		return 1
	case *sql.AndCondition:
		sel := 1.0
		for _, child := range c.Conds {
			sel *= conditionSelectivity(table, child, prov)
		}
		return sel
	case *sql.OrCondition:
		miss := 1.0
		for _, child := range c.Conds {
			miss *= 1 - conditionSelectivity(table, child, prov)
		}
		return 1 - miss
	case *sql.SubqueryCondition:
		return DefaultSubquerySelectivity
	case *sql.SimpleCondition:
		return simpleSelectivity(table, c, prov)
	}
	return 1
}

func simpleSelectivity(table string, c *sql.SimpleCondition, prov sql.StatisticsProvider) float64 {
	eq := DefaultEqSelectivity
	if card, err := prov.Cardinality(table, c.Column); err == nil && card > 0 {
		eq = 1 / card
	}

	switch c.Op {
	case sql.OpEq:
		return eq
	case sql.OpNotEq:
		return 1 - eq
	case sql.OpIn:
		n := inListSize(c.Value)
		if s := float64(n) * eq; s < 1 {
			return s
		}
		return 1
	case sql.OpNotIn:
		n := inListSize(c.Value)
		if s := float64(n) * eq; s < 1 {
			return 1 - s
		}
		return selectivityFloor
	case sql.OpLt, sql.OpLtEq, sql.OpGt, sql.OpGtEq:
		return DefaultRangeSelectivity
	case sql.OpLike:
		return DefaultLikeSelectivity
	case sql.OpNotLike:
		return 1 - DefaultLikeSelectivity
	}
	return 1
}

// inListSize interprets the literal of an IN condition; a scalar counts
// as a one-element list.
func inListSize(v interface{}) int {
	if v == nil {
		return 0
	}
	if list := cast.ToSlice(v); list != nil {
		return len(list)
	}
	return 1
}

func clampSelectivity(s float64) float64 {
	if s < selectivityFloor {
		return selectivityFloor
	}
	if s > 1 {
		return 1
	}
	return s
}
