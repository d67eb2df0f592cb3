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

package memory

import (
	"gopkg.in/src-d/go-query-planner.v0/sql"
	"gopkg.in/src-d/go-query-planner.v0/sql/stats"
)

// CostModel prices scans straight off a statistics provider: baseline
// rows shrink by filter selectivity, and each join's constraint group
// shrinks them further by that group's fan-out (or per-column
// cardinality when no fan-out is known). Running cost equals rows read.
type CostModel struct {
	provider sql.StatisticsProvider
}

var _ sql.CostModel = (*CostModel)(nil)

// NewCostModel returns a cost model over |provider|.
func NewCostModel(provider sql.StatisticsProvider) *CostModel {
	return &CostModel{provider: provider}
}

// EstimateScan implements sql.CostModel.
func (m *CostModel) EstimateScan(table string, ordering sql.Ordering, filter sql.Condition, constraint sql.Constraint) (sql.CostEstimate, error) {
	base, err := m.provider.RowCount(table)
	if err != nil {
		return sql.CostEstimate{}, err
	}

	sel := stats.FilterSelectivity(table, filter, m.provider)
	rows := base * sel

	for _, grp := range constraint.ColumnsBySource() {
		f, conf, err := m.provider.FanOut(table, grp.Columns)
		if err == nil && conf != sql.FanOutUnknown && base > 0 {
			rows *= f / base
			continue
		}
		for _, col := range grp.Columns {
			if card, err := m.provider.Cardinality(table, col); err == nil && card > 0 {
				rows /= card
			}
		}
	}

	est := sql.CostEstimate{
		Rows:        rows,
		RunningCost: rows,
		Selectivity: sel,
	}
	if len(constraint) > 0 {
		// constrained scans double as probes; the chance a driving row
		// finds at least one match is bounded by the expected matches
		est.Selectivity = matchSelectivity(rows)
	}
	return est, nil
}

func matchSelectivity(expectedRows float64) float64 {
	if expectedRows >= 1 {
		return 1
	}
	if expectedRows < 1e-9 {
		return 1e-9
	}
	return expectedRows
}
