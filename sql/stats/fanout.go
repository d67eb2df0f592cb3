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
	"strings"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

// DeriveFanOut computes rows-per-distinct-key from a table's row count
// and the cardinality of the key prefix. Used as the fallback when a
// provider has no measured fan-out for a column list.
func DeriveFanOut(rows, cardinality float64) (float64, sql.FanOutConfidence) {
	if rows <= 0 || cardinality <= 0 {
		return 1, sql.FanOutUnknown
	}
	f := rows / cardinality
	if f < 1 {
		f = 1
	}
	return f, sql.FanOutDerived
}

// FanOutKey canonicalizes an ordered column list into a catalog key.
func FanOutKey(columns []string) string {
	return strings.Join(columns, ",")
}

// PrefixCardinality estimates the distinct count of a multi-column
// prefix as the product of per-column cardinalities, capped at the row
// count. A crude independence assumption, same as the per-column
// defaults elsewhere in this package.
func PrefixCardinality(table string, columns []string, rows float64, prov sql.StatisticsProvider) float64 {
	card := 1.0
	known := false
	for _, col := range columns {
		c, err := prov.Cardinality(table, col)
		if err != nil || c <= 0 {
			continue
		}
		known = true
		card *= c
	}
	if !known {
		return 0
	}
	if rows > 0 && card > rows {
		card = rows
	}
	return card
}
