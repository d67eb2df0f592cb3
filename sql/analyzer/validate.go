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

package analyzer

import (
	"fmt"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

// validate rejects malformed input before any graph is built: unknown
// tables, orderings over absent columns, related entries without an
// alias, and correlations whose column lists disagree in length.
func (a *Analyzer) validate(q *sql.QueryNode) error {
	if q.Table == "" {
		return sql.ErrMalformedQuery.New("query without a table")
	}
	if _, err := a.Stats.RowCount(q.Table); err != nil {
		return sql.ErrUnknownTable.New(q.Table)
	}
	if err := a.validateOrdering(q.Table, q.OrderBy); err != nil {
		return err
	}
	if err := a.validateCondition(q.Where); err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, rel := range q.Related {
		if rel.Alias == "" {
			return sql.ErrMalformedQuery.New("related subquery without an alias")
		}
		if seen[rel.Alias] {
			return sql.ErrMalformedQuery.New(fmt.Sprintf("duplicate related alias %q", rel.Alias))
		}
		seen[rel.Alias] = true
		if err := validateCorrelation(rel.Correlation); err != nil {
			return err
		}
		if rel.Subquery == nil {
			return sql.ErrMalformedQuery.New(fmt.Sprintf("related subquery %q without a query", rel.Alias))
		}
		if err := a.validate(rel.Subquery); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) validateOrdering(table string, ordering sql.Ordering) error {
	lister, ok := a.Stats.(sql.ColumnLister)
	if !ok {
		return nil
	}
	cols := lister.Columns(table)
	if cols == nil {
		return nil
	}
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	for _, o := range ordering {
		if !known[o.Column] {
			return sql.ErrOrderingColumn.New(table, o.Column)
		}
	}
	return nil
}

func (a *Analyzer) validateCondition(cond sql.Condition) error {
	if cond == nil {
		return nil
	}
	if c, ok := cond.(*sql.SubqueryCondition); ok {
		if c.Subquery == nil {
			return sql.ErrMalformedQuery.New("subquery condition without a query")
		}
		if err := validateCorrelation(c.Correlation); err != nil {
			return err
		}
		return a.validate(c.Subquery)
	}
	for _, child := range cond.Children() {
		if err := a.validateCondition(child); err != nil {
			return err
		}
	}
	return nil
}

func validateCorrelation(c sql.Correlation) error {
	if len(c.ParentColumns) != len(c.ChildColumns) {
		return sql.ErrMalformedQuery.New(fmt.Sprintf(
			"correlation column lists differ in length: %d parent, %d child",
			len(c.ParentColumns), len(c.ChildColumns)))
	}
	return nil
}
