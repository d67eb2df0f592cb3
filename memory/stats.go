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

// Package memory provides in-memory implementations of the planner's
// collaborator interfaces, for tests, examples and embedders that keep
// statistics in process.
package memory

import (
	"sort"

	"github.com/pkg/errors"

	"gopkg.in/src-d/go-query-planner.v0/sql"
	"gopkg.in/src-d/go-query-planner.v0/sql/stats"
)

// Table is one table's in-memory statistics.
type Table struct {
	Name          string
	Rows          float64
	Cardinalities map[string]float64
	FanOuts       map[string]float64
}

// StatsProvider is an in-memory sql.StatisticsProvider.
type StatsProvider struct {
	tables map[string]*Table
}

var _ sql.StatisticsProvider = (*StatsProvider)(nil)
var _ sql.ColumnLister = (*StatsProvider)(nil)

// NewStatsProvider returns an empty provider.
func NewStatsProvider() *StatsProvider {
	return &StatsProvider{tables: map[string]*Table{}}
}

// AddTable registers a table with its row count and returns it for
// further decoration.
func (p *StatsProvider) AddTable(name string, rows float64) *Table {
	t := &Table{
		Name:          name,
		Rows:          rows,
		Cardinalities: map[string]float64{},
		FanOuts:       map[string]float64{},
	}
	p.tables[name] = t
	return t
}

// SetCardinality records the distinct count of a column.
func (t *Table) SetCardinality(column string, cardinality float64) *Table {
	t.Cardinalities[column] = cardinality
	return t
}

// SetFanOut records a measured fan-out for an ordered column prefix.
func (t *Table) SetFanOut(columns []string, fanOut float64) *Table {
	t.FanOuts[stats.FanOutKey(columns)] = fanOut
	return t
}

// RowCount implements sql.StatisticsProvider.
func (p *StatsProvider) RowCount(table string) (float64, error) {
	t, ok := p.tables[table]
	if !ok {
		return 0, sql.ErrUnknownTable.New(table)
	}
	return t.Rows, nil
}

// Cardinality implements sql.StatisticsProvider.
func (p *StatsProvider) Cardinality(table, column string) (float64, error) {
	t, ok := p.tables[table]
	if !ok {
		return 0, sql.ErrUnknownTable.New(table)
	}
	card, ok := t.Cardinalities[column]
	if !ok {
		return 0, errors.Errorf("no cardinality for %s.%s", table, column)
	}
	return card, nil
}

// FanOut implements sql.StatisticsProvider. Measured fan-outs win, then
// derivation from cardinalities, then an unknown default of 1.
func (p *StatsProvider) FanOut(table string, columns []string) (float64, sql.FanOutConfidence, error) {
	t, ok := p.tables[table]
	if !ok {
		return 0, sql.FanOutUnknown, sql.ErrUnknownTable.New(table)
	}
	if f, ok := t.FanOuts[stats.FanOutKey(columns)]; ok {
		return f, sql.FanOutMeasured, nil
	}
	card := stats.PrefixCardinality(table, columns, t.Rows, p)
	if card <= 0 {
		return 1, sql.FanOutUnknown, nil
	}
	f, conf := stats.DeriveFanOut(t.Rows, card)
	return f, conf, nil
}

// Columns implements sql.ColumnLister over the columns with recorded
// cardinalities.
func (p *StatsProvider) Columns(table string) []string {
	t, ok := p.tables[table]
	if !ok || len(t.Cardinalities) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.Cardinalities))
	for col := range t.Cardinalities {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}
