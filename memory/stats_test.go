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
	"testing"

	"github.com/stretchr/testify/require"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

func TestStatsProvider(t *testing.T) {
	p := NewStatsProvider()
	p.AddTable("users", 10000).
		SetCardinality("id", 10000).
		SetCardinality("country", 50).
		SetFanOut([]string{"country"}, 250)

	rows, err := p.RowCount("users")
	require.NoError(t, err)
	require.Equal(t, float64(10000), rows)

	_, err = p.RowCount("nope")
	require.True(t, sql.ErrUnknownTable.Is(err))

	card, err := p.Cardinality("users", "country")
	require.NoError(t, err)
	require.Equal(t, float64(50), card)

	_, err = p.Cardinality("users", "nope")
	require.Error(t, err)

	f, conf, err := p.FanOut("users", []string{"country"})
	require.NoError(t, err)
	require.Equal(t, float64(250), f)
	require.Equal(t, sql.FanOutMeasured, conf)

	f, conf, err = p.FanOut("users", []string{"id"})
	require.NoError(t, err)
	require.Equal(t, float64(1), f)
	require.Equal(t, sql.FanOutDerived, conf)

	_, conf, err = p.FanOut("users", []string{"unknown"})
	require.NoError(t, err)
	require.Equal(t, sql.FanOutUnknown, conf)

	require.Equal(t, []string{"country", "id"}, p.Columns("users"))
	require.Nil(t, p.Columns("nope"))
}

func TestCostModelConstraints(t *testing.T) {
	p := NewStatsProvider()
	p.AddTable("posts", 10000).
		SetCardinality("userId", 100).
		SetFanOut([]string{"userId"}, 100)

	m := NewCostModel(p)

	base, err := m.EstimateScan("posts", nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, float64(10000), base.Rows)
	require.Equal(t, float64(1), base.Selectivity)

	constrained, err := m.EstimateScan("posts", nil, nil, sql.Constraint{
		"userId": {SourceJoinID: 1},
	})
	require.NoError(t, err)
	// 10000 rows * measured fan-out 100 / 10000 rows
	require.InDelta(t, 100, constrained.Rows, 1e-9)
	// plenty of expected matches: a driving row always finds one
	require.Equal(t, float64(1), constrained.Selectivity)

	require.NoError(t, constrained.Validate())
}

func TestCostModelFilterSelectivity(t *testing.T) {
	p := NewStatsProvider()
	p.AddTable("posts", 10000).SetCardinality("status", 4)

	m := NewCostModel(p)

	got, err := m.EstimateScan("posts", nil, &sql.SimpleCondition{
		Column: "status", Op: sql.OpEq, Value: "open",
	}, nil)
	require.NoError(t, err)
	require.InDelta(t, 2500, got.Rows, 1e-9)
	require.InDelta(t, 0.25, got.Selectivity, 1e-9)
}
