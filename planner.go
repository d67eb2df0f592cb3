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

// Package planner compiles declarative query trees with nested EXISTS /
// NOT EXISTS subqueries into annotated trees carrying join directions
// and a cost-ordered scan opening order.
package planner

import (
	"context"
	"sync"

	"github.com/mitchellh/hashstructure"
	"github.com/opentracing/opentracing-go"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"gopkg.in/src-d/go-query-planner.v0/memory"
	"gopkg.in/src-d/go-query-planner.v0/sql"
	"gopkg.in/src-d/go-query-planner.v0/sql/analyzer"
)

// Planner plans query trees against a statistics provider and cost
// model. Planning is pure and deterministic, so planned trees are
// memoized by a hash of the input.
type Planner struct {
	analyzer *analyzer.Analyzer
	log      *logrus.Entry

	mu    sync.Mutex
	cache map[uint64]*sql.QueryNode
}

// New creates a Planner with custom configuration. To create one with
// the default cost model over in-memory statistics use NewDefault.
func New(stats sql.StatisticsProvider, costModel sql.CostModel, cfg *Config) *Planner {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.withDefaults()

	a := analyzer.New(stats, costModel, cfg.Listener)
	a.MaxStartingPoints = cfg.MaxStartingPoints

	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Planner{
		analyzer: a,
		log:      log,
		cache:    map[uint64]*sql.QueryNode{},
	}
}

// NewDefault creates a Planner over |stats| with the statistics-driven
// default cost model.
func NewDefault(stats sql.StatisticsProvider) *Planner {
	return New(stats, memory.NewCostModel(stats), nil)
}

// PlanQuery plans |q| and returns the annotated copy. The input is
// never mutated. Repeated calls with an identical tree return the
// cached result.
func (p *Planner) PlanQuery(ctx context.Context, q *sql.QueryNode) (*sql.QueryNode, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "planner.plan")
	defer span.Finish()
	if q != nil {
		span.SetTag("table", q.Table)
	}

	hash, err := hashstructure.Hash(q, nil)
	if err == nil {
		p.mu.Lock()
		cached, ok := p.cache[hash]
		p.mu.Unlock()
		if ok {
			span.SetTag("cached", true)
			return cached, nil
		}
	}

	log := p.log.WithField("plan_id", uuid.NewV4().String())
	if q != nil {
		log = log.WithField("table", q.Table)
	}
	log.Debugf("planning query")

	planned, perr := p.analyzer.PlanQuery(q)
	if perr != nil {
		log.Debugf("planning failed: %s", perr)
		return nil, perr
	}
	log.Debugf("planning done")

	if err == nil {
		p.mu.Lock()
		p.cache[hash] = planned
		p.mu.Unlock()
	}
	return planned, nil
}

// Analyzer exposes the underlying analyzer, mainly for tests.
func (p *Planner) Analyzer() *analyzer.Analyzer {
	return p.analyzer
}
