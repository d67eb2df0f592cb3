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

package planner

import (
	"github.com/sirupsen/logrus"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

// LogListener reports planning lifecycle events through logrus at Debug
// level.
type LogListener struct {
	Log *logrus.Entry
}

var _ sql.PlanListener = (*LogListener)(nil)

// NewLogListener returns a listener writing to |log|, or to the standard
// logger when nil.
func NewLogListener(log *logrus.Entry) *LogListener {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogListener{Log: log}
}

func (l *LogListener) AttemptStarted(attempt int) {
	l.Log.WithField("attempt", attempt).Debug("planning attempt started")
}

func (l *LogListener) CandidateCosts(attempt int, costs []sql.ConnectionCost) {
	l.Log.WithFields(logrus.Fields{
		"attempt": attempt,
		"costs":   costs,
	}).Debug("candidate connection costs")
}

func (l *LogListener) ConnectionPinned(attempt int, table string, planID int, flipped []int) {
	l.Log.WithFields(logrus.Fields{
		"attempt": attempt,
		"table":   table,
		"plan_id": planID,
		"flipped": flipped,
	}).Debug("connection pinned")
}

func (l *LogListener) AttemptCompleted(attempt int, totalCost float64) {
	l.Log.WithFields(logrus.Fields{
		"attempt": attempt,
		"cost":    totalCost,
	}).Debug("planning attempt completed")
}

func (l *LogListener) BestPlanFound(attempt int, totalCost float64) {
	l.Log.WithFields(logrus.Fields{
		"attempt": attempt,
		"cost":    totalCost,
	}).Debug("new best plan")
}

func (l *LogListener) AttemptFailed(attempt int) {
	l.Log.WithField("attempt", attempt).Debug("planning attempt failed")
}
