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

// ConnectionCost is one entry of a candidate cost listing handed to a
// PlanListener.
type ConnectionCost struct {
	Table  string
	PlanID int
	Cost   float64
	Pinned bool
}

// PlanListener receives planning lifecycle callbacks. All calls happen
// synchronously on the planning goroutine and carry plain values; a
// listener must not retain the slices it is handed.
type PlanListener interface {
	// AttemptStarted fires at the top of each planning attempt.
	AttemptStarted(attempt int)

	// CandidateCosts fires before each greedy step with the current
	// cost listing of all connections.
	CandidateCosts(attempt int, costs []ConnectionCost)

	// ConnectionPinned fires when a connection is pinned, with the plan
	// ids of joins flipped by the pin's downstream traversal.
	ConnectionPinned(attempt int, table string, planID int, flipped []int)

	// AttemptCompleted fires when every connection was pinned.
	AttemptCompleted(attempt int, totalCost float64)

	// BestPlanFound fires when a completed attempt beats the best so far.
	BestPlanFound(attempt int, totalCost float64)

	// AttemptFailed fires when an attempt ends with connections left
	// unpinned: its starting connection, or every candidate of a greedy
	// step, hit an unflippable join.
	AttemptFailed(attempt int)
}

// NopListener is a PlanListener that ignores everything.
type NopListener struct{}

var _ PlanListener = NopListener{}

func (NopListener) AttemptStarted(int)                       {}
func (NopListener) CandidateCosts(int, []ConnectionCost)     {}
func (NopListener) ConnectionPinned(int, string, int, []int) {}
func (NopListener) AttemptCompleted(int, float64)            {}
func (NopListener) BestPlanFound(int, float64)               {}
func (NopListener) AttemptFailed(int)                        {}
