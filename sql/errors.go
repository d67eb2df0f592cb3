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

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrUnflippableJoin is returned when planning demands that a
	// NOT EXISTS join drive its parent. It is recovered inside Plan by
	// restoring the pre-pin snapshot and trying the next candidate.
	ErrUnflippableJoin = errors.NewKind("cannot flip join %d: not flippable")

	// ErrMalformedQuery is returned for structurally invalid input, such
	// as a related subquery without an alias or a correlation whose
	// column lists differ in length.
	ErrMalformedQuery = errors.NewKind("malformed query: %s")

	// ErrUnknownTable is returned when a query references a table the
	// statistics provider has never heard of.
	ErrUnknownTable = errors.NewKind("unknown table: %s")

	// ErrOrderingColumn is returned when an ordering names a column that
	// does not exist on the ordered table.
	ErrOrderingColumn = errors.NewKind("table %s has no column %s to order by")

	// ErrCostModelFault is returned when the cost model breaks its
	// contract with a negative, non-finite or out-of-range value.
	ErrCostModelFault = errors.NewKind("cost model returned invalid value: %v")
)
