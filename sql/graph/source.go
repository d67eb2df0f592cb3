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

package graph

import "gopkg.in/src-d/go-query-planner.v0/sql"

// Source is a named table together with its cost model. Sources are
// deduplicated by name within a graph; two subqueries over the same table
// share the source but scan through independent connections.
type Source struct {
	name        string
	costModel   sql.CostModel
	connections []*Connection
}

// Name returns the table name.
func (s *Source) Name() string { return s.name }

// Connections returns the connections minted from this source.
func (s *Source) Connections() []*Connection { return s.connections }
