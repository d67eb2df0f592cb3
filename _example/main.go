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

package main

import (
	"context"
	"fmt"

	planner "gopkg.in/src-d/go-query-planner.v0"
	"gopkg.in/src-d/go-query-planner.v0/memory"
	"gopkg.in/src-d/go-query-planner.v0/sql"
)

// Plans `users WHERE EXISTS (SELECT 1 FROM posts WHERE posts.userId =
// users.id)` and prints the chosen join direction.
func main() {
	stats := memory.NewStatsProvider()
	stats.AddTable("users", 1000000).SetCardinality("id", 1000000)
	stats.AddTable("posts", 500).SetCardinality("userId", 400)

	p := planner.NewDefault(stats)

	q := &sql.QueryNode{
		Table: "users",
		Where: &sql.SubqueryCondition{
			Op: sql.Exists,
			Correlation: sql.Correlation{
				ParentColumns: []string{"id"},
				ChildColumns:  []string{"userId"},
			},
			Subquery: &sql.QueryNode{Table: "posts"},
		},
	}

	planned, err := p.PlanQuery(context.Background(), q)
	if err != nil {
		panic(err)
	}

	cond := planned.Where.(*sql.SubqueryCondition)
	fmt.Printf("subquery %d flipped: %v\n", cond.PlanID, cond.Flip)
}
