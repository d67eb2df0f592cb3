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
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"gopkg.in/src-d/go-query-planner.v0/sql"
)

var statsBucket = []byte("tables")

// TableStatistics is the persisted statistics record of one table.
type TableStatistics struct {
	Name          string             `json:"name"`
	Rows          float64            `json:"rows"`
	Cardinalities map[string]float64 `json:"cardinalities"`
	FanOuts       []FanOutStat       `json:"fanouts,omitempty"`
}

// FanOutStat is a measured fan-out for an ordered column prefix.
type FanOutStat struct {
	Columns []string `json:"columns"`
	Value   float64  `json:"value"`
}

// BoltCatalog is a statistics catalog persisted in a bolt file. Values
// are snappy-compressed JSON. It implements sql.StatisticsProvider, so a
// planner can run straight off the catalog.
type BoltCatalog struct {
	db *bolt.DB
}

var _ sql.StatisticsProvider = (*BoltCatalog)(nil)

// OpenCatalog opens (or creates) the catalog at |path|.
func OpenCatalog(path string) (*BoltCatalog, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening statistics catalog")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(statsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "initializing statistics catalog")
	}
	return &BoltCatalog{db: db}, nil
}

// Close releases the underlying bolt file.
func (c *BoltCatalog) Close() error {
	return c.db.Close()
}

// PutTable writes one table's statistics, replacing any prior record.
func (c *BoltCatalog) PutTable(t TableStatistics) error {
	if t.Name == "" {
		return sql.ErrMalformedQuery.New("statistics record without a table name")
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return errors.Wrapf(err, "encoding statistics for table %s", t.Name)
	}
	compressed := snappy.Encode(nil, raw)
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(statsBucket).Put([]byte(t.Name), compressed)
	})
}

// Table reads one table's statistics.
func (c *BoltCatalog) Table(name string) (TableStatistics, error) {
	var out TableStatistics
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(statsBucket).Get([]byte(name))
		if v == nil {
			return sql.ErrUnknownTable.New(name)
		}
		raw, err := snappy.Decode(nil, v)
		if err != nil {
			return errors.Wrapf(err, "decompressing statistics for table %s", name)
		}
		return json.Unmarshal(raw, &out)
	})
	return out, err
}

// Tables lists the catalog's table names in key order.
func (c *BoltCatalog) Tables() ([]string, error) {
	var out []string
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(statsBucket).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}

// RowCount implements sql.StatisticsProvider.
func (c *BoltCatalog) RowCount(table string) (float64, error) {
	t, err := c.Table(table)
	if err != nil {
		return 0, err
	}
	return t.Rows, nil
}

// Cardinality implements sql.StatisticsProvider.
func (c *BoltCatalog) Cardinality(table, column string) (float64, error) {
	t, err := c.Table(table)
	if err != nil {
		return 0, err
	}
	card, ok := t.Cardinalities[column]
	if !ok {
		return 0, errors.Errorf("no cardinality for %s.%s", table, column)
	}
	return card, nil
}

// FanOut implements sql.StatisticsProvider. Measured fan-outs win;
// otherwise the fan-out is derived from the prefix cardinality.
func (c *BoltCatalog) FanOut(table string, columns []string) (float64, sql.FanOutConfidence, error) {
	t, err := c.Table(table)
	if err != nil {
		return 0, sql.FanOutUnknown, err
	}
	key := FanOutKey(columns)
	for _, f := range t.FanOuts {
		if FanOutKey(f.Columns) == key {
			return f.Value, sql.FanOutMeasured, nil
		}
	}
	card := PrefixCardinality(table, columns, t.Rows, c)
	if card <= 0 {
		return 1, sql.FanOutUnknown, nil
	}
	f, conf := DeriveFanOut(t.Rows, card)
	return f, conf, nil
}

// Columns implements sql.ColumnLister over the cardinality map.
func (c *BoltCatalog) Columns(table string) []string {
	t, err := c.Table(table)
	if err != nil || len(t.Cardinalities) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.Cardinalities))
	for col := range t.Cardinalities {
		out = append(out, col)
	}
	return out
}
