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
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"gopkg.in/src-d/go-query-planner.v0/sql"
	"gopkg.in/src-d/go-query-planner.v0/sql/graph"
)

// Config for the Planner.
type Config struct {
	// MaxStartingPoints bounds the multi-start search; zero means the
	// default of 6.
	MaxStartingPoints int `yaml:"max_starting_points"`
	// LogLevel, when set to a level logrus can parse, replaces Logger
	// with a fresh logrus logger at that level; empty or unparsable
	// keeps Logger as-is.
	LogLevel string `yaml:"log_level"`

	// Listener receives planning lifecycle callbacks.
	Listener sql.PlanListener `yaml:"-"`
	// Logger overrides the default logrus entry, unless LogLevel
	// replaces it.
	Logger *logrus.Entry `yaml:"-"`
}

func (c *Config) withDefaults() {
	if c.MaxStartingPoints <= 0 {
		c.MaxStartingPoints = graph.DefaultMaxStartingPoints
	}
	if c.Listener == nil {
		c.Listener = sql.NopListener{}
	}
	if c.LogLevel != "" {
		if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
			logger := logrus.New()
			logger.Level = lvl
			c.Logger = logrus.NewEntry(logger)
		}
	}
}

// LoadConfig reads a Config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading planner config")
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing planner config")
	}
	return &cfg, nil
}
