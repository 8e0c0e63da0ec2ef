// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-adbc/go/adbc/sqldriver"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
	"github.com/spf13/cobra"
)

type driverFactory func(memory.Allocator) adbc.Driver

type app struct {
	newDriver driverFactory
	logger    *slog.Logger

	profileFile string
	profile     string
	connect     string
	options     []string
	verbose     bool
}

func newRootCmd(newDriver driverFactory) *cobra.Command {
	a := &app{newDriver: newDriver}

	root := &cobra.Command{
		Use:           "hs2query",
		Short:         "Run SQL against HiveServer2",
		Long:          "Run queries and scripts against a Hive or Impala service over the HiveServer2 protocol.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.profileFile, "profile-file", "f", "", "yaml file of connection profiles")
	flags.StringVarP(&a.profile, "profile", "p", "", "profile to use (default: the file's current-profile)")
	flags.StringVarP(&a.connect, "connect", "c", "", "HiveServer2 connection string, e.g. 'host=h;port=21050'")
	flags.StringArrayVarP(&a.options, "option", "o", nil, "driver option as key=value (repeatable)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log driver activity to stderr")

	root.AddCommand(newQueryCmd(a), newScriptCmd(a))
	return root
}

// driverOptions merges the profile, the connection string and the
// individual options, later sources winning.
func (a *app) driverOptions() (map[string]string, error) {
	opts := make(map[string]string)
	if a.profileFile != "" {
		p, err := LoadProfile(a.profileFile, a.profile)
		if err != nil {
			return nil, err
		}
		opts = p.DriverOptions()
	} else if a.profile != "" {
		return nil, errors.New("--profile requires --profile-file")
	}
	if a.connect != "" {
		opts[adbc.OptionKeyURI] = a.connect
	}
	for _, kv := range a.options {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q: expected key=value", kv)
		}
		opts[key] = value
	}
	if len(opts) == 0 {
		return nil, errors.New("no connection configured: use --connect or --profile-file")
	}
	if uri, ok := opts[adbc.OptionKeyURI]; ok {
		if err := checkConnectionKeys(uri); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// checkConnectionKeys rejects connection string keys the driver would
// silently ignore.
func checkConnectionKeys(uri string) error {
	params, err := hs2.ParseParams(uri)
	if err != nil {
		return err
	}
	known := hs2.Keys()
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if !slices.Contains(known, key) {
			return fmt.Errorf("unknown connection string key %q (known keys: %s)", key, strings.Join(known, ", "))
		}
	}
	return nil
}

// dsn renders opts in the key=value;... form sqldriver parses. Connection
// string values use ',' between pairs so they survive the split.
func dsn(opts map[string]string) (string, error) {
	keys := slices.Sorted(maps.Keys(opts))
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := opts[k]
		if k == adbc.OptionKeyURI {
			v = strings.ReplaceAll(v, ";", ",")
		} else if strings.Contains(v, ";") {
			return "", fmt.Errorf("option %s: value must not contain ';'", k)
		}
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ";"), nil
}

func (a *app) openDB() (*sql.DB, error) {
	opts, err := a.driverOptions()
	if err != nil {
		return nil, err
	}
	name, err := dsn(opts)
	if err != nil {
		return nil, err
	}
	drv := sqldriver.Driver{Driver: loggingDriver{Driver: a.newDriver(memory.DefaultAllocator), logger: a.logger}}
	connector, err := drv.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

// loggingDriver hands the command's logger to every database it creates.
type loggingDriver struct {
	adbc.Driver
	logger *slog.Logger
}

func (d loggingDriver) NewDatabase(opts map[string]string) (adbc.Database, error) {
	db, err := d.Driver.NewDatabase(opts)
	if err != nil {
		return nil, err
	}
	if l, ok := db.(interface{ SetLogger(*slog.Logger) }); ok && d.logger != nil {
		l.SetLogger(d.logger)
	}
	return db, nil
}
