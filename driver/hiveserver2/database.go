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

package hiveserver2

import (
	"context"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/driverbase"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/sqltemplate"
)

var boolOptions = map[string]bool{
	OptionBoolSSL:                   true,
	OptionBoolAllowSelfSigned:       true,
	OptionBoolAllowHostnameMismatch: true,
	OptionBoolUseKeytab:             true,
}

type databaseImpl struct {
	driverbase.DatabaseImplBase

	dialer hs2.Dialer

	uri       string
	uriParams map[string]string
	// params hold the individually set keys, already translated to
	// connection string keys.
	params map[string]string

	pollInterval        time.Duration
	affectedFromProfile bool
	templateCacheSize   int

	mu        sync.Mutex
	templates *sqltemplate.Factory
}

func (d *databaseImpl) SetOption(key, value string) error {
	switch key {
	case OptionStringURI:
		params, err := hs2.ParseParams(value)
		if err != nil {
			return errToAdbc(d.ErrorHelper, err)
		}
		d.uri, d.uriParams = value, params
		return nil
	case OptionStringPollInterval:
		interval, err := time.ParseDuration(value)
		if err != nil || interval <= 0 {
			return d.ErrorHelper.Errorf(adbc.StatusInvalidArgument, "invalid value '%s' for option '%s': expected a positive duration", value, key)
		}
		d.pollInterval = interval
		return nil
	case OptionBoolAffectedRowsFromProfile:
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return d.ErrorHelper.Errorf(adbc.StatusInvalidArgument, "invalid value '%s' for option '%s': expected true or false", value, key)
		}
		d.affectedFromProfile = enabled
		return nil
	case OptionIntTemplateCacheSize:
		size, err := strconv.Atoi(value)
		if err != nil || size < 0 {
			return d.ErrorHelper.Errorf(adbc.StatusInvalidArgument, "invalid value '%s' for option '%s': expected a non-negative integer", value, key)
		}
		d.mu.Lock()
		d.templateCacheSize, d.templates = size, nil
		d.mu.Unlock()
		return nil
	}

	csKey, ok := connectionKeys[key]
	if !ok {
		return d.DatabaseImplBase.SetOption(key, value)
	}
	if boolOptions[key] {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return d.ErrorHelper.Errorf(adbc.StatusInvalidArgument, "invalid value '%s' for option '%s': expected true or false", value, key)
		}
		value = "0"
		if enabled {
			value = "1"
		}
	}
	d.params[csKey] = value
	return nil
}

func (d *databaseImpl) GetOption(key string) (string, error) {
	switch key {
	case OptionStringURI:
		return d.uri, nil
	case OptionStringPassword:
		return "", d.ErrorHelper.Errorf(adbc.StatusNotFound, "option '%s' cannot be read back", key)
	case OptionStringPollInterval:
		return d.pollInterval.String(), nil
	case OptionBoolAffectedRowsFromProfile:
		return strconv.FormatBool(d.affectedFromProfile), nil
	case OptionIntTemplateCacheSize:
		return strconv.Itoa(d.templateCacheSize), nil
	}
	if csKey, ok := connectionKeys[key]; ok {
		if v, ok := d.connectionParams()[csKey]; ok {
			return v, nil
		}
	}
	return d.DatabaseImplBase.GetOption(key)
}

func (d *databaseImpl) GetOptionInt(key string) (int64, error) {
	switch key {
	case OptionIntTemplateCacheSize:
		return int64(d.templateCacheSize), nil
	case OptionIntPort, OptionIntConnectionTimeout, OptionIntProtocolVersion,
		OptionIntRowsFetchedPerBlock, OptionIntAuthMech:
		v, err := d.GetOption(key)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, d.ErrorHelper.Errorf(adbc.StatusInvalidState, "option '%s' holds '%s', not an integer", key, v)
		}
		return n, nil
	}
	return d.DatabaseImplBase.GetOptionInt(key)
}

func (d *databaseImpl) SetOptionInt(key string, value int64) error {
	switch key {
	case OptionIntTemplateCacheSize, OptionIntPort, OptionIntConnectionTimeout,
		OptionIntProtocolVersion, OptionIntRowsFetchedPerBlock, OptionIntAuthMech:
		return d.SetOption(key, strconv.FormatInt(value, 10))
	}
	return d.DatabaseImplBase.SetOptionInt(key, value)
}

// connectionParams merges the individually set keys over the uri.
func (d *databaseImpl) connectionParams() map[string]string {
	merged := maps.Clone(d.uriParams)
	if merged == nil {
		merged = map[string]string{}
	}
	maps.Copy(merged, d.params)
	return merged
}

func (d *databaseImpl) templateFactory() *sqltemplate.Factory {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.templates == nil {
		d.templates = sqltemplate.NewFactory(d.templateCacheSize)
	}
	return d.templates
}

func (d *databaseImpl) Open(ctx context.Context) (adbc.Connection, error) {
	ctx, span := d.StartSpan(ctx, "databaseImpl.Open")
	defer span.End()

	cfg, err := hs2.NewConfig(d.connectionParams())
	if err != nil {
		return nil, errToAdbc(d.ErrorHelper, err)
	}
	conn, err := hs2.Open(ctx, cfg, d.dialer, d.Logger)
	if err != nil {
		return nil, errToAdbc(d.ErrorHelper, err)
	}

	schema := cfg.Database
	if schema == "" {
		schema = defaultSchema
	}
	cnxn := &connectionImpl{
		ConnectionImplBase: driverbase.NewConnectionImplBase(&d.DatabaseImplBase),
		conn:               conn,
		dbSchema:           schema,
		opts: engineOptions{
			bulkReadSize:        cfg.RowsFetchedPerBlock,
			pollInterval:        d.pollInterval,
			affectedFromProfile: d.affectedFromProfile,
			templates:           d.templateFactory(),
		},
	}
	return driverbase.NewConnection(cnxn), nil
}

func (d *databaseImpl) Close() error {
	d.mu.Lock()
	d.templates = nil
	d.mu.Unlock()
	return nil
}
