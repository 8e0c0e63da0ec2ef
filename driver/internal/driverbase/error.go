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

package driverbase

import (
	"fmt"

	"github.com/apache/arrow-adbc/go/adbc"
)

// ErrorHelper builds adbc.Error values whose message is prefixed with the
// driver name.
type ErrorHelper struct {
	DriverName string
}

func (helper *ErrorHelper) Errorf(code adbc.Status, message string, format ...any) error {
	return adbc.Error{Code: code, Msg: helper.prefix(message, format)}
}

// ErrorfWithState is Errorf also carrying a five character SQLSTATE.
func (helper *ErrorHelper) ErrorfWithState(code adbc.Status, sqlState string, message string, format ...any) error {
	err := adbc.Error{Code: code, Msg: helper.prefix(message, format)}
	copy(err.SqlState[:], sqlState)
	return err
}

func (helper *ErrorHelper) prefix(message string, args []any) string {
	return "[" + helper.DriverName + "] " + fmt.Sprintf(message, args...)
}

// scope is the kind of object an option was addressed to.
type scope string

const (
	scopeDatabase   scope = "database"
	scopeConnection scope = "connection"
	scopeStatement  scope = "statement"
)

// optionStubs rejects every byte, double and integer option. The bases
// embed it and drivers override the accessors they support.
type optionStubs struct {
	scope  scope
	helper ErrorHelper
}

// notFound is returned when reading an option nobody recognized.
func (o optionStubs) notFound(key string) error {
	return o.helper.Errorf(adbc.StatusNotFound, "Unknown %s option '%s'", o.scope, key)
}

// notImplemented is returned when setting an option nobody recognized.
func (o optionStubs) notImplemented(key string) error {
	return o.helper.Errorf(adbc.StatusNotImplemented, "Unknown %s option '%s'", o.scope, key)
}

func (o optionStubs) GetOptionBytes(key string) ([]byte, error)   { return nil, o.notFound(key) }
func (o optionStubs) GetOptionDouble(key string) (float64, error) { return 0, o.notFound(key) }
func (o optionStubs) GetOptionInt(key string) (int64, error)      { return 0, o.notFound(key) }
func (o optionStubs) SetOptionBytes(key string, _ []byte) error   { return o.notImplemented(key) }
func (o optionStubs) SetOptionDouble(key string, _ float64) error { return o.notImplemented(key) }
func (o optionStubs) SetOptionInt(key string, _ int64) error      { return o.notImplemented(key) }
