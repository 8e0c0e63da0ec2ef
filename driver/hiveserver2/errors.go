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
	"errors"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/driverbase"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

var statusForKind = map[errs.Kind]adbc.Status{
	errs.KindConnectionString:                adbc.StatusInvalidArgument,
	errs.KindConnection:                      adbc.StatusIO,
	errs.KindUnsupportedOperation:            adbc.StatusNotImplemented,
	errs.KindUnsupportedType:                 adbc.StatusNotImplemented,
	errs.KindMalformedStatement:              adbc.StatusInvalidArgument,
	errs.KindExecutionFailed:                 adbc.StatusInternal,
	errs.KindFetchFailed:                     adbc.StatusIO,
	errs.KindNotConnected:                    adbc.StatusInvalidState,
	errs.KindNoActiveOperation:               adbc.StatusInvalidState,
	errs.KindUnsupportedCombination:          adbc.StatusInvalidArgument,
	errs.KindUnsupportedBulkFetchCombination: adbc.StatusInvalidArgument,
}

// statusOf picks the ADBC status for an internal error. Context errors win
// over the kind they were wrapped in.
func statusOf(err error) adbc.Status {
	switch {
	case errors.Is(err, context.Canceled):
		return adbc.StatusCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return adbc.StatusTimeout
	}
	if status, ok := statusForKind[errs.KindOf(err)]; ok {
		return status
	}
	return adbc.StatusUnknown
}

// errToAdbc converts err into an adbc.Error carrying the server's SQL state.
func errToAdbc(helper driverbase.ErrorHelper, err error) error {
	if err == nil {
		return nil
	}
	var adbcErr adbc.Error
	if errors.As(err, &adbcErr) {
		return adbcErr
	}

	var sqlState string
	var e *errs.Error
	if errors.As(err, &e) {
		sqlState = e.SQLState
	}
	return helper.ErrorfWithState(statusOf(err), sqlState, "%s", err.Error())
}
