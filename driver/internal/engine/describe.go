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

package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
)

// DataType is the broad type a described column is exchanged as.
type DataType int

const (
	DataInteger DataType = iota
	DataLongLong
	DataDouble
	DataString
	DataDate
	DataBlob
)

func (d DataType) String() string {
	switch d {
	case DataInteger:
		return "integer"
	case DataLongLong:
		return "long long"
	case DataDouble:
		return "double"
	case DataString:
		return "string"
	case DataDate:
		return "date"
	case DataBlob:
		return "blob"
	}
	return "unknown"
}

// DataTypeOf maps a server type to the type it is exchanged as.
func DataTypeOf(t hs2.TypeID) (DataType, error) {
	switch t {
	case hs2.TypeBoolean, hs2.TypeTinyInt, hs2.TypeSmallInt, hs2.TypeInt:
		return DataInteger, nil
	case hs2.TypeBigInt:
		return DataLongLong, nil
	case hs2.TypeDecimal, hs2.TypeFloat, hs2.TypeDouble:
		return DataDouble, nil
	case hs2.TypeChar, hs2.TypeVarchar, hs2.TypeString:
		return DataString, nil
	case hs2.TypeDate, hs2.TypeTimestamp:
		return DataDate, nil
	case hs2.TypeBinary:
		return DataBlob, nil
	}
	return 0, errs.New(errs.KindUnsupportedOperation, "unsupported column type %s", t)
}

// PrepareForDescribe executes the statement once and returns the number of
// result columns. The next Execute reuses that execution.
func (s *Statement) PrepareForDescribe(ctx context.Context) (int, error) {
	s.cursor.Reset()
	if err := s.run(ctx, 1); err != nil {
		return 0, err
	}
	s.justDescribed = true

	cols, err := s.op.Metadata(ctx)
	if err != nil {
		return 0, errs.Wrap(errs.KindExecutionFailed, err, "cannot read result set metadata")
	}
	return len(cols), nil
}

// DescribeColumn returns the type and name of the 1-based result column.
func (s *Statement) DescribeColumn(ctx context.Context, index int) (DataType, string, error) {
	if s.op == nil {
		return 0, "", errs.New(errs.KindNoActiveOperation, "cannot describe a column without an active operation")
	}
	cols, err := s.op.Metadata(ctx)
	if err != nil {
		return 0, "", errs.Wrap(errs.KindExecutionFailed, err, "cannot read result set metadata")
	}
	if index < 1 || index > len(cols) {
		return 0, "", errs.New(errs.KindUnsupportedOperation,
			"invalid column index (ColumnIndex='%d', ColumnCount='%d')", index, len(cols))
	}
	col := cols[index-1]
	dt, err := DataTypeOf(col.Type)
	if err != nil {
		return 0, "", err
	}
	return dt, col.Name, nil
}

// Describe returns the metadata of the current operation.
func (s *Statement) Describe(ctx context.Context) ([]hs2.ColumnDesc, error) {
	if s.op == nil {
		return nil, errs.New(errs.KindNoActiveOperation, "cannot describe a statement without an active operation")
	}
	return s.op.Metadata(ctx)
}

// Profile keys read by ProfileCounts.
const (
	profileModifiedRows = "NumModifiedRows"
	profileRowErrors    = "NumRowErrors"
)

// ProfileCounts reads the modified row and row error counts from a
// runtime profile. Lines that are not a key=value pair are skipped and a
// count that is missing or not a number is -1. found reports whether
// either key was present.
func ProfileCounts(profile string) (modified, rowErrors int64, found bool) {
	modified, rowErrors = -1, -1
	var haveModified, haveErrors bool
	for _, line := range strings.Split(profile, "\n") {
		parts := strings.Split(line, "=")
		if len(parts) != 2 {
			continue
		}
		key, value := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch key {
		case profileModifiedRows:
			haveModified = true
			if modified = parseCount(value); modified < 0 {
				haveModified = false
			}
		case profileRowErrors:
			haveErrors = true
			if rowErrors = parseCount(value); rowErrors < 0 {
				haveErrors = false
			}
		}
		if haveModified && haveErrors {
			break
		}
	}
	return modified, rowErrors, haveModified || haveErrors
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// profileCounts fetches the profile of op when it has one. A positive row
// error count fails the execution.
func (s *Statement) profileCounts(ctx context.Context, op hs2.Operation, sql string) (int64, bool, error) {
	p, ok := op.(hs2.Profiler)
	if !ok {
		return 0, false, nil
	}
	profile, err := p.Profile(ctx)
	if err != nil {
		e := errs.Wrap(errs.KindExecutionFailed, err, "cannot read the runtime profile")
		e.SQL = sql
		return 0, false, e
	}
	modified, rowErrors, found := ProfileCounts(profile)
	if rowErrors > 0 {
		e := errs.New(errs.KindExecutionFailed,
			"%d errors were reported during the execution, consult the server log for details", rowErrors)
		e.SQL = sql
		return 0, false, e
	}
	if !found || modified < 0 {
		return 0, false, nil
	}
	return modified, true, nil
}
