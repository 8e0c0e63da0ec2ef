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
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/engine"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

// columnValues converts every row of arr to a value the engine can render;
// nulls become nil.
func columnValues(arr arrow.Array) ([]any, error) {
	values := make([]any, arr.Len())
	var value func(i int) any
	switch a := arr.(type) {
	case *array.Null:
		return values, nil
	case *array.Boolean:
		value = func(i int) any { return a.Value(i) }
	case *array.Int8:
		value = func(i int) any { return a.Value(i) }
	case *array.Int16:
		value = func(i int) any { return a.Value(i) }
	case *array.Int32:
		value = func(i int) any { return a.Value(i) }
	case *array.Int64:
		value = func(i int) any { return a.Value(i) }
	case *array.Uint8:
		value = func(i int) any { return int64(a.Value(i)) }
	case *array.Uint16:
		value = func(i int) any { return int64(a.Value(i)) }
	case *array.Uint32:
		value = func(i int) any { return int64(a.Value(i)) }
	case *array.Uint64:
		value = func(i int) any { return a.Value(i) }
	case *array.Float32:
		value = func(i int) any { return float64(a.Value(i)) }
	case *array.Float64:
		value = func(i int) any { return a.Value(i) }
	case *array.String:
		value = func(i int) any { return a.Value(i) }
	case *array.LargeString:
		value = func(i int) any { return a.Value(i) }
	case *array.Binary:
		value = func(i int) any { return string(a.Value(i)) }
	case *array.Timestamp:
		toTime, err := a.DataType().(*arrow.TimestampType).GetToTimeFunc()
		if err != nil {
			return nil, errs.Wrap(errs.KindUnsupportedType, err, "cannot bind %s", arr.DataType())
		}
		value = func(i int) any { return toTime(a.Value(i)) }
	case *array.Date32:
		value = func(i int) any { return a.Value(i).ToTime() }
	case *array.Date64:
		value = func(i int) any { return a.Value(i).ToTime() }
	default:
		return nil, errs.New(errs.KindUnsupportedType, "type %s cannot be bound as a parameter", arr.DataType())
	}
	for i := range values {
		if arr.IsValid(i) {
			values[i] = value(i)
		}
	}
	return values, nil
}

// bindRecord binds the columns of rec to st: scalars for a single row,
// vectors otherwise. Columns bind by name when every field names a
// placeholder, and by position otherwise.
func bindRecord(st *engine.Statement, rec arrow.Record) error {
	st.ClearBindings()

	names := make(map[string]bool)
	for _, name := range st.Placeholders() {
		names[name] = true
	}
	byName := rec.NumCols() > 0
	for _, f := range rec.Schema().Fields() {
		if !names[f.Name] {
			byName = false
			break
		}
	}

	for i, col := range rec.Columns() {
		name := ""
		if byName {
			name = rec.Schema().Field(i).Name
		}
		values, err := columnValues(col)
		if err != nil {
			return errs.Wrap(errs.KindOf(err), err, "parameter %d", i)
		}
		if rec.NumRows() == 1 {
			err = st.Use(name, values[0], nil)
		} else {
			err = st.UseVector(name, values, nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
