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
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/driverbase"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/engine"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
)

// reader turns each window of the statement's result into one record.
type reader struct {
	refCount int64
	ctx      context.Context
	alloc    memory.Allocator
	helper   driverbase.ErrorHelper

	st        *engine.Statement
	cols      []hs2.ColumnDesc
	schema    *arrow.Schema
	batchRows int

	rec arrow.Record
	err error
}

func newRecordReader(ctx context.Context, alloc memory.Allocator, helper driverbase.ErrorHelper, st *engine.Statement, batchRows int) (*reader, error) {
	cols := st.Columns()
	schema, err := schemaFromColumns(cols)
	if err != nil {
		return nil, err
	}
	return &reader{
		refCount:  1,
		ctx:       ctx,
		alloc:     alloc,
		helper:    helper,
		st:        st,
		cols:      cols,
		schema:    schema,
		batchRows: batchRows,
	}, nil
}

// emptyReader has a schema and no records.
func emptyReader(schema *arrow.Schema) array.RecordReader {
	rdr, _ := array.NewRecordReader(schema, nil)
	return rdr
}

func (r *reader) Retain() {
	atomic.AddInt64(&r.refCount, 1)
}

func (r *reader) Release() {
	if atomic.AddInt64(&r.refCount, -1) == 0 {
		if r.rec != nil {
			r.rec.Release()
			r.rec = nil
		}
	}
}

func (r *reader) Next() bool {
	if r.rec != nil {
		r.rec.Release()
		r.rec = nil
	}
	if r.err != nil {
		return false
	}

	got, err := r.st.Fetch(r.ctx, r.batchRows)
	if err != nil {
		r.err = errToAdbc(r.helper, err)
		return false
	}
	if !got {
		return false
	}

	rows, start, end := r.st.Window()
	if r.rec, err = buildRecord(r.alloc, r.schema, r.cols, rows, start, end); err != nil {
		r.err = errToAdbc(r.helper, err)
		return false
	}
	return true
}

func (r *reader) Schema() *arrow.Schema { return r.schema }

func (r *reader) Record() arrow.Record { return r.rec }

func (r *reader) Err() error { return r.err }

// buildRecord copies rows [start, end) of every column.
func buildRecord(alloc memory.Allocator, schema *arrow.Schema, cols []hs2.ColumnDesc, rows *hs2.RowSet, start, end int) (arrow.Record, error) {
	bldr := array.NewRecordBuilder(alloc, schema)
	defer bldr.Release()
	bldr.Reserve(end - start)

	for i, desc := range cols {
		var col hs2.Column
		if i < len(rows.Columns) {
			col = rows.Columns[i]
		}
		if err := appendColumn(bldr.Field(i), desc, col, start, end); err != nil {
			return nil, err
		}
	}
	return bldr.NewRecord(), nil
}

func appendColumn(fb array.Builder, desc hs2.ColumnDesc, col hs2.Column, start, end int) error {
	switch b := fb.(type) {
	case *array.BooleanBuilder:
		return appendValues(b, desc, col, start, end, infallible(b.Append))
	case *array.Int8Builder:
		return appendValues(b, desc, col, start, end, infallible(b.Append))
	case *array.Int16Builder:
		return appendValues(b, desc, col, start, end, infallible(b.Append))
	case *array.Int32Builder:
		return appendValues(b, desc, col, start, end, infallible(b.Append))
	case *array.Int64Builder:
		return appendValues(b, desc, col, start, end, infallible(b.Append))
	case *array.Float64Builder:
		return appendValues(b, desc, col, start, end, infallible(b.Append))
	case *array.StringBuilder:
		return appendValues(b, desc, col, start, end, infallible(b.Append))
	case *array.BinaryBuilder:
		return appendValues(b, desc, col, start, end, infallible(b.Append))
	case *array.TimestampBuilder:
		return appendValues(b, desc, col, start, end, func(s string) error {
			t, err := time.Parse(engine.TimestampLayout, s)
			if err != nil {
				return errs.Wrap(errs.KindFetchFailed, err, "column '%s' holds an invalid timestamp", desc.Name)
			}
			b.Append(arrow.Timestamp(t.UnixMicro()))
			return nil
		})
	case *array.Date32Builder:
		return appendValues(b, desc, col, start, end, func(s string) error {
			t, err := time.Parse(engine.DateLayout, s)
			if err != nil {
				return errs.Wrap(errs.KindFetchFailed, err, "column '%s' holds an invalid date", desc.Name)
			}
			b.Append(arrow.Date32FromTime(t))
			return nil
		})
	}
	return errs.New(errs.KindUnsupportedOperation, "column '%s' of type %s cannot be returned as Arrow data", desc.Name, desc.Type)
}

type nullAppender interface {
	AppendNull()
}

func infallible[T any](add func(T)) func(T) error {
	return func(v T) error {
		add(v)
		return nil
	}
}

// appendValues appends each row of col through add, or a null for rows the
// column marks null or does not have.
func appendValues[T hs2.Storage](b nullAppender, desc hs2.ColumnDesc, col hs2.Column, start, end int, add func(T) error) error {
	var values *hs2.Values[T]
	if col != nil {
		var ok bool
		if values, ok = col.(*hs2.Values[T]); !ok {
			return errs.New(errs.KindFetchFailed, "column '%s' of type %s arrived as %s data", desc.Name, desc.Type, col.Kind())
		}
	}
	for row := start; row < end; row++ {
		if values == nil || row >= values.Len() || values.IsNull(row) {
			b.AppendNull()
			continue
		}
		if err := add(values.Value(row)); err != nil {
			return err
		}
	}
	return nil
}
