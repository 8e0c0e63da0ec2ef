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
	"strconv"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/driverbase"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/engine"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type statementImpl struct {
	driverbase.StatementImplBase

	cnxn  *connectionImpl
	alloc memory.Allocator
	st    *engine.Statement

	batchRows int
	bound     arrow.Record
	stream    array.RecordReader
	closed    bool
}

func newStatement(c *connectionImpl) adbc.Statement {
	s := &statementImpl{
		StatementImplBase: driverbase.NewStatementImplBase(&c.ConnectionImplBase, c.ErrorHelper),
		cnxn:              c,
		alloc:             c.Alloc,
		st:                c.newEngine(),
		batchRows:         c.opts.bulkReadSize,
	}
	return driverbase.NewStatement(s)
}

func (s *statementImpl) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := s.StartSpan(ctx, name)
	span.SetAttributes(s.GetInitialSpanAttributes()...)
	span.SetAttributes(
		attribute.String("db.statement", s.st.Query()),
		attribute.String("statement_id", s.st.ID()),
	)
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *statementImpl) Close() error {
	if s.closed {
		return s.ErrorHelper.Errorf(adbc.StatusInvalidState, "statement already closed")
	}
	s.closed = true
	s.clearParameters()
	return errToAdbc(s.ErrorHelper, s.st.Close(context.Background()))
}

func (s *statementImpl) clearParameters() {
	if s.bound != nil {
		s.bound.Release()
		s.bound = nil
	}
	if s.stream != nil {
		s.stream.Release()
		s.stream = nil
	}
	s.st.ClearBindings()
}

func (s *statementImpl) SetOption(key, val string) error {
	switch key {
	case OptionIntStatementBatchRows:
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return s.ErrorHelper.Errorf(adbc.StatusInvalidArgument, "invalid value '%s' for option '%s': expected a positive integer", val, key)
		}
		s.batchRows = n
		return nil
	}
	return s.StatementImplBase.SetOption(key, val)
}

func (s *statementImpl) SetOptionInt(key string, val int64) error {
	switch key {
	case OptionIntStatementBatchRows:
		return s.SetOption(key, strconv.FormatInt(val, 10))
	}
	return s.StatementImplBase.SetOptionInt(key, val)
}

func (s *statementImpl) GetOption(key string) (string, error) {
	switch key {
	case OptionIntStatementBatchRows:
		return strconv.Itoa(s.batchRows), nil
	}
	return s.StatementImplBase.GetOption(key)
}

func (s *statementImpl) GetOptionInt(key string) (int64, error) {
	switch key {
	case OptionIntStatementBatchRows:
		return int64(s.batchRows), nil
	}
	return s.StatementImplBase.GetOptionInt(key)
}

// SetSqlQuery replaces the query. Bound parameters are kept.
func (s *statementImpl) SetSqlQuery(query string) error {
	s.st.Prepare(query)
	return nil
}

func (s *statementImpl) requireQuery() error {
	if s.st.Query() == "" {
		return s.ErrorHelper.Errorf(adbc.StatusInvalidState, "no query set")
	}
	return nil
}

// Prepare checks that a query is set. The query is scanned when set and
// HiveServer2 has no server side prepare.
func (s *statementImpl) Prepare(ctx context.Context) (err error) {
	_, span := s.startSpan(ctx, "statementImpl.Prepare")
	defer func() { endSpan(span, err) }()
	return s.requireQuery()
}

func (s *statementImpl) SetSubstraitPlan(plan []byte) error {
	return s.ErrorHelper.Errorf(adbc.StatusNotImplemented, "Substrait plans are not supported")
}

func (s *statementImpl) Bind(_ context.Context, values arrow.Record) error {
	s.clearParameters()
	values.Retain()
	s.bound = values
	return nil
}

func (s *statementImpl) BindStream(_ context.Context, stream array.RecordReader) error {
	s.clearParameters()
	stream.Retain()
	s.stream = stream
	return nil
}

// applyBound binds the record set with Bind, or the first record of a
// bound stream. It returns the number of bound rows, or -1 without
// parameters.
func (s *statementImpl) applyBound() (int, error) {
	rec := s.bound
	if rec == nil && s.stream != nil {
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				return 0, err
			}
			return 0, nil
		}
		rec = s.stream.Record()
	}
	if rec == nil {
		return -1, nil
	}
	if err := bindRecord(s.st, rec); err != nil {
		return 0, err
	}
	return int(rec.NumRows()), nil
}

// executions is the row count handed to the engine: only a bulk binding
// runs more than once, and a single run must not fetch ahead of the
// reader.
func executions(rows int) int {
	if rows > 1 {
		return rows
	}
	return 0
}

func (s *statementImpl) ExecuteQuery(ctx context.Context) (rdr array.RecordReader, nrec int64, err error) {
	ctx, span := s.startSpan(ctx, "statementImpl.ExecuteQuery")
	defer func() { endSpan(span, err) }()

	if err := s.requireQuery(); err != nil {
		return nil, -1, err
	}
	rows, err := s.applyBound()
	if err != nil {
		return nil, -1, errToAdbc(s.ErrorHelper, err)
	}
	if rows == 0 {
		return nil, -1, s.ErrorHelper.Errorf(adbc.StatusInvalidArgument, "bound parameters hold no rows")
	}
	if s.stream != nil && s.stream.Next() {
		return nil, -1, s.ErrorHelper.Errorf(adbc.StatusNotImplemented, "queries accept a single bound record")
	}

	hasRows, err := s.st.Execute(ctx, executions(rows))
	if err != nil {
		return nil, -1, errToAdbc(s.ErrorHelper, err)
	}
	if !hasRows {
		return emptyReader(arrow.NewSchema(nil, nil)), -1, nil
	}
	r, err := newRecordReader(ctx, s.alloc, s.ErrorHelper, s.st, s.batchRows)
	if err != nil {
		return nil, -1, errToAdbc(s.ErrorHelper, err)
	}
	return r, -1, nil
}

// ExecuteUpdate runs the statement once per bound row, record by record
// for a bound stream. The affected row count is -1 unless profile counting
// is enabled.
func (s *statementImpl) ExecuteUpdate(ctx context.Context) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "statementImpl.ExecuteUpdate")
	defer func() {
		span.SetAttributes(attribute.Int64("db.response.affected_rows", n))
		endSpan(span, err)
	}()

	if err := s.requireQuery(); err != nil {
		return -1, err
	}

	var total int64 = -1
	for {
		rows, err := s.applyBound()
		if err != nil {
			return -1, errToAdbc(s.ErrorHelper, err)
		}
		if rows == 0 {
			if s.stream == nil {
				return 0, nil
			}
			// the stream is drained
			return total, nil
		}
		if _, err := s.st.Execute(ctx, executions(rows)); err != nil {
			return -1, errToAdbc(s.ErrorHelper, err)
		}
		if affected := s.st.AffectedRows(); affected >= 0 {
			total = max(total, 0) + affected
		}
		if s.stream == nil {
			return total, nil
		}
	}
}

// ExecuteSchema runs the query and describes its result. The following
// ExecuteQuery reuses the run.
func (s *statementImpl) ExecuteSchema(ctx context.Context) (schema *arrow.Schema, err error) {
	ctx, span := s.startSpan(ctx, "statementImpl.ExecuteSchema")
	defer func() { endSpan(span, err) }()

	if err := s.requireQuery(); err != nil {
		return nil, err
	}
	if s.stream != nil {
		return nil, s.ErrorHelper.Errorf(adbc.StatusNotImplemented, "ExecuteSchema does not accept a bound stream")
	}
	if _, err := s.applyBound(); err != nil {
		return nil, errToAdbc(s.ErrorHelper, err)
	}
	if schema, err = describeSchema(ctx, s.st); err != nil {
		return nil, errToAdbc(s.ErrorHelper, err)
	}
	return schema, nil
}

// GetParameterSchema has one field of unknown type per placeholder.
func (s *statementImpl) GetParameterSchema() (*arrow.Schema, error) {
	if err := s.requireQuery(); err != nil {
		return nil, err
	}
	names := s.st.Placeholders()
	fields := make([]arrow.Field, len(names))
	for i := range names {
		fields[i] = arrow.Field{Name: s.st.ParameterName(i), Type: arrow.Null, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

func (s *statementImpl) ExecutePartitions(context.Context) (*arrow.Schema, adbc.Partitions, int64, error) {
	return nil, adbc.Partitions{}, -1, s.ErrorHelper.Errorf(adbc.StatusNotImplemented, "ExecutePartitions")
}
