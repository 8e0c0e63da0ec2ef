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

// Package engine runs prepared HiveServer2 statements: it renders bound
// values into the query text, executes one statement per bound row and
// exposes the result through row windows copied into caller targets.
package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/segment"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/sqltemplate"
)

// Session is what a statement needs from a connection.
type Session interface {
	ExecuteStatement(ctx context.Context, sql string) (hs2.Operation, error)
	IsConnected() bool
}

// Cardinality is how many rows a set of bindings exchanges per call.
type Cardinality int

const (
	None Cardinality = iota
	One
	Many
)

func (c Cardinality) String() string {
	switch c {
	case None:
		return "none"
	case One:
		return "one"
	case Many:
		return "many"
	}
	return "unknown"
}

// Options configure a Statement. The zero value is usable.
type Options struct {
	// BulkReadSize is the number of rows requested per server fetch.
	BulkReadSize int
	// PollInterval is the sleep between operation state requests.
	PollInterval time.Duration
	// AffectedRowsFromProfile reads affected row counts from the runtime
	// profile of operations that provide one.
	AffectedRowsFromProfile bool
	// Templates scans queries; nil uses a private uncached factory.
	Templates *sqltemplate.Factory
	Logger    *slog.Logger
}

// Statement is one prepared statement on a session. It is not safe for
// concurrent use.
type Statement struct {
	sess Session
	opts Options
	id   string

	tmpl  *sqltemplate.Template
	uses  []*useBinding
	intos []*intoBinding
	// nextUse is the next placeholder position given to an unnamed use.
	nextUse  int
	useCard  Cardinality
	intoCard Cardinality

	op            hs2.Operation
	cursor        *segment.Cursor
	justDescribed bool
	affected      int64
	lastFetch     int

	logger *slog.Logger
}

// New returns a statement executing on sess.
func New(sess Session, opts Options) *Statement {
	if opts.PollInterval <= 0 {
		opts.PollInterval = hs2.DefaultPollInterval
	}
	if opts.Templates == nil {
		opts.Templates = sqltemplate.NewFactory(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := uuid.NewString()
	logger := opts.Logger.With("statement_id", id)
	return &Statement{
		sess:     sess,
		opts:     opts,
		id:       id,
		cursor:   segment.New(opts.BulkReadSize, opts.PollInterval, logger),
		affected: -1,
		logger:   logger,
	}
}

// ID identifies the statement in logs and traces.
func (s *Statement) ID() string { return s.id }

// Prepare replaces the query. Bindings are kept.
func (s *Statement) Prepare(query string) {
	s.tmpl = s.opts.Templates.New(query)
	s.justDescribed = false
}

// Query is the prepared query text, or "" before Prepare.
func (s *Statement) Query() string {
	if s.tmpl == nil {
		return ""
	}
	return s.tmpl.Raw()
}

// Placeholders returns the placeholder names in source order.
func (s *Statement) Placeholders() []string {
	if s.tmpl == nil {
		return nil
	}
	return s.tmpl.Names()
}

// ParameterName returns the name of the placeholder at the 0-based index,
// or "" when there is none.
func (s *Statement) ParameterName(index int) string {
	if s.tmpl == nil {
		return ""
	}
	return s.tmpl.Name(index)
}

// UseCardinality and IntoCardinality report the effective binding modes.
func (s *Statement) UseCardinality() Cardinality  { return s.useCard }
func (s *Statement) IntoCardinality() Cardinality { return s.intoCard }

// AffectedRows is the number of rows changed by the last Execute, or -1
// when it is unknown.
func (s *Statement) AffectedRows() int64 { return s.affected }

// FetchedRows is the size of the window exposed by the last Fetch.
func (s *Statement) FetchedRows() int { return s.lastFetch }

// Columns describes the result of the current operation.
func (s *Statement) Columns() []hs2.ColumnDesc { return s.cursor.Columns() }

// Window returns the current batch and the bounds of the row window most
// recently exposed by Fetch.
func (s *Statement) Window() (rows *hs2.RowSet, start, end int) {
	return s.cursor.Rows(), s.cursor.WindowStart(), s.cursor.WindowEnd()
}

// Cursor exposes the result cursor.
func (s *Statement) Cursor() *segment.Cursor { return s.cursor }

// Execute runs the prepared statement. With bulk uses it runs once per
// row for n rows, otherwise once. It reports whether the statement
// produced rows, fetching the first window of n rows when n > 0.
func (s *Statement) Execute(ctx context.Context, n int) (bool, error) {
	if s.useCard == Many && s.intoCard != None {
		return false, errs.New(errs.KindUnsupportedCombination,
			"bulk into and bulk use cannot be combined on one statement")
	}

	executions := 1
	if n > 0 && s.useCard == Many {
		executions = n
	}

	s.cursor.Reset()
	s.lastFetch = 0

	if s.justDescribed {
		// the describe already ran the query
		s.justDescribed = false
	} else if err := s.run(ctx, executions); err != nil {
		return false, err
	}

	cols, err := s.op.Metadata(ctx)
	if err != nil {
		return false, errs.Wrap(errs.KindExecutionFailed, err, "cannot read result set metadata")
	}
	if len(cols) == 0 {
		return false, nil
	}
	if s.useCard == Many {
		return false, errs.New(errs.KindUnsupportedBulkFetchCombination,
			"a bulk execution returned rows, which is not supported")
	}
	s.cursor.Attach(s.op, cols)

	if n > 0 {
		return s.Fetch(ctx, n)
	}
	return true, nil
}

// run renders executions statements from the bound values and runs them
// in order.
func (s *Statement) run(ctx context.Context, executions int) error {
	if s.tmpl == nil {
		return errs.New(errs.KindMalformedStatement, "no statement has been prepared")
	}
	if err := s.preUse(); err != nil {
		return err
	}

	statements := make([]string, 0, executions)
	for i := range executions {
		sql, err := s.tmpl.Render(i)
		if err != nil {
			return err
		}
		statements = append(statements, sql)
	}

	s.affected = -1
	var total int64
	counted := false
	for i, sql := range statements {
		if !s.sess.IsConnected() {
			return errs.New(errs.KindNotConnected, "unable to execute a statement on a disconnected session")
		}
		s.closeOperation(ctx)

		s.logger.DebugContext(ctx, "executing statement", "sql", sql, "row", i)
		op, err := s.sess.ExecuteStatement(ctx, sql)
		if err != nil {
			return executionError(err, sql)
		}
		s.op = op

		began := time.Now()
		state, err := hs2.Wait(ctx, op, s.opts.PollInterval)
		if err != nil {
			return err
		}
		s.logger.DebugContext(ctx, "statement completed", "state", state, "elapsed", time.Since(began))
		if state != hs2.StateFinished {
			e := errs.New(errs.KindExecutionFailed, "failed to execute query/statement: operation is %s", state)
			e.SQL = sql
			if d, ok := op.(hs2.Diagnoser); ok {
				msg, sqlState := d.Diagnostics()
				if msg != "" {
					e.Msg += ": " + msg
				}
				e.SQLState = sqlState
			}
			return e
		}

		if !s.opts.AffectedRowsFromProfile {
			continue
		}
		modified, found, err := s.profileCounts(ctx, op, sql)
		if err != nil {
			return err
		}
		if found {
			total += modified
			counted = true
		}
	}
	if counted {
		s.affected = total
	}
	return nil
}

func executionError(err error, sql string) error {
	if errs.KindOf(err) != errs.KindUnknown {
		return err
	}
	e := errs.Wrap(errs.KindExecutionFailed, err, "failed to submit query/statement")
	e.SQL = sql
	return e
}

// Fetch exposes the next window of up to n rows and copies it into the
// into bindings. It reports false once the result is exhausted.
func (s *Statement) Fetch(ctx context.Context, n int) (bool, error) {
	s.lastFetch = 0
	if s.op == nil {
		return false, errs.New(errs.KindNoActiveOperation, "unable to fetch data as no current operation exists")
	}
	if !s.sess.IsConnected() {
		return false, errs.New(errs.KindNotConnected, "unable to fetch results via a disconnected session")
	}

	available := !s.cursor.BufferEmpty() || s.cursor.MorePending()
	if !available && !s.cursor.FirstAttempt() {
		return false, nil
	}
	got, err := s.cursor.Advance(ctx, n)
	if err != nil || !got {
		return false, err
	}
	s.lastFetch = s.cursor.WindowSize()

	if err := s.postFetch(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Statement) closeOperation(ctx context.Context) {
	if s.op == nil {
		return
	}
	if err := s.op.Close(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to close operation", "error", err)
	}
	s.op = nil
}

// Close releases the current operation and every binding.
func (s *Statement) Close(ctx context.Context) error {
	s.cursor.Reset()
	if s.op != nil {
		err := s.op.Close(ctx)
		s.op = nil
		if err != nil {
			return err
		}
	}
	s.ClearBindings()
	return nil
}
