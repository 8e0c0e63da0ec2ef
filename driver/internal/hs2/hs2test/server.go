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

// Package hs2test provides an in-memory HiveServer2 for tests. It
// understands just enough SQL to create, fill, read and drop tables, and
// answers any other statement from a script.
package hs2test

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
)

// Result is a scripted answer to one statement.
type Result struct {
	Columns []hs2.ColumnDesc
	// Rows hold one value per column; nil is NULL and Missing ends the
	// column early.
	Rows [][]any
	// State is the terminal state reported; the zero value means FINISHED.
	State    hs2.OperationState
	ErrorMsg string
	SQLState string
	// Profile, when set, is returned by the operation's Profile method.
	Profile string
}

// Missing in a row cuts its column off at that row for the batch being
// fetched, so the server sends the column shorter than the others. Every
// later row of the column in the same batch is dropped too.
var Missing = missing{}

type missing struct{}

// Table is a stored table.
type Table struct {
	Columns []hs2.ColumnDesc
	Rows    [][]any
}

// Server is the shared state behind every session it hands out.
type Server struct {
	mu sync.Mutex

	tables     map[string]*Table
	scripts    map[string]*Result
	statements []string
	connected  bool

	// BatchSize caps the rows returned per fetch; 0 means no cap.
	BatchSize int
	// Polls is how many state requests report RUNNING before the final
	// state.
	Polls int
	// LooseHasMore makes fetches report more rows after every non-empty
	// batch, the way hiveserver does.
	LooseHasMore bool

	fetchErr   error
	fetchState hs2.OperationState
	fetches    int
}

// NewServer returns an empty, connected server.
func NewServer() *Server {
	return &Server{
		tables:    make(map[string]*Table),
		scripts:   make(map[string]*Result),
		connected: true,
	}
}

// Dialer hands out sessions on s.
func (s *Server) Dialer() hs2.Dialer {
	return hs2.DialerFunc(func(_ context.Context, cfg *hs2.Config, _ *slog.Logger) (hs2.Session, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.connected {
			return nil, fmt.Errorf("connection refused: %s", cfg.Address())
		}
		return &Session{srv: s}, nil
	})
}

// Session returns a new session on s.
func (s *Server) Session() *Session { return &Session{srv: s} }

// Script registers result for the exact statement sql.
func (s *Server) Script(sql string, result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := result
	s.scripts[sql] = &r
}

// CreateTable stores a table directly.
func (s *Server) CreateTable(name string, t Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[strings.ToLower(name)] = &t
}

// Table returns the stored table, or nil.
func (s *Server) Table(name string) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[strings.ToLower(name)]
}

// SetConnected toggles whether sessions report being connected.
func (s *Server) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// FailFetches makes every following fetch fail: with err when it is not
// nil, otherwise by reporting state after the batch.
func (s *Server) FailFetches(err error, state hs2.OperationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr, s.fetchState = err, state
}

// Statements returns every statement executed so far, in order.
func (s *Server) Statements() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.statements...)
}

// Fetches is the number of fetch requests served.
func (s *Server) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// Session is one client session.
type Session struct {
	srv    *Server
	closed bool
}

func (c *Session) IsConnected() bool {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	return !c.closed && c.srv.connected
}

func (c *Session) Close(context.Context) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Session) ExecuteStatement(_ context.Context, sql string) (hs2.Operation, error) {
	s := c.srv
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements = append(s.statements, sql)

	if r, ok := s.scripts[sql]; ok {
		return newOperation(s, r), nil
	}
	r, err := s.interpret(sql)
	if err != nil {
		return newOperation(s, &Result{State: hs2.StateError, ErrorMsg: err.Error(), SQLState: "42000"}), nil
	}
	return newOperation(s, r), nil
}

// Operation is a statement running on the fake server.
type Operation struct {
	srv    *Server
	result *Result
	polls  int
	next   int
	failed bool
	closed bool
}

func newOperation(s *Server, r *Result) *Operation {
	return &Operation{srv: s, result: r, polls: s.Polls}
}

// Closed reports whether the client closed the operation.
func (o *Operation) Closed() bool { return o.closed }

func (o *Operation) State(context.Context) (hs2.OperationState, error) {
	if o.polls > 0 {
		o.polls--
		return hs2.StateRunning, nil
	}
	if o.failed {
		o.srv.mu.Lock()
		defer o.srv.mu.Unlock()
		return o.srv.fetchState, nil
	}
	if o.result.State == hs2.StateInitialized {
		return hs2.StateFinished, nil
	}
	return o.result.State, nil
}

func (o *Operation) Diagnostics() (string, string) {
	return o.result.ErrorMsg, o.result.SQLState
}

func (o *Operation) Metadata(context.Context) ([]hs2.ColumnDesc, error) {
	return o.result.Columns, nil
}

func (o *Operation) Profile(context.Context) (string, error) {
	return o.result.Profile, nil
}

func (o *Operation) Fetch(_ context.Context, maxRows int) (*hs2.RowSet, bool, error) {
	s := o.srv
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++

	if s.fetchErr != nil {
		return nil, false, s.fetchErr
	}
	n := maxRows
	if s.BatchSize > 0 && s.BatchSize < n {
		n = s.BatchSize
	}
	end := min(o.next+n, len(o.result.Rows))
	rows, err := buildRowSet(o.result.Columns, o.result.Rows[o.next:end])
	if err != nil {
		return nil, false, err
	}
	o.next = end
	if s.fetchState != hs2.StateInitialized {
		o.failed = true
	}

	hasMore := o.next < len(o.result.Rows)
	if s.LooseHasMore {
		hasMore = hasMore || (len(rows.Columns) > 0 && rows.Columns[0].Len() > 0)
	}
	return rows, hasMore, nil
}

func (o *Operation) Close(context.Context) error {
	o.closed = true
	return nil
}

func buildRowSet(cols []hs2.ColumnDesc, rows [][]any) (*hs2.RowSet, error) {
	out := &hs2.RowSet{Columns: make([]hs2.Column, len(cols))}
	for i, desc := range cols {
		kind, err := desc.Type.Storage()
		if err != nil {
			// complex values travel as text
			kind = hs2.KindString
		}
		var col hs2.Column
		switch kind {
		case hs2.KindBool:
			col, err = fill[bool](rows, i)
		case hs2.KindByte:
			col, err = fill[int8](rows, i)
		case hs2.KindInt16:
			col, err = fill[int16](rows, i)
		case hs2.KindInt32:
			col, err = fill[int32](rows, i)
		case hs2.KindInt64:
			col, err = fill[int64](rows, i)
		case hs2.KindDouble:
			col, err = fill[float64](rows, i)
		case hs2.KindString:
			col, err = fill[string](rows, i)
		case hs2.KindBinary:
			col, err = fill[[]byte](rows, i)
		}
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", desc.Name, err)
		}
		out.Columns[i] = col
	}
	return out, nil
}

func fill[T hs2.Storage](rows [][]any, col int) (*hs2.Values[T], error) {
	values := make([]T, len(rows))
	var nulls []int
	for r, row := range rows {
		if col < len(row) && row[col] == Missing {
			values = values[:r]
			break
		}
		if col >= len(row) || row[col] == nil {
			nulls = append(nulls, r)
			continue
		}
		v, ok := row[col].(T)
		if !ok {
			return nil, fmt.Errorf("row %d holds %T, want %T", r, row[col], values[r])
		}
		values[r] = v
	}
	return hs2.NewValues(values, nulls...), nil
}
