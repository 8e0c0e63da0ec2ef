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

// Package segment exposes a server side result set as a sequence of row
// windows of caller chosen size.
//
// The cursor holds one server batch at a time. When the rows left in the
// batch are fewer than a window needs and the server has more, the next
// batch is fetched and appended to the leftover rows, so every window but
// the last has exactly the requested size.
package segment

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
)

// State is the cursor lifecycle state.
type State int

const (
	// Fresh cursors have not been advanced since the last reset.
	Fresh State = iota
	// Buffered cursors expose a window of rows.
	Buffered
	// AwaitingServer cursors expose a window that used up the local batch
	// while the server holds more rows.
	AwaitingServer
	// Exhausted cursors have no rows left anywhere.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Buffered:
		return "buffered"
	case AwaitingServer:
		return "awaiting-server"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// DefaultBulkReadSize is the default number of rows requested per server
// fetch.
const DefaultBulkReadSize = 10000

// Cursor windows over the results of one operation. It is not safe for
// concurrent use.
type Cursor struct {
	op      hs2.Operation
	columns []hs2.ColumnDesc

	state State
	rows  *hs2.RowSet
	// batchRows is the number of rows held in rows.
	batchRows    int
	start, end   int
	hasMore      bool
	firstAttempt bool
	total        uint64
	bulkReadSize int

	pollInterval time.Duration
	logger       *slog.Logger
}

// New returns a Fresh cursor that asks the server for bulkReadSize rows at
// a time.
func New(bulkReadSize int, pollInterval time.Duration, logger *slog.Logger) *Cursor {
	if bulkReadSize <= 0 {
		bulkReadSize = DefaultBulkReadSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Cursor{bulkReadSize: bulkReadSize, pollInterval: pollInterval, logger: logger}
	c.Reset()
	return c
}

// Reset drops the buffered batch and detaches the operation.
func (c *Cursor) Reset() {
	c.op = nil
	c.columns = nil
	c.discard()
	c.state = Fresh
	c.hasMore = true
	c.firstAttempt = true
	c.total = 0
}

func (c *Cursor) discard() {
	c.rows = nil
	c.batchRows = 0
	c.start, c.end = 0, 0
}

// Attach points a reset cursor at op, whose result columns are columns.
func (c *Cursor) Attach(op hs2.Operation, columns []hs2.ColumnDesc) {
	c.op = op
	c.columns = columns
}

func (c *Cursor) State() State { return c.state }

// Rows is the current batch. Windows index into it.
func (c *Cursor) Rows() *hs2.RowSet { return c.rows }

// Columns describes the attached operation's result.
func (c *Cursor) Columns() []hs2.ColumnDesc { return c.columns }

func (c *Cursor) WindowStart() int { return c.start }

func (c *Cursor) WindowEnd() int { return c.end }

func (c *Cursor) WindowSize() int { return c.end - c.start }

// BatchRows is the number of rows in the current batch.
func (c *Cursor) BatchRows() int { return c.batchRows }

// BufferEmpty reports whether every buffered row has been windowed.
func (c *Cursor) BufferEmpty() bool { return c.end >= c.batchRows }

// MorePending reports whether the server may hold more rows.
func (c *Cursor) MorePending() bool { return c.hasMore }

// FirstAttempt reports whether the cursor has not been advanced since the
// last reset.
func (c *Cursor) FirstAttempt() bool { return c.firstAttempt }

// TotalFetched is the number of rows received from the server since the
// last reset.
func (c *Cursor) TotalFetched() uint64 { return c.total }

// BulkReadSize is the current per fetch row request.
func (c *Cursor) BulkReadSize() int { return c.bulkReadSize }

func (c *Cursor) remaining() int { return c.batchRows - c.end }

// FetchNext replaces the batch with the next one from the server, keeping
// any rows of the old batch not yet windowed in front of it. It reports
// whether the server sent rows; no request is made once the server has
// reported the end of the result.
func (c *Cursor) FetchNext(ctx context.Context, requested int) (bool, error) {
	pending := c.hasMore
	var tail *hs2.RowSet
	tailRows := c.remaining()
	if tailRows > 0 {
		tail = c.rows.Tail(c.end, c.batchRows)
	}
	c.discard()
	if requested > c.bulkReadSize {
		c.bulkReadSize = requested
	}

	if !pending || c.op == nil {
		c.hasMore = false
		c.restore(tail, tailRows)
		return false, nil
	}

	rows, more, err := c.op.Fetch(ctx, c.bulkReadSize)
	if err != nil {
		c.hasMore = false
		if errs.KindOf(err) == errs.KindFetchFailed {
			return false, err
		}
		return false, errs.Wrap(errs.KindFetchFailed, err, "failed to fetch results")
	}
	state, err := hs2.Wait(ctx, c.op, c.pollInterval)
	if err != nil {
		c.hasMore = false
		return false, errs.Wrap(errs.KindFetchFailed, err, "failed to fetch results")
	}
	if state != hs2.StateFinished {
		c.hasMore = false
		return false, errs.New(errs.KindFetchFailed, "failed to fetch results: operation is %s", state)
	}

	count, err := hs2.RowCount(c.columns, rows)
	if err != nil {
		c.hasMore = false
		return false, err
	}
	c.total += uint64(count)
	// an empty batch ends the result even if the server claims otherwise
	c.hasMore = more && count > 0
	c.logger.DebugContext(ctx, "fetched batch", "rows", count, "has_more", c.hasMore, "total", c.total)

	if count == 0 {
		c.restore(tail, tailRows)
		return false, nil
	}
	if tail != nil {
		if rows, err = tail.Concat(rows, tailRows); err != nil {
			return false, err
		}
	}
	c.rows = rows
	c.batchRows = tailRows + count
	return true, nil
}

func (c *Cursor) restore(tail *hs2.RowSet, n int) {
	if tail == nil {
		return
	}
	c.rows = tail
	c.batchRows = n
}

// Advance moves the window to the next n rows, fetching from the server as
// needed. It reports false once no rows are left.
func (c *Cursor) Advance(ctx context.Context, n int) (bool, error) {
	if n <= 0 {
		n = 1
	}
	c.firstAttempt = false

	for c.remaining() < n && c.hasMore {
		got, err := c.FetchNext(ctx, n)
		if err != nil {
			c.state = Exhausted
			return false, err
		}
		if !got {
			break
		}
	}

	if c.remaining() <= 0 {
		c.start, c.end = c.batchRows, c.batchRows
		c.state = Exhausted
		return false, nil
	}

	c.start = c.end
	c.end = min(c.start+n, c.batchRows)
	if c.end == c.batchRows && c.hasMore {
		c.state = AwaitingServer
	} else {
		c.state = Buffered
	}
	return true, nil
}
