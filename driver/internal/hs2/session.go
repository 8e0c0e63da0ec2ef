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

package hs2

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval is the wait between operation state requests.
const DefaultPollInterval = 50 * time.Microsecond

// Session is an open HS2 session able to run statements.
type Session interface {
	// ExecuteStatement submits sql asynchronously and returns its handle.
	ExecuteStatement(ctx context.Context, sql string) (Operation, error)
	IsConnected() bool
	Close(ctx context.Context) error
}

// Operation is a submitted statement on the server.
type Operation interface {
	State(ctx context.Context) (OperationState, error)
	// Fetch returns up to maxRows rows and whether the server holds more.
	Fetch(ctx context.Context, maxRows int) (rows *RowSet, hasMore bool, err error)
	// Metadata describes the result columns. Statements without a result
	// set return no columns.
	Metadata(ctx context.Context) ([]ColumnDesc, error)
	Close(ctx context.Context) error
}

// Profiler is implemented by operations that can return the server's
// runtime profile as text.
type Profiler interface {
	Profile(ctx context.Context) (string, error)
}

// Diagnoser is implemented by operations that keep the error message and
// SQL state reported with their last state.
type Diagnoser interface {
	Diagnostics() (message, sqlState string)
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, cfg *Config, logger *slog.Logger) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, cfg *Config, logger *slog.Logger) (Session, error)

func (f DialerFunc) Dial(ctx context.Context, cfg *Config, logger *slog.Logger) (Session, error) {
	return f(ctx, cfg, logger)
}

// Wait polls op every interval until it reaches a terminal state. It
// returns early with the context's error once ctx is done.
func Wait(ctx context.Context, op Operation, interval time.Duration) (OperationState, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		state, err := op.State(ctx)
		if err != nil {
			return state, err
		}
		if state.Terminal() {
			return state, nil
		}

		if timer == nil {
			timer = time.NewTimer(interval)
		} else {
			timer.Reset(interval)
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-timer.C:
		}
	}
}
