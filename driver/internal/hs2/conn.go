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

// Package hs2 is the session layer of the HiveServer2 driver: connection
// string parsing, the Session and Operation contracts, the thrift client
// that implements them, and the Conn façade statements run against.
package hs2

import (
	"context"
	"io"
	"log/slog"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

const transactionsURL = "https://docs.cloudera.com/runtime/7.0.3/impala-reference/topics/impala-transactions.html"

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Conn is an open session together with the configuration it was opened
// with. It implements Session.
type Conn struct {
	cfg    *Config
	sess   Session
	logger *slog.Logger
}

// OpenString parses connStr and opens a session with it.
func OpenString(ctx context.Context, connStr string, dialer Dialer, logger *slog.Logger) (*Conn, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg, dialer, logger)
}

// Open connects to the server described by cfg and opens a session. A nil
// dialer uses the thrift client.
func Open(ctx context.Context, cfg *Config, dialer Dialer, logger *slog.Logger) (*Conn, error) {
	if dialer == nil {
		dialer = ThriftDialer{}
	}
	if logger == nil {
		logger = nopLogger()
	}
	logger = logger.With("address", cfg.Address())

	logger.DebugContext(ctx, "opening session", "user", cfg.User, "database", cfg.Database, "auth", cfg.Auth.String())
	sess, err := dialer.Dial(ctx, cfg, logger)
	if err != nil {
		logger.WarnContext(ctx, "failed to open session", "error", err)
		if errs.KindOf(err) == errs.KindUnknown {
			err = errs.Wrap(errs.KindConnection, err,
				"failed to connect to the HiveServer2 service identified by the connection string (ConnectionString='%s')", cfg)
		}
		return nil, err
	}
	logger.DebugContext(ctx, "session open")
	return &Conn{cfg: cfg, sess: sess, logger: logger}, nil
}

// Config returns the configuration the session was opened with.
func (c *Conn) Config() *Config { return c.cfg }

// Logger is the session scoped logger.
func (c *Conn) Logger() *slog.Logger { return c.logger }

func (c *Conn) ExecuteStatement(ctx context.Context, sql string) (Operation, error) {
	if !c.IsConnected() {
		return nil, errs.New(errs.KindNotConnected, "the session is not connected")
	}
	return c.sess.ExecuteStatement(ctx, sql)
}

func (c *Conn) IsConnected() bool {
	return c.sess != nil && c.sess.IsConnected()
}

// Begin always fails: HS2 has no client controlled transactions.
func (c *Conn) Begin() error { return transactionError("BEGIN") }

// Commit always fails.
func (c *Conn) Commit() error { return transactionError("COMMIT") }

// Rollback always fails.
func (c *Conn) Rollback() error { return transactionError("ROLLBACK") }

func transactionError(op string) error {
	return errs.New(errs.KindUnsupportedOperation,
		"HS2/Impala does not support %s operations. Further reading, %s", op, transactionsURL)
}

// Close closes the session. Closing twice is a no-op.
func (c *Conn) Close(ctx context.Context) error {
	if c.sess == nil {
		return nil
	}
	sess := c.sess
	c.sess = nil
	if err := sess.Close(ctx); err != nil {
		c.logger.WarnContext(ctx, "failed to close session", "error", err)
		return err
	}
	c.logger.DebugContext(ctx, "session closed")
	return nil
}
