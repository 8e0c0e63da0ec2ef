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

package driverbase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DatabaseImpl is the driver specific part of a database. The base
// answers the options common to every driver.
type DatabaseImpl interface {
	Open(ctx context.Context) (adbc.Connection, error)
	Close() error
	adbc.GetSetOptions
	Base() *DatabaseImplBase
}

// Database is what NewDatabase returns.
type Database interface {
	adbc.Database
	adbc.GetSetOptions
	adbc.DatabaseLogging
	adbc.OTelTracingInit
}

// DatabaseImplBase is embedded by DatabaseImpl implementations. Obtain one
// from DriverImplBase.NewDatabaseImplBase.
type DatabaseImplBase struct {
	optionStubs

	Alloc       memory.Allocator
	ErrorHelper ErrorHelper
	DriverInfo  *DriverInfo
	Logger      *slog.Logger
	Tracer      trace.Tracer

	tracerShutdownFunc func(context.Context) error
	traceParent        string
}

func (base *DatabaseImplBase) Base() *DatabaseImplBase { return base }

func (base *DatabaseImplBase) GetOption(key string) (string, error) {
	if key == adbc.OptionKeyTelemetryTraceParent {
		return base.traceParent, nil
	}
	return "", base.notFound(key)
}

func (base *DatabaseImplBase) SetOption(key, val string) error {
	if key == adbc.OptionKeyTelemetryTraceParent {
		base.traceParent = val
		return nil
	}
	return base.notImplemented(key)
}

// Close shuts the tracer provider down, if one was installed.
func (base *DatabaseImplBase) Close() error {
	shutdown := base.tracerShutdownFunc
	base.tracerShutdownFunc = nil
	if shutdown == nil {
		return nil
	}
	return shutdown(context.Background())
}

func (base *DatabaseImplBase) GetInitialSpanAttributes() []attribute.KeyValue {
	return base.DriverInfo.spanAttributes()
}

func (base *DatabaseImplBase) GetTraceParent() string { return base.traceParent }

func (base *DatabaseImplBase) SetTraceParent(traceParent string) { base.traceParent = traceParent }

func (base *DatabaseImplBase) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, _ = withTraceParent(ctx, base)
	return base.Tracer.Start(ctx, spanName, opts...)
}

type database struct {
	DatabaseImpl
}

// NewDatabase wraps impl so that logging, tracing and bulk options are
// handled uniformly.
func NewDatabase(impl DatabaseImpl) Database {
	return &database{DatabaseImpl: impl}
}

func (db *database) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = nilLogger()
	}
	db.Base().Logger = logger
}

// SetOptions applies options one at a time through the driver's SetOption
// and stops at the first failure.
func (db *database) SetOptions(options map[string]string) error {
	for key, val := range options {
		if err := db.SetOption(key, val); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the driver's database, then the tracer.
func (db *database) Close() error {
	return errors.Join(db.DatabaseImpl.Close(), db.Base().Close())
}

func (db *database) InitTracing(ctx context.Context, driverName string, driverVersion string) error {
	return db.Base().InitTracing(ctx, driverName, driverVersion)
}
