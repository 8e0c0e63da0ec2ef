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
	"log/slog"
	"strings"

	"github.com/apache/arrow-adbc/go/adbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StatementImpl is the driver specific part of a statement.
type StatementImpl interface {
	adbc.Statement
	adbc.StatementExecuteSchema
	adbc.GetSetOptions
	adbc.OTelTracing
	Base() *StatementImplBase
}

// Statement is what NewStatement returns.
type Statement interface {
	adbc.Statement
	adbc.StatementExecuteSchema
	adbc.GetSetOptions
}

// StatementImplBase is embedded by StatementImpl implementations.
type StatementImplBase struct {
	optionStubs

	ErrorHelper ErrorHelper
	Tracer      trace.Tracer
	Logger      *slog.Logger

	cnxn        *ConnectionImplBase
	traceParent string
}

func NewStatementImplBase(cnxn *ConnectionImplBase, errorHelper ErrorHelper) StatementImplBase {
	return StatementImplBase{
		optionStubs: optionStubs{scope: scopeStatement, helper: errorHelper},
		ErrorHelper: errorHelper,
		Tracer:      cnxn.Tracer,
		Logger:      cnxn.Logger,
		cnxn:        cnxn,
	}
}

type statement struct {
	StatementImpl
}

func NewStatement(impl StatementImpl) Statement {
	return &statement{StatementImpl: impl}
}

func (st *StatementImplBase) Base() *StatementImplBase { return st }

// Option keys are matched case insensitively.
func (st *StatementImplBase) GetOption(key string) (string, error) {
	if strings.EqualFold(key, adbc.OptionKeyTelemetryTraceParent) {
		return st.traceParent, nil
	}
	return "", st.notFound(key)
}

func (st *StatementImplBase) SetOption(key, value string) error {
	if strings.EqualFold(key, adbc.OptionKeyTelemetryTraceParent) {
		st.traceParent = strings.TrimSpace(value)
		return nil
	}
	return st.notImplemented(key)
}

func (st *StatementImplBase) GetTraceParent() string { return st.traceParent }

func (st *StatementImplBase) SetTraceParent(traceParent string) { st.traceParent = traceParent }

// StartSpan parents the span on the statement's trace parent, or on the
// connection's when the statement has none.
func (st *StatementImplBase) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, _ = withTraceParent(ctx, st, st.cnxn)
	return st.Tracer.Start(ctx, spanName, opts...)
}

func (st *StatementImplBase) GetInitialSpanAttributes() []attribute.KeyValue {
	return st.cnxn.GetInitialSpanAttributes()
}
