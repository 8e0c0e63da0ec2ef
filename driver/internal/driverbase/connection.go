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
	"fmt"
	"log/slog"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConnectionImpl is the driver specific part of a connection.
type ConnectionImpl interface {
	adbc.Connection
	adbc.GetSetOptions
	Base() *ConnectionImplBase
}

// CurrentNamespacer is implemented by connections whose current catalog
// and schema are session state. NewConnection routes the matching
// options to it.
type CurrentNamespacer interface {
	GetCurrentCatalog() (string, error)
	GetCurrentDbSchema() (string, error)
	SetCurrentCatalog(string) error
	SetCurrentDbSchema(string) error
}

// TableTypeLister is implemented by connections that know their table
// types. NewConnection builds the GetTableTypes result from the list.
type TableTypeLister interface {
	ListTableTypes(ctx context.Context) ([]string, error)
}

// AutocommitSetter is implemented by connections that can change the
// backend's autocommit mode. The local flag follows only on success.
type AutocommitSetter interface {
	SetAutocommit(enabled bool) error
}

// Connection is what NewConnection returns.
type Connection interface {
	adbc.Connection
	adbc.GetSetOptions
}

// ConnectionImplBase is embedded by ConnectionImpl implementations.
type ConnectionImplBase struct {
	optionStubs

	Alloc       memory.Allocator
	ErrorHelper ErrorHelper
	DriverInfo  *DriverInfo
	Logger      *slog.Logger
	Tracer      trace.Tracer

	Autocommit bool
	Closed     bool

	db          *DatabaseImplBase
	traceParent string
}

// NewConnectionImplBase returns a base in autocommit mode sharing the
// allocator, driver info, logger and tracer of db.
func NewConnectionImplBase(db *DatabaseImplBase) ConnectionImplBase {
	return ConnectionImplBase{
		optionStubs: optionStubs{scope: scopeConnection, helper: db.ErrorHelper},
		Alloc:       db.Alloc,
		ErrorHelper: db.ErrorHelper,
		DriverInfo:  db.DriverInfo,
		Logger:      db.Logger,
		Tracer:      db.Tracer,
		Autocommit:  true,
		db:          db,
	}
}

func (base *ConnectionImplBase) Base() *ConnectionImplBase { return base }

func (base *ConnectionImplBase) unimplemented(op string) error {
	return base.ErrorHelper.Errorf(adbc.StatusNotImplemented, "%s", op)
}

func (base *ConnectionImplBase) Commit(context.Context) error { return base.unimplemented("Commit") }

func (base *ConnectionImplBase) Rollback(context.Context) error { return base.unimplemented("Rollback") }

func (base *ConnectionImplBase) GetObjects(context.Context, adbc.ObjectDepth, *string, *string, *string, *string, []string) (array.RecordReader, error) {
	return nil, base.unimplemented("GetObjects")
}

func (base *ConnectionImplBase) GetTableSchema(context.Context, *string, *string, string) (*arrow.Schema, error) {
	return nil, base.unimplemented("GetTableSchema")
}

func (base *ConnectionImplBase) GetTableTypes(context.Context) (array.RecordReader, error) {
	return nil, base.unimplemented("GetTableTypes")
}

func (base *ConnectionImplBase) NewStatement() (adbc.Statement, error) {
	return nil, base.unimplemented("NewStatement")
}

func (base *ConnectionImplBase) ReadPartition(context.Context, []byte) (array.RecordReader, error) {
	return nil, base.unimplemented("ReadPartition")
}

func (base *ConnectionImplBase) Close() error { return nil }

// GetInfo reports the registered value of every requested code, or of all
// registered codes when none are requested. Codes without a value are a
// null of the string member.
func (base *ConnectionImplBase) GetInfo(_ context.Context, infoCodes []adbc.InfoCode) (array.RecordReader, error) {
	if len(infoCodes) == 0 {
		infoCodes = base.DriverInfo.InfoSupportedCodes()
	}

	bldr := array.NewRecordBuilder(base.Alloc, adbc.GetInfoSchema)
	defer bldr.Release()
	bldr.Reserve(len(infoCodes))

	codes := bldr.Field(0).(*array.Uint32Builder)
	values := bldr.Field(1).(*array.DenseUnionBuilder)
	for _, code := range infoCodes {
		codes.Append(uint32(code))

		value, ok := base.DriverInfo.GetInfoForInfoCode(code)
		member := adbc.InfoValueStringType
		if ok {
			if member, ok = infoTypeOf(value); !ok {
				return nil, fmt.Errorf("no defined type code for info_value of type %T", value)
			}
		}
		values.Append(member)
		child := values.Child(int(member))
		if value == nil {
			child.AppendNull()
			continue
		}
		switch v := value.(type) {
		case string:
			child.(*array.StringBuilder).Append(v)
		case int64:
			child.(*array.Int64Builder).Append(v)
		case bool:
			child.(*array.BooleanBuilder).Append(v)
		}
	}

	rec := bldr.NewRecord()
	defer rec.Release()
	return array.NewRecordReader(adbc.GetInfoSchema, []arrow.Record{rec})
}

func (base *ConnectionImplBase) GetOption(key string) (string, error) {
	if key == adbc.OptionKeyTelemetryTraceParent {
		return base.GetTraceParent(), nil
	}
	return "", base.notFound(key)
}

func (base *ConnectionImplBase) SetOption(key, val string) error {
	switch key {
	case adbc.OptionKeyAutoCommit:
		return base.ErrorHelper.Errorf(adbc.StatusNotImplemented, "Unsupported connection option '%s'", key)
	case adbc.OptionKeyTelemetryTraceParent:
		base.SetTraceParent(val)
		return nil
	}
	return base.notImplemented(key)
}

// GetTraceParent falls back to the database's trace parent.
func (base *ConnectionImplBase) GetTraceParent() string {
	if base.traceParent == "" && base.db != nil {
		return base.db.GetTraceParent()
	}
	return base.traceParent
}

func (base *ConnectionImplBase) SetTraceParent(traceParent string) { base.traceParent = traceParent }

func (base *ConnectionImplBase) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, _ = withTraceParent(ctx, base)
	return base.Tracer.Start(ctx, spanName, opts...)
}

func (base *ConnectionImplBase) GetInitialSpanAttributes() []attribute.KeyValue {
	return base.DriverInfo.spanAttributes()
}

type connection struct {
	ConnectionImpl

	namespacer CurrentNamespacer
	tableTypes TableTypeLister
	autocommit AutocommitSetter
}

// NewConnection wraps impl. The optional CurrentNamespacer,
// TableTypeLister and AutocommitSetter interfaces are picked up when impl
// implements them.
func NewConnection(impl ConnectionImpl) Connection {
	cnxn := &connection{ConnectionImpl: impl}
	cnxn.namespacer, _ = impl.(CurrentNamespacer)
	cnxn.tableTypes, _ = impl.(TableTypeLister)
	cnxn.autocommit, _ = impl.(AutocommitSetter)
	return cnxn
}

func (cnxn *connection) GetOption(key string) (string, error) {
	base := cnxn.Base()
	switch {
	case key == adbc.OptionKeyAutoCommit:
		if base.Autocommit {
			return adbc.OptionValueEnabled, nil
		}
		return adbc.OptionValueDisabled, nil
	case key == adbc.OptionKeyCurrentCatalog && cnxn.namespacer != nil:
		catalog, err := cnxn.namespacer.GetCurrentCatalog()
		if err != nil {
			return "", base.ErrorHelper.Errorf(adbc.StatusNotFound, "failed to get current catalog: %s", err)
		}
		return catalog, nil
	case key == adbc.OptionKeyCurrentDbSchema && cnxn.namespacer != nil:
		schema, err := cnxn.namespacer.GetCurrentDbSchema()
		if err != nil {
			return "", base.ErrorHelper.Errorf(adbc.StatusNotFound, "failed to get current db schema: %s", err)
		}
		return schema, nil
	}
	return cnxn.ConnectionImpl.GetOption(key)
}

func (cnxn *connection) SetOption(key, val string) error {
	switch {
	case key == adbc.OptionKeyAutoCommit && cnxn.autocommit != nil:
		var enabled bool
		switch val {
		case adbc.OptionValueEnabled:
			enabled = true
		case adbc.OptionValueDisabled:
		default:
			return cnxn.Base().ErrorHelper.Errorf(adbc.StatusInvalidArgument, "cannot set value %s for key %s", val, key)
		}
		if err := cnxn.autocommit.SetAutocommit(enabled); err != nil {
			return err
		}
		cnxn.Base().Autocommit = enabled
		return nil
	case key == adbc.OptionKeyCurrentCatalog && cnxn.namespacer != nil:
		return cnxn.namespacer.SetCurrentCatalog(val)
	case key == adbc.OptionKeyCurrentDbSchema && cnxn.namespacer != nil:
		return cnxn.namespacer.SetCurrentDbSchema(val)
	}
	return cnxn.ConnectionImpl.SetOption(key, val)
}

func (cnxn *connection) GetTableTypes(ctx context.Context) (array.RecordReader, error) {
	if cnxn.tableTypes == nil {
		return cnxn.ConnectionImpl.GetTableTypes(ctx)
	}
	types, err := cnxn.tableTypes.ListTableTypes(ctx)
	if err != nil {
		return nil, err
	}

	bldr := array.NewRecordBuilder(cnxn.Base().Alloc, adbc.TableTypesSchema)
	defer bldr.Release()
	bldr.Field(0).(*array.StringBuilder).AppendValues(types, nil)
	rec := bldr.NewRecord()
	defer rec.Release()
	return array.NewRecordReader(adbc.TableTypesSchema, []arrow.Record{rec})
}

// Close fails on a connection that is already closed. A failed close
// leaves the connection open.
func (cnxn *connection) Close() error {
	base := cnxn.Base()
	if base.Closed {
		return base.ErrorHelper.Errorf(adbc.StatusInvalidState, "Trying to close already closed connection")
	}
	if err := cnxn.ConnectionImpl.Close(); err != nil {
		return err
	}
	base.Closed = true
	return nil
}
