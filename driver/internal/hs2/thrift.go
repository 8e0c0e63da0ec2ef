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
	"strings"
	"sync/atomic"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/beltran/gohive/hiveserver"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

const (
	bufferSize     = 4096
	profileLogRows = 1024
)

// ThriftDialer opens sessions over the HS2 thrift binary protocol.
type ThriftDialer struct{}

func (ThriftDialer) Dial(ctx context.Context, cfg *Config, logger *slog.Logger) (Session, error) {
	conf := &thrift.TConfiguration{
		ConnectTimeout: cfg.ConnectTimeout,
	}

	var socket thrift.TTransport
	if cfg.TLS != nil {
		tlsConf, err := cfg.TLS.ClientConfig(cfg.Host)
		if err != nil {
			return nil, err
		}
		conf.TLSConfig = tlsConf
		socket = thrift.NewTSSLSocketConf(cfg.Address(), conf)
	} else {
		socket = thrift.NewTSocketConf(cfg.Address(), conf)
	}

	var transport thrift.TTransport
	switch cfg.Auth {
	case AuthNone:
		transport = thrift.NewTBufferedTransport(socket, bufferSize)
	case AuthSimple:
		uid := cfg.UID
		if uid == "" {
			uid = cfg.User
		}
		transport = newSaslTransport(socket, &plainMechanism{username: uid, password: cfg.Password})
	case AuthKerberos:
		mech, err := newKerberosMechanism(cfg)
		if err != nil {
			return nil, err
		}
		transport = newSaslTransport(socket, mech)
	}

	if err := transport.Open(); err != nil {
		return nil, errs.Wrap(errs.KindConnection, err,
			"failed to connect to the HiveServer2 service identified by the connection string (ConnectionString='%s')", cfg)
	}
	logger.DebugContext(ctx, "transport open", "tls", cfg.TLS != nil)

	client := hiveserver.NewTCLIServiceClientFactory(transport, thrift.NewTBinaryProtocolFactoryConf(conf))

	req := hiveserver.NewTOpenSessionReq()
	req.ClientProtocol = hiveserver.TProtocolVersion(cfg.ProtocolVersion)
	user := cfg.User
	req.Username = &user
	if cfg.Auth == AuthSimple && cfg.Password != "" {
		pwd := cfg.Password
		req.Password = &pwd
	}
	if cfg.Database != "" {
		req.Configuration = map[string]string{"use:database": cfg.Database}
	}

	resp, err := client.OpenSession(ctx, req)
	if err == nil && !success(resp.GetStatus()) {
		err = statusError(errs.KindConnection, resp.GetStatus(), "server refused to open a session")
	}
	if err != nil {
		_ = transport.Close()
		return nil, errs.Wrap(errs.KindConnection, err,
			"failed to open a session with the HiveServer2 service identified by the connection string (ConnectionString='%s')", cfg)
	}

	s := &thriftSession{
		client:    client,
		transport: transport,
		handle:    resp.SessionHandle,
		logger:    logger,
	}
	s.open.Store(true)
	return s, nil
}

func success(status *hiveserver.TStatus) bool {
	code := status.GetStatusCode()
	return code == hiveserver.TStatusCode_SUCCESS_STATUS || code == hiveserver.TStatusCode_SUCCESS_WITH_INFO_STATUS
}

func statusError(kind errs.Kind, status *hiveserver.TStatus, msg string) *errs.Error {
	e := errs.New(kind, "%s", msg)
	if m := status.GetErrorMessage(); m != "" {
		e.Msg += ": " + m
	}
	e.SQLState = status.GetSqlState()
	return e
}

type thriftSession struct {
	client    *hiveserver.TCLIServiceClient
	transport thrift.TTransport
	handle    *hiveserver.TSessionHandle
	logger    *slog.Logger
	open      atomic.Bool
}

func (s *thriftSession) IsConnected() bool {
	return s.open.Load() && s.transport.IsOpen()
}

func (s *thriftSession) ExecuteStatement(ctx context.Context, sql string) (Operation, error) {
	req := hiveserver.NewTExecuteStatementReq()
	req.SessionHandle = s.handle
	req.Statement = sql
	req.RunAsync = true

	resp, err := s.client.ExecuteStatement(ctx, req)
	if err != nil {
		e := errs.Wrap(errs.KindExecutionFailed, err, "failed to submit the statement")
		e.SQL = sql
		return nil, e
	}
	if !success(resp.GetStatus()) {
		e := statusError(errs.KindExecutionFailed, resp.GetStatus(), "the server rejected the statement")
		e.SQL = sql
		return nil, e
	}
	return &thriftOperation{client: s.client, handle: resp.OperationHandle}, nil
}

func (s *thriftSession) Close(ctx context.Context) error {
	if !s.open.Swap(false) {
		return nil
	}
	req := hiveserver.NewTCloseSessionReq()
	req.SessionHandle = s.handle
	resp, err := s.client.CloseSession(ctx, req)
	if err == nil && !success(resp.GetStatus()) {
		err = statusError(errs.KindConnection, resp.GetStatus(), "failed to close the session")
	}
	if cerr := s.transport.Close(); err == nil && cerr != nil {
		err = errs.Wrap(errs.KindConnection, cerr, "failed to close the transport")
	}
	return err
}

var _ Profiler = (*thriftOperation)(nil)

type thriftOperation struct {
	client *hiveserver.TCLIServiceClient
	handle *hiveserver.TOperationHandle

	errMessage string
	sqlState   string
}

func (o *thriftOperation) State(ctx context.Context) (OperationState, error) {
	req := hiveserver.NewTGetOperationStatusReq()
	req.OperationHandle = o.handle
	resp, err := o.client.GetOperationStatus(ctx, req)
	if err != nil {
		return StateUnknown, errs.Wrap(errs.KindExecutionFailed, err, "failed to poll the operation state")
	}
	if !success(resp.GetStatus()) {
		return StateUnknown, statusError(errs.KindExecutionFailed, resp.GetStatus(), "failed to poll the operation state")
	}
	o.errMessage = resp.GetErrorMessage()
	o.sqlState = resp.GetSqlState()
	return stateFromThrift(resp.GetOperationState()), nil
}

func (o *thriftOperation) Diagnostics() (string, string) {
	return o.errMessage, o.sqlState
}

func (o *thriftOperation) Fetch(ctx context.Context, maxRows int) (*RowSet, bool, error) {
	if !o.handle.GetHasResultSet() {
		return &RowSet{}, false, nil
	}
	req := hiveserver.NewTFetchResultsReq()
	req.OperationHandle = o.handle
	req.Orientation = hiveserver.TFetchOrientation_FETCH_NEXT
	req.MaxRows = int64(maxRows)

	resp, err := o.client.FetchResults(ctx, req)
	if err != nil {
		return nil, false, errs.Wrap(errs.KindFetchFailed, err, "failed to fetch results")
	}
	if !success(resp.GetStatus()) {
		return nil, false, statusError(errs.KindFetchFailed, resp.GetStatus(), "failed to fetch results")
	}

	cols := resp.GetResults().GetColumns()
	rows := &RowSet{Columns: make([]Column, len(cols))}
	for i, c := range cols {
		if rows.Columns[i], err = columnFromThrift(c); err != nil {
			return nil, false, err
		}
	}
	// hiveserver often leaves HasMoreRows unset, so a non-empty batch means
	// another request is needed to find the end
	hasMore := resp.GetHasMoreRows() || (len(rows.Columns) > 0 && rows.Columns[0].Len() > 0)
	return rows, hasMore, nil
}

func (o *thriftOperation) Metadata(ctx context.Context) ([]ColumnDesc, error) {
	if !o.handle.GetHasResultSet() {
		return nil, nil
	}
	req := hiveserver.NewTGetResultSetMetadataReq()
	req.OperationHandle = o.handle
	resp, err := o.client.GetResultSetMetadata(ctx, req)
	if err != nil {
		return nil, errs.Wrap(errs.KindFetchFailed, err, "failed to read result set metadata")
	}
	if !success(resp.GetStatus()) {
		return nil, statusError(errs.KindFetchFailed, resp.GetStatus(), "failed to read result set metadata")
	}

	schema := resp.GetSchema()
	if schema == nil {
		return nil, nil
	}
	out := make([]ColumnDesc, len(schema.Columns))
	for i, c := range schema.Columns {
		out[i] = ColumnDesc{
			Name:     c.ColumnName,
			Type:     typeFromThrift(c.TypeDesc),
			Position: int(c.Position),
			Comment:  c.GetComment(),
		}
	}
	return out, nil
}

// fetchTypeLogs asks FetchResults for the operation log instead of rows.
const fetchTypeLogs = 1

// Profile returns the operation log, one line per entry. Impala writes
// its runtime profile summary there.
func (o *thriftOperation) Profile(ctx context.Context) (string, error) {
	req := hiveserver.NewTFetchResultsReq()
	req.OperationHandle = o.handle
	req.Orientation = hiveserver.TFetchOrientation_FETCH_NEXT
	req.MaxRows = profileLogRows
	req.FetchType = fetchTypeLogs

	resp, err := o.client.FetchResults(ctx, req)
	if err != nil {
		return "", errs.Wrap(errs.KindExecutionFailed, err, "failed to read the operation log")
	}
	if !success(resp.GetStatus()) {
		return "", statusError(errs.KindExecutionFailed, resp.GetStatus(), "failed to read the operation log")
	}
	var lines []string
	for _, col := range resp.GetResults().GetColumns() {
		if col.IsSetStringVal() {
			lines = append(lines, col.StringVal.Values...)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (o *thriftOperation) Close(ctx context.Context) error {
	req := hiveserver.NewTCloseOperationReq()
	req.OperationHandle = o.handle
	resp, err := o.client.CloseOperation(ctx, req)
	if err != nil {
		return errs.Wrap(errs.KindConnection, err, "failed to close the operation")
	}
	if !success(resp.GetStatus()) {
		return statusError(errs.KindConnection, resp.GetStatus(), "failed to close the operation")
	}
	return nil
}

func stateFromThrift(s hiveserver.TOperationState) OperationState {
	switch s {
	case hiveserver.TOperationState_INITIALIZED_STATE:
		return StateInitialized
	case hiveserver.TOperationState_RUNNING_STATE:
		return StateRunning
	case hiveserver.TOperationState_FINISHED_STATE:
		return StateFinished
	case hiveserver.TOperationState_CANCELED_STATE:
		return StateCanceled
	case hiveserver.TOperationState_CLOSED_STATE:
		return StateClosed
	case hiveserver.TOperationState_ERROR_STATE:
		return StateError
	case hiveserver.TOperationState_PENDING_STATE:
		return StatePending
	case hiveserver.TOperationState_TIMEDOUT_STATE:
		return StateTimedOut
	}
	return StateUnknown
}

func typeFromThrift(desc *hiveserver.TTypeDesc) TypeID {
	if desc == nil || len(desc.Types) == 0 {
		return TypeNull
	}
	entry := desc.Types[0]
	switch {
	case entry.IsSetArrayEntry():
		return TypeArray
	case entry.IsSetMapEntry():
		return TypeMap
	case entry.IsSetStructEntry():
		return TypeStruct
	case entry.IsSetUnionEntry():
		return TypeUnion
	case entry.IsSetUserDefinedTypeEntry():
		return TypeUserDefined
	case !entry.IsSetPrimitiveEntry():
		return TypeNull
	}

	switch entry.PrimitiveEntry.Type {
	case hiveserver.TTypeId_BOOLEAN_TYPE:
		return TypeBoolean
	case hiveserver.TTypeId_TINYINT_TYPE:
		return TypeTinyInt
	case hiveserver.TTypeId_SMALLINT_TYPE:
		return TypeSmallInt
	case hiveserver.TTypeId_INT_TYPE:
		return TypeInt
	case hiveserver.TTypeId_BIGINT_TYPE:
		return TypeBigInt
	case hiveserver.TTypeId_FLOAT_TYPE:
		return TypeFloat
	case hiveserver.TTypeId_DOUBLE_TYPE:
		return TypeDouble
	case hiveserver.TTypeId_STRING_TYPE:
		return TypeString
	case hiveserver.TTypeId_TIMESTAMP_TYPE:
		return TypeTimestamp
	case hiveserver.TTypeId_BINARY_TYPE:
		return TypeBinary
	case hiveserver.TTypeId_DECIMAL_TYPE:
		return TypeDecimal
	case hiveserver.TTypeId_DATE_TYPE:
		return TypeDate
	case hiveserver.TTypeId_VARCHAR_TYPE:
		return TypeVarchar
	case hiveserver.TTypeId_CHAR_TYPE:
		return TypeChar
	case hiveserver.TTypeId_ARRAY_TYPE:
		return TypeArray
	case hiveserver.TTypeId_MAP_TYPE:
		return TypeMap
	case hiveserver.TTypeId_STRUCT_TYPE:
		return TypeStruct
	case hiveserver.TTypeId_UNION_TYPE:
		return TypeUnion
	case hiveserver.TTypeId_USER_DEFINED_TYPE:
		return TypeUserDefined
	}
	return TypeNull
}

func columnFromThrift(c *hiveserver.TColumn) (Column, error) {
	switch {
	case c.IsSetBoolVal():
		return &BoolColumn{Values: c.BoolVal.Values, Nulls: c.BoolVal.Nulls}, nil
	case c.IsSetByteVal():
		return &ByteColumn{Values: c.ByteVal.Values, Nulls: c.ByteVal.Nulls}, nil
	case c.IsSetI16Val():
		return &Int16Column{Values: c.I16Val.Values, Nulls: c.I16Val.Nulls}, nil
	case c.IsSetI32Val():
		return &Int32Column{Values: c.I32Val.Values, Nulls: c.I32Val.Nulls}, nil
	case c.IsSetI64Val():
		return &Int64Column{Values: c.I64Val.Values, Nulls: c.I64Val.Nulls}, nil
	case c.IsSetDoubleVal():
		return &DoubleColumn{Values: c.DoubleVal.Values, Nulls: c.DoubleVal.Nulls}, nil
	case c.IsSetStringVal():
		return &StringColumn{Values: c.StringVal.Values, Nulls: c.StringVal.Nulls}, nil
	case c.IsSetBinaryVal():
		return &BinaryColumn{Values: c.BinaryVal.Values, Nulls: c.BinaryVal.Nulls}, nil
	}
	return nil, errs.New(errs.KindFetchFailed, "unrecognized column encoding")
}
