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

package hiveserver2_test

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/hs2adbc/adbc-hiveserver2/driver/hiveserver2"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2/hs2test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testURI = "host=impala.example.com;port=21050;rowsfetchedperblock=2"

type HiveServer2Suite struct {
	suite.Suite

	ctx  context.Context
	mem  *memory.CheckedAllocator
	srv  *hs2test.Server
	db   adbc.Database
	cnxn adbc.Connection
}

func TestHiveServer2(t *testing.T) {
	suite.Run(t, new(HiveServer2Suite))
}

func (s *HiveServer2Suite) SetupTest() {
	s.ctx = context.Background()
	s.mem = memory.NewCheckedAllocator(memory.DefaultAllocator)
	s.srv = hs2test.NewServer()

	drv := hiveserver2.NewDriverWithDialer(s.mem, s.srv.Dialer())
	var err error
	s.db, err = drv.NewDatabase(map[string]string{adbc.OptionKeyURI: testURI})
	s.Require().NoError(err)
	s.cnxn, err = s.db.Open(s.ctx)
	s.Require().NoError(err)

	s.exec("create table pairs (i int, s string)")
}

func (s *HiveServer2Suite) TearDownTest() {
	s.Require().NoError(s.cnxn.Close())
	s.Require().NoError(s.db.Close())
	s.mem.AssertSize(s.T(), 0)
}

func (s *HiveServer2Suite) statement(query string) adbc.Statement {
	stmt, err := s.cnxn.NewStatement()
	s.Require().NoError(err)
	s.Require().NoError(stmt.SetSqlQuery(query))
	return stmt
}

func (s *HiveServer2Suite) exec(query string) int64 {
	stmt := s.statement(query)
	defer stmt.Close()
	n, err := stmt.ExecuteUpdate(s.ctx)
	s.Require().NoError(err)
	return n
}

// pairsRecord builds an (i int32, s utf8) record; a nil string is NULL.
func (s *HiveServer2Suite) pairsRecord(names [2]string, ints []int32, strs []*string) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: names[0], Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: names[1], Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	bldr := array.NewRecordBuilder(s.mem, schema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int32Builder).AppendValues(ints, nil)
	sb := bldr.Field(1).(*array.StringBuilder)
	for _, v := range strs {
		if v == nil {
			sb.AppendNull()
		} else {
			sb.Append(*v)
		}
	}
	return bldr.NewRecord()
}

func str(v string) *string { return &v }

// rows reads rdr to the end, returning every value as text and the row
// count of each record.
func (s *HiveServer2Suite) rows(rdr array.RecordReader) ([][]string, []int64) {
	defer rdr.Release()
	var out [][]string
	var sizes []int64
	for rdr.Next() {
		rec := rdr.Record()
		sizes = append(sizes, rec.NumRows())
		for r := 0; r < int(rec.NumRows()); r++ {
			row := make([]string, rec.NumCols())
			for c, col := range rec.Columns() {
				if col.IsNull(r) {
					row[c] = "NULL"
				} else {
					row[c] = col.ValueStr(r)
				}
			}
			out = append(out, row)
		}
	}
	s.Require().NoError(rdr.Err())
	return out, sizes
}

func (s *HiveServer2Suite) TestBulkInsertAndWindowedQuery() {
	stmt := s.statement("insert into pairs values (?, ?)")
	defer stmt.Close()

	rec := s.pairsRecord([2]string{"a", "b"}, []int32{3, 1, 2}, []*string{str("c"), str("a"), nil})
	defer rec.Release()
	s.Require().NoError(stmt.Bind(s.ctx, rec))
	n, err := stmt.ExecuteUpdate(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(-1, n)

	s.Equal([]string{
		"create table pairs (i int, s string)",
		"insert into pairs values (3, 'c')",
		"insert into pairs values (1, 'a')",
		"insert into pairs values (2, NULL)",
	}, s.srv.Statements())

	query := s.statement("select i, s from pairs order by i")
	defer query.Close()
	rdr, _, err := query.ExecuteQuery(s.ctx)
	s.Require().NoError(err)

	s.True(rdr.Schema().Equal(arrow.NewSchema([]arrow.Field{
		{Name: "i", Type: arrow.PrimitiveTypes.Int32, Nullable: true,
			Metadata: arrow.NewMetadata([]string{hiveserver2.MetadataKeyTypeName}, []string{"INT"})},
		{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true,
			Metadata: arrow.NewMetadata([]string{hiveserver2.MetadataKeyTypeName}, []string{"STRING"})},
	}, nil)), rdr.Schema().String())

	got, sizes := s.rows(rdr)
	want := [][]string{{"1", "a"}, {"2", "NULL"}, {"3", "c"}}
	if diff := cmp.Diff(want, got); diff != "" {
		s.Failf("unexpected rows", "(-want +got):\n%s", diff)
	}
	// batch rows default to rowsfetchedperblock
	s.Equal([]int64{2, 1}, sizes)
}

func (s *HiveServer2Suite) TestBatchRowsOption() {
	s.exec("insert into pairs values (1, 'a'), (2, 'b'), (3, 'c'), (4, 'd'), (5, 'e')")

	stmt := s.statement("select i from pairs")
	defer stmt.Close()
	opts := stmt.(adbc.GetSetOptions)
	s.Require().NoError(opts.SetOption(hiveserver2.OptionIntStatementBatchRows, "3"))
	v, err := opts.GetOptionInt(hiveserver2.OptionIntStatementBatchRows)
	s.Require().NoError(err)
	s.EqualValues(3, v)

	err = opts.SetOption(hiveserver2.OptionIntStatementBatchRows, "0")
	s.ErrorContains(err, "Invalid Argument")

	rdr, _, err := stmt.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	_, sizes := s.rows(rdr)
	s.Equal([]int64{3, 2}, sizes)
}

func (s *HiveServer2Suite) TestBindByName() {
	stmt := s.statement("insert into pairs (s, i) values (:s, :i)")
	defer stmt.Close()

	// field order differs from placeholder order
	rec := s.pairsRecord([2]string{"i", "s"}, []int32{7}, []*string{str("it's")})
	defer rec.Release()
	s.Require().NoError(stmt.Bind(s.ctx, rec))
	_, err := stmt.ExecuteUpdate(s.ctx)
	s.Require().NoError(err)

	s.Equal(`insert into pairs (s, i) values ('it\'s', 7)`, s.srv.Statements()[1])
}

func (s *HiveServer2Suite) TestBindStreamWithAffectedRows() {
	drv := hiveserver2.NewDriverWithDialer(s.mem, s.srv.Dialer())
	db, err := drv.NewDatabase(map[string]string{
		adbc.OptionKeyURI: testURI,
		hiveserver2.OptionBoolAffectedRowsFromProfile: "true",
	})
	s.Require().NoError(err)
	defer db.Close()
	cnxn, err := db.Open(s.ctx)
	s.Require().NoError(err)
	defer cnxn.Close()

	first := s.pairsRecord([2]string{"a", "b"}, []int32{1, 2}, []*string{str("a"), str("b")})
	defer first.Release()
	second := s.pairsRecord([2]string{"a", "b"}, []int32{3}, []*string{str("c")})
	defer second.Release()
	stream, err := array.NewRecordReader(first.Schema(), []arrow.Record{first, second})
	s.Require().NoError(err)
	defer stream.Release()

	stmt, err := cnxn.NewStatement()
	s.Require().NoError(err)
	defer stmt.Close()
	s.Require().NoError(stmt.SetSqlQuery("insert into pairs values (?, ?)"))
	s.Require().NoError(stmt.BindStream(s.ctx, stream))

	n, err := stmt.ExecuteUpdate(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(3, n)
	s.Len(s.srv.Table("pairs").Rows, 3)
}

func (s *HiveServer2Suite) TestResultTypes() {
	s.srv.CreateTable("everything", hs2test.Table{
		Columns: []hs2.ColumnDesc{
			{Name: "b", Type: hs2.TypeBoolean, Position: 1},
			{Name: "t", Type: hs2.TypeTinyInt, Position: 2},
			{Name: "sm", Type: hs2.TypeSmallInt, Position: 3},
			{Name: "big", Type: hs2.TypeBigInt, Position: 4},
			{Name: "d", Type: hs2.TypeDouble, Position: 5},
			{Name: "dec", Type: hs2.TypeDecimal, Position: 6},
			{Name: "ts", Type: hs2.TypeTimestamp, Position: 7},
			{Name: "day", Type: hs2.TypeDate, Position: 8},
			{Name: "bin", Type: hs2.TypeBinary, Position: 9},
		},
		Rows: [][]any{
			{true, int8(-1), int16(300), int64(1) << 40, 2.5, "12.30", "2024-03-01 12:30:45.123456", "2024-03-01", []byte{0xde, 0xad}},
			{nil, nil, nil, nil, nil, nil, nil, nil, nil},
		},
	})

	stmt := s.statement("select * from everything")
	defer stmt.Close()
	rdr, _, err := stmt.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	defer rdr.Release()

	schema := rdr.Schema()
	wantTypes := []arrow.DataType{
		arrow.FixedWidthTypes.Boolean,
		arrow.PrimitiveTypes.Int8,
		arrow.PrimitiveTypes.Int16,
		arrow.PrimitiveTypes.Int64,
		arrow.PrimitiveTypes.Float64,
		arrow.BinaryTypes.String,
		&arrow.TimestampType{Unit: arrow.Microsecond},
		arrow.FixedWidthTypes.Date32,
		arrow.BinaryTypes.Binary,
	}
	s.Require().Equal(len(wantTypes), schema.NumFields())
	for i, dt := range wantTypes {
		s.Truef(arrow.TypeEqual(dt, schema.Field(i).Type), "field %d: %s", i, schema.Field(i).Type)
	}

	s.Require().True(rdr.Next())
	rec := rdr.Record()
	s.Require().EqualValues(2, rec.NumRows())

	s.True(rec.Column(0).(*array.Boolean).Value(0))
	s.EqualValues(-1, rec.Column(1).(*array.Int8).Value(0))
	s.EqualValues(300, rec.Column(2).(*array.Int16).Value(0))
	s.EqualValues(int64(1)<<40, rec.Column(3).(*array.Int64).Value(0))
	s.Equal(2.5, rec.Column(4).(*array.Float64).Value(0))
	s.Equal("12.30", rec.Column(5).(*array.String).Value(0))
	wantTS := time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.UTC)
	s.Equal(arrow.Timestamp(wantTS.UnixMicro()), rec.Column(6).(*array.Timestamp).Value(0))
	s.Equal(arrow.Date32FromTime(wantTS), rec.Column(7).(*array.Date32).Value(0))
	s.Equal([]byte{0xde, 0xad}, rec.Column(8).(*array.Binary).Value(0))

	for c := range rec.Columns() {
		s.Truef(rec.Column(c).IsNull(1), "column %d", c)
	}
	s.False(rdr.Next())
	s.NoError(rdr.Err())
}

func (s *HiveServer2Suite) TestShortColumnReadsAsNull() {
	// fetches return two rows and records hold four, so each record spans
	// two batches; s is cut short in the first and last batch
	s.srv.BatchSize = 2
	s.srv.Script("select i, s from ragged", hs2test.Result{
		Columns: []hs2.ColumnDesc{
			{Name: "i", Type: hs2.TypeInt, Position: 1},
			{Name: "s", Type: hs2.TypeString, Position: 2},
		},
		Rows: [][]any{
			{int32(1), "a"},
			{int32(2), hs2test.Missing},
			{int32(3), "c"},
			{int32(4), "d"},
			{int32(5), "e"},
			{int32(6), hs2test.Missing},
		},
	})

	stmt := s.statement("select i, s from ragged")
	defer stmt.Close()
	s.Require().NoError(stmt.(adbc.GetSetOptions).SetOption(hiveserver2.OptionIntStatementBatchRows, "4"))
	rdr, _, err := stmt.ExecuteQuery(s.ctx)
	s.Require().NoError(err)

	got, sizes := s.rows(rdr)
	want := [][]string{{"1", "a"}, {"2", "NULL"}, {"3", "c"}, {"4", "d"}, {"5", "e"}, {"6", "NULL"}}
	if diff := cmp.Diff(want, got); diff != "" {
		s.Failf("unexpected rows", "(-want +got):\n%s", diff)
	}
	s.Equal([]int64{4, 2}, sizes)
}

func (s *HiveServer2Suite) TestComplexColumnsNotImplemented() {
	s.exec("create table nested (a array<int>)")

	stmt := s.statement("select a from nested")
	defer stmt.Close()
	_, _, err := stmt.ExecuteQuery(s.ctx)
	var adbcErr adbc.Error
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusNotImplemented, adbcErr.Code)
	s.Contains(adbcErr.Msg, "[HiveServer2]")
}

func (s *HiveServer2Suite) TestExecuteSchemaReusesRun() {
	stmt := s.statement("select i, s from pairs")
	defer stmt.Close()

	schema, err := stmt.(adbc.StatementExecuteSchema).ExecuteSchema(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"i", "s"}, []string{schema.Field(0).Name, schema.Field(1).Name})
	s.Len(s.srv.Statements(), 2)

	rdr, _, err := stmt.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	rows, _ := s.rows(rdr)
	s.Empty(rows)
	s.Len(s.srv.Statements(), 2)
}

func (s *HiveServer2Suite) TestExecuteQueryWithoutResultSet() {
	stmt := s.statement("insert into pairs values (1, 'a')")
	defer stmt.Close()
	rdr, n, err := stmt.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(-1, n)
	s.Equal(0, rdr.Schema().NumFields())
	rows, _ := s.rows(rdr)
	s.Empty(rows)
}

func (s *HiveServer2Suite) TestBulkQueryRejected() {
	stmt := s.statement("select i from pairs where i = ?")
	defer stmt.Close()

	schema := arrow.NewSchema([]arrow.Field{{Name: "p", Type: arrow.PrimitiveTypes.Int64}}, nil)
	bldr := array.NewRecordBuilder(s.mem, schema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	rec := bldr.NewRecord()
	defer rec.Release()

	s.Require().NoError(stmt.Bind(s.ctx, rec))
	_, _, err := stmt.ExecuteQuery(s.ctx)
	var adbcErr adbc.Error
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusInvalidArgument, adbcErr.Code)
}

func (s *HiveServer2Suite) TestExecutionFailure() {
	stmt := s.statement("select i from missing")
	defer stmt.Close()

	_, _, err := stmt.ExecuteQuery(s.ctx)
	var adbcErr adbc.Error
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusInternal, adbcErr.Code)
	s.Equal("42000", string(adbcErr.SqlState[:]))
	s.Contains(adbcErr.Msg, "table not found: missing")
	s.Contains(adbcErr.Msg, "select i from missing")
}

func (s *HiveServer2Suite) TestCancelledWhilePolling() {
	s.srv.Polls = 1 << 20
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	stmt := s.statement("select i from pairs")
	defer stmt.Close()
	_, _, err := stmt.ExecuteQuery(ctx)
	var adbcErr adbc.Error
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusCancelled, adbcErr.Code)
}

func (s *HiveServer2Suite) TestNotConnected() {
	stmt := s.statement("select i from pairs")
	defer stmt.Close()

	s.srv.SetConnected(false)
	defer s.srv.SetConnected(true)
	_, err := stmt.ExecuteUpdate(s.ctx)
	var adbcErr adbc.Error
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusInvalidState, adbcErr.Code)
}

func (s *HiveServer2Suite) TestParameterSchema() {
	stmt := s.statement("select s from pairs where i = :lo or i = ?")
	defer stmt.Close()

	schema, err := stmt.GetParameterSchema()
	s.Require().NoError(err)
	s.Require().Equal(2, schema.NumFields())
	s.Equal("lo", schema.Field(0).Name)
	s.NotEmpty(schema.Field(1).Name)
	s.Equal(arrow.Null, schema.Field(0).Type)

	empty, err := s.cnxn.NewStatement()
	s.Require().NoError(err)
	defer empty.Close()
	_, err = empty.GetParameterSchema()
	s.ErrorContains(err, "Invalid State")
}

func (s *HiveServer2Suite) TestStatementCloseTwice() {
	stmt := s.statement("select 1")
	s.Require().NoError(stmt.Close())
	s.ErrorContains(stmt.Close(), "Invalid State")
}

func (s *HiveServer2Suite) TestUnsupportedStatementOperations() {
	stmt := s.statement("select 1")
	defer stmt.Close()

	var adbcErr adbc.Error
	err := stmt.SetSubstraitPlan([]byte{1})
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusNotImplemented, adbcErr.Code)

	_, _, _, err = stmt.ExecutePartitions(s.ctx)
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusNotImplemented, adbcErr.Code)
}

func (s *HiveServer2Suite) TestTransactionsUnsupported() {
	for _, err := range []error{s.cnxn.Commit(s.ctx), s.cnxn.Rollback(s.ctx)} {
		var adbcErr adbc.Error
		s.Require().ErrorAs(err, &adbcErr)
		s.Equal(adbc.StatusNotImplemented, adbcErr.Code)
		s.Contains(adbcErr.Msg, "impala-transactions")
	}

	opts := s.cnxn.(adbc.GetSetOptions)
	err := opts.SetOption(adbc.OptionKeyAutoCommit, adbc.OptionValueDisabled)
	s.ErrorContains(err, "Not Implemented")
	s.ErrorContains(err, "BEGIN")
	s.Require().NoError(opts.SetOption(adbc.OptionKeyAutoCommit, adbc.OptionValueEnabled))

	autocommit, err := opts.GetOption(adbc.OptionKeyAutoCommit)
	s.Require().NoError(err)
	s.Equal(adbc.OptionValueEnabled, autocommit)
}

func (s *HiveServer2Suite) TestCurrentSchema() {
	opts := s.cnxn.(adbc.GetSetOptions)
	schema, err := opts.GetOption(adbc.OptionKeyCurrentDbSchema)
	s.Require().NoError(err)
	s.Equal("default", schema)

	s.Require().NoError(opts.SetOption(adbc.OptionKeyCurrentDbSchema, "sales"))
	schema, err = opts.GetOption(adbc.OptionKeyCurrentDbSchema)
	s.Require().NoError(err)
	s.Equal("sales", schema)
	s.Contains(s.srv.Statements(), "USE sales")

	_, err = opts.GetOption(adbc.OptionKeyCurrentCatalog)
	s.ErrorContains(err, "Not Found")
}

func (s *HiveServer2Suite) TestGetTableSchema() {
	schema, err := s.cnxn.GetTableSchema(s.ctx, nil, nil, "pairs")
	s.Require().NoError(err)
	s.Equal(2, schema.NumFields())
	s.Equal("i", schema.Field(0).Name)
	s.True(arrow.TypeEqual(arrow.PrimitiveTypes.Int32, schema.Field(0).Type))
	s.Contains(s.srv.Statements(), "SELECT * FROM `default`.`pairs` LIMIT 0")

	other := "other"
	_, err = s.cnxn.GetTableSchema(s.ctx, nil, &other, "pairs")
	s.Require().NoError(err)
	s.Contains(s.srv.Statements(), "SELECT * FROM `other`.`pairs` LIMIT 0")

	_, err = s.cnxn.GetTableSchema(s.ctx, nil, nil, "missing")
	s.ErrorContains(err, "Internal")
}

func (s *HiveServer2Suite) TestGetTableTypes() {
	rdr, err := s.cnxn.GetTableTypes(s.ctx)
	s.Require().NoError(err)
	rows, _ := s.rows(rdr)
	s.Equal([][]string{{"TABLE"}, {"VIEW"}}, rows)
}

func (s *HiveServer2Suite) TestGetInfo() {
	rdr, err := s.cnxn.GetInfo(s.ctx, []adbc.InfoCode{adbc.InfoVendorName, adbc.InfoVendorSql})
	s.Require().NoError(err)
	defer rdr.Release()

	s.Require().True(rdr.Next())
	rec := rdr.Record()
	values := rec.Column(1).(*array.DenseUnion)
	name := values.Field(int(adbc.InfoValueStringType)).(*array.String)
	sql := values.Field(int(adbc.InfoValueBooleanType)).(*array.Boolean)
	s.Equal("HiveServer2", name.Value(int(values.ValueOffset(0))))
	s.True(sql.Value(int(values.ValueOffset(1))))
}

func (s *HiveServer2Suite) TestUnsupportedConnectionOperations() {
	var adbcErr adbc.Error
	_, err := s.cnxn.GetObjects(s.ctx, adbc.ObjectDepthAll, nil, nil, nil, nil, nil)
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusNotImplemented, adbcErr.Code)

	_, err = s.cnxn.ReadPartition(s.ctx, nil)
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusNotImplemented, adbcErr.Code)
}

func TestDatabaseOptions(t *testing.T) {
	srv := hs2test.NewServer()
	drv := hiveserver2.NewDriverWithDialer(memory.DefaultAllocator, srv.Dialer())

	db, err := drv.NewDatabase(map[string]string{
		adbc.OptionKeyURI:                      "host=ignored;port=1;authmech=2;uid=u",
		hiveserver2.OptionStringHost:           "impala.example.com",
		hiveserver2.OptionIntPort:              "21050",
		adbc.OptionKeyPassword:                 "secret",
		hiveserver2.OptionBoolSSL:              "false",
		hiveserver2.OptionStringPollInterval:   "1ms",
		hiveserver2.OptionIntTemplateCacheSize: "8",
	})
	require.NoError(t, err)
	defer db.Close()

	opts := db.(adbc.GetSetOptions)
	host, err := opts.GetOption(hiveserver2.OptionStringHost)
	require.NoError(t, err)
	assert.Equal(t, "impala.example.com", host)

	user, err := opts.GetOption(adbc.OptionKeyUsername)
	require.NoError(t, err)
	assert.Equal(t, "u", user, "keys from the uri are visible")

	port, err := opts.GetOptionInt(hiveserver2.OptionIntPort)
	require.NoError(t, err)
	assert.EqualValues(t, 21050, port)

	_, err = opts.GetOption(adbc.OptionKeyPassword)
	assert.ErrorContains(t, err, "Not Found")

	interval, err := opts.GetOption(hiveserver2.OptionStringPollInterval)
	require.NoError(t, err)
	assert.Equal(t, "1ms", interval)

	cnxn, err := db.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, cnxn.Close())

	for key, value := range map[string]string{
		hiveserver2.OptionStringPollInterval:          "soon",
		hiveserver2.OptionBoolAffectedRowsFromProfile: "maybe",
		hiveserver2.OptionIntTemplateCacheSize:        "-1",
		hiveserver2.OptionBoolSSL:                     "yes please",
		adbc.OptionKeyURI:                             "host",
	} {
		err := opts.SetOption(key, value)
		var adbcErr adbc.Error
		if assert.ErrorAsf(t, err, &adbcErr, key) {
			assert.Equal(t, adbc.StatusInvalidArgument, adbcErr.Code, key)
		}
	}

	err = opts.SetOption("adbc.hiveserver2.bogus", "1")
	assert.EqualError(t, err, "Not Implemented: [HiveServer2] Unknown database option 'adbc.hiveserver2.bogus'")
}

func TestOpenFailures(t *testing.T) {
	srv := hs2test.NewServer()
	drv := hiveserver2.NewDriverWithDialer(memory.DefaultAllocator, srv.Dialer())

	db, err := drv.NewDatabase(map[string]string{hiveserver2.OptionStringHost: "impala.example.com"})
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Open(context.Background())
	var adbcErr adbc.Error
	require.ErrorAs(t, err, &adbcErr)
	assert.Equal(t, adbc.StatusInvalidArgument, adbcErr.Code)
	assert.Contains(t, adbcErr.Msg, "port")

	require.NoError(t, db.(adbc.GetSetOptions).SetOption(hiveserver2.OptionIntPort, "21050"))
	srv.SetConnected(false)
	_, err = db.Open(context.Background())
	require.ErrorAs(t, err, &adbcErr)
	assert.Equal(t, adbc.StatusIO, adbcErr.Code)
}

func TestDefaultDriverUsesThrift(t *testing.T) {
	drv := hiveserver2.NewDriver(memory.DefaultAllocator)
	db, err := drv.NewDatabase(map[string]string{adbc.OptionKeyURI: "host=127.0.0.1;port=1;connection-timeout=100"})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Open(context.Background())
	var adbcErr adbc.Error
	require.ErrorAs(t, err, &adbcErr)
	assert.Equal(t, adbc.StatusIO, adbcErr.Code)
}
