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

package hs2_test

import (
	"testing"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesNullBitmap(t *testing.T) {
	col := &hs2.Int32Column{Values: []int32{1, 2, 3, 4, 5, 6, 7, 8, 9}, Nulls: []byte{0b0000_0101, 0b1}}

	var nulls []int
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			nulls = append(nulls, i)
		}
	}
	assert.Equal(t, []int{0, 2, 8}, nulls)
	assert.False(t, col.IsNull(100), "rows past the bitmap are valid")
	assert.Equal(t, hs2.KindInt32, col.Kind())
}

func TestValuesSliceAndConcat(t *testing.T) {
	a := hs2.NewValues([]string{"a", "b", "c"}, 1)
	b := hs2.NewValues([]string{"d", "e"}, 0)

	tail := a.Slice(1, a.Len())
	require.Equal(t, 2, tail.Len())
	assert.True(t, tail.IsNull(0))
	assert.False(t, tail.IsNull(1))

	merged, err := tail.Concat(b)
	require.NoError(t, err)
	got := merged.(*hs2.StringColumn)
	assert.Equal(t, []string{"b", "c", "d", "e"}, got.Values)
	assert.True(t, got.IsNull(0))
	assert.False(t, got.IsNull(1))
	assert.True(t, got.IsNull(2))
	assert.False(t, got.IsNull(3))

	assert.Equal(t, 0, a.Slice(10, 3).Len())

	_, err = a.Concat(hs2.NewValues([]int64{1}))
	assert.ErrorIs(t, err, errs.ErrFetchFailed)
}

func TestColumnKinds(t *testing.T) {
	assert.Equal(t, hs2.KindBool, hs2.NewValues([]bool{true}).Kind())
	assert.Equal(t, hs2.KindByte, hs2.NewValues([]int8{1}).Kind())
	assert.Equal(t, hs2.KindInt16, hs2.NewValues([]int16{1}).Kind())
	assert.Equal(t, hs2.KindInt64, hs2.NewValues([]int64{1}).Kind())
	assert.Equal(t, hs2.KindDouble, hs2.NewValues([]float64{1}).Kind())
	assert.Equal(t, hs2.KindBinary, hs2.NewValues([][]byte{{1}}).Kind())
}

func TestRowCount(t *testing.T) {
	cols := []hs2.ColumnDesc{{Name: "id", Type: hs2.TypeBigInt, Position: 1}}
	rows := &hs2.RowSet{Columns: []hs2.Column{hs2.NewValues([]int64{1, 2, 3})}}

	n, err := hs2.RowCount(cols, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = hs2.RowCount(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = hs2.RowCount([]hs2.ColumnDesc{{Name: "tags", Type: hs2.TypeArray}}, rows)
	assert.ErrorIs(t, err, errs.ErrUnsupportedOperation)

	_, err = hs2.RowCount([]hs2.ColumnDesc{{Name: "id", Type: hs2.TypeInt}}, rows)
	assert.ErrorIs(t, err, errs.ErrUnsupportedOperation)
}

func TestRowSetConcat(t *testing.T) {
	a := &hs2.RowSet{Columns: []hs2.Column{hs2.NewValues([]int32{1, 2, 3}), hs2.NewValues([]string{"a", "b", "c"})}}
	b := &hs2.RowSet{Columns: []hs2.Column{hs2.NewValues([]int32{4}), hs2.NewValues([]string{"d"})}}

	merged, err := a.Tail(2, 3).Concat(b, 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 4}, merged.Columns[0].(*hs2.Int32Column).Values)
	assert.Equal(t, []string{"c", "d"}, merged.Columns[1].(*hs2.StringColumn).Values)

	_, err = a.Concat(&hs2.RowSet{}, 3)
	assert.ErrorIs(t, err, errs.ErrFetchFailed)
}

func TestValuesSlicePadsShortColumn(t *testing.T) {
	short := hs2.NewValues([]string{"a", "b"})

	got := short.Slice(1, 4).(*hs2.StringColumn)
	assert.Equal(t, []string{"b", "", ""}, got.Values)
	assert.False(t, got.IsNull(0))
	assert.True(t, got.IsNull(1))
	assert.True(t, got.IsNull(2))
}

func TestRowSetShortColumnStaysAligned(t *testing.T) {
	// the server sent only one value for s in a three row batch
	first := &hs2.RowSet{Columns: []hs2.Column{
		hs2.NewValues([]int32{1, 2, 3}),
		hs2.NewValues([]string{"a"}),
	}}
	second := &hs2.RowSet{Columns: []hs2.Column{
		hs2.NewValues([]int32{4, 5, 6}),
		hs2.NewValues([]string{"d", "e", "f"}),
	}}

	merged, err := first.Tail(0, 3).Concat(second, 3)
	require.NoError(t, err)
	ints := merged.Columns[0].(*hs2.Int32Column)
	strs := merged.Columns[1].(*hs2.StringColumn)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, ints.Values)
	assert.Equal(t, []string{"a", "", "", "d", "e", "f"}, strs.Values)
	for row, null := range []bool{false, true, true, false, false, false} {
		assert.Equal(t, null, strs.IsNull(row), "row %d", row)
	}

	// padding also applies when the receiver was never tailed
	merged, err = first.Concat(second, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "", "d", "e", "f"}, merged.Columns[1].(*hs2.StringColumn).Values)
}

func TestOperationStateTerminal(t *testing.T) {
	for _, s := range []hs2.OperationState{hs2.StateInitialized, hs2.StatePending, hs2.StateRunning, hs2.StateUnknown} {
		assert.False(t, s.Terminal(), s.String())
	}
	for _, s := range []hs2.OperationState{hs2.StateFinished, hs2.StateError, hs2.StateCanceled, hs2.StateClosed, hs2.StateTimedOut} {
		assert.True(t, s.Terminal(), s.String())
	}
}

func TestTypeStorage(t *testing.T) {
	tests := []struct {
		typ  hs2.TypeID
		kind hs2.ColumnKind
	}{
		{hs2.TypeBoolean, hs2.KindBool},
		{hs2.TypeTinyInt, hs2.KindByte},
		{hs2.TypeSmallInt, hs2.KindInt16},
		{hs2.TypeInt, hs2.KindInt32},
		{hs2.TypeBigInt, hs2.KindInt64},
		{hs2.TypeFloat, hs2.KindDouble},
		{hs2.TypeDecimal, hs2.KindString},
		{hs2.TypeTimestamp, hs2.KindString},
		{hs2.TypeBinary, hs2.KindBinary},
	}
	for _, tt := range tests {
		kind, err := tt.typ.Storage()
		require.NoError(t, err, tt.typ.String())
		assert.Equal(t, tt.kind, kind, tt.typ.String())
	}

	for _, typ := range []hs2.TypeID{hs2.TypeArray, hs2.TypeMap, hs2.TypeStruct, hs2.TypeUnion, hs2.TypeNull} {
		_, err := typ.Storage()
		assert.ErrorIs(t, err, errs.ErrUnsupportedOperation, typ.String())
	}
}
