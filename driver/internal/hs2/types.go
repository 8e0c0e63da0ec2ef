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
	"fmt"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

// TypeID is the declared type of a result column.
type TypeID int

const (
	TypeBoolean TypeID = iota
	TypeTinyInt
	TypeSmallInt
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDouble
	TypeString
	TypeTimestamp
	TypeBinary
	TypeArray
	TypeMap
	TypeStruct
	TypeUnion
	TypeUserDefined
	TypeDecimal
	TypeNull
	TypeDate
	TypeVarchar
	TypeChar
)

var typeNames = [...]string{
	TypeBoolean:     "BOOLEAN",
	TypeTinyInt:     "TINYINT",
	TypeSmallInt:    "SMALLINT",
	TypeInt:         "INT",
	TypeBigInt:      "BIGINT",
	TypeFloat:       "FLOAT",
	TypeDouble:      "DOUBLE",
	TypeString:      "STRING",
	TypeTimestamp:   "TIMESTAMP",
	TypeBinary:      "BINARY",
	TypeArray:       "ARRAY",
	TypeMap:         "MAP",
	TypeStruct:      "STRUCT",
	TypeUnion:       "UNION",
	TypeUserDefined: "USER_DEFINED",
	TypeDecimal:     "DECIMAL",
	TypeNull:        "NULL",
	TypeDate:        "DATE",
	TypeVarchar:     "VARCHAR",
	TypeChar:        "CHAR",
}

func (t TypeID) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("TypeID(%d)", int(t))
}

// Storage returns the column kind the server uses to ship values of this
// type. Complex and untyped columns have no storage kind.
func (t TypeID) Storage() (ColumnKind, error) {
	switch t {
	case TypeBoolean:
		return KindBool, nil
	case TypeTinyInt:
		return KindByte, nil
	case TypeSmallInt:
		return KindInt16, nil
	case TypeInt:
		return KindInt32, nil
	case TypeBigInt:
		return KindInt64, nil
	case TypeFloat, TypeDouble:
		return KindDouble, nil
	case TypeString, TypeVarchar, TypeChar, TypeDecimal, TypeTimestamp, TypeDate:
		return KindString, nil
	case TypeBinary:
		return KindBinary, nil
	}
	return 0, errs.New(errs.KindUnsupportedOperation, "unsupported column type %s", t)
}

// ColumnDesc describes one result column.
type ColumnDesc struct {
	Name string
	Type TypeID
	// Position is 1-based, as the server reports it.
	Position int
	Comment  string
}

// OperationState is the server side lifecycle state of an operation.
type OperationState int

const (
	StateInitialized OperationState = iota
	StateRunning
	StateFinished
	StateCanceled
	StateClosed
	StateError
	StateUnknown
	StatePending
	StateTimedOut
)

func (s OperationState) String() string {
	switch s {
	case StateInitialized:
		return "INITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateFinished:
		return "FINISHED"
	case StateCanceled:
		return "CANCELED"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	case StateUnknown:
		return "UNKNOWN"
	case StatePending:
		return "PENDING"
	case StateTimedOut:
		return "TIMEDOUT"
	}
	return fmt.Sprintf("OperationState(%d)", int(s))
}

// Terminal reports whether the operation will not change state again
// without a new request.
func (s OperationState) Terminal() bool {
	switch s {
	case StateInitialized, StatePending, StateRunning, StateUnknown:
		return false
	}
	return true
}

// ColumnKind is the closed set of physical column encodings.
type ColumnKind int

const (
	KindBool ColumnKind = iota
	KindByte
	KindInt16
	KindInt32
	KindInt64
	KindDouble
	KindString
	KindBinary
)

func (k ColumnKind) String() string {
	return [...]string{"bool", "byte", "i16", "i32", "i64", "double", "string", "binary"}[k]
}

// Storage is the set of Go types a column can hold.
type Storage interface {
	bool | int8 | int16 | int32 | int64 | float64 | string | []byte
}

// Column is one column of a columnar batch. Rows past Len are treated as
// null by readers.
type Column interface {
	Kind() ColumnKind
	Len() int
	IsNull(row int) bool
	// Slice returns rows [from, to). Rows past Len come back as null zero
	// values, so the result always holds to-from rows.
	Slice(from, to int) Column
	// Concat returns this column followed by other, which must have the
	// same kind.
	Concat(other Column) (Column, error)
}

// Values is a column of T with a null bitmap. Bit i%8 of byte i/8 set
// means row i is null; a short bitmap leaves the remaining rows valid.
type Values[T Storage] struct {
	Values []T
	Nulls  []byte
}

type (
	BoolColumn   = Values[bool]
	ByteColumn   = Values[int8]
	Int16Column  = Values[int16]
	Int32Column  = Values[int32]
	Int64Column  = Values[int64]
	DoubleColumn = Values[float64]
	StringColumn = Values[string]
	BinaryColumn = Values[[]byte]
)

// NewValues builds a column from values, marking the rows listed in
// nullRows as null.
func NewValues[T Storage](values []T, nullRows ...int) *Values[T] {
	c := &Values[T]{Values: values}
	for _, r := range nullRows {
		c.Nulls = setBit(c.Nulls, r)
	}
	return c
}

func (c *Values[T]) Kind() ColumnKind {
	switch any(c.Values).(type) {
	case []bool:
		return KindBool
	case []int8:
		return KindByte
	case []int16:
		return KindInt16
	case []int32:
		return KindInt32
	case []int64:
		return KindInt64
	case []float64:
		return KindDouble
	case []string:
		return KindString
	}
	return KindBinary
}

func (c *Values[T]) Len() int { return len(c.Values) }

func (c *Values[T]) IsNull(row int) bool { return isNull(c.Nulls, row) }

// Value returns the value at row without checking the null bitmap.
func (c *Values[T]) Value(row int) T { return c.Values[row] }

func (c *Values[T]) Slice(from, to int) Column {
	if to <= from {
		return &Values[T]{}
	}
	out := &Values[T]{Values: make([]T, to-from)}
	for r := from; r < to; r++ {
		if r < len(c.Values) {
			out.Values[r-from] = c.Values[r]
			if !isNull(c.Nulls, r) {
				continue
			}
		}
		out.Nulls = setBit(out.Nulls, r-from)
	}
	return out
}

func (c *Values[T]) Concat(other Column) (Column, error) {
	o, ok := other.(*Values[T])
	if !ok {
		return nil, errs.New(errs.KindFetchFailed, "cannot append a %s column to a %s column", other.Kind(), c.Kind())
	}
	out := &Values[T]{Values: make([]T, 0, len(c.Values)+len(o.Values))}
	out.Values = append(append(out.Values, c.Values...), o.Values...)
	for r := range c.Values {
		if isNull(c.Nulls, r) {
			out.Nulls = setBit(out.Nulls, r)
		}
	}
	for r := range o.Values {
		if isNull(o.Nulls, r) {
			out.Nulls = setBit(out.Nulls, len(c.Values)+r)
		}
	}
	return out, nil
}

func isNull(nulls []byte, position int) bool {
	index := position / 8
	if position >= 0 && len(nulls) > index {
		return nulls[index]&(1<<uint(position%8)) != 0
	}
	return false
}

func setBit(bits []byte, position int) []byte {
	for len(bits) <= position/8 {
		bits = append(bits, 0)
	}
	bits[position/8] |= 1 << uint(position%8)
	return bits
}

// RowSet is one columnar batch returned by a fetch.
type RowSet struct {
	Columns []Column
}

// NumColumns is the number of columns in the batch.
func (r *RowSet) NumColumns() int {
	if r == nil {
		return 0
	}
	return len(r.Columns)
}

// Tail returns rows [from, rows) of a batch holding rows rows. Columns the
// server sent short are padded with nulls, so every tail column holds
// rows-from entries.
func (r *RowSet) Tail(from, rows int) *RowSet {
	out := &RowSet{Columns: make([]Column, len(r.Columns))}
	for i, c := range r.Columns {
		out.Columns[i] = c.Slice(from, rows)
	}
	return out
}

// Concat appends other's rows column by column. rows is the row count of
// r; shorter columns of r are padded with nulls first so other's rows stay
// aligned across columns.
func (r *RowSet) Concat(other *RowSet, rows int) (*RowSet, error) {
	if other.NumColumns() != r.NumColumns() {
		return nil, errs.New(errs.KindFetchFailed, "batch has %d columns, expected %d", other.NumColumns(), r.NumColumns())
	}
	out := &RowSet{Columns: make([]Column, len(r.Columns))}
	for i, c := range r.Columns {
		if c.Len() < rows {
			c = c.Slice(0, rows)
		}
		merged, err := c.Concat(other.Columns[i])
		if err != nil {
			return nil, err
		}
		out.Columns[i] = merged
	}
	return out, nil
}

// RowCount returns the number of rows in rows, read from the first column
// through the accessor its declared type selects.
func RowCount(columns []ColumnDesc, rows *RowSet) (int, error) {
	if len(columns) == 0 || rows.NumColumns() == 0 {
		return 0, nil
	}
	kind, err := columns[0].Type.Storage()
	if err != nil {
		return 0, err
	}
	first := rows.Columns[0]
	if first.Kind() != kind {
		return 0, errs.New(errs.KindUnsupportedOperation,
			"column '%s' is declared %s but was sent as %s", columns[0].Name, columns[0].Type, first.Kind())
	}
	return first.Len(), nil
}
