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

package engine

import (
	"time"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
)

// Text forms of TIMESTAMP and DATE values.
const (
	TimestampLayout = "2006-01-02 15:04:05.999999999"
	DateLayout      = "2006-01-02"
)

// marshaler copies the window [start, end) of col into a target.
type marshaler func(col hs2.Column, desc hs2.ColumnDesc, start, end int) error

type intoBinding struct {
	// position is the 1-based result column.
	position int
	marshal  marshaler
}

// accessor reads one row, reporting false for NULL and for rows past the
// end of a short column.
type accessor[T any] func(row int) (T, bool, error)

type opener[T any] func(col hs2.Column, desc hs2.ColumnDesc) (accessor[T], error)

// Into binds dst to the next result column. dst points to an int8, int16,
// int32, int64, uint64, float64, bool, string or time.Time. Each Fetch
// stores the first row of the window; ind, when not nil, receives whether
// it was NULL.
func (s *Statement) Into(dst any, ind *Indicator) error {
	var m marshaler
	switch d := dst.(type) {
	case *int8:
		m = scalar(d, ind, exact[int8])
	case *int16:
		m = scalar(d, ind, exact[int16])
	case *int32:
		m = scalar(d, ind, exact[int32])
	case *int64:
		m = scalar(d, ind, exact[int64])
	case *uint64:
		m = scalar(d, ind, asUint64)
	case *float64:
		m = scalar(d, ind, exact[float64])
	case *bool:
		m = scalar(d, ind, exact[bool])
	case *string:
		m = scalar(d, ind, asString)
	case *time.Time:
		m = scalar(d, ind, asTime)
	default:
		return errs.New(errs.KindUnsupportedType, "type %T cannot receive a column", dst)
	}
	s.addInto(m)
	if s.intoCard == None {
		s.intoCard = One
	}
	return nil
}

// IntoVector binds dst, a pointer to a slice of a type Into accepts, to
// the next result column. Each Fetch resizes the slice to the window and
// fills it; inds, when not nil, is resized alongside.
func (s *Statement) IntoVector(dst any, inds *[]Indicator) error {
	var m marshaler
	switch d := dst.(type) {
	case *[]int8:
		m = vector(d, inds, exact[int8])
	case *[]int16:
		m = vector(d, inds, exact[int16])
	case *[]int32:
		m = vector(d, inds, exact[int32])
	case *[]int64:
		m = vector(d, inds, exact[int64])
	case *[]uint64:
		m = vector(d, inds, asUint64)
	case *[]float64:
		m = vector(d, inds, exact[float64])
	case *[]bool:
		m = vector(d, inds, exact[bool])
	case *[]string:
		m = vector(d, inds, asString)
	case *[]time.Time:
		m = vector(d, inds, asTime)
	default:
		return errs.New(errs.KindUnsupportedType, "type %T cannot receive a column", dst)
	}
	s.addInto(m)
	s.intoCard = Many
	return nil
}

func (s *Statement) addInto(m marshaler) {
	s.intos = append(s.intos, &intoBinding{position: len(s.intos) + 1, marshal: m})
}

func (s *Statement) postFetch() error {
	if len(s.intos) == 0 {
		return nil
	}
	rows, start, end := s.Window()
	cols := s.cursor.Columns()
	for _, b := range s.intos {
		idx := b.position - 1
		if idx >= len(cols) || idx >= rows.NumColumns() {
			return errs.New(errs.KindUnsupportedOperation,
				"no result column for into position %d (ColumnCount=%d)", b.position, len(cols))
		}
		if err := b.marshal(rows.Columns[idx], cols[idx], start, end); err != nil {
			return err
		}
	}
	return nil
}

func scalar[T any](dst *T, ind *Indicator, open opener[T]) marshaler {
	return func(col hs2.Column, desc hs2.ColumnDesc, start, _ int) error {
		get, err := open(col, desc)
		if err != nil {
			return err
		}
		v, ok, err := get(start)
		if err != nil {
			return err
		}
		*dst = v
		if ind != nil {
			*ind = indicatorFor(ok)
		}
		return nil
	}
}

func vector[T any](dst *[]T, inds *[]Indicator, open opener[T]) marshaler {
	return func(col hs2.Column, desc hs2.ColumnDesc, start, end int) error {
		get, err := open(col, desc)
		if err != nil {
			return err
		}
		n := end - start
		out := resize(*dst, n)
		var flags []Indicator
		if inds != nil {
			flags = resize(*inds, n)
		}
		for i := range n {
			v, ok, err := get(start + i)
			if err != nil {
				return err
			}
			out[i] = v
			if flags != nil {
				flags[i] = indicatorFor(ok)
			}
		}
		*dst = out
		if inds != nil {
			*inds = flags
		}
		return nil
	}
}

func resize[T any](s []T, n int) []T {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]T, n)
}

func indicatorFor(ok bool) Indicator {
	if ok {
		return IndicatorOK
	}
	return IndicatorNull
}

func exact[T hs2.Storage](col hs2.Column, desc hs2.ColumnDesc) (accessor[T], error) {
	c, ok := col.(*hs2.Values[T])
	if !ok {
		var zero T
		return nil, mismatch(desc, zero)
	}
	return func(row int) (T, bool, error) {
		if row >= c.Len() || c.IsNull(row) {
			var zero T
			return zero, false, nil
		}
		return c.Value(row), true, nil
	}, nil
}

func mismatch(desc hs2.ColumnDesc, target any) error {
	return errs.New(errs.KindUnsupportedOperation,
		"column '%s' of type %s cannot be read into %T", desc.Name, desc.Type, target)
}

func asUint64(col hs2.Column, desc hs2.ColumnDesc) (accessor[uint64], error) {
	get, err := exact[int64](col, desc)
	if err != nil {
		return nil, mismatch(desc, uint64(0))
	}
	return func(row int) (uint64, bool, error) {
		v, ok, _ := get(row)
		return uint64(v), ok, nil
	}, nil
}

func asString(col hs2.Column, desc hs2.ColumnDesc) (accessor[string], error) {
	if get, err := exact[string](col, desc); err == nil {
		return get, nil
	}
	bin, err := exact[[]byte](col, desc)
	if err != nil {
		return nil, mismatch(desc, "")
	}
	return func(row int) (string, bool, error) {
		v, ok, _ := bin(row)
		return string(v), ok, nil
	}, nil
}

// asTime reads epoch seconds from int64 columns and TIMESTAMP or DATE text
// from string columns, both as local time.
func asTime(col hs2.Column, desc hs2.ColumnDesc) (accessor[time.Time], error) {
	if secs, err := exact[int64](col, desc); err == nil {
		return func(row int) (time.Time, bool, error) {
			v, ok, _ := secs(row)
			if !ok {
				return time.Time{}, false, nil
			}
			return time.Unix(v, 0), true, nil
		}, nil
	}
	text, err := exact[string](col, desc)
	if err != nil {
		return nil, mismatch(desc, time.Time{})
	}
	return func(row int) (time.Time, bool, error) {
		v, ok, _ := text(row)
		if !ok {
			return time.Time{}, false, nil
		}
		t, err := ParseTime(v)
		if err != nil {
			return time.Time{}, false, errs.Wrap(errs.KindFetchFailed, err,
				"cannot read '%s' in column '%s' as a time", v, desc.Name)
		}
		return t, true, nil
	}, nil
}

// ParseTime parses TIMESTAMP or DATE text in local time.
func ParseTime(s string) (time.Time, error) {
	layout := TimestampLayout
	if len(s) == len(DateLayout) {
		layout = DateLayout
	}
	return time.ParseInLocation(layout, s, time.Local)
}
