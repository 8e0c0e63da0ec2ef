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

// Package sqlliteral renders Go scalars as inline SQL literals. HiveServer2
// has no bind parameters, so every bound value reaches the server as text
// spliced into the statement.
package sqlliteral

import (
	"math"
	"strconv"
	"time"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

// Null is the literal written for a value whose indicator is null.
const Null = "NULL"

// Format renders v as a SQL literal. A nil v renders as NULL. Supported
// kinds are int8, int16, int32, int64, uint64, float64, bool, string and
// time.Time; anything else fails with errs.ErrUnsupportedType.
func Format(v any) ([]byte, error) {
	return Append(nil, v)
}

// Append is Format writing into dst.
func Append(dst []byte, v any) ([]byte, error) {
	switch v := v.(type) {
	case nil:
		return append(dst, Null...), nil
	case int8:
		// a signed decimal, never the raw character
		return strconv.AppendInt(dst, int64(v), 10), nil
	case int16:
		return strconv.AppendInt(dst, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(dst, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(dst, v, 10), nil
	case uint64:
		return strconv.AppendUint(dst, v, 10), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dst, errs.New(errs.KindUnsupportedType, "cannot render non-finite double %v as a literal", v)
		}
		return strconv.AppendFloat(dst, v, 'g', -1, 64), nil
	case bool:
		if v {
			return append(dst, "TRUE"...), nil
		}
		return append(dst, "FALSE"...), nil
	case string:
		return AppendEscaped(dst, v), nil
	case time.Time:
		return strconv.AppendInt(dst, v.Unix(), 10), nil
	}
	return dst, errs.New(errs.KindUnsupportedType, "type %T cannot be bound as a parameter", v)
}

// Escape quotes s for embedding as a string literal.
func Escape(s string) string {
	return string(AppendEscaped(make([]byte, 0, len(s)+2), s))
}

// AppendEscaped writes s wrapped in single quotes. A quote not already
// preceded by a backslash gets one inserted, and a trailing backslash is
// doubled so it cannot swallow the closing quote.
func AppendEscaped(dst []byte, s string) []byte {
	dst = append(dst, '\'')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' && (i == 0 || s[i-1] != '\\') {
			dst = append(dst, '\\')
		}
		dst = append(dst, c)
	}
	if len(s) > 0 && s[len(s)-1] == '\\' {
		dst = append(dst, '\\')
	}
	return append(dst, '\'')
}
