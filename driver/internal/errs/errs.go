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

// Package errs defines the error kinds raised by the HiveServer2 driver
// internals. Errors are matched by kind with errors.Is against the exported
// sentinels, so callers never compare messages.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a driver failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectionString
	KindConnection
	KindUnsupportedOperation
	KindUnsupportedType
	KindMalformedStatement
	KindExecutionFailed
	KindFetchFailed
	KindNotConnected
	KindNoActiveOperation
	KindUnsupportedCombination
	KindUnsupportedBulkFetchCombination
)

func (k Kind) String() string {
	switch k {
	case KindConnectionString:
		return "ConnectionStringError"
	case KindConnection:
		return "ConnectionError"
	case KindUnsupportedOperation:
		return "UnsupportedOperation"
	case KindUnsupportedType:
		return "UnsupportedType"
	case KindMalformedStatement:
		return "MalformedStatement"
	case KindExecutionFailed:
		return "ExecutionFailed"
	case KindFetchFailed:
		return "FetchFailed"
	case KindNotConnected:
		return "NotConnected"
	case KindNoActiveOperation:
		return "NoActiveOperation"
	case KindUnsupportedCombination:
		return "UnsupportedCombination"
	case KindUnsupportedBulkFetchCombination:
		return "UnsupportedBulkFetchCombination"
	}
	return "Unknown"
}

// Sentinels for errors.Is. They carry no message and match any *Error of
// the same kind.
var (
	ErrConnectionString                = &Error{Kind: KindConnectionString}
	ErrConnection                      = &Error{Kind: KindConnection}
	ErrUnsupportedOperation            = &Error{Kind: KindUnsupportedOperation}
	ErrUnsupportedType                 = &Error{Kind: KindUnsupportedType}
	ErrMalformedStatement              = &Error{Kind: KindMalformedStatement}
	ErrExecutionFailed                 = &Error{Kind: KindExecutionFailed}
	ErrFetchFailed                     = &Error{Kind: KindFetchFailed}
	ErrNotConnected                    = &Error{Kind: KindNotConnected}
	ErrNoActiveOperation               = &Error{Kind: KindNoActiveOperation}
	ErrUnsupportedCombination          = &Error{Kind: KindUnsupportedCombination}
	ErrUnsupportedBulkFetchCombination = &Error{Kind: KindUnsupportedBulkFetchCombination}
)

// Error is the concrete error type for every kind.
type Error struct {
	Kind Kind
	Msg  string
	// SQL is the statement text that failed, when there is one.
	SQL string
	// SQLState is the five character state reported by the server, if any.
	SQLState string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.SQL != "" {
		b.WriteString(" (statement='")
		b.WriteString(e.SQL)
		b.WriteString("')")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	// connection string errors have their own type
	if errors.Is(err, ErrConnectionString) {
		return KindConnectionString
	}
	return KindUnknown
}
