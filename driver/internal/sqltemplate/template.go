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

// Package sqltemplate holds a query text split around its placeholders
// and renders it with bound literal values substituted in.
//
// Both `:name` and ODBC style `?` placeholders are recognised. Positional
// placeholders get a synthesized name of the form variable_<n>. A scanned
// template always has exactly one more chunk than placeholders; a query
// that ends on a placeholder has an empty trailing chunk.
package sqltemplate

import (
	"strings"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

// WholeQuery renders the query text as given, without substitution.
const WholeQuery = -1

// VariablePrefix starts every synthesized positional placeholder name.
const VariablePrefix = "variable_"

type layout struct {
	raw    string
	chunks []string
	names  []string
}

type scanState int

const (
	stateNormal scanState = iota
	stateInQuotes
	stateInName
)

func isNameChar(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func scan(query string, nextName func() string) *layout {
	var (
		chunks  []string
		names   []string
		cur     strings.Builder
		name    strings.Builder
		state   = stateNormal
		escaped bool
	)

	closeChunk := func() {
		chunks = append(chunks, cur.String())
		cur.Reset()
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				cur.WriteByte(c)
				state, escaped = stateInQuotes, false
			case c == ':' && i+1 < len(query) && query[i+1] == ':':
				cur.WriteString("::")
				i++
			case c == ':' && i+1 < len(query) && isNameChar(query[i+1]):
				closeChunk()
				state = stateInName
			case c == '?':
				closeChunk()
				names = append(names, nextName())
			default:
				cur.WriteByte(c)
			}
		case stateInQuotes:
			cur.WriteByte(c)
			if c == '\'' && !escaped {
				state = stateNormal
			}
			escaped = c == '\\' && !escaped
		case stateInName:
			if isNameChar(c) {
				name.WriteByte(c)
				continue
			}
			names = append(names, name.String())
			name.Reset()
			state = stateNormal
			// the terminating character belongs to the next chunk
			i--
		}
	}
	if state == stateInName {
		names = append(names, name.String())
	}
	closeChunk()

	return &layout{raw: query, chunks: chunks, names: names}
}

// Template is one prepared query and the literal values bound to it.
// Values are owned by the template and dropped by Clear and ClearAll.
type Template struct {
	layout *layout

	byIndex map[int][][]byte
	byName  map[string][][]byte
}

// New scans query with the process default Factory.
func New(query string) *Template {
	return defaultFactory.New(query)
}

// Raw returns the query text as it was given.
func (t *Template) Raw() string { return t.layout.raw }

// Chunks returns the literal text between placeholders. The slice must not
// be modified.
func (t *Template) Chunks() []string { return t.layout.chunks }

// Names returns the placeholder names in source order. The slice must not
// be modified.
func (t *Template) Names() []string { return t.layout.names }

// NumPlaceholders is the number of placeholder occurrences.
func (t *Template) NumPlaceholders() int { return len(t.layout.names) }

// Name returns the name of the placeholder at index, or "" when out of range.
func (t *Template) Name(index int) string {
	if index < 0 || index >= len(t.layout.names) {
		return ""
	}
	return t.layout.names[index]
}

// AddByPosition appends a rendered value for the placeholder at the 0-based
// position.
func (t *Template) AddByPosition(position int, value []byte) {
	if t.byIndex == nil {
		t.byIndex = make(map[int][][]byte)
	}
	t.byIndex[position] = append(t.byIndex[position], value)
}

// AddByName appends a rendered value for every placeholder called name.
func (t *Template) AddByName(name string, value []byte) {
	if t.byName == nil {
		t.byName = make(map[string][][]byte)
	}
	t.byName[name] = append(t.byName[name], value)
}

// Clear drops the values bound at position.
func (t *Template) Clear(position int) { delete(t.byIndex, position) }

// ClearName drops the values bound to name.
func (t *Template) ClearName(name string) { delete(t.byName, name) }

// ClearAll drops every bound value.
func (t *Template) ClearAll() {
	t.byIndex = nil
	t.byName = nil
}

// Render substitutes the index'th bound value of every placeholder into
// the query. Values bound by name take precedence over positional ones
// when only one kind is present; binding both kinds is an error.
func (t *Template) Render(index int) (string, error) {
	if index == WholeQuery {
		return t.layout.raw, nil
	}
	if len(t.byName) > 0 && len(t.byIndex) > 0 {
		return "", errs.New(errs.KindMalformedStatement,
			"a statement cannot have values bound both by name and by position")
	}

	names := t.layout.names
	values := make([][]byte, 0, len(names))
	switch {
	case len(t.byName) > 0:
		for _, name := range names {
			list := t.byName[name]
			if index >= len(list) {
				return "", errs.New(errs.KindMalformedStatement,
					"wrong number of parameters: no value %d for placeholder '%s'", index, name)
			}
			values = append(values, list[index])
		}
	case len(t.byIndex) > 0:
		if len(t.byIndex) != len(names) {
			return "", errs.New(errs.KindMalformedStatement,
				"wrong number of parameters: %d bound for %d placeholders", len(t.byIndex), len(names))
		}
		for pos := range names {
			list, ok := t.byIndex[pos]
			if !ok || index >= len(list) {
				return "", errs.New(errs.KindMalformedStatement,
					"wrong number of parameters: no value %d for position %d", index, pos)
			}
			values = append(values, list[index])
		}
	}

	if len(values) != len(t.layout.chunks)-1 {
		return "", errs.New(errs.KindMalformedStatement,
			"wrong number of parameters: %d values for %d placeholders", len(values), len(t.layout.chunks)-1)
	}

	var b strings.Builder
	b.Grow(len(t.layout.raw))
	for i, v := range values {
		b.WriteString(t.layout.chunks[i])
		b.Write(v)
	}
	b.WriteString(t.layout.chunks[len(values)])
	return b.String(), nil
}
