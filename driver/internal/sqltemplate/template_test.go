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

package sqltemplate_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/sqltemplate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanMixedPlaceholders(t *testing.T) {
	tmpl := sqltemplate.NewFactory(0).New("select :a, ?, :b")

	names := tmpl.Names()
	require.Len(t, names, 3)
	assert.Equal(t, "a", names[0])
	assert.True(t, strings.HasPrefix(names[1], sqltemplate.VariablePrefix), names[1])
	assert.Equal(t, "b", names[2])

	if diff := cmp.Diff([]string{"select ", ", ", ", ", ""}, tmpl.Chunks()); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}
}

func TestScanChunkInvariant(t *testing.T) {
	tests := []struct {
		query  string
		chunks []string
		names  []string
	}{
		{"select 1", []string{"select 1"}, nil},
		{"", []string{""}, nil},
		{":a", []string{"", ""}, []string{"a"}},
		{":a + 1", []string{"", " + 1"}, []string{"a"}},
		{"select :a", []string{"select ", ""}, []string{"a"}},
		{"x = :a:b", []string{"x = ", "", ""}, []string{"a", "b"}},
		{"select ':a', :b", []string{"select ':a', ", ""}, []string{"b"}},
		{`select 'it\'s :a', :b`, []string{`select 'it\'s :a', `, ""}, []string{"b"}},
		{"select a::int, :b", []string{"select a::int, ", ""}, []string{"b"}},
		{"select ': '", []string{"select ': '"}, nil},
		{"select 1 :", []string{"select 1 :"}, nil},
		{"where a=:a'x'", []string{"where a=", "'x'"}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tmpl := sqltemplate.NewFactory(0).New(tt.query)
			if diff := cmp.Diff(tt.chunks, tmpl.Chunks()); diff != "" {
				t.Errorf("chunks mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.names, tmpl.Names()); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
			assert.Len(t, tmpl.Chunks(), tmpl.NumPlaceholders()+1)
		})
	}
}

func TestScanPositionalAtEdges(t *testing.T) {
	f := sqltemplate.NewFactory(0)

	atStart := f.New("? = x")
	assert.Equal(t, []string{"", " = x"}, atStart.Chunks())
	assert.Equal(t, []string{"variable_0"}, atStart.Names())

	atEnd := f.New("x = ?")
	assert.Equal(t, []string{"x = ", ""}, atEnd.Chunks())
	assert.Equal(t, []string{"variable_1"}, atEnd.Names())
}

func TestRenderByPosition(t *testing.T) {
	tmpl := sqltemplate.NewFactory(0).New("insert into t values (?, ?)")
	tmpl.AddByPosition(0, []byte("1"))
	tmpl.AddByPosition(1, []byte("'a'"))
	tmpl.AddByPosition(0, []byte("2"))
	tmpl.AddByPosition(1, []byte("'b'"))

	got, err := tmpl.Render(0)
	require.NoError(t, err)
	assert.Equal(t, "insert into t values (1, 'a')", got)

	got, err = tmpl.Render(1)
	require.NoError(t, err)
	assert.Equal(t, "insert into t values (2, 'b')", got)

	_, err = tmpl.Render(2)
	assert.ErrorIs(t, err, errs.ErrMalformedStatement)
}

func TestRenderByName(t *testing.T) {
	tmpl := sqltemplate.NewFactory(0).New("select * from t where a = :v or b = :v and c = :w")
	tmpl.AddByName("v", []byte("7"))
	tmpl.AddByName("w", []byte("NULL"))

	got, err := tmpl.Render(0)
	require.NoError(t, err)
	assert.Equal(t, "select * from t where a = 7 or b = 7 and c = NULL", got)
}

func TestRenderPlaceholderAtEdges(t *testing.T) {
	f := sqltemplate.NewFactory(0)

	tmpl := f.New(":a = :b")
	tmpl.AddByName("a", []byte("1"))
	tmpl.AddByName("b", []byte("2"))
	got, err := tmpl.Render(0)
	require.NoError(t, err)
	assert.Equal(t, "1 = 2", got)
}

func TestRenderWholeQuery(t *testing.T) {
	tmpl := sqltemplate.New("select :a")
	got, err := tmpl.Render(sqltemplate.WholeQuery)
	require.NoError(t, err)
	assert.Equal(t, "select :a", got)
}

func TestRenderWithoutPlaceholders(t *testing.T) {
	tmpl := sqltemplate.New("select 1")
	got, err := tmpl.Render(0)
	require.NoError(t, err)
	assert.Equal(t, "select 1", got)
}

func TestRenderErrors(t *testing.T) {
	f := sqltemplate.NewFactory(0)

	t.Run("mixed binding", func(t *testing.T) {
		tmpl := f.New("select :a, ?")
		tmpl.AddByName("a", []byte("1"))
		tmpl.AddByPosition(1, []byte("2"))
		_, err := tmpl.Render(0)
		assert.ErrorIs(t, err, errs.ErrMalformedStatement)
	})

	t.Run("missing position", func(t *testing.T) {
		tmpl := f.New("select ?, ?")
		tmpl.AddByPosition(0, []byte("1"))
		_, err := tmpl.Render(0)
		assert.ErrorIs(t, err, errs.ErrMalformedStatement)
	})

	t.Run("extra position", func(t *testing.T) {
		tmpl := f.New("select ?")
		tmpl.AddByPosition(0, []byte("1"))
		tmpl.AddByPosition(1, []byte("2"))
		_, err := tmpl.Render(0)
		assert.ErrorIs(t, err, errs.ErrMalformedStatement)
	})

	t.Run("missing name", func(t *testing.T) {
		tmpl := f.New("select :a, :b")
		tmpl.AddByName("a", []byte("1"))
		_, err := tmpl.Render(0)
		assert.ErrorIs(t, err, errs.ErrMalformedStatement)
	})
}

func TestClear(t *testing.T) {
	tmpl := sqltemplate.NewFactory(0).New("select ?, :x")
	tmpl.AddByPosition(0, []byte("1"))
	tmpl.AddByPosition(1, []byte("2"))
	tmpl.Clear(1)
	tmpl.AddByPosition(1, []byte("3"))

	got, err := tmpl.Render(0)
	require.NoError(t, err)
	assert.Equal(t, "select 1, 3", got)

	tmpl.ClearAll()
	tmpl.AddByName("x", []byte("4"))
	tmpl.AddByName(tmpl.Name(0), []byte("5"))
	tmpl.ClearName("x")
	tmpl.AddByName("x", []byte("6"))
	got, err = tmpl.Render(0)
	require.NoError(t, err)
	assert.Equal(t, "select 5, 6", got)

	assert.Equal(t, "", tmpl.Name(5))
	assert.Equal(t, "", tmpl.Name(-1))
}

func TestFactoryCache(t *testing.T) {
	f := sqltemplate.NewFactory(4)

	first := f.New("select ?, ?")
	second := f.New("select ?, ?")
	assert.Equal(t, first.Names(), second.Names())
	assert.Equal(t, 1, f.CachedLayouts())

	// values are per template even when the layout is shared
	first.AddByPosition(0, []byte("1"))
	first.AddByPosition(1, []byte("2"))
	_, err := second.Render(0)
	assert.ErrorIs(t, err, errs.ErrMalformedStatement)
	got, err := first.Render(0)
	require.NoError(t, err)
	assert.Equal(t, "select 1, 2", got)

	other := f.New("select ?")
	assert.NotEqual(t, first.Names()[0], other.Names()[0])
	assert.Equal(t, 2, f.CachedLayouts())
}

func TestFactoryCounterIsMonotonic(t *testing.T) {
	f := sqltemplate.NewFactory(0)
	a := f.New("?")
	b := f.New("?")
	assert.Equal(t, "variable_0", a.Name(0))
	assert.Equal(t, "variable_1", b.Name(0))
}
