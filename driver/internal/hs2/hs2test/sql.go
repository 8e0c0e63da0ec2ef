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

package hs2test

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
)

var typesByName = map[string]hs2.TypeID{
	"boolean":   hs2.TypeBoolean,
	"tinyint":   hs2.TypeTinyInt,
	"smallint":  hs2.TypeSmallInt,
	"int":       hs2.TypeInt,
	"integer":   hs2.TypeInt,
	"bigint":    hs2.TypeBigInt,
	"float":     hs2.TypeFloat,
	"double":    hs2.TypeDouble,
	"string":    hs2.TypeString,
	"varchar":   hs2.TypeVarchar,
	"char":      hs2.TypeChar,
	"timestamp": hs2.TypeTimestamp,
	"date":      hs2.TypeDate,
	"binary":    hs2.TypeBinary,
	"decimal":   hs2.TypeDecimal,
	"array":     hs2.TypeArray,
	"map":       hs2.TypeMap,
	"struct":    hs2.TypeStruct,
}

func tableName(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		qualified = qualified[i+1:]
	}
	return strings.ToLower(strings.Trim(qualified, "`"))
}

// interpret runs sql against the stored tables. The caller holds s.mu.
func (s *Server) interpret(sql string) (*Result, error) {
	words := strings.Fields(sql)
	if len(words) == 0 {
		return nil, errors.New("empty statement")
	}
	switch strings.ToLower(words[0]) {
	case "use", "set", "invalidate", "refresh", "compute":
		return &Result{}, nil
	case "create":
		// hive column types are not part of the mysql grammar
		return s.create(sql)
	}

	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("cannot parse statement: %w", err)
	}
	switch stmt := stmt.(type) {
	case *sqlparser.Insert:
		return s.insert(stmt)
	case *sqlparser.Select:
		return s.selectFrom(stmt)
	case *sqlparser.DDL:
		if stmt.Action == sqlparser.DropStr {
			return s.drop(stmt)
		}
	}
	return nil, fmt.Errorf("unsupported statement: %s", sql)
}

func (s *Server) create(sql string) (*Result, error) {
	open, end := strings.IndexByte(sql, '('), strings.LastIndexByte(sql, ')')
	if open < 0 || end < open {
		return nil, fmt.Errorf("cannot parse statement: %s", sql)
	}
	head := strings.Fields(strings.ToLower(sql[:open]))
	if len(head) < 3 || head[1] != "table" {
		return nil, fmt.Errorf("cannot parse statement: %s", sql)
	}
	name := head[len(head)-1]

	t := &Table{}
	for i, def := range splitTop(sql[open+1 : end]) {
		fields := strings.Fields(def)
		if len(fields) < 2 {
			return nil, fmt.Errorf("bad column definition %q", def)
		}
		typeName := strings.ToLower(fields[1])
		if p := strings.IndexAny(typeName, "(<"); p >= 0 {
			typeName = typeName[:p]
		}
		id, ok := typesByName[typeName]
		if !ok {
			return nil, fmt.Errorf("unknown type %q", fields[1])
		}
		t.Columns = append(t.Columns, hs2.ColumnDesc{Name: strings.ToLower(fields[0]), Type: id, Position: i + 1})
	}
	s.tables[tableName(name)] = t
	return &Result{}, nil
}

func (s *Server) drop(stmt *sqlparser.DDL) (*Result, error) {
	qualified := sqlparser.String(stmt.Table)
	name := tableName(qualified)
	if _, ok := s.tables[name]; !ok && !stmt.IfExists {
		return nil, fmt.Errorf("table not found: %s", qualified)
	}
	delete(s.tables, name)
	return &Result{}, nil
}

func (s *Server) insert(stmt *sqlparser.Insert) (*Result, error) {
	name := stmt.Table.Name.String()
	t, ok := s.tables[tableName(name)]
	if !ok {
		return nil, fmt.Errorf("table not found: %s", name)
	}
	tuples, ok := stmt.Rows.(sqlparser.Values)
	if !ok {
		return nil, fmt.Errorf("unsupported insert source: %s", sqlparser.String(stmt.Rows))
	}

	targets := make([]int, len(t.Columns))
	for i := range targets {
		targets[i] = i
	}
	if len(stmt.Columns) > 0 {
		targets = targets[:0]
		for _, c := range stmt.Columns {
			idx := columnIndex(t.Columns, c.String())
			if idx < 0 {
				return nil, fmt.Errorf("unknown column %q", c.String())
			}
			targets = append(targets, idx)
		}
	}

	rows := make([][]any, 0, len(tuples))
	for _, tuple := range tuples {
		if len(tuple) != len(targets) {
			return nil, fmt.Errorf("expected %d values, got %d", len(targets), len(tuple))
		}
		row := make([]any, len(t.Columns))
		for i, expr := range tuple {
			col := t.Columns[targets[i]]
			lit, err := literalOf(expr)
			if err != nil {
				return nil, err
			}
			if row[targets[i]], err = lit.coerce(col.Type); err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
		}
		rows = append(rows, row)
	}
	t.Rows = append(t.Rows, rows...)
	return &Result{Profile: fmt.Sprintf("Query Status: OK\nNumModifiedRows=%d\nNumRowErrors=0\n", len(rows))}, nil
}

func columnIndex(cols []hs2.ColumnDesc, name string) int {
	for i, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// fromTable is the single table a select reads, or "" for a select
// without one.
func fromTable(stmt *sqlparser.Select) (string, error) {
	if len(stmt.From) == 0 {
		return "", nil
	}
	if len(stmt.From) > 1 {
		return "", errors.New("joins are not supported")
	}
	aliased, ok := stmt.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", fmt.Errorf("unsupported table expression %s", sqlparser.String(stmt.From[0]))
	}
	table, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", fmt.Errorf("unsupported table expression %s", sqlparser.String(aliased))
	}
	if name := table.Name.String(); !strings.EqualFold(name, "dual") {
		return name, nil
	}
	return "", nil
}

func (s *Server) selectFrom(stmt *sqlparser.Select) (*Result, error) {
	name, err := fromTable(stmt)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return selectConst(stmt.SelectExprs)
	}
	t, ok := s.tables[tableName(name)]
	if !ok {
		return nil, fmt.Errorf("table not found: %s", name)
	}

	var picks []int
	for _, expr := range stmt.SelectExprs {
		switch expr := expr.(type) {
		case *sqlparser.StarExpr:
			for i := range t.Columns {
				picks = append(picks, i)
			}
		case *sqlparser.AliasedExpr:
			col, ok := expr.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, fmt.Errorf("unsupported select expression %s", sqlparser.String(expr))
			}
			idx := columnIndex(t.Columns, col.Name.String())
			if idx < 0 {
				return nil, fmt.Errorf("unknown column %q", col.Name.String())
			}
			picks = append(picks, idx)
		default:
			return nil, fmt.Errorf("unsupported select expression %s", sqlparser.String(expr))
		}
	}

	filter := -1
	var want any
	if stmt.Where != nil {
		cond, ok := stmt.Where.Expr.(*sqlparser.ComparisonExpr)
		if !ok || cond.Operator != sqlparser.EqualStr {
			return nil, fmt.Errorf("unsupported predicate %s", sqlparser.String(stmt.Where.Expr))
		}
		col, ok := cond.Left.(*sqlparser.ColName)
		if !ok {
			return nil, fmt.Errorf("unsupported predicate %s", sqlparser.String(cond))
		}
		if filter = columnIndex(t.Columns, col.Name.String()); filter < 0 {
			return nil, fmt.Errorf("unknown column %q", col.Name.String())
		}
		lit, err := literalOf(cond.Right)
		if err != nil {
			return nil, fmt.Errorf("bad predicate value: %w", err)
		}
		if want, err = lit.coerce(t.Columns[filter].Type); err != nil {
			return nil, err
		}
	}

	var matched [][]any
	for _, row := range t.Rows {
		if filter >= 0 && !equal(row[filter], want) {
			continue
		}
		matched = append(matched, row)
	}
	if len(stmt.OrderBy) > 0 {
		order := stmt.OrderBy[0]
		col, ok := order.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, fmt.Errorf("unsupported order %s", sqlparser.String(order))
		}
		key := columnIndex(t.Columns, col.Name.String())
		if key < 0 {
			return nil, fmt.Errorf("unknown column %q", col.Name.String())
		}
		desc := order.Direction == sqlparser.DescScr
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return less(matched[j][key], matched[i][key])
			}
			return less(matched[i][key], matched[j][key])
		})
	}

	limitRows := math.MaxInt
	if stmt.Limit != nil {
		lit, err := literalOf(stmt.Limit.Rowcount)
		if err != nil || lit.kind != litInt {
			return nil, fmt.Errorf("bad limit %s", sqlparser.String(stmt.Limit))
		}
		limitRows = int(lit.i)
	}

	res := &Result{}
	for i, p := range picks {
		c := t.Columns[p]
		c.Position = i + 1
		res.Columns = append(res.Columns, c)
	}
	for _, row := range matched {
		if len(res.Rows) >= limitRows {
			break
		}
		out := make([]any, len(picks))
		for i, p := range picks {
			out[i] = row[p]
		}
		res.Rows = append(res.Rows, out)
	}
	return res, nil
}

func selectConst(exprs sqlparser.SelectExprs) (*Result, error) {
	res := &Result{Rows: [][]any{make([]any, len(exprs))}}
	for i, expr := range exprs {
		aliased, ok := expr.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, fmt.Errorf("unsupported select expression %s", sqlparser.String(expr))
		}
		lit, err := literalOf(aliased.Expr)
		if err != nil {
			return nil, err
		}
		typ := lit.natural()
		res.Columns = append(res.Columns, hs2.ColumnDesc{Name: "_c" + strconv.Itoa(i), Type: typ, Position: i + 1})
		if res.Rows[0][i], err = lit.coerce(typ); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func equal(a, b any) bool {
	if ab, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && bytes.Equal(ab, bb)
	}
	return a != nil && a == b
}

// less orders NULL first, then by value within one type.
func less(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b != nil
	case bool:
		bv, ok := b.(bool)
		return ok && !av && bv
	case int8:
		return lessAs(av, b)
	case int16:
		return lessAs(av, b)
	case int32:
		return lessAs(av, b)
	case int64:
		return lessAs(av, b)
	case float64:
		return lessAs(av, b)
	case string:
		return lessAs(av, b)
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Compare(av, bv) < 0
	}
	return false
}

func lessAs[T cmp.Ordered](a T, b any) bool {
	bv, ok := b.(T)
	return ok && cmp.Less(a, bv)
}

// splitTop splits on commas outside parentheses and angle brackets.
func splitTop(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

type litKind int

const (
	litNull litKind = iota
	litInt
	litFloat
	litString
	litBool
)

type literal struct {
	kind litKind
	text string
	i    int64
	f    float64
	b    bool
}

func (l literal) natural() hs2.TypeID {
	switch l.kind {
	case litInt:
		if l.i >= math.MinInt32 && l.i <= math.MaxInt32 {
			return hs2.TypeInt
		}
		return hs2.TypeBigInt
	case litFloat:
		return hs2.TypeDouble
	case litBool:
		return hs2.TypeBoolean
	}
	return hs2.TypeString
}

var errType = errors.New("type mismatch")

func (l literal) coerce(t hs2.TypeID) (any, error) {
	if l.kind == litNull {
		return nil, nil
	}
	kind, err := t.Storage()
	if err != nil {
		return nil, err
	}
	switch kind {
	case hs2.KindBool:
		if l.kind == litBool {
			return l.b, nil
		}
	case hs2.KindByte:
		if l.kind == litInt && l.i >= math.MinInt8 && l.i <= math.MaxInt8 {
			return int8(l.i), nil
		}
	case hs2.KindInt16:
		if l.kind == litInt && l.i >= math.MinInt16 && l.i <= math.MaxInt16 {
			return int16(l.i), nil
		}
	case hs2.KindInt32:
		if l.kind == litInt && l.i >= math.MinInt32 && l.i <= math.MaxInt32 {
			return int32(l.i), nil
		}
	case hs2.KindInt64:
		if l.kind == litInt {
			return l.i, nil
		}
	case hs2.KindDouble:
		switch l.kind {
		case litInt:
			return float64(l.i), nil
		case litFloat:
			return l.f, nil
		}
	case hs2.KindString:
		return l.text, nil
	case hs2.KindBinary:
		return []byte(l.text), nil
	}
	return nil, fmt.Errorf("%w: cannot store %q in %s", errType, l.text, t)
}

// literalOf reads a constant expression.
func literalOf(expr sqlparser.Expr) (literal, error) {
	switch v := expr.(type) {
	case *sqlparser.NullVal:
		return literal{kind: litNull, text: "NULL"}, nil
	case sqlparser.BoolVal:
		return literal{kind: litBool, text: strconv.FormatBool(bool(v)), b: bool(v)}, nil
	case *sqlparser.SQLVal:
		text := string(v.Val)
		switch v.Type {
		case sqlparser.StrVal:
			return literal{kind: litString, text: text}, nil
		case sqlparser.IntVal:
			i, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return literal{}, fmt.Errorf("bad literal %q: %w", text, err)
			}
			return literal{kind: litInt, text: text, i: i}, nil
		case sqlparser.FloatVal:
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return literal{}, fmt.Errorf("bad literal %q: %w", text, err)
			}
			return literal{kind: litFloat, text: text, f: f}, nil
		}
	case *sqlparser.UnaryExpr:
		if v.Operator != sqlparser.UMinusStr {
			break
		}
		lit, err := literalOf(v.Expr)
		if err != nil {
			return literal{}, err
		}
		switch lit.kind {
		case litInt:
			return literal{kind: litInt, text: "-" + lit.text, i: -lit.i}, nil
		case litFloat:
			return literal{kind: litFloat, text: "-" + lit.text, f: -lit.f}, nil
		}
	}
	return literal{}, fmt.Errorf("bad literal %s", sqlparser.String(expr))
}
