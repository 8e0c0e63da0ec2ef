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
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/sqlliteral"
)

// Indicator tells whether an exchanged value is present.
type Indicator int

const (
	IndicatorOK Indicator = iota
	IndicatorNull
)

type useBinding struct {
	// position is the 0-based placeholder position of unnamed bindings.
	position int
	name     string
	vector   bool

	value  any
	ind    *Indicator
	values []any
	inds   []Indicator
}

// Use binds value to the placeholder called name, or to the next unnamed
// position when name is empty. value may be a pointer, in which case it
// is read again on every Execute; a nil value or a null indicator binds
// NULL.
func (s *Statement) Use(name string, value any, ind *Indicator) error {
	if _, err := sqlliteral.Format(deref(value)); err != nil {
		return err
	}
	s.addUse(&useBinding{name: name, value: value, ind: ind})
	if s.useCard == None {
		s.useCard = One
	}
	return nil
}

// UseVector binds one value per row to the placeholder called name, or to
// the next unnamed position. values is a slice of a type Use accepts, or
// a []any where nil is NULL. A row whose indicator is IndicatorNull binds
// NULL.
func (s *Statement) UseVector(name string, values any, inds []Indicator) error {
	list, err := toAnySlice(values)
	if err != nil {
		return err
	}
	for i, v := range list {
		if _, err := sqlliteral.Format(v); err != nil {
			return errs.Wrap(errs.KindUnsupportedType, err, "element %d cannot be bound", i)
		}
	}
	s.addUse(&useBinding{name: name, vector: true, values: list, inds: inds})
	s.useCard = Many
	return nil
}

func (s *Statement) addUse(b *useBinding) {
	if b.name == "" {
		b.position = s.nextUse
		s.nextUse++
	}
	s.uses = append(s.uses, b)
}

// ClearBindings drops every use and into binding.
func (s *Statement) ClearBindings() {
	s.uses, s.intos = nil, nil
	s.nextUse = 0
	s.useCard, s.intoCard = None, None
	if s.tmpl != nil {
		s.tmpl.ClearAll()
	}
}

// preUse renders every bound value into the template, dropping the values
// of any previous execution.
func (s *Statement) preUse() error {
	s.tmpl.ClearAll()
	for _, b := range s.uses {
		if !b.vector {
			v := deref(b.value)
			if b.ind != nil && *b.ind == IndicatorNull {
				v = nil
			}
			if err := s.add(b, v); err != nil {
				return err
			}
			continue
		}
		for i, v := range b.values {
			if i < len(b.inds) && b.inds[i] == IndicatorNull {
				v = nil
			}
			if err := s.add(b, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Statement) add(b *useBinding, v any) error {
	lit, err := sqlliteral.Format(v)
	if err != nil {
		return err
	}
	if b.name != "" {
		s.tmpl.AddByName(b.name, lit)
	} else {
		s.tmpl.AddByPosition(b.position, lit)
	}
	return nil
}

func deref(v any) any {
	switch p := v.(type) {
	case *int8:
		return ptrValue(p)
	case *int16:
		return ptrValue(p)
	case *int32:
		return ptrValue(p)
	case *int64:
		return ptrValue(p)
	case *uint64:
		return ptrValue(p)
	case *float64:
		return ptrValue(p)
	case *bool:
		return ptrValue(p)
	case *string:
		return ptrValue(p)
	case *time.Time:
		return ptrValue(p)
	case *int:
		if p == nil {
			return nil
		}
		return int64(*p)
	case int:
		return int64(p)
	}
	return v
}

func ptrValue[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func toAnySlice(values any) ([]any, error) {
	switch vs := values.(type) {
	case []any:
		out := make([]any, len(vs))
		for i, v := range vs {
			out[i] = deref(v)
		}
		return out, nil
	case []int8:
		return anySlice(vs), nil
	case []int16:
		return anySlice(vs), nil
	case []int32:
		return anySlice(vs), nil
	case []int64:
		return anySlice(vs), nil
	case []int:
		out := make([]any, len(vs))
		for i, v := range vs {
			out[i] = int64(v)
		}
		return out, nil
	case []uint64:
		return anySlice(vs), nil
	case []float64:
		return anySlice(vs), nil
	case []bool:
		return anySlice(vs), nil
	case []string:
		return anySlice(vs), nil
	case []time.Time:
		return anySlice(vs), nil
	}
	return nil, errs.New(errs.KindUnsupportedType, "type %T cannot be bound as a vector", values)
}

func anySlice[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
