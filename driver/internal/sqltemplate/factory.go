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

package sqltemplate

import (
	"strconv"
	"sync/atomic"

	"github.com/bluele/gcache"
	"github.com/cespare/xxhash/v2"
)

var defaultFactory = NewFactory(0)

// Factory creates templates. It owns the counter used to name positional
// placeholders and, optionally, an LRU of scanned layouts keyed by query
// hash so re-preparing the same text skips the scan.
//
// A Factory is safe for concurrent use.
type Factory struct {
	counter atomic.Uint64
	layouts gcache.Cache
}

// NewFactory returns a Factory caching up to cacheSize layouts. A size of
// zero or less disables caching.
func NewFactory(cacheSize int) *Factory {
	f := &Factory{}
	if cacheSize > 0 {
		f.layouts = gcache.New(cacheSize).LRU().Build()
	}
	return f
}

func (f *Factory) nextName() string {
	return VariablePrefix + strconv.FormatUint(f.counter.Add(1)-1, 10)
}

// New scans query into a Template with no values bound.
func (f *Factory) New(query string) *Template {
	return &Template{layout: f.layout(query)}
}

func (f *Factory) layout(query string) *layout {
	if f.layouts == nil {
		return scan(query, f.nextName)
	}

	key := xxhash.Sum64String(query)
	if v, err := f.layouts.Get(key); err == nil {
		// a hash collision falls through to a fresh scan
		if l := v.(*layout); l.raw == query {
			return l
		}
	}
	l := scan(query, f.nextName)
	_ = f.layouts.Set(key, l)
	return l
}

// CachedLayouts reports how many layouts are currently cached.
func (f *Factory) CachedLayouts() int {
	if f.layouts == nil {
		return 0
	}
	return f.layouts.Len(false)
}
