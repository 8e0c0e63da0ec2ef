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

// Package driverbase holds the parts of an ADBC driver that do not depend
// on the database behind it: option plumbing, driver info and GetInfo,
// logger and tracer setup, and the connection state machine.
//
// A driver embeds DriverImplBase, DatabaseImplBase, ConnectionImplBase and
// StatementImplBase in its own types and wraps them with NewDatabase,
// NewConnection and NewStatement, which route the standard options before
// the driver sees them.
package driverbase

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const modulePath = "github.com/hs2adbc/adbc-hiveserver2"

// buildVersions reports the versions of this module and of arrow-go the
// running binary was built with. Either is empty when unknown.
var buildVersions = sync.OnceValues(func() (module, arrow string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	if info.Main.Path == modulePath && info.Main.Version != "" && info.Main.Version != "(devel)" {
		module = info.Main.Version
		for _, s := range info.Settings {
			if s.Key == "vcs.modified" && s.Value == "true" {
				module += "-dev"
			}
		}
	}
	for _, dep := range info.Deps {
		switch {
		case dep.Path == modulePath:
			module = dep.Version
		case strings.HasPrefix(dep.Path, "github.com/apache/arrow-go/"):
			arrow = dep.Version
		}
	}
	return module, arrow
})

// Driver is implemented by drivers built on this package.
type Driver interface {
	adbc.Driver
	adbc.DriverWithContext
}

// DriverImplBase is embedded by driver implementations.
type DriverImplBase struct {
	Alloc       memory.Allocator
	ErrorHelper ErrorHelper
	DriverInfo  *DriverInfo
}

// NewDriverImplBase returns a base using info for error messages and
// GetInfo, allocating from alloc (the default allocator when nil). The
// build versions are recorded in info.
func NewDriverImplBase(info *DriverInfo, alloc memory.Allocator) DriverImplBase {
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	module, arrow := buildVersions()
	for code, version := range map[adbc.InfoCode]string{
		adbc.InfoDriverVersion:      module,
		adbc.InfoDriverArrowVersion: arrow,
	} {
		if version == "" {
			continue
		}
		if err := info.RegisterInfoCode(code, version); err != nil {
			panic(err)
		}
	}
	return DriverImplBase{
		Alloc:       alloc,
		ErrorHelper: ErrorHelper{DriverName: info.GetName()},
		DriverInfo:  info,
	}
}

// NewDatabaseImplBase shares the allocator, error helper and driver info of
// the driver and sets up tracing from the environment.
func (base *DriverImplBase) NewDatabaseImplBase(ctx context.Context) (DatabaseImplBase, error) {
	db := DatabaseImplBase{
		optionStubs: optionStubs{scope: scopeDatabase, helper: base.ErrorHelper},
		Alloc:       base.Alloc,
		ErrorHelper: base.ErrorHelper,
		DriverInfo:  base.DriverInfo,
		Logger:      nilLogger(),
		Tracer:      nilTracer(),
	}
	err := db.InitTracing(ctx, base.DriverInfo.GetName(), base.DriverInfo.driverVersion())
	return db, err
}
