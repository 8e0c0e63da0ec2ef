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

// hs2query runs SQL against a HiveServer2 (Hive or Impala) service through
// database/sql and the ADBC HiveServer2 driver.
//
//	hs2query -c 'host=impala.example.com;port=21050' query 'select * from t where id = ?' --arg 7
//	hs2query -f profiles.yaml -p prod script --parallel 4 load/*.sql
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hs2adbc/adbc-hiveserver2/driver/hiveserver2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDriver)
	stop()
	os.Exit(code)
}

func defaultDriver(alloc memory.Allocator) adbc.Driver {
	return hiveserver2.NewDriver(alloc)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, newDriver driverFactory) int {
	cmd := newRootCmd(newDriver)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
