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

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newScriptCmd(a *app) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "script FILE...",
		Short: "Run the statements in each file",
		Long: "Run the ';' separated statements of each file in order on one connection. " +
			"With --parallel, several files run at once on separate connections.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			if parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1, got %d", parallel)
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			db.SetMaxOpenConns(parallel)

			results := make([]scriptResult, len(files))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(parallel)
			for i, file := range files {
				g.Go(func() error {
					var err error
					results[i], err = runScript(ctx, db, file, a.logger)
					return err
				})
			}
			err = g.Wait()

			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.statements > 0 {
					fmt.Fprintln(out, r)
				}
			}
			return err
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", 1, "number of files to run at once")
	return cmd
}

type scriptResult struct {
	file       string
	statements int
	// affected is -1 when no statement reported a count.
	affected int64
}

func (r scriptResult) String() string {
	affected := "unknown"
	if r.affected >= 0 {
		affected = fmt.Sprint(r.affected)
	}
	return fmt.Sprintf("%s: %d statements, %s rows affected", r.file, r.statements, affected)
}

func runScript(ctx context.Context, db *sql.DB, file string, logger *slog.Logger) (scriptResult, error) {
	result := scriptResult{file: file, affected: -1}
	data, err := os.ReadFile(file)
	if err != nil {
		return result, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return result, err
	}
	defer conn.Close()

	for i, stmt := range splitStatements(string(data)) {
		logger.DebugContext(ctx, "executing", "file", file, "statement", i+1)
		res, err := conn.ExecContext(ctx, stmt)
		if err != nil {
			return result, fmt.Errorf("%s: statement %d: %w", file, i+1, err)
		}
		result.statements++
		if n, err := res.RowsAffected(); err == nil && n >= 0 {
			result.affected = max(result.affected, 0) + n
		}
	}
	return result, nil
}

// splitStatements splits a script at semicolons outside quotes, dropping
// "--" comments and empty statements.
func splitStatements(script string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote byte
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(script) {
				i++
				cur.WriteByte(script[i])
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			cur.WriteByte(c)
		case c == '-' && strings.HasPrefix(script[i:], "--"):
			for i < len(script) && script[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}
