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

package hiveserver2

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/driverbase"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/engine"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/sqltemplate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultSchema = "default"

type engineOptions struct {
	bulkReadSize        int
	pollInterval        time.Duration
	affectedFromProfile bool
	templates           *sqltemplate.Factory
}

type connectionImpl struct {
	driverbase.ConnectionImplBase

	conn     *hs2.Conn
	dbSchema string
	opts     engineOptions
}

var (
	_ driverbase.CurrentNamespacer = (*connectionImpl)(nil)
	_ driverbase.TableTypeLister   = (*connectionImpl)(nil)
	_ driverbase.AutocommitSetter  = (*connectionImpl)(nil)
)

func (c *connectionImpl) newEngine() *engine.Statement {
	return engine.New(c.conn, engine.Options{
		BulkReadSize:            c.opts.bulkReadSize,
		PollInterval:            c.opts.pollInterval,
		AffectedRowsFromProfile: c.opts.affectedFromProfile,
		Templates:               c.opts.templates,
		Logger:                  c.Logger,
	})
}

// exec runs a statement that returns no rows.
func (c *connectionImpl) exec(ctx context.Context, sql string) error {
	st := c.newEngine()
	defer st.Close(ctx)
	st.Prepare(sql)
	_, err := st.Execute(ctx, 0)
	return err
}

// driverbase.CurrentNamespacer {{{

func (c *connectionImpl) GetCurrentCatalog() (string, error) {
	return "", fmt.Errorf("HiveServer2 has no catalogs")
}

func (c *connectionImpl) GetCurrentDbSchema() (string, error) {
	return c.dbSchema, nil
}

func (c *connectionImpl) SetCurrentCatalog(string) error {
	return c.ErrorHelper.Errorf(adbc.StatusNotImplemented, "HiveServer2 has no catalogs")
}

func (c *connectionImpl) SetCurrentDbSchema(value string) error {
	if err := c.exec(context.Background(), "USE "+value); err != nil {
		return errToAdbc(c.ErrorHelper, err)
	}
	c.dbSchema = value
	return nil
}

// }}}

// driverbase.TableTypeLister {{{

func (c *connectionImpl) ListTableTypes(context.Context) ([]string, error) {
	return []string{"TABLE", "VIEW"}, nil
}

// }}}

// driverbase.AutocommitSetter {{{

// SetAutocommit fails when disabling autocommit: every statement commits
// on its own.
func (c *connectionImpl) SetAutocommit(enabled bool) error {
	if enabled {
		return nil
	}
	return errToAdbc(c.ErrorHelper, c.conn.Begin())
}

// }}}

func (c *connectionImpl) Commit(context.Context) error {
	return errToAdbc(c.ErrorHelper, c.conn.Commit())
}

func (c *connectionImpl) Rollback(context.Context) error {
	return errToAdbc(c.ErrorHelper, c.conn.Rollback())
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// GetTableSchema describes an empty select over the table. The catalog is
// ignored.
func (c *connectionImpl) GetTableSchema(ctx context.Context, catalog *string, dbSchema *string, tableName string) (schema *arrow.Schema, err error) {
	schemaName := c.dbSchema
	if dbSchema != nil && *dbSchema != "" {
		schemaName = *dbSchema
	}
	query := fmt.Sprintf("SELECT * FROM %s.%s LIMIT 0", quoteIdent(schemaName), quoteIdent(tableName))

	ctx, span := c.StartSpan(ctx, "connectionImpl.GetTableSchema")
	span.SetAttributes(attribute.String("db.statement", query))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	st := c.newEngine()
	defer st.Close(ctx)
	st.Prepare(query)
	if schema, err = describeSchema(ctx, st); err != nil {
		return nil, errToAdbc(c.ErrorHelper, err)
	}
	return schema, nil
}

// NewStatement initializes a new statement object tied to this connection
func (c *connectionImpl) NewStatement() (adbc.Statement, error) {
	return newStatement(c), nil
}

func (c *connectionImpl) Close() error {
	if err := c.conn.Close(context.Background()); err != nil {
		return errToAdbc(c.ErrorHelper, err)
	}
	c.Closed = true
	return nil
}
