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

// Package hiveserver2 is an ADBC driver for Impala and Hive servers
// speaking the HiveServer2 protocol.
//
// Bound parameters are rendered into the query text as literals and each
// bound row runs as its own statement. Results are read in windows of
// rows and returned as Arrow records.
package hiveserver2

import (
	"context"
	"runtime/debug"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/driverbase"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
)

const (
	// A whole connection string, e.g. "host=impala;port=21050;authmech=2".
	// Keys set individually take precedence over the ones given here.
	OptionStringURI = adbc.OptionKeyURI

	OptionStringUsername = adbc.OptionKeyUsername
	OptionStringPassword = adbc.OptionKeyPassword

	OptionStringHost                = "adbc.hiveserver2.host"
	OptionIntPort                   = "adbc.hiveserver2.port"
	OptionStringDatabase            = "adbc.hiveserver2.database"
	OptionStringUser                = "adbc.hiveserver2.user"
	OptionIntConnectionTimeout      = "adbc.hiveserver2.connection_timeout"
	OptionIntProtocolVersion        = "adbc.hiveserver2.protocol_version"
	OptionIntRowsFetchedPerBlock    = "adbc.hiveserver2.rows_fetched_per_block"
	OptionBoolSSL                   = "adbc.hiveserver2.ssl"
	OptionStringMinTLS              = "adbc.hiveserver2.min_tls"
	OptionStringTrustedCerts        = "adbc.hiveserver2.trusted_certs"
	OptionBoolAllowSelfSigned       = "adbc.hiveserver2.allow_self_signed_server_cert"
	OptionBoolAllowHostnameMismatch = "adbc.hiveserver2.allow_hostname_cn_mismatch"

	// 0 (none), 1 (Kerberos) or 2 (user name and password).
	OptionIntAuthMech          = "adbc.hiveserver2.auth_mech"
	OptionStringKrbRealm       = "adbc.hiveserver2.krb_realm"
	OptionStringKrbFQDN        = "adbc.hiveserver2.krb_fqdn"
	OptionStringKrbServiceName = "adbc.hiveserver2.krb_service_name"
	OptionBoolUseKeytab        = "adbc.hiveserver2.use_keytab"
	OptionStringKeytabFile     = "adbc.hiveserver2.keytab_file"

	// Wait between operation state requests, as a Go duration.
	OptionStringPollInterval = "adbc.hiveserver2.poll_interval"
	// Read affected row counts from each operation's runtime profile.
	OptionBoolAffectedRowsFromProfile = "adbc.hiveserver2.affected_rows_from_profile"
	// Number of scanned query layouts kept per database; 0 disables the
	// cache.
	OptionIntTemplateCacheSize = "adbc.hiveserver2.template_cache_size"

	// Rows per record returned by ExecuteQuery. Defaults to the
	// connection's rows fetched per block.
	OptionIntStatementBatchRows = "adbc.hiveserver2.statement.batch_rows"

	DefaultTemplateCacheSize = 64
)

// connectionKeys maps option keys onto connection string keys.
var connectionKeys = map[string]string{
	OptionStringUsername:            hs2.KeyUID,
	OptionStringPassword:            hs2.KeyPWD,
	OptionStringHost:                hs2.KeyHost,
	OptionIntPort:                   hs2.KeyPort,
	OptionStringDatabase:            hs2.KeyDatabase,
	OptionStringUser:                hs2.KeyUser,
	OptionIntConnectionTimeout:      hs2.KeyConnectionTimeout,
	OptionIntProtocolVersion:        hs2.KeyProtocolVersion,
	OptionIntRowsFetchedPerBlock:    hs2.KeyRowsFetchedPerBlock,
	OptionBoolSSL:                   hs2.KeySSL,
	OptionStringMinTLS:              hs2.KeyMinTLS,
	OptionStringTrustedCerts:        hs2.KeyTrustedCerts,
	OptionBoolAllowSelfSigned:       hs2.KeyAllowSelfSigned,
	OptionBoolAllowHostnameMismatch: hs2.KeyAllowHostnameMismatch,
	OptionIntAuthMech:               hs2.KeyAuthMech,
	OptionStringKrbRealm:            hs2.KeyKrbRealm,
	OptionStringKrbFQDN:             hs2.KeyKrbFQDN,
	OptionStringKrbServiceName:      hs2.KeyKrbServiceName,
	OptionBoolUseKeytab:             hs2.KeyUseKeytab,
	OptionStringKeytabFile:          hs2.KeyDefaultKeytabFile,
}

var infoVendorVersion string

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/beltran/gohive" {
				infoVendorVersion = dep.Version
			}
		}
	}
}

type driverImpl struct {
	driverbase.DriverImplBase

	dialer hs2.Dialer
}

var _ driverbase.Driver = (*driverImpl)(nil)

// NewDriver creates a new HiveServer2 driver using the given Arrow
// allocator.
func NewDriver(alloc memory.Allocator) adbc.Driver {
	return NewDriverWithDialer(alloc, nil)
}

// NewDriverWithDialer is NewDriver opening sessions through dialer. A nil
// dialer speaks thrift over TCP.
func NewDriverWithDialer(alloc memory.Allocator, dialer hs2.Dialer) adbc.Driver {
	info := driverbase.DefaultDriverInfo("HiveServer2")
	if infoVendorVersion != "" {
		if err := info.RegisterInfoCode(adbc.InfoVendorVersion, infoVendorVersion); err != nil {
			panic(err)
		}
	}
	if err := info.RegisterInfoCode(adbc.InfoVendorSql, true); err != nil {
		panic(err)
	}
	if err := info.RegisterInfoCode(adbc.InfoVendorSubstrait, false); err != nil {
		panic(err)
	}
	return &driverImpl{
		DriverImplBase: driverbase.NewDriverImplBase(info, alloc),
		dialer:         dialer,
	}
}

func (d *driverImpl) NewDatabase(opts map[string]string) (adbc.Database, error) {
	return d.NewDatabaseWithContext(context.Background(), opts)
}

func (d *driverImpl) NewDatabaseWithContext(ctx context.Context, opts map[string]string) (adbc.Database, error) {
	base, err := d.NewDatabaseImplBase(ctx)
	if err != nil {
		return nil, err
	}
	db := &databaseImpl{
		DatabaseImplBase:  base,
		dialer:            d.dialer,
		uriParams:         map[string]string{},
		params:            map[string]string{},
		pollInterval:      hs2.DefaultPollInterval,
		templateCacheSize: DefaultTemplateCacheSize,
	}
	wrapped := driverbase.NewDatabase(db)
	if err := wrapped.SetOptions(opts); err != nil {
		return nil, err
	}
	return wrapped, nil
}
