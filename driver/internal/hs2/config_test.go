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

package hs2_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionStringDefaults(t *testing.T) {
	cfg, err := hs2.ParseConnectionString("host=localhost, port=21050")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 21050, cfg.Port)
	assert.Equal(t, "user", cfg.User)
	assert.Equal(t, "", cfg.Database)
	assert.Equal(t, time.Duration(0), cfg.ConnectTimeout)
	assert.Equal(t, hs2.ProtocolV7, cfg.ProtocolVersion)
	assert.Equal(t, 10000, cfg.RowsFetchedPerBlock)
	assert.Nil(t, cfg.TLS)
	assert.Equal(t, hs2.AuthNone, cfg.Auth)
	assert.Equal(t, "localhost:21050", cfg.Address())
}

func TestParseConnectionStringAllKeys(t *testing.T) {
	cfg, err := hs2.ParseConnectionString(
		"HOST = db.example.com ; Port=10000;user=etl;database=sales;connection-timeout=5000;" +
			"protocol-version=5;RowsFetchedPerBlock=250;;")
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", cfg.Host)
	assert.Equal(t, 10000, cfg.Port)
	assert.Equal(t, "etl", cfg.User)
	assert.Equal(t, "sales", cfg.Database)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, hs2.ProtocolV6, cfg.ProtocolVersion)
	assert.Equal(t, 250, cfg.RowsFetchedPerBlock)
}

func TestParseConnectionStringErrors(t *testing.T) {
	tests := []struct {
		name   string
		conn   string
		reason hs2.Reason
		key    string
	}{
		{"no equals", "host=localhost, port", hs2.ReasonMalformedPair, ""},
		{"two equals", "host=a=b, port=1", hs2.ReasonMalformedPair, ""},
		{"missing host", "port=21050", hs2.ReasonMissingKey, hs2.KeyHost},
		{"missing port", "host=localhost", hs2.ReasonMissingKey, hs2.KeyPort},
		{"port not a number", "host=localhost, port=abc", hs2.ReasonMalformedValue, hs2.KeyPort},
		{"port too large", "host=localhost, port=65536", hs2.ReasonOutOfRange, hs2.KeyPort},
		{"port negative", "host=localhost, port=-1", hs2.ReasonOutOfRange, hs2.KeyPort},
		{"bad timeout", "host=h, port=1, connection-timeout=soon", hs2.ReasonMalformedValue, hs2.KeyConnectionTimeout},
		{"negative timeout", "host=h, port=1, connection-timeout=-5", hs2.ReasonOutOfRange, hs2.KeyConnectionTimeout},
		{"bad protocol", "host=h, port=1, protocol-version=x", hs2.ReasonMalformedValue, hs2.KeyProtocolVersion},
		{"unsupported protocol", "host=h, port=1, protocol-version=4", hs2.ReasonUnsupported, hs2.KeyProtocolVersion},
		{"bad block size", "host=h, port=1, rowsfetchedperblock=many", hs2.ReasonMalformedValue, hs2.KeyRowsFetchedPerBlock},
		{"zero block size", "host=h, port=1, rowsfetchedperblock=0", hs2.ReasonOutOfRange, hs2.KeyRowsFetchedPerBlock},
		{"bad authmech", "host=h, port=1, authmech=kerberos", hs2.ReasonMalformedValue, hs2.KeyAuthMech},
		{"authmech out of range", "host=h, port=1, authmech=3", hs2.ReasonOutOfRange, hs2.KeyAuthMech},
		{"bad usekeytab", "host=h, port=1, authmech=1, usekeytab=2", hs2.ReasonMalformedValue, hs2.KeyUseKeytab},
		{"bad min_tls", "host=h, port=1, ssl=1, min_tls=2.0", hs2.ReasonUnsupported, hs2.KeyMinTLS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hs2.ParseConnectionString(tt.conn)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrConnectionString)
			assert.Equal(t, errs.KindConnectionString, errs.KindOf(err))

			var csErr *hs2.ConnectionStringError
			require.ErrorAs(t, err, &csErr)
			assert.Equal(t, tt.reason, csErr.Reason)
			assert.Equal(t, tt.key, csErr.Key)
		})
	}
}

func TestParseConnectionStringTLS(t *testing.T) {
	cfg, err := hs2.ParseConnectionString("host=h;port=1;ssl=0;min_tls=9")
	require.NoError(t, err)
	assert.Nil(t, cfg.TLS, "tls keys are ignored unless ssl=1")

	cfg, err = hs2.ParseConnectionString("host=h;port=1;ssl=1;min_tls=1.3;allowselfsignedservercert=1")
	require.NoError(t, err)
	require.NotNil(t, cfg.TLS)
	assert.Equal(t, "1.3", cfg.TLS.MinVersion)
	assert.True(t, cfg.TLS.AllowSelfSigned)
	assert.False(t, cfg.TLS.AllowHostnameMismatch)

	tlsCfg, err := cfg.TLS.ClientConfig("h")
	require.NoError(t, err)
	assert.True(t, tlsCfg.InsecureSkipVerify)
	assert.Equal(t, "h", tlsCfg.ServerName)
}

func TestTLSTrustedCerts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	cfg, err := hs2.ParseConnectionString("host=h;port=1;ssl=1;trustedcerts=" + path)
	require.NoError(t, err)
	_, err = cfg.TLS.ClientConfig("h")
	assert.ErrorIs(t, err, errs.ErrConnection)

	cfg.TLS.TrustedCerts = filepath.Join(t.TempDir(), "missing.pem")
	_, err = cfg.TLS.ClientConfig("h")
	assert.ErrorIs(t, err, errs.ErrConnection)
}

func TestParseConnectionStringAuth(t *testing.T) {
	cfg, err := hs2.ParseConnectionString("host=h;port=1;authmech=2;uid=alice;pwd=secret")
	require.NoError(t, err)
	assert.Equal(t, hs2.AuthSimple, cfg.Auth)
	assert.Equal(t, "alice", cfg.UID)
	assert.Equal(t, "secret", cfg.Password)
	assert.NotContains(t, cfg.String(), "secret")

	base := "host=h;port=1;authmech=1;krbrealm=EXAMPLE.COM;krbfqdn=h.example.com;krbservicename=impala;" +
		"uid=alice@EXAMPLE.COM;defaultkeytabfile=/etc/alice.keytab;pwd=secret"

	cfg, err = hs2.ParseConnectionString(base + ";usekeytab=1")
	require.NoError(t, err)
	assert.Equal(t, hs2.AuthKerberos, cfg.Auth)
	assert.Equal(t, "EXAMPLE.COM", cfg.Kerberos.Realm)
	assert.Equal(t, "h.example.com", cfg.Kerberos.FQDN)
	assert.Equal(t, "impala", cfg.Kerberos.ServiceName)
	assert.Equal(t, "/etc/alice.keytab", cfg.Kerberos.KeytabFile)
	assert.Empty(t, cfg.Password)

	cfg, err = hs2.ParseConnectionString(base + ";usekeytab=0")
	require.NoError(t, err)
	assert.Empty(t, cfg.Kerberos.KeytabFile)
	assert.Equal(t, "secret", cfg.Password)

	cfg, err = hs2.ParseConnectionString(base)
	require.NoError(t, err)
	assert.Equal(t, "/etc/alice.keytab", cfg.Kerberos.KeytabFile)
	assert.Equal(t, "secret", cfg.Password)
}

func TestParseParamsOverrides(t *testing.T) {
	params, err := hs2.ParseParams("host=a;port=1")
	require.NoError(t, err)
	params[hs2.KeyPort] = "2"
	cfg, err := hs2.NewConfig(params)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Port)
}

func TestConnectionStringErrorHidesPassword(t *testing.T) {
	err := &hs2.ConnectionStringError{Reason: hs2.ReasonMalformedValue, Key: hs2.KeyPWD, Value: "hunter2"}
	assert.NotContains(t, err.Error(), "hunter2")
	assert.Contains(t, err.Error(), "pwd")
}
