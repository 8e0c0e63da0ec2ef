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

package hs2

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

// Connection string keys.
const (
	KeyHost                  = "host"
	KeyPort                  = "port"
	KeyUser                  = "user"
	KeyDatabase              = "database"
	KeyConnectionTimeout     = "connection-timeout"
	KeyProtocolVersion       = "protocol-version"
	KeyRowsFetchedPerBlock   = "rowsfetchedperblock"
	KeySSL                   = "ssl"
	KeyMinTLS                = "min_tls"
	KeyAllowSelfSigned       = "allowselfsignedservercert"
	KeyTrustedCerts          = "trustedcerts"
	KeyAllowHostnameMismatch = "allowhostnamecnmismatch"
	KeyAuthMech              = "authmech"
	KeyKrbRealm              = "krbrealm"
	KeyKrbFQDN               = "krbfqdn"
	KeyKrbServiceName        = "krbservicename"
	KeyUID                   = "uid"
	KeyPWD                   = "pwd"
	KeyUseKeytab             = "usekeytab"
	KeyDefaultKeytabFile     = "defaultkeytabfile"
)

const (
	DefaultUser                = "user"
	DefaultRowsFetchedPerBlock = 10000
	DefaultProtocolVersion     = ProtocolV7
)

// Protocol versions accepted by protocol-version, in TProtocolVersion
// numbering.
const (
	ProtocolV6 = 5
	ProtocolV7 = 6
)

// AuthMechanism selects how the transport authenticates.
type AuthMechanism int

const (
	AuthNone AuthMechanism = iota
	AuthKerberos
	AuthSimple
)

func (a AuthMechanism) String() string {
	switch a {
	case AuthKerberos:
		return "kerberos"
	case AuthSimple:
		return "simple"
	}
	return "none"
}

// Reason says what was wrong with a connection string.
type Reason int

const (
	ReasonMalformedPair Reason = iota
	ReasonMissingKey
	ReasonMalformedValue
	ReasonOutOfRange
	ReasonUnsupported
)

func (r Reason) String() string {
	return [...]string{"malformed pair", "missing key", "malformed value", "out of range", "unsupported"}[r]
}

// ConnectionStringError reports an invalid connection string. It is raised
// before any network I/O.
type ConnectionStringError struct {
	Reason Reason
	Key    string
	Value  string
	Detail string
}

func (e *ConnectionStringError) Error() string {
	var b strings.Builder
	b.WriteString("ConnectionStringError: invalid connection string (")
	b.WriteString(e.Reason.String())
	if e.Key != "" {
		fmt.Fprintf(&b, ", key='%s'", e.Key)
	}
	if e.Value != "" && e.Key != KeyPWD {
		fmt.Fprintf(&b, ", value='%s'", e.Value)
	}
	b.WriteString(")")
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ConnectionStringError) Is(target error) bool {
	return target == errs.ErrConnectionString
}

func csErr(reason Reason, key, value, detail string) error {
	return &ConnectionStringError{Reason: reason, Key: key, Value: value, Detail: detail}
}

// TLSConfig holds the ssl settings of a connection string.
type TLSConfig struct {
	MinVersion            string
	AllowSelfSigned       bool
	TrustedCerts          string
	AllowHostnameMismatch bool
}

var tlsVersions = map[string]uint16{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// ClientConfig builds the crypto/tls client configuration for serverName.
func (t *TLSConfig) ClientConfig(serverName string) (*tls.Config, error) {
	cfg := &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}
	if t.MinVersion != "" {
		cfg.MinVersion = tlsVersions[t.MinVersion]
	}

	if t.TrustedCerts != "" {
		pem, err := os.ReadFile(t.TrustedCerts)
		if err != nil {
			return nil, errs.Wrap(errs.KindConnection, err, "cannot read trusted certificates")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errs.New(errs.KindConnection, "no certificates found in '%s'", t.TrustedCerts)
		}
		cfg.RootCAs = pool
	}

	switch {
	case t.AllowSelfSigned:
		cfg.InsecureSkipVerify = true
	case t.AllowHostnameMismatch:
		// verify the chain but not the name
		roots := cfg.RootCAs
		cfg.InsecureSkipVerify = true
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return errs.New(errs.KindConnection, "server sent no certificate")
			}
			opts := x509.VerifyOptions{Roots: roots, Intermediates: x509.NewCertPool()}
			for _, c := range cs.PeerCertificates[1:] {
				opts.Intermediates.AddCert(c)
			}
			_, err := cs.PeerCertificates[0].Verify(opts)
			return err
		}
	}
	return cfg, nil
}

// KerberosConfig holds authmech=1 settings. Password and KeytabFile are
// filtered by usekeytab before they reach this struct.
type KerberosConfig struct {
	Realm       string
	FQDN        string
	ServiceName string
	KeytabFile  string
}

// Config is a parsed connection string.
type Config struct {
	Host                string
	Port                int
	User                string
	Database            string
	ConnectTimeout      time.Duration
	ProtocolVersion     int
	RowsFetchedPerBlock int

	// TLS is nil unless ssl=1.
	TLS *TLSConfig

	Auth     AuthMechanism
	UID      string
	Password string
	Kerberos KerberosConfig
}

// Address is host:port.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String renders the configuration as a connection string with the
// password removed.
func (c *Config) String() string {
	parts := []string{
		KeyHost + "=" + c.Host,
		KeyPort + "=" + strconv.Itoa(c.Port),
		KeyUser + "=" + c.User,
	}
	if c.Database != "" {
		parts = append(parts, KeyDatabase+"="+c.Database)
	}
	parts = append(parts,
		KeyConnectionTimeout+"="+strconv.FormatInt(c.ConnectTimeout.Milliseconds(), 10),
		KeyProtocolVersion+"="+strconv.Itoa(c.ProtocolVersion),
		KeyRowsFetchedPerBlock+"="+strconv.Itoa(c.RowsFetchedPerBlock))
	if c.TLS != nil {
		parts = append(parts, KeySSL+"=1")
	}
	if c.Auth != AuthNone {
		parts = append(parts, KeyAuthMech+"="+strconv.Itoa(int(c.Auth)))
		if c.UID != "" {
			parts = append(parts, KeyUID+"="+c.UID)
		}
	}
	return strings.Join(parts, ";")
}

// ParseParams splits a connection string into lowercased keys and trimmed
// values. Pairs are separated by ',' or ';'; empty segments are skipped.
func ParseParams(s string) (map[string]string, error) {
	params := make(map[string]string)
	segments := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		kv := strings.Split(seg, "=")
		if len(kv) != 2 {
			return nil, csErr(ReasonMalformedPair, "", strings.TrimSpace(seg), "expected key=value")
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		if key == "" {
			return nil, csErr(ReasonMalformedPair, "", strings.TrimSpace(seg), "empty key")
		}
		params[key] = strings.TrimSpace(kv[1])
	}
	return params, nil
}

// ParseConnectionString parses and validates s.
func ParseConnectionString(s string) (*Config, error) {
	params, err := ParseParams(s)
	if err != nil {
		return nil, err
	}
	return NewConfig(params)
}

func intParam(params map[string]string, key string) (v int, ok bool, err error) {
	raw, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	v, err = strconv.Atoi(raw)
	if err != nil {
		return 0, true, csErr(ReasonMalformedValue, key, raw, "expected an integer")
	}
	return v, true, nil
}

func flagParam(params map[string]string, key string) bool {
	v := params[key]
	return v == "1" || strings.EqualFold(v, "true")
}

// NewConfig validates params produced by ParseParams (or assembled key by
// key) into a Config.
func NewConfig(params map[string]string) (*Config, error) {
	cfg := &Config{
		User:                DefaultUser,
		ProtocolVersion:     DefaultProtocolVersion,
		RowsFetchedPerBlock: DefaultRowsFetchedPerBlock,
	}

	host, ok := params[KeyHost]
	if !ok {
		return nil, csErr(ReasonMissingKey, KeyHost, "", "the required parameter 'host' is missing")
	}
	if host == "" {
		return nil, csErr(ReasonMalformedValue, KeyHost, "", "host must not be empty")
	}
	cfg.Host = host

	if user, ok := params[KeyUser]; ok {
		cfg.User = user
	}
	cfg.Database = params[KeyDatabase]

	port, ok, err := intParam(params, KeyPort)
	switch {
	case err != nil:
		return nil, err
	case !ok:
		return nil, csErr(ReasonMissingKey, KeyPort, "", "the required parameter 'port' is missing")
	case port < 0 || port > 65535:
		return nil, csErr(ReasonOutOfRange, KeyPort, params[KeyPort], "port must be between 0 and 65535")
	}
	cfg.Port = port

	timeout, ok, err := intParam(params, KeyConnectionTimeout)
	if err != nil {
		return nil, err
	}
	if ok {
		if timeout < 0 {
			return nil, csErr(ReasonOutOfRange, KeyConnectionTimeout, params[KeyConnectionTimeout], "the connection timeout must not be negative")
		}
		cfg.ConnectTimeout = time.Duration(timeout) * time.Millisecond
	}

	version, ok, err := intParam(params, KeyProtocolVersion)
	if err != nil {
		return nil, err
	}
	if ok {
		if version != ProtocolV6 && version != ProtocolV7 {
			return nil, csErr(ReasonUnsupported, KeyProtocolVersion, params[KeyProtocolVersion], "unsupported protocol version")
		}
		cfg.ProtocolVersion = version
	}

	rows, ok, err := intParam(params, KeyRowsFetchedPerBlock)
	if err != nil {
		return nil, err
	}
	if ok {
		if rows <= 0 {
			return nil, csErr(ReasonOutOfRange, KeyRowsFetchedPerBlock, params[KeyRowsFetchedPerBlock], "rows fetched per block must be positive")
		}
		cfg.RowsFetchedPerBlock = rows
	}

	if params[KeySSL] == "1" {
		t := &TLSConfig{
			MinVersion:            params[KeyMinTLS],
			AllowSelfSigned:       flagParam(params, KeyAllowSelfSigned),
			TrustedCerts:          params[KeyTrustedCerts],
			AllowHostnameMismatch: flagParam(params, KeyAllowHostnameMismatch),
		}
		if _, known := tlsVersions[t.MinVersion]; t.MinVersion != "" && !known {
			return nil, csErr(ReasonUnsupported, KeyMinTLS, t.MinVersion, "expected one of 1.0, 1.1, 1.2, 1.3")
		}
		cfg.TLS = t
	}

	if err := parseAuth(params, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseAuth(params map[string]string, cfg *Config) error {
	mech, ok, err := intParam(params, KeyAuthMech)
	if err != nil || !ok {
		return err
	}
	if mech < 0 || mech > 2 {
		return csErr(ReasonOutOfRange, KeyAuthMech, params[KeyAuthMech], "authmech must be 1 (Kerberos) or 2 (Simple)")
	}
	cfg.Auth = AuthMechanism(mech)
	cfg.UID = params[KeyUID]

	switch cfg.Auth {
	case AuthSimple:
		cfg.Password = params[KeyPWD]
	case AuthKerberos:
		cfg.Kerberos = KerberosConfig{
			Realm:       params[KeyKrbRealm],
			FQDN:        params[KeyKrbFQDN],
			ServiceName: params[KeyKrbServiceName],
		}
		useKeytab, set, err := intParam(params, KeyUseKeytab)
		if err != nil || (set && useKeytab != 0 && useKeytab != 1) {
			return csErr(ReasonMalformedValue, KeyUseKeytab, params[KeyUseKeytab], "usekeytab expects 1 (true) or 0 (false)")
		}
		if !set || useKeytab == 1 {
			cfg.Kerberos.KeytabFile = params[KeyDefaultKeytabFile]
		}
		if !set || useKeytab == 0 {
			cfg.Password = params[KeyPWD]
		}
	}
	return nil
}

// Keys lists the recognised connection string keys in sorted order.
func Keys() []string {
	keys := []string{
		KeyHost, KeyPort, KeyUser, KeyDatabase, KeyConnectionTimeout, KeyProtocolVersion,
		KeyRowsFetchedPerBlock, KeySSL, KeyMinTLS, KeyAllowSelfSigned, KeyTrustedCerts,
		KeyAllowHostnameMismatch, KeyAuthMech, KeyKrbRealm, KeyKrbFQDN, KeyKrbServiceName,
		KeyUID, KeyPWD, KeyUseKeytab, KeyDefaultKeytabFile,
	}
	sort.Strings(keys)
	return keys
}
