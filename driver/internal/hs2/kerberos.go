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

//go:build kerberos

package hs2

import (
	"github.com/beltran/gosasl"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

const defaultKerberosService = "impala"

type gssapiMechanism struct {
	client *gosasl.Client
}

func newKerberosMechanism(cfg *Config) (saslMechanism, error) {
	service := cfg.Kerberos.ServiceName
	if service == "" {
		service = defaultKerberosService
	}
	host := cfg.Kerberos.FQDN
	if host == "" {
		host = cfg.Host
	}
	mech, err := gosasl.NewGSSAPIMechanism(service)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, err, "cannot initialise GSSAPI for service '%s'", service)
	}
	return &gssapiMechanism{client: gosasl.NewSaslClient(host, mech)}, nil
}

func (m *gssapiMechanism) Name() string { return "GSSAPI" }

func (m *gssapiMechanism) Start() ([]byte, error) { return m.client.Start() }

func (m *gssapiMechanism) Step(challenge []byte) ([]byte, error) { return m.client.Step(challenge) }

func (m *gssapiMechanism) Complete() bool { return m.client.Complete() }

func (m *gssapiMechanism) Wrap(out []byte) ([]byte, error) { return m.client.Encode(out) }

func (m *gssapiMechanism) Unwrap(in []byte) ([]byte, error) { return m.client.Decode(in) }
