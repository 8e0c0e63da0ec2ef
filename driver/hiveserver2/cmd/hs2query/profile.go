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
	"fmt"
	"maps"
	"os"
	"strconv"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/hs2adbc/adbc-hiveserver2/driver/hiveserver2"
	"gopkg.in/yaml.v3"
)

// ProfileFile is a yaml file of named connection profiles.
type ProfileFile struct {
	CurrentProfile string             `yaml:"current-profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile describes one HiveServer2 service. Field names follow the
// connection string keys.
type Profile struct {
	URI                 string `yaml:"uri,omitempty"`
	Host                string `yaml:"host,omitempty"`
	Port                int    `yaml:"port,omitempty"`
	Database            string `yaml:"database,omitempty"`
	User                string `yaml:"user,omitempty"`
	UID                 string `yaml:"uid,omitempty"`
	PWD                 string `yaml:"pwd,omitempty"`
	AuthMech            *int   `yaml:"authmech,omitempty"`
	SSL                 bool   `yaml:"ssl,omitempty"`
	TrustedCerts        string `yaml:"trustedcerts,omitempty"`
	KrbRealm            string `yaml:"krbrealm,omitempty"`
	KrbFQDN             string `yaml:"krbfqdn,omitempty"`
	KrbServiceName      string `yaml:"krbservicename,omitempty"`
	ConnectionTimeout   int    `yaml:"connection-timeout,omitempty"`
	RowsFetchedPerBlock int    `yaml:"rowsfetchedperblock,omitempty"`

	PollInterval            string `yaml:"poll-interval,omitempty"`
	AffectedRowsFromProfile bool   `yaml:"affected-rows-from-profile,omitempty"`

	// Options are passed to the driver verbatim.
	Options map[string]string `yaml:"options,omitempty"`
}

// LoadProfile reads path and returns the named profile, or the file's
// current profile when name is empty.
func LoadProfile(path, name string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profiles: %w", err)
	}
	var f ProfileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Profile{}, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	if name == "" {
		name = f.CurrentProfile
	}
	p, ok := f.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found in %s", name, path)
	}
	return p, nil
}

// DriverOptions converts p into database options.
func (p Profile) DriverOptions() map[string]string {
	opts := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			opts[key] = value
		}
	}
	setInt := func(key string, value int) {
		if value != 0 {
			opts[key] = strconv.Itoa(value)
		}
	}

	set(adbc.OptionKeyURI, p.URI)
	set(hiveserver2.OptionStringHost, p.Host)
	setInt(hiveserver2.OptionIntPort, p.Port)
	set(hiveserver2.OptionStringDatabase, p.Database)
	set(hiveserver2.OptionStringUser, p.User)
	set(adbc.OptionKeyUsername, p.UID)
	set(adbc.OptionKeyPassword, p.PWD)
	if p.AuthMech != nil {
		opts[hiveserver2.OptionIntAuthMech] = strconv.Itoa(*p.AuthMech)
	}
	if p.SSL {
		opts[hiveserver2.OptionBoolSSL] = adbc.OptionValueEnabled
	}
	set(hiveserver2.OptionStringTrustedCerts, p.TrustedCerts)
	set(hiveserver2.OptionStringKrbRealm, p.KrbRealm)
	set(hiveserver2.OptionStringKrbFQDN, p.KrbFQDN)
	set(hiveserver2.OptionStringKrbServiceName, p.KrbServiceName)
	setInt(hiveserver2.OptionIntConnectionTimeout, p.ConnectionTimeout)
	setInt(hiveserver2.OptionIntRowsFetchedPerBlock, p.RowsFetchedPerBlock)
	set(hiveserver2.OptionStringPollInterval, p.PollInterval)
	if p.AffectedRowsFromProfile {
		opts[hiveserver2.OptionBoolAffectedRowsFromProfile] = "true"
	}
	maps.Copy(opts, p.Options)
	return opts
}
