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

package driverbase

import (
	"fmt"
	"maps"
	"slices"

	"github.com/apache/arrow-adbc/go/adbc"
	"go.opentelemetry.io/otel/attribute"
)

const (
	UnknownVersion               = "(unknown or development build)"
	DefaultInfoDriverADBCVersion = adbc.AdbcVersion1_1_0
)

// standardInfoTypes is the value type of every standard info code.
var standardInfoTypes = map[adbc.InfoCode]adbc.InfoValueTypeCode{
	adbc.InfoVendorName:                adbc.InfoValueStringType,
	adbc.InfoVendorVersion:             adbc.InfoValueStringType,
	adbc.InfoVendorArrowVersion:        adbc.InfoValueStringType,
	adbc.InfoVendorSql:                 adbc.InfoValueBooleanType,
	adbc.InfoVendorSubstrait:           adbc.InfoValueBooleanType,
	adbc.InfoVendorSubstraitMinVersion: adbc.InfoValueStringType,
	adbc.InfoVendorSubstraitMaxVersion: adbc.InfoValueStringType,
	adbc.InfoDriverName:                adbc.InfoValueStringType,
	adbc.InfoDriverVersion:             adbc.InfoValueStringType,
	adbc.InfoDriverArrowVersion:        adbc.InfoValueStringType,
	adbc.InfoDriverADBCVersion:         adbc.InfoValueInt64Type,
}

// zeroInfoValues name the Go type of each union member in errors.
var zeroInfoValues = map[adbc.InfoValueTypeCode]any{
	adbc.InfoValueStringType:  "",
	adbc.InfoValueInt64Type:   int64(0),
	adbc.InfoValueBooleanType: false,
}

// infoTypeOf maps a Go value onto the GetInfo union member holding it.
func infoTypeOf(value any) (adbc.InfoValueTypeCode, bool) {
	switch value.(type) {
	case string:
		return adbc.InfoValueStringType, true
	case int64:
		return adbc.InfoValueInt64Type, true
	case bool:
		return adbc.InfoValueBooleanType, true
	}
	return 0, false
}

const otelInfoPrefix attribute.Key = "apache.arrow.adbc.info."

// spanInfoCodes are the info codes copied onto spans, with their keys.
var spanInfoCodes = map[adbc.InfoCode]attribute.Key{
	adbc.InfoVendorName:         otelInfoPrefix + "vendor.name",
	adbc.InfoVendorVersion:      otelInfoPrefix + "vendor.version",
	adbc.InfoVendorArrowVersion: otelInfoPrefix + "vendor.arrow.version",
	adbc.InfoVendorSql:          otelInfoPrefix + "vendor.sql",
	adbc.InfoDriverName:         otelInfoPrefix + "driver.name",
	adbc.InfoDriverVersion:      otelInfoPrefix + "driver.version",
	adbc.InfoDriverArrowVersion: otelInfoPrefix + "driver.arrow.version",
	adbc.InfoDriverADBCVersion:  otelInfoPrefix + "driver.adbc.version",
}

// DefaultDriverInfo returns the info every driver reports. name is used
// for the vendor name, the driver name and error prefixes.
func DefaultDriverInfo(name string) *DriverInfo {
	info := map[adbc.InfoCode]any{
		adbc.InfoVendorName:        name,
		adbc.InfoDriverName:        fmt.Sprintf("ADBC %s Driver - Go", name),
		adbc.InfoDriverADBCVersion: DefaultInfoDriverADBCVersion,
	}
	for _, code := range []adbc.InfoCode{
		adbc.InfoVendorVersion, adbc.InfoVendorArrowVersion,
		adbc.InfoDriverVersion, adbc.InfoDriverArrowVersion,
	} {
		info[code] = UnknownVersion
	}
	return &DriverInfo{name: name, info: info}
}

// DriverInfo holds the values returned by GetInfo. A code is supported
// once it has a value.
type DriverInfo struct {
	name string
	info map[adbc.InfoCode]any
}

func (di *DriverInfo) GetName() string { return di.name }

// InfoSupportedCodes returns the registered codes in ascending order.
func (di *DriverInfo) InfoSupportedCodes() []adbc.InfoCode {
	return slices.Sorted(maps.Keys(di.info))
}

// RegisterInfoCode sets the value of code. Standard codes are type
// checked; vendor codes accept anything.
func (di *DriverInfo) RegisterInfoCode(code adbc.InfoCode, value any) error {
	if want, standard := standardInfoTypes[code]; standard {
		if got, ok := infoTypeOf(value); !ok || got != want {
			return fmt.Errorf("%s: expected info_value %v to be of type %T but found %T",
				code, value, zeroInfoValues[want], value)
		}
	}
	di.info[code] = value
	return nil
}

func (di *DriverInfo) GetInfoForInfoCode(code adbc.InfoCode) (any, bool) {
	val, ok := di.info[code]
	return val, ok
}

func (di *DriverInfo) driverVersion() string {
	if v, ok := di.info[adbc.InfoDriverVersion].(string); ok {
		return v
	}
	return "unknown"
}

// spanAttributes renders the span-worthy codes as attributes.
func (di *DriverInfo) spanAttributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, code := range di.InfoSupportedCodes() {
		key, ok := spanInfoCodes[code]
		if !ok {
			continue
		}
		switch v := di.info[code].(type) {
		case string:
			attrs = append(attrs, key.String(v))
		case bool:
			attrs = append(attrs, key.Bool(v))
		case int64:
			attrs = append(attrs, key.Int64(v))
		}
	}
	return attrs
}
