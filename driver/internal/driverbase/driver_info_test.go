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

package driverbase_test

import (
	"testing"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/driverbase"
	"github.com/stretchr/testify/require"
)

func TestDriverInfo(t *testing.T) {
	driverInfo := driverbase.DefaultDriverInfo("HiveServer2")
	require.Equal(t, "HiveServer2", driverInfo.GetName())

	require.Equal(t, []adbc.InfoCode{
		adbc.InfoVendorName,
		adbc.InfoVendorVersion,
		adbc.InfoVendorArrowVersion,
		adbc.InfoDriverName,
		adbc.InfoDriverVersion,
		adbc.InfoDriverArrowVersion,
		adbc.InfoDriverADBCVersion,
	}, driverInfo.InfoSupportedCodes())

	vendorName, ok := driverInfo.GetInfoForInfoCode(adbc.InfoVendorName)
	require.True(t, ok)
	require.Equal(t, "HiveServer2", vendorName)

	driverName, ok := driverInfo.GetInfoForInfoCode(adbc.InfoDriverName)
	require.True(t, ok)
	require.Equal(t, "ADBC HiveServer2 Driver - Go", driverName)

	adbcVersion, ok := driverInfo.GetInfoForInfoCode(adbc.InfoDriverADBCVersion)
	require.True(t, ok)
	require.Equal(t, adbc.AdbcVersion1_1_0, adbcVersion)

	require.NoError(t, driverInfo.RegisterInfoCode(adbc.InfoDriverVersion, "v1.2.3"))
	err := driverInfo.RegisterInfoCode(adbc.InfoDriverVersion, 123)
	require.Error(t, err)
	require.Equal(t, "DriverVersion: expected info_value 123 to be of type string but found int", err.Error())
	version, _ := driverInfo.GetInfoForInfoCode(adbc.InfoDriverVersion)
	require.Equal(t, "v1.2.3", version, "a rejected value must not replace the old one")

	require.NoError(t, driverInfo.RegisterInfoCode(adbc.InfoVendorSql, true))
	require.Error(t, driverInfo.RegisterInfoCode(adbc.InfoVendorSql, "yes"))

	// vendor codes are not type checked
	require.NoError(t, driverInfo.RegisterInfoCode(adbc.InfoCode(10_001), "string_value"))
	require.NoError(t, driverInfo.RegisterInfoCode(adbc.InfoCode(10_001), 123))
	require.Contains(t, driverInfo.InfoSupportedCodes(), adbc.InfoCode(10_001))

	_, ok = driverInfo.GetInfoForInfoCode(adbc.InfoCode(10_002))
	require.False(t, ok)
}
