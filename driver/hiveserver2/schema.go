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

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/engine"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/hs2"
)

// Field metadata keys set on every result field.
const (
	MetadataKeyTypeName = "HIVESERVER2:type_name"
	MetadataKeyComment  = "HIVESERVER2:comment"
)

var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond}

func arrowTypeOf(t hs2.TypeID) (arrow.DataType, error) {
	switch t {
	case hs2.TypeBoolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case hs2.TypeTinyInt:
		return arrow.PrimitiveTypes.Int8, nil
	case hs2.TypeSmallInt:
		return arrow.PrimitiveTypes.Int16, nil
	case hs2.TypeInt:
		return arrow.PrimitiveTypes.Int32, nil
	case hs2.TypeBigInt:
		return arrow.PrimitiveTypes.Int64, nil
	case hs2.TypeFloat, hs2.TypeDouble:
		return arrow.PrimitiveTypes.Float64, nil
	case hs2.TypeDecimal, hs2.TypeString, hs2.TypeVarchar, hs2.TypeChar:
		return arrow.BinaryTypes.String, nil
	case hs2.TypeTimestamp:
		return timestampType, nil
	case hs2.TypeDate:
		return arrow.FixedWidthTypes.Date32, nil
	case hs2.TypeBinary:
		return arrow.BinaryTypes.Binary, nil
	}
	return nil, errs.New(errs.KindUnsupportedOperation, "column type %s cannot be returned as Arrow data", t)
}

func schemaFromColumns(cols []hs2.ColumnDesc) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		dt, err := arrowTypeOf(col.Type)
		if err != nil {
			return nil, errs.Wrap(errs.KindOf(err), err, "column '%s'", col.Name)
		}
		keys := []string{MetadataKeyTypeName}
		values := []string{col.Type.String()}
		if col.Comment != "" {
			keys = append(keys, MetadataKeyComment)
			values = append(values, col.Comment)
		}
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     dt,
			Nullable: true,
			Metadata: arrow.NewMetadata(keys, values),
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

// describeSchema runs st once and maps its result columns. The run is
// reused by the statement's next Execute.
func describeSchema(ctx context.Context, st *engine.Statement) (*arrow.Schema, error) {
	n, err := st.PrepareForDescribe(ctx)
	if err != nil {
		return nil, err
	}
	for i := 1; i <= n; i++ {
		if _, _, err := st.DescribeColumn(ctx, i); err != nil {
			return nil, err
		}
	}
	cols, err := st.Describe(ctx)
	if err != nil {
		return nil, err
	}
	return schemaFromColumns(cols)
}
