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
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/apache/arrow-adbc/go/adbc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	driverNamespace    = "apache.arrow.adbc"
	otelTracesExporter = "OTEL_TRACES_EXPORTER"
	traceParentHeader  = "traceparent"

	otlpRetryInitial = 5 * time.Second
	otlpRetryMax     = 30 * time.Second
)

var errTraceParentFormat = errors.New("Incorrect or unsupported trace parent format")

func nilLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nilTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("")
}

// InitTracing installs a tracer exporting to whatever OTEL_TRACES_EXPORTER
// names. Without the variable the global tracer provider is used.
func (base *DatabaseImplBase) InitTracing(ctx context.Context, driverName string, driverVersion string) error {
	return base.initTracing(ctx, os.Getenv(otelTracesExporter), driverName, driverVersion)
}

func (base *DatabaseImplBase) initTracing(ctx context.Context, exporterName, driverName, driverVersion string) error {
	tracerName := driverNamespace + "." + driverName

	var exporters []sdktrace.SpanExporter
	switch adbc.OptionTelemetryExporter(exporterName) {
	case "":
		base.Tracer = otel.Tracer(tracerName)
		return nil
	case adbc.TelemetryExporterNone:
		base.Tracer = nilTracer()
		return nil
	case adbc.TelemetryExporterConsole:
		exporter, err := stdouttrace.New()
		if err != nil {
			return err
		}
		exporters = append(exporters, exporter)
	case adbc.TelemetryExporterOtlp:
		var err error
		if exporters, err = otlpExporters(ctx); err != nil {
			return err
		}
	default:
		return base.ErrorHelper.Errorf(adbc.StatusInvalidArgument,
			"Unknown %s option '%s'", otelTracesExporter, exporterName)
	}

	provider, err := newTracerProvider(exporters)
	if err != nil {
		return err
	}
	if base.tracerShutdownFunc != nil {
		_ = base.tracerShutdownFunc(ctx)
	}
	base.tracerShutdownFunc = provider.Shutdown
	base.Tracer = provider.Tracer(tracerName,
		trace.WithInstrumentationVersion(driverVersion),
		trace.WithSchemaURL(semconv.SchemaURL))
	return nil
}

// otlpExporters returns a gRPC and an http/protobuf exporter, both
// configured from the standard OTEL_EXPORTER_OTLP_* variables.
func otlpExporters(ctx context.Context) ([]sdktrace.SpanExporter, error) {
	grpcExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
		Enabled:         true,
		InitialInterval: otlpRetryInitial,
		MaxInterval:     otlpRetryMax,
	}))
	if err != nil {
		return nil, err
	}
	httpExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
		Enabled:         true,
		InitialInterval: otlpRetryInitial,
		MaxInterval:     otlpRetryMax,
	}))
	if err != nil {
		return nil, err
	}
	return []sdktrace.SpanExporter{grpcExporter, httpExporter}, nil
}

func newTracerProvider(exporters []sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	service := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(driverNamespace))
	res, err := resource.Merge(resource.Default(), service)
	if errors.Is(err, resource.ErrSchemaURLConflict) {
		res, err = service, nil
	}
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, exporter := range exporters {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// withTraceParent makes the first W3C trace parent found in sources the
// remote parent of spans started from ctx. An unparsable parent leaves
// ctx unchanged.
func withTraceParent(ctx context.Context, sources ...interface{ GetTraceParent() string }) (context.Context, error) {
	for _, src := range sources {
		tp := src.GetTraceParent()
		if tp == "" {
			continue
		}
		carrier := propagation.MapCarrier{traceParentHeader: tp}
		sc := trace.SpanContextFromContext(propagation.TraceContext{}.Extract(context.Background(), carrier))
		if !sc.IsValid() {
			return ctx, errTraceParentFormat
		}
		return trace.ContextWithRemoteSpanContext(ctx, sc), nil
	}
	return ctx, nil
}
