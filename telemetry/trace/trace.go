//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package trace holds the process-wide tracer used by the script pipeline
// and an optional OTLP exporter setup.
package trace

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentName is the instrumentation scope of every span we emit.
const InstrumentName = "trpc.pagescript.go"

// Span names.
const (
	SpanRun         = "pagescript.run"
	SpanBlock       = "pagescript.block"
	SpanRoute       = "pagescript.route"
	SpanStoreCreate = "store.create"
)

// Attribute keys.
const (
	AttrInvocationID = "pagescript.invocation_id"
	AttrScriptPath   = "pagescript.script_path"
	AttrBlockIndex   = "pagescript.block_index"
	AttrBlockCount   = "pagescript.block_count"
	AttrMode         = "pagescript.mode"
	AttrInvocation   = "pagescript.invocation_mode"
	AttrState        = "pagescript.state"
	AttrPath         = "path"
)

var (
	// TracerProvider is the provider Tracer was obtained from.
	TracerProvider trace.TracerProvider = noop.NewTracerProvider()
	// Tracer is used by all packages; it is a noop until Start or SetProvider.
	Tracer trace.Tracer = TracerProvider.Tracer(InstrumentName)
)

// SetProvider replaces TracerProvider and Tracer.
func SetProvider(tp trace.TracerProvider) {
	TracerProvider = tp
	Tracer = tp.Tracer(InstrumentName)
}

const (
	protocolGRPC = "grpc"
	protocolHTTP = "http"
)

type options struct {
	protocol    string
	endpoint    string
	endpointURL string
	headers     map[string]string
	serviceName string
}

// Option configures Start.
type Option func(*options)

// WithProtocol selects "grpc" (default) or "http".
func WithProtocol(p string) Option {
	return func(o *options) { o.protocol = p }
}

// WithEndpoint sets the collector host:port.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithEndpointURL sets a full collector URL; it wins over WithEndpoint.
func WithEndpointURL(u string) Option {
	return func(o *options) { o.endpointURL = u }
}

// WithHeaders adds headers sent with every export request.
func WithHeaders(h map[string]string) Option {
	return func(o *options) { o.headers = h }
}

// WithServiceName overrides the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// Start installs an OTLP exporting TracerProvider and returns a cleanup
// function that flushes and shuts it down.
func Start(ctx context.Context, opts ...Option) (func() error, error) {
	o := &options{
		protocol:    protocolGRPC,
		serviceName: "pagescript",
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.endpoint == "" {
		o.endpoint = tracesEndpoint(o.protocol)
	}

	exporter, err := newExporter(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(o.serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	SetProvider(tp)
	return func() error {
		return tp.Shutdown(context.Background())
	}, nil
}

func newExporter(ctx context.Context, o *options) (*otlptrace.Exporter, error) {
	switch o.protocol {
	case protocolHTTP:
		httpOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(o.endpoint),
			otlptracehttp.WithInsecure(),
		}
		if o.endpointURL != "" {
			endpoint, path, err := parseEndpointURL(o.endpointURL)
			if err != nil {
				return nil, err
			}
			httpOpts = append(httpOpts,
				otlptracehttp.WithEndpoint(endpoint),
				otlptracehttp.WithURLPath(path))
		}
		if len(o.headers) > 0 {
			httpOpts = append(httpOpts, otlptracehttp.WithHeaders(o.headers))
		}
		return otlptracehttp.New(ctx, httpOpts...)
	case protocolGRPC:
		grpcOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(o.endpoint),
			otlptracegrpc.WithInsecure(),
		}
		if o.endpointURL != "" {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithEndpointURL(o.endpointURL))
		}
		if len(o.headers) > 0 {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithHeaders(o.headers))
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	default:
		return nil, fmt.Errorf("unsupported protocol %q", o.protocol)
	}
}

// tracesEndpoint resolves the collector endpoint from the standard OTEL
// environment variables, the traces-specific one first.
func tracesEndpoint(protocol string) string {
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); ep != "" {
		return ep
	}
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		return ep
	}
	if protocol == protocolHTTP {
		return "localhost:4318"
	}
	return "localhost:4317"
}

// parseEndpointURL splits a collector URL into host:port and path.
func parseEndpointURL(raw string) (string, string, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse endpoint url: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("endpoint url %q has no host", raw)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return u.Host, path, nil
}
