//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package metric records counters and durations for script runs. The
// instruments are noops until InitMeterProvider is called with a real
// provider, for example one returned by NewMeterProvider.
package metric

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// MeterName is the instrumentation scope of every instrument.
const MeterName = "trpc.pagescript.go"

// Metric names.
const (
	MetricRuns          = "pagescript.runs"
	MetricRunDuration   = "pagescript.run.duration"
	MetricBlocks        = "pagescript.blocks"
	MetricBlockDuration = "pagescript.block.duration"
)

// Attribute keys.
const (
	KeyInvocation = "pagescript.invocation_mode"
	KeyState      = "pagescript.state"
	KeyMode       = "pagescript.mode"
	KeyFailed     = "pagescript.failed"
)

const (
	protocolGRPC = "grpc"
	protocolHTTP = "http"
)

type instruments struct {
	mp            metric.MeterProvider
	runs          metric.Int64Counter
	blocks        metric.Int64Counter
	runDuration   *dynamicHistogram
	blockDuration *dynamicHistogram
}

var (
	mu      sync.RWMutex
	current *instruments
)

func init() {
	if err := InitMeterProvider(noop.NewMeterProvider()); err != nil {
		panic(err)
	}
}

// InitMeterProvider creates the instruments on mp and makes them current.
func InitMeterProvider(mp metric.MeterProvider) error {
	if mp == nil {
		return fmt.Errorf("meter provider is nil")
	}
	meter := mp.Meter(MeterName)
	in := &instruments{mp: mp}
	var err error
	if in.runs, err = meter.Int64Counter(MetricRuns,
		metric.WithDescription("Number of script invocations"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("create metric %s: %w", MetricRuns, err)
	}
	if in.blocks, err = meter.Int64Counter(MetricBlocks,
		metric.WithDescription("Number of executed code blocks"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("create metric %s: %w", MetricBlocks, err)
	}
	if in.runDuration, err = newDynamicHistogram(mp, MetricRunDuration,
		metric.WithDescription("Duration of a script invocation"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("create metric %s: %w", MetricRunDuration, err)
	}
	if in.blockDuration, err = newDynamicHistogram(mp, MetricBlockDuration,
		metric.WithDescription("Duration of one code block"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("create metric %s: %w", MetricBlockDuration, err)
	}
	mu.Lock()
	current = in
	mu.Unlock()
	return nil
}

// GetMeterProvider returns the provider the instruments were created on.
func GetMeterProvider() metric.MeterProvider {
	return load().mp
}

// SetHistogramBuckets replaces the bucket boundaries of a duration metric.
// Data recorded so far is not migrated.
func SetHistogramBuckets(metricName string, boundaries []float64) error {
	in := load()
	switch metricName {
	case MetricRunDuration:
		return in.runDuration.SetBuckets(boundaries)
	case MetricBlockDuration:
		return in.blockDuration.SetBuckets(boundaries)
	default:
		return fmt.Errorf("unknown histogram metric: %s", metricName)
	}
}

// RecordRun counts one invocation and its duration.
func RecordRun(ctx context.Context, invocation, state string, d time.Duration, failed bool) {
	in := load()
	attrs := metric.WithAttributes(
		attribute.String(KeyInvocation, invocation),
		attribute.String(KeyState, state),
		attribute.Bool(KeyFailed, failed),
	)
	in.runs.Add(ctx, 1, attrs)
	in.runDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordBlock counts one executed block and its duration.
func RecordBlock(ctx context.Context, mode string, d time.Duration, failed bool) {
	in := load()
	attrs := metric.WithAttributes(
		attribute.String(KeyMode, mode),
		attribute.Bool(KeyFailed, failed),
	)
	in.blocks.Add(ctx, 1, attrs)
	in.blockDuration.Record(ctx, d.Seconds(), attrs)
}

func load() *instruments {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Option configures NewMeterProvider.
type Option func(*options)

type options struct {
	endpoint    string
	protocol    string
	serviceName string
	headers     map[string]string
}

// WithEndpoint sets the collector host:port. OTEL_EXPORTER_OTLP_METRICS_ENDPOINT
// and OTEL_EXPORTER_OTLP_ENDPOINT are used when it is not given.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithProtocol selects "grpc" (default) or "http".
func WithProtocol(protocol string) Option {
	return func(o *options) { o.protocol = protocol }
}

// WithHeaders adds headers sent with every export request.
func WithHeaders(h map[string]string) Option {
	return func(o *options) { o.headers = h }
}

// WithServiceName overrides the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// NewMeterProvider creates a provider that periodically exports over OTLP.
// Callers own the provider and must Shutdown it.
func NewMeterProvider(ctx context.Context, opts ...Option) (*sdkmetric.MeterProvider, error) {
	o := &options{protocol: protocolGRPC, serviceName: "pagescript"}
	for _, opt := range opts {
		opt(o)
	}
	if o.endpoint == "" {
		o.endpoint = metricsEndpoint(o.protocol)
	}
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(o.serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch o.protocol {
	case protocolHTTP:
		httpOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(o.endpoint),
			otlpmetrichttp.WithInsecure(),
		}
		if len(o.headers) > 0 {
			httpOpts = append(httpOpts, otlpmetrichttp.WithHeaders(o.headers))
		}
		exporter, err = otlpmetrichttp.New(ctx, httpOpts...)
	case protocolGRPC:
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(o.endpoint),
			otlpmetricgrpc.WithInsecure(),
		}
		if len(o.headers) > 0 {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithHeaders(o.headers))
		}
		exporter, err = otlpmetricgrpc.New(ctx, grpcOpts...)
	default:
		return nil, fmt.Errorf("unsupported protocol %q", o.protocol)
	}
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

func metricsEndpoint(protocol string) string {
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); ep != "" {
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
