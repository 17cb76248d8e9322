//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracesEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "custom-trace:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "generic:4317")
	assert.Equal(t, "custom-trace:4317", tracesEndpoint(protocolGRPC))

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	assert.Equal(t, "generic:4317", tracesEndpoint(protocolGRPC))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	assert.Equal(t, "localhost:4317", tracesEndpoint(protocolGRPC))
	assert.Equal(t, "localhost:4318", tracesEndpoint(protocolHTTP))
}

func TestParseEndpointURL(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		endpoint  string
		urlPath   string
		wantError bool
	}{
		{"with scheme and path", "http://localhost:3000/api/public/otel", "localhost:3000", "/api/public/otel", false},
		{"without scheme", "collector:4318/otlp/v1/traces", "collector:4318", "/otlp/v1/traces", false},
		{"no path implies slash", "example.com", "example.com", "/", false},
		{"no host error", "http:///missing-host", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			endpoint, path, err := parseEndpointURL(tc.in)
			if tc.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.endpoint, endpoint)
			assert.Equal(t, tc.urlPath, path)
		})
	}
}

func TestStartUnsupportedProtocol(t *testing.T) {
	_, err := Start(context.Background(), WithProtocol("carrier-pigeon"))
	require.Error(t, err)
}

func TestStartHTTP(t *testing.T) {
	origProvider, origTracer := TracerProvider, Tracer
	t.Cleanup(func() {
		TracerProvider = origProvider
		Tracer = origTracer
	})

	clean, err := Start(context.Background(),
		WithProtocol(protocolHTTP),
		WithEndpointURL("http://localhost:4318/custom/path"),
		WithHeaders(map[string]string{"X-Test": "yes"}),
	)
	require.NoError(t, err)
	require.NotNil(t, clean)
	_, span := Tracer.Start(context.Background(), SpanRun)
	span.End()
	// No collector is listening during tests.
	_ = clean()
}

func TestSetProvider(t *testing.T) {
	origProvider, origTracer := TracerProvider, Tracer
	t.Cleanup(func() {
		TracerProvider = origProvider
		Tracer = origTracer
	})

	rec := tracetest.NewSpanRecorder()
	SetProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	_, span := Tracer.Start(context.Background(), SpanBlock)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, SpanBlock, ended[0].Name())
	assert.Equal(t, InstrumentName, ended[0].InstrumentationScope().Name)
}
