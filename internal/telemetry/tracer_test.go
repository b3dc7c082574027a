// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ServiceName: "test-service", ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording(), "disabled telemetry installs a noop tracer")
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "test-service", ExporterType: "invalid"})
	require.Error(t, err)
	assert.Equal(t, `unsupported exporter type "invalid" (grpc or http)`, err.Error())
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1.0, want: "AlwaysOnSampler"},
		{rate: 2.0, want: "AlwaysOnSampler"},
		{rate: 0.0, want: "AlwaysOffSampler"},
		{rate: 0.5, want: "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rootSampler(tt.rate).Description())
	}
}

func TestProviderWithExporter_RecordsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	provider, err := NewProviderWithExporter(context.Background(),
		Config{Enabled: true, ServiceName: "streamreaper", SamplingRate: 1}, sdktrace.WithSyncer(exp))
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = NewProvider(context.Background(), Config{}) })

	_, span := Tracer("test").Start(context.Background(), "reaper.sweep")
	span.SetAttributes(SweepStartAttributes("sweep-1", 10*time.Minute, 100)...)
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "reaper.sweep", spans[0].Name)

	got := map[string]interface{}{}
	for _, kv := range spans[0].Attributes {
		got[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "sweep-1", got[SweepIDKey])
	assert.Equal(t, int64(600000), got[SweepMaxAgeKey])

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_ShutdownNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &Provider{tp: nil}
	assert.NoError(t, provider.Shutdown(ctx))

	var nilProvider *Provider
	assert.NoError(t, nilProvider.Shutdown(ctx))
}

func TestNewExporter_EndpointForms(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []Config{
		{ExporterType: "grpc", Endpoint: "localhost:4317"},
		{ExporterType: "grpc", Endpoint: "https://collector.example:4317"},
		{ExporterType: "http", Endpoint: "localhost:4318"},
		{ExporterType: "http", Endpoint: "http://localhost:4318"},
	} {
		exp, err := newExporter(ctx, cfg)
		require.NoError(t, err, "%+v", cfg)
		require.NoError(t, exp.Shutdown(ctx))
	}
}
