// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCircuitBreakerState(t *testing.T) {
	gauge := circuitBreakerState.WithLabelValues("unit")

	SetCircuitBreakerState("unit", "open")
	assert.Equal(t, float64(BreakerOpen), testutil.ToFloat64(gauge))

	SetCircuitBreakerState("unit", "half-open")
	assert.Equal(t, float64(BreakerHalfOpen), testutil.ToFloat64(gauge))

	SetCircuitBreakerState("unit", "closed")
	assert.Equal(t, float64(BreakerClosed), testutil.ToFloat64(gauge))
}

func TestServer_ExposesMetrics(t *testing.T) {
	SetBuildInfo("test", "abc123")
	srv := NewServer(":0")

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `streamreaper_build_info{commit="abc123",version="test"} 1`))
}

func TestRecordCircuitBreakerTrip_LabelsFromGather(t *testing.T) {
	RecordCircuitBreakerTrip("gather", "threshold_exceeded")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var found *dto.Metric
	for _, mf := range families {
		if mf.GetName() != "streamreaper_circuit_breaker_trips_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["component"] == "gather" && labels["reason"] == "threshold_exceeded" {
				found = m
			}
		}
	}
	require.NotNil(t, found, "trip counter not gathered")
	assert.GreaterOrEqual(t, found.GetCounter().GetValue(), 1.0)
}
