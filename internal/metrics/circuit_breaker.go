// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker state values exported by streamreaper_circuit_breaker_state.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamreaper_circuit_breaker_state",
		Help: "Stop transport circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"component"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamreaper_circuit_breaker_trips_total",
		Help: "Transitions of a circuit breaker into the open state",
	}, []string{"component", "reason"})
)

// SetCircuitBreakerState exports state ("closed", "half-open" or "open") for
// component. Unknown states are exported as open.
func SetCircuitBreakerState(component, state string) {
	v := BreakerOpen
	switch state {
	case "closed":
		v = BreakerClosed
	case "half-open":
		v = BreakerHalfOpen
	}
	circuitBreakerState.WithLabelValues(component).Set(float64(v))
}

// RecordCircuitBreakerTrip counts one transition to open.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(component, reason).Inc()
}
