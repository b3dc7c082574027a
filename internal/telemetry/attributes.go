// SPDX-License-Identifier: MIT

package telemetry

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Sweep attributes
	SweepIDKey          = "reaper.sweep_id"
	SweepMaxAgeKey      = "reaper.max_age_ms"
	SweepPageSizeKey    = "reaper.page_size"
	SweepTerminationKey = "reaper.termination"
	SweepScannedKey     = "reaper.scanned"
	SweepExpiredKey     = "reaper.expired"

	// Broadcast attributes
	StreamIDKey = "broadcast.stream_id"

	// Control attributes
	ControlBackendKey = "control.backend"
)

// SweepStartAttributes describes a sweep when its span starts.
func SweepStartAttributes(sweepID string, maxAge time.Duration, pageSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SweepIDKey, sweepID),
		attribute.Int64(SweepMaxAgeKey, maxAge.Milliseconds()),
		attribute.Int(SweepPageSizeKey, pageSize),
	}
}

// SweepResultAttributes describes how a sweep ended.
func SweepResultAttributes(termination string, scanned, expired int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SweepTerminationKey, termination),
		attribute.Int(SweepScannedKey, scanned),
		attribute.Int(SweepExpiredKey, expired),
	}
}

// BroadcastAttributes identifies a broadcast on a span.
func BroadcastAttributes(streamID string) []attribute.KeyValue {
	if streamID == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String(StreamIDKey, streamID)}
}
