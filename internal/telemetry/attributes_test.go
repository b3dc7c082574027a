// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSweepResultAttributes(t *testing.T) {
	attrs := SweepResultAttributes("early_exit", 5, 3)
	assert.Len(t, attrs, 3)
	assert.Equal(t, SweepTerminationKey, string(attrs[0].Key))
	assert.Equal(t, "early_exit", attrs[0].Value.AsString())
	assert.Equal(t, int64(3), attrs[2].Value.AsInt64())
}

func TestBroadcastAttributes(t *testing.T) {
	assert.Nil(t, BroadcastAttributes(""))
	attrs := BroadcastAttributes("cam-1")
	assert.Len(t, attrs, 1)
	assert.Equal(t, StreamIDKey, string(attrs[0].Key))
}
