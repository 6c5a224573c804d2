package health

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		subs     []Status
		expected string
	}{
		{"empty", nil, stateHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, stateHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, stateDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, stateUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := Aggregate("controller", tt.subs)
			assert.Equal(t, tt.expected, status.Status)
			assert.Equal(t, tt.expected == stateHealthy, status.Healthy)
			assert.Len(t, status.SubStatuses, len(tt.subs))
		})
	}
}

func TestAggregate_CopiesSubStatuses(t *testing.T) {
	subs := []Status{NewHealthy("a", "")}
	status := Aggregate("controller", subs)

	subs[0] = NewUnhealthy("a", "")
	assert.True(t, status.SubStatuses[0].IsHealthy())
}

func TestWithSubStatus(t *testing.T) {
	base := NewHealthy("controller", "")
	withOne := base.WithSubStatus(NewHealthy("a", ""))
	withTwo := withOne.WithSubStatus(NewDegraded("b", ""))

	assert.Empty(t, base.SubStatuses)
	assert.Len(t, withOne.SubStatuses, 1)
	require.Len(t, withTwo.SubStatuses, 2)
	assert.True(t, withTwo.SubStatuses[1].IsDegraded())
}

func TestFromError(t *testing.T) {
	assert.True(t, FromError("store", nil).IsHealthy())

	status := FromError("store", fmt.Errorf("dial nats://admin@10.0.0.5:4222 failed: token=abc123"))
	assert.True(t, status.IsUnhealthy())
	assert.NotContains(t, status.Message, "10.0.0.5")
	assert.NotContains(t, status.Message, "abc123")
	assert.Contains(t, status.Message, "[URL]")
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
		absent   string
	}{
		{"path", "open /etc/carrot2/descriptors/x.json: denied", "[PATH]", "/etc/carrot2"},
		{"ip and port", "connect 192.168.1.10:8080 refused", "[IP]", "192.168.1.10"},
		{"password", "auth failed password=hunter2", "[REDACTED]", "hunter2"},
		{"plain", "component not found", "component not found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeErrorMessage(tt.input)
			assert.Contains(t, got, tt.contains)
			if tt.absent != "" {
				assert.NotContains(t, got, tt.absent)
			}
		})
	}
	assert.Empty(t, sanitizeErrorMessage(""))
}
