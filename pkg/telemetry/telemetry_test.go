package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestIsEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"0", false},
		{"false", false},
		{"1", true},
		{"true", true},
		{"yes", false},
	}

	for _, tt := range tests {
		t.Run("value_"+tt.value, func(t *testing.T) {
			t.Setenv(EnvTelemetry, tt.value)
			assert.Equal(t, tt.want, IsEnabled())
		})
	}
}

func TestInit_Disabled(t *testing.T) {
	t.Setenv(EnvTelemetry, "")

	shutdown, err := Init("harvest-test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, span := Start(context.Background(), "noop", attribute.String("k", "v"))
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_EnabledWritesSpansAndMetrics(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)
	t.Setenv(EnvTelemetry, "1")

	shutdown, err := Init("harvest-test")
	require.NoError(t, err)

	_, span := Start(context.Background(), "repository")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	NewRunMetrics().RepositoryCounted(context.Background(), "widgets", 4)

	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(filepath.Join(state, "harvest", "telemetry.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "repository")

	data, err = os.ReadFile(filepath.Join(state, "harvest", "metrics.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "harvest_commits_counted_total")

	// leave a noop provider behind for other tests
	t.Setenv(EnvTelemetry, "")
	_, err = Init("harvest-test")
	require.NoError(t, err)
}
