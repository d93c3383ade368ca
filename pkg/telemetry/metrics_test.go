package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumBy(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)

	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRunMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m := NewRunMetricsWith(provider)
	ctx := context.Background()

	m.RepositoryCounted(ctx, "widgets", 12)
	m.RepositoryPruned(ctx, "broken")
	m.RepositoryExtracted(ctx, "widgets", 3, time.Second, false)
	m.RepositoryExtracted(ctx, "widgets", 2, time.Second, false)
	m.RepositoryExtracted(ctx, "flaky", 0, time.Millisecond, true)
	m.CloneFinished(ctx, true)
	m.CloneFinished(ctx, true)
	m.CloneFinished(ctx, false)
	m.RevisionMined(ctx, 4, true)
	m.RevisionMined(ctx, 0, false)

	got := collectMetrics(t, reader)

	assert.Equal(t, int64(12), sumBy(t, got["harvest_commits_counted_total"], "repo", "widgets"))
	assert.Equal(t, int64(1), sumBy(t, got["harvest_repositories_pruned_total"], "repo", "broken"))
	assert.Equal(t, int64(5), sumBy(t, got["harvest_records_written_total"], "repo", "widgets"))
	assert.Equal(t, int64(1), sumBy(t, got["harvest_repositories_failed_total"], "repo", "flaky"))
	assert.Equal(t, int64(0), sumBy(t, got["harvest_repositories_failed_total"], "repo", "widgets"))
	assert.Equal(t, int64(2), sumBy(t, got["harvest_clones_total"], "outcome", "cloned"))
	assert.Equal(t, int64(1), sumBy(t, got["harvest_clones_total"], "outcome", "failed"))

	assert.Equal(t, int64(1), sumBy(t, got["harvest_revisions_mined_total"], "outcome", "mined"))
	assert.Equal(t, int64(1), sumBy(t, got["harvest_revisions_mined_total"], "outcome", "skipped"))

	chunks, ok := got["harvest_chunks_written_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	var written int64
	for _, dp := range chunks.DataPoints {
		written += dp.Value
	}
	assert.Equal(t, int64(4), written)

	hist, ok := got["harvest_repository_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}
