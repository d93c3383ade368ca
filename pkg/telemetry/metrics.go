// pkg/telemetry/metrics.go

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// RunMetrics counts the work of extraction and clone runs. Init installs the
// exporting meter provider when HARVEST_TELEMETRY is on.
type RunMetrics struct {
	commitsCounted metric.Int64Counter
	recordsWritten metric.Int64Counter
	reposPruned    metric.Int64Counter
	reposFailed    metric.Int64Counter
	clones         metric.Int64Counter
	revisionsMined metric.Int64Counter
	chunksWritten  metric.Int64Counter
	repoDuration   metric.Float64Histogram
}

// NewRunMetrics creates the harvest instruments on the global meter provider.
func NewRunMetrics() *RunMetrics {
	return NewRunMetricsWith(otel.GetMeterProvider())
}

// NewRunMetricsWith creates the harvest instruments on provider.
func NewRunMetricsWith(provider metric.MeterProvider) *RunMetrics {
	meter := provider.Meter("harvest")

	return &RunMetrics{
		commitsCounted: counter(meter, "harvest_commits_counted_total", "Simple commits found in the counting pass"),
		recordsWritten: counter(meter, "harvest_records_written_total", "Records written to the output file"),
		reposPruned:    counter(meter, "harvest_repositories_pruned_total", "Repositories dropped in the counting pass"),
		reposFailed:    counter(meter, "harvest_repositories_failed_total", "Repositories abandoned in the extraction pass"),
		clones:         counter(meter, "harvest_clones_total", "Clone attempts by outcome"),
		revisionsMined: counter(meter, "harvest_revisions_mined_total", "Revisions read by the chunks command by outcome"),
		chunksWritten:  counter(meter, "harvest_chunks_written_total", "Chunks written to the chunks output file"),
		repoDuration:   histogram(meter, "harvest_repository_duration_seconds", "Time spent extracting one repository"),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		c, _ = noop.Meter{}.Int64Counter(name)
	}
	return c
}

func histogram(meter metric.Meter, name, desc string) metric.Float64Histogram {
	h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil {
		h, _ = noop.Meter{}.Float64Histogram(name)
	}
	return h
}

// RepositoryCounted records the simple commits of one repository.
func (m *RunMetrics) RepositoryCounted(ctx context.Context, repo string, commits int) {
	m.commitsCounted.Add(ctx, int64(commits), metric.WithAttributes(attribute.String("repo", repo)))
}

// RepositoryPruned records a repository dropped in the counting pass.
func (m *RunMetrics) RepositoryPruned(ctx context.Context, repo string) {
	m.reposPruned.Add(ctx, 1, metric.WithAttributes(attribute.String("repo", repo)))
}

// RepositoryExtracted records the outcome of the extraction pass for one repository.
func (m *RunMetrics) RepositoryExtracted(ctx context.Context, repo string, records int, elapsed time.Duration, failed bool) {
	attrs := metric.WithAttributes(attribute.String("repo", repo))
	m.recordsWritten.Add(ctx, int64(records), attrs)
	m.repoDuration.Record(ctx, elapsed.Seconds(), attrs)
	if failed {
		m.reposFailed.Add(ctx, 1, attrs)
	}
}

// CloneFinished records one clone attempt.
func (m *RunMetrics) CloneFinished(ctx context.Context, ok bool) {
	outcome := "cloned"
	if !ok {
		outcome = "failed"
	}
	m.clones.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RevisionMined records one revision processed by the chunks command.
func (m *RunMetrics) RevisionMined(ctx context.Context, chunks int, ok bool) {
	outcome := "mined"
	if !ok {
		outcome = "skipped"
	}
	m.revisionsMined.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.chunksWritten.Add(ctx, int64(chunks))
}
