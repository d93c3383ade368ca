// pkg/telemetry/telemetry.go
package telemetry

import (
	"context"
	"os"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/xdg"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// EnvTelemetry switches span export on when set to a true value.
const EnvTelemetry = "HARVEST_TELEMETRY"

var tracer trace.Tracer = noop.NewTracerProvider().Tracer("harvest")

// Init configures OpenTelemetry; call this early in main().
// The returned function flushes and closes the exporters.
func Init(service string) (func(context.Context) error, error) {
	if !IsEnabled() {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		tracer = tp.Tracer(service)
		return func(context.Context) error { return nil }, nil
	}

	res := sdkresource.NewSchemaless(
		attribute.String("service.name", service),
		attribute.String("host.name", hostname()),
	)

	// Spans and metrics are appended as JSON lines
	spanFile, err := openStateFile("telemetry.jsonl")
	if err != nil {
		return nil, err
	}
	metricFile, err := openStateFile("metrics.jsonl")
	if err != nil {
		spanFile.Close()
		return nil, err
	}
	closeFiles := func() error {
		return multierror.Append(nil, spanFile.Close(), metricFile.Close()).ErrorOrNil()
	}

	spanExp, err := stdouttrace.New(
		stdouttrace.WithWriter(spanFile),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		closeFiles()
		return nil, cerr.Wrap(err, "failed to create span exporter")
	}
	metricExp, err := stdoutmetric.New(
		stdoutmetric.WithWriter(metricFile),
		stdoutmetric.WithoutTimestamps(),
	)
	if err != nil {
		closeFiles()
		return nil, cerr.Wrap(err, "failed to create metric exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	tracer = tp.Tracer(service)

	return func(ctx context.Context) error {
		var result *multierror.Error
		result = multierror.Append(result, tp.Shutdown(ctx), mp.Shutdown(ctx), closeFiles())
		return result.ErrorOrNil()
	}, nil
}

func openStateFile(name string) (*os.File, error) {
	path := xdg.StatePath("harvest", name)
	if err := xdg.EnsureDir(path); err != nil {
		return nil, cerr.Wrap(err, "failed to create telemetry directory")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, xdg.FilePermStandard)
	if err != nil {
		return nil, cerr.Wrapf(err, "failed to open %s", path)
	}
	return file, nil
}

// Start a telemetry span with optional attributes.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// IsEnabled reports whether HARVEST_TELEMETRY holds a true value.
func IsEnabled() bool {
	on, err := strconv.ParseBool(os.Getenv(EnvTelemetry))
	return err == nil && on
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
