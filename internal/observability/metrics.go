// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the factory instruments. A nil *Metrics records nothing.
type Metrics struct {
	registry *prom.Registry
	provider *metric.MeterProvider

	jobs        api.Int64Counter
	jobDuration api.Float64Histogram
	generations api.Int64Counter
}

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus
// exporter on a private registry. There is no HTTP endpoint; WriteTextfile
// flushes the registry for node_exporter's textfile collector.
func InitMetrics() (*Metrics, error) {
	registry := prom.NewRegistry()

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("spritefactory")
	m := &Metrics{registry: registry, provider: provider}

	if m.jobs, err = meter.Int64Counter("factory_jobs",
		api.WithDescription("Factory runs by task and outcome.")); err != nil {
		return nil, fmt.Errorf("failed to create jobs counter: %w", err)
	}
	if m.jobDuration, err = meter.Float64Histogram("factory_job_duration",
		api.WithUnit("s"),
		api.WithDescription("Wall time of a factory run.")); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	if m.generations, err = meter.Int64Counter("generation_requests",
		api.WithDescription("txt2img requests by outcome.")); err != nil {
		return nil, fmt.Errorf("failed to create generation counter: %w", err)
	}

	return m, nil
}

// RecordJob counts one factory run.
func (m *Metrics) RecordJob(ctx context.Context, task, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := api.WithAttributes(
		attribute.String("task", task),
		attribute.String("outcome", outcome),
	)
	m.jobs.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, elapsed.Seconds(), api.WithAttributes(attribute.String("task", task)))
}

// RecordGeneration counts one generation request.
func (m *Metrics) RecordGeneration(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.generations.Add(ctx, 1, api.WithAttributes(attribute.String("outcome", outcome)))
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prom.Gatherer {
	return m.registry
}

// WriteTextfile writes the current values to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prom.WriteToTextfile(path, m.Gatherer()); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
