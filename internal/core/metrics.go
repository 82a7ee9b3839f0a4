package core

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/otterscale/kubewatch/internal/core"

// streamMetrics holds the OpenTelemetry instruments shared by every
// watch stream. Instruments come from the global MeterProvider, which
// the ops server points at the Prometheus exporter.
type streamMetrics struct {
	events     metric.Int64Counter
	restarts   metric.Int64Counter
	reconnects metric.Int64Counter
	malformed  metric.Int64Counter
}

func newStreamMetrics() *streamMetrics {
	meter := otel.Meter(meterName)
	fallback := noop.NewMeterProvider().Meter(meterName)

	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	return &streamMetrics{
		events:     counter("kubewatch.events", "Watch events delivered to consumers."),
		restarts:   counter("kubewatch.restarts", "Watch restarts that rediscovered the resource version."),
		reconnects: counter("kubewatch.reconnects", "Watch reconnects that reused the resource version after an idle timeout."),
		malformed:  counter("kubewatch.malformed_lines", "Watch lines skipped because they could not be decoded."),
	}
}

func (m *streamMetrics) eventsDelivered(ctx context.Context, n int) {
	if n > 0 {
		m.events.Add(ctx, int64(n))
	}
}

func (m *streamMetrics) restart(ctx context.Context, reason string) {
	m.restarts.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *streamMetrics) reconnect(ctx context.Context) {
	m.reconnects.Add(ctx, 1)
}

func (m *streamMetrics) malformedLine(ctx context.Context) {
	m.malformed.Add(ctx, 1)
}
