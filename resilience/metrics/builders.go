package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CounterBuilder provides a fluent API for recording counter metrics with
// optional labels. A builder whose instrument failed to create records nothing.
type CounterBuilder struct {
	factory *MetricsFactory
	counter metric.Int64Counter
	name    string
	attrs   []attribute.KeyValue
}

// WithLabels adds labels/attributes to the counter metric.
func (c *CounterBuilder) WithLabels(labels map[string]string) *CounterBuilder {
	builder := &CounterBuilder{
		factory: c.factory,
		counter: c.counter,
		name:    c.name,
		attrs:   make([]attribute.KeyValue, 0, len(c.attrs)+len(labels)),
	}

	builder.attrs = append(builder.attrs, c.attrs...)

	for key, value := range labels {
		builder.attrs = append(builder.attrs, attribute.String(key, value))
	}

	return builder
}

// WithAttributes adds OpenTelemetry attributes to the counter metric.
func (c *CounterBuilder) WithAttributes(attrs ...attribute.KeyValue) *CounterBuilder {
	builder := &CounterBuilder{
		factory: c.factory,
		counter: c.counter,
		name:    c.name,
		attrs:   make([]attribute.KeyValue, 0, len(c.attrs)+len(attrs)),
	}

	builder.attrs = append(builder.attrs, c.attrs...)
	builder.attrs = append(builder.attrs, attrs...)

	return builder
}

// Add records the given delta.
func (c *CounterBuilder) Add(ctx context.Context, value int64) {
	if c.counter == nil {
		return
	}

	c.counter.Add(ctx, value, metric.WithAttributes(c.attrs...))
}

// AddOne records a delta of 1.
func (c *CounterBuilder) AddOne(ctx context.Context) {
	c.Add(ctx, 1)
}

// GaugeBuilder provides a fluent API for recording gauge metrics.
type GaugeBuilder struct {
	factory *MetricsFactory
	gauge   metric.Int64Gauge
	name    string
	attrs   []attribute.KeyValue
}

// WithLabels adds labels/attributes to the gauge metric.
func (g *GaugeBuilder) WithLabels(labels map[string]string) *GaugeBuilder {
	builder := &GaugeBuilder{
		factory: g.factory,
		gauge:   g.gauge,
		name:    g.name,
		attrs:   make([]attribute.KeyValue, 0, len(g.attrs)+len(labels)),
	}

	builder.attrs = append(builder.attrs, g.attrs...)

	for key, value := range labels {
		builder.attrs = append(builder.attrs, attribute.String(key, value))
	}

	return builder
}

// Set records the current value.
func (g *GaugeBuilder) Set(ctx context.Context, value int64) {
	if g.gauge == nil {
		return
	}

	g.gauge.Record(ctx, value, metric.WithAttributes(g.attrs...))
}

// HistogramBuilder provides a fluent API for recording histogram metrics.
type HistogramBuilder struct {
	factory   *MetricsFactory
	histogram metric.Int64Histogram
	name      string
	attrs     []attribute.KeyValue
}

// WithLabels adds labels/attributes to the histogram metric.
func (h *HistogramBuilder) WithLabels(labels map[string]string) *HistogramBuilder {
	builder := &HistogramBuilder{
		factory:   h.factory,
		histogram: h.histogram,
		name:      h.name,
		attrs:     make([]attribute.KeyValue, 0, len(h.attrs)+len(labels)),
	}

	builder.attrs = append(builder.attrs, h.attrs...)

	for key, value := range labels {
		builder.attrs = append(builder.attrs, attribute.String(key, value))
	}

	return builder
}

// Record records the given value.
func (h *HistogramBuilder) Record(ctx context.Context, value int64) {
	if h.histogram == nil {
		return
	}

	h.histogram.Record(ctx, value, metric.WithAttributes(h.attrs...))
}

// RecordDuration records a duration in milliseconds.
func (h *HistogramBuilder) RecordDuration(ctx context.Context, d time.Duration) {
	h.Record(ctx, d.Milliseconds())
}
