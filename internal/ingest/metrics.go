package ingest

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/lucasmontegu/outly/internal/ingest"

// ProviderMetrics instruments upstream feed fetches.
type ProviderMetrics struct {
	fetchDuration metric.Float64Histogram
	fetchTotal    metric.Int64Counter
}

// NewProviderMetrics registers the fetch instruments on the global meter.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)

	fetchDuration, err := meter.Float64Histogram(
		"provider.fetch.duration",
		metric.WithDescription("Duration of provider fetches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fetchTotal, err := meter.Int64Counter(
		"provider.fetch.total",
		metric.WithDescription("Total number of provider fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		fetchDuration: fetchDuration,
		fetchTotal:    fetchTotal,
	}, nil
}

// RecordFetch records one provider call. Safe on a nil receiver so the
// ingestor never has to branch on whether metrics are configured.
func (m *ProviderMetrics) RecordFetch(ctx context.Context, provider string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("provider.name", provider)}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.fetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
