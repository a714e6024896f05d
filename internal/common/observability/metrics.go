package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OpenTelemetry meter used by the insights pipeline.
// A zero value is safe to use and records nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	queryCounter  otelmetric.Int64Counter
	queryDuration otelmetric.Float64Histogram
}

// New exports through the prometheus registerer reg (nil means the default
// registerer) so the values show up on /metrics.
func New(serviceName string, reg promclient.Registerer) (*Observability, error) {
	opts := []prometheus.Option{}
	if reg != nil {
		opts = append(opts, prometheus.WithRegisterer(reg))
	}
	exporter, err := prometheus.New(opts...)
	if err != nil {
		return &Observability{}, err
	}

	o, err := newWithReader(serviceName, exporter)
	if err != nil {
		return &Observability{}, err
	}
	otel.SetMeterProvider(o.meterProvider)
	return o, nil
}

func newWithReader(serviceName string, reader metric.Reader) (*Observability, error) {
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	meter := provider.Meter(serviceName)

	queryCounter, err := meter.Int64Counter(
		"insights.query.count",
		otelmetric.WithDescription("Smart-chat questions answered"),
	)
	if err != nil {
		return nil, err
	}

	queryDuration, err := meter.Float64Histogram(
		"insights.query.duration",
		otelmetric.WithDescription("Time from question to answer"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider: provider,
		queryCounter:  queryCounter,
		queryDuration: queryDuration,
	}, nil
}

// RecordQuery counts one answered question and its latency.
func (o *Observability) RecordQuery(ctx context.Context, intent, resultType string, duration time.Duration) {
	if o == nil || o.queryCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("intent", intent),
		attribute.String("result_type", resultType),
	)
	o.queryCounter.Add(ctx, 1, attrs)
	o.queryDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
