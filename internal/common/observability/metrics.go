package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records submission metrics through an OpenTelemetry meter
// exported on the default Prometheus registry.
type Observability struct {
	meterProvider     *metric.MeterProvider
	submissionCounter otelmetric.Int64Counter
	scoringDuration   otelmetric.Float64Histogram
}

// Logger is the subset of logger.Logger used during setup.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

// New builds the meter provider. On exporter failure it returns a recorder
// whose methods are no-ops.
func New(serviceName string, log Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		if log != nil {
			log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
		}
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o := NewWithProvider(provider, serviceName)
	o.meterProvider = provider
	return o
}

// NewWithProvider builds instruments on an existing provider.
func NewWithProvider(provider otelmetric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	submissionCounter, _ := meter.Int64Counter(
		"intake.submissions",
		otelmetric.WithDescription("Number of submit attempts by outcome"),
	)

	scoringDuration, _ := meter.Float64Histogram(
		"intake.scoring.duration",
		otelmetric.WithDescription("Scoring service call duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		submissionCounter: submissionCounter,
		scoringDuration:   scoringDuration,
	}
}

func (o *Observability) RecordSubmission(ctx context.Context, outcome string) {
	if o == nil || o.submissionCounter == nil {
		return
	}
	o.submissionCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) RecordScoringDuration(ctx context.Context, duration time.Duration, status string) {
	if o == nil || o.scoringDuration == nil {
		return
	}
	o.scoringDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
