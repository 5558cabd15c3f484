package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	reportCounter   otelmetric.Int64Counter
	reportDuration  otelmetric.Float64Histogram
	sectionCounter  otelmetric.Int64Counter
	sectionDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	reportCounter, _ := meter.Int64Counter(
		"reports.processed",
		otelmetric.WithDescription("Number of report jobs processed"),
	)

	reportDuration, _ := meter.Float64Histogram(
		"reports.duration",
		otelmetric.WithDescription("Full report generation duration"),
		otelmetric.WithUnit("ms"),
	)

	sectionCounter, _ := meter.Int64Counter(
		"sections.generated",
		otelmetric.WithDescription("Number of report sections generated"),
	)

	sectionDuration, _ := meter.Float64Histogram(
		"sections.duration",
		otelmetric.WithDescription("Single section generation duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		reportCounter:   reportCounter,
		reportDuration:  reportDuration,
		sectionCounter:  sectionCounter,
		sectionDuration: sectionDuration,
	}
}

func (o *Observability) RecordReportProcessed(ctx context.Context, status string) {
	if o.reportCounter != nil {
		o.reportCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordReportDuration(ctx context.Context, duration time.Duration, status string) {
	if o.reportDuration != nil {
		o.reportDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordSectionGenerated(ctx context.Context, section, outcome string) {
	if o.sectionCounter != nil {
		o.sectionCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("section", section),
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordSectionDuration(ctx context.Context, section string, duration time.Duration) {
	if o.sectionDuration != nil {
		o.sectionDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("section", section),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
