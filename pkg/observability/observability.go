// Package observability wires OpenTelemetry tracing and metrics for the
// mission engine. Telemetry is off by default — a scripted demo must never
// depend on a collector being reachable — and when disabled every call is a
// cheap no-op against the global providers.
package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the telemetry providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
}

// DefaultConfig returns demo-safe defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "vigil-mission-engine",
		ServiceVersion: "1.2.0",
		Enabled:        false,
	}
}

// Provider owns the SDK providers for one process.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	log            *slog.Logger
}

// NewProvider builds and registers the global providers. With Enabled=false
// it returns a provider whose Tracer/Meter hand out otel's no-op globals.
func NewProvider(cfg *Config, log *slog.Logger) (*Provider, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &Provider{log: log}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, err
	}

	p.tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(p.tracerProvider)

	p.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(p.meterProvider)

	log.Info("telemetry enabled", "service", cfg.ServiceName)
	return p, nil
}

// Tracer returns a named tracer from the active provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns a named meter from the active provider.
func (p *Provider) Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if p.meterProvider != nil {
		return p.meterProvider.Shutdown(ctx)
	}
	return nil
}

// MissionMetrics are the engine's instruments.
type MissionMetrics struct {
	transitions  metric.Int64Counter
	receipts     metric.Int64Counter
	tickDuration metric.Float64Histogram
}

// NewMissionMetrics registers the engine instruments on a meter.
func NewMissionMetrics(meter metric.Meter) (*MissionMetrics, error) {
	transitions, err := meter.Int64Counter("vigil.phase.transitions",
		metric.WithDescription("Phase transitions fired"))
	if err != nil {
		return nil, err
	}
	receipts, err := meter.Int64Counter("vigil.uplink.receipts",
		metric.WithDescription("Receipts appended to the mission ledger"))
	if err != nil {
		return nil, err
	}
	tickDuration, err := meter.Float64Histogram("vigil.engine.tick.duration",
		metric.WithDescription("Engine tick processing time"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &MissionMetrics{
		transitions:  transitions,
		receipts:     receipts,
		tickDuration: tickDuration,
	}, nil
}

// RecordTransition counts one phase transition.
func (m *MissionMetrics) RecordTransition(ctx context.Context, phase string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", phase)))
}

// RecordReceipt counts one receipt append.
func (m *MissionMetrics) RecordReceipt(ctx context.Context) {
	if m == nil {
		return
	}
	m.receipts.Add(ctx, 1)
}

// RecordTick records one tick's processing time.
func (m *MissionMetrics) RecordTick(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Record(ctx, float64(d)/float64(time.Millisecond))
}
