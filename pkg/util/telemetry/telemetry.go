// Package telemetry sets up OpenTelemetry meter providers.
package telemetry

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/host"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/multierr"
)

// StopMeterProvider flushes and stops a meter provider together with its
// exporter.
type StopMeterProvider func(context.Context) error

// NewMeterProvider creates a new meter provider and its stop function.
func NewMeterProvider(opts ...MeterProviderOption) (metric.MeterProvider, StopMeterProvider, error) {
	cfg := newMeterProviderConfig(opts)

	stop := func(context.Context) error { return nil }

	if cfg.exporter == nil {
		return noopmetric.NewMeterProvider(), stop, nil
	}

	reader := metricsdk.NewPeriodicReader(cfg.exporter, metricsdk.WithInterval(cfg.exportInterval))
	mp := metricsdk.NewMeterProvider(
		metricsdk.WithResource(cfg.resource),
		metricsdk.WithReader(reader),
	)

	if cfg.hostInstrumentation {
		if err := host.Start(host.WithMeterProvider(mp)); err != nil {
			return nil, stop, multierr.Append(err, mp.Shutdown(context.Background()))
		}
	}
	if cfg.runtimeInstrumentation {
		runtimeOpts := append(cfg.runtimeInstrumentationOpts, runtime.WithMeterProvider(mp))
		if err := runtime.Start(runtimeOpts...); err != nil {
			return nil, stop, multierr.Append(err, mp.Shutdown(context.Background()))
		}
	}

	stop = func(ctx context.Context) error {
		return multierr.Combine(mp.ForceFlush(ctx), mp.Shutdown(ctx))
	}
	return mp, stop, nil
}

func SetGlobalMeterProvider(mp metric.MeterProvider) {
	otel.SetMeterProvider(mp)
}

func GetGlobalMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}
