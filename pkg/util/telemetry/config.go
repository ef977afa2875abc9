package telemetry

import (
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const DefaultExportInterval = 10 * time.Second

type meterProviderConfig struct {
	resource                   *resource.Resource
	exporter                   metricsdk.Exporter
	exportInterval             time.Duration
	hostInstrumentation        bool
	runtimeInstrumentation     bool
	runtimeInstrumentationOpts []runtime.Option
}

func newMeterProviderConfig(opts []MeterProviderOption) meterProviderConfig {
	cfg := meterProviderConfig{
		resource:       resource.Default(),
		exportInterval: DefaultExportInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type MeterProviderOption func(*meterProviderConfig)

func WithResource(res *resource.Resource) MeterProviderOption {
	return func(cfg *meterProviderConfig) {
		cfg.resource = res
	}
}

// WithExporter sets the exporter of the meter provider. A nil exporter
// makes NewMeterProvider return a no-op provider.
func WithExporter(exporter metricsdk.Exporter) MeterProviderOption {
	return func(cfg *meterProviderConfig) {
		cfg.exporter = exporter
	}
}

func WithExportInterval(interval time.Duration) MeterProviderOption {
	return func(cfg *meterProviderConfig) {
		cfg.exportInterval = interval
	}
}

func WithHostInstrumentation() MeterProviderOption {
	return func(cfg *meterProviderConfig) {
		cfg.hostInstrumentation = true
	}
}

func WithRuntimeInstrumentation(opts ...runtime.Option) MeterProviderOption {
	return func(cfg *meterProviderConfig) {
		cfg.runtimeInstrumentation = true
		cfg.runtimeInstrumentationOpts = opts
	}
}
