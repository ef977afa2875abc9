package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
)

func NewStdoutExporter(opts ...stdoutmetric.Option) (metricsdk.Exporter, error) {
	return stdoutmetric.New(opts...)
}

func NewOTLPExporter(ctx context.Context, opts ...otlpmetricgrpc.Option) (metricsdk.Exporter, error) {
	return otlpmetricgrpc.New(ctx, opts...)
}
