package observability

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkTrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	kitconfig "github.com/italypaleale/eventchain/config"
)

// InitTracesOpts contains options for the InitTraces method
type InitTracesOpts struct {
	Config  kitconfig.Base
	AppName string
	Sampler sdkTrace.Sampler
}

// InitTraces initializes the tracing provider using OpenTelemetry and returns a tracer for the app.
func InitTraces(ctx context.Context, opts InitTracesOpts) (tracer trace.Tracer, shutdownFn func(ctx context.Context) error, err error) {
	resource, err := opts.Config.GetOtelResource(opts.AppName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get OpenTelemetry resource: %w", err)
	}

	// If the env var OTEL_TRACES_EXPORTER is empty, we set it to "none"
	if os.Getenv("OTEL_TRACES_EXPORTER") == "" {
		_ = os.Setenv("OTEL_TRACES_EXPORTER", "none") //nolint:errcheck
	}
	exporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OpenTelemetry span exporter: %w", err)
	}

	tracerOpts := []sdkTrace.TracerProviderOption{
		sdkTrace.WithResource(resource),
		sdkTrace.WithBatcher(exporter),
	}
	if opts.Sampler != nil {
		tracerOpts = append(tracerOpts, sdkTrace.WithSampler(opts.Sampler))
	}

	tp := sdkTrace.NewTracerProvider(tracerOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	)

	// Shutting down the provider flushes pending spans and shuts down the exporter
	return tp.Tracer(opts.AppName), tp.Shutdown, nil
}
