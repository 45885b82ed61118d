package observability

import (
	"context"
	"errors"
	"log/slog"

	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	kitconfig "github.com/italypaleale/eventchain/config"
)

// InitOpts contains options for the Init method
type InitOpts struct {
	Config     kitconfig.Base
	AppName    string
	AppVersion string

	// Log level
	LogLevel string
	// If true, logs as JSON
	LogAsJSON bool
}

// Telemetry contains the logger, meter, and tracer for the app.
type Telemetry struct {
	Log    *slog.Logger
	Meter  api.Meter
	Tracer trace.Tracer

	shutdownFns []func(ctx context.Context) error
}

// Init initializes logs, metrics, and traces.
func Init(ctx context.Context, opts InitOpts) (*Telemetry, error) {
	t := &Telemetry{}

	var (
		shutdownFn func(ctx context.Context) error
		err        error
	)
	t.Log, shutdownFn, err = InitLogs(ctx, InitLogsOpts{
		Level:      opts.LogLevel,
		JSON:       opts.LogAsJSON,
		Config:     opts.Config,
		AppName:    opts.AppName,
		AppVersion: opts.AppVersion,
	})
	if err != nil {
		return nil, err
	}
	t.shutdownFns = append(t.shutdownFns, shutdownFn)

	t.Meter, shutdownFn, err = InitMetrics(ctx, InitMetricsOpts{
		Config:  opts.Config,
		AppName: opts.AppName,
		Prefix:  opts.AppName,
	})
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	t.shutdownFns = append(t.shutdownFns, shutdownFn)

	t.Tracer, shutdownFn, err = InitTraces(ctx, InitTracesOpts{
		Config:  opts.Config,
		AppName: opts.AppName,
	})
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	t.shutdownFns = append(t.shutdownFns, shutdownFn)

	return t, nil
}

// Shutdown flushes and shuts down all providers, in reverse order of initialization.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	errs := make([]error, 0, len(t.shutdownFns))
	for i := len(t.shutdownFns) - 1; i >= 0; i-- {
		err := t.shutdownFns[i](ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdownFns = nil

	return errors.Join(errs...)
}
