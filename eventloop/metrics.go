package eventloop

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type loopMetrics struct {
	executed    api.Int64Counter
	failed      api.Int64Counter
	// Updated while holding the queue lock, so it never goes below zero
	queueLength api.Int64UpDownCounter
	duration    api.Float64Histogram
}

func newLoopMetrics(meter api.Meter) (m loopMetrics, err error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}

	m.executed, err = meter.Int64Counter(
		"eventloop.events.executed",
		api.WithDescription("Number of events executed"),
		api.WithUnit("{event}"),
	)
	if err != nil {
		return m, err
	}

	m.failed, err = meter.Int64Counter(
		"eventloop.events.failed",
		api.WithDescription("Number of events whose action failed"),
		api.WithUnit("{event}"),
	)
	if err != nil {
		return m, err
	}

	m.queueLength, err = meter.Int64UpDownCounter(
		"eventloop.queue.length",
		api.WithDescription("Number of events waiting in the queue"),
		api.WithUnit("{event}"),
	)
	if err != nil {
		return m, err
	}

	m.duration, err = meter.Float64Histogram(
		"eventloop.event.duration",
		api.WithDescription("Time spent executing an event"),
		api.WithUnit("s"),
	)
	if err != nil {
		return m, err
	}

	return m, nil
}

func (m loopMetrics) record(ctx context.Context, label string, d time.Duration, err error) {
	attrs := api.WithAttributes(attribute.String("event.label", label))

	m.executed.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		m.failed.Add(ctx, 1, attrs)
	}
}
