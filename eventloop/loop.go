package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Options contains options for New.
type Options struct {
	// Logger used by the loop.
	// This is optional, and defaults to slog.Default().
	Logger *slog.Logger

	// If true, Run returns as soon as an action fails, without processing any other event in the queue.
	// The default is to report the failure to ErrorHandler and continue draining the queue.
	FailFast bool

	// Optional function invoked when an action fails, when FailFast is false.
	// It's invoked on the goroutine that is draining the queue.
	ErrorHandler func(ctx context.Context, ev *Event, err error)

	// Meter used to record metrics.
	// If nil, metrics are not recorded.
	Meter api.Meter

	// Tracer used to create a span for each executed event.
	// If nil, no span is created.
	Tracer trace.Tracer
}

// Stats contains counters for the loop.
type Stats struct {
	// Number of events currently in the queue
	QueueLength int `json:"queueLength"`
	// Number of events that were executed, including the ones that failed
	Executed int64 `json:"executed"`
	// Number of events whose action failed
	Failed int64 `json:"failed"`
	// True if Run is active
	Running bool `json:"running"`
}

// Loop owns a FIFO queue of events and drains it.
// Events can be enqueued from any goroutine, but only one goroutine drains the queue, using Run or Step.
type Loop struct {
	queue deque.Deque[*Event]
	lock  sync.Mutex

	// Has a buffer of 1; a token in the channel means that the queue may have changed
	wakeCh  chan struct{}
	stopCh  chan struct{}
	stopped atomic.Bool
	running atomic.Bool

	executed atomic.Int64
	failed   atomic.Int64

	log          *slog.Logger
	failFast     bool
	errorHandler func(ctx context.Context, ev *Event, err error)
	tracer       trace.Tracer
	metrics      loopMetrics
}

// New returns a new Loop.
func New(opts Options) (*Loop, error) {
	metrics, err := newLoopMetrics(opts.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = tracenoop.NewTracerProvider().Tracer("")
	}

	return &Loop{
		wakeCh:       make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		log:          opts.Logger,
		failFast:     opts.FailFast,
		errorHandler: opts.ErrorHandler,
		tracer:       opts.Tracer,
		metrics:      metrics,
	}, nil
}

// Enqueue appends an event to the tail of the queue.
// The same event can be enqueued multiple times, and each occurrence is executed independently.
func (l *Loop) Enqueue(ev *Event) error {
	if ev == nil {
		return ErrNilEvent
	}

	l.lock.Lock()
	if l.stopped.Load() {
		l.lock.Unlock()
		return ErrLoopStopped
	}
	l.queue.PushBack(ev)
	l.metrics.queueLength.Add(context.Background(), 1)
	l.lock.Unlock()

	// Wake the loop if it's idle
	// If the channel already has a token, there's no need to add another one
	select {
	case l.wakeCh <- struct{}{}:
	default:
	}

	return nil
}

// Len returns the number of events in the queue.
func (l *Loop) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.queue.Len()
}

// Stats returns the current counters for the loop.
func (l *Loop) Stats() Stats {
	return Stats{
		QueueLength: l.Len(),
		Executed:    l.executed.Load(),
		Failed:      l.failed.Load(),
		Running:     l.running.Load(),
	}
}

// Step executes the event at the head of the queue, if any.
// It returns false if the queue was empty; an empty queue is not an error.
// The returned error, if any, is an *ActionError for the executed event.
// Step must not be invoked while Run is active.
func (l *Loop) Step(ctx context.Context) (bool, error) {
	if l.stopped.Load() {
		return false, ErrLoopStopped
	}
	if l.running.Load() {
		return false, ErrLoopAlreadyRunning
	}

	ev, ok := l.pop()
	if !ok {
		return false, nil
	}
	return true, l.execute(ctx, ev)
}

// Run drains the queue, executing events in the order they were enqueued.
// When the queue is empty, Run waits until a new event is enqueued.
// Run returns when the context is canceled (returning the context's error) or when Stop is invoked (returning nil).
// If FailFast is set, Run also returns the *ActionError of the first action that fails.
func (l *Loop) Run(ctx context.Context) error {
	if l.stopped.Load() {
		return ErrLoopStopped
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopAlreadyRunning
	}
	defer l.running.Store(false)

	l.log.DebugContext(ctx, "Event loop started")
	defer l.log.DebugContext(ctx, "Event loop stopped")

	for {
		// Check for the stop signals between each event
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return nil
		default:
			// Nop
		}

		ev, ok := l.pop()
		if !ok {
			// Queue is empty, so wait until something is enqueued
			select {
			case <-l.wakeCh:
				// Nop - re-check the queue
			case <-ctx.Done():
				return ctx.Err()
			case <-l.stopCh:
				return nil
			}
			continue
		}

		err := l.execute(ctx, ev)
		if err != nil {
			if l.failFast {
				return err
			}
			l.reportError(ctx, ev, err)
		}
	}
}

// Stop the loop.
// Run returns after the event currently being executed, if any, completes.
// Events still in the queue are discarded, and further calls to Enqueue return ErrLoopStopped.
func (l *Loop) Stop() {
	if !l.stopped.CompareAndSwap(false, true) {
		return
	}
	close(l.stopCh)

	l.lock.Lock()
	n := l.queue.Len()
	l.queue.Clear()
	if n > 0 {
		l.metrics.queueLength.Add(context.Background(), -int64(n))
	}
	l.lock.Unlock()

	if n > 0 {
		l.log.Debug("Discarded queued events on stop", slog.Int("count", n))
	}
}

func (l *Loop) pop() (*Event, bool) {
	l.lock.Lock()
	if l.queue.Len() == 0 {
		l.lock.Unlock()
		return nil, false
	}
	ev := l.queue.PopFront()
	l.metrics.queueLength.Add(context.Background(), -1)
	l.lock.Unlock()

	return ev, true
}

func (l *Loop) execute(ctx context.Context, ev *Event) error {
	ctx, span := l.tracer.Start(ctx, "eventloop.execute",
		trace.WithAttributes(attribute.String("event.label", ev.label)),
	)
	defer span.End()

	start := time.Now()
	err := l.safeInvoke(ctx, ev)
	if err == nil && ev.successor != nil {
		err = l.Enqueue(ev.successor)
		if errors.Is(err, ErrLoopStopped) {
			// The action completed but the loop was stopped in the meanwhile
			l.log.DebugContext(ctx, "Successor not scheduled because the event loop is stopped", slog.String("event", ev.label))
			err = nil
		}
	}

	l.executed.Add(1)
	l.metrics.record(ctx, ev.label, time.Since(start), err)

	if err != nil {
		l.failed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &ActionError{Label: ev.label, Err: err}
	}

	return nil
}

// safeInvoke runs the event's action, converting panics into a *PanicError.
// Scheduling the successor is left to the caller.
func (l *Loop) safeInvoke(ctx context.Context, ev *Event) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = &PanicError{Value: r}
		}
	}()

	return ev.invoke(ctx)
}

func (l *Loop) reportError(ctx context.Context, ev *Event, err error) {
	l.log.ErrorContext(ctx, "Error executing event",
		slog.String("event", ev.label),
		slog.Any("error", err),
	)

	if l.errorHandler != nil {
		l.errorHandler(ctx, ev, err)
	}
}
