package eventloop

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryOptions contains options for WithRetry.
type RetryOptions struct {
	// Maximum number of attempts, including the first one.
	// This is optional, and defaults to 3.
	MaxTries uint

	// Backoff policy between attempts.
	// This is optional, and defaults to an exponential backoff starting at 100ms.
	BackOff backoff.BackOff

	// Optional logger used to log failed attempts.
	Logger *slog.Logger
}

// WithRetry returns an Action that invokes action until it succeeds, up to MaxTries times.
// Errors wrapped with Permanent are not retried.
// If the context is canceled, pending retries are abandoned and the action is not reported as failed.
// Retries happen on the goroutine that is draining the loop, so they delay every other event in the queue.
func WithRetry(action Action, opts RetryOptions) Action {
	if opts.MaxTries == 0 {
		opts.MaxTries = 3
	}

	return func(ctx context.Context, ev *Event) error {
		b := opts.BackOff
		if b == nil {
			eb := backoff.NewExponentialBackOff()
			eb.InitialInterval = 100 * time.Millisecond
			b = eb
		}

		retryOpts := []backoff.RetryOption{
			backoff.WithBackOff(b),
			backoff.WithMaxTries(opts.MaxTries),
		}
		if opts.Logger != nil {
			retryOpts = append(retryOpts, backoff.WithNotify(func(err error, d time.Duration) {
				opts.Logger.WarnContext(ctx, "Action failed; will retry",
					slog.String("event", ev.Label()),
					slog.Any("error", err),
					slog.Duration("delay", d),
				)
			}))
		}

		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			return struct{}{}, action(ctx, ev)
		}, retryOpts...)
		if err != nil && ctx.Err() != nil {
			// Retries were abandoned because the loop is shutting down
			if opts.Logger != nil {
				opts.Logger.DebugContext(ctx, "Retries canceled", slog.String("event", ev.Label()), slog.Any("error", err))
			}
			return nil
		}
		return err
	}
}

// Permanent wraps an error so WithRetry does not retry it.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
