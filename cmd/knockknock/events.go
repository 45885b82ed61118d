package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	kclock "k8s.io/utils/clock"

	"github.com/italypaleale/eventchain/eventloop"
)

const (
	whoLabel   = "Event 1 for who"
	knockLabel = "Event 2 for knock - knock"

	// Name of the event enqueued at startup
	startupEvent = "knock"
)

// registry maps names to events, so they can be enqueued by the admin API and by trigger files
type registry map[string]*eventloop.Event

// Lookup returns the event registered with a name
func (r registry) Lookup(name string) (*eventloop.Event, bool) {
	ev, ok := r[name]
	return ev, ok
}

type eventsOpts struct {
	Out      io.Writer
	Clock    kclock.Clock
	Pause    time.Duration
	MaxTries uint
	Logger   *slog.Logger
}

// newKnockKnock returns the "knock" and "who" events; "who" is the successor of "knock".
func newKnockKnock(opts eventsOpts) registry {
	action := printAndPause(opts.Out, opts.Clock, opts.Pause)
	if opts.MaxTries > 1 {
		action = eventloop.WithRetry(action, eventloop.RetryOptions{
			MaxTries: opts.MaxTries,
			Logger:   opts.Logger,
		})
	}

	who := eventloop.NewEvent(whoLabel, action, nil)
	knock := eventloop.NewEvent(knockLabel, action, who)

	return registry{
		startupEvent: knock,
		"who":   who,
	}
}

// printAndPause returns an action that prints the event's label, then pauses.
// The pause ends early if the context is canceled.
func printAndPause(out io.Writer, clock kclock.Clock, pause time.Duration) eventloop.Action {
	return func(ctx context.Context, ev *eventloop.Event) error {
		_, err := fmt.Fprintln(out, ev.Label())
		if err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}

		if pause <= 0 {
			return nil
		}

		select {
		case <-clock.After(pause):
		case <-ctx.Done():
		}
		return nil
	}
}
