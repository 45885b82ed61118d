package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"

	"golang.org/x/sync/errgroup"
	kclock "k8s.io/utils/clock"

	"github.com/italypaleale/eventchain/eventloop"
	"github.com/italypaleale/eventchain/failurelog"
	"github.com/italypaleale/eventchain/fsnotify"
	"github.com/italypaleale/eventchain/httpserver"
	"github.com/italypaleale/eventchain/observability"
	"github.com/italypaleale/eventchain/tsnetserver"
)

type app struct {
	cfg      *Config
	log      *slog.Logger
	loop     *eventloop.Loop
	failures *failurelog.Log
	events   registry
}

func newApp(cfg *Config, tel *observability.Telemetry, out io.Writer) (*app, error) {
	a := &app{
		cfg: cfg,
		log: tel.Log,
		failures: failurelog.New(&failurelog.Options{
			Retention: cfg.FailureRetention,
		}),
	}

	var err error
	a.loop, err = eventloop.New(eventloop.Options{
		Logger:   tel.Log,
		FailFast: cfg.FailFast,
		ErrorHandler: func(ctx context.Context, ev *eventloop.Event, err error) {
			a.failures.Record(ev.Label(), err)
		},
		Meter:  tel.Meter,
		Tracer: tel.Tracer,
	})
	if err != nil {
		a.failures.Stop()
		return nil, fmt.Errorf("failed to create event loop: %w", err)
	}

	a.events = newKnockKnock(eventsOpts{
		Out:      out,
		Clock:    kclock.RealClock{},
		Pause:    cfg.Pause,
		MaxTries: cfg.Retry.MaxTries,
		Logger:   tel.Log,
	})

	return a, nil
}

// Run the app until the context is canceled.
// It returns an error if any component fails, including the event loop when failFast is enabled.
func (a *app) Run(ctx context.Context) error {
	defer a.failures.Stop()
	defer a.loop.Stop()

	knock, ok := a.events.Lookup(startupEvent)
	if !ok {
		return fmt.Errorf("event '%s' is not registered", startupEvent)
	}
	for range a.cfg.Repeat {
		err := a.loop.Enqueue(knock)
		if err != nil {
			return fmt.Errorf("failed to enqueue event: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.loop.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if a.cfg.TriggersDir != "" {
		err := a.watchTriggers(gctx, g)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
	}

	if a.cfg.Admin.Enabled {
		err := a.startAdminServer(gctx, g)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
	}

	return g.Wait()
}

func (a *app) watchTriggers(ctx context.Context, g *errgroup.Group) error {
	namesCh, err := fsnotify.WatchTriggers(ctx, a.cfg.TriggersDir)
	if err != nil {
		return fmt.Errorf("failed to watch triggers folder: %w", err)
	}

	a.log.InfoContext(ctx, "Watching for trigger files", slog.String("folder", a.cfg.TriggersDir))

	g.Go(func() error {
		for name := range namesCh {
			ev, ok := a.events.Lookup(name)
			if !ok {
				a.log.WarnContext(ctx, "Ignoring trigger file that does not match any event", slog.String("name", name))
				continue
			}

			err := a.loop.Enqueue(ev)
			if err != nil {
				a.log.WarnContext(ctx, "Failed to enqueue event from trigger file", slog.String("name", name), slog.Any("error", err))
				continue
			}
			a.log.DebugContext(ctx, "Enqueued event from trigger file", slog.String("name", name), slog.String("event", ev.Label()))
		}
		return nil
	})

	return nil
}

func (a *app) startAdminServer(ctx context.Context, g *errgroup.Group) error {
	ln, closeFn, err := a.listenAdmin(ctx)
	if err != nil {
		return err
	}

	srv := httpserver.NewServer(httpserver.ServerOpts{
		Loop:        a.loop,
		Lookup:      a.events.Lookup,
		Failures:    a.failures,
		HostID:      a.cfg.GetInstanceID(),
		MaxBodySize: a.cfg.Admin.MaxBodySize,
		Logger:      a.log,
	})
	g.Go(func() error {
		err := srv.Serve(ctx, ln)
		if closeFn != nil {
			err = errors.Join(err, closeFn())
		}
		return err
	})

	return nil
}

// Returns the listener for the admin API, and an optional function to invoke after the server has stopped.
func (a *app) listenAdmin(ctx context.Context) (net.Listener, func() error, error) {
	if !a.cfg.Admin.Tailscale.Enabled {
		ln, err := net.Listen("tcp", net.JoinHostPort(a.cfg.Admin.Bind, strconv.Itoa(a.cfg.Admin.Port)))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to listen for admin API: %w", err)
		}
		return ln, nil, nil
	}

	ts, err := tsnetserver.Start(ctx, tsnetserver.Options{
		Hostname:  a.cfg.Admin.Tailscale.Hostname,
		AuthKey:   a.cfg.Admin.Tailscale.AuthKey,
		StateDir:  a.cfg.Admin.Tailscale.StateDir,
		Ephemeral: a.cfg.Admin.Tailscale.Ephemeral,
		Logger:    a.log,
	})
	if err != nil {
		return nil, nil, err
	}

	ln, err := ts.Listen(a.cfg.Admin.Port)
	if err != nil {
		_ = ts.Close()
		return nil, nil, err
	}

	return ln, ts.Close, nil
}
