// Package httpserver contains the admin API for the event loop.
// It allows inspecting the state of the loop and enqueueing registered events over HTTP, and includes utilities for returning JSON-formatted responses and errors.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/italypaleale/eventchain/eventloop"
	"github.com/italypaleale/eventchain/failurelog"
)

const (
	HeaderXHostID     = "X-Host-Id"
	HeaderContentType = "Content-Type"
	ContentTypeJson   = "application/json; charset=utf-8"

	// Default maximum size for request bodies
	DefaultMaxBodySize = 1 << 10

	shutdownTimeout = 5 * time.Second
)

// Loop is the interface for the event loop used by the server.
type Loop interface {
	Enqueue(ev *eventloop.Event) error
	Stats() eventloop.Stats
}

// FailureLister returns the recent failures.
type FailureLister interface {
	List() []failurelog.Entry
}

// EventLookupFn returns the event registered with the given name.
type EventLookupFn func(name string) (*eventloop.Event, bool)

// ServerOpts contains options for NewServer.
type ServerOpts struct {
	// Event loop
	Loop Loop
	// Function that returns the event registered with a name
	Lookup EventLookupFn
	// Optional list of recent failures, included in the status response
	Failures FailureLister
	// Optional value for the X-Host-Id response header
	HostID string
	// Maximum size for request bodies; defaults to DefaultMaxBodySize
	MaxBodySize int64
	// Logger; defaults to slog.Default()
	Logger *slog.Logger
}

// Server is the admin API server.
type Server struct {
	loop     Loop
	lookup   EventLookupFn
	failures FailureLister
	log      *slog.Logger
	handler  http.Handler
}

// NewServer returns a new Server.
func NewServer(opts ServerOpts) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}

	s := &Server{
		loop:     opts.Loop,
		lookup:   opts.Lookup,
		failures: opts.Failures,
		log:      opts.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /events/{name}", s.handleEnqueue)

	middlewares := []Middleware{
		MiddlewareMaxBodySize(opts.MaxBodySize),
		MiddlewareRequestLog(opts.Logger),
	}
	if opts.HostID != "" {
		middlewares = append(middlewares, MiddlewareHostIDHeader(opts.HostID))
	}
	s.handler = Use(mux, middlewares...)

	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on the listener until the context is canceled, then shuts down the server gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.InfoContext(ctx, "Admin server started", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
		// Use a background context since the parent one is canceled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout) //nolint:contextcheck
		defer cancel()

		err := srv.Shutdown(shutdownCtx) //nolint:contextcheck
		if err != nil {
			return fmt.Errorf("failed to shut down admin server: %w", err)
		}
		s.log.InfoContext(ctx, "Admin server stopped")
		return nil
	}
}
