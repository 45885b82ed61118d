// Package tsnetserver runs an embedded Tailscale node, so the admin API can be exposed on a tailnet only.
package tsnetserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"tailscale.com/tsnet"
)

// Server wraps a tsnet.Server
type Server struct {
	server   *tsnet.Server
	hostname string
	ip4      string
	ip6      string
}

// Options contains options for Start
type Options struct {
	// Hostname for the node
	Hostname string

	// Auth key
	// This is only used on first startup (or if the node key has expired and it needs to be re-authenticated)
	// If this is empty, the auth key can also be read from the TS_AUTH_KEY env var or users can use interactive login
	AuthKey string

	// If true, makes the node ephemeral
	Ephemeral bool

	// Directory where to store tsnet's state
	StateDir string

	// Logger; defaults to slog.Default()
	Logger *slog.Logger

	// Enables debug logging from tsnet
	DebugLogging bool
}

// Start brings up the Tailscale node.
func Start(ctx context.Context, opts Options) (*Server, error) {
	if opts.Hostname == "" {
		return nil, fmt.Errorf("hostname is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	log := opts.Logger.With(slog.String("scope", "tsnet"))
	tsrv := &tsnet.Server{
		Hostname:  opts.Hostname,
		AuthKey:   opts.AuthKey,
		Dir:       opts.StateDir,
		Ephemeral: opts.Ephemeral,
		UserLogf: func(format string, args ...any) {
			log.Info(fmt.Sprintf(format, args...))
		},
	}
	if opts.DebugLogging {
		tsrv.Logf = func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		}
	}

	// Bring up the node, this will also give us the IPs
	state, err := tsrv.Up(ctx)
	if err != nil {
		_ = tsrv.Close()
		return nil, fmt.Errorf("failed to bring up Tailscale node: %w", err)
	}

	s := &Server{
		hostname: strings.TrimSuffix(state.Self.DNSName, "."),
		server:   tsrv,
	}
	for _, addr := range state.TailscaleIPs {
		switch {
		case !addr.IsValid():
			continue
		case addr.Is6():
			s.ip6 = addr.String()
		case addr.Is4():
			s.ip4 = addr.String()
		}
	}

	log.InfoContext(ctx, "Tailscale node is up",
		slog.String("hostname", s.hostname),
		slog.String("ip4", s.ip4),
		slog.String("ip6", s.ip6),
	)

	return s, nil
}

// Hostname returns the fully-qualified name of the node in the tailnet.
func (s *Server) Hostname() string {
	return s.hostname
}

// Listen returns a TLS listener on the tailnet, using certificates provisioned by Tailscale.
func (s *Server) Listen(port int) (net.Listener, error) {
	ln, err := s.server.ListenTLS("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, fmt.Errorf("failed to create tsnet listener: %w", err)
	}

	return ln, nil
}

// Close shuts down the Tailscale node.
func (s *Server) Close() error {
	err := s.server.Close()
	if err != nil {
		return fmt.Errorf("failed to close tsnet server: %w", err)
	}
	return nil
}
