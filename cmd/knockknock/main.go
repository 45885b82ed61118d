// Command knockknock runs the "knock knock" demo on the event loop.
// The "knock" event is enqueued at startup, and each time it runs it schedules the "who" event.
// Events can also be enqueued through the admin API or by creating files in the triggers folder.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	kitconfig "github.com/italypaleale/eventchain/config"
	"github.com/italypaleale/eventchain/observability"
	slogkit "github.com/italypaleale/eventchain/slog"
)

const appName = "eventchain"

// Set at build time
var version = "dev"

func main() {
	cfg := NewDefaultConfig()
	err := kitconfig.LoadConfig(cfg, kitconfig.LoadConfigOpts{
		EnvVar:   "EVENTCHAIN_CONFIG",
		DirName:  appName,
		Optional: true,
	})
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		var cfgErr *kitconfig.ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.LogFatal(slog.Default())
			return
		}
		slogkit.FatalError(slog.Default(), "Failed to load configuration", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := observability.Init(ctx, observability.InitOpts{
		Config:     cfg,
		AppName:    appName,
		AppVersion: version,
		LogLevel:   cfg.LogLevel,
		LogAsJSON:  cfg.LogAsJSON,
	})
	if err != nil {
		slogkit.FatalError(slog.Default(), "Failed to initialize observability", err)
		return
	}

	log := tel.Log
	if cfg.GetLoadedConfigPath() != "" {
		log.Debug("Loaded configuration", slog.String("path", cfg.GetLoadedConfigPath()))
	}

	a, err := newApp(cfg, tel, os.Stdout)
	if err != nil {
		slogkit.FatalError(log, "Failed to initialize app", err)
		return
	}

	runErr := a.Run(ctx)

	// Flush telemetry before exiting
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = tel.Shutdown(shutdownCtx)
	if err != nil {
		log.Warn("Error shutting down telemetry", slog.Any("error", err))
	}

	if runErr != nil {
		slogkit.FatalError(log, "Event loop failed", runErr)
		return
	}
	log.Info("Shutting down")
}
