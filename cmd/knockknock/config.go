package main

import (
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"

	kitconfig "github.com/italypaleale/eventchain/config"
	"github.com/italypaleale/eventchain/observability"
)

// Config contains the configuration for the app.
type Config struct {
	// Log level: "debug", "info", "warn", or "error"
	LogLevel string `yaml:"logLevel"`
	// If true, logs are formatted as JSON
	LogAsJSON bool `yaml:"logAsJson"`

	// Pause after each event's action prints its label
	Pause time.Duration `yaml:"pause"`
	// Number of times the "knock" event is enqueued at startup
	Repeat int `yaml:"repeat"`
	// If true, the app exits as soon as an action fails
	FailFast bool `yaml:"failFast"`
	// How long failures are kept in the list returned by the admin API
	FailureRetention time.Duration `yaml:"failureRetention"`
	// Retry configuration for actions
	Retry RetryConfig `yaml:"retry"`

	// If set, creating or writing a file in this folder enqueues the event whose name matches the file's name
	TriggersDir string `yaml:"triggersDir"`

	// Admin API
	Admin AdminConfig `yaml:"admin"`

	// Internal keys
	loadedConfigPath string             `yaml:"-"`
	instanceID       string             `yaml:"-"`
	otelResource     *resource.Resource `yaml:"-"`
	otelResourceLock sync.Mutex         `yaml:"-"`
}

// RetryConfig contains the retry configuration for actions
type RetryConfig struct {
	// Maximum number of attempts for each action; values of 0 or 1 disable retries
	MaxTries uint `yaml:"maxTries"`
}

// AdminConfig contains the configuration for the admin API
type AdminConfig struct {
	Enabled     bool            `yaml:"enabled"`
	Bind        string          `yaml:"bind"`
	Port        int             `yaml:"port"`
	MaxBodySize int64           `yaml:"maxBodySize"`
	Tailscale   TailscaleConfig `yaml:"tailscale"`
}

// TailscaleConfig contains the configuration for exposing the admin API on a tailnet
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"authKey"`
	StateDir  string `yaml:"stateDir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// NewDefaultConfig returns a Config with the default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		Pause:            time.Second,
		Repeat:           2,
		FailureRetention: 10 * time.Minute,
		Admin: AdminConfig{
			Bind: "127.0.0.1",
			Port: 7070,
			Tailscale: TailscaleConfig{
				Hostname: appName,
			},
		},
	}
}

// Validate the configuration and compute the internal values.
func (c *Config) Validate() error {
	_, err := observability.ParseLogLevel(c.LogLevel)
	if err != nil {
		return err
	}

	if c.Pause < 0 {
		return kitconfig.NewConfigError("Invalid value for 'pause': must not be negative", "Invalid configuration")
	}
	if c.Repeat < 0 {
		return kitconfig.NewConfigError("Invalid value for 'repeat': must not be negative", "Invalid configuration")
	}
	if c.FailureRetention <= 0 {
		return kitconfig.NewConfigError("Invalid value for 'failureRetention': must be positive", "Invalid configuration")
	}

	if c.Admin.Enabled {
		if c.Admin.Port <= 0 || c.Admin.Port > 65535 {
			return kitconfig.NewConfigError("Invalid value for 'admin.port'", "Invalid configuration")
		}
		if c.Admin.Tailscale.Enabled && c.Admin.Tailscale.Hostname == "" {
			return kitconfig.NewConfigError("Property 'admin.tailscale.hostname' is required when Tailscale is enabled", "Invalid configuration")
		}
	}

	c.instanceID, err = kitconfig.GetInstanceID()
	if err != nil {
		return kitconfig.NewConfigError(err, "Failed to compute instance ID")
	}

	return nil
}

// GetLoadedConfigPath returns the path to the config file that was loaded
func (c *Config) GetLoadedConfigPath() string {
	return c.loadedConfigPath
}

// SetLoadedConfigPath sets the path to the config file that was loaded
func (c *Config) SetLoadedConfigPath(filePath string) {
	c.loadedConfigPath = filePath
}

// GetInstanceID returns the instance ID
func (c *Config) GetInstanceID() string {
	return c.instanceID
}

// GetOtelResource returns the OpenTelemetry Resource object
func (c *Config) GetOtelResource(name string) (*resource.Resource, error) {
	c.otelResourceLock.Lock()
	defer c.otelResourceLock.Unlock()

	if c.otelResource != nil {
		return c.otelResource, nil
	}

	res, err := kitconfig.NewOtelResource(name, version, c.instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenTelemetry resource: %w", err)
	}
	c.otelResource = res

	return res, nil
}
