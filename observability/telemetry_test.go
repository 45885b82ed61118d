package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/resource"

	kitconfig "github.com/italypaleale/eventchain/config"
)

type testConfig struct{}

func (testConfig) GetLoadedConfigPath() string {
	return ""
}

func (testConfig) SetLoadedConfigPath(string) {}

func (testConfig) GetInstanceID() string {
	return "test-instance"
}

func (c testConfig) GetOtelResource(name string) (*resource.Resource, error) {
	return kitconfig.NewOtelResource(name, "dev", c.GetInstanceID())
}

func TestInit(t *testing.T) {
	t.Setenv("OTEL_LOGS_EXPORTER", "none")
	t.Setenv("OTEL_METRICS_EXPORTER", "none")
	t.Setenv("OTEL_TRACES_EXPORTER", "none")

	tel, err := Init(t.Context(), InitOpts{
		Config:     testConfig{},
		AppName:    "eventchain-test",
		AppVersion: "dev",
		LogLevel:   "debug",
	})
	require.NoError(t, err)

	assert.NotNil(t, tel.Log)
	assert.NotNil(t, tel.Meter)
	assert.NotNil(t, tel.Tracer)

	_, span := tel.Tracer.Start(t.Context(), "test")
	span.End()

	require.NoError(t, tel.Shutdown(t.Context()))

	// Calling Shutdown again is a no-op
	require.NoError(t, tel.Shutdown(t.Context()))
}

func TestInitInvalidLogLevel(t *testing.T) {
	_, err := Init(t.Context(), InitOpts{
		Config:   testConfig{},
		AppName:  "eventchain-test",
		LogLevel: "verbose",
	})

	var cfgErr *kitconfig.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
