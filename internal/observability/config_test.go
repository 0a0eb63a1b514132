package observability

import (
	"testing"

	"github.com/smallbiznis/mywill/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := LoadConfig(config.Config{AppName: "mywill", AppVersion: "1.2.3", Environment: "production"})

	assert.Equal(t, "mywill", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SAMPLING_RATIO", "4")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := LoadConfig(config.Config{Environment: "production"})

	assert.Equal(t, "mywill", cfg.ServiceName)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.True(t, cfg.Debug())
}

func TestSplitConfig(t *testing.T) {
	out := splitConfig(Config{ServiceName: "mywill", Environment: "test", OtelEnabled: true, OtelSamplingRatio: 0.5})

	assert.True(t, out.Logger.Debug)
	assert.Equal(t, 0.5, out.Tracing.SamplingRatio)
	assert.True(t, out.Metrics.Enabled)
}
