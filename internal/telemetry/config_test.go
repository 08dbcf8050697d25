package telemetry

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/pluginbuild/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "pluginbuild", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Metrics.ExportInterval.Duration())
	assert.Equal(t, 5*time.Second, cfg.Shutdown.Timeout.Duration())
	require.NoError(t, cfg.Validate())
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.TelemetryConfig{
		Enabled:  true,
		Endpoint: "otel.internal:4318",
		Protocol: ProtocolHTTP,
	}, "2.3.4")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "otel.internal:4318", cfg.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.False(t, cfg.Insecure)
	assert.Equal(t, "2.3.4", cfg.ServiceVersion)
	require.NoError(t, cfg.Validate())

	defaults := FromConfig(config.TelemetryConfig{}, "")
	assert.Equal(t, "localhost:4317", defaults.Endpoint)
	assert.Equal(t, "1.0.0", defaults.ServiceVersion)
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mod func(*Config)) *Config {
		cfg := NewDefaultConfig()
		cfg.Enabled = true
		mod(cfg)
		return cfg
	}

	tests := []struct {
		name   string
		config *Config
		errMsg string
	}{
		{"disabled skips validation", &Config{}, ""},
		{"enabled default", valid(func(*Config) {}), ""},
		{"missing endpoint", valid(func(c *Config) { c.Endpoint = "" }), "endpoint is required"},
		{"missing service name", valid(func(c *Config) { c.ServiceName = "" }), "service_name is required"},
		{"missing service version", valid(func(c *Config) { c.ServiceVersion = "" }), "service_version is required"},
		{"unknown protocol", valid(func(c *Config) { c.Protocol = "udp" }), "protocol must be"},
		{"insecure remote", valid(func(c *Config) { c.Endpoint = "collector.example.com:4317" }), "insecure connections"},
		{"secure remote", valid(func(c *Config) {
			c.Endpoint = "collector.example.com:4317"
			c.Insecure = false
		}), ""},
		{"insecure loopback ip", valid(func(c *Config) { c.Endpoint = "127.0.0.1:4317" }), ""},
		{"insecure ipv6 loopback", valid(func(c *Config) { c.Endpoint = "[::1]:4317" }), ""},
		{"insecure http scheme", valid(func(c *Config) {
			c.Endpoint = "http://localhost:4318"
			c.Protocol = ProtocolHTTP
		}), ""},
		{"zero export interval", valid(func(c *Config) { c.Metrics.ExportInterval = 0 }), "export_interval must be positive"},
		{"zero shutdown timeout", valid(func(c *Config) { c.Shutdown.Timeout = 0 }), "shutdown.timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
