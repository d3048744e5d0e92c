package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

const testConfigYAML = `server:
  host: "localhost"
  port: "2112"
  scrapingInterval: "5m"
  logName: "connector.log"
connector:
  authConfig:
    url: "https://api.example.com"
    template: "orders"
    headers:
      Authorization: "Bearer abcdefgh12345678"
  generalConfig:
    query:
      start: "from"
      end: "to"
      properties:
        limit: 100
        select: {fields: "id,name"}
        sort: "-created"
  parameters:
    start: 10
    end: 20
  paths:
    - "/v1/orders"
    - "https://other.example.com/v2/things"
  plugins:
    - name: "requestid"
    - name: "retry"
      config:
        statuses: [401, 429]
`

func newValidConfig() Config {
	var cfg Config
	cfg.Server.Host = "localhost"
	cfg.Server.Port = "2112"
	cfg.Server.ScrapingInterval = "5m"
	cfg.Connector.AuthConfig.URL = "https://api.example.com"
	cfg.Connector.Paths = []string{"/v1/orders"}
	return cfg
}

func TestConfigDecodeYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(testConfigYAML), &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "orders", cfg.Connector.Template())
	assert.Equal(t, []string{"/v1/orders", "https://other.example.com/v2/things"}, cfg.Connector.Paths)
	require.NotNil(t, cfg.Connector.GeneralConfig.Query)
	assert.Equal(t, "from", cfg.Connector.GeneralConfig.Query.Start)
	assert.Equal(t, QueryEntries{
		{Key: "limit", Value: "100"},
		{Key: "fields", Value: "id,name"},
		{Key: "sort", Value: "-created"},
	}, cfg.Connector.GeneralConfig.Query.Properties)

	start, ok := cfg.Connector.Parameter("start")
	assert.True(t, ok)
	assert.Equal(t, 10, start)

	require.Len(t, cfg.Connector.Plugins, 2)
	assert.Equal(t, "retry", cfg.Connector.Plugins[1].Name)
}

func TestConfigSetDefaults(t *testing.T) {
	cfg := newValidConfig()
	cfg.Output.Redis.Address = "localhost:6379"
	cfg.OpenTelemetry.Enabled = true
	cfg.SetDefaults()

	assert.Equal(t, defaultMetricsURI, cfg.Server.URI)
	assert.Equal(t, defaultCacheTTL, cfg.Server.CacheTTL)
	assert.Equal(t, defaultTransportTimeout, cfg.Transport.Timeout)
	assert.Equal(t, defaultRedisPrefix, cfg.Output.Redis.Prefix)
	assert.Equal(t, 1.0, cfg.OpenTelemetry.SamplingRate)
	assert.Equal(t, time.Minute, cfg.GetCacheTTL())
	assert.Equal(t, time.Minute, cfg.GetTransportTimeout())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing server port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "invalid server port",
			mutate:  func(c *Config) { c.Server.Port = "99999" },
			wantErr: "invalid server port",
		},
		{
			name:    "missing server host",
			mutate:  func(c *Config) { c.Server.Host = "" },
			wantErr: "server host is required",
		},
		{
			name:    "invalid scraping interval",
			mutate:  func(c *Config) { c.Server.ScrapingInterval = "often" },
			wantErr: "invalid scraping interval",
		},
		{
			name:    "invalid connector scheme",
			mutate:  func(c *Config) { c.Connector.AuthConfig.URL = "ftp://api.example.com" },
			wantErr: "invalid connector url scheme",
		},
		{
			name:    "no paths",
			mutate:  func(c *Config) { c.Connector.Paths = nil },
			wantErr: "at least one path",
		},
		{
			name: "relative path without base url",
			mutate: func(c *Config) {
				c.Connector.AuthConfig.URL = ""
			},
			wantErr: "requires authConfig.url",
		},
		{
			name: "absolute paths without base url",
			mutate: func(c *Config) {
				c.Connector.AuthConfig.URL = ""
				c.Connector.Paths = []string{"https://api.example.com/v1/orders"}
			},
		},
		{
			name:    "unnamed plugin",
			mutate:  func(c *Config) { c.Connector.Plugins = []PluginSpec{{Name: " "}} },
			wantErr: "plugin #0 has no name",
		},
		{
			name:    "negative retry count",
			mutate:  func(c *Config) { c.Transport.RetryCount = -1 },
			wantErr: "invalid transport retry count",
		},
		{
			name: "invalid redis ttl",
			mutate: func(c *Config) {
				c.Output.Redis.Address = "localhost:6379"
				c.Output.Redis.TTL = "forever"
			},
			wantErr: "invalid redis TTL",
		},
		{
			name:    "sampling rate out of range",
			mutate:  func(c *Config) { c.OpenTelemetry.SamplingRate = 1.5 },
			wantErr: "invalid OpenTelemetry sampling rate",
		},
		{
			name:    "tracing without endpoint",
			mutate:  func(c *Config) { c.OpenTelemetry.Enabled = true },
			wantErr: "OpenTelemetry endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newValidConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigMaskHeaders(t *testing.T) {
	cfg := newValidConfig()
	cfg.Connector.AuthConfig.Headers = map[string]string{
		"Authorization": "Bearer abcdefgh12345678",
		"X-Short":       "tiny",
	}

	masked := cfg.MaskHeaders()
	assert.Equal(t, "Bear****5678", masked["Authorization"])
	assert.Equal(t, "****", masked["X-Short"])
	assert.Equal(t, "Bearer abcdefgh12345678", cfg.Connector.AuthConfig.Headers["Authorization"])
}

func TestConnectorParameter(t *testing.T) {
	c := ConnectorConfig{Parameters: map[string]interface{}{"start": "2024-01-01", "end": nil}}

	v, ok := c.Parameter("start")
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01", v)

	_, ok = c.Parameter("end")
	assert.False(t, ok, "nil parameter should count as absent")

	_, ok = (&ConnectorConfig{}).Parameter("start")
	assert.False(t, ok)
}

func TestConnectorTemplateDefault(t *testing.T) {
	assert.Equal(t, "rest", (&ConnectorConfig{}).Template())
}

func TestGetServerAddress(t *testing.T) {
	cfg := newValidConfig()
	assert.Equal(t, "localhost:2112", cfg.GetServerAddress())
}
