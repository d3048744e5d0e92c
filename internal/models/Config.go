// Package models defines the core data structures for the REST connector.
// It includes the YAML configuration model, the connector descriptor consumed
// by the fetch engine, and the request descriptor threaded through it.
package models

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMetricsURI       = "/metrics"
	defaultCacheTTL         = "1m"
	defaultTransportTimeout = "1m"
	defaultRedisPrefix      = "rest_connector"
)

// Config represents the complete application configuration for the REST connector.
// It includes settings for the HTTP server, the connector itself, the transport,
// the optional output sink and OpenTelemetry.
type Config struct {
	Server struct {
		Port             string `yaml:"port"`
		Host             string `yaml:"host"`
		URI              string `yaml:"uri"`
		ScrapingInterval string `yaml:"scrapingInterval"`
		CacheTTL         string `yaml:"cacheTTL"`
		LogName          string `yaml:"logName"`
	} `yaml:"server"`

	Connector ConnectorConfig `yaml:"connector"`

	Transport struct {
		Timeout            string `yaml:"timeout"`
		RetryCount         int    `yaml:"retryCount"`
		InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	} `yaml:"transport"`

	Output struct {
		Redis RedisConfig `yaml:"redis"`
	} `yaml:"output"`

	OpenTelemetry struct {
		Enabled      bool    `yaml:"enabled"`
		Endpoint     string  `yaml:"endpoint"`
		Insecure     bool    `yaml:"insecure"`
		SamplingRate float64 `yaml:"samplingRate"`
	} `yaml:"opentelemetry"`
}

// RedisConfig configures the optional Redis sink for handled items.
// The sink is disabled when Address is empty.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	TTL      string `yaml:"ttl"`
}

// SetDefaults sets default values for optional configuration fields.
// This method is called automatically by Validate() before validation checks.
func (c *Config) SetDefaults() {
	if c.Server.URI == "" {
		c.Server.URI = defaultMetricsURI
	}
	if c.Server.CacheTTL == "" {
		c.Server.CacheTTL = defaultCacheTTL
	}
	if c.Transport.Timeout == "" {
		c.Transport.Timeout = defaultTransportTimeout
	}
	if c.Output.Redis.Address != "" && c.Output.Redis.Prefix == "" {
		c.Output.Redis.Prefix = defaultRedisPrefix
	}
	if c.OpenTelemetry.Enabled && c.OpenTelemetry.SamplingRate == 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// Validate checks if the configuration is valid and returns an error if not.
// It performs validation of:
//   - Server settings (host, port, URI, scraping interval, cache TTL)
//   - Connector settings (base URL, paths, plugins)
//   - Transport timeout and retry count
//   - Redis TTL when the sink is enabled
//   - OpenTelemetry sampling rate
//
// This method calls SetDefaults() before validation.
//
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	c.SetDefaults()

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}
	if c.Server.Host == "" {
		return errors.New("server host is required")
	}
	if _, err := time.ParseDuration(c.Server.ScrapingInterval); err != nil {
		return fmt.Errorf("invalid scraping interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Server.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache TTL: %w", err)
	}

	if err := c.Connector.Validate(); err != nil {
		return err
	}

	if _, err := time.ParseDuration(c.Transport.Timeout); err != nil {
		return fmt.Errorf("invalid transport timeout: %w", err)
	}
	if c.Transport.RetryCount < 0 {
		return fmt.Errorf("invalid transport retry count: %d", c.Transport.RetryCount)
	}

	if c.Output.Redis.Address != "" && c.Output.Redis.TTL != "" {
		if _, err := time.ParseDuration(c.Output.Redis.TTL); err != nil {
			return fmt.Errorf("invalid redis TTL: %w", err)
		}
	}

	if c.OpenTelemetry.SamplingRate < 0 || c.OpenTelemetry.SamplingRate > 1 {
		return fmt.Errorf("invalid OpenTelemetry sampling rate: %v (must be between 0 and 1)", c.OpenTelemetry.SamplingRate)
	}
	if c.OpenTelemetry.Enabled && c.OpenTelemetry.Endpoint == "" {
		return errors.New("OpenTelemetry endpoint is required when tracing is enabled")
	}

	return nil
}

// IsOTelEnabled reports whether OpenTelemetry tracing is configured.
func (c *Config) IsOTelEnabled() bool {
	return c.OpenTelemetry.Enabled
}

// GetServerAddress returns the complete server address for HTTP server binding.
// Format: host:port
//
// Example: "0.0.0.0:2112"
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// GetScrapingDuration parses and returns the scraping interval as a time.Duration.
// The interval defines the default start/end time window of each fetch cycle.
//
// Example: "5m" -> 5 * time.Minute
func (c *Config) GetScrapingDuration() (time.Duration, error) {
	return time.ParseDuration(c.Server.ScrapingInterval)
}

// GetCacheTTL returns how long a fetch cycle result is served to scrapes.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Server.CacheTTL)
	if err != nil {
		return 0
	}
	return d
}

// GetTransportTimeout returns the per-request transport timeout.
func (c *Config) GetTransportTimeout() time.Duration {
	d, err := time.ParseDuration(c.Transport.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// GetRedisTTL returns the expiration used for items written to Redis.
// Zero means items never expire.
func (c *Config) GetRedisTTL() time.Duration {
	if c.Output.Redis.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Output.Redis.TTL)
	if err != nil {
		return 0
	}
	return d
}

// MaskHeaders returns a copy of the configured auth headers with values
// masked for safe logging. Shows the first 4 and last 4 characters with
// asterisks in between; values of 8 characters or fewer become "****".
func (c *Config) MaskHeaders() map[string]string {
	masked := make(map[string]string, len(c.Connector.AuthConfig.Headers))
	for k, v := range c.Connector.AuthConfig.Headers {
		if len(v) <= 8 {
			masked[k] = "****"
			continue
		}
		masked[k] = v[:4] + "****" + v[len(v)-4:]
	}
	return masked
}

// ConnectorConfig is the descriptor of one target system: how to reach it,
// how to compose queries against it, which resources to fetch and which
// plugins take part in each fetch. The fetch engine treats it as read-only.
type ConnectorConfig struct {
	AuthConfig    AuthConfig             `yaml:"authConfig"`
	GeneralConfig GeneralConfig          `yaml:"generalConfig"`
	Parameters    map[string]interface{} `yaml:"parameters"`
	Paths         []string               `yaml:"paths"`
	Plugins       []PluginSpec           `yaml:"plugins"`
}

// AuthConfig holds the target base URL, the static request headers and the
// template identifier used to tag log entries and metrics.
type AuthConfig struct {
	URL      string            `yaml:"url"`
	Template string            `yaml:"template"`
	Headers  map[string]string `yaml:"headers"`
}

// GeneralConfig holds query composition settings.
type GeneralConfig struct {
	Query *QueryConfig `yaml:"query"`
}

// QueryConfig maps runtime parameters onto query-string keys.
// Start and End name the query keys receiving parameters["start"] and
// parameters["end"]; Properties are appended verbatim in their YAML order.
type QueryConfig struct {
	Start      string       `yaml:"start"`
	End        string       `yaml:"end"`
	Properties QueryEntries `yaml:"properties"`
}

// PluginSpec names a plugin and carries its free-form settings.
type PluginSpec struct {
	Name   string                 `yaml:"name"`
	Config map[string]interface{} `yaml:"config"`
}

// Parameter returns the runtime parameter stored under key and whether it exists.
func (c *ConnectorConfig) Parameter(key string) (interface{}, bool) {
	if c.Parameters == nil {
		return nil, false
	}
	v, ok := c.Parameters[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Template returns the template identifier, or "rest" when none is configured.
func (c *ConnectorConfig) Template() string {
	if c.AuthConfig.Template == "" {
		return "rest"
	}
	return c.AuthConfig.Template
}

// Validate checks the connector descriptor.
// Every relative path needs a base URL; absolute paths stand on their own.
func (c *ConnectorConfig) Validate() error {
	if c.AuthConfig.URL != "" {
		u, err := url.Parse(c.AuthConfig.URL)
		if err != nil {
			return fmt.Errorf("invalid connector url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid connector url scheme: %s (must be http or https)", u.Scheme)
		}
	}
	if len(c.Paths) == 0 {
		return errors.New("connector requires at least one path")
	}
	for _, p := range c.Paths {
		if strings.TrimSpace(p) == "" {
			return errors.New("connector paths must not be empty")
		}
		if !strings.Contains(p, "://") && c.AuthConfig.URL == "" {
			return fmt.Errorf("relative path %s requires authConfig.url", p)
		}
	}
	for i, p := range c.Plugins {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("plugin #%d has no name", i)
		}
	}
	return nil
}
