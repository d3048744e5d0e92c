// Package models defines the core data structures for the REST connector.
package models

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// SafeConfig provides thread-safe access to configuration.
// It uses RWMutex to allow concurrent reads while serializing writes.
//
// SafeConfig enables dynamic configuration reload without restarting the connector:
//   - Operators can update headers, paths or plugins via SIGHUP
//   - File watchers can trigger automatic reload when config files change
//   - Invalid configurations are rejected without affecting the running config
//
// Usage:
//
//	safeCfg := NewSafeConfig(cfg)
//	current := safeCfg.Get()
//	changed, err := safeCfg.ReloadConfig("/path/to/config.yaml")
type SafeConfig struct {
	mu sync.RWMutex
	C  *Config
}

// NewSafeConfig creates a new SafeConfig with the provided initial config.
// The caller should not modify cfg after passing it in.
func NewSafeConfig(cfg *Config) *SafeConfig {
	return &SafeConfig{
		C: cfg,
	}
}

// Get returns the current configuration (read-locked).
// The returned pointer is safe to use until the next reload.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.C
}

// ReloadConfig loads and validates a new configuration from the file.
// Validation happens before the write lock is taken, so an invalid file
// never replaces the running configuration.
//
// Returns:
//   - targetChanged: true if the connector base URL changed (cached results are stale)
//   - err: error if file cannot be read or validation fails
func (sc *SafeConfig) ReloadConfig(configPath string) (targetChanged bool, err error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false, fmt.Errorf("config file not found: %s", configPath)
	}

	f, err := os.Open(configPath)
	if err != nil {
		return false, fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var newCfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&newCfg); err != nil {
		return false, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := newCfg.Validate(); err != nil {
		return false, fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	oldURL := sc.C.Connector.AuthConfig.URL
	sc.C = &newCfg
	sc.mu.Unlock()

	targetChanged = oldURL != newCfg.Connector.AuthConfig.URL

	log.Info("Configuration reloaded successfully")
	if targetChanged {
		log.Info("Connector base URL changed, cached results will be flushed")
	}

	return targetChanged, nil
}
