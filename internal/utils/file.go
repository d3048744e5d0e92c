package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/polku/rest_connector/internal/models"
)

// FileExists checks if the given file exists.
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// ReadFile decodes the YAML configuration file at filepath into cfg.
// It returns an error if the file cannot be opened or parsed.
func ReadFile(cfg *models.Config, filepath string) error {
	f, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", filepath, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", filepath, err)
	}

	return nil
}

// LoadConfig reads and validates the configuration file at filepath.
func LoadConfig(filepath string) (*models.Config, error) {
	var cfg models.Config
	if err := ReadFile(&cfg, filepath); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filepath, err)
	}
	return &cfg, nil
}
