// Package container wires repositories, adapters and services together
// and manages their lifecycle.
package container

import (
	"fmt"
	"time"
)

// Config holds everything the container needs to build the application.
type Config struct {
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Storage  StorageConfig
	Rules    RulesConfig
	Import   ImportConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// OpenAIConfig holds OpenAI API settings. Nothing is called when Enabled is false.
type OpenAIConfig struct {
	Enabled     bool
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
	PromptsPath string
}

// StorageConfig holds upload storage settings.
type StorageConfig struct {
	UploadDir string
	MaxBytes  int64
}

// RulesConfig selects the classification table.
type RulesConfig struct {
	// Path of a YAML rule table; empty uses the built-in table
	Path string
}

// ImportConfig holds statement import settings.
type ImportConfig struct {
	MaxConcurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/spendlens.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			VisionModel: "gpt-4o",
			Timeout:     60 * time.Second,
		},
		Storage: StorageConfig{
			UploadDir: "data/uploads",
			MaxBytes:  10 << 20,
		},
		Import: ImportConfig{
			MaxConcurrency: 8,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when openai is enabled")
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}
	return nil
}
