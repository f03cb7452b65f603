package config

import (
	"github.com/garyjia/spendlens/internal/container"
)

// ToContainerConfig converts the file-based configuration into the
// container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		OpenAI: container.OpenAIConfig{
			Enabled:     c.OpenAI.Enabled,
			APIKey:      c.OpenAI.APIKey,
			BaseURL:     c.OpenAI.BaseURL,
			Model:       c.OpenAI.Model,
			VisionModel: c.OpenAI.VisionModel,
			Timeout:     c.OpenAI.Timeout,
			PromptsPath: c.OpenAI.PromptsPath,
		},
		Storage: container.StorageConfig{
			UploadDir: c.Upload.Dir,
			MaxBytes:  c.Upload.MaxBytes,
		},
		Rules: container.RulesConfig{
			Path: c.Rules.Path,
		},
		Import: container.ImportConfig{
			MaxConcurrency: c.Import.MaxConcurrency,
		},
	}
}
