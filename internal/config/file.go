package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no file or env overrides exist.
func Default(dataDir string) *Config {
	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	return &Config{
		Server: ServerConfig{
			Address:      "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Storage: StorageConfig{
			DataDir:    dataDir,
			SQLitePath: filepath.Join(dataDir, "medtrack.db"),
			BadgerPath: filepath.Join(dataDir, "badger"),
		},
		Engine: EngineConfig{
			GracePeriodMinutes:     120,
			SweepInterval:          "@every 1m",
			RecentLogWindowMinutes: 240,
			AdherenceWindowDays:    30,
		},
		Security: SecurityConfig{
			AllowOrigins:   []string{"*"},
			RequestsPerSec: 20,
		},
	}
}

// WriteFile writes the configuration as YAML, creating parent directories.
// Used on first run so users have a file to edit.
func WriteFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}
