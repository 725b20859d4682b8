package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for medtrack
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address" yaml:"address"`
	Port         int    `mapstructure:"port" yaml:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir" yaml:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path" yaml:"badger_path"`
}

// EngineConfig holds scheduling engine settings
type EngineConfig struct {
	// GracePeriodMinutes separates "due" from "overdue" after a scheduled dose.
	GracePeriodMinutes int `mapstructure:"grace_period_minutes" yaml:"grace_period_minutes"`
	// SweepInterval is a cron spec driving the periodic status refresh.
	SweepInterval string `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	// RecentLogWindowMinutes is how long a logged as-needed dose keeps the
	// taken/skipped status before reverting to not_due.
	RecentLogWindowMinutes int `mapstructure:"recent_log_window_minutes" yaml:"recent_log_window_minutes"`
	// AdherenceWindowDays is the trailing window for adherence statistics.
	AdherenceWindowDays int `mapstructure:"adherence_window_days" yaml:"adherence_window_days"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	AllowOrigins   []string `mapstructure:"allow_origins" yaml:"allow_origins"`
	RequestsPerSec float64  `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
}

// GracePeriod returns the due→overdue grace window as a duration.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Engine.GracePeriodMinutes) * time.Minute
}

// RecentLogWindow returns the as-needed status window as a duration.
func (c *Config) RecentLogWindow() time.Duration {
	return time.Duration(c.Engine.RecentLogWindowMinutes) * time.Minute
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "medtrack.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "badger"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "medtrack.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (MEDTRACK_SERVER_PORT, MEDTRACK_ENGINE_SWEEP_INTERVAL, etc.)
	v.SetEnvPrefix("MEDTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	// Engine defaults
	v.SetDefault("engine.grace_period_minutes", 120)
	v.SetDefault("engine.sweep_interval", "@every 1m")
	v.SetDefault("engine.recent_log_window_minutes", 240)
	v.SetDefault("engine.adherence_window_days", 30)

	// Security defaults
	v.SetDefault("security.allow_origins", []string{"*"})
	v.SetDefault("security.requests_per_sec", 20.0)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "medtrack")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "medtrack")
}

func validate(cfg *Config) error {
	if cfg.Engine.GracePeriodMinutes <= 0 {
		return fmt.Errorf("engine.grace_period_minutes must be positive")
	}
	if cfg.Engine.SweepInterval == "" {
		return fmt.Errorf("engine.sweep_interval is required")
	}
	if cfg.Engine.AdherenceWindowDays <= 0 {
		return fmt.Errorf("engine.adherence_window_days must be positive")
	}

	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateRandomString(32)
	}

	return nil
}

func generateRandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate secret: %v", err))
	}
	return hex.EncodeToString(b)
}
