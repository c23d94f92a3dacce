package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete admem configuration
type Config struct {
	Version   int             `json:"version" mapstructure:"version"`
	Storage   StorageConfig   `json:"storage" mapstructure:"storage"`
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding"`
	Index     IndexConfig     `json:"index" mapstructure:"index"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// StorageConfig contains database settings
type StorageConfig struct {
	// Path is the SQLite database file. Empty means <home>/admem.db.
	Path          string `json:"path" mapstructure:"path"`
	BusyTimeoutMs int    `json:"busyTimeoutMs" mapstructure:"busyTimeoutMs"`
	MaxOpenConns  int    `json:"maxOpenConns" mapstructure:"maxOpenConns"`
	MaxIdleConns  int    `json:"maxIdleConns" mapstructure:"maxIdleConns"`
}

// EmbeddingConfig contains embedding provider settings.
// The API key is never stored here; it comes from the environment.
type EmbeddingConfig struct {
	Model     string `json:"model" mapstructure:"model"`
	TimeoutMs int    `json:"timeoutMs" mapstructure:"timeoutMs"`
	Disabled  bool   `json:"disabled" mapstructure:"disabled"`
}

// IndexConfig controls the in-process vector index
type IndexConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Path:          "",
			BusyTimeoutMs: 5000,
			MaxOpenConns:  10,
			MaxIdleConns:  2,
		},
		Embedding: EmbeddingConfig{
			Model:     "claude-3-5-haiku-latest",
			TimeoutMs: 10000,
			Disabled:  false,
		},
		Index: IndexConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// Home returns the admem data directory, creating it if needed.
// Resolution: $ADMEM_HOME, else ~/.admem.
func Home() (string, error) {
	if dir := os.Getenv("ADMEM_HOME"); dir != "" {
		return dir, os.MkdirAll(dir, 0o755)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".admem")
	return dir, os.MkdirAll(dir, 0o755)
}

// LoadConfig loads configuration from <home>/config.json, returning defaults
// when the file does not exist.
func LoadConfig(home string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to <home>/config.json
func (c *Config) Save(home string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(home, "config.json"), data, 0o644)
}

// DatabasePath resolves the SQLite file location for this configuration
func (c *Config) DatabasePath(home string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(home, "admem.db")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Embedding.TimeoutMs <= 0 {
		return &ConfigError{Field: "embedding.timeoutMs", Message: "must be positive"}
	}
	if c.Storage.MaxOpenConns < 1 {
		return &ConfigError{Field: "storage.maxOpenConns", Message: "must be at least 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
