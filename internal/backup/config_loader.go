package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigLoader handles loading and parsing snapshot subsystem configuration
type ConfigLoader struct {
	configPath string
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader(configPath string) *ConfigLoader {
	return &ConfigLoader{configPath: configPath}
}

// LoadConfig loads the configuration from file and environment variables.
// Defaults apply first, then the file, then the environment.
func (cl *ConfigLoader) LoadConfig() (*SystemConfig, error) {
	config := &SystemConfig{}
	config.SetDefaults()

	if cl.configPath != "" {
		if err := cl.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	return finishLoad(config)
}

// LoadConfigFromBytes loads configuration from YAML bytes
func LoadConfigFromBytes(data []byte) (*SystemConfig, error) {
	config := &SystemConfig{}
	config.SetDefaults()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return finishLoad(config)
}

// finishLoad applies environment overrides and validates the assembled
// config. Shared tail of the file and byte loaders.
func finishLoad(config *SystemConfig) (*SystemConfig, error) {
	config.LoadFromEnvironment()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// loadFromFile overlays YAML from the config path onto config. A missing
// file is not an error; the defaults stay in force.
func (cl *ConfigLoader) loadFromFile(config *SystemConfig) error {
	data, err := os.ReadFile(cl.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cl.configPath, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func (cl *ConfigLoader) SaveConfig(config *SystemConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cl.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cl.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefaultConfig generates a default configuration
func GenerateDefaultConfig() *SystemConfig {
	return &SystemConfig{
		Storage: StorageConfig{
			BasePath:    "./data/snapshots",
			Permissions: 0755,
		},
		Retention: RetentionPolicy{
			WindowDays: DefaultRetentionWindowDays,
			MinCount:   5,
		},
		Compression: CompressionConfig{
			Enabled:   true,
			Algorithm: CompressionTypeGzip,
			Level:     6,
			Threshold: 1024, // 1KB
		},
		Encryption: EncryptionConfig{
			Enabled:   false,
			KeySource: "env",
			KeyEnvVar: "BACKUP_ENCRYPTION_KEY",
		},
		Schedule: ScheduleConfig{
			Enabled: true,
			DailyAt: "02:00",
			CatchUp: true,
		},
		PendingGrace: DefaultPendingGrace,
		RunDeadline:  30 * time.Minute,
	}
}

// GenerateDefaultConfigYAML generates a default configuration as YAML with comments
func GenerateDefaultConfigYAML() ([]byte, error) {
	configYAML := `# Snapshot subsystem configuration
# This file configures backup, restore, and retention for inventory-vault

# Artifact storage configuration
storage:
  # Directory snapshot artifacts are written to
  base_path: "./data/snapshots"
  permissions: 0755

# Retention policy
retention:
  # Complete snapshots older than this many days become deletion
  # candidates (default: 30)
  window_days: 30

  # Always keep at least this many complete snapshots regardless of
  # age (0 = disabled)
  min_count: 5

# Compression settings
compression:
  # Enable compression
  enabled: true

  # Compression algorithm: GZIP, LZ4, ZSTD
  algorithm: GZIP

  # Compression level (1-9 for GZIP, 1-12 for LZ4, 1-22 for ZSTD)
  level: 6

  # Minimum size in bytes to compress (smaller dumps won't be compressed)
  threshold: 1024

# Encryption settings
encryption:
  # Enable artifact encryption (AES-256-GCM)
  enabled: false

  # Key source: env, file
  key_source: env

  # Environment variable name for encryption key (when key_source is env)
  key_env_var: BACKUP_ENCRYPTION_KEY

  # Path to key file (when key_source is file)
  # key_path: "/path/to/encryption.key"

# Scheduled backups
schedule:
  # Enable the daily backup scheduler
  enabled: true

  # Local time of day for the daily backup, HH:MM
  daily_at: "02:00"

  # Raw five-field cron expression; overrides daily_at when set
  # cron: "0 2 * * *"

  # Run a backup at startup when the newest complete snapshot is older
  # than one full schedule interval
  catch_up: true

# How long a pending snapshot may sit before the startup sweep marks it
# corrupt (a crashed writer never finishes its record)
pending_grace: 15m

# Soft ceiling for a single backup or restore run. Exceeding it logs a
# warning; the run is never cancelled.
run_deadline: 30m
`

	return []byte(configYAML), nil
}
