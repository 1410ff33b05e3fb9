// Package config owns the application-level configuration: the YAML/env
// facing structs, defaults, validation, and the converters that produce
// each subsystem's native config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/catalog"
	"inventory-vault/internal/display"
	"inventory-vault/internal/logging"
	"inventory-vault/internal/store"
)

// Config is the root configuration for the vault. Durations and file
// modes are strings here so the YAML stays readable ("15m", "0750");
// the To* converters parse them into the subsystem types.
type Config struct {
	Store   store.Config          `mapstructure:"store" yaml:"store"`
	Catalog CatalogConfig         `mapstructure:"catalog" yaml:"catalog"`
	Backup  BackupConfig          `mapstructure:"backup" yaml:"backup"`
	Server  ServerConfig          `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig         `mapstructure:"logging" yaml:"logging"`
	Import  ImportConfig          `mapstructure:"import" yaml:"import"`
	Display display.DisplayConfig `mapstructure:"display" yaml:"display"`
}

// CatalogConfig locates the snapshot/restore/import catalog database
type CatalogConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// BackupConfig holds the snapshot subsystem settings
type BackupConfig struct {
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Retention   RetentionConfig   `mapstructure:"retention" yaml:"retention"`
	Compression CompressionConfig `mapstructure:"compression" yaml:"compression"`
	Encryption  EncryptionConfig  `mapstructure:"encryption" yaml:"encryption"`
	Schedule    ScheduleConfig    `mapstructure:"schedule" yaml:"schedule"`

	PendingGrace string `mapstructure:"pending_grace" yaml:"pending_grace"`
	RunDeadline  string `mapstructure:"run_deadline" yaml:"run_deadline"`
}

// StorageConfig locates the local artifact store
type StorageConfig struct {
	BasePath    string `mapstructure:"base_path" yaml:"base_path"`
	Permissions string `mapstructure:"permissions" yaml:"permissions"`
}

// RetentionConfig bounds how many complete snapshots survive pruning
type RetentionConfig struct {
	WindowDays int `mapstructure:"window_days" yaml:"window_days"`
	MinCount   int `mapstructure:"min_count" yaml:"min_count"`
}

// CompressionConfig selects the artifact compression algorithm
type CompressionConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
	Level     int    `mapstructure:"level" yaml:"level"`
}

// EncryptionConfig controls artifact encryption at rest
type EncryptionConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	KeySource string `mapstructure:"key_source" yaml:"key_source"`
	KeyPath   string `mapstructure:"key_path" yaml:"key_path"`
	KeyEnvVar string `mapstructure:"key_env_var" yaml:"key_env_var"`
}

// ScheduleConfig controls the daily snapshot scheduler
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DailyAt string `mapstructure:"daily_at" yaml:"daily_at"`
	Cron    string `mapstructure:"cron" yaml:"cron"`
	CatchUp bool   `mapstructure:"catch_up" yaml:"catch_up"`
}

// ServerConfig controls the admin HTTP listener
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// ImportConfig controls the legacy importer
type ImportConfig struct {
	// MappingFile points at a YAML list of key-pattern mapping entries.
	// Empty means the built-in default mapping.
	MappingFile string `mapstructure:"mapping_file" yaml:"mapping_file"`
}

// SetDefaults fills every unset field with its default
func (c *Config) SetDefaults() {
	c.Store.SetDefaults()

	if c.Catalog.Path == "" {
		c.Catalog.Path = catalog.DefaultPath
	}
	if c.Backup.Storage.BasePath == "" {
		c.Backup.Storage.BasePath = "./data/snapshots"
	}
	if c.Backup.Storage.Permissions == "" {
		c.Backup.Storage.Permissions = "0750"
	}
	if c.Backup.Retention.WindowDays == 0 {
		c.Backup.Retention.WindowDays = backup.DefaultRetentionWindowDays
	}
	if c.Backup.Retention.MinCount == 0 {
		c.Backup.Retention.MinCount = 5
	}
	if c.Backup.Compression.Algorithm == "" {
		c.Backup.Compression.Enabled = true
		c.Backup.Compression.Algorithm = "GZIP"
	}
	if c.Backup.Encryption.KeySource == "" {
		c.Backup.Encryption.KeySource = "env"
	}
	if c.Backup.Encryption.KeyEnvVar == "" {
		c.Backup.Encryption.KeyEnvVar = "INVENTORY_VAULT_ENCRYPTION_KEY"
	}
	if c.Backup.Schedule.DailyAt == "" {
		c.Backup.Schedule.Enabled = true
		c.Backup.Schedule.DailyAt = "02:00"
		c.Backup.Schedule.CatchUp = true
	}
	if c.Backup.PendingGrace == "" {
		c.Backup.PendingGrace = backup.DefaultPendingGrace.String()
	}
	if c.Backup.RunDeadline == "" {
		c.Backup.RunDeadline = "30m"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = string(logging.LogLevelNormal)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	c.Display.SetDefaults()
}

// Validate checks the whole configuration, collecting every problem
func (c *Config) Validate() error {
	var errs []error

	if err := c.Store.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog path is required"))
	}
	if c.Backup.Storage.BasePath == "" {
		errs = append(errs, errors.New("backup storage base_path is required"))
	}
	if _, err := parseFileMode(c.Backup.Storage.Permissions); err != nil {
		errs = append(errs, err)
	}
	if c.Backup.Retention.WindowDays < 0 {
		errs = append(errs, errors.New("retention window_days cannot be negative"))
	}
	if c.Backup.Retention.MinCount < 0 {
		errs = append(errs, errors.New("retention min_count cannot be negative"))
	}
	if _, err := time.ParseDuration(c.Backup.PendingGrace); err != nil {
		errs = append(errs, fmt.Errorf("invalid pending_grace %q: %w", c.Backup.PendingGrace, err))
	}
	if _, err := time.ParseDuration(c.Backup.RunDeadline); err != nil {
		errs = append(errs, fmt.Errorf("invalid run_deadline %q: %w", c.Backup.RunDeadline, err))
	}

	switch c.Logging.Level {
	case string(logging.LogLevelQuiet), string(logging.LogLevelNormal),
		string(logging.LogLevelVerbose), string(logging.LogLevelDebug):
	default:
		errs = append(errs, fmt.Errorf("unknown logging level %q", c.Logging.Level))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown logging format %q", c.Logging.Format))
	}
	if err := c.Display.Validate(); err != nil {
		errs = append(errs, err)
	}

	// The system config converter revalidates subsystem fields in depth
	if _, err := c.ToSystemConfig(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

// ToSystemConfig converts to the snapshot subsystem's native config,
// parsing the string-typed durations and file mode
func (c *Config) ToSystemConfig() (*backup.SystemConfig, error) {
	permissions, err := parseFileMode(c.Backup.Storage.Permissions)
	if err != nil {
		return nil, err
	}

	grace, err := time.ParseDuration(c.Backup.PendingGrace)
	if err != nil {
		return nil, fmt.Errorf("invalid pending_grace %q: %w", c.Backup.PendingGrace, err)
	}

	deadline, err := time.ParseDuration(c.Backup.RunDeadline)
	if err != nil {
		return nil, fmt.Errorf("invalid run_deadline %q: %w", c.Backup.RunDeadline, err)
	}

	system := &backup.SystemConfig{
		Storage: backup.StorageConfig{
			BasePath:    c.Backup.Storage.BasePath,
			Permissions: permissions,
		},
		Retention: backup.RetentionPolicy{
			WindowDays: c.Backup.Retention.WindowDays,
			MinCount:   c.Backup.Retention.MinCount,
		},
		Compression: backup.CompressionConfig{
			Enabled:   c.Backup.Compression.Enabled,
			Algorithm: backup.CompressionType(c.Backup.Compression.Algorithm),
			Level:     c.Backup.Compression.Level,
		},
		Encryption: backup.EncryptionConfig{
			Enabled:   c.Backup.Encryption.Enabled,
			KeySource: c.Backup.Encryption.KeySource,
			KeyPath:   c.Backup.Encryption.KeyPath,
			KeyEnvVar: c.Backup.Encryption.KeyEnvVar,
		},
		Schedule: backup.ScheduleConfig{
			Enabled: c.Backup.Schedule.Enabled,
			DailyAt: c.Backup.Schedule.DailyAt,
			Cron:    c.Backup.Schedule.Cron,
			CatchUp: c.Backup.Schedule.CatchUp,
		},
		PendingGrace: grace,
		RunDeadline:  deadline,
	}
	system.SetDefaults()

	if err := system.Validate(); err != nil {
		return nil, err
	}
	return system, nil
}

// ToLoggingConfig converts to the logger's native config
func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:   logging.LogLevel(c.Logging.Level),
		Format:  c.Logging.Format,
		LogFile: c.Logging.File,
	}
}

func parseFileMode(s string) (os.FileMode, error) {
	if s == "" {
		return 0o750, nil
	}
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid permissions %q: must be octal like 0750", s)
	}
	return os.FileMode(mode), nil
}
