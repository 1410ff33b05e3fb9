package backup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SystemConfig represents the complete snapshot subsystem configuration
type SystemConfig struct {
	Storage     StorageConfig     `yaml:"storage"`
	Retention   RetentionPolicy   `yaml:"retention"`
	Compression CompressionConfig `yaml:"compression"`
	Encryption  EncryptionConfig  `yaml:"encryption"`
	Schedule    ScheduleConfig    `yaml:"schedule"`

	// PendingGrace is how long a pending snapshot may age before the
	// startup sweep marks it corrupt
	PendingGrace time.Duration `yaml:"pending_grace"`

	// RunDeadline is the soft ceiling for a single backup or restore run.
	// Exceeding it logs a warning; the run is never cancelled.
	RunDeadline time.Duration `yaml:"run_deadline"`
}

// CompressionConfig selects the algorithm applied to snapshot dumps.
type CompressionConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Algorithm CompressionType `yaml:"algorithm"`
	Level     int             `yaml:"level"`
	Threshold int64           `yaml:"threshold"` // skip compression below this many bytes
}

// EncryptionConfig controls at-rest encryption of snapshot artifacts.
type EncryptionConfig struct {
	Enabled   bool   `yaml:"enabled"`
	KeySource string `yaml:"key_source"`  // "env" or "file"
	KeyPath   string `yaml:"key_path"`    // key file location, for the file source
	KeyEnvVar string `yaml:"key_env_var"` // variable holding the hex key, for the env source

	// KeyRetriever, when set, bypasses KeySource entirely. Tests and
	// external key management hooks use it.
	KeyRetriever func() ([]byte, error) `yaml:"-"`
}

// mergeValidation folds a sub-config's validation result into errs,
// flattening nested ValidationErrors so field names survive.
func mergeValidation(errs *ValidationErrors, field string, err error) {
	if err == nil {
		return
	}
	if validationErrs, ok := err.(ValidationErrors); ok {
		*errs = append(*errs, validationErrs...)
		return
	}
	errs.Add(field, err.Error(), nil)
}

// Validate validates the SystemConfig
func (sc *SystemConfig) Validate() error {
	var errs ValidationErrors

	mergeValidation(&errs, "storage", sc.Storage.Validate())
	mergeValidation(&errs, "retention", sc.Retention.Validate())
	mergeValidation(&errs, "compression", sc.Compression.Validate())
	mergeValidation(&errs, "encryption", sc.Encryption.Validate())
	mergeValidation(&errs, "schedule", sc.Schedule.Validate())

	if sc.PendingGrace < 0 {
		errs.Add("pending_grace", "pending grace cannot be negative", sc.PendingGrace)
	}
	if sc.RunDeadline < 0 {
		errs.Add("run_deadline", "run deadline cannot be negative", sc.RunDeadline)
	}

	return errs.ErrorOrNil()
}

// SetDefaults sets default values for the snapshot subsystem configuration
func (sc *SystemConfig) SetDefaults() {
	sc.Storage.SetDefaults()
	sc.Retention.SetDefaults()
	sc.Compression.SetDefaults()
	sc.Encryption.SetDefaults()
	sc.Schedule.SetDefaults()

	if sc.PendingGrace == 0 {
		sc.PendingGrace = DefaultPendingGrace
	}
	if sc.RunDeadline == 0 {
		sc.RunDeadline = 30 * time.Minute
	}
}

// Environment overrides apply only when the variable is set and, for
// typed values, parses cleanly. A malformed value leaves the loaded
// config untouched rather than zeroing it.

func envString(name string, target *string) {
	if val := os.Getenv(name); val != "" {
		*target = val
	}
}

func envBool(name string, target *bool) {
	if val := os.Getenv(name); val != "" {
		*target = strings.ToLower(val) == "true"
	}
}

func envInt(name string, target *int) {
	if val := os.Getenv(name); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*target = parsed
		}
	}
}

func envInt64(name string, target *int64) {
	if val := os.Getenv(name); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			*target = parsed
		}
	}
}

func envDuration(name string, target *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			*target = parsed
		}
	}
}

// LoadFromEnvironment loads configuration values from environment variables
func (sc *SystemConfig) LoadFromEnvironment() {
	sc.Storage.LoadFromEnvironment()
	sc.Retention.LoadFromEnvironment()
	sc.Compression.LoadFromEnvironment()
	sc.Encryption.LoadFromEnvironment()
	sc.Schedule.LoadFromEnvironment()

	envDuration("BACKUP_PENDING_GRACE", &sc.PendingGrace)
	envDuration("BACKUP_RUN_DEADLINE", &sc.RunDeadline)
}

// SetDefaults sets default values for retention configuration.
// MinCount is left alone: zero disables the floor and is a valid choice.
func (rp *RetentionPolicy) SetDefaults() {
	if rp.WindowDays == 0 {
		rp.WindowDays = DefaultRetentionWindowDays
	}
}

// LoadFromEnvironment loads retention configuration from environment variables
func (rp *RetentionPolicy) LoadFromEnvironment() {
	envInt("BACKUP_RETENTION_WINDOW_DAYS", &rp.WindowDays)
	envInt("BACKUP_RETENTION_MIN_COUNT", &rp.MinCount)
}

// compressionLevelBounds is the valid level range per algorithm.
var compressionLevelBounds = map[CompressionType]struct{ min, max int }{
	CompressionTypeGzip: {1, 9},
	CompressionTypeLZ4:  {1, 12},
	CompressionTypeZstd: {1, 22},
}

// Validate validates the CompressionConfig
func (cc *CompressionConfig) Validate() error {
	var errs ValidationErrors

	if cc.Enabled {
		if !isValidCompressionType(cc.Algorithm) {
			errs.Add("algorithm", "invalid compression algorithm", cc.Algorithm)
		}

		if bounds, ok := compressionLevelBounds[cc.Algorithm]; ok {
			if cc.Level < bounds.min || cc.Level > bounds.max {
				message := fmt.Sprintf("%s compression level must be between %d and %d",
					strings.ToLower(string(cc.Algorithm)), bounds.min, bounds.max)
				errs.Add("level", message, cc.Level)
			}
		}

		if cc.Threshold < 0 {
			errs.Add("threshold", "compression threshold cannot be negative", cc.Threshold)
		}
	}

	return errs.ErrorOrNil()
}

// SetDefaults sets default values for compression configuration
func (cc *CompressionConfig) SetDefaults() {
	if cc.Algorithm == "" {
		cc.Enabled = true
		cc.Algorithm = CompressionTypeGzip
	}

	if cc.Enabled && cc.Level == 0 {
		switch cc.Algorithm {
		case CompressionTypeGzip:
			cc.Level = 6
		case CompressionTypeLZ4:
			cc.Level = 1
		case CompressionTypeZstd:
			cc.Level = 3
		}
	}

	if cc.Threshold == 0 {
		cc.Threshold = 1024 // 1KB
	}
}

// LoadFromEnvironment loads compression configuration from environment variables
func (cc *CompressionConfig) LoadFromEnvironment() {
	envBool("BACKUP_COMPRESSION_ENABLED", &cc.Enabled)

	if val := os.Getenv("BACKUP_COMPRESSION_ALGORITHM"); val != "" {
		cc.Algorithm = CompressionType(strings.ToUpper(val))
	}

	envInt("BACKUP_COMPRESSION_LEVEL", &cc.Level)
	envInt64("BACKUP_COMPRESSION_THRESHOLD", &cc.Threshold)
}

// Validate validates the EncryptionConfig
func (ec *EncryptionConfig) Validate() error {
	var errs ValidationErrors

	if ec.Enabled {
		switch ec.KeySource {
		case "":
			errs.Add("key_source", "key source is required when encryption is enabled", ec.KeySource)
		case "env":
			if ec.KeyEnvVar == "" {
				errs.Add("key_env_var", "key environment variable name is required for env key source", ec.KeyEnvVar)
			}
		case "file":
			if ec.KeyPath == "" {
				errs.Add("key_path", "key file path is required for file key source", ec.KeyPath)
			}
		default:
			errs.Add("key_source", "invalid key source, must be 'env' or 'file'", ec.KeySource)
		}
	}

	return errs.ErrorOrNil()
}

// SetDefaults points an enabled but unconfigured encryption block at the
// conventional environment variable.
func (ec *EncryptionConfig) SetDefaults() {
	if ec.Enabled && ec.KeySource == "" {
		ec.KeySource = "env"
		ec.KeyEnvVar = "BACKUP_ENCRYPTION_KEY"
	}
}

// LoadFromEnvironment loads encryption configuration from environment variables
func (ec *EncryptionConfig) LoadFromEnvironment() {
	envBool("BACKUP_ENCRYPTION_ENABLED", &ec.Enabled)
	envString("BACKUP_ENCRYPTION_KEY_SOURCE", &ec.KeySource)
	envString("BACKUP_ENCRYPTION_KEY_PATH", &ec.KeyPath)
	envString("BACKUP_ENCRYPTION_KEY_ENV_VAR", &ec.KeyEnvVar)
}

// SetDefaults sets default values for storage configuration
func (sc *StorageConfig) SetDefaults() {
	if sc.BasePath == "" {
		sc.BasePath = "./data/snapshots"
	}
	if sc.Permissions == 0 {
		sc.Permissions = 0755
	}
}

// LoadFromEnvironment loads storage configuration from environment variables
func (sc *StorageConfig) LoadFromEnvironment() {
	envString("BACKUP_STORAGE_BASE_PATH", &sc.BasePath)

	if val := os.Getenv("BACKUP_STORAGE_PERMISSIONS"); val != "" {
		if parsed, err := strconv.ParseUint(val, 8, 32); err == nil {
			sc.Permissions = os.FileMode(parsed)
		}
	}
}

// SetDefaults sets default values for schedule configuration. An empty
// DailyAt marks a fresh config, so catch-up defaults on only then and a
// loaded catch_up: false survives repeated calls.
func (sc *ScheduleConfig) SetDefaults() {
	if sc.DailyAt == "" {
		sc.DailyAt = "02:00"
		sc.CatchUp = true
	}
}

// LoadFromEnvironment loads schedule configuration from environment variables
func (sc *ScheduleConfig) LoadFromEnvironment() {
	envBool("BACKUP_SCHEDULE_ENABLED", &sc.Enabled)
	envString("BACKUP_SCHEDULE_DAILY_AT", &sc.DailyAt)
	envString("BACKUP_SCHEDULE_CRON", &sc.Cron)
	envBool("BACKUP_SCHEDULE_CATCH_UP", &sc.CatchUp)
}
