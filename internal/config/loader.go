package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigName is the default config file base name, looked up in the
	// home directory and the working directory
	ConfigName = ".inventory-vault"

	// EnvPrefix namespaces the environment variable overrides,
	// e.g. INVENTORY_VAULT_SERVER_ADDR
	EnvPrefix = "INVENTORY_VAULT"
)

// Loader reads the application configuration from file, environment,
// and bound flags through its own viper instance
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a configuration loader
func NewLoader() *Loader {
	return &Loader{
		viper: viper.New(),
	}
}

// Viper exposes the underlying instance so commands can bind flags
func (l *Loader) Viper() *viper.Viper {
	return l.viper
}

// Load reads configuration from the given file, or from the default
// search paths when configFile is empty. A missing default file is not
// an error; environment variables and defaults still apply.
func (l *Loader) Load(configFile string) (*Config, error) {
	l.setupViper(configFile)

	if err := l.viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if configFile != "" || !notFound {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFileUsed reports which file was read, empty if none
func (l *Loader) ConfigFileUsed() string {
	return l.viper.ConfigFileUsed()
}

func (l *Loader) setupViper(configFile string) {
	if configFile != "" {
		l.viper.SetConfigFile(configFile)
	} else {
		l.viper.SetConfigName(ConfigName)
		l.viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			l.viper.AddConfigPath(home)
		}
		l.viper.AddConfigPath(".")
	}

	l.viper.SetEnvPrefix(EnvPrefix)
	l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.viper.AutomaticEnv()

	l.setDefaults()
}

// setDefaults registers every key with viper so environment overrides
// apply even when the key is absent from the config file
func (l *Loader) setDefaults() {
	l.viper.SetDefault("store.engine", "sqlite")
	l.viper.SetDefault("store.path", "./data/inventory.db")
	l.viper.SetDefault("store.host", "")
	l.viper.SetDefault("store.port", 0)
	l.viper.SetDefault("store.username", "")
	l.viper.SetDefault("store.password", "")
	l.viper.SetDefault("store.database", "")
	l.viper.SetDefault("store.timeout", "30s")

	l.viper.SetDefault("catalog.path", "./data/catalog.db")

	l.viper.SetDefault("backup.storage.base_path", "./data/snapshots")
	l.viper.SetDefault("backup.storage.permissions", "0750")
	l.viper.SetDefault("backup.retention.window_days", 30)
	l.viper.SetDefault("backup.retention.min_count", 5)
	l.viper.SetDefault("backup.compression.enabled", true)
	l.viper.SetDefault("backup.compression.algorithm", "GZIP")
	l.viper.SetDefault("backup.compression.level", 6)
	l.viper.SetDefault("backup.encryption.enabled", false)
	l.viper.SetDefault("backup.encryption.key_source", "env")
	l.viper.SetDefault("backup.encryption.key_path", "")
	l.viper.SetDefault("backup.encryption.key_env_var", "INVENTORY_VAULT_ENCRYPTION_KEY")
	l.viper.SetDefault("backup.schedule.enabled", true)
	l.viper.SetDefault("backup.schedule.daily_at", "02:00")
	l.viper.SetDefault("backup.schedule.cron", "")
	l.viper.SetDefault("backup.schedule.catch_up", true)
	l.viper.SetDefault("backup.pending_grace", "15m")
	l.viper.SetDefault("backup.run_deadline", "30m")

	l.viper.SetDefault("server.addr", ":8080")

	l.viper.SetDefault("logging.level", "normal")
	l.viper.SetDefault("logging.format", "text")
	l.viper.SetDefault("logging.file", "")

	l.viper.SetDefault("import.mapping_file", "")

	l.viper.SetDefault("display.color_enabled", true)
	l.viper.SetDefault("display.theme", "dark")
	l.viper.SetDefault("display.output_format", "table")
	l.viper.SetDefault("display.use_icons", true)
	l.viper.SetDefault("display.show_progress", true)
	l.viper.SetDefault("display.interactive", true)
	l.viper.SetDefault("display.table_style", "default")
	l.viper.SetDefault("display.max_table_width", 120)
}

// WriteSample writes a fully commented sample configuration to path.
// It refuses to overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(SampleYAML()), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SampleYAML renders the default configuration as commented YAML
func SampleYAML() string {
	return `# inventory-vault configuration
# Every value can be overridden with ` + EnvPrefix + `_<SECTION>_<KEY>
# environment variables, e.g. ` + EnvPrefix + `_SERVER_ADDR=:9090

# Inventory database (the data being backed up and restored)
store:
  # Engine: sqlite, mysql
  engine: sqlite
  path: "./data/inventory.db"
  # MySQL settings (ignored for sqlite)
  # host: localhost
  # port: 3306
  # username: vault
  # password: ""
  # database: inventory
  timeout: 30s

# Snapshot, restore, and import run bookkeeping
catalog:
  path: "./data/catalog.db"

# Snapshot subsystem
backup:
  storage:
    base_path: "./data/snapshots"
    # Octal directory mode for created artifact directories
    permissions: "0750"
  retention:
    # Complete snapshots older than this many days become deletion
    # candidates
    window_days: 30
    # Always keep at least this many complete snapshots regardless of
    # age (0 = disabled)
    min_count: 5
  compression:
    enabled: true
    # Algorithm: GZIP, LZ4, ZSTD
    algorithm: GZIP
    level: 6
  encryption:
    enabled: false
    # Key source: env, file
    key_source: env
    key_env_var: "INVENTORY_VAULT_ENCRYPTION_KEY"
    # key_path: "/etc/inventory-vault/backup.key"
  schedule:
    enabled: true
    # Daily wall clock time, HH:MM
    daily_at: "02:00"
    # A cron expression overrides daily_at when set
    # cron: "0 2 * * *"
    # Run a missed snapshot at startup
    catch_up: true
  # Pending snapshots older than this are marked corrupt at startup
  pending_grace: 15m
  # Soft ceiling for a single backup or restore run
  run_deadline: 30m

# Admin HTTP API
server:
  addr: ":8080"

# Logging: quiet, normal, verbose, debug; format text or json
logging:
  level: normal
  format: text
  # file: "/var/log/inventory-vault.log"

# Legacy importer
import:
  # YAML mapping file overriding the built-in key mapping
  # mapping_file: "./mapping.yaml"

# Terminal output
display:
  color_enabled: true
  # Theme: dark, light, high-contrast, auto
  theme: dark
  # Output format: table, json, yaml, compact
  output_format: table
  use_icons: true
  show_progress: true
  interactive: true
  # Table style: default, rounded, grid, compact
  table_style: default
  max_table_width: 120
`
}
