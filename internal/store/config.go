package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Supported live store engines.
const (
	EngineSQLite = "sqlite"
	EngineMySQL  = "mysql"
)

// DefaultSQLitePath is where the sqlite live store lives when no path is
// configured.
const DefaultSQLitePath = "./data/inventory.db"

// Config holds the connection parameters for the live inventory store.
// The sqlite engine needs only Path; the mysql engine needs host,
// credentials, and a database name.
type Config struct {
	Engine   string        `mapstructure:"engine" yaml:"engine"`
	Path     string        `mapstructure:"path" yaml:"path"`
	Host     string        `mapstructure:"host" yaml:"host"`
	Port     int           `mapstructure:"port" yaml:"port"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	Database string        `mapstructure:"database" yaml:"database"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Validate checks that the configuration is complete for its engine
func (c *Config) Validate() error {
	var errs []error

	switch c.Engine {
	case EngineSQLite:
		if c.Path == "" {
			errs = append(errs, errors.New("path is required for the sqlite engine"))
		}
	case EngineMySQL:
		if c.Host == "" {
			errs = append(errs, errors.New("host is required for the mysql engine"))
		}
		if c.Port <= 0 || c.Port > 65535 {
			errs = append(errs, errors.New("port must be between 1 and 65535"))
		}
		if c.Username == "" {
			errs = append(errs, errors.New("username is required for the mysql engine"))
		}
		if c.Database == "" {
			errs = append(errs, errors.New("database name is required for the mysql engine"))
		}
	case "":
		errs = append(errs, errors.New("engine is required"))
	default:
		errs = append(errs, fmt.Errorf("unsupported engine: %s", c.Engine))
	}

	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("store configuration validation failed: %v", errs)
	}

	return nil
}

// SetDefaults fills unset fields with default values
func (c *Config) SetDefaults() {
	if c.Engine == "" {
		c.Engine = EngineSQLite
	}
	if c.Engine == EngineSQLite && c.Path == "" {
		c.Path = DefaultSQLitePath
	}
	if c.Engine == EngineMySQL && c.Port == 0 {
		c.Port = 3306
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// DSN returns the Data Source Name for the configured engine
func (c *Config) DSN() string {
	if c.Engine == EngineMySQL {
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%s&parseTime=true",
			c.Username, c.Password, c.Host, c.Port, c.Database, c.Timeout)
	}
	return c.Path
}

// Target returns a human-readable description of the store, suitable for
// logging. Credentials never appear in it.
func (c *Config) Target() string {
	if c.Engine == EngineMySQL {
		return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
	}
	return c.Path
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() {
	if engine := os.Getenv("STORE_ENGINE"); engine != "" {
		c.Engine = engine
	}
	if path := os.Getenv("STORE_PATH"); path != "" {
		c.Path = path
	}
	if host := os.Getenv("STORE_HOST"); host != "" {
		c.Host = host
	}
	if portStr := os.Getenv("STORE_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Port = port
		}
	}
	if username := os.Getenv("STORE_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv("STORE_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv("STORE_DATABASE"); database != "" {
		c.Database = database
	}
	if timeoutStr := os.Getenv("STORE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			c.Timeout = timeout
		}
	}
}
