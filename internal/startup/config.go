package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"media-directory/internal/logging"
	"media-directory/internal/storage/backends"
	"media-directory/internal/storage/mysql"
	"media-directory/internal/storage/postgres"
	"media-directory/internal/storage/sqlite"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "CDS_CONFIG"

// Config holds all application configuration
type Config struct {
	Port            string        `toml:"port"`
	MetricsPort     string        `toml:"metrics_port"`
	MetricsEnabled  bool          `toml:"metrics_enabled"`
	MetricsInterval time.Duration `toml:"metrics_interval"`
	LogHealthChecks bool          `toml:"log_health_checks"`

	Storage StorageConfig `toml:"storage"`
	Updates UpdatesConfig `toml:"updates"`

	// Path of the file the config was read from, if any.
	File string `toml:"-"`
}

// StorageConfig selects and configures the catalog backend.
type StorageConfig struct {
	Driver            string         `toml:"driver"`
	RemovalBatchLimit int            `toml:"removal_batch_limit"`
	SQLite            SQLiteConfig   `toml:"sqlite"`
	MySQL             MySQLConfig    `toml:"mysql"`
	Postgres          PostgresConfig `toml:"postgres"`
}

// SQLiteConfig configures the embedded backend.
type SQLiteConfig struct {
	File           string        `toml:"file"`
	Synchronous    string        `toml:"synchronous"`
	OnError        string        `toml:"on_error"`
	Backup         bool          `toml:"backup"`
	BackupInterval time.Duration `toml:"backup_interval"`
	QueueSize      int           `toml:"queue_size"`
}

// MySQLConfig configures the MySQL backend.
type MySQLConfig struct {
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	MaxConns int    `toml:"max_connections"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	DSN      string `toml:"dsn"`
	MaxConns int    `toml:"max_connections"`
}

// UpdatesConfig configures container update id batching.
type UpdatesConfig struct {
	FlushInterval time.Duration `toml:"flush_interval"`
	Threshold     int           `toml:"threshold"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		MetricsPort:     "9090",
		MetricsEnabled:  true,
		MetricsInterval: time.Minute,
		LogHealthChecks: true,
		Storage: StorageConfig{
			Driver: backends.DriverSQLite,
			SQLite: SQLiteConfig{
				File:           "/database/cds.db",
				Synchronous:    "NORMAL",
				OnError:        sqlite.OnErrorRestore,
				Backup:         true,
				BackupInterval: 10 * time.Minute,
			},
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				Database: "cds",
			},
		},
		Updates: UpdatesConfig{
			FlushInterval: 2 * time.Second,
			Threshold:     100,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional TOML file at
// path (or $CDS_CONFIG) and environment overrides, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		for _, key := range md.Undecoded() {
			logging.Warn("Unknown config key %q in %s", key.String(), path)
		}
		cfg.File = path
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.MetricsPort = getEnv("METRICS_PORT", c.MetricsPort)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)
	c.MetricsInterval = getEnvDuration("METRICS_INTERVAL", c.MetricsInterval)
	c.LogHealthChecks = getEnvBool("LOG_HEALTH_CHECKS", c.LogHealthChecks)

	s := &c.Storage
	s.Driver = getEnv("STORAGE_DRIVER", s.Driver)
	s.RemovalBatchLimit = getEnvInt("REMOVAL_BATCH_LIMIT", s.RemovalBatchLimit)

	s.SQLite.File = getEnv("SQLITE_FILE", s.SQLite.File)
	s.SQLite.Synchronous = getEnv("SQLITE_SYNCHRONOUS", s.SQLite.Synchronous)
	s.SQLite.OnError = getEnv("SQLITE_ON_ERROR", s.SQLite.OnError)
	s.SQLite.Backup = getEnvBool("SQLITE_BACKUP", s.SQLite.Backup)
	s.SQLite.BackupInterval = getEnvDuration("SQLITE_BACKUP_INTERVAL", s.SQLite.BackupInterval)

	s.MySQL.DSN = getEnv("MYSQL_DSN", s.MySQL.DSN)
	s.MySQL.Host = getEnv("MYSQL_HOST", s.MySQL.Host)
	s.MySQL.Port = getEnvInt("MYSQL_PORT", s.MySQL.Port)
	s.MySQL.User = getEnv("MYSQL_USER", s.MySQL.User)
	s.MySQL.Password = getEnv("MYSQL_PASSWORD", s.MySQL.Password)
	s.MySQL.Database = getEnv("MYSQL_DATABASE", s.MySQL.Database)

	s.Postgres.DSN = getEnv("POSTGRES_DSN", s.Postgres.DSN)

	c.Updates.FlushInterval = getEnvDuration("UPDATE_FLUSH_INTERVAL", c.Updates.FlushInterval)
	c.Updates.Threshold = getEnvInt("UPDATE_THRESHOLD", c.Updates.Threshold)
}

// driver normalizes the configured driver name, or returns "" if unknown.
func (c *Config) driver() string {
	d, err := backends.Normalize(c.Storage.Driver)
	if err != nil {
		return ""
	}
	return d
}

func (c *Config) validate() error {
	var errs []error

	switch c.driver() {
	case backends.DriverSQLite:
		sq := &c.Storage.SQLite
		switch strings.ToUpper(sq.Synchronous) {
		case "OFF", "NORMAL", "FULL", "EXTRA":
		default:
			errs = append(errs, fmt.Errorf("sqlite synchronous must be OFF, NORMAL, FULL or EXTRA, got %q", sq.Synchronous))
		}
		switch sq.OnError {
		case sqlite.OnErrorRestore, sqlite.OnErrorFail:
		default:
			errs = append(errs, fmt.Errorf("sqlite on_error must be %q or %q, got %q", sqlite.OnErrorRestore, sqlite.OnErrorFail, sq.OnError))
		}
		if sq.File == "" {
			errs = append(errs, errors.New("sqlite file is empty"))
		} else if abs, err := filepath.Abs(sq.File); err == nil {
			sq.File = abs
		}
	case backends.DriverMySQL:
		if c.Storage.MySQL.DSN == "" && c.Storage.MySQL.Database == "" {
			errs = append(errs, errors.New("mysql needs a dsn or a database name"))
		}
	case backends.DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres dsn is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if c.Port == "" {
		errs = append(errs, errors.New("port is empty"))
	}
	return errors.Join(errs...)
}

// IsSQLite reports whether the embedded backend is selected.
func (c *Config) IsSQLite() bool { return c.driver() == backends.DriverSQLite }

// PrepareStorage makes sure the database directory exists and is writable.
// It is a no-op for client/server backends.
func (c *Config) PrepareStorage() error {
	if !c.IsSQLite() {
		return nil
	}
	dir := filepath.Dir(c.Storage.SQLite.File)
	if err := checkDatabaseDir(dir); err != nil {
		return fmt.Errorf("database directory: %w", err)
	}
	logging.Info("  [OK] Database directory %s is writable", dir)
	return nil
}

// Backend returns the backend factory settings.
func (c *Config) Backend(observer sqlite.Observer) backends.Config {
	s := c.Storage
	return backends.Config{
		Driver: s.Driver,
		SQLite: sqlite.Options{
			Path:           s.SQLite.File,
			Synchronous:    s.SQLite.Synchronous,
			OnError:        s.SQLite.OnError,
			BackupEnabled:  s.SQLite.Backup,
			BackupInterval: s.SQLite.BackupInterval,
			QueueSize:      s.SQLite.QueueSize,
			Observer:       observer,
		},
		MySQL: mysql.Config{
			DSN:      s.MySQL.DSN,
			Host:     s.MySQL.Host,
			Port:     s.MySQL.Port,
			User:     s.MySQL.User,
			Password: s.MySQL.Password,
			Database: s.MySQL.Database,
			MaxConns: s.MySQL.MaxConns,
		},
		Postgres: postgres.Config{
			DSN:      s.Postgres.DSN,
			MaxConns: s.Postgres.MaxConns,
		},
		RemovalBatchLimit: s.RemovalBatchLimit,
	}
}

// LogConfig logs the effective configuration. Secrets are masked.
func LogConfig(c *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if c.File != "" {
		logging.Info("  Config file:            %s", c.File)
	}
	logging.Info("  PORT:                   %s", c.Port)
	logging.Info("  METRICS_PORT:           %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:        %v", c.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:      %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:              %s", logging.GetLevel())
	logging.Info("  STORAGE_DRIVER:         %s", c.Storage.Driver)

	switch c.driver() {
	case backends.DriverSQLite:
		sq := c.Storage.SQLite
		logging.Info("  SQLITE_FILE:            %s", sq.File)
		logging.Info("  SQLITE_SYNCHRONOUS:     %s", sq.Synchronous)
		logging.Info("  SQLITE_ON_ERROR:        %s", sq.OnError)
		logging.Info("  SQLITE_BACKUP:          %v", sq.Backup)
		logging.Info("  SQLITE_BACKUP_INTERVAL: %s", sq.BackupInterval)
	case backends.DriverPostgres:
		logging.Info("  POSTGRES_DSN:           %s", maskSecret(c.Storage.Postgres.DSN))
	case backends.DriverMySQL:
		my := c.Storage.MySQL
		if my.DSN != "" {
			logging.Info("  MYSQL_DSN:              %s", maskSecret(my.DSN))
		} else {
			logging.Info("  MYSQL:                  %s@%s:%d/%s", my.User, my.Host, my.Port, my.Database)
		}
	}
	logging.Info("  UPDATE_FLUSH_INTERVAL:  %s", c.Updates.FlushInterval)
	logging.Info("")
}

// maskSecret hides everything after the first four characters.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return parsed
}
