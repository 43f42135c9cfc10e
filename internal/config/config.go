// Package config loads the process configuration: defaults, then an
// optional YAML file, then environment-variable overrides, in that order.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	DefaultInterval time.Duration
	DefaultWorkers  int
	ControlAddr     string

	StorageDriver string
	SQLitePath    string

	PGHost     string
	PGPort     int
	PGUser     string
	PGPassword string
	PGDatabase string

	FetchTimeout time.Duration
	FetchSpacing time.Duration

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// fileConfig mirrors the YAML layout. Durations are strings in the file
// ("3m", "20s") and parsed on load.
type fileConfig struct {
	Interval    string `yaml:"interval"`
	Workers     int    `yaml:"workers"`
	ControlAddr string `yaml:"control_addr"`
	Storage     struct {
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
		Postgres   struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			Database string `yaml:"database"`
		} `yaml:"postgres"`
	} `yaml:"storage"`
	Fetch struct {
		Timeout string `yaml:"timeout"`
		Spacing string `yaml:"spacing"`
	} `yaml:"fetch"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// Load reads configuration. The config file path comes from
// FEEDHUB_CONFIG; a missing or empty path just means defaults plus env.
func Load() Config {
	return load(os.Getenv("FEEDHUB_CONFIG"))
}

func load(path string) Config {
	cfg := Config{
		DefaultInterval: 3 * time.Minute,
		DefaultWorkers:  3,
		ControlAddr:     "127.0.0.1:8088",
		StorageDriver:   DriverPostgres,
		SQLitePath:      "feedhub.db",
		PGHost:          "localhost",
		PGPort:          5432,
		PGUser:          "postgres",
		PGPassword:      "changeme",
		PGDatabase:      "feedhub",
		FetchTimeout:    20 * time.Second,
		LogLevel:        "info",
	}

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err == nil {
				applyFile(&cfg, fc)
			}
		}
	}

	cfg.DefaultInterval = durationEnv("FEEDHUB_INTERVAL", cfg.DefaultInterval)
	cfg.DefaultWorkers = intEnv("FEEDHUB_WORKERS", cfg.DefaultWorkers)
	cfg.ControlAddr = getenv("FEEDHUB_CONTROL_ADDR", cfg.ControlAddr)
	cfg.StorageDriver = getenv("FEEDHUB_STORAGE_DRIVER", cfg.StorageDriver)
	cfg.SQLitePath = getenv("FEEDHUB_SQLITE_PATH", cfg.SQLitePath)
	cfg.PGHost = getenv("POSTGRES_HOST", cfg.PGHost)
	cfg.PGPort = intEnv("POSTGRES_PORT", cfg.PGPort)
	cfg.PGUser = getenv("POSTGRES_USER", cfg.PGUser)
	cfg.PGPassword = getenv("POSTGRES_PASSWORD", cfg.PGPassword)
	cfg.PGDatabase = getenv("POSTGRES_DBNAME", cfg.PGDatabase)
	cfg.FetchTimeout = durationEnv("FEEDHUB_FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.FetchSpacing = durationEnv("FEEDHUB_FETCH_SPACING", cfg.FetchSpacing)
	cfg.LogLevel = getenv("FEEDHUB_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getenv("FEEDHUB_LOG_FILE", cfg.LogFile)
	return cfg
}

func applyFile(cfg *Config, fc fileConfig) {
	if d, err := time.ParseDuration(fc.Interval); err == nil && fc.Interval != "" {
		cfg.DefaultInterval = d
	}
	if fc.Workers > 0 {
		cfg.DefaultWorkers = fc.Workers
	}
	if fc.ControlAddr != "" {
		cfg.ControlAddr = fc.ControlAddr
	}
	if fc.Storage.Driver != "" {
		cfg.StorageDriver = fc.Storage.Driver
	}
	if fc.Storage.SQLitePath != "" {
		cfg.SQLitePath = fc.Storage.SQLitePath
	}
	if fc.Storage.Postgres.Host != "" {
		cfg.PGHost = fc.Storage.Postgres.Host
	}
	if fc.Storage.Postgres.Port > 0 {
		cfg.PGPort = fc.Storage.Postgres.Port
	}
	if fc.Storage.Postgres.User != "" {
		cfg.PGUser = fc.Storage.Postgres.User
	}
	if fc.Storage.Postgres.Password != "" {
		cfg.PGPassword = fc.Storage.Postgres.Password
	}
	if fc.Storage.Postgres.Database != "" {
		cfg.PGDatabase = fc.Storage.Postgres.Database
	}
	if d, err := time.ParseDuration(fc.Fetch.Timeout); err == nil && fc.Fetch.Timeout != "" {
		cfg.FetchTimeout = d
	}
	if d, err := time.ParseDuration(fc.Fetch.Spacing); err == nil && fc.Fetch.Spacing != "" {
		cfg.FetchSpacing = d
	}
	if fc.Log.Level != "" {
		cfg.LogLevel = fc.Log.Level
	}
	if fc.Log.File != "" {
		cfg.LogFile = fc.Log.File
	}
	cfg.LogMaxSizeMB = fc.Log.MaxSizeMB
	cfg.LogMaxBackups = fc.Log.MaxBackups
	cfg.LogMaxAgeDays = fc.Log.MaxAgeDays
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
