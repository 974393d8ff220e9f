// Package config loads the search cache configuration from YAML, .env files
// and environment variables, in that order of precedence, lowest first.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-search-cache/cache"
	"github.com/goliatone/go-search-cache/search"
	"github.com/goliatone/go-search-cache/store"
)

// Environment variables that override file values.
const (
	EnvDriver      = "SEARCH_CACHE_DB_DRIVER"
	EnvDSN         = "SEARCH_CACHE_DB_DSN"
	EnvLogLevel    = "SEARCH_CACHE_LOG_LEVEL"
	EnvEnvironment = "SEARCH_CACHE_ENV"
)

// Environments.
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// Config is the full configuration.
type Config struct {
	Environment string                           `yaml:"environment" json:"environment"`
	Database    Database                         `yaml:"database" json:"database"`
	Cache       map[cache.Partition]cache.Config `yaml:"cache" json:"cache"`
	Search      search.TTLs                      `yaml:"search" json:"search"`
	Log         Log                              `yaml:"log" json:"log"`
	Metrics     Metrics                          `yaml:"metrics" json:"metrics"`
}

// Database selects and tunes the datastore connection.
type Database struct {
	Driver          string        `yaml:"driver" json:"driver"`
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout" json:"query_timeout"`
}

// Options converts the database section for store.Open.
func (d Database) Options() store.Options {
	return store.Options{
		Driver:       d.Driver,
		DSN:          d.DSN,
		MaxOpenConns: d.MaxOpenConns,
		MaxIdleConns: d.MaxIdleConns,
		ConnMaxLife:  d.ConnMaxLifetime,
	}
}

// Log configures the zap logger.
type Log struct {
	Level string `yaml:"level" json:"level"`
}

// Metrics configures the prometheus collector.
type Metrics struct {
	Namespace string `yaml:"namespace" json:"namespace"`
}

// Default returns the built in configuration: an in-memory SQLite
// database, the default partitions and the default search TTLs.
func Default() *Config {
	return &Config{
		Environment: Development,
		Database: Database{
			Driver:       store.DriverSQLite,
			DSN:          "file::memory:?cache=shared",
			MaxOpenConns: 10,
			QueryTimeout: store.DefaultQueryTimeout,
		},
		Cache:   cache.DefaultConfigs(),
		Search:  search.DefaultTTLs(),
		Log:     Log{Level: "info"},
		Metrics: Metrics{Namespace: "search"},
	}
}

// Load reads path over the defaults, loads the given .env files, applies
// environment overrides and validates the result. An empty path skips the
// file. Missing .env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read config file "+path).
				WithTextCode("CONFIG_READ")
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	partitions := c.Cache
	c.Cache = nil

	if err := yaml.Unmarshal(data, c); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "failed to parse config").
			WithTextCode("CONFIG_PARSE")
	}

	// partitions listed in the file only override the fields they set
	for name, def := range partitions {
		if override, ok := c.Cache[name]; ok {
			partitions[name] = mergePartition(def, override)
		}
	}
	for name, override := range c.Cache {
		if _, ok := partitions[name]; !ok {
			partitions[name] = mergePartition(cache.DefaultConfig(), override)
		}
	}
	c.Cache = partitions
	return nil
}

func mergePartition(base, override cache.Config) cache.Config {
	if override.Capacity != 0 {
		base.Capacity = override.Capacity
	}
	if override.NumShards != 0 {
		base.NumShards = override.NumShards
	}
	if override.TTL != 0 {
		base.TTL = override.TTL
		if override.MaxTTL == 0 && base.MaxTTL < base.TTL {
			base.MaxTTL = 4 * base.TTL
		}
	}
	if override.MaxTTL != 0 {
		base.MaxTTL = override.MaxTTL
	}
	if override.EvictionPercentage != 0 {
		base.EvictionPercentage = override.EvictionPercentage
	}
	if override.SweepInterval != 0 {
		base.SweepInterval = override.SweepInterval
	}
	return base
}

func loadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return goerrors.Wrap(err, goerrors.CategoryValidation, "failed to load env file "+f).
				WithTextCode("CONFIG_ENV")
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvDriver); v != "" {
		c.Database.Driver = v
	}
	if v := getenv(EnvDSN); v != "" {
		c.Database.DSN = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvEnvironment); v != "" {
		c.Environment = v
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Environment, validation.Required, validation.In(Development, Production, Test)),
		validation.Field(&c.Database),
		validation.Field(&c.Log),
		validation.Field(&c.Cache, validation.Required, validation.By(validatePartitions)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid configuration").WithTextCode("CONFIG_INVALID")
	}
	return nil
}

// Validate implements validation.Validatable.
func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(store.DriverPostgres, store.DriverSQLite, "sqlite")),
		validation.Field(&d.DSN, validation.Required),
		validation.Field(&d.MaxOpenConns, validation.Min(0)),
		validation.Field(&d.QueryTimeout, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (l Log) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}

func validatePartitions(value any) error {
	partitions, _ := value.(map[cache.Partition]cache.Config)

	errs := validation.Errors{}
	for _, p := range cache.Partitions() {
		cfg, ok := partitions[p]
		if !ok {
			errs[string(p)] = errors.New("partition is not configured")
			continue
		}
		if err := cfg.Validate(); err != nil {
			errs[string(p)] = err
		}
	}
	return errs.Filter()
}
