// Package config loads nodeversion settings from a YAML file, an optional
// .env file and NODEVERSION_* environment variables.
//
// Precedence, lowest first: defaults, config file, environment, command-line
// flags (applied by the caller through Merge).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nodeversion/internal/schema"
	"github.com/roach88/nodeversion/internal/temporal"
)

// Environment variables read by Load.
const (
	EnvDatabase     = "NODEVERSION_DB"
	EnvSchema       = "NODEVERSION_SCHEMA"
	EnvShadowSuffix = "NODEVERSION_SHADOW_SUFFIX"
	EnvBatchSize    = "NODEVERSION_BATCH_SIZE"
	EnvLogLevel     = "NODEVERSION_LOG_LEVEL"
	EnvLogPretty    = "NODEVERSION_LOG_PRETTY"
)

// DefaultDatabase is used when no database path is configured.
const DefaultDatabase = "nodeversion.db"

// Config holds the settings shared by the CLI commands.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// Schema is the path of the YAML table registry.
	Schema string `yaml:"schema"`

	ShadowSuffix string    `yaml:"shadow_suffix"`
	BatchSize    int       `yaml:"batch_size"`
	Log          LogConfig `yaml:"log"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database:     DefaultDatabase,
		ShadowSuffix: schema.DefaultShadowSuffix,
		BatchSize:    temporal.DefaultBatchSize,
		Log:          LogConfig{Level: "info"},
	}
}

// Merge overlays the non-zero fields of override onto c.
func (c Config) Merge(override Config) Config {
	result := c
	if v := strings.TrimSpace(override.Database); v != "" {
		result.Database = v
	}
	if v := strings.TrimSpace(override.Schema); v != "" {
		result.Schema = v
	}
	if v := strings.TrimSpace(override.ShadowSuffix); v != "" {
		result.ShadowSuffix = v
	}
	if override.BatchSize > 0 {
		result.BatchSize = override.BatchSize
	}
	if v := strings.TrimSpace(override.Log.Level); v != "" {
		result.Log.Level = strings.ToLower(v)
	}
	if override.Log.Pretty {
		result.Log.Pretty = true
	}
	return result
}

// Validate reports settings no command can run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return errors.New("database path required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment. A .env file in the working
// directory is loaded first when present; it never overrides variables that
// are already set.
func Load(path string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}

	envCfg, err := FromEnv(os.Getenv)
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a YAML config file. Unknown keys are rejected.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv reads NODEVERSION_* variables through getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Database:     strings.TrimSpace(getenv(EnvDatabase)),
		Schema:       strings.TrimSpace(getenv(EnvSchema)),
		ShadowSuffix: strings.TrimSpace(getenv(EnvShadowSuffix)),
		Log: LogConfig{
			Level: strings.TrimSpace(getenv(EnvLogLevel)),
		},
	}

	if v := strings.TrimSpace(getenv(EnvBatchSize)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvBatchSize, err)
		}
		cfg.BatchSize = n
	}
	if v := strings.TrimSpace(getenv(EnvLogPretty)); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogPretty, err)
		}
		cfg.Log.Pretty = pretty
	}
	return cfg, nil
}
