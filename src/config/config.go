// Package config loads service configuration from defaults, an optional YAML
// file and CAFE_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const ConfigPathEnvVar = "CAFE_CONFIG"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Form     FormConfig     `koanf:"form"`
	Elastic  ElasticConfig  `koanf:"elastic"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Debug           bool          `koanf:"debug"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	TemplatePath    string        `koanf:"template_path"`
}

type DatabaseConfig struct {
	Path     string `koanf:"path" validate:"required"`
	SeedFile string `koanf:"seed_file"`
}

type SecurityConfig struct {
	// APIKey is the shared secret for the report-closed route.
	APIKey string `koanf:"api_key" validate:"required_without=APIKeyHash"`
	// APIKeyHash is a bcrypt hash of the shared secret; takes precedence over APIKey.
	APIKeyHash      string        `koanf:"api_key_hash"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

type FormConfig struct {
	// StrictBooleans accepts only on/true/1/yes as true instead of any non-empty value.
	StrictBooleans bool `koanf:"strict_booleans"`
}

type ElasticConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url" validate:"required_if=Enabled true"`
	Index   string `koanf:"index" validate:"required_if=Enabled true"`

	// ResyncInterval is how often a stale index is rebuilt from the store.
	ResyncInterval time.Duration `koanf:"resync_interval" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "cafes.db",
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Elastic: ElasticConfig{
			URL:            "http://localhost:9200",
			Index:          "cafes",
			ResyncInterval: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var envMappings = map[string]string{
	"cafe_host":              "server.host",
	"cafe_port":              "server.port",
	"cafe_debug":             "server.debug",
	"cafe_read_timeout":      "server.read_timeout",
	"cafe_write_timeout":     "server.write_timeout",
	"cafe_shutdown_timeout":  "server.shutdown_timeout",
	"cafe_template_path":     "server.template_path",
	"cafe_db_path":           "database.path",
	"cafe_seed_file":         "database.seed_file",
	"cafe_api_key":           "security.api_key",
	"cafe_api_key_hash":      "security.api_key_hash",
	"cafe_rate_limit_reqs":   "security.rate_limit_reqs",
	"cafe_rate_limit_window": "security.rate_limit_window",
	"cafe_cors_origins":      "security.cors_origins",
	"cafe_strict_booleans":   "form.strict_booleans",
	"cafe_elastic_enabled":   "elastic.enabled",
	"cafe_elastic_url":       "elastic.url",
	"cafe_elastic_index":     "elastic.index",
	"cafe_elastic_resync":    "elastic.resync_interval",
	"cafe_log_level":         "logging.level",
	"cafe_log_format":        "logging.format",
}

// envTransformFunc maps CAFE_* variables to config paths; anything else is skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load builds the configuration: defaults, then the config file, then env.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("CAFE_", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCommaList(k, "security.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.Server.Debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitCommaList turns a comma separated env value into a string slice.
func splitCommaList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}
