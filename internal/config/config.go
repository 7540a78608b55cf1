package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Recalc   RecalcConfig   `yaml:"recalc"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port             int    `yaml:"port" validate:"gt=0,lte=65535"`
	MetricsPort      int    `yaml:"metrics_port" validate:"gt=0,lte=65535,nefield=Port"`
	AdminToken       string `yaml:"admin_token"`
	RateLimitPerMin  int    `yaml:"rate_limit_per_min" validate:"gte=0"`
	ShutdownTimeoutS int    `yaml:"shutdown_timeout_s" validate:"gt=0"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms" validate:"gt=0"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	URL    string `yaml:"url" validate:"required_if=Driver postgres"`
	Path   string `yaml:"path" validate:"required_if=Driver sqlite"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type CatalogConfig struct {
	// Path of a catalog YAML file; empty uses the built-in catalog.
	Path string `yaml:"path"`
}

type ScoringConfig struct {
	IntegrityTolerance float64 `yaml:"integrity_tolerance" validate:"gt=0,lte=100"`
}

type RecalcConfig struct {
	Workers        int     `yaml:"workers" validate:"gt=0,lte=256"`
	StoreTimeoutMs int     `yaml:"store_timeout_ms" validate:"gt=0"`
	OpsPerSecond   float64 `yaml:"ops_per_second" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Recalc.StoreTimeoutMs) * time.Millisecond
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutS) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutMs) * time.Millisecond
}

var validate = validator.New()

// Validate checks field constraints and reports every violation at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		problems[i] = fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:             8700,
			MetricsPort:      8701,
			RateLimitPerMin:  120,
			ShutdownTimeoutS: 15,
			RequestTimeoutMs: 30000,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/tally.db",
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Scoring: ScoringConfig{
			IntegrityTolerance: 0.5,
		},
		Recalc: RecalcConfig{
			Workers:        4,
			StoreTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TALLY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("TALLY_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("TALLY_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("TALLY_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TALLY_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("TALLY_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TALLY_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("TALLY_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("TALLY_INTEGRITY_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.IntegrityTolerance = f
		}
	}
	if v := os.Getenv("TALLY_RECALC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recalc.Workers = n
		}
	}
	if v := os.Getenv("TALLY_STORE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recalc.StoreTimeoutMs = n
		}
	}
	if v := os.Getenv("TALLY_RECALC_OPS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Recalc.OpsPerSecond = f
		}
	}
	if v := os.Getenv("TALLY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TALLY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
