package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"visa-checker/internal/present"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port" env:"PORT"`
		CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Catalog struct {
		Default string `yaml:"default" env:"CATALOG_DEFAULT"`
		TTL     string `yaml:"ttl" env:"CATALOG_TTL"`
		Dir     string `yaml:"dir" env:"CATALOG_DIR"`
	} `yaml:"catalog"`
	Wizard struct {
		AdvanceDelay string `yaml:"advance_delay" env:"WIZARD_ADVANCE_DELAY"`
		SessionTTL   string `yaml:"session_ttl" env:"WIZARD_SESSION_TTL"`
	} `yaml:"wizard"`
	Results struct {
		Qualified   present.Copy `yaml:"qualified"`
		NeedsReview present.Copy `yaml:"needs_review"`
	} `yaml:"results"`
}

// Load reads YAML config from path and applies environment overrides. A
// missing file is not an error; the environment and defaults still apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseEnv overrides fields from environment variables. Unset variables leave
// the current value alone.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Presenter builds the verdict presenter from the results section.
func (c Config) Presenter() *present.Presenter {
	return present.New(c.Results.Qualified, c.Results.NeedsReview)
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
