package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"
	"github.com/Onyinyechi46/Fund-Governance/pkg/observability"
	"github.com/Onyinyechi46/Fund-Governance/pkg/store"
)

// Config holds process configuration.
type Config struct {
	LogLevel     string `env:"FUNDGOV_LOG_LEVEL" envDefault:"INFO"`
	Store        string `env:"FUNDGOV_STORE" envDefault:"memory"`
	DatabaseURL  string `env:"FUNDGOV_DATABASE_URL" envDefault:"file:fundgov.db"`
	RedisAddr    string `env:"FUNDGOV_REDIS_ADDR" envDefault:"localhost:6379"`
	PolicyFile   string `env:"FUNDGOV_POLICY_FILE"`
	OTelEnabled  bool   `env:"FUNDGOV_OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string `env:"FUNDGOV_OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelInsecure bool   `env:"FUNDGOV_OTEL_INSECURE" envDefault:"false"`
	// SubmitRate caps submissions per instance per second. Zero disables.
	SubmitRate  float64 `env:"FUNDGOV_SUBMIT_RATE" envDefault:"0"`
	SubmitBurst int     `env:"FUNDGOV_SUBMIT_BURST" envDefault:"5"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	switch cfg.Store {
	case store.BackendMemory, store.BackendSQLite, store.BackendPostgres, store.BackendRedis:
	default:
		return nil, fmt.Errorf("FUNDGOV_STORE: unknown backend %q", cfg.Store)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.SubmitRate < 0 || cfg.SubmitBurst < 1 {
		return nil, fmt.Errorf("FUNDGOV_SUBMIT_RATE/BURST: invalid %v/%d", cfg.SubmitRate, cfg.SubmitBurst)
	}
	return &cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("FUNDGOV_LOG_LEVEL: %w", err)
	}
	return l, nil
}

// SlogLevel returns the configured level, INFO if it does not parse.
func (c *Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// StoreOptions addresses the configured backend.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:     c.Store,
		DatabaseURL: c.DatabaseURL,
		RedisAddr:   c.RedisAddr,
	}
}

// Observability returns the telemetry configuration.
func (c *Config) Observability() *observability.Config {
	oc := observability.DefaultConfig()
	oc.Enabled = c.OTelEnabled
	oc.OTLPEndpoint = c.OTelEndpoint
	oc.Insecure = c.OTelInsecure
	return oc
}

// Policy returns the policy from PolicyFile, or the default policy when no
// file is configured.
func (c *Config) Policy() (governance.Policy, error) {
	if c.PolicyFile == "" {
		return governance.DefaultPolicy(), nil
	}
	profile, err := LoadPolicyProfile(c.PolicyFile)
	if err != nil {
		return governance.Policy{}, err
	}
	return profile.Policy(), nil
}
