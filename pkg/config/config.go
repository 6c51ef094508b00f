package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment holds every runtime setting. Env vars use the OPENCAT__ prefix
// with double-underscore nesting; a TOML file may supply defaults
// that env vars always override.
type Environment struct {
	// Server
	ServerHost      string `env:"OPENCAT__SERVER__HOST,default=0.0.0.0"`
	ServerPort      int    `env:"OPENCAT__SERVER__PORT,default=8080"`
	ServerSecretKey string `env:"OPENCAT__SERVER__SECRET_KEY"`
	RunMode         string `env:"OPENCAT__RUN_MODE,default=development"`

	// Database
	DatabaseURL    string `env:"OPENCAT__DATABASE__URL"`
	DatabaseDriver string `env:"OPENCAT__DATABASE__DRIVER,default=postgres"`

	// Redis (optional; fail-open when unset)
	RedisURL string `env:"OPENCAT__REDIS__URL"`

	// Webhook delivery worker tuning
	WebhookPollIntervalSeconds int `env:"OPENCAT__WEBHOOK__POLL_INTERVAL_SECONDS,default=1"`
	WebhookBatchSize           int `env:"OPENCAT__WEBHOOK__BATCH_SIZE,default=50"`

	// Apple catalog sync scheduler; 0 disables the periodic sweep and leaves
	// sync manual-only via POST /v1/apps/{id}/sync-products.
	CatalogSyncIntervalMinutes int `env:"OPENCAT__CATALOG_SYNC__INTERVAL_MINUTES,default=0"`

	// API key lookup cache TTL (successful lookups only); must stay short
	// enough that a revocation is honored within seconds.
	APIKeyCacheTTLSeconds int `env:"OPENCAT__AUTH__API_KEY_CACHE_TTL_SECONDS,default=5"`

	// Offerings projection cache TTL. Catalog writes invalidate eagerly,
	// so this only bounds staleness across replicas sharing one Redis.
	OfferingsCacheTTLSeconds int `env:"OPENCAT__CACHE__OFFERINGS_TTL_SECONDS,default=60"`
}

// fileDefaults is the subset of Environment a TOML defaults file may set.
// Kept as its own struct so TOML tags never collide with the env tags on
// Environment's fields.
type fileDefaults struct {
	Server struct {
		Host      string `toml:"host"`
		Port      int    `toml:"port"`
		SecretKey string `toml:"secret_key"`
	} `toml:"server"`
	Database struct {
		URL    string `toml:"url"`
		Driver string `toml:"driver"`
	} `toml:"database"`
	Redis struct {
		URL string `toml:"url"`
	} `toml:"redis"`
}

// LoadConfig loads a TOML defaults file (if present), then overlays
// environment variables, which always win.
func LoadConfig() (Environment, error) {
	var cfg Environment

	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		slog.Error("Problem reading environment config", "err", err)
		return cfg, err
	}

	// File defaults are applied after env unmarshalling, but only to
	// fields whose env var was not explicitly set: go-env fills tag
	// defaults for absent vars, and those must not beat the file.
	applyFileDefaults(&cfg, "config.toml")

	if err := validateConfig(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func applyFileDefaults(cfg *Environment, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var defaults fileDefaults
	if err := toml.Unmarshal(raw, &defaults); err != nil {
		slog.Warn("Failed to parse TOML config defaults, ignoring file", "path", path, "error", err)
		return
	}

	envSet := func(name string) bool {
		_, ok := os.LookupEnv(name)
		return ok
	}

	if defaults.Server.Host != "" && !envSet("OPENCAT__SERVER__HOST") {
		cfg.ServerHost = defaults.Server.Host
	}
	if defaults.Server.Port != 0 && !envSet("OPENCAT__SERVER__PORT") {
		cfg.ServerPort = defaults.Server.Port
	}
	if defaults.Server.SecretKey != "" && !envSet("OPENCAT__SERVER__SECRET_KEY") {
		cfg.ServerSecretKey = defaults.Server.SecretKey
	}
	if defaults.Database.URL != "" && !envSet("OPENCAT__DATABASE__URL") {
		cfg.DatabaseURL = defaults.Database.URL
	}
	if defaults.Database.Driver != "" && !envSet("OPENCAT__DATABASE__DRIVER") {
		cfg.DatabaseDriver = defaults.Database.Driver
	}
	if defaults.Redis.URL != "" && !envSet("OPENCAT__REDIS__URL") {
		cfg.RedisURL = defaults.Redis.URL
	}
}

func validateConfig(cfg *Environment) error {
	validate := validator.New()

	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseURL == "" {
		slog.Warn("OPENCAT__DATABASE__URL not set for postgres driver")
	}

	return validate.Struct(cfg)
}

// IsProduction returns true if running in production mode. The Apple
// adapter refuses to skip JWS chain verification when this is true.
func (e *Environment) IsProduction() bool {
	return e.RunMode == "production"
}

// IsDevelopment returns true if running in local/dev mode.
func (e *Environment) IsDevelopment() bool {
	return !e.IsProduction()
}

// Addr returns the host:port the HTTP server should bind.
func (e *Environment) Addr() string {
	return fmt.Sprintf("%s:%d", e.ServerHost, e.ServerPort)
}
