// Package config loads cosmic settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/deepkalilabs/marimo-cosmic/internal/domain"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/logging"
	"github.com/deepkalilabs/marimo-cosmic/internal/usecases/endpoint"
)

// Environment variable names.
const (
	EnvBaseURI     = "COSMIC_BASE_URI"
	EnvDevMode     = "COSMIC_DEV_MODE"
	EnvDevEndpoint = "COSMIC_DEV_ENDPOINT"
	EnvAddr        = "COSMIC_ADDR"
	EnvBasePath    = "COSMIC_BASE_PATH"
	EnvLogLevel    = "COSMIC_LOG_LEVEL"
	EnvUserID      = "COSMIC_USER_ID"
	EnvNotebookID  = "COSMIC_NOTEBOOK_ID"
)

// Defaults.
const (
	DefaultBaseURI = "http://localhost:2718/"
	DefaultAddr    = ":2718"
)

// Config holds the runtime settings of the CLI and the kernel dev server.
type Config struct {
	BaseURI     string // COSMIC_BASE_URI
	DevMode     string // COSMIC_DEV_MODE: auto, on or off
	DevEndpoint string // COSMIC_DEV_ENDPOINT
	Addr        string // COSMIC_ADDR
	BasePath    string // COSMIC_BASE_PATH
	LogLevel    string // COSMIC_LOG_LEVEL
	UserID      string // COSMIC_USER_ID
	NotebookID  string // COSMIC_NOTEBOOK_ID
}

// Load reads the configuration from the environment. Files named in
// envFiles are loaded first; with none given, ./.env is tried. Variables
// already set in the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, errors.Wrap(err, "config: load env file")
	}

	return &Config{
		BaseURI:     getEnv(EnvBaseURI, DefaultBaseURI),
		DevMode:     getEnv(EnvDevMode, string(endpoint.DevModeAuto)),
		DevEndpoint: getEnv(EnvDevEndpoint, endpoint.DefaultDevEndpoint),
		Addr:        getEnv(EnvAddr, DefaultAddr),
		BasePath:    getEnv(EnvBasePath, ""),
		LogLevel:    getEnv(EnvLogLevel, string(logging.InfoLevel)),
		UserID:      getEnv(EnvUserID, ""),
		NotebookID:  getEnv(EnvNotebookID, ""),
	}, nil
}

// Validate checks that the base URI parses and the dev mode is known.
func (c *Config) Validate() error {
	if _, err := domain.ParseBaseLocation(c.BaseURI); err != nil {
		return errors.Wrap(err, "config: "+EnvBaseURI)
	}
	if _, err := endpoint.ParseDevMode(c.DevMode); err != nil {
		return errors.Wrap(err, "config: "+EnvDevMode)
	}
	return nil
}

// ResolverOptions returns the endpoint options implied by the configuration.
func (c *Config) ResolverOptions() []endpoint.Option {
	mode, err := endpoint.ParseDevMode(c.DevMode)
	if err != nil {
		mode = endpoint.DevModeAuto
	}
	return []endpoint.Option{
		endpoint.WithDevMode(mode),
		endpoint.WithDevEndpoint(c.DevEndpoint),
	}
}

// Logging returns the logger configuration for the configured level.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.LogLevel)
	if cfg.Level == logging.DebugLevel {
		cfg.Development = true
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
