package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/contentstudio/server/internal/api"
	"github.com/contentstudio/server/internal/core"
	"github.com/contentstudio/server/internal/extract"
	"github.com/contentstudio/server/internal/media"
	"github.com/contentstudio/server/internal/search"
	"github.com/contentstudio/server/internal/transcript"
	"github.com/contentstudio/server/internal/workflow/model"
	pkgredis "github.com/contentstudio/server/pkg/redis"
)

// AppConfig defines every configurable parameter of the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Server api.Config
	Redis  pkgredis.Config

	// LLM provider and models
	Provider model.ProviderConfig
	Writer   model.WriterModelConfig
	Fast     model.FastModelConfig

	Workflow model.WorkflowConfig
	Threads  model.ThreadConfig

	// External services
	Search     search.Config
	Media      media.Config
	Transcript transcript.Config
	Extract    extract.Config
}

// LoadConfig reads envFile when it exists and fills AppConfig from the
// environment. A missing file is not an error.
func LoadConfig(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}

func (c *AppConfig) Environment() core.Environment {
	return core.ParseEnvironment(c.Env)
}

// ThreadTTL parses THREAD_TTL. Zero keeps threads forever.
func (c *AppConfig) ThreadTTL() (time.Duration, error) {
	if c.Threads.TTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.Threads.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid THREAD_TTL %q: %w", c.Threads.TTL, err)
	}
	return ttl, nil
}
