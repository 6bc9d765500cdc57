// Package app wires configuration, storage, models and services into the
// compiled workflows used by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/contentstudio/server/internal/api"
	"github.com/contentstudio/server/internal/extract"
	"github.com/contentstudio/server/internal/media"
	"github.com/contentstudio/server/internal/search"
	"github.com/contentstudio/server/internal/transcript"
	"github.com/contentstudio/server/internal/workflow/graph"
	"github.com/contentstudio/server/internal/workflow/graph/models"
	"github.com/contentstudio/server/internal/workflow/graph/threads"
	"github.com/contentstudio/server/internal/workflow/model"
	"github.com/contentstudio/server/internal/workflow/repo"
	logx "github.com/contentstudio/server/pkg/logger"
)

type App struct {
	Config      *AppConfig
	Workflows   *graph.Workflows
	Threads     model.ThreadRepository
	Transcripts *transcript.Service

	images *media.ImageClient
	speech *media.TTSClient
	rdb    *redis.Client
}

// New builds the app. Chat models are created by newModels so tests can
// swap the provider.
func New(ctx context.Context, cfg *AppConfig) (*App, error) {
	return build(ctx, cfg, func(ctx context.Context) (*models.ChatModels, error) {
		return models.NewChatModels(ctx, models.ChatModelConfig{
			Provider:    cfg.Provider,
			WriterModel: &cfg.Writer,
			FastModel:   &cfg.Fast,
		})
	})
}

func build(ctx context.Context, cfg *AppConfig, newModels func(context.Context) (*models.ChatModels, error)) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app config is nil")
	}
	a := &App{Config: cfg}

	if err := a.openThreads(); err != nil {
		return nil, err
	}

	cms, err := newModels(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Transcripts = transcript.NewService(cfg.Transcript)
	gcfg := graph.Config{
		Models:      cms,
		Workflow:    cfg.Workflow,
		Transcripts: a.Transcripts,
		Extractor:   extract.New(cfg.Extract),
		Threads:     threads.NewRecorder(a.Threads),
	}
	if cfg.Search.APIKey != "" {
		gcfg.Search = search.NewTavilyClient(cfg.Search)
	} else {
		logx.Warn().Msg("TAVILY_API_KEY not set, research steps run without web search")
	}
	if cfg.Media.CaptionEndpoint != "" {
		gcfg.Captioner = media.NewCaptionClient(cfg.Media.CaptionEndpoint, cfg.Media.Timeout)
	}
	if cfg.Media.ImageEndpoint != "" {
		a.images = media.NewImageClient(cfg.Media.ImageEndpoint, cfg.Media.Timeout)
		gcfg.Images = a.images
	}
	if cfg.Media.TTSEndpoint != "" {
		a.speech = media.NewTTSClient(cfg.Media.TTSEndpoint, cfg.Media.Timeout)
	}

	a.Workflows, err = graph.BuildWorkflows(ctx, gcfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build workflows: %w", err)
	}
	return a, nil
}

// openThreads picks the Redis thread store when REDIS_URL is set and the
// in-memory one otherwise.
func (a *App) openThreads() error {
	ttl, err := a.Config.ThreadTTL()
	if err != nil {
		return err
	}
	limit := a.Config.Threads.RecentLimit

	if !a.Config.Redis.Enabled() {
		logx.Info().Msg("REDIS_URL not set, using in-memory thread store")
		a.Threads = repo.NewMemoryThreadRepository(ttl, limit)
		return nil
	}

	rdb, err := a.Config.Redis.New()
	if err != nil {
		logx.Error().Err(err).Msg("Failed to initialise Redis client")
		return fmt.Errorf("connect redis: %w", err)
	}
	logx.Info().Msg("Connected to Redis successfully")
	a.rdb = rdb
	a.Threads = repo.NewRedisThreadRepository(rdb, ttl, limit)
	return nil
}

// Server returns the HTTP server over the app services. Media routes are
// only enabled for configured endpoints.
func (a *App) Server() (*api.Server, error) {
	deps := api.Deps{Workflows: a.Workflows, Threads: a.Threads}
	if a.images != nil {
		deps.Images = a.images
	}
	if a.speech != nil {
		deps.Speech = a.speech
	}
	return api.NewServer(a.Config.Server, deps)
}

func (a *App) Close() {
	if a.rdb == nil {
		return
	}
	if err := a.rdb.Close(); err != nil {
		logx.Warn().Err(err).Msg("Error closing Redis client")
	}
	a.rdb = nil
}
