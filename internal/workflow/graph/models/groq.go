package models

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"

	logx "github.com/contentstudio/server/pkg/logger"
)

// newGroqChatModels talks to Groq through its OpenAI compatible API.
func newGroqChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	p := config.Provider
	if p.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required for the groq provider")
	}

	writer, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      p.GroqAPIKey,
		BaseURL:     p.GroqBaseURL,
		Model:       config.WriterModel.Model,
		Timeout:     p.Timeout,
		MaxTokens:   &config.WriterModel.MaxTokens,
		Temperature: &config.WriterModel.Temperature,
		TopP:        &config.WriterModel.TopP,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating writer model")
		return nil, fmt.Errorf("error creating writer model: %w", err)
	}

	fast, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      p.GroqAPIKey,
		BaseURL:     p.GroqBaseURL,
		Model:       config.FastModel.Model,
		Timeout:     p.Timeout,
		MaxTokens:   &config.FastModel.MaxTokens,
		Temperature: &config.FastModel.Temperature,
		TopP:        &config.FastModel.TopP,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating fast model")
		return nil, fmt.Errorf("error creating fast model: %w", err)
	}

	return &ChatModels{
		Writer:          writer,
		Fast:            fast,
		WriterModelName: config.WriterModel.Model,
		FastModelName:   config.FastModel.Model,
	}, nil
}
