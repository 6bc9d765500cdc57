package models

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	logx "github.com/contentstudio/server/pkg/logger"
)

func newGeminiChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	p := config.Provider
	if p.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  p.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = p.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	var thinking *genai.ThinkingConfig
	if p.GeminiThinkingBudget > 0 {
		thinking = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(p.GeminiThinkingBudget),
		}
	}

	writer, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          config.WriterModel.Model,
		Temperature:    &config.WriterModel.Temperature,
		MaxTokens:      &config.WriterModel.MaxTokens,
		TopP:           &config.WriterModel.TopP,
		ThinkingConfig: thinking,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating writer model")
		return nil, fmt.Errorf("error creating writer model: %w", err)
	}

	fast, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          config.FastModel.Model,
		Temperature:    &config.FastModel.Temperature,
		MaxTokens:      &config.FastModel.MaxTokens,
		TopP:           &config.FastModel.TopP,
		ThinkingConfig: thinking,
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
