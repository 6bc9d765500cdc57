package models

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	Provider    model.ProviderConfig
	WriterModel *model.WriterModelConfig
	FastModel   *model.FastModelConfig
}

// ChatModels holds the writer (long-form) and fast (research, review) models.
type ChatModels struct {
	Writer          einomodel.BaseChatModel
	Fast            einomodel.BaseChatModel
	WriterModelName string
	FastModelName   string
}

// Tuned is a chat model with per-node default options.
type Tuned struct {
	Name  string
	Model einomodel.BaseChatModel
}

// WriterWith returns the writer model with node specific defaults.
func (cm *ChatModels) WriterWith(opts ...einomodel.Option) Tuned {
	return Tuned{Name: cm.WriterModelName, Model: WithDefaults(cm.Writer, opts...)}
}

// FastWith returns the fast model with node specific defaults.
func (cm *ChatModels) FastWith(opts ...einomodel.Option) Tuned {
	return Tuned{Name: cm.FastModelName, Model: WithDefaults(cm.Fast, opts...)}
}

func (cm *ChatModels) validate() error {
	if cm == nil || cm.Writer == nil || cm.Fast == nil {
		return fmt.Errorf("chat models are not properly initialized")
	}
	return nil
}

// Validate reports whether both models are set.
func (cm *ChatModels) Validate() error { return cm.validate() }

// NewChatModels creates the writer and fast chat models for the configured provider.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.WriterModel == nil || config.FastModel == nil {
		return nil, fmt.Errorf("model configs are nil")
	}

	var (
		cms *ChatModels
		err error
	)
	provider := strings.ToLower(strings.TrimSpace(config.Provider.Provider))
	switch provider {
	case ProviderGroq, "":
		cms, err = newGroqChatModels(ctx, config)
	case ProviderGemini:
		cms, err = newGeminiChatModels(ctx, config)
	case ProviderLocal, "ollama":
		cms, err = newLocalChatModels(config)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider.Provider)
	}
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("provider", provider).
		Str("writer_model", cms.WriterModelName).
		Str("fast_model", cms.FastModelName).
		Msg("Chat models initialised")
	return cms, nil
}
