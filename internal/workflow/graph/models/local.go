package models

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	logx "github.com/contentstudio/server/pkg/logger"
)

// newLocalChatModels serves both roles from a self-hosted OpenAI compatible
// server (Ollama, vLLM, llama.cpp) through langchaingo.
func newLocalChatModels(config ChatModelConfig) (*ChatModels, error) {
	p := config.Provider
	newLLM := func(name string) (llms.Model, error) {
		return lcopenai.New(
			lcopenai.WithBaseURL(p.LocalBaseURL),
			lcopenai.WithToken(p.LocalAPIKey),
			lcopenai.WithModel(name),
		)
	}

	writer, err := newLLM(config.WriterModel.Model)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating local writer model")
		return nil, fmt.Errorf("error creating local writer model: %w", err)
	}
	fast, err := newLLM(config.FastModel.Model)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating local fast model")
		return nil, fmt.Errorf("error creating local fast model: %w", err)
	}

	return &ChatModels{
		Writer: WithDefaults(NewLangchainModel(writer),
			einomodel.WithMaxTokens(config.WriterModel.MaxTokens),
			einomodel.WithTemperature(config.WriterModel.Temperature),
		),
		Fast: WithDefaults(NewLangchainModel(fast),
			einomodel.WithMaxTokens(config.FastModel.MaxTokens),
			einomodel.WithTemperature(config.FastModel.Temperature),
		),
		WriterModelName: config.WriterModel.Model,
		FastModelName:   config.FastModel.Model,
	}, nil
}

// LangchainModel adapts a langchaingo llms.Model to an eino chat model.
type LangchainModel struct {
	llm llms.Model
}

func NewLangchainModel(llm llms.Model) *LangchainModel {
	return &LangchainModel{llm: llm}
}

func (m *LangchainModel) GetType() string { return "Langchain" }

func (m *LangchainModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	o := einomodel.GetCommonOptions(&einomodel.Options{}, opts...)

	var callOpts []llms.CallOption
	if o.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(float64(*o.Temperature)))
	}
	if o.MaxTokens != nil {
		callOpts = append(callOpts, llms.WithMaxTokens(*o.MaxTokens))
	}
	if o.TopP != nil {
		callOpts = append(callOpts, llms.WithTopP(float64(*o.TopP)))
	}
	if o.Model != nil && *o.Model != "" {
		callOpts = append(callOpts, llms.WithModel(*o.Model))
	}
	if len(o.Stop) > 0 {
		callOpts = append(callOpts, llms.WithStopWords(o.Stop))
	}

	resp, err := m.llm.GenerateContent(ctx, toMessageContent(input), callOpts...)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, errors.New("langchain model returned no choices")
	}

	choice := resp.Choices[0]
	out := schema.AssistantMessage(choice.Content, nil)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: choice.StopReason,
		Usage:        usageFrom(choice.GenerationInfo),
	}
	return out, nil
}

func (m *LangchainModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func toMessageContent(input []*schema.Message) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(input))
	for _, m := range input {
		if m == nil {
			continue
		}
		var role llms.ChatMessageType
		switch m.Role {
		case schema.System:
			role = llms.ChatMessageTypeSystem
		case schema.Assistant:
			role = llms.ChatMessageTypeAI
		case schema.Tool:
			role = llms.ChatMessageTypeTool
		default:
			role = llms.ChatMessageTypeHuman
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	return msgs
}

// usageFrom reads the token counts langchaingo providers put in GenerationInfo.
func usageFrom(info map[string]any) *schema.TokenUsage {
	if len(info) == 0 {
		return nil
	}
	usage := &schema.TokenUsage{
		PromptTokens:     intValue(info["PromptTokens"]),
		CompletionTokens: intValue(info["CompletionTokens"]),
		TotalTokens:      intValue(info["TotalTokens"]),
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if usage.TotalTokens == 0 {
		return nil
	}
	return usage
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
