package model

import "time"

// ================ Config ================

// ProviderConfig selects the LLM backend shared by every workflow.
type ProviderConfig struct {
	Provider string        `envconfig:"LLM_PROVIDER" default:"groq"`
	Timeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"120s"`

	GroqAPIKey  string `envconfig:"GROQ_API_KEY"`
	GroqBaseURL string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`

	GeminiAPIKey         string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL        string `envconfig:"GEMINI_BASE_URL"`
	GeminiThinkingBudget int32  `envconfig:"GEMINI_THINKING_BUDGET" default:"0"`

	// Local serves any OpenAI compatible endpoint, e.g. Ollama or vLLM.
	LocalBaseURL string `envconfig:"LOCAL_LLM_BASE_URL" default:"http://localhost:11434/v1"`
	LocalAPIKey  string `envconfig:"LOCAL_LLM_API_KEY" default:"ollama"`
}

// WriterModelConfig is the large model used for long-form drafting.
type WriterModelConfig struct {
	Model       string  `envconfig:"WRITER_MODEL" default:"llama-3.3-70b-versatile"`
	MaxTokens   int     `envconfig:"WRITER_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"WRITER_TEMPERATURE" default:"0.7"`
	TopP        float32 `envconfig:"WRITER_TOP_P" default:"1"`
}

// FastModelConfig is the small model used for research and reviews.
type FastModelConfig struct {
	Model       string  `envconfig:"FAST_MODEL" default:"llama-3.1-8b-instant"`
	MaxTokens   int     `envconfig:"FAST_MAX_TOKENS" default:"512"`
	Temperature float32 `envconfig:"FAST_TEMPERATURE" default:"0.7"`
	TopP        float32 `envconfig:"FAST_TOP_P" default:"1"`
}

type WorkflowConfig struct {
	MaxRevisions       int  `envconfig:"WORKFLOW_MAX_REVISIONS" default:"2"`
	MaxRunSteps        int  `envconfig:"WORKFLOW_MAX_RUN_STEPS" default:"30"`
	ResearchResults    int  `envconfig:"WORKFLOW_RESEARCH_RESULTS" default:"5"`
	TrendResults       int  `envconfig:"WORKFLOW_TREND_RESULTS" default:"3"`
	TranscriptMaxChars int  `envconfig:"WORKFLOW_TRANSCRIPT_MAX_CHARS" default:"12000"`
	HeroImage          bool `envconfig:"WORKFLOW_HERO_IMAGE" default:"false"`
}

type ThreadConfig struct {
	TTL         string `envconfig:"THREAD_TTL" default:"72h"`
	RecentLimit int    `envconfig:"THREAD_RECENT_LIMIT" default:"200"`
}

// DefaultWorkflowConfig mirrors the envconfig defaults for callers that
// build workflows without the environment (CLI tests, examples).
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		MaxRevisions:       2,
		MaxRunSteps:        30,
		ResearchResults:    5,
		TrendResults:       3,
		TranscriptMaxChars: 12000,
	}
}
