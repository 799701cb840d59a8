package config

import (
	"fmt"
	"time"

	"github.com/corvid-labs/quill/internal/util"

	"github.com/go-playground/validator"
)

// Provider selects which model backend serves embeddings and chat.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Config is the full runtime configuration, read from the environment once
// at startup.
type Config struct {
	Port  string
	Debug bool

	DatabaseURL string `validate:"required"`

	Provider Provider `validate:"required,oneof=openai ollama"`

	// OpenAI-compatible backend settings.
	OpenAIKey          string
	OpenAIURL          string
	OpenAIEmbeddingKey string
	OpenAIEmbeddingURL string

	// Ollama backend settings.
	OllamaURL    string
	OllamaAPIKey string

	EmbeddingModel string `validate:"required"`
	EmbeddingDim   int    `validate:"gt=0"`
	ChatModel      string `validate:"required"`
	SynthesisModel string
	ExpansionModel string

	// RerankModel enables cross-encoder reranking when set. Ollama only.
	RerankModel string

	ExpandQueries    bool
	UseAuthority     bool
	UseMultiDocument bool

	// ConfidenceThreshold in (0,1]; 0 is reserved and selects the pipeline
	// default.
	ConfidenceThreshold float64 `validate:"gte=0,lte=1"`
	MaxResults          int     `validate:"gt=0"`
	AuthorityCacheTTL   time.Duration

	// ExemplarsPath points to a JSON file of few-shot exemplars. Empty
	// disables few-shot prompting.
	ExemplarsPath string
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:  util.GetEnvString("PORT", "8080"),
		Debug: util.GetEnvBool("DEBUG", false),

		DatabaseURL: util.GetEnv("DATABASE_URL"),

		Provider: Provider(util.GetEnvString("AI_PROVIDER", string(ProviderOpenAI))),

		OpenAIKey:          util.GetEnv("OPENAI_API_KEY"),
		OpenAIURL:          util.GetEnv("OPENAI_BASE_URL"),
		OpenAIEmbeddingKey: util.GetEnvString("OPENAI_EMBEDDING_API_KEY", util.GetEnv("OPENAI_API_KEY")),
		OpenAIEmbeddingURL: util.GetEnvString("OPENAI_EMBEDDING_BASE_URL", util.GetEnv("OPENAI_BASE_URL")),

		OllamaURL:    util.GetEnv("OLLAMA_URL"),
		OllamaAPIKey: util.GetEnv("OLLAMA_API_KEY"),

		EmbeddingModel: util.GetEnvString("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:   int(util.GetEnvNumeric("EMBEDDING_DIM", 1536)),
		ChatModel:      util.GetEnvString("CHAT_MODEL", "gpt-4o-mini"),
		SynthesisModel: util.GetEnv("SYNTHESIS_MODEL"),
		ExpansionModel: util.GetEnv("EXPANSION_MODEL"),
		RerankModel:    util.GetEnv("RERANK_MODEL"),

		ExpandQueries:    util.GetEnvBool("EXPAND_QUERIES", false),
		UseAuthority:     util.GetEnvBool("USE_AUTHORITY_RERANK", true),
		UseMultiDocument: util.GetEnvBool("USE_MULTI_DOCUMENT", true),

		ConfidenceThreshold: util.GetEnvNumeric("CONFIDENCE_THRESHOLD", 0.5),
		MaxResults:          int(util.GetEnvNumeric("MAX_RESULTS", 10)),
		AuthorityCacheTTL:   time.Duration(util.GetEnvNumeric("AUTHORITY_CACHE_TTL_MINUTES", 60)) * time.Minute,

		ExemplarsPath: util.GetEnv("EXEMPLARS_PATH"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Provider == ProviderOpenAI && cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
	}
	return cfg, nil
}
