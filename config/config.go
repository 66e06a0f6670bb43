package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const (
	IndexMemory   = "memory"
	IndexPgvector = "pgvector"
)

const envPrefix = "PDFCHAT"

// Config holds all process-wide settings, read once at startup.
type Config struct {
	Port     int    `default:"8080"`
	LogLevel string `default:"info" split_words:"true"`

	PostgresDSN string `envconfig:"POSTGRES_DSN" default:"postgres://localhost:5432/pdfchat?sslmode=disable"`
	BlobDir     string `split_words:"true" default:"./pdf-archive"`

	// Rate limiting has no sane default; an unconfigured limiter must be a
	// startup failure, not a silently open channel.
	RateMaxRequests   int `envconfig:"RATE_MAX_REQUESTS" required:"true"`
	RateWindowSeconds int `envconfig:"RATE_WINDOW_SECONDS" required:"true"`

	QuestionTimeoutSeconds int `envconfig:"QUESTION_TIMEOUT_SECONDS" default:"90"`
	TopK                   int `envconfig:"TOP_K" default:"4"`

	IndexProvider  string `split_words:"true" default:"memory"`
	IndexCacheSize int    `split_words:"true" default:"32"`

	Embeddings EmbeddingConfig
	LLM        LLMConfig

	OllamaHost    string `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
}

type EmbeddingConfig struct {
	Provider  string `default:"ollama"`
	Model     string `default:"nomic-embed-text"`
	Dimension int    `default:"768"`
}

type LLMConfig struct {
	Provider string `default:"ollama"`
	Model    string `default:"llama3.1:8b"`
}

// Load reads configuration from PDFCHAT_* environment variables. Missing or
// non-numeric rate-limit values are an error so main can refuse to start.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	if cfg.RateMaxRequests <= 0 {
		return Config{}, fmt.Errorf("rate limit max requests must be positive, got %d", cfg.RateMaxRequests)
	}
	if cfg.RateWindowSeconds <= 0 {
		return Config{}, fmt.Errorf("rate limit window must be positive, got %d seconds", cfg.RateWindowSeconds)
	}
	if cfg.Embeddings.Dimension <= 0 {
		return Config{}, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Embeddings.Dimension)
	}

	return cfg, nil
}

func (c Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSeconds) * time.Second
}

func (c Config) QuestionTimeout() time.Duration {
	return time.Duration(c.QuestionTimeoutSeconds) * time.Second
}
