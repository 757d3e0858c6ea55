package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Blob storage for uploaded documents. When S3 is not configured the
	// server falls back to a local directory store.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"relay-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	DataDir     string `envconfig:"DATA_DIR" default:"./data/documents"`

	// LLM/embedding providers, preferred in this order: OpenAI, OpenRouter,
	// Ollama. All speak the OpenAI wire protocol.
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel      string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenRouterAPIKey string `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterModel  string `envconfig:"OPENROUTER_MODEL" default:"mistralai/mistral-7b-instruct"`
	OllamaBaseURL    string `envconfig:"OLLAMA_BASE_URL"`
	OllamaModel      string `envconfig:"OLLAMA_MODEL" default:"llama3.2"`

	EmbeddingModel       string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	OllamaEmbeddingModel string        `envconfig:"OLLAMA_EMBEDDING_MODEL" default:"nomic-embed-text"`
	// EmbeddingDimensions must match the vector_entries column dimension
	// fixed by migration; the server refuses to start on a mismatch.
	EmbeddingDimensions int `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ProviderTimeout      time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"60s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RELAY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasOpenRouter() bool {
	return c.OpenRouterAPIKey != ""
}

func (c *Config) HasOllama() bool {
	return c.OllamaBaseURL != ""
}
