package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"cortex-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIChatModel string `envconfig:"OPENAI_CHAT_MODEL"`

	OllamaURL   string `envconfig:"OLLAMA_URL"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"nomic-embed-text"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Chunking and retrieval tunables.
	MaxTokensPerChunk   int     `envconfig:"MAX_TOKENS_PER_CHUNK" default:"500"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.30"`
	TopK                int     `envconfig:"TOP_K" default:"5"`
	NativeSearch        bool    `envconfig:"NATIVE_SEARCH" default:"true"`
	UngroundedAnswers   bool    `envconfig:"UNGROUNDED_ANSWERS" default:"false"`

	// ReembedIntervalSeconds is the poll interval of the embedding
	// migration worker. Zero disables the worker.
	ReembedIntervalSeconds int `envconfig:"REEMBED_INTERVAL_SECONDS" default:"60"`

	// Bootstrap: create initial user on startup
	InitUserEmail string `envconfig:"INIT_USER_EMAIL"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CORTEX", &cfg); err != nil {
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

func (c *Config) HasOllama() bool {
	return c.OllamaURL != ""
}
