// Package config loads settings for the question-answering server and CLI.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"go-rag-qa/rag"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Provider names accepted in the provider setting.
const (
	ProviderOpenAI = "openai"
	ProviderCompat = "compat"
	ProviderSimple = "simple"
)

// Config holds all configuration values.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Model provider
	Provider            string  `koanf:"provider"`
	OpenAIAPIKey        string  `koanf:"openai_api_key"`
	OpenAIBaseURL       string  `koanf:"openai_base_url"`
	CompletionModel     string  `koanf:"completion_model"`
	DocEmbeddingModel   string  `koanf:"doc_embedding_model"`
	QueryEmbeddingModel string  `koanf:"query_embedding_model"`
	MaxTokens           int     `koanf:"max_tokens"`
	Temperature         float64 `koanf:"temperature"`

	// Corpus and retrieval
	EmbeddingsPath   string `koanf:"embeddings_path"`
	SectionsPath     string `koanf:"sections_path"`
	Metric           string `koanf:"metric"`
	TopK             int    `koanf:"top_k"`
	MaxContextTokens int    `koanf:"max_context_tokens"`
}

// Configuration validation errors.
var (
	ErrUnknownProvider     = errors.New("PROVIDER must be one of openai, compat, simple")
	ErrMissingOpenAIAPIKey = errors.New("OPENAI_API_KEY is required for the openai provider")
	ErrMissingBaseURL      = errors.New("OPENAI_BASE_URL is required for the compat provider")
	ErrUnknownMetric       = errors.New("SIMILARITY_METRIC must be dot or cosine")
	ErrInvalidNumber       = errors.New("invalid numeric value")
	ErrMissingEmbeddings   = errors.New("EMBEDDINGS_PATH is required")
	ErrMissingSections     = errors.New("SECTIONS_PATH is required")
)

// Default values for non-secret configuration.
const (
	DefaultPort             = 8080
	DefaultEnv              = "development"
	DefaultProvider         = ProviderOpenAI
	DefaultCompletionModel  = "gpt-3.5-turbo-instruct"
	DefaultEmbeddingModel   = "text-embedding-ada-002"
	DefaultMetric           = "cosine"
	DefaultTopK             = 5
	DefaultMaxContextTokens = 500
	DefaultMaxTokens        = 300
	DefaultTemperature      = 0.0
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	intSetting := func(envKey, koanfKey string, def int) int {
		v, err := getEnvIntOrDefault(envKey, k.Int(koanfKey), def)
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
		return v
	}

	temperature := DefaultTemperature
	if k.Exists("temperature") {
		temperature = k.Float64("temperature")
	}
	if val := os.Getenv("TEMPERATURE"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			loadErrs = append(loadErrs, fmt.Errorf("TEMPERATURE must be a valid float: %w", ErrInvalidNumber))
		} else {
			temperature = f
		}
	}

	cfg := &Config{
		Port:                intSetting("PORT", "port", DefaultPort),
		Env:                 getEnvOrDefault("ENV", k.String("env"), DefaultEnv),
		Provider:            getEnvOrDefault("PROVIDER", k.String("provider"), DefaultProvider),
		OpenAIAPIKey:        getEnvOrKoanf("OPENAI_API_KEY", k, "openai_api_key"),
		OpenAIBaseURL:       getEnvOrKoanf("OPENAI_BASE_URL", k, "openai_base_url"),
		CompletionModel:     getEnvOrDefault("COMPLETION_MODEL", k.String("completion_model"), DefaultCompletionModel),
		DocEmbeddingModel:   getEnvOrDefault("DOC_EMBEDDING_MODEL", k.String("doc_embedding_model"), DefaultEmbeddingModel),
		QueryEmbeddingModel: getEnvOrDefault("QUERY_EMBEDDING_MODEL", k.String("query_embedding_model"), DefaultEmbeddingModel),
		MaxTokens:           intSetting("MAX_TOKENS", "max_tokens", DefaultMaxTokens),
		Temperature:         temperature,
		EmbeddingsPath:      getEnvOrKoanf("EMBEDDINGS_PATH", k, "embeddings_path"),
		SectionsPath:        getEnvOrKoanf("SECTIONS_PATH", k, "sections_path"),
		Metric:              getEnvOrDefault("SIMILARITY_METRIC", k.String("metric"), DefaultMetric),
		TopK:                intSetting("TOP_K", "top_k", DefaultTopK),
		MaxContextTokens:    intSetting("MAX_CONTEXT_TOKENS", "max_context_tokens", DefaultMaxContextTokens),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// A zero value from the file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidNumber)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks provider and retrieval settings.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, ErrMissingOpenAIAPIKey)
		}
	case ProviderCompat:
		if c.OpenAIBaseURL == "" {
			errs = append(errs, ErrMissingBaseURL)
		}
	case ProviderSimple:
	default:
		errs = append(errs, ErrUnknownProvider)
	}

	if _, err := rag.ParseMetric(c.Metric); err != nil {
		errs = append(errs, ErrUnknownMetric)
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range: %w", c.Port, ErrInvalidNumber))
	}
	if c.TopK < 0 {
		errs = append(errs, fmt.Errorf("TOP_K must not be negative: %w", ErrInvalidNumber))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TOKENS must be positive: %w", ErrInvalidNumber))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("TEMPERATURE must be within [0, 2]: %w", ErrInvalidNumber))
	}

	return errs
}

// ValidateCorpus checks the settings needed to answer questions from a
// precomputed corpus.
func (c *Config) ValidateCorpus() []error {
	var errs []error
	if c.EmbeddingsPath == "" {
		errs = append(errs, ErrMissingEmbeddings)
	}
	if c.SectionsPath == "" {
		errs = append(errs, ErrMissingSections)
	}
	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// The API key is masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  strconv.Itoa(c.Port),
		"env":                   c.Env,
		"provider":              c.Provider,
		"openai_api_key":        maskSecret(c.OpenAIAPIKey),
		"openai_base_url":       c.OpenAIBaseURL,
		"completion_model":      c.CompletionModel,
		"doc_embedding_model":   c.DocEmbeddingModel,
		"query_embedding_model": c.QueryEmbeddingModel,
		"embeddings_path":       c.EmbeddingsPath,
		"sections_path":         c.SectionsPath,
		"metric":                c.Metric,
		"top_k":                 strconv.Itoa(c.TopK),
		"max_context_tokens":    strconv.Itoa(c.MaxContextTokens),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}
