package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

var ErrNoCompletion = errors.New("rag: provider returned no completion")

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompletionConfig holds generation parameters shared by completers.
type CompletionConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// DefaultCompletionConfig returns deterministic settings suited to
// question answering.
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		Model:       "gpt-3.5-turbo-instruct",
		MaxTokens:   300,
		Temperature: 0,
	}
}

// OpenAICompleter calls the OpenAI completions endpoint.
type OpenAICompleter struct {
	client *openai.Client
	cfg    CompletionConfig
}

func NewOpenAICompleter(client *openai.Client, cfg CompletionConfig) *OpenAICompleter {
	return &OpenAICompleter{client: client, cfg: cfg}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Completions.New(ctx, openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(c.cfg.Model),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfString: openai.String(prompt),
		},
		MaxTokens:        openai.Int(int64(c.cfg.MaxTokens)),
		Temperature:      openai.Float(c.cfg.Temperature),
		TopP:             openai.Float(1),
		FrequencyPenalty: openai.Float(0),
		PresencePenalty:  openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Text), nil
}

// ProviderStatus extracts the HTTP status of a provider error, or 0 if err
// did not come from a provider response.
func ProviderStatus(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return compatStatus(err)
}
