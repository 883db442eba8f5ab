package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

// NewCompatClient builds a go-openai client for OpenAI-compatible servers
// such as local model runners. An empty baseURL keeps the public API.
func NewCompatClient(apiKey, baseURL string) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return goopenai.NewClientWithConfig(cfg)
}

// CompatEmbedder embeds text through an OpenAI-compatible endpoint.
type CompatEmbedder struct {
	client *goopenai.Client
	model  string
}

func NewCompatEmbedder(client *goopenai.Client, model string) *CompatEmbedder {
	return &CompatEmbedder{client: client, model: model}
}

func (e *CompatEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{embedInput(text)},
		Model: goopenai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrNoEmbedding
	}
	out := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		out[i] = float64(v)
	}
	return out, nil
}

// CompatCompleter generates completions through an OpenAI-compatible
// endpoint.
type CompatCompleter struct {
	client *goopenai.Client
	cfg    CompletionConfig
}

func NewCompatCompleter(client *goopenai.Client, cfg CompletionConfig) *CompatCompleter {
	return &CompatCompleter{client: client, cfg: cfg}
}

func (c *CompatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	// go-openai drops a zero temperature from the request body
	temperature := float32(c.cfg.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	resp, err := c.client.CreateCompletion(ctx, goopenai.CompletionRequest{
		Model:       c.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: temperature,
		TopP:        1,
	})
	if err != nil {
		return "", fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Text), nil
}

func compatStatus(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
