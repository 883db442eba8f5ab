package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrNoEmbedding = errors.New("rag: provider returned no embedding")

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// embedInput replaces newlines with spaces.
func embedInput(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}

// NewOpenAIClient builds an OpenAI API client. An empty baseURL keeps the
// SDK default.
func NewOpenAIClient(apiKey, baseURL string, opts ...option.RequestOption) *openai.Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &client
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint with a fixed model.
// Documents and queries may use different models; create one embedder per
// model.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(client *openai.Client, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: model}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(embedInput(text)),
		},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrNoEmbedding
	}
	return resp.Data[0].Embedding, nil
}

// SimpleEmbedder is a deterministic offline embedder based on rune counts.
// It needs no network access and is meant for tests and demos.
type SimpleEmbedder struct{}

func NewSimpleEmbedder() *SimpleEmbedder {
	return &SimpleEmbedder{}
}

func (e *SimpleEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	// 4D vector: length, vowels, consonants, spaces
	var length, vowels, consonants, spaces float64
	for _, r := range embedInput(text) {
		length++
		switch {
		case strings.ContainsRune("aeiouAEIOU", r):
			vowels++
		case r == ' ':
			spaces++
		default:
			consonants++
		}
	}
	if length == 0 {
		return nil, fmt.Errorf("%w: empty text", ErrEmptyVector)
	}
	return []float64{length, vowels, consonants, spaces}, nil
}
