package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEmptyQuestion = errors.New("rag: question is required")
	ErrProvider      = errors.New("rag: provider request failed")
)

// Answerer answers questions from the documents in Store, using
// QueryEmbedder to embed questions and Completer to generate answers.
// Without a Completer the answer is the text of the best section.
type Answerer struct {
	QueryEmbedder    Embedder
	Completer        Completer
	Store            *InMemoryStore
	TopK             int
	MaxContextTokens int
	Logger           *zap.Logger

	// OnRank, if set, receives the time spent ranking the corpus.
	OnRank func(time.Duration)
}

func (a *Answerer) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// Rank embeds query and returns the topK most similar documents. topK <= 0
// falls back to a.TopK.
func (a *Answerer) Rank(ctx context.Context, query string, topK int) ([]RankedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = a.TopK
	}

	vec, err := a.QueryEmbedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrProvider, err)
	}

	start := time.Now()
	results, err := a.Store.Search(vec, topK)
	if a.OnRank != nil {
		a.OnRank(time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Ask retrieves context for question and asks the completer to answer it.
func (a *Answerer) Ask(ctx context.Context, question string) (Answer, error) {
	ranked, err := a.Rank(ctx, question, a.TopK)
	if err != nil {
		return Answer{}, err
	}

	sections, err := SelectContext(a.Store, ranked, a.MaxContextTokens)
	if err != nil {
		return Answer{}, err
	}
	a.logger().Debug("selected context",
		zap.Int("sections", len(sections)),
		zap.Int("ranked", len(ranked)),
	)

	prompt := BuildPrompt(question, sections)
	var text string
	switch {
	case a.Completer != nil:
		text, err = a.Completer.Complete(ctx, prompt)
		if err != nil {
			return Answer{}, fmt.Errorf("%w: complete: %w", ErrProvider, err)
		}
	case len(sections) > 0:
		text = strings.TrimSpace(sections[0].Content)
	}

	return Answer{
		Text:    text,
		Prompt:  prompt,
		Sources: ranked[:len(sections)],
	}, nil
}
