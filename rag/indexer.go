package rag

import (
	"context"
	"fmt"
)

// BuildCorpus embeds every section with embedder, keeping section order.
// The first failure aborts the build; no partial corpus is returned.
func BuildCorpus(ctx context.Context, embedder Embedder, sections []Section) (Corpus, error) {
	corpus := make(Corpus, 0, len(sections))
	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := embedder.Embed(ctx, s.Content)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", s.ID, err)
		}
		if dim := corpus.Dimension(); dim > 0 && len(vec) != dim {
			return nil, fmt.Errorf("%w: %s has %d dimensions, expected %d", ErrDimensionMismatch, s.ID, len(vec), dim)
		}
		corpus = append(corpus, DocumentVector{ID: s.ID, Embedding: vec})
	}
	return corpus, nil
}
