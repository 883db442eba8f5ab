package rag

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateDocument = errors.New("rag: duplicate document id")
	ErrMissingSection    = errors.New("rag: no section for document")
)

// InMemoryStore holds a corpus and its section texts. It is built once and
// never mutated, so concurrent searches need no locking.
type InMemoryStore struct {
	corpus   Corpus
	sections map[DocumentID]Section
	metric   Metric
}

// NewInMemoryStore validates corpus against sections and returns a store
// that ranks with metric.
func NewInMemoryStore(corpus Corpus, sections []Section, metric Metric) (*InMemoryStore, error) {
	if !metric.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}

	byID := make(map[DocumentID]Section, len(sections))
	for _, s := range sections {
		if _, ok := byID[s.ID]; ok {
			return nil, fmt.Errorf("%w: section %s", ErrDuplicateDocument, s.ID)
		}
		byID[s.ID] = s
	}

	dim := corpus.Dimension()
	seen := make(map[DocumentID]struct{}, len(corpus))
	for i, doc := range corpus {
		if _, ok := seen[doc.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDocument, doc.ID)
		}
		seen[doc.ID] = struct{}{}
		if len(doc.Embedding) == 0 {
			return nil, fmt.Errorf("%w: document %d (%s)", ErrEmptyVector, i, doc.ID)
		}
		if len(doc.Embedding) != dim {
			return nil, fmt.Errorf("%w: document %d (%s) has %d dimensions, expected %d",
				ErrDimensionMismatch, i, doc.ID, len(doc.Embedding), dim)
		}
		if err := checkFinite(doc.Embedding); err != nil {
			return nil, fmt.Errorf("document %d (%s): %w", i, doc.ID, err)
		}
		if _, ok := byID[doc.ID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSection, doc.ID)
		}
	}

	return &InMemoryStore{
		corpus:   append(Corpus(nil), corpus...),
		sections: byID,
		metric:   metric,
	}, nil
}

// Search ranks the whole corpus against queryEmbedding and returns the
// best topK results. topK <= 0 returns every document.
func (s *InMemoryStore) Search(queryEmbedding []float64, topK int) ([]RankedResult, error) {
	results, err := Rank(queryEmbedding, s.corpus, s.metric)
	if err != nil {
		return nil, err
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Section returns the text stored for id.
func (s *InMemoryStore) Section(id DocumentID) (Section, bool) {
	sec, ok := s.sections[id]
	return sec, ok
}

func (s *InMemoryStore) Len() int       { return len(s.corpus) }
func (s *InMemoryStore) Dimension() int { return s.corpus.Dimension() }
func (s *InMemoryStore) Metric() Metric { return s.metric }
