package rag

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func sectionsFor(corpus Corpus) []Section {
	sections := make([]Section, 0, len(corpus))
	for _, doc := range corpus {
		sections = append(sections, Section{ID: doc.ID, Content: doc.ID.Title + " content", Tokens: 2})
	}
	return sections
}

func TestInMemoryStore_Search(t *testing.T) {
	// 2D toy embeddings so we can reason easily
	corpus := Corpus{
		{ID: DocumentID{"1", "a"}, Embedding: []float64{1, 0}},
		{ID: DocumentID{"2", "b"}, Embedding: []float64{0, 1}},
	}
	store, err := NewInMemoryStore(corpus, sectionsFor(corpus), MetricCosine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// query close to {1,0}
	results, err := store.Search([]float64{0.9, 0.1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID.Title != "1" {
		t.Fatalf("expected best match to be document 1, got %s", results[0].ID.Title)
	}
}

func TestInMemoryStore_SearchTopKBounds(t *testing.T) {
	corpus := Corpus{
		{ID: DocumentID{"1", "a"}, Embedding: []float64{1, 0}},
		{ID: DocumentID{"2", "b"}, Embedding: []float64{0, 1}},
	}
	store, err := NewInMemoryStore(corpus, sectionsFor(corpus), MetricDot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := store.Search([]float64{1, 0}, 10)
	if err != nil || len(res) != 2 {
		t.Fatalf("expected 2 results when topK > len(corpus), got %d (%v)", len(res), err)
	}
	res, err = store.Search([]float64{1, 0}, 0)
	if err != nil || len(res) != 2 {
		t.Fatalf("expected all results for topK 0, got %d (%v)", len(res), err)
	}
}

func TestInMemoryStore_SearchDimensionMismatch(t *testing.T) {
	corpus := olympicsCorpus()
	store, err := NewInMemoryStore(corpus, sectionsFor(corpus), MetricCosine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Search([]float64{1, 0}, 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNewInMemoryStore_Validation(t *testing.T) {
	dup := Corpus{
		{ID: DocumentID{"A", "h"}, Embedding: []float64{1}},
		{ID: DocumentID{"A", "h"}, Embedding: []float64{2}},
	}
	if _, err := NewInMemoryStore(dup, sectionsFor(dup[:1]), MetricDot); !errors.Is(err, ErrDuplicateDocument) {
		t.Fatalf("expected ErrDuplicateDocument, got %v", err)
	}

	mixed := Corpus{
		{ID: DocumentID{"A", "h1"}, Embedding: []float64{1, 0, 0}},
		{ID: DocumentID{"A", "h2"}, Embedding: []float64{1, 0}},
	}
	if _, err := NewInMemoryStore(mixed, sectionsFor(mixed), MetricDot); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	corpus := olympicsCorpus()
	if _, err := NewInMemoryStore(corpus, sectionsFor(corpus[:2]), MetricDot); !errors.Is(err, ErrMissingSection) {
		t.Fatalf("expected ErrMissingSection, got %v", err)
	}

	nan := Corpus{{ID: DocumentID{"A", "h"}, Embedding: []float64{math.NaN(), 1}}}
	if _, err := NewInMemoryStore(nan, sectionsFor(nan), MetricDot); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}

	if _, err := NewInMemoryStore(corpus, sectionsFor(corpus), Metric(9)); !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("expected ErrUnknownMetric, got %v", err)
	}
}

func TestInMemoryStore_ConcurrentSearch(t *testing.T) {
	corpus := olympicsCorpus()
	store, err := NewInMemoryStore(corpus, sectionsFor(corpus), MetricCosine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.Search([]float64{1, 0, 0}, 1)
			if err != nil {
				errs <- err
				return
			}
			if res[0].ID.Title != "A" {
				errs <- errors.New("unexpected best match " + res[0].ID.Title)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
