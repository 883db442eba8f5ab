package rag

import (
	"context"
	"errors"
	"testing"
)

type failingEmbedder struct {
	after int
	calls int
}

func (f *failingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls++
	if f.calls > f.after {
		return nil, errors.New("rate limited")
	}
	return []float64{float64(len(text)), 1}, nil
}

func TestBuildCorpus_KeepsOrder(t *testing.T) {
	sections := ChunkText("One. Two. Three. Four. Five. Six. Seven.", "doc")

	corpus, err := BuildCorpus(context.Background(), NewSimpleEmbedder(), sections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(corpus) != len(sections) {
		t.Fatalf("expected %d documents, got %d", len(sections), len(corpus))
	}
	for i := range sections {
		if corpus[i].ID != sections[i].ID {
			t.Fatalf("position %d: expected %v, got %v", i, sections[i].ID, corpus[i].ID)
		}
	}
	if corpus.Dimension() != 4 {
		t.Fatalf("expected dimension 4, got %d", corpus.Dimension())
	}
}

func TestBuildCorpus_AbortsOnError(t *testing.T) {
	sections := ChunkText("One. Two. Three. Four. Five. Six. Seven.", "doc")

	corpus, err := BuildCorpus(context.Background(), &failingEmbedder{after: 1}, sections)
	if err == nil {
		t.Fatalf("expected error")
	}
	if corpus != nil {
		t.Fatalf("expected no partial corpus, got %d documents", len(corpus))
	}
}

func TestBuildCorpus_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sections := ChunkText("One. Two.", "doc")
	if _, err := BuildCorpus(ctx, NewSimpleEmbedder(), sections); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
