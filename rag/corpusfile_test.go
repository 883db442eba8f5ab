package rag

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCorpusCSV = `title,heading,0,1,2
2020 Summer Olympics,Summary,0.1,0.2,0.3
2020 Summer Olympics,Venues,0.4,0.5,0.6
Athletics,Men's high jump,-0.1,0,1e-3
`

func TestReadCorpusCSV_ParsesRows(t *testing.T) {
	corpus, err := ReadCorpusCSV(strings.NewReader(sampleCorpusCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(corpus) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(corpus))
	}
	if corpus.Dimension() != 3 {
		t.Fatalf("expected dimension 3, got %d", corpus.Dimension())
	}

	// same title, distinct headings stay distinct documents
	if corpus[0].ID == corpus[1].ID {
		t.Fatalf("expected distinct ids, got %v twice", corpus[0].ID)
	}
	if corpus[2].ID.Heading != "Men's high jump" {
		t.Fatalf("unexpected heading %q", corpus[2].ID.Heading)
	}
	if corpus[2].Embedding[2] != 0.001 {
		t.Fatalf("expected 0.001, got %v", corpus[2].Embedding[2])
	}
}

func TestReadCorpusCSV_ColumnOrderIndependent(t *testing.T) {
	data := "1,heading,0,title\n0.5,h,0.25,t\n"
	corpus, err := ReadCorpusCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if corpus[0].Embedding[0] != 0.25 || corpus[0].Embedding[1] != 0.5 {
		t.Fatalf("embedding not ordered by column number: %v", corpus[0].Embedding)
	}
}

func TestReadCorpusCSV_Malformed(t *testing.T) {
	cases := map[string]string{
		"bad float":      "title,heading,0\nt,h,abc\n",
		"missing column": "title,heading,0,2\nt,h,1,2\n",
		"no title":       "heading,0\nh,1\n",
		"stray column":   "title,heading,extra,0\nt,h,x,1\n",
		"short row":      "title,heading,0,1\nt,h,1\n",
		"nan":            "title,heading,0,1\nA,h,0.2,0\nB,h,NaN,0\n",
		"inf":            "title,heading,0,1\nA,h,Inf,0\n",
		"negative inf":   "title,heading,0,1\nA,h,0,-Inf\n",
	}
	for name, data := range cases {
		if _, err := ReadCorpusCSV(strings.NewReader(data)); !errors.Is(err, ErrMalformedCorpus) {
			t.Fatalf("%s: expected ErrMalformedCorpus, got %v", name, err)
		}
	}
}

func TestReadCorpusCSV_NonFiniteNamesRowAndColumn(t *testing.T) {
	data := "title,heading,0,1\nA,h,0.2,0\nB,h,0.5,NaN\n"
	_, err := ReadCorpusCSV(strings.NewReader(data))
	if !errors.Is(err, ErrMalformedCorpus) {
		t.Fatalf("expected ErrMalformedCorpus, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 3 column 1") {
		t.Fatalf("expected row and column in error, got %v", err)
	}
}

func TestReadCorpusJSON(t *testing.T) {
	data := []byte(`[
		{"title": "A", "heading": "h1", "0": 1, "1": 0},
		{"heading": "h2", "1": 1, "title": "B", "0": 0}
	]`)

	corpus, err := ReadCorpusJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(corpus) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(corpus))
	}
	if corpus[1].ID != (DocumentID{"B", "h2"}) {
		t.Fatalf("unexpected id %v", corpus[1].ID)
	}
	if corpus[1].Embedding[0] != 0 || corpus[1].Embedding[1] != 1 {
		t.Fatalf("unexpected embedding %v", corpus[1].Embedding)
	}
}

func TestReadCorpusJSON_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"not array":     `{"title": "A"}`,
		"string value":  `[{"title": "A", "heading": "h", "0": "x"}]`,
		"gap":           `[{"title": "A", "heading": "h", "0": 1, "2": 1}]`,
		"unknown key":   `[{"title": "A", "heading": "h", "author": "me", "0": 1}]`,
		"scalar member": `[1, 2]`,
	}
	for name, data := range cases {
		if _, err := ReadCorpusJSON([]byte(data)); !errors.Is(err, ErrMalformedCorpus) {
			t.Fatalf("%s: expected ErrMalformedCorpus, got %v", name, err)
		}
	}
}

func TestWriteCorpusCSV_RoundTrip(t *testing.T) {
	corpus := Corpus{
		{ID: DocumentID{"T, with comma", "h"}, Embedding: []float64{0.125, -3}},
		{ID: DocumentID{"T", "h2"}, Embedding: []float64{1e-9, 42}},
	}

	var buf bytes.Buffer
	if err := WriteCorpusCSV(&buf, corpus); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := ReadCorpusCSV(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != corpus[0].ID || got[1].Embedding[0] != 1e-9 {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

func TestReadSectionsCSV_EstimatesTokens(t *testing.T) {
	data := "title,heading,content\nA,h1,one two three\n"
	sections, err := ReadSectionsCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 || sections[0].Tokens != 3 {
		t.Fatalf("expected 1 section with 3 tokens, got %+v", sections)
	}
}

func TestReadSectionsJSON(t *testing.T) {
	data := []byte(`[{"title": "A", "heading": "h1", "content": "text here", "tokens": 7}]`)
	sections, err := ReadSectionsJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 || sections[0].Tokens != 7 || sections[0].Content != "text here" {
		t.Fatalf("unexpected sections %+v", sections)
	}
}

func TestLoadCorpus_ByExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "embeddings.csv")
	if err := os.WriteFile(csvPath, []byte(sampleCorpusCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	corpus, err := LoadCorpus(csvPath)
	if err != nil || len(corpus) != 3 {
		t.Fatalf("expected 3 documents, got %d (%v)", len(corpus), err)
	}

	if _, err := LoadCorpus(filepath.Join(dir, "embeddings.parquet")); !errors.Is(err, ErrMalformedCorpus) {
		t.Fatalf("expected ErrMalformedCorpus for unknown extension, got %v", err)
	}
}
