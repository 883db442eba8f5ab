package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go-rag-qa/rag"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

var (
	labelColor  = color.New(color.FgCyan, color.Bold)
	answerColor = color.New(color.FgGreen)
	scoreColor  = color.New(color.FgYellow)
	sourceColor = color.New(color.Faint)
)

// runAsk answers question and prints the answer followed by its sources.
func runAsk(ctx context.Context, a *rag.Answerer, question string, w io.Writer) error {
	answer, err := a.Ask(ctx, question)
	if err != nil {
		return err
	}
	labelColor.Fprint(w, "Q: ")
	fmt.Fprintln(w, question)
	labelColor.Fprint(w, "A: ")
	answerColor.Fprintln(w, answer.Text)
	for _, src := range answer.Sources {
		sourceColor.Fprintf(w, "   - %s (%.4f)\n", src.ID, src.Score)
	}
	return nil
}

// runRank prints the ranked documents for query.
func runRank(ctx context.Context, a *rag.Answerer, query string, w io.Writer) error {
	results, err := a.Rank(ctx, query, 0)
	if err != nil {
		return err
	}
	for i, r := range results {
		fmt.Fprintf(w, "%3d. ", i+1)
		scoreColor.Fprintf(w, "%.4f", r.Score)
		fmt.Fprintf(w, "  %s\n", r.ID)
	}
	return nil
}

// runIndex chunks the document at path, embeds every section and writes the
// embeddings and sections files.
func runIndex(ctx context.Context, embedder rag.Embedder, path, embeddingsOut, sectionsOut string, logger *zap.Logger) error {
	text, err := rag.ReadDocument(path)
	if err != nil {
		return err
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sections := rag.ChunkText(text, title)
	logger.Info("document chunked", zap.String("path", path), zap.Int("sections", len(sections)))

	corpus, err := rag.BuildCorpus(ctx, embedder, sections)
	if err != nil {
		return err
	}

	if err := writeFile(embeddingsOut, func(w io.Writer) error { return rag.WriteCorpusCSV(w, corpus) }); err != nil {
		return err
	}
	if err := writeFile(sectionsOut, func(w io.Writer) error { return rag.WriteSectionsCSV(w, sections) }); err != nil {
		return err
	}
	logger.Info("index written",
		zap.String("embeddings", embeddingsOut),
		zap.String("sections", sectionsOut),
		zap.Int("documents", len(corpus)),
		zap.Int("dimension", corpus.Dimension()),
	)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
