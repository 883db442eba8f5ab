package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-rag-qa/config"
	"go-rag-qa/rag"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	configPath    = flag.String("config", "", "Path to a YAML config file")
	askQuestion   = flag.String("ask", "", "Answer a single question and exit")
	rankQuery     = flag.String("rank", "", "Print the document ranking for a query and exit")
	indexPath     = flag.String("index", "", "Chunk and embed a .txt or .pdf document, then exit")
	outEmbeddings = flag.String("out-embeddings", "embeddings.csv", "Embeddings CSV written by -index")
	outSections   = flag.String("out-sections", "sections.csv", "Sections CSV written by -index")
)

// models holds the provider-backed collaborators chosen by config.
type models struct {
	docEmbedder   rag.Embedder
	queryEmbedder rag.Embedder
	completer     rag.Completer
}

func newModels(cfg *config.Config) models {
	completion := rag.CompletionConfig{
		Model:       cfg.CompletionModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	switch cfg.Provider {
	case config.ProviderCompat:
		client := rag.NewCompatClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		return models{
			docEmbedder:   rag.NewCompatEmbedder(client, cfg.DocEmbeddingModel),
			queryEmbedder: rag.NewCompatEmbedder(client, cfg.QueryEmbeddingModel),
			completer:     rag.NewCompatCompleter(client, completion),
		}
	case config.ProviderSimple:
		e := rag.NewSimpleEmbedder()
		return models{docEmbedder: e, queryEmbedder: e}
	default:
		client := rag.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		return models{
			docEmbedder:   rag.NewOpenAIEmbedder(client, cfg.DocEmbeddingModel),
			queryEmbedder: rag.NewOpenAIEmbedder(client, cfg.QueryEmbeddingModel),
			completer:     rag.NewOpenAICompleter(client, completion),
		}
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// loadAnswerer reads the corpus and section files named in cfg.
func loadAnswerer(cfg *config.Config, m models, logger *zap.Logger, metrics *Metrics) (*rag.Answerer, error) {
	metric, err := rag.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	corpus, err := rag.LoadCorpus(cfg.EmbeddingsPath)
	if err != nil {
		return nil, fmt.Errorf("load embeddings %s: %w", cfg.EmbeddingsPath, err)
	}
	sections, err := rag.LoadSections(cfg.SectionsPath)
	if err != nil {
		return nil, fmt.Errorf("load sections %s: %w", cfg.SectionsPath, err)
	}
	store, err := rag.NewInMemoryStore(corpus, sections, metric)
	if err != nil {
		return nil, err
	}
	metrics.SetCorpusDocuments(store.Len())
	logger.Info("corpus loaded",
		zap.Int("documents", store.Len()),
		zap.Int("dimension", store.Dimension()),
		zap.Stringer("metric", store.Metric()),
	)

	return &rag.Answerer{
		QueryEmbedder:    m.queryEmbedder,
		Completer:        m.completer,
		Store:            store,
		TopK:             cfg.TopK,
		MaxContextTokens: cfg.MaxContextTokens,
		Logger:           logger,
		OnRank:           metrics.ObserveRank,
	}, nil
}

func main() {
	flag.Parse()

	cfg, errs := config.Load(*configPath)
	if *indexPath == "" && cfg != nil {
		errs = append(errs, cfg.ValidateCorpus()...)
	}
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exiting", zap.Error(err), zap.Int("provider_status", rag.ProviderStatus(err)))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	m := newModels(cfg)

	if *indexPath != "" {
		return runIndex(ctx, m.docEmbedder, *indexPath, *outEmbeddings, *outSections, logger)
	}

	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return err
	}

	answerer, err := loadAnswerer(cfg, m, logger, metrics)
	if err != nil {
		return err
	}

	switch {
	case *askQuestion != "":
		return runAsk(ctx, answerer, *askQuestion, os.Stdout)
	case *rankQuery != "":
		return runRank(ctx, answerer, *rankQuery, os.Stdout)
	}

	logger.Info("configuration", zap.Any("config", cfg.LogSummary()))
	srv := NewServer(answerer, logger, metrics, reg)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
