package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bull/news-rag/internal/config"
	"github.com/bull/news-rag/internal/document"
	"github.com/bull/news-rag/internal/embedding"
	"github.com/bull/news-rag/internal/generation"
	"github.com/bull/news-rag/internal/github"
	"github.com/bull/news-rag/internal/loader"
	"github.com/bull/news-rag/internal/metadata"
	"github.com/bull/news-rag/internal/vectorindex"
)

// NewFromConfig wires a Session from cfg using the hosted services named
// there. A generation client that cannot be created does not fail the
// session; Ask reports the reason instead.
func NewFromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	splitter, err := document.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	var embeddingClient *embedding.Client
	if embedding.NeedsAPI(cfg.EmbeddingModelName) {
		embeddingClient, err = embedding.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
	}
	model, err := embedding.NewModel(cfg.EmbeddingModelName, embeddingClient)
	if err != nil {
		return nil, err
	}
	embedder := embedding.NewEmbedder(model, cfg.EmbeddingBatchSize, cfg.EmbedTimeout)

	ghClient, err := github.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	fetcher := loader.NewRouter(
		loader.NewHTTPFetcher(&http.Client{}),
		loader.NewFileFetcher(),
		github.NewFetcher(ghClient).Route(),
	)
	ld := loader.NewLoader(fetcher, cfg.FetchConcurrency, cfg.FetchTimeout, logger)

	backend, err := vectorindex.ParseBackend(cfg.IndexBackend)
	if err != nil {
		return nil, err
	}
	index, err := vectorindex.Open(ctx, vectorindex.OpenOptions{
		Backend:    backend,
		QdrantHost: cfg.QdrantHost,
		QdrantPort: cfg.QdrantPort,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	gen, genErr := generation.New(cfg.GenerationOptions())
	if genErr != nil {
		logger.Warn("Generation client unavailable", "provider", cfg.GenerationProvider, "error", genErr)
		gen = nil
	}

	var summarizer *metadata.Summarizer
	if cfg.Summarize && gen != nil {
		summarizer = metadata.NewSummarizer(gen, 0, logger)
	}

	return New(Options{
		Config:       cfg,
		Loader:       ld,
		Splitter:     splitter,
		Embedder:     embedder,
		Index:        index,
		Generator:    gen,
		GeneratorErr: genErr,
		Summarizer:   summarizer,
		Logger:       logger,
	}), nil
}
