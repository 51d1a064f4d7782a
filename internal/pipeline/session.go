// Package pipeline owns one retrieval session: the documents ingested, the
// index built from them and the components that query it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bull/news-rag/internal/assembler"
	"github.com/bull/news-rag/internal/config"
	"github.com/bull/news-rag/internal/document"
	"github.com/bull/news-rag/internal/embedding"
	"github.com/bull/news-rag/internal/generation"
	"github.com/bull/news-rag/internal/loader"
	"github.com/bull/news-rag/internal/metadata"
	"github.com/bull/news-rag/internal/rag"
	"github.com/bull/news-rag/internal/retriever"
	"github.com/bull/news-rag/internal/vectorindex"
)

// IngestResult contains statistics about an ingestion.
type IngestResult struct {
	TotalSources   int
	LoadedDocs     int
	TotalFragments int
	FailedSources  []FailedSource
	Duration       time.Duration
}

// FailedSource represents a locator that could not be ingested.
type FailedSource struct {
	Locator string
	Reason  string
}

// Answer is the outcome of Ask.
type Answer struct {
	Text    string
	Context string
	Sources rag.RetrievalResult
}

// Status describes the session index.
type Status struct {
	Built     bool
	Backend   string
	Model     string
	Dimension int
	Documents int
	Fragments int
	BuiltAt   time.Time
}

// Options are the components of a Session. Generator and Summarizer are
// optional; without a Generator, Ask fails with rag.ErrGenerationUnavailable.
type Options struct {
	Config     config.Config
	Loader     *loader.Loader
	Splitter   *document.Splitter
	Embedder   *embedding.Embedder
	Index      vectorindex.Index
	Generator  generation.Generator
	Summarizer *metadata.Summarizer
	Logger     *slog.Logger

	// GeneratorErr explains a missing Generator.
	GeneratorErr error
}

// Session runs ingestion once and then serves concurrent queries.
type Session struct {
	cfg        config.Config
	loader     *loader.Loader
	splitter   *document.Splitter
	embedder   *embedding.Embedder
	generator  generation.Generator
	genErr     error
	summarizer *metadata.Summarizer
	logger     *slog.Logger

	mu        sync.RWMutex
	index     vectorindex.Index
	retriever *retriever.Retriever
	status    Status
}

// New creates a Session from explicit components.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	genErr := opts.GeneratorErr
	if opts.Generator == nil && genErr == nil {
		genErr = errors.New("no generation client configured")
	}

	s := &Session{
		cfg:        opts.Config,
		loader:     opts.Loader,
		splitter:   opts.Splitter,
		embedder:   opts.Embedder,
		generator:  opts.Generator,
		genErr:     genErr,
		summarizer: opts.Summarizer,
		logger:     logger,
		index:      opts.Index,
	}
	s.status = Status{
		Backend: opts.Config.IndexBackend,
		Model:   opts.Embedder.ModelName(),
	}
	return s
}

// Ingest loads locators, splits and embeds their text and builds the index.
// Locators that fail are reported in the result and skipped. A session
// ingests at most once.
func (s *Session) Ingest(ctx context.Context, locators []string) (*IngestResult, error) {
	start := time.Now()

	s.mu.RLock()
	built := s.status.Built
	s.mu.RUnlock()
	if built {
		return nil, rag.ErrIndexAlreadyBuilt
	}

	result := &IngestResult{}
	s.logger.Info("Starting ingestion", "sources", len(locators))

	loaded, err := s.loader.Load(ctx, locators)
	if loaded != nil {
		result.TotalSources = loaded.Total
		for _, fe := range loaded.Failed {
			result.FailedSources = append(result.FailedSources, FailedSource{
				Locator: fe.Locator,
				Reason:  fe.Err.Error(),
			})
		}
	}
	if err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("load: %w", err)
	}

	var entries []vectorindex.Entry
	for _, doc := range loaded.Documents {
		docEntries, err := s.prepareDocument(ctx, doc)
		if err != nil {
			s.logger.Warn("Failed to process document", "id", doc.ID, "error", err)
			result.FailedSources = append(result.FailedSources, FailedSource{
				Locator: doc.ID,
				Reason:  err.Error(),
			})
			continue
		}
		result.LoadedDocs++
		entries = append(entries, docEntries...)
	}
	if len(entries) == 0 {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("%w: no fragments produced", rag.ErrNoDocumentsLoaded)
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Fragment.EmbeddingText()
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("embeddings: %w", err)
	}
	for i := range entries {
		entries[i].Vector = vectors[i]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Build(ctx, entries); err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("build index: %w", err)
	}
	s.markBuilt(result.LoadedDocs)

	result.TotalFragments = len(entries)
	result.Duration = time.Since(start)
	s.logger.Info("Ingestion complete",
		"documents", result.LoadedDocs,
		"failed", len(result.FailedSources),
		"fragments", result.TotalFragments,
		"duration", result.Duration,
	)
	return result, nil
}

// prepareDocument splits doc and attaches its summary metadata.
func (s *Session) prepareDocument(ctx context.Context, doc rag.SourceDocument) ([]vectorindex.Entry, error) {
	fragments, err := s.splitter.Split(doc)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if len(fragments) == 0 {
		return nil, errors.New("no text fragments")
	}
	s.logger.Debug("Split document", "id", doc.ID, "fragments", len(fragments))

	var meta map[string]string
	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(ctx, doc)
		if err != nil {
			s.logger.Warn("Summary generation failed, using empty", "id", doc.ID, "error", err)
		} else {
			meta = summary.Metadata()
		}
	}

	entries := make([]vectorindex.Entry, len(fragments))
	for i, f := range fragments {
		entries[i] = vectorindex.Entry{Fragment: f, Metadata: meta}
	}
	return entries, nil
}

// markBuilt installs the retriever. Callers hold s.mu.
func (s *Session) markBuilt(documents int) {
	s.retriever = retriever.New(s.embedder, s.index)
	s.status.Built = true
	s.status.Dimension = s.index.Dimension()
	s.status.Documents = documents
	s.status.Fragments = s.index.Len()
	s.status.BuiltAt = time.Now()
}

func (s *Session) currentRetriever() (*retriever.Retriever, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.retriever == nil {
		return nil, rag.ErrIndexNotBuilt
	}
	return s.retriever, nil
}

// Retrieve returns the k fragments most similar to query.
func (s *Session) Retrieve(ctx context.Context, query string, k int) (rag.RetrievalResult, error) {
	r, err := s.currentRetriever()
	if err != nil {
		return nil, err
	}
	return r.Retrieve(ctx, query, k)
}

// Context retrieves the configured top_k fragments for query and assembles
// them within max_context_chars.
func (s *Session) Context(ctx context.Context, query string) (string, rag.RetrievalResult, error) {
	results, err := s.Retrieve(ctx, query, s.cfg.TopK)
	if err != nil {
		return "", nil, err
	}
	return assembler.Assemble(results, s.cfg.MaxContextChars), results, nil
}

// Ask answers query from the indexed documents. Generation failures are
// returned as-is and leave the index usable.
func (s *Session) Ask(ctx context.Context, query string) (*Answer, error) {
	contextText, results, err := s.Context(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.generator == nil {
		return nil, fmt.Errorf("%w: %v", rag.ErrGenerationUnavailable, s.genErr)
	}

	text, err := s.generator.Generate(ctx, generation.Request{
		SystemInstructions: s.cfg.SystemInstructions,
		Context:            contextText,
		Query:              query,
	})
	if err != nil {
		s.logger.Warn("Generation failed", "error", err)
		return nil, err
	}

	return &Answer{
		Text:    text,
		Context: contextText,
		Sources: results,
	}, nil
}

// SaveSnapshot writes the built index to w. Only the memory backend
// supports snapshots.
func (s *Session) SaveSnapshot(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bf, ok := s.index.(*vectorindex.BruteForceIndex)
	if !ok {
		return fmt.Errorf("%w: snapshots need the %s index backend", rag.ErrInvalidConfig, vectorindex.BackendMemory)
	}
	return bf.Save(w, s.embedder.ModelName())
}

// LoadSnapshot replaces the unbuilt session index with one read from r.
// The snapshot must have been produced with the session's embedding model.
func (s *Session) LoadSnapshot(r io.Reader) error {
	idx, model, err := vectorindex.LoadBruteForce(r)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if model != s.embedder.ModelName() {
		return fmt.Errorf("%w: snapshot built with model %q, session uses %q",
			rag.ErrInvalidConfig, model, s.embedder.ModelName())
	}
	if dim := s.embedder.Dimension(); dim != 0 && dim != idx.Dimension() {
		return fmt.Errorf("%w: snapshot has %d dimensions, embedder produces %d",
			rag.ErrDimensionMismatch, idx.Dimension(), dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Built {
		return rag.ErrIndexAlreadyBuilt
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.logger.Warn("Failed to close replaced index", "error", err)
		}
	}
	s.index = idx
	s.status.Backend = string(vectorindex.BackendMemory)
	s.markBuilt(countSources(idx))

	s.logger.Info("Loaded snapshot", "fragments", idx.Len(), "dimension", idx.Dimension())
	return nil
}

// countSources returns the number of distinct source documents in idx.
func countSources(idx *vectorindex.BruteForceIndex) int {
	return len(idx.SourceIDs())
}

// Status reports the session index state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Health reports whether the session can answer queries.
func (s *Session) Health(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.status.Built {
		return rag.ErrIndexNotBuilt
	}
	if h, ok := s.index.(interface{ Health(context.Context) error }); ok {
		return h.Health(ctx)
	}
	return nil
}

// Close releases the index.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}
