// Package config loads pipeline settings from defaults, an optional YAML
// file and RAG_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bull/news-rag/internal/document"
	"github.com/bull/news-rag/internal/embedding"
	"github.com/bull/news-rag/internal/generation"
	"github.com/bull/news-rag/internal/loader"
	"github.com/bull/news-rag/internal/rag"
	"github.com/bull/news-rag/internal/vectorindex"
)

// Config holds every recognised option.
type Config struct {
	ChunkSize       int `yaml:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap"`
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"`

	EmbeddingModelName string `yaml:"embedding_model_name"`
	EmbeddingBatchSize int    `yaml:"embedding_batch_size"`

	GenerationProvider string  `yaml:"generation_provider"`
	GenerationModel    string  `yaml:"generation_model"`
	Temperature        float64 `yaml:"temperature"`
	TopP               float64 `yaml:"top_p"`
	MaxOutputTokens    int     `yaml:"max_output_tokens"`
	SystemInstructions string  `yaml:"system_instructions"`

	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	EmbedTimeout     time.Duration `yaml:"embed_timeout"`
	GenerateTimeout  time.Duration `yaml:"generate_timeout"`
	FetchConcurrency int           `yaml:"fetch_concurrency"`

	IndexBackend string `yaml:"index_backend"`
	QdrantHost   string `yaml:"qdrant_host"`
	QdrantPort   int    `yaml:"qdrant_port"`

	Summarize bool     `yaml:"summarize"`
	Sources   []string `yaml:"sources"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ChunkSize:          document.DefaultChunkSize,
		ChunkOverlap:       document.DefaultChunkOverlap,
		TopK:               2,
		MaxContextChars:    4000,
		EmbeddingModelName: embedding.ModelTextEmbedding3Small,
		EmbeddingBatchSize: embedding.DefaultBatchSize,
		GenerationProvider: generation.ProviderGemini,
		GenerationModel:    generation.DefaultModel,
		Temperature:        generation.DefaultTemperature,
		TopP:               generation.DefaultTopP,
		MaxOutputTokens:    generation.DefaultMaxOutputTokens,
		SystemInstructions: generation.DefaultSystemInstructions,
		FetchTimeout:       30 * time.Second,
		EmbedTimeout:       embedding.DefaultTimeout,
		GenerateTimeout:    generation.DefaultTimeout,
		FetchConcurrency:   4,
		IndexBackend:       string(vectorindex.BackendMemory),
		QdrantHost:         "localhost",
		QdrantPort:         6334,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parse %s: %v", rag.ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from RAG_* variables that are set.
func (c *Config) applyEnv() error {
	var errs []error
	envInt("RAG_CHUNK_SIZE", &c.ChunkSize, &errs)
	envInt("RAG_CHUNK_OVERLAP", &c.ChunkOverlap, &errs)
	envInt("RAG_TOP_K", &c.TopK, &errs)
	envInt("RAG_MAX_CONTEXT_CHARS", &c.MaxContextChars, &errs)
	envString("RAG_EMBEDDING_MODEL_NAME", &c.EmbeddingModelName)
	envInt("RAG_EMBEDDING_BATCH_SIZE", &c.EmbeddingBatchSize, &errs)
	envString("RAG_GENERATION_PROVIDER", &c.GenerationProvider)
	envString("RAG_GENERATION_MODEL", &c.GenerationModel)
	envFloat("RAG_TEMPERATURE", &c.Temperature, &errs)
	envFloat("RAG_TOP_P", &c.TopP, &errs)
	envInt("RAG_MAX_OUTPUT_TOKENS", &c.MaxOutputTokens, &errs)
	envString("RAG_SYSTEM_INSTRUCTIONS", &c.SystemInstructions)
	envDuration("RAG_FETCH_TIMEOUT", &c.FetchTimeout, &errs)
	envDuration("RAG_EMBED_TIMEOUT", &c.EmbedTimeout, &errs)
	envDuration("RAG_GENERATE_TIMEOUT", &c.GenerateTimeout, &errs)
	envInt("RAG_FETCH_CONCURRENCY", &c.FetchConcurrency, &errs)
	envString("RAG_INDEX_BACKEND", &c.IndexBackend)
	envString("RAG_QDRANT_HOST", &c.QdrantHost)
	envInt("RAG_QDRANT_PORT", &c.QdrantPort, &errs)
	envBool("RAG_SUMMARIZE", &c.Summarize, &errs)
	if v := os.Getenv("RAG_SOURCES"); v != "" {
		c.Sources = loader.ParseLocators(v)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", rag.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Validate reports the first out-of-range option.
func (c Config) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.ChunkSize > 0, "chunk_size must be positive"},
		{c.ChunkOverlap >= 0 && c.ChunkOverlap < c.ChunkSize, "chunk_overlap must be in [0, chunk_size)"},
		{c.TopK >= 1, "top_k must be at least 1"},
		{c.MaxContextChars >= 1, "max_context_chars must be at least 1"},
		{c.EmbeddingModelName != "", "embedding_model_name is required"},
		{c.EmbeddingBatchSize > 0, "embedding_batch_size must be positive"},
		{c.GenerationModel != "", "generation_model is required"},
		{c.Temperature >= 0 && c.Temperature <= 2, "temperature must be in [0, 2]"},
		{c.TopP >= 0 && c.TopP <= 1, "top_p must be in [0, 1]"},
		{c.MaxOutputTokens > 0, "max_output_tokens must be positive"},
		{c.FetchTimeout > 0, "fetch_timeout must be positive"},
		{c.EmbedTimeout > 0, "embed_timeout must be positive"},
		{c.GenerateTimeout > 0, "generate_timeout must be positive"},
		{c.FetchConcurrency > 0, "fetch_concurrency must be positive"},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("%w: %s", rag.ErrInvalidConfig, check.msg)
		}
	}

	switch c.GenerationProvider {
	case generation.ProviderGemini, generation.ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown generation_provider %q", rag.ErrInvalidConfig, c.GenerationProvider)
	}

	backend, err := vectorindex.ParseBackend(c.IndexBackend)
	if err != nil {
		return err
	}
	if backend == vectorindex.BackendQdrant && (c.QdrantHost == "" || c.QdrantPort <= 0 || c.QdrantPort > 65535) {
		return fmt.Errorf("%w: qdrant backend needs qdrant_host and a valid qdrant_port", rag.ErrInvalidConfig)
	}
	return nil
}

// GenerationOptions returns the generation settings of c.
func (c Config) GenerationOptions() generation.Options {
	return generation.Options{
		Provider:        c.GenerationProvider,
		Model:           c.GenerationModel,
		Temperature:     c.Temperature,
		TopP:            c.TopP,
		MaxOutputTokens: c.MaxOutputTokens,
		Timeout:         c.GenerateTimeout,
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func envDuration(key string, dst *time.Duration, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func envBool(key string, dst *bool, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}
