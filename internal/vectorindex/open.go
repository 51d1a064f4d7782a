package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/bull/news-rag/internal/rag"
)

// Backend names an Index implementation.
type Backend string

const (
	// BackendMemory is the exact in-process index.
	BackendMemory Backend = "memory"
	// BackendQdrant stores vectors in a Qdrant collection.
	BackendQdrant Backend = "qdrant"
)

// ParseBackend normalises an index backend name. An empty name selects memory.
func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case BackendMemory, "":
		return BackendMemory, nil
	case BackendQdrant:
		return BackendQdrant, nil
	default:
		return "", fmt.Errorf("%w: unknown index backend %q", rag.ErrInvalidConfig, name)
	}
}

// OpenOptions configures Open.
type OpenOptions struct {
	Backend    Backend
	QdrantHost string
	QdrantPort int
	Logger     *slog.Logger
}

// Open returns an empty index for the configured backend.
func Open(ctx context.Context, opts OpenOptions) (Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Backend {
	case BackendMemory, "":
		return NewBruteForceIndex(), nil
	case BackendQdrant:
		addr := net.JoinHostPort(opts.QdrantHost, strconv.Itoa(opts.QdrantPort))
		logger.Info("connecting to qdrant", "addr", addr)
		idx, err := NewQdrantIndex(ctx, opts.QdrantHost, opts.QdrantPort)
		if err != nil {
			return nil, err
		}
		logger.Info("qdrant index ready", "collection", idx.Collection())
		return idx, nil
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", rag.ErrInvalidConfig, opts.Backend)
	}
}
