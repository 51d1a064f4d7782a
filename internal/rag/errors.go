package rag

import (
	"errors"
	"fmt"
)

var (
	ErrNoDocumentsLoaded     = errors.New("no documents loaded")
	ErrDimensionMismatch     = errors.New("embedding dimension mismatch")
	ErrInvalidVector         = errors.New("embedding has non-finite components")
	ErrIndexNotBuilt         = errors.New("index not built")
	ErrIndexAlreadyBuilt     = errors.New("index already built")
	ErrInvalidQuery          = errors.New("invalid query")
	ErrEmbeddingTimeout      = errors.New("embedding timed out")
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	ErrGenerationTimeout     = errors.New("generation timed out")
	ErrInvalidConfig         = errors.New("invalid configuration")
)

// FetchError records a failure to load a single source locator.
// It is non-fatal: the loader skips the locator and continues.
type FetchError struct {
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
