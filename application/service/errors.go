// Package service provides application layer services that orchestrate the
// indexing pipeline and semantic search.
package service

import "errors"

// Pipeline errors. Each wraps the stage-specific cause so callers can both
// branch on the stage and inspect the root failure.
var (
	// ErrDownload indicates the document bytes could not be fetched from
	// storage.
	ErrDownload = errors.New("document download failed")

	// ErrExtraction indicates text extraction failed for a supported type.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbeddingProvider indicates the embedding API call failed.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrAlignment indicates the provider returned a different number of
	// vectors than chunks were submitted. Persisting would attach vectors to
	// the wrong chunks, so the run is aborted.
	ErrAlignment = errors.New("chunk/vector alignment mismatch")

	// ErrRepositoryWrite indicates persisting the new generation failed. Any
	// rows already written for the failed generation are cleaned up best
	// effort; the previously indexed generation stays untouched.
	ErrRepositoryWrite = errors.New("embedding write failed")

	// ErrEmptyQuery indicates a search was requested with an empty query.
	ErrEmptyQuery = errors.New("empty search query")
)
