// Package search defines the embedding and query contracts for semantic
// search over the knowledge base.
package search

import "context"

// Embedder converts text into embedding vectors.
//
// EmbedMany silently drops inputs that normalize to the empty string before
// calling the model, so its output length may be shorter than its input
// length. Callers that need positional alignment must pre-filter.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float64, error)
}
