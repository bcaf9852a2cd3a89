package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/acervolabs/acervo/domain/search"
	"github.com/acervolabs/acervo/internal/config"
)

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client        *openai.Client
	model         string
	dimensions    int
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// OpenAIOption is a functional option for OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithModel sets the embedding model.
func WithModel(model string) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.model = model }
}

// WithDimensions sets the expected vector dimensionality. Responses with a
// different dimensionality are rejected.
func WithDimensions(d int) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.dimensions = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.initialDelay = d }
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.backoffFactor = f }
}

// WithClient replaces the API client, for tests.
func WithClient(client *openai.Client) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.client = client }
}

// NewOpenAIEmbedder creates an embedder with default model and retry
// parameters.
func NewOpenAIEmbedder(apiKey string, opts ...OpenAIOption) *OpenAIEmbedder {
	e := &OpenAIEmbedder{
		client:        openai.NewClient(apiKey),
		model:         config.DefaultEmbeddingModel,
		dimensions:    config.DefaultEmbeddingDim,
		maxRetries:    config.DefaultMaxRetries,
		initialDelay:  config.DefaultInitialDelay,
		backoffFactor: config.DefaultBackoffFactor,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewOpenAIEmbedderFromConfig creates an embedder from configuration.
func NewOpenAIEmbedderFromConfig(cfg config.EmbeddingConfig) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey())
	if cfg.BaseURL() != "" {
		clientCfg.BaseURL = cfg.BaseURL()
	}
	if cfg.Timeout() > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout()}
	}

	return NewOpenAIEmbedder("",
		WithClient(openai.NewClientWithConfig(clientCfg)),
		WithModel(cfg.Model()),
		WithDimensions(cfg.Dimensions()),
		WithMaxRetries(cfg.MaxRetries()),
		WithInitialDelay(cfg.InitialDelay()),
		WithBackoffFactor(cfg.BackoffFactor()),
	)
}

// Model returns the embedding model identifier.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Dimensions returns the expected vector dimensionality.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Embed generates the embedding for a single text. Text that normalizes to
// the empty string yields ErrEmptyInput.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return nil, ErrEmptyInput
	}

	vectors, err := e.embed(ctx, []string{normalized})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany generates embeddings for a batch of texts in one API call.
// Texts that normalize to the empty string are dropped, so the result may be
// shorter than the input.
func (e *OpenAIEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float64, error) {
	normalized := make([]string, 0, len(texts))
	for _, t := range texts {
		if n := Normalize(t); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		return [][]float64{}, nil
	}

	return e.embed(ctx, normalized)
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float64, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	}

	var resp openai.EmbeddingResponse
	err := e.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, req)
		if callErr != nil {
			return callErr
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts",
				errCountMismatch, len(resp.Data), len(texts))
		}
		return nil
	})
	if err != nil {
		return nil, e.wrapError("embedding", err)
	}

	vectors := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		if e.dimensions > 0 && len(data.Embedding) != e.dimensions {
			return nil, e.wrapError("embedding", fmt.Errorf(
				"%w: got %d, want %d", errDimensionMismatch, len(data.Embedding), e.dimensions))
		}
		vectors[i] = make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			vectors[i][j] = float64(v)
		}
	}
	return vectors, nil
}

// withRetry executes the function with exponential backoff retry.
func (e *OpenAIEmbedder) withRetry(ctx context.Context, fn func() error) error {
	delay := e.initialDelay
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < e.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * e.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should be retried.
func isRetryable(err error) bool {
	// Partial embedding responses can occur under transient upstream load.
	if errors.Is(err, errCountMismatch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return true
	}

	return false
}

// wrapError wraps an OpenAI error into a ProviderError.
func (e *OpenAIEmbedder) wrapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

var _ search.Embedder = (*OpenAIEmbedder)(nil)
