package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("a\nb\r\nc"))
	assert.Equal(t, "hello", Normalize("  hello \n"))
	assert.Equal(t, "", Normalize(" \n\r\n "))
}

type embeddingData struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
	Object    string    `json:"object"`
}

type embeddingEnvelope struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  map[string]int  `json:"usage"`
}

// fakeOpenAI serves canned embedding responses. vectors[i] is returned for
// the i-th input text of each request.
func fakeOpenAI(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OpenAIEmbedder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	cfg.HTTPClient = srv.Client()

	e := NewOpenAIEmbedder("",
		WithClient(openai.NewClientWithConfig(cfg)),
		WithDimensions(3),
		WithMaxRetries(2),
		WithInitialDelay(time.Millisecond),
	)
	return srv, e
}

func respondEmbeddings(t *testing.T, w http.ResponseWriter, vectors [][]float64) {
	t.Helper()
	data := make([]embeddingData, len(vectors))
	for i, v := range vectors {
		data[i] = embeddingData{Embedding: v, Index: i, Object: "embedding"}
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(embeddingEnvelope{
		Object: "list",
		Data:   data,
		Model:  "text-embedding-3-small",
		Usage:  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	}))
}

func TestEmbedSingleText(t *testing.T) {
	var gotInput []any
	_, e := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotInput, _ = req["input"].([]any)
		respondEmbeddings(t, w, [][]float64{{0.1, 0.2, 0.3}})
	})

	vec, err := e.Embed(context.Background(), "first line\nsecond line")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.3}, vec, 1e-6)

	require.Len(t, gotInput, 1)
	assert.Equal(t, "first line second line", gotInput[0])
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewOpenAIEmbedder("test-key")

	_, err := e.Embed(context.Background(), "   \n  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedManyDropsEmptyTexts(t *testing.T) {
	var gotLen int
	_, e := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		input, _ := req["input"].([]any)
		gotLen = len(input)
		vectors := make([][]float64, len(input))
		for i := range vectors {
			vectors[i] = []float64{float64(i), 0, 0}
		}
		respondEmbeddings(t, w, vectors)
	})

	vectors, err := e.EmbedMany(context.Background(), []string{"one", "  ", "two", "\n"})
	require.NoError(t, err)
	assert.Equal(t, 2, gotLen)
	assert.Len(t, vectors, 2)
}

func TestEmbedManyAllEmpty(t *testing.T) {
	e := NewOpenAIEmbedder("test-key")

	vectors, err := e.EmbedMany(context.Background(), []string{"", "  "})
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedRetriesOnRateLimit(t *testing.T) {
	attempts := 0
	_, e := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
			return
		}
		respondEmbeddings(t, w, [][]float64{{1, 2, 3}})
	})

	vec, err := e.Embed(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, vec, 1e-6)
}

func TestEmbedGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	_, e := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"down","type":"server_error"}}`))
	})

	_, err := e.Embed(context.Background(), "doomed")
	require.Error(t, err)
	assert.Equal(t, 3, attempts)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "embedding", provErr.Operation())
}

func TestEmbedDoesNotRetryBadRequest(t *testing.T) {
	attempts := 0
	_, e := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	})

	_, err := e.Embed(context.Background(), "bad")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestEmbedRejectsWrongDimensionality(t *testing.T) {
	_, e := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		respondEmbeddings(t, w, [][]float64{{0.1, 0.2}})
	})

	_, err := e.Embed(context.Background(), "short vector")
	require.Error(t, err)
	assert.ErrorIs(t, err, errDimensionMismatch)
}

func TestEmbedRetriesOnCountMismatch(t *testing.T) {
	attempts := 0
	_, e := fakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			respondEmbeddings(t, w, nil)
			return
		}
		respondEmbeddings(t, w, [][]float64{{1, 1, 1}, {2, 2, 2}})
	})

	vectors, err := e.EmbedMany(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Len(t, vectors, 2)
}
