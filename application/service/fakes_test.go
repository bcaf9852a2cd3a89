package service

import (
	"context"
	"sync"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/domain/record"
	"github.com/acervolabs/acervo/infrastructure/storage"
)

// fakeStore implements embedding.Store, recording every call.
type fakeStore struct {
	mu      sync.Mutex
	saved   [][]embedding.Record
	deletes []record.Query
	counts  []record.Query

	saveErr   error
	deleteErr error
	count     int64
	countErr  error
	matches   []embedding.Match
	searchErr error
	searched  []record.Query
}

func (f *fakeStore) SaveAll(_ context.Context, records []embedding.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := make([]embedding.Record, len(records))
	copy(cp, records)
	f.saved = append(f.saved, cp)
	return nil
}

func (f *fakeStore) DeleteBy(_ context.Context, options ...record.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, record.Build(options...))
	return f.deleteErr
}

func (f *fakeStore) Count(_ context.Context, options ...record.Option) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = append(f.counts, record.Build(options...))
	return f.count, f.countErr
}

func (f *fakeStore) Search(_ context.Context, options ...record.Option) ([]embedding.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, record.Build(options...))
	return f.matches, f.searchErr
}

func (f *fakeStore) savedRecords() []embedding.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []embedding.Record
	for _, batch := range f.saved {
		all = append(all, batch...)
	}
	return all
}

// fakeEmbedder implements search.Embedder with a fixed dimensionality.
// When drop > 0 it returns that many vectors fewer than requested.
type fakeEmbedder struct {
	err   error
	drop  int
	calls [][]string

	// onEmbed, when set, runs inside every EmbedMany call.
	onEmbed func()
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := f.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float64, error) {
	if f.onEmbed != nil {
		f.onEmbed()
	}
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, texts)
	n := len(texts) - f.drop
	if n < 0 {
		n = 0
	}
	vectors := make([][]float64, n)
	for i := range vectors {
		vectors[i] = []float64{float64(i), 1, 0}
	}
	return vectors, nil
}

// fakeExtractor implements Extractor.
type fakeExtractor struct {
	supported bool
	text      string
	err       error
}

func (f fakeExtractor) IsSupported(string) bool { return f.supported }

func (f fakeExtractor) Extract(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

// fakeAdapter implements storage.Adapter.
type fakeAdapter struct {
	blob storage.Blob
	err  error
	keys []string
}

func (f *fakeAdapter) Download(_ context.Context, key string) (storage.Blob, error) {
	f.keys = append(f.keys, key)
	return f.blob, f.err
}

// fakeResolver implements BlobResolver.
type fakeResolver struct {
	adapter storage.Adapter
	err     error
}

func (f fakeResolver) Adapter(storage.Provider) (storage.Adapter, error) {
	return f.adapter, f.err
}

// query inspection helpers

func hasCondition(q record.Query, field string, value any) bool {
	for _, c := range q.Conditions() {
		if c.Field() == field && !c.Negated() && c.Value() == value {
			return true
		}
	}
	return false
}

func hasNegatedCondition(q record.Query, field string, value any) bool {
	for _, c := range q.Conditions() {
		if c.Field() == field && c.Negated() && c.Value() == value {
			return true
		}
	}
	return false
}
