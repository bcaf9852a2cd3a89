package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/infrastructure/chunking"
	"github.com/acervolabs/acervo/infrastructure/storage"
	"github.com/acervolabs/acervo/internal/config"
)

func testChunker(t *testing.T) chunking.Chunker {
	t.Helper()
	c, err := chunking.NewChunker(chunking.Params{Size: 80, Overlap: 20, PreserveParagraphs: true})
	require.NoError(t, err)
	return c
}

func testIndexer(t *testing.T, store *fakeStore, embedder *fakeEmbedder, extractor Extractor, blobs BlobResolver) *Indexer {
	t.Helper()
	cfg := config.NewIndexingConfig().
		WithMinTextLength(10).
		WithBackfillDelay(time.Millisecond)
	return NewIndexer(store, embedder, extractor, blobs, testChunker(t), cfg, nil)
}

const sampleText = "The defendant filed a motion to dismiss.\n\nThe court denied the motion on procedural grounds."

func TestIndexTextWritesOneGeneration(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	idx := testIndexer(t, store, embedder, fakeExtractor{}, fakeResolver{})

	req := NewIndexRequest(embedding.EntityTypeDocument, 42,
		WithParent(7),
		WithIndexedBy(99),
		WithTags(map[string]any{"source": "upload", "chunk_index": "spoofed"}),
	)

	result, err := idx.IndexText(context.Background(), req, sampleText)
	require.NoError(t, err)

	assert.Equal(t, OutcomeIndexed, result.Outcome())
	assert.True(t, result.Indexed())
	assert.NotEmpty(t, result.Generation())

	records := store.savedRecords()
	require.Equal(t, result.Chunks(), len(records))
	require.NotEmpty(t, records)

	for n, rec := range records {
		assert.Equal(t, embedding.EntityTypeDocument, rec.EntityType())
		assert.Equal(t, int64(42), rec.EntityID())
		assert.Equal(t, int64(7), rec.ParentID())
		assert.Equal(t, int64(99), rec.IndexedBy())
		assert.Equal(t, result.Generation(), rec.Generation())
		assert.NotEmpty(t, rec.Vector())

		metadata := rec.Metadata()
		assert.Equal(t, "upload", metadata["source"])
		// Pipeline provenance wins over the spoofed caller value.
		assert.Equal(t, n, metadata[embedding.MetaChunkIndex])
		assert.Contains(t, metadata, embedding.MetaStartChar)
		assert.Contains(t, metadata, embedding.MetaEndChar)
	}
}

func TestIndexTextDeletesStaleGenerations(t *testing.T) {
	store := &fakeStore{}
	idx := testIndexer(t, store, &fakeEmbedder{}, fakeExtractor{}, fakeResolver{})

	req := NewIndexRequest(embedding.EntityTypeCase, 5)
	result, err := idx.IndexText(context.Background(), req, sampleText)
	require.NoError(t, err)

	require.Len(t, store.deletes, 1)
	q := store.deletes[0]
	assert.True(t, hasCondition(q, "entity_type", "case"))
	assert.True(t, hasCondition(q, "entity_id", int64(5)))
	assert.True(t, hasNegatedCondition(q, "generation", result.Generation()))
}

func TestIndexTextSkipsShortText(t *testing.T) {
	store := &fakeStore{}
	idx := testIndexer(t, store, &fakeEmbedder{}, fakeExtractor{}, fakeResolver{})

	result, err := idx.IndexText(context.Background(),
		NewIndexRequest(embedding.EntityTypeDocument, 1), "  tiny  ")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkippedTooShort, result.Outcome())
	assert.False(t, result.Indexed())
	assert.Empty(t, store.saved)
	assert.Empty(t, store.deletes)
}

func TestIndexTextEmbedderFailureLeavesStoreUntouched(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{err: errors.New("model down")}
	idx := testIndexer(t, store, embedder, fakeExtractor{}, fakeResolver{})

	_, err := idx.IndexText(context.Background(),
		NewIndexRequest(embedding.EntityTypeDocument, 1), sampleText)

	assert.ErrorIs(t, err, ErrEmbeddingProvider)
	assert.Empty(t, store.saved)
	assert.Empty(t, store.deletes)
}

func TestIndexTextAlignmentMismatch(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{drop: 1}
	idx := testIndexer(t, store, embedder, fakeExtractor{}, fakeResolver{})

	_, err := idx.IndexText(context.Background(),
		NewIndexRequest(embedding.EntityTypeDocument, 1), sampleText)

	assert.ErrorIs(t, err, ErrAlignment)
	assert.Empty(t, store.saved)
}

func TestIndexTextSaveFailureCleansUpItsGeneration(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	idx := testIndexer(t, store, &fakeEmbedder{}, fakeExtractor{}, fakeResolver{})

	_, err := idx.IndexText(context.Background(),
		NewIndexRequest(embedding.EntityTypeContract, 3), sampleText)

	assert.ErrorIs(t, err, ErrRepositoryWrite)

	// The cleanup delete targets the failed generation, not the survivors.
	require.Len(t, store.deletes, 1)
	q := store.deletes[0]
	assert.True(t, hasCondition(q, "entity_type", "contract"))
	found := false
	for _, c := range q.Conditions() {
		if c.Field() == "generation" && !c.Negated() {
			found = true
		}
	}
	assert.True(t, found)
}

func TestIndexDocumentSkipsUnsupportedType(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{blob: storage.NewBlob([]byte("binary"), "image/png")}
	idx := testIndexer(t, store, &fakeEmbedder{},
		fakeExtractor{supported: false}, fakeResolver{adapter: adapter})

	result, err := idx.IndexDocument(context.Background(),
		NewIndexRequest(embedding.EntityTypeDocument, 1),
		NewDocumentSource(storage.ProviderBackblaze, "scan.png", ""))
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkippedUnsupported, result.Outcome())
	assert.Empty(t, store.saved)
}

func TestIndexDocumentDownloadFailure(t *testing.T) {
	adapter := &fakeAdapter{err: storage.ErrObjectNotFound}
	idx := testIndexer(t, &fakeStore{}, &fakeEmbedder{},
		fakeExtractor{supported: true}, fakeResolver{adapter: adapter})

	_, err := idx.IndexDocument(context.Background(),
		NewIndexRequest(embedding.EntityTypeDocument, 1),
		NewDocumentSource(storage.ProviderBackblaze, "gone.pdf", "application/pdf"))

	assert.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestIndexDocumentUnconfiguredProvider(t *testing.T) {
	idx := testIndexer(t, &fakeStore{}, &fakeEmbedder{},
		fakeExtractor{supported: true}, fakeResolver{err: storage.ErrNotConfigured})

	_, err := idx.IndexDocument(context.Background(),
		NewIndexRequest(embedding.EntityTypeDocument, 1),
		NewDocumentSource(storage.ProviderGoogleDrive, "id", ""))

	assert.ErrorIs(t, err, ErrDownload)
}

func TestIndexDocumentExtractsStorageKeyFromURL(t *testing.T) {
	adapter := &fakeAdapter{blob: storage.NewBlob([]byte(sampleText), "text/plain")}
	idx := testIndexer(t, &fakeStore{}, &fakeEmbedder{},
		fakeExtractor{supported: true, text: sampleText}, fakeResolver{adapter: adapter})

	_, err := idx.IndexDocument(context.Background(),
		NewIndexRequest(embedding.EntityTypeDocument, 1),
		NewDocumentSource(storage.ProviderBackblaze,
			"https://f000.backblazeb2.com/file/legal-docs/cases/1/a.txt", ""))
	require.NoError(t, err)

	require.Len(t, adapter.keys, 1)
	assert.Equal(t, "cases/1/a.txt", adapter.keys[0])
}

func TestIndexDocumentExtractionFailure(t *testing.T) {
	adapter := &fakeAdapter{blob: storage.NewBlob([]byte("%PDF"), "application/pdf")}
	idx := testIndexer(t, &fakeStore{}, &fakeEmbedder{},
		fakeExtractor{supported: true, err: errors.New("corrupt xref")},
		fakeResolver{adapter: adapter})

	_, err := idx.IndexDocument(context.Background(),
		NewIndexRequest(embedding.EntityTypeDocument, 1),
		NewDocumentSource(storage.ProviderBackblaze, "a.pdf", ""))

	assert.ErrorIs(t, err, ErrExtraction)
}

func TestReindexReplacesPreviousGeneration(t *testing.T) {
	store := &fakeStore{}
	idx := testIndexer(t, store, &fakeEmbedder{}, fakeExtractor{}, fakeResolver{})
	req := NewIndexRequest(embedding.EntityTypeDocument, 42)

	first, err := idx.IndexText(context.Background(), req, sampleText)
	require.NoError(t, err)
	second, err := idx.IndexText(context.Background(), req, sampleText)
	require.NoError(t, err)

	assert.NotEqual(t, first.Generation(), second.Generation())
	require.Len(t, store.deletes, 2)
	assert.True(t, hasNegatedCondition(store.deletes[1], "generation", second.Generation()))
}

func TestSameEntityRunsAreSerialized(t *testing.T) {
	var active, peak int32
	embedder := &fakeEmbedder{
		onEmbed: func() {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		},
	}
	idx := testIndexer(t, &fakeStore{}, embedder, fakeExtractor{}, fakeResolver{})
	req := NewIndexRequest(embedding.EntityTypeDocument, 42)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := idx.IndexText(context.Background(), req, sampleText)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestIsIndexed(t *testing.T) {
	store := &fakeStore{count: 3}
	idx := testIndexer(t, store, &fakeEmbedder{}, fakeExtractor{}, fakeResolver{})

	indexed, err := idx.IsIndexed(context.Background(), embedding.EntityTypeCase, 5)
	require.NoError(t, err)
	assert.True(t, indexed)

	require.Len(t, store.counts, 1)
	assert.True(t, hasCondition(store.counts[0], "entity_type", "case"))
	assert.True(t, hasCondition(store.counts[0], "entity_id", int64(5)))

	store.count = 0
	indexed, err = idx.IsIndexed(context.Background(), embedding.EntityTypeCase, 5)
	require.NoError(t, err)
	assert.False(t, indexed)
}

func TestDeleteEntityAndParent(t *testing.T) {
	store := &fakeStore{}
	idx := testIndexer(t, store, &fakeEmbedder{}, fakeExtractor{}, fakeResolver{})

	require.NoError(t, idx.DeleteEntity(context.Background(), embedding.EntityTypeDocument, 8))
	require.NoError(t, idx.DeleteParent(context.Background(), 7))

	require.Len(t, store.deletes, 2)
	assert.True(t, hasCondition(store.deletes[0], "entity_id", int64(8)))
	assert.True(t, hasCondition(store.deletes[1], "parent_id", int64(7)))
}

func TestBackfillCountsOutcomes(t *testing.T) {
	supported := &fakeAdapter{blob: storage.NewBlob([]byte(sampleText), "text/plain")}
	store := &fakeStore{}

	extractor := routingExtractor{}
	idx := testIndexer(t, store, &fakeEmbedder{}, extractor, fakeResolver{adapter: supported})

	items := []BackfillItem{
		NewBackfillItem(
			NewIndexRequest(embedding.EntityTypeDocument, 1),
			NewDocumentSource(storage.ProviderBackblaze, "a.txt", "text/plain")),
		NewBackfillItem(
			NewIndexRequest(embedding.EntityTypeDocument, 2),
			NewDocumentSource(storage.ProviderBackblaze, "b.png", "image/png")),
		NewBackfillItem(
			NewIndexRequest(embedding.EntityTypeDocument, 3),
			NewDocumentSource(storage.ProviderBackblaze, "c.txt", "fail/extract")),
	}

	report, err := idx.Backfill(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Indexed())
	assert.Equal(t, 1, report.Skipped())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 3, report.Total())
}

func TestBackfillStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := testIndexer(t, &fakeStore{}, &fakeEmbedder{}, fakeExtractor{}, fakeResolver{})
	report, err := idx.Backfill(ctx, []BackfillItem{
		NewBackfillItem(NewIndexRequest(embedding.EntityTypeDocument, 1),
			NewDocumentSource(storage.ProviderBackblaze, "a.txt", "text/plain")),
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Total())
}

// routingExtractor supports everything except images and fails on the
// "fail/extract" type, exercising all three backfill outcomes.
type routingExtractor struct{}

func (routingExtractor) IsSupported(mimeType string) bool {
	return !strings.HasPrefix(mimeType, "image/")
}

func (routingExtractor) Extract(_ context.Context, data []byte, mimeType string) (string, error) {
	if mimeType == "fail/extract" {
		return "", errors.New("boom")
	}
	return string(data), nil
}
