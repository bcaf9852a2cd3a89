package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/domain/search"
	"github.com/acervolabs/acervo/infrastructure/chunking"
	"github.com/acervolabs/acervo/infrastructure/storage"
	"github.com/acervolabs/acervo/internal/config"
)

// Extractor converts document bytes into plain text.
type Extractor interface {
	IsSupported(mimeType string) bool
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// BlobResolver returns the download adapter for a storage provider.
type BlobResolver interface {
	Adapter(p storage.Provider) (storage.Adapter, error)
}

// Outcome describes how an indexing run ended.
type Outcome string

// Outcome values.
const (
	// OutcomeIndexed means a new generation of embeddings was written.
	OutcomeIndexed Outcome = "indexed"

	// OutcomeSkippedUnsupported means the document's MIME type has no
	// extractor. Existing embeddings are left untouched.
	OutcomeSkippedUnsupported Outcome = "skipped_unsupported"

	// OutcomeSkippedTooShort means the extracted text was below the minimum
	// indexable length. Existing embeddings are left untouched.
	OutcomeSkippedTooShort Outcome = "skipped_too_short"
)

// Result reports the outcome of one indexing run.
type Result struct {
	outcome    Outcome
	chunks     int
	generation string
}

// Outcome returns how the run ended.
func (r Result) Outcome() Outcome { return r.outcome }

// Chunks returns the number of embedding records written.
func (r Result) Chunks() int { return r.chunks }

// Generation returns the generation tag of the written records ("" when the
// run was skipped).
func (r Result) Generation() string { return r.generation }

// Indexed reports whether a new generation was written.
func (r Result) Indexed() bool { return r.outcome == OutcomeIndexed }

// IndexRequest identifies the entity being indexed and its bookkeeping
// attributes.
type IndexRequest struct {
	entityType embedding.EntityType
	entityID   int64
	parentID   int64
	indexedBy  int64
	metadata   map[string]any
}

// IndexOption configures an IndexRequest.
type IndexOption func(*IndexRequest)

// WithParent ties the embeddings to a coarser-grained owner record, such as
// the case a document belongs to.
func WithParent(parentID int64) IndexOption {
	return func(r *IndexRequest) { r.parentID = parentID }
}

// WithIndexedBy records which user triggered the run.
func WithIndexedBy(userID int64) IndexOption {
	return func(r *IndexRequest) { r.indexedBy = userID }
}

// WithTags attaches caller metadata to every chunk. Pipeline-written keys
// (chunk_index, start_char, end_char) win on collision.
func WithTags(metadata map[string]any) IndexOption {
	return func(r *IndexRequest) {
		if metadata == nil {
			r.metadata = nil
			return
		}
		cp := make(map[string]any, len(metadata))
		for k, v := range metadata {
			cp[k] = v
		}
		r.metadata = cp
	}
}

// NewIndexRequest creates an IndexRequest.
func NewIndexRequest(entityType embedding.EntityType, entityID int64, opts ...IndexOption) IndexRequest {
	r := IndexRequest{entityType: entityType, entityID: entityID}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// EntityType returns the entity type.
func (r IndexRequest) EntityType() embedding.EntityType { return r.entityType }

// EntityID returns the entity identifier.
func (r IndexRequest) EntityID() int64 { return r.entityID }

// ParentID returns the owner identifier (0 when unowned).
func (r IndexRequest) ParentID() int64 { return r.parentID }

// DocumentSource locates a document blob in object storage.
type DocumentSource struct {
	provider storage.Provider
	key      string
	mimeType string
}

// NewDocumentSource creates a DocumentSource. The key may be a plain object
// key or a full storage URL; mimeType may be empty, in which case the type
// reported by the storage provider is used.
func NewDocumentSource(provider storage.Provider, key, mimeType string) DocumentSource {
	return DocumentSource{provider: provider, key: key, mimeType: mimeType}
}

// Provider returns the storage provider.
func (s DocumentSource) Provider() storage.Provider { return s.provider }

// Key returns the object key or URL.
func (s DocumentSource) Key() string { return s.key }

// MimeType returns the declared MIME type ("" when unknown).
func (s DocumentSource) MimeType() string { return s.mimeType }

// Indexer orchestrates the pipeline: download, extract, chunk, embed, save.
// Runs for the same entity are serialized; a failed run never mutates the
// entity's existing embeddings.
type Indexer struct {
	store     embedding.Store
	embedder  search.Embedder
	extractor Extractor
	blobs     BlobResolver
	chunker   chunking.Chunker
	cfg       config.IndexingConfig
	locks     *entityLocks
	logger    *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(
	store embedding.Store,
	embedder search.Embedder,
	extractor Extractor,
	blobs BlobResolver,
	chunker chunking.Chunker,
	cfg config.IndexingConfig,
	logger *slog.Logger,
) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		blobs:     blobs,
		chunker:   chunker,
		cfg:       cfg,
		locks:     newEntityLocks(),
		logger:    logger,
	}
}

// IndexDocument downloads a document, extracts its text and indexes it.
// Unsupported MIME types and too-short texts are reported as skips, not
// errors, so bulk callers can keep going.
func (i *Indexer) IndexDocument(ctx context.Context, req IndexRequest, src DocumentSource) (Result, error) {
	unlock := i.locks.Lock(req.entityType, req.entityID)
	defer unlock()

	adapter, err := i.blobs.Adapter(src.Provider())
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	blob, err := adapter.Download(ctx, storage.ExtractKey(src.Key()))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	mimeType := src.MimeType()
	if mimeType == "" {
		mimeType = blob.MimeType()
	}

	if !i.extractor.IsSupported(mimeType) {
		i.logger.Info("skipping unsupported document",
			"entity_type", req.entityType,
			"entity_id", req.entityID,
			"mime_type", mimeType,
		)
		return Result{outcome: OutcomeSkippedUnsupported}, nil
	}

	text, err := i.extractor.Extract(ctx, blob.Data(), mimeType)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	return i.indexLocked(ctx, req, text)
}

// IndexText indexes already-extracted text, bypassing download and
// extraction. Case summaries, clause bodies and docket entries arrive here.
func (i *Indexer) IndexText(ctx context.Context, req IndexRequest, text string) (Result, error) {
	unlock := i.locks.Lock(req.entityType, req.entityID)
	defer unlock()

	return i.indexLocked(ctx, req, text)
}

// indexLocked runs chunk, embed, save. The caller holds the entity lock.
//
// Replacement is insert first, delete stale after: the new generation is
// written alongside the old one, then rows from other generations are
// removed. A crash between the two steps leaves extra rows, never a window
// with no rows.
func (i *Indexer) indexLocked(ctx context.Context, req IndexRequest, text string) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < i.cfg.MinTextLength() {
		i.logger.Info("skipping short text",
			"entity_type", req.entityType,
			"entity_id", req.entityID,
			"length", len(trimmed),
		)
		return Result{outcome: OutcomeSkippedTooShort}, nil
	}

	chunks := i.chunker.Split(trimmed)
	texts := make([]string, 0, len(chunks))
	kept := make([]chunking.Chunk, 0, len(chunks))
	for _, c := range chunks {
		// The provider drops whitespace-only inputs, which would break the
		// chunk/vector alignment below. Filter them here instead.
		if strings.TrimSpace(c.Content()) == "" {
			continue
		}
		texts = append(texts, c.Content())
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return Result{outcome: OutcomeSkippedTooShort}, nil
	}

	vectors, err := i.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrEmbeddingProvider, err)
	}
	if len(vectors) != len(kept) {
		return Result{}, fmt.Errorf("%w: %d chunks, %d vectors", ErrAlignment, len(kept), len(vectors))
	}

	generation := uuid.NewString()
	records := make([]embedding.Record, len(kept))
	for n, c := range kept {
		records[n] = embedding.NewRecord(req.entityType, req.entityID, c.Content(), vectors[n]).
			WithParent(req.parentID).
			WithMetadata(i.chunkMetadata(req, n, c)).
			WithGeneration(generation).
			WithIndexedBy(req.indexedBy)
	}

	if err := i.store.SaveAll(ctx, records); err != nil {
		i.cleanupGeneration(ctx, req, generation)
		return Result{}, fmt.Errorf("%w: %w", ErrRepositoryWrite, err)
	}

	if err := i.store.DeleteBy(ctx,
		embedding.WithEntity(req.entityType, req.entityID),
		embedding.WithGenerationNot(generation),
	); err != nil {
		// The new generation is fully written; stale rows only waste space
		// and will be removed by the next successful run.
		i.logger.Warn("failed to delete stale embeddings",
			"entity_type", req.entityType,
			"entity_id", req.entityID,
			"generation", generation,
			"error", err,
		)
	}

	i.logger.Info("entity indexed",
		"entity_type", req.entityType,
		"entity_id", req.entityID,
		"chunks", len(records),
		"generation", generation,
	)

	return Result{outcome: OutcomeIndexed, chunks: len(records), generation: generation}, nil
}

// chunkMetadata merges caller tags with chunk provenance. Pipeline keys win
// so provenance cannot be spoofed by caller metadata.
func (i *Indexer) chunkMetadata(req IndexRequest, index int, c chunking.Chunk) map[string]any {
	metadata := make(map[string]any, len(req.metadata)+3)
	for k, v := range req.metadata {
		metadata[k] = v
	}
	metadata[embedding.MetaChunkIndex] = index
	metadata[embedding.MetaStartChar] = c.Start()
	metadata[embedding.MetaEndChar] = c.End()
	return metadata
}

// cleanupGeneration removes rows of a failed generation best effort. The
// previous generation is still in place either way.
func (i *Indexer) cleanupGeneration(ctx context.Context, req IndexRequest, generation string) {
	if err := i.store.DeleteBy(ctx,
		embedding.WithEntity(req.entityType, req.entityID),
		embedding.WithGeneration(generation),
	); err != nil {
		i.logger.Warn("failed to clean up partial generation",
			"entity_type", req.entityType,
			"entity_id", req.entityID,
			"generation", generation,
			"error", err,
		)
	}
}

// IsIndexed reports whether the entity has any embeddings.
func (i *Indexer) IsIndexed(ctx context.Context, entityType embedding.EntityType, entityID int64) (bool, error) {
	count, err := i.store.Count(ctx, embedding.WithEntity(entityType, entityID))
	if err != nil {
		return false, fmt.Errorf("count embeddings: %w", err)
	}
	return count > 0, nil
}

// DeleteEntity removes all embeddings of one entity.
func (i *Indexer) DeleteEntity(ctx context.Context, entityType embedding.EntityType, entityID int64) error {
	unlock := i.locks.Lock(entityType, entityID)
	defer unlock()

	return i.store.DeleteBy(ctx, embedding.WithEntity(entityType, entityID))
}

// DeleteParent removes all embeddings owned by a parent record, across
// entity types.
func (i *Indexer) DeleteParent(ctx context.Context, parentID int64) error {
	return i.store.DeleteBy(ctx, embedding.WithParentID(parentID))
}
