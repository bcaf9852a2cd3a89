// Package v1 implements the version 1 HTTP API.
package v1

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query          string         `json:"query"`
	MatchThreshold *float64       `json:"match_threshold,omitempty"`
	MatchCount     *int           `json:"match_count,omitempty"`
	EntityType     string         `json:"entity_type,omitempty"`
	ParentID       int64          `json:"parent_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// SearchMatch is one search hit.
type SearchMatch struct {
	ID         int64          `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	ParentID   int64          `json:"parent_id,omitempty"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Matches []SearchMatch `json:"matches"`
}

// IndexDocumentRequest is the body of POST /api/v1/index/documents.
type IndexDocumentRequest struct {
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	ParentID   int64          `json:"parent_id,omitempty"`
	IndexedBy  int64          `json:"indexed_by,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	Provider string `json:"provider"`
	Key      string `json:"key"`
	MimeType string `json:"mime_type,omitempty"`
}

// IndexTextRequest is the body of POST /api/v1/index/text.
type IndexTextRequest struct {
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	ParentID   int64          `json:"parent_id,omitempty"`
	IndexedBy  int64          `json:"indexed_by,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	Text string `json:"text"`
}

// IndexResponse reports the outcome of an indexing run.
type IndexResponse struct {
	Outcome    string `json:"outcome"`
	Chunks     int    `json:"chunks"`
	Generation string `json:"generation,omitempty"`
}

// IndexStatusResponse is the body of GET /api/v1/index/{type}/{id}.
type IndexStatusResponse struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Indexed    bool   `json:"indexed"`
}

// BackfillRequest is the body of POST /api/v1/index/backfill.
type BackfillRequest struct {
	Items []IndexDocumentRequest `json:"items"`
}

// BackfillResponse summarizes a backfill run.
type BackfillResponse struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}
