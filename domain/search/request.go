package search

import "github.com/acervolabs/acervo/domain/embedding"

// Default search parameters.
const (
	DefaultMatchThreshold = 0.7
	DefaultMatchCount     = 5
)

// Request carries a natural-language query with its search parameters.
type Request struct {
	query          string
	matchThreshold float64
	matchCount     int
	entityType     embedding.EntityType
	parentID       int64
	metadata       map[string]any
}

// RequestOption configures a Request.
type RequestOption func(*Request)

// NewRequest creates a Request with default threshold and count.
func NewRequest(query string, opts ...RequestOption) Request {
	r := Request{
		query:          query,
		matchThreshold: DefaultMatchThreshold,
		matchCount:     DefaultMatchCount,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithMatchThreshold sets the minimum similarity for a hit. Values outside
// [0, 1] are ignored.
func WithMatchThreshold(t float64) RequestOption {
	return func(r *Request) {
		if t >= 0 && t <= 1 {
			r.matchThreshold = t
		}
	}
}

// WithMatchCount sets the maximum number of hits. Values <= 0 are ignored.
func WithMatchCount(n int) RequestOption {
	return func(r *Request) {
		if n > 0 {
			r.matchCount = n
		}
	}
}

// WithEntityType restricts hits to one entity type.
func WithEntityType(t embedding.EntityType) RequestOption {
	return func(r *Request) {
		r.entityType = t
	}
}

// WithParentID restricts hits to records owned by the given parent.
func WithParentID(id int64) RequestOption {
	return func(r *Request) {
		r.parentID = id
	}
}

// WithMetadata restricts hits to rows whose metadata contains all the given
// key-value pairs.
func WithMetadata(filter map[string]any) RequestOption {
	return func(r *Request) {
		if filter == nil {
			r.metadata = nil
			return
		}
		cp := make(map[string]any, len(filter))
		for k, v := range filter {
			cp[k] = v
		}
		r.metadata = cp
	}
}

// Query returns the natural-language query.
func (r Request) Query() string { return r.query }

// MatchThreshold returns the minimum similarity for a hit.
func (r Request) MatchThreshold() float64 { return r.matchThreshold }

// MatchCount returns the maximum number of hits.
func (r Request) MatchCount() int { return r.matchCount }

// EntityType returns the entity type filter ("" means unfiltered).
func (r Request) EntityType() embedding.EntityType { return r.entityType }

// ParentID returns the parent filter (0 means unfiltered).
func (r Request) ParentID() int64 { return r.parentID }

// Metadata returns a copy of the metadata filter, or nil.
func (r Request) Metadata() map[string]any {
	if r.metadata == nil {
		return nil
	}
	cp := make(map[string]any, len(r.metadata))
	for k, v := range r.metadata {
		cp[k] = v
	}
	return cp
}
