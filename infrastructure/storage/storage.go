// Package storage downloads document blobs from the configured object
// storage providers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Storage errors.
var (
	ErrUnknownProvider = errors.New("unknown storage provider")
	ErrNotConfigured   = errors.New("storage provider not configured")
	ErrObjectNotFound  = errors.New("object not found")
	ErrDownloadFailed  = errors.New("download failed")
)

// Provider identifies an object storage backend.
type Provider string

// Provider values.
const (
	ProviderBackblaze   Provider = "backblaze"
	ProviderSupabase    Provider = "supabase"
	ProviderGoogleDrive Provider = "google_drive"
)

// ParseProvider converts a string to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderBackblaze:
		return ProviderBackblaze, nil
	case ProviderSupabase:
		return ProviderSupabase, nil
	case ProviderGoogleDrive:
		return ProviderGoogleDrive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// String returns the provider name.
func (p Provider) String() string { return string(p) }

// Blob holds downloaded object bytes and the MIME type reported by the
// provider.
type Blob struct {
	data     []byte
	mimeType string
}

// NewBlob creates a Blob.
func NewBlob(data []byte, mimeType string) Blob {
	return Blob{data: data, mimeType: mimeType}
}

// Data returns the object bytes.
func (b Blob) Data() []byte { return b.data }

// MimeType returns the MIME type reported by the provider ("" if unknown).
func (b Blob) MimeType() string { return b.mimeType }

// Size returns the object size in bytes.
func (b Blob) Size() int { return len(b.data) }

// Adapter downloads an object from one storage provider given its
// bucket-relative key.
type Adapter interface {
	Download(ctx context.Context, key string) (Blob, error)
}

// Resolver maps providers to their configured adapters.
type Resolver struct {
	adapters map[Provider]Adapter
}

// NewResolver creates a Resolver from the given adapters. Nil adapters are
// treated as not configured.
func NewResolver(adapters map[Provider]Adapter) Resolver {
	m := make(map[Provider]Adapter, len(adapters))
	for p, a := range adapters {
		if a != nil {
			m[p] = a
		}
	}
	return Resolver{adapters: m}
}

// Adapter returns the adapter for the given provider.
func (r Resolver) Adapter(p Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, p)
	}
	return a, nil
}

// Providers returns the configured providers.
func (r Resolver) Providers() []Provider {
	out := make([]Provider, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}
