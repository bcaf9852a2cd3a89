package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/acervolabs/acervo/internal/config"
)

// defaultHTTPTimeout bounds a single object download.
const defaultHTTPTimeout = 2 * time.Minute

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// download performs an authenticated GET and wraps the body as a Blob. The
// MIME type comes from the response Content-Type without its parameters.
func download(ctx context.Context, client *http.Client, rawURL string, header http.Header) (Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Blob{}, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Blob{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return Blob{}, ErrObjectNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Blob{}, fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Blob{}, fmt.Errorf("read body: %w", err)
	}

	mimeType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return NewBlob(data, strings.TrimSpace(mimeType)), nil
}

// escapeKey encodes each path segment of an object key, preserving slashes.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// BackblazeAdapter downloads objects via the Backblaze B2 friendly URL
// endpoint "<downloadURL>/file/<bucket>/<key>".
type BackblazeAdapter struct {
	cfg    config.BackblazeConfig
	client *http.Client
}

// NewBackblazeAdapter creates a BackblazeAdapter. A nil client uses a
// default with a download timeout.
func NewBackblazeAdapter(cfg config.BackblazeConfig, client *http.Client) BackblazeAdapter {
	if client == nil {
		client = defaultHTTPClient()
	}
	return BackblazeAdapter{cfg: cfg, client: client}
}

// Download implements Adapter.
func (a BackblazeAdapter) Download(ctx context.Context, key string) (Blob, error) {
	u := fmt.Sprintf("%s/file/%s/%s",
		strings.TrimSuffix(a.cfg.DownloadURL(), "/"), a.cfg.Bucket(), escapeKey(key))

	header := http.Header{}
	if a.cfg.AuthToken() != "" {
		header.Set("Authorization", a.cfg.AuthToken())
	}

	blob, err := download(ctx, a.client, u, header)
	if err != nil {
		return Blob{}, fmt.Errorf("backblaze %q: %w", key, err)
	}
	return blob, nil
}

// SupabaseAdapter downloads objects from Supabase storage. With a service
// key it uses the authenticated object endpoint; otherwise the public one.
type SupabaseAdapter struct {
	cfg    config.SupabaseConfig
	client *http.Client
}

// NewSupabaseAdapter creates a SupabaseAdapter.
func NewSupabaseAdapter(cfg config.SupabaseConfig, client *http.Client) SupabaseAdapter {
	if client == nil {
		client = defaultHTTPClient()
	}
	return SupabaseAdapter{cfg: cfg, client: client}
}

// Download implements Adapter.
func (a SupabaseAdapter) Download(ctx context.Context, key string) (Blob, error) {
	base := strings.TrimSuffix(a.cfg.ProjectURL(), "/")

	var u string
	header := http.Header{}
	if a.cfg.ServiceKey() != "" {
		u = fmt.Sprintf("%s/storage/v1/object/%s/%s", base, a.cfg.Bucket(), escapeKey(key))
		header.Set("Authorization", "Bearer "+a.cfg.ServiceKey())
	} else {
		u = fmt.Sprintf("%s/storage/v1/object/public/%s/%s", base, a.cfg.Bucket(), escapeKey(key))
	}

	blob, err := download(ctx, a.client, u, header)
	if err != nil {
		return Blob{}, fmt.Errorf("supabase %q: %w", key, err)
	}
	return blob, nil
}

// GoogleDriveAdapter downloads files via the Drive v3 media endpoint. The
// object key is the Drive file ID.
type GoogleDriveAdapter struct {
	cfg     config.GoogleDriveConfig
	client  *http.Client
	baseURL string
}

// NewGoogleDriveAdapter creates a GoogleDriveAdapter.
func NewGoogleDriveAdapter(cfg config.GoogleDriveConfig, client *http.Client) GoogleDriveAdapter {
	if client == nil {
		client = defaultHTTPClient()
	}
	return GoogleDriveAdapter{
		cfg:     cfg,
		client:  client,
		baseURL: "https://www.googleapis.com/drive/v3",
	}
}

// WithBaseURL returns a copy with the API base URL replaced, for tests.
func (a GoogleDriveAdapter) WithBaseURL(base string) GoogleDriveAdapter {
	a.baseURL = strings.TrimSuffix(base, "/")
	return a
}

// Download implements Adapter.
func (a GoogleDriveAdapter) Download(ctx context.Context, key string) (Blob, error) {
	u := fmt.Sprintf("%s/files/%s?alt=media", a.baseURL, url.PathEscape(key))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.cfg.AccessToken())

	blob, err := download(ctx, a.client, u, header)
	if err != nil {
		return Blob{}, fmt.Errorf("google drive %q: %w", key, err)
	}
	return blob, nil
}

// NewResolverFromConfig builds a Resolver with an adapter for every
// configured provider.
func NewResolverFromConfig(cfg config.StorageConfig, client *http.Client) Resolver {
	adapters := make(map[Provider]Adapter)
	if cfg.Backblaze().IsConfigured() {
		adapters[ProviderBackblaze] = NewBackblazeAdapter(cfg.Backblaze(), client)
	}
	if cfg.Supabase().IsConfigured() {
		adapters[ProviderSupabase] = NewSupabaseAdapter(cfg.Supabase(), client)
	}
	if cfg.GoogleDrive().IsConfigured() {
		adapters[ProviderGoogleDrive] = NewGoogleDriveAdapter(cfg.GoogleDrive(), client)
	}
	return NewResolver(adapters)
}
