package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acervolabs/acervo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("backblaze")
	require.NoError(t, err)
	assert.Equal(t, ProviderBackblaze, p)

	p, err = ParseProvider(" Supabase ")
	require.NoError(t, err)
	assert.Equal(t, ProviderSupabase, p)

	p, err = ParseProvider("google_drive")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogleDrive, p)

	_, err = ParseProvider("s3")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestExtractKey(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "plain key",
			ref:  "cases/42/petition.pdf",
			want: "cases/42/petition.pdf",
		},
		{
			name: "plain key with leading slash",
			ref:  "/cases/42/petition.pdf",
			want: "cases/42/petition.pdf",
		},
		{
			name: "backblaze friendly url",
			ref:  "https://f000.backblazeb2.com/file/legal-docs/cases/42/petition.pdf",
			want: "cases/42/petition.pdf",
		},
		{
			name: "supabase public url",
			ref:  "https://abc.supabase.co/storage/v1/object/public/documents/contracts/7.pdf",
			want: "contracts/7.pdf",
		},
		{
			name: "supabase signed url",
			ref:  "https://abc.supabase.co/storage/v1/object/sign/documents/contracts/7.pdf",
			want: "contracts/7.pdf",
		},
		{
			name: "supabase authenticated url",
			ref:  "https://abc.supabase.co/storage/v1/object/authenticated/documents/a/b.pdf",
			want: "a/b.pdf",
		},
		{
			name: "unknown url keeps path",
			ref:  "https://example.com/downloads/file.pdf",
			want: "downloads/file.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKey(tt.ref))
		})
	}
}

func TestBackblazeAdapterDownload(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/pdf; charset=binary")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	a := NewBackblazeAdapter(config.NewBackblazeConfig(srv.URL, "legal-docs", "tok123"), srv.Client())

	blob, err := a.Download(context.Background(), "cases/42/petition.pdf")
	require.NoError(t, err)

	assert.Equal(t, "/file/legal-docs/cases/42/petition.pdf", gotPath)
	assert.Equal(t, "tok123", gotAuth)
	assert.Equal(t, []byte("%PDF-1.4 fake"), blob.Data())
	assert.Equal(t, "application/pdf", blob.MimeType())
	assert.Equal(t, 13, blob.Size())
}

func TestSupabaseAdapterDownloadAuthenticated(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("text"))
	}))
	defer srv.Close()

	a := NewSupabaseAdapter(config.NewSupabaseConfig(srv.URL, "documents", "svc-key"), srv.Client())

	_, err := a.Download(context.Background(), "contracts/7.txt")
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/documents/contracts/7.txt", gotPath)
	assert.Equal(t, "Bearer svc-key", gotAuth)
}

func TestSupabaseAdapterDownloadPublic(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("text"))
	}))
	defer srv.Close()

	a := NewSupabaseAdapter(config.NewSupabaseConfig(srv.URL, "documents", ""), srv.Client())

	_, err := a.Download(context.Background(), "contracts/7.txt")
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/public/documents/contracts/7.txt", gotPath)
}

func TestGoogleDriveAdapterDownload(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("doc"))
	}))
	defer srv.Close()

	a := NewGoogleDriveAdapter(config.NewGoogleDriveConfig("oauth-tok"), srv.Client()).
		WithBaseURL(srv.URL)

	_, err := a.Download(context.Background(), "1AbC-dEf")
	require.NoError(t, err)
	assert.Equal(t, "/files/1AbC-dEf", gotPath)
	assert.Equal(t, "alt=media", gotQuery)
	assert.Equal(t, "Bearer oauth-tok", gotAuth)
}

func TestDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := NewBackblazeAdapter(config.NewBackblazeConfig(srv.URL, "b", ""), srv.Client())

	_, err := a.Download(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDownloadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewSupabaseAdapter(config.NewSupabaseConfig(srv.URL, "b", ""), srv.Client())

	_, err := a.Download(context.Background(), "x.pdf")
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestResolver(t *testing.T) {
	r := NewResolverFromConfig(config.StorageConfig{}, nil)
	_, err := r.Adapter(ProviderBackblaze)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, r.Providers())
}
