// Package extract converts downloaded document bytes into plain text for
// chunking and embedding.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedMIME indicates the document's MIME type has no extractor.
var ErrUnsupportedMIME = errors.New("unsupported mime type")

// ErrInvalidDocument indicates the document bytes could not be parsed.
var ErrInvalidDocument = errors.New("invalid document")

// PDFBackend extracts plain text from PDF bytes. The default backend parses
// in-process; alternative backends can shell out to external services.
type PDFBackend interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Extractor routes documents to a format-specific text extractor based on
// MIME type.
type Extractor struct {
	pdf PDFBackend
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPDFBackend replaces the default PDF backend.
func WithPDFBackend(b PDFBackend) Option {
	return func(e *Extractor) {
		if b != nil {
			e.pdf = b
		}
	}
}

// NewExtractor creates an Extractor with the default PDF backend.
func NewExtractor(opts ...Option) Extractor {
	e := Extractor{pdf: PDFTextBackend{}}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// kind buckets MIME types by substring, so vendor variants like
// "application/x-pdf" and "text/html; charset=utf-8" still match.
func kind(mimeType string) string {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "pdf"):
		return "pdf"
	case strings.Contains(mt, "markdown"):
		return "markdown"
	case strings.Contains(mt, "html"):
		return "html"
	case strings.Contains(mt, "text/plain"):
		return "plain"
	default:
		return ""
	}
}

// IsSupported reports whether documents of the given MIME type can be
// extracted.
func (e Extractor) IsSupported(mimeType string) bool {
	return kind(mimeType) != ""
}

// Extract converts document bytes to plain text. The result is trimmed of
// leading and trailing whitespace; callers decide whether the remaining text
// is long enough to index.
func (e Extractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	var (
		text string
		err  error
	)

	switch kind(mimeType) {
	case "pdf":
		text, err = e.pdf.ExtractText(ctx, data)
	case "markdown":
		text, err = extractMarkdown(data)
	case "html":
		text, err = extractHTML(data)
	case "plain":
		text, err = extractPlain(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMIME, mimeType)
	}

	if err != nil {
		return "", fmt.Errorf("extract %s: %w", kind(mimeType), err)
	}
	return strings.TrimSpace(text), nil
}

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidDocument)
	}
	return string(data), nil
}
