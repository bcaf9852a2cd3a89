package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	runsOfSpaces   = regexp.MustCompile(`[ \t]+`)
	runsOfNewlines = regexp.MustCompile(`\n{3,}`)
)

// extractHTML strips markup and returns the readable text of an HTML
// document. Script, style and noscript content is removed entirely.
func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	doc.Find("script, style, noscript").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	// Block elements become line breaks so headings and paragraphs do not
	// run together in the extracted text.
	var b strings.Builder
	sel.Find("p, h1, h2, h3, h4, h5, h6, li, td, th, blockquote, pre, br, div").
		Each(func(_ int, s *goquery.Selection) {
			s.AppendHtml("\n")
		})
	b.WriteString(sel.Text())

	return normalizeWhitespace(b.String()), nil
}

// normalizeWhitespace collapses runs of spaces and trims each line, keeping
// at most one blank line between paragraphs.
func normalizeWhitespace(text string) string {
	text = runsOfSpaces.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	return runsOfNewlines.ReplaceAllString(text, "\n\n")
}
