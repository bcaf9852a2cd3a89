package provider

import "strings"

// Normalize prepares text for embedding: newlines become spaces so the model
// sees one continuous passage, and surrounding whitespace is trimmed.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}
