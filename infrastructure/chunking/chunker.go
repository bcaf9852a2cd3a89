// Package chunking splits extracted text into overlapping chunks for
// embedding, preserving paragraph boundaries where possible.
package chunking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// paragraphBreak matches a blank-line paragraph separator.
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Params configures the chunking algorithm. Size and Overlap are measured in
// bytes of the original text; chunk offsets index into the original string.
type Params struct {
	Size               int
	Overlap            int
	PreserveParagraphs bool
}

// DefaultParams returns the default chunking parameters.
func DefaultParams() Params {
	return Params{
		Size:               1000,
		Overlap:            200,
		PreserveParagraphs: true,
	}
}

// Chunk is a piece of the original text with its start and end offsets.
// End is exclusive, so Content == original[Start():End()] for window chunks
// and spans the paragraph run for merged chunks.
type Chunk struct {
	content string
	start   int
	end     int
}

// Content returns the chunk text.
func (c Chunk) Content() string { return c.content }

// Start returns the offset of the first byte of the chunk in the original text.
func (c Chunk) Start() int { return c.start }

// End returns the offset just past the last byte of the chunk.
func (c Chunk) End() int { return c.end }

// Chunker splits text according to its Params.
type Chunker struct {
	params Params
}

// NewChunker creates a Chunker. Overlap must be smaller than Size and
// both must be positive; otherwise the sliding window cannot advance.
func NewChunker(params Params) (Chunker, error) {
	if params.Size <= 0 {
		return Chunker{}, fmt.Errorf("chunk size (%d) must be positive", params.Size)
	}
	if params.Overlap < 0 {
		return Chunker{}, fmt.Errorf("chunk overlap (%d) must not be negative", params.Overlap)
	}
	if params.Overlap >= params.Size {
		return Chunker{}, fmt.Errorf("overlap (%d) must be less than size (%d)", params.Overlap, params.Size)
	}
	return Chunker{params: params}, nil
}

// Params returns the chunker configuration.
func (c Chunker) Params() Params { return c.params }

// Split chunks the text. Whitespace-only input yields no chunks. Text at or
// under the chunk size yields a single chunk spanning the whole input.
func (c Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if len(text) <= c.params.Size {
		return []Chunk{{content: text, start: 0, end: len(text)}}
	}

	if !c.params.PreserveParagraphs {
		return c.slide(text, 0)
	}

	var chunks []Chunk
	var acc []segment

	for _, seg := range splitParagraphs(text) {
		if len(seg.text) > c.params.Size {
			chunks = flush(chunks, acc)
			acc = nil
			chunks = append(chunks, c.slide(seg.text, seg.start)...)
			continue
		}

		if len(acc) > 0 && joinedLen(acc)+joinSepLen+len(seg.text) > c.params.Size {
			chunks = flush(chunks, acc)
			acc = nil
		}
		acc = append(acc, seg)
	}

	return flush(chunks, acc)
}

// segment is a paragraph with its offset in the original text.
type segment struct {
	text  string
	start int
}

// joinSepLen is the length of the "\n\n" separator used when merging
// paragraphs into one chunk.
const joinSepLen = 2

// splitParagraphs splits text on blank lines, keeping original offsets.
// Whitespace-only segments are dropped.
func splitParagraphs(text string) []segment {
	var segs []segment
	prev := 0
	for _, loc := range paragraphBreak.FindAllStringIndex(text, -1) {
		segs = appendSegment(segs, text, prev, loc[0])
		prev = loc[1]
	}
	return appendSegment(segs, text, prev, len(text))
}

func appendSegment(segs []segment, text string, start, end int) []segment {
	part := text[start:end]
	trimmed := strings.TrimSpace(part)
	if trimmed == "" {
		return segs
	}
	// Track the offset of the trimmed text, not the raw slice.
	lead := strings.Index(part, trimmed)
	return append(segs, segment{text: trimmed, start: start + lead})
}

func joinedLen(acc []segment) int {
	n := 0
	for i, seg := range acc {
		if i > 0 {
			n += joinSepLen
		}
		n += len(seg.text)
	}
	return n
}

// flush emits the accumulated paragraphs as one chunk joined with a blank
// line. The chunk spans from the first paragraph's start to the last
// paragraph's end in the original text.
func flush(chunks []Chunk, acc []segment) []Chunk {
	if len(acc) == 0 {
		return chunks
	}
	parts := make([]string, len(acc))
	for i, seg := range acc {
		parts[i] = seg.text
	}
	last := acc[len(acc)-1]
	return append(chunks, Chunk{
		content: strings.Join(parts, "\n\n"),
		start:   acc[0].start,
		end:     last.start + len(last.text),
	})
}

// slide splits oversized text with a fixed-size window stepping by
// Size - Overlap. Window edges land on rune boundaries so a multi-byte rune
// is never split; the final window is truncated at the end of the text.
func (c Chunker) slide(text string, base int) []Chunk {
	step := c.params.Size - c.params.Overlap

	var chunks []Chunk
	start := 0
	for {
		end := start + c.params.Size
		if end >= len(text) {
			end = len(text)
		} else if end = alignRune(text, end); end == start {
			// Window smaller than the rune at start; take the whole rune.
			_, n := utf8.DecodeRuneInString(text[start:])
			end = start + n
		}
		chunks = append(chunks, Chunk{
			content: text[start:end],
			start:   base + start,
			end:     base + end,
		})
		if end == len(text) {
			return chunks
		}
		next := alignRune(text, start+step)
		if next <= start {
			// Backing off ate the whole step; advance past the rune at start.
			_, n := utf8.DecodeRuneInString(text[start:])
			next = start + n
		}
		start = next
	}
}

// alignRune moves i back to the start of the rune containing it. Size and
// Overlap count bytes, so window edges can land inside a multi-byte rune;
// backing off keeps every chunk valid UTF-8 while offsets stay byte offsets.
func alignRune(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
