// Package chunker splits knowledge text into overlapping segments sized for embedding.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultTargetSize = 1000
	DefaultOverlap    = 200
	DefaultMinLength  = 50
)

// Options configures chunking behavior. Sizes are measured in characters (runes).
type Options struct {
	TargetSize int
	Overlap    int
	MinLength  int // segments shorter than this are dropped as noise
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		Overlap:    DefaultOverlap,
		MinLength:  DefaultMinLength,
	}
}

// Span is a chunk together with its rune offsets in the original text.
type Span struct {
	Text  string
	Start int
	End   int
}

// Chunk splits text into segments of roughly targetSize characters where each
// segment after the first starts overlap characters before the previous end.
func Chunk(text string, targetSize, overlap int) []string {
	spans := Split(text, Options{
		TargetSize: targetSize,
		Overlap:    overlap,
		MinLength:  DefaultMinLength,
	})
	if len(spans) == 0 {
		return nil
	}

	chunks := make([]string, len(spans))
	for i, s := range spans {
		chunks[i] = s.Text
	}
	return chunks
}

// Split is Chunk with explicit options and offsets.
//
// A segment ends at Start+TargetSize unless the text ends first. When more text
// remains, the end is pulled back to the last sentence end or newline found in
// the trailing half of the window.
func Split(text string, opts Options) []Span {
	if opts.TargetSize <= 0 {
		opts.TargetSize = DefaultTargetSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.MinLength < 0 {
		opts.MinLength = 0
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var spans []Span
	start := 0
	for start < n {
		end := start + opts.TargetSize
		if end >= n {
			end = n
		} else {
			half := start + opts.TargetSize/2
			for i := end - 1; i > half; i-- {
				if isBreak(runes[i]) {
					end = i + 1
					break
				}
			}
		}

		segment := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(segment) >= opts.MinLength && segment != "" {
			spans = append(spans, Span{Text: segment, Start: start, End: end})
		}

		if end >= n {
			break
		}

		next := end - opts.Overlap
		if next <= start {
			// overlap would stall or rewind; continue from the end instead
			next = end
		}
		start = next
	}

	return spans
}

func isBreak(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}
