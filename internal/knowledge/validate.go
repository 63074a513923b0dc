package knowledge

import (
	"strings"
	"unicode/utf8"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/chunker"
)

// MaxTextLength is the longest chunk text kept by cleanup
const MaxTextLength = 10000

var blockedTitles = map[string]bool{
	"untitled":    true,
	"test":        true,
	"sample":      true,
	"lorem ipsum": true,
	"placeholder": true,
}

// InvalidReason explains why a chunk is rejected. Empty means the chunk is valid.
func InvalidReason(title, text string) string {
	trimmed := strings.TrimSpace(text)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n < chunker.DefaultMinLength:
		return "text too short"
	case n > MaxTextLength:
		return "text too long"
	case blockedTitles[strings.ToLower(strings.TrimSpace(title))]:
		return "placeholder title"
	}
	return ""
}

// IsInvalid reports whether a chunk should be removed by cleanup
func IsInvalid(title, text string) bool {
	return InvalidReason(title, text) != ""
}
