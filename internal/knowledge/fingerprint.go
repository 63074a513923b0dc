// Package knowledge holds the pure rules behind knowledge ingestion:
// content fingerprints, classification, validity checks and source import.
package knowledge

import (
	"regexp"
	"strings"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/security"
)

var spacePattern = regexp.MustCompile(`\s+`)

// Normalize collapses whitespace, trims and lower-cases text
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(spacePattern.ReplaceAllString(text, " ")))
}

// Fingerprint returns the content hash used for deduplication.
// Title and source never contribute.
func Fingerprint(text string) string {
	return security.HashText(Normalize(text))
}

// ValidFingerprint reports whether s looks like a value produced by Fingerprint
func ValidFingerprint(s string) bool {
	_, err := security.FromHexString(s)
	return err == nil
}
