package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxMessageLength is the longest chat message accepted, in characters.
const DefaultMaxMessageLength = 1000

// MaxSessionIDLength bounds client-supplied session identifiers.
const MaxSessionIDLength = 128

var (
	ErrMessageRequired   = errors.New("message is required")
	ErrMessageNotString  = errors.New("message must be a string")
	ErrMessageEmpty      = errors.New("message cannot be empty")
	ErrMessageTooLong    = errors.New("message is too long")
	ErrSessionIDNotText  = errors.New("sessionId must be a string")
	ErrSessionIDInvalid  = errors.New("sessionId is invalid")
	ErrMessageOnlyMarkup = errors.New("message has no content after sanitization")
)

var (
	scriptBlockPattern   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlockPattern    = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	specialTokenPattern  = regexp.MustCompile(`<\|[^|>]*\|>`)
	promptMarkerPattern  = regexp.MustCompile(`(?i)\[/?INST\]|<</?SYS>>|###\s*(?:instruction|system|assistant|user)s?\s*:?`)
	tagPattern           = regexp.MustCompile(`(?s)<[^<>]*>`)
	templatePattern      = regexp.MustCompile(`(?s)\{\{.*?\}\}|\{%.*?%\}`)
	interpolationPattern = regexp.MustCompile(`(?s)[$#]\{[^}]*\}`)
	overridePattern      = regexp.MustCompile(`(?i)\b(?:ignore|disregard|forget)\s+(?:all\s+)?(?:the\s+)?(?:previous|prior|above)\s+(?:instructions?|prompts?|rules?)`)
	strayPattern         = regexp.MustCompile("\\{\\{|\\}\\}|\\{%|%\\}|`")
	whitespacePattern    = regexp.MustCompile(`\s+`)
	sessionIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// SanitizeMessage strips markup, prompt-injection delimiters, template braces
// and interpolation sequences, then collapses whitespace.
func SanitizeMessage(message string) string {
	s := scriptBlockPattern.ReplaceAllString(message, " ")
	s = styleBlockPattern.ReplaceAllString(s, " ")
	s = specialTokenPattern.ReplaceAllString(s, " ")
	s = promptMarkerPattern.ReplaceAllString(s, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	s = templatePattern.ReplaceAllString(s, " ")
	s = interpolationPattern.ReplaceAllString(s, " ")
	s = overridePattern.ReplaceAllString(s, " ")
	s = strayPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ValidateSessionID checks a client-supplied session identifier.
func ValidateSessionID(sessionID string) error {
	if len(sessionID) > MaxSessionIDLength || !sessionIDPattern.MatchString(sessionID) {
		return ErrSessionIDInvalid
	}
	return nil
}

// ChatInput is a validated, sanitized chat request.
type ChatInput struct {
	Message   string
	SessionID string
}

// ValidateChatInput validates a decoded JSON chat body and returns the sanitized message.
// Oversized messages are rejected, never truncated.
func ValidateChatInput(body map[string]interface{}, maxLength int) (ChatInput, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}

	raw, ok := body["message"]
	if !ok || raw == nil {
		return ChatInput{}, ErrMessageRequired
	}

	message, ok := raw.(string)
	if !ok {
		return ChatInput{}, ErrMessageNotString
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return ChatInput{}, ErrMessageEmpty
	}
	if utf8.RuneCountInString(message) > maxLength {
		return ChatInput{}, fmt.Errorf("%w (max %d characters)", ErrMessageTooLong, maxLength)
	}

	var sessionID string
	if rawSession, present := body["sessionId"]; present && rawSession != nil {
		s, ok := rawSession.(string)
		if !ok {
			return ChatInput{}, ErrSessionIDNotText
		}
		sessionID = strings.TrimSpace(s)
		if sessionID != "" {
			if err := ValidateSessionID(sessionID); err != nil {
				return ChatInput{}, err
			}
		}
	}

	sanitized := SanitizeMessage(message)
	if sanitized == "" {
		return ChatInput{}, ErrMessageOnlyMarkup
	}

	return ChatInput{Message: sanitized, SessionID: sessionID}, nil
}
