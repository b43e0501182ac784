// Package document normalizes raw input text before analysis.
package document

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinLength is the minimum normalized length, in characters, worth analyzing.
const MinLength = 50

var ErrTooShort = errors.New("document too short to analyze")

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// Document is normalized text. Length counts characters, not bytes.
type Document struct {
	Text   string
	Length int
}

// Normalize cleans raw text and enforces MinLength. The returned error wraps
// ErrTooShort when the cleaned text is too short.
func Normalize(raw string) (Document, error) {
	text := Clean(raw)
	n := utf8.RuneCountInString(text)
	if n < MinLength {
		return Document{}, fmt.Errorf("%w: %d characters, minimum is %d", ErrTooShort, n, MinLength)
	}
	return Document{Text: text, Length: n}, nil
}

// Clean drops NUL and other control characters (keeping newlines and tabs),
// unifies line endings, collapses three or more newlines to two and trims.
func Clean(raw string) string {
	text := strings.ToValidUTF8(raw, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
