package validate

import (
	"html"
	"strings"
	"unicode"
)

// MaxInputLength is the maximum accepted input length in runes. Longer input
// is truncated before any further processing.
const MaxInputLength = 100

// Sanitize strips control characters, collapses whitespace, truncates to
// MaxInputLength runes, and neutralizes markup-significant characters.
// It must run before raw input is logged, stored, or echoed back.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastWasSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			// Dropped entirely, including NUL bytes.
		default:
			b.WriteRune(r)
			lastWasSpace = false
		}
	}

	cleaned := strings.TrimSpace(b.String())

	runes := []rune(cleaned)
	if len(runes) > MaxInputLength {
		cleaned = string(runes[:MaxInputLength])
	}

	return html.EscapeString(cleaned)
}
