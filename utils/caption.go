package utils

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// MaxCaptionRunes bounds caption length; anything longer would overflow the card anyway
const MaxCaptionRunes = 64

var captionPolicy = bluemonday.StrictPolicy()

// SanitizeCaption turns text coming back from a contenteditable field into a
// single plain line: markup stripped, entities decoded, whitespace collapsed,
// NFC normalised and truncated to MaxCaptionRunes.
func SanitizeCaption(raw string) string {
	stripped := html.UnescapeString(captionPolicy.Sanitize(raw))
	fields := strings.FieldsFunc(stripped, unicode.IsSpace)
	clean := norm.NFC.String(strings.Join(fields, " "))

	runes := []rune(clean)
	if len(runes) > MaxCaptionRunes {
		clean = strings.TrimSpace(string(runes[:MaxCaptionRunes]))
	}
	return clean
}
