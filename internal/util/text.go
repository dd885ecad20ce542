package util

import (
	"strings"
	"unicode/utf8"
)

// SanitizeText drops NUL and other non-printing control characters that
// Postgres text columns and model prompts do not tolerate.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")

	r := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 || ch == utf8.RuneError {
			continue
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}

// TruncateRunes cuts s to maxRunes and marks the cut with "...".
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}

// YearOf returns the leading four characters of a publication date, or
// "Unknown" when the date is too short to carry a year.
func YearOf(pubDate string) string {
	pubDate = strings.TrimSpace(pubDate)
	if utf8.RuneCountInString(pubDate) < 4 {
		return "Unknown"
	}
	return string([]rune(pubDate)[:4])
}
