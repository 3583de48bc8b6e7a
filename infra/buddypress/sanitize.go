package buddypress

import (
	"html"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/x/ansi"
	"github.com/microcosm-cc/bluemonday"
)

// bodyPolicy is safe for concurrent use once built.
var bodyPolicy = bluemonday.UGCPolicy()

// sanitizeHTML makes backend-supplied HTML safe to store and render.
func sanitizeHTML(s string) string {
	return strings.TrimSpace(bodyPolicy.Sanitize(s))
}

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	lineBreakRe = regexp.MustCompile(`(?i)</p>|<br\s*/?>`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// stripHTML removes HTML tags and decodes entities for plain-text display.
// Not a security boundary; bodies go through sanitizeHTML first.
func stripHTML(s string) string {
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return sanitizeForTerminal(strings.TrimSpace(s))
}

// sanitizeForTerminal drops escape sequences and control characters other
// than newlines and tabs.
func sanitizeForTerminal(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// normalizeTimestamp prefers the GMT field and falls back to the site-local
// one, reading both as UTC when no zone is present.
func normalizeTimestamp(gmt, local string) time.Time {
	for _, raw := range []string{gmt, local} {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "0000-00-00") {
			continue
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
