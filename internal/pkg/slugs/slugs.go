// Package slugs derives URL-safe post identifiers from keywords.
package slugs

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)
	separators   = regexp.MustCompile(`[\s_-]+`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// Slugify lowercases the value and reduces it to [a-z0-9-]. The result is
// never empty: an input with no usable characters falls back to a
// timestamp-based slug. Idempotent for already-slugified input.
func Slugify(value string) string {
	cleaned := strings.ToLower(strings.TrimSpace(nonSlugChars.ReplaceAllString(value, "")))
	cleaned = separators.ReplaceAllString(cleaned, "-")
	cleaned = hyphenRuns.ReplaceAllString(cleaned, "-")
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		return fmt.Sprintf("post-%s", time.Now().UTC().Format("20060102150405"))
	}
	return cleaned
}

// DateVariant appends the calendar day, used when refresh is enabled and the
// base slug is already taken. At most one variant per keyword per day.
func DateVariant(base string, now time.Time) string {
	return fmt.Sprintf("%s-%s", base, now.UTC().Format("20060102"))
}
