package slugs

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slugCharset = regexp.MustCompile(`^[a-z0-9-]+$`)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Best Laptop Deals 2025", "best-laptop-deals-2025"},
		{"  spaced   out  ", "spaced-out"},
		{"C++ vs. Rust!", "c-vs-rust"},
		{"snake_case_input", "snake-case-input"},
		{"already-a-slug", "already-a-slug"},
		{"---leading and trailing---", "leading-and-trailing"},
	}
	for _, tc := range cases {
		got := Slugify(tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.Regexp(t, slugCharset, got)
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	for _, in := range []string{"Best Laptop Deals 2025", "C++ vs. Rust!", "plain"} {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once))
	}
}

func TestSlugifyEmptyFallsBackToTimestamp(t *testing.T) {
	for _, in := range []string{"", "!!!", "   ", "日本語"} {
		got := Slugify(in)
		require.True(t, strings.HasPrefix(got, "post-"), "input %q produced %q", in, got)
		assert.Regexp(t, `^post-\d{14}$`, got)
	}
}

func TestDateVariant(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, "best-laptop-20250314", DateVariant("best-laptop", now))

	// variant day follows UTC, not the local zone of the timestamp
	eastern := time.FixedZone("UTC+9", 9*3600)
	late := time.Date(2025, 3, 14, 2, 0, 0, 0, eastern) // 2025-03-13 17:00 UTC
	assert.Equal(t, "best-laptop-20250313", DateVariant("best-laptop", late))
}
