package generator

import (
	"strings"
	"testing"

	"github.com/autoprofit/core/internal/modules/offers"
	"github.com/autoprofit/core/internal/modules/trends"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	trend := trends.TrendItem{Keyword: "best budget laptop", SourceURL: "https://example.com/a"}
	offer := offers.Offer{Name: "Amazon Electronics", Slug: "amazon-electronics"}

	draft := Generate(trend, offer)

	assert.Contains(t, draft.Title, "best budget laptop")
	assert.Contains(t, draft.Summary, "best budget laptop")
	require.Len(t, draft.Sections, 4)

	joined := draft.Title + " " + draft.Summary
	for _, sec := range draft.Sections {
		assert.NotEmpty(t, sec.Heading)
		assert.NotEmpty(t, sec.Body)
		joined += " " + sec.Body
	}
	assert.Contains(t, joined, "Amazon Electronics")
	assert.Empty(t, draft.Slug) // assigned by the caller, never here
}

func TestGenerateTrimsKeyword(t *testing.T) {
	draft := Generate(trends.TrendItem{Keyword: "  standing desk  "}, offers.Offer{Name: "X"})
	assert.Equal(t, "standing desk", draft.Keyword)
	assert.True(t, strings.HasPrefix(draft.Title, "standing desk:"))
}

func TestWordCount(t *testing.T) {
	draft := DraftPost{
		Title:   "one two",
		Summary: "three four five",
		Sections: []Section{
			{Heading: "ignored heading", Body: "six seven"},
			{Body: "  eight  "},
		},
	}
	assert.Equal(t, 8, draft.WordCount())
}

func TestGeneratedDraftMeetsQualityFloor(t *testing.T) {
	draft := Generate(
		trends.TrendItem{Keyword: "wireless earbuds deal"},
		offers.Offer{Name: "Amazon Electronics"},
	)
	assert.GreaterOrEqual(t, draft.WordCount(), 260)
}
