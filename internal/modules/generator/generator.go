// Package generator expands a (trend, offer) pair into a structured draft
// document. Pure transformation: no I/O, never fails for valid input.
package generator

import (
	"fmt"
	"strings"

	"github.com/autoprofit/core/internal/modules/offers"
	"github.com/autoprofit/core/internal/modules/trends"
)

// Section is one heading/body pair of a draft.
type Section struct {
	Heading string
	Body    string
}

// DraftPost exists only in memory until the pipeline accepts it. Slug is
// left empty here; the caller assigns it.
type DraftPost struct {
	Slug     string
	Title    string
	Keyword  string
	Summary  string
	Sections []Section
}

// WordCount is the whitespace-token count over title, summary and all
// section bodies, used by the quality gate.
func (d DraftPost) WordCount() int {
	parts := []string{d.Title, d.Summary}
	for _, sec := range d.Sections {
		parts = append(parts, sec.Body)
	}
	return len(strings.Fields(strings.Join(parts, " ")))
}

// Generate produces the fixed four-section draft structure, embedding the
// keyword and offer name verbatim in the prose.
func Generate(trend trends.TrendItem, offer offers.Offer) DraftPost {
	keyword := strings.TrimSpace(trend.Keyword)
	title := fmt.Sprintf("%s: Buying Guide + Best Option Right Now", keyword)

	summary := fmt.Sprintf(
		"%s is attracting search demand. This page translates the trend into "+
			"a practical buying decision with a direct offer, clear tradeoffs, and an execution plan "+
			"you can apply immediately without a long setup cycle.",
		keyword,
	)

	sections := []Section{
		{
			Heading: "Why this trend matters",
			Body: fmt.Sprintf(
				"Interest around '%s' is rising. High search velocity usually means people "+
					"are actively comparing products and prices. Acting during this window captures "+
					"high-intent clicks that convert better than generic traffic. Instead of publishing "+
					"broad educational content, focus this page on decision-stage intent: clear use case, "+
					"budget guidance, and one strong recommended action. That structure improves both user "+
					"satisfaction and monetization consistency because visitors do not need to navigate "+
					"multiple pages to complete their evaluation.",
				keyword,
			),
		},
		{
			Heading: "What to evaluate before buying",
			Body: "Prioritize total cost of ownership, refund policy, social proof, and onboarding speed. " +
				"Ignoring one of these usually increases churn and refund risk. In practice, compare " +
				"30-day outcomes rather than feature lists: how fast can a new user get value, what " +
				"integration friction appears, and what hidden fees show up after the trial period. " +
				"This decision framework protects conversion quality and filters out offers that look " +
				"cheap up front but create support overhead later.",
		},
		{
			Heading: fmt.Sprintf("Recommended pick: %s", offer.Name),
			Body: fmt.Sprintf(
				"%s aligns with this trend category and has a competitive commission profile. "+
					"The call-to-action below routes through tracked attribution so performance can be measured "+
					"and optimized. Keep the CTA specific and outcome-oriented: visitors should know exactly "+
					"what they get after the click. When a campaign underperforms, rotate the headline angle "+
					"first, then test an alternative offer in the same category to preserve topical relevance "+
					"while improving earnings per click.",
				offer.Name,
			),
		},
		{
			Heading: "Automation and optimization loop",
			Body: "Every run logs generated content and affiliate click events in the database. " +
				"Use this data to rank offers by earnings-per-click and gradually remove low-performing campaigns. " +
				"A strong operating rhythm is: publish, collect at least one week of click data, compare conversion " +
				"signals by keyword family, and then either double down or sunset. This turns the project into a " +
				"repeatable revenue system instead of a one-off content experiment and reduces the need for daily " +
				"manual intervention.",
		},
	}

	return DraftPost{
		Title:    title,
		Keyword:  keyword,
		Summary:  summary,
		Sections: sections,
	}
}
