// Package trends is the keyword source: a trending-topics RSS feed with a
// static local fallback list, both scored by a buyer-intent heuristic.
package trends

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// ErrFetch wraps network and parse failures of the remote feed.
var ErrFetch = errors.New("trend feed fetch failed")

// FallbackSourceURL marks candidates that came from the local keyword list.
const FallbackSourceURL = "local-fallback"

const userAgent = "autoprofit/1.0"

// TrendItem is a scored keyword candidate, produced per run and never
// persisted directly.
type TrendItem struct {
	Title     string
	Keyword   string
	SourceURL string
	Score     float64
}

// buyerIntentWeights multiplies the base score per matched token.
var buyerIntentWeights = map[string]float64{
	"best":   1.2,
	"buy":    1.2,
	"deal":   1.15,
	"price":  1.1,
	"review": 1.05,
	"vs":     1.05,
	"top":    1.0,
}

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	alnumTokens    = regexp.MustCompile(`[a-zA-Z0-9]+`)
)

// NormalizeKeyword collapses whitespace, trims, strips literal '#' and caps
// the keyword at 120 characters.
func NormalizeKeyword(raw string) string {
	cleaned := strings.TrimSpace(whitespaceRuns.ReplaceAllString(raw, " "))
	cleaned = strings.ReplaceAll(cleaned, "#", "")
	if len(cleaned) > 120 {
		cleaned = cleaned[:120]
	}
	return cleaned
}

// IntentScore computes the heuristic ordering score for a keyword: base 1.0,
// multiplied by the weight of each buyer-intent token present, plus a small
// length bonus, rounded to 4 decimal places.
func IntentScore(keyword string) float64 {
	tokens := tokenSet(keyword)
	score := 1.0
	for token, weight := range buyerIntentWeights {
		if _, ok := tokens[token]; ok {
			score *= weight
		}
	}
	score += math.Min(float64(len(tokens))/25, 0.5)
	return math.Round(score*1e4) / 1e4
}

func tokenSet(keyword string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range alnumTokens.FindAllString(strings.ToLower(keyword), -1) {
		set[tok] = struct{}{}
	}
	return set
}

// Fetcher pulls trend candidates from an RSS feed.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher builds a Fetcher with a bounded-timeout HTTP client.
func NewFetcher(timeout time.Duration) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}
	return &Fetcher{parser: parser}
}

// Fetch downloads and parses the feed, returning at most limit normalized,
// scored candidates. Network and parse failures surface as ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, limit int) ([]TrendItem, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	items := make([]TrendItem, 0, limit)
	for _, entry := range feed.Items {
		title := NormalizeKeyword(entry.Title)
		if title == "" {
			continue
		}
		sourceURL := entry.Link
		if sourceURL == "" {
			sourceURL = feedURL
		}
		items = append(items, TrendItem{
			Title:     title,
			Keyword:   title,
			SourceURL: sourceURL,
			Score:     IntentScore(title),
		})
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

type fallbackFile struct {
	FallbackKeywords []string `yaml:"fallback_keywords"`
}

// LoadFallback reads the static keyword list so a run never starves when the
// feed is down. A missing file yields an empty list, not an error.
func LoadFallback(path string, limit int) ([]TrendItem, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fallback keywords: %w", err)
	}

	var payload fallbackFile
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse fallback keywords: %w", err)
	}

	keywords := payload.FallbackKeywords
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	items := make([]TrendItem, 0, len(keywords))
	for _, keyword := range keywords {
		items = append(items, TrendItem{
			Title:     keyword,
			Keyword:   keyword,
			SourceURL: FallbackSourceURL,
			Score:     IntentScore(keyword),
		})
	}
	return items, nil
}

// Merge appends fallback candidates to the fetched set, de-duplicating
// case-insensitively by keyword with fetched candidates taking priority.
func Merge(fetched, fallback []TrendItem) []TrendItem {
	merged := make([]TrendItem, 0, len(fetched)+len(fallback))
	known := make(map[string]struct{}, len(fetched))
	for _, item := range fetched {
		key := strings.ToLower(item.Keyword)
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range fallback {
		key := strings.ToLower(item.Keyword)
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		merged = append(merged, item)
	}
	return merged
}
