// Package offers loads the affiliate catalog and selects the best offer for
// a keyword by category-token overlap.
package offers

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrConfig means the catalog file is malformed; fatal to the run.
	ErrConfig = errors.New("offer catalog config error")
	// ErrNoOffers means the catalog is empty.
	ErrNoOffers = errors.New("no offers are configured")
	// ErrNoRelevantOffer means the best candidate's overlap is below the
	// required minimum.
	ErrNoRelevantOffer = errors.New("no relevant offer match")
)

const (
	affiliateTagPlaceholder = "{affiliate_tag}"
	defaultCTAText          = "Check current pricing"
)

// Offer is one entry of the static affiliate catalog, immutable during a run.
type Offer struct {
	Name           string   `yaml:"name"`
	Slug           string   `yaml:"slug"`
	Categories     []string `yaml:"categories"`
	AffiliateURL   string   `yaml:"affiliate_url"`
	FallbackURL    string   `yaml:"fallback_url"`
	CTAText        string   `yaml:"cta_text"`
	CommissionRate float64  `yaml:"commission_rate"`
}

type catalogFile struct {
	Offers []Offer `yaml:"offers"`
}

// Load reads the YAML catalog. Name, slug and affiliate_url are required;
// fallback_url defaults to the affiliate URL and cta_text to a generic label.
func Load(path string) ([]Offer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	var payload catalogFile
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}

	for i := range payload.Offers {
		offer := &payload.Offers[i]
		if offer.Name == "" || offer.Slug == "" || offer.AffiliateURL == "" {
			return nil, fmt.Errorf("%w: offer %d missing name, slug or affiliate_url", ErrConfig, i)
		}
		if offer.FallbackURL == "" {
			offer.FallbackURL = offer.AffiliateURL
		}
		if offer.CTAText == "" {
			offer.CTAText = defaultCTAText
		}
	}
	return payload.Offers, nil
}

var alnumTokens = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Choose picks the offer with the highest (category overlap, commission rate)
// composite key. Ties at identical keys go to the first offer in catalog
// order, so the selection is deterministic for a fixed input.
func Choose(keyword string, catalog []Offer, minOverlap int) (Offer, error) {
	if len(catalog) == 0 {
		return Offer{}, ErrNoOffers
	}

	tokens := make(map[string]struct{})
	for _, tok := range alnumTokens.FindAllString(strings.ToLower(keyword), -1) {
		tokens[tok] = struct{}{}
	}

	bestIdx := 0
	bestOverlap := overlap(tokens, catalog[0].Categories)
	for i := 1; i < len(catalog); i++ {
		ov := overlap(tokens, catalog[i].Categories)
		if ov > bestOverlap ||
			(ov == bestOverlap && catalog[i].CommissionRate > catalog[bestIdx].CommissionRate) {
			bestIdx = i
			bestOverlap = ov
		}
	}

	if bestOverlap < minOverlap {
		return Offer{}, ErrNoRelevantOffer
	}
	return catalog[bestIdx], nil
}

func overlap(tokens map[string]struct{}, categories []string) int {
	seen := make(map[string]struct{}, len(categories))
	count := 0
	for _, cat := range categories {
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		if _, ok := tokens[cat]; ok {
			count++
		}
	}
	return count
}

// BuildURL produces the tracked destination: the affiliate tag placeholder is
// substituted (or the fallback URL used when no tag is configured), and four
// utm tracking parameters are merged into the query string, overwriting any
// colliding keys.
func BuildURL(offer Offer, affiliateTag, keyword, slug string) string {
	base := offer.AffiliateURL
	if strings.Contains(base, affiliateTagPlaceholder) {
		if affiliateTag == "" {
			base = offer.FallbackURL
		} else {
			base = strings.ReplaceAll(base, affiliateTagPlaceholder, affiliateTag)
		}
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return base
	}
	params := parsed.Query()
	params.Set("utm_source", "autoprofit")
	params.Set("utm_medium", "affiliate")
	params.Set("utm_campaign", slug)
	params.Set("utm_term", keyword)
	parsed.RawQuery = params.Encode()
	return parsed.String()
}
