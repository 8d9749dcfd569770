// Package publisher renders drafts and the index listing into static HTML
// under the output directory.
package publisher

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/autoprofit/core/internal/models"
	"github.com/autoprofit/core/internal/modules/generator"
	"github.com/autoprofit/core/internal/modules/offers"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

type postPage struct {
	Post          generator.DraftPost
	Offer         offers.Offer
	OfferURL      string
	Disclosure    string
	APIBaseURL    string
	StripeEnabled bool
}

type indexPage struct {
	Posts []models.PostModel
}

// RenderPost writes <outputDir>/posts/<slug>.html and returns its path.
// I/O failures propagate; the caller treats them as unrecoverable for the
// candidate.
func RenderPost(
	outputDir string,
	post generator.DraftPost,
	offer offers.Offer,
	offerURL string,
	disclosure string,
	apiBaseURL string,
	stripeEnabled bool,
) (string, error) {
	postsDir := filepath.Join(outputDir, "posts")
	if err := os.MkdirAll(postsDir, 0o755); err != nil {
		return "", fmt.Errorf("create posts dir: %w", err)
	}

	path := filepath.Join(postsDir, post.Slug+".html")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create post page: %w", err)
	}
	defer file.Close()

	page := postPage{
		Post:          post,
		Offer:         offer,
		OfferURL:      offerURL,
		Disclosure:    disclosure,
		APIBaseURL:    apiBaseURL,
		StripeEnabled: stripeEnabled,
	}
	if err := pageTemplates.ExecuteTemplate(file, "post.html.tmpl", page); err != nil {
		return "", fmt.Errorf("render post page: %w", err)
	}
	return path, nil
}

// RenderIndex writes <outputDir>/index.html listing the given posts, newest
// first (callers pass the list pre-ordered).
func RenderIndex(outputDir string, posts []models.PostModel) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(outputDir, "index.html")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create index page: %w", err)
	}
	defer file.Close()

	if err := pageTemplates.ExecuteTemplate(file, "index.html.tmpl", indexPage{Posts: posts}); err != nil {
		return "", fmt.Errorf("render index page: %w", err)
	}
	return path, nil
}
