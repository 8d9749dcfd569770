package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/autoprofit/core/internal/config"
	"github.com/autoprofit/core/internal/database"
	"github.com/autoprofit/core/internal/models"
	"github.com/autoprofit/core/internal/modules/trends"
	"github.com/autoprofit/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubFetcher struct {
	items []trends.TrendItem
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string, _ int) ([]trends.TrendItem, error) {
	s.calls++
	return s.items, s.err
}

type harness struct {
	cfg   *config.AppConfig
	db    *gorm.DB
	store store.Store
}

const testOffersYAML = `
offers:
  - name: Amazon Electronics
    slug: amazon-electronics
    categories: [laptop, electronics, earbuds]
    affiliate_url: "https://amazon.example/?tag={affiliate_tag}"
    fallback_url: "https://amazon.example/"
    commission_rate: 0.04
  - name: Shopify
    slug: shopify
    categories: [ecommerce, store]
    affiliate_url: "https://shopify.example/?ref={affiliate_tag}"
    commission_rate: 0.2
`

func setup(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	offersPath := filepath.Join(dir, "offers.yaml")
	require.NoError(t, os.WriteFile(offersPath, []byte(testOffersYAML), 0o644))

	fallbackPath := filepath.Join(dir, "fallback.yaml")
	require.NoError(t, os.WriteFile(fallbackPath, []byte(
		"fallback_keywords:\n  - best budget laptop\n  - wireless earbuds deal\n",
	), 0o644))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.AppConfig{
		Env:                  "development",
		DataDir:              filepath.Join(dir, "data"),
		OutputDir:            filepath.Join(dir, "public"),
		DBPath:               filepath.Join(dir, "data", "test.db"),
		TrendsRSSURL:         "https://feed.invalid/rss",
		TrendsTimeout:        time.Second,
		MaxPostsPerRun:       3,
		QualityMinWordCount:  50,
		OffersFile:           offersPath,
		FallbackKeywordsFile: fallbackPath,
		DomainURL:            "http://localhost:8000",
		AffiliateTag:         "testtag-20",
		AffiliateDisclosure:  "Disclosure text.",
	}

	return &harness{cfg: cfg, db: db, store: store.New(db)}
}

func (h *harness) pipeline(t *testing.T, fetcher TrendFetcher) *Pipeline {
	t.Helper()
	return New(h.cfg, h.store, zap.NewNop(),
		WithFetcher(fetcher),
		WithSleep(func(time.Duration) {}),
	)
}

func (h *harness) lastRun(t *testing.T) models.RunModel {
	t.Helper()
	var run models.RunModel
	require.NoError(t, h.db.Order("id DESC").First(&run).Error)
	return run
}

func TestRunCreatesPosts(t *testing.T) {
	h := setup(t)
	fetcher := &stubFetcher{items: []trends.TrendItem{
		{Keyword: "best budget laptop", SourceURL: "https://src.example/a", Score: 1.5},
	}}
	p := h.pipeline(t, fetcher)

	summary, err := p.Run(context.Background(), Options{Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Posts, 1)
	assert.Equal(t, "best-budget-laptop", summary.Posts[0].Slug)
	assert.Equal(t, "Amazon Electronics", summary.Posts[0].OfferName)

	// page and index exist on disk
	assert.FileExists(t, filepath.Join(h.cfg.OutputDir, "posts", "best-budget-laptop.html"))
	assert.FileExists(t, filepath.Join(h.cfg.OutputDir, "index.html"))

	// post row persisted with the tracked offer URL
	var post models.PostModel
	require.NoError(t, h.db.Where("slug = ?", "best-budget-laptop").First(&post).Error)
	assert.Contains(t, post.OfferURL, "utm_campaign=best-budget-laptop")
	assert.Contains(t, post.OfferURL, "tag=testtag-20")

	run := h.lastRun(t)
	assert.Equal(t, models.RunStatusSuccess, run.Status)
	require.NotNil(t, run.FinishedAt)

	var persisted Summary
	require.NoError(t, json.Unmarshal([]byte(run.SummaryJSON), &persisted))
	assert.Equal(t, summary.Created, persisted.Created)
}

func TestRunSkipsExistingSlugs(t *testing.T) {
	h := setup(t)
	// no fallback list: the stub keyword is the only candidate
	h.cfg.FallbackKeywordsFile = filepath.Join(t.TempDir(), "absent.yaml")
	fetcher := &stubFetcher{items: []trends.TrendItem{
		{Keyword: "best budget laptop", SourceURL: "s", Score: 1.5},
	}}
	p := h.pipeline(t, fetcher)

	first, err := p.Run(context.Background(), Options{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	second, err := p.Run(context.Background(), Options{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Skipped)

	var count int64
	require.NoError(t, h.db.Model(&models.PostModel{}).Where("slug = ?", "best-budget-laptop").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunRefreshUsesDateVariant(t *testing.T) {
	h := setup(t)
	h.cfg.AllowRefreshExist = true
	h.cfg.FallbackKeywordsFile = filepath.Join(t.TempDir(), "absent.yaml")
	fixed := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	fetcher := &stubFetcher{items: []trends.TrendItem{
		{Keyword: "best budget laptop", SourceURL: "s", Score: 1.5},
	}}
	p := New(h.cfg, h.store, zap.NewNop(),
		WithFetcher(fetcher),
		WithSleep(func(time.Duration) {}),
		WithClock(func() time.Time { return fixed }),
	)

	_, err := p.Run(context.Background(), Options{Limit: 1})
	require.NoError(t, err)

	refreshed, err := p.Run(context.Background(), Options{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1, refreshed.Created)
	assert.Equal(t, "best-budget-laptop-20250314", refreshed.Posts[0].Slug)

	// a third run the same day skips: at most one variant per keyword per day
	third, err := p.Run(context.Background(), Options{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, third.Created)
	assert.Equal(t, 1, third.Skipped)
}

func TestRunQualityGate(t *testing.T) {
	h := setup(t)
	h.cfg.QualityMinWordCount = 100000

	fetcher := &stubFetcher{items: []trends.TrendItem{
		{Keyword: "best budget laptop", SourceURL: "s", Score: 1.5},
	}}
	p := h.pipeline(t, fetcher)

	summary, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Created)
	assert.GreaterOrEqual(t, summary.Failed, 1)

	run := h.lastRun(t)
	assert.Equal(t, models.RunStatusPartial, run.Status)
}

func TestRunDryRun(t *testing.T) {
	h := setup(t)
	fetcher := &stubFetcher{items: []trends.TrendItem{
		{Keyword: "best budget laptop", SourceURL: "s", Score: 1.5},
	}}
	p := h.pipeline(t, fetcher)

	summary, err := p.Run(context.Background(), Options{Limit: 1, DryRun: true})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Created)
	assert.Equal(t, "dry-run", summary.Posts[0].HTMLPath)

	var count int64
	require.NoError(t, h.db.Model(&models.PostModel{}).Count(&count).Error)
	assert.Zero(t, count, "dry run must not persist posts")
	assert.NoFileExists(t, filepath.Join(h.cfg.OutputDir, "index.html"))

	run := h.lastRun(t)
	assert.Equal(t, models.RunStatusSuccess, run.Status)
}

func TestRunFallsBackWhenFetchFails(t *testing.T) {
	h := setup(t)
	var slept []time.Duration
	fetcher := &stubFetcher{err: errors.New("feed down")}
	p := New(h.cfg, h.store, zap.NewNop(),
		WithFetcher(fetcher),
		WithSleep(func(d time.Duration) { slept = append(slept, d) }),
	)

	summary, err := p.Run(context.Background(), Options{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)

	// both fallback keywords match the Amazon offer and get published
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, models.RunStatusSuccess, h.lastRun(t).Status)
}

func TestRunMissingOffersFileFailsRun(t *testing.T) {
	h := setup(t)
	h.cfg.OffersFile = filepath.Join(t.TempDir(), "absent.yaml")
	fetcher := &stubFetcher{items: []trends.TrendItem{
		{Keyword: "best budget laptop", SourceURL: "s", Score: 1.5},
	}}
	p := h.pipeline(t, fetcher)

	summary, err := p.Run(context.Background(), Options{Limit: 1})
	require.NoError(t, err, "post-setup failures are folded into the summary")

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Failed)
	assert.NotEmpty(t, summary.Error)

	run := h.lastRun(t)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	require.NotNil(t, run.FinishedAt)
}

func TestRunHonorsCandidateOrderByScore(t *testing.T) {
	h := setup(t)
	fetcher := &stubFetcher{items: []trends.TrendItem{
		{Keyword: "standing desk electronics", SourceURL: "s", Score: 1.0},
		{Keyword: "best laptop deal", SourceURL: "s", Score: 1.8},
	}}
	p := h.pipeline(t, fetcher)

	summary, err := p.Run(context.Background(), Options{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Created)
	assert.Equal(t, "best-laptop-deal", summary.Posts[0].Slug)
}
