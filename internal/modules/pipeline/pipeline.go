// Package pipeline drives one end-to-end automation cycle: fetch trend
// candidates, merge with the fallback list, match offers, generate and
// validate drafts, persist accepted posts, and finalize the run record.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/autoprofit/core/internal/config"
	"github.com/autoprofit/core/internal/models"
	"github.com/autoprofit/core/internal/modules/generator"
	"github.com/autoprofit/core/internal/modules/offers"
	"github.com/autoprofit/core/internal/modules/publisher"
	"github.com/autoprofit/core/internal/modules/trends"
	"github.com/autoprofit/core/internal/pkg/slugs"
	"github.com/autoprofit/core/internal/store"
	"go.uber.org/zap"
)

const (
	maxFetchAttempts = 3
	minOfferOverlap  = 1
	indexListLimit   = 100
	dryRunHTMLPath   = "dry-run"
)

// ErrQualityRejected marks drafts below the minimum word count.
var ErrQualityRejected = errors.New("draft below quality word count")

// Options select per-run overrides.
type Options struct {
	// Limit overrides max_posts_per_run when > 0.
	Limit int
	// DryRun skips rendering and persistence but still counts candidates.
	DryRun bool
}

// PostSummary is one accepted post in the run summary payload.
type PostSummary struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	OfferName string `json:"offer_name"`
	HTMLPath  string `json:"html_path"`
}

// Summary is the run's output contract.
type Summary struct {
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
	Posts   []PostSummary `json:"posts"`
	Error   string        `json:"error,omitempty"`
}

// TrendFetcher abstracts the remote keyword source so tests can stub it.
type TrendFetcher interface {
	Fetch(ctx context.Context, feedURL string, limit int) ([]trends.TrendItem, error)
}

// Pipeline is the run orchestrator. Single-threaded, one pass per Run call;
// concurrent runs are not coordinated beyond the store's slug uniqueness.
type Pipeline struct {
	cfg    *config.AppConfig
	store  store.Store
	logger *zap.Logger

	fetcher      TrendFetcher
	ensureSchema func() error
	sleep        func(time.Duration)
	now          func() time.Time
	renderPost   func(outputDir string, post generator.DraftPost, offer offers.Offer, offerURL, disclosure, apiBaseURL string, stripeEnabled bool) (string, error)
	renderIndex  func(outputDir string, posts []models.PostModel) (string, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithFetcher replaces the RSS trend fetcher.
func WithFetcher(f TrendFetcher) Option { return func(p *Pipeline) { p.fetcher = f } }

// WithSchemaEnsurer sets the schema-initialization hook run at the start of
// every cycle.
func WithSchemaEnsurer(fn func() error) Option { return func(p *Pipeline) { p.ensureSchema = fn } }

// WithSleep replaces the retry backoff sleep.
func WithSleep(fn func(time.Duration)) Option { return func(p *Pipeline) { p.sleep = fn } }

// WithClock replaces the time source used for refresh slug variants.
func WithClock(fn func() time.Time) Option { return func(p *Pipeline) { p.now = fn } }

// New builds a Pipeline over the given store.
func New(cfg *config.AppConfig, st store.Store, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		store:       st,
		logger:      logger,
		fetcher:     trends.NewFetcher(cfg.TrendsTimeout),
		sleep:       time.Sleep,
		now:         time.Now,
		renderPost:  publisher.RenderPost,
		renderIndex: publisher.RenderIndex,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one cycle. Setup failures (directories, schema, opening the
// run record) are returned as errors; once the run record exists every
// failure is folded into the summary and the record is finalized, so the
// summary is always accounted for.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Summary, error) {
	if err := p.cfg.EnsureDirs(); err != nil {
		return Summary{}, err
	}
	if p.ensureSchema != nil {
		if err := p.ensureSchema(); err != nil {
			return Summary{}, fmt.Errorf("ensure schema: %w", err)
		}
	}

	runID, err := p.store.StartRun()
	if err != nil {
		return Summary{}, fmt.Errorf("open run record: %w", err)
	}

	targetLimit := p.cfg.MaxPostsPerRun
	if opts.Limit > 0 {
		targetLimit = opts.Limit
	}

	summary := Summary{Posts: []PostSummary{}}
	runErr := p.execute(ctx, targetLimit, opts.DryRun, &summary)

	status := models.RunStatusSuccess
	if runErr != nil {
		summary.Failed++
		summary.Error = runErr.Error()
		status = models.RunStatusFailed
		p.logger.Error("run aborted", zap.Uint("run_id", runID), zap.Error(runErr))
	} else if summary.Failed > 0 {
		status = models.RunStatusPartial
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		payload = []byte("{}")
	}
	if err := p.store.FinishRun(runID, status, string(payload)); err != nil {
		p.logger.Error("finalize run record", zap.Uint("run_id", runID), zap.Error(err))
	}

	p.logger.Info("run finished",
		zap.Uint("run_id", runID),
		zap.String("status", status),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// execute performs the candidate loop. Per-candidate errors are counted and
// swallowed; only errors outside the per-candidate boundary escape here and
// turn the whole run into a failure.
func (p *Pipeline) execute(ctx context.Context, targetLimit int, dryRun bool, summary *Summary) error {
	fetched := p.fetchWithRetry(ctx, targetLimit)

	fallback, err := trends.LoadFallback(p.cfg.FallbackKeywordsFile, targetLimit*3)
	if err != nil {
		return err
	}
	candidates := trends.Merge(fetched, fallback)

	catalog, err := offers.Load(p.cfg.OffersFile)
	if err != nil {
		return err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	for _, trend := range candidates {
		if summary.Created >= targetLimit {
			break
		}

		slug, skip, err := p.resolveSlug(trend.Keyword)
		if err != nil {
			return err
		}
		if skip {
			summary.Skipped++
			continue
		}

		post, err := p.processCandidate(trend, catalog, slug, dryRun)
		if err != nil {
			summary.Failed++
			p.logger.Warn("candidate failed",
				zap.String("keyword", trend.Keyword),
				zap.String("slug", slug),
				zap.Error(err),
			)
			continue
		}

		summary.Posts = append(summary.Posts, post)
		summary.Created++
	}

	if !dryRun {
		recent, err := p.store.ListRecent(indexListLimit)
		if err != nil {
			return err
		}
		if _, err := p.renderIndex(p.cfg.OutputDir, recent); err != nil {
			return err
		}
	}
	return nil
}

// fetchWithRetry attempts the feed up to maxFetchAttempts times, sleeping
// attempt*2 seconds between tries. Both fetch errors and empty results are
// retryable; exhausting the budget yields an empty set, never a run failure.
func (p *Pipeline) fetchWithRetry(ctx context.Context, targetLimit int) []trends.TrendItem {
	limit := targetLimit * 3
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		items, err := p.fetcher.Fetch(ctx, p.cfg.TrendsRSSURL, limit)
		if err == nil && len(items) > 0 {
			return items
		}
		if err != nil {
			p.logger.Warn("trend fetch failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		if attempt < maxFetchAttempts {
			p.sleep(time.Duration(attempt*2) * time.Second)
		}
	}
	return nil
}

// resolveSlug applies the duplicate policy: an existing base slug is skipped
// unless refresh is enabled, in which case a date-suffixed variant is used
// once per calendar day.
func (p *Pipeline) resolveSlug(keyword string) (slug string, skip bool, err error) {
	slug = slugs.Slugify(keyword)
	exists, err := p.store.SlugExists(slug)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return slug, false, nil
	}
	if !p.cfg.AllowRefreshExist {
		return slug, true, nil
	}

	variant := slugs.DateVariant(slug, p.now())
	exists, err = p.store.SlugExists(variant)
	if err != nil {
		return "", false, err
	}
	if exists {
		return variant, true, nil
	}
	return variant, false, nil
}

// processCandidate carries one candidate through matching, generation,
// validation, rendering and persistence. Any returned error is counted as
// exactly one failed candidate by the caller.
func (p *Pipeline) processCandidate(
	trend trends.TrendItem,
	catalog []offers.Offer,
	slug string,
	dryRun bool,
) (PostSummary, error) {
	offer, err := offers.Choose(trend.Keyword, catalog, minOfferOverlap)
	if err != nil {
		return PostSummary{}, err
	}
	offerURL := offers.BuildURL(offer, p.cfg.AffiliateTag, trend.Keyword, slug)

	draft := generator.Generate(trend, offer)
	draft.Slug = slug

	if wc := draft.WordCount(); wc < p.cfg.QualityMinWordCount {
		return PostSummary{}, fmt.Errorf("%w: %d < %d", ErrQualityRejected, wc, p.cfg.QualityMinWordCount)
	}

	htmlPath := dryRunHTMLPath
	if !dryRun {
		htmlPath, err = p.renderPost(
			p.cfg.OutputDir,
			draft,
			offer,
			offerURL,
			p.cfg.AffiliateDisclosure,
			p.cfg.EffectiveAPIBaseURL(),
			p.cfg.Stripe.PriceID != "",
		)
		if err != nil {
			return PostSummary{}, err
		}
		if err := p.store.InsertPost(&models.PostModel{
			Slug:      draft.Slug,
			Title:     draft.Title,
			Keyword:   draft.Keyword,
			Summary:   draft.Summary,
			SourceURL: trend.SourceURL,
			OfferName: offer.Name,
			OfferURL:  offerURL,
			HTMLPath:  htmlPath,
			WordCount: draft.WordCount(),
		}); err != nil {
			return PostSummary{}, err
		}
	}

	return PostSummary{
		Slug:      draft.Slug,
		Title:     draft.Title,
		Summary:   draft.Summary,
		OfferName: offer.Name,
		HTMLPath:  htmlPath,
	}, nil
}
