package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort            = 8000
	defaultEnv             = "development"
	defaultDataDir         = "data"
	defaultOutputDir       = "public"
	defaultDBFile          = "data/autoprofit.db"
	defaultOffersFile      = "config/offers.yaml"
	defaultFallbackFile    = "config/fallback_keywords.yaml"
	defaultTrendsRSSURL    = "https://trends.google.com/trending/rss?geo=US"
	defaultTrendsTimeout   = 15 * time.Second
	defaultMaxPostsPerRun  = 3
	defaultQualityMinWords = 260
	defaultDisclosure      = "Disclosure: Some links are affiliate links. If you buy through them, " +
		"we may earn a commission at no extra cost to you."
)

// AppConfig holds runtime configuration loaded from YAML, with environment
// variable overrides for deploy-time secrets. It is constructed once in main
// and passed by reference; there is no package-level mutable state.
type AppConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"` // "development" | "production"

	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`

	// DatabaseURL selects the backend: empty means the local SQLite file at
	// DBPath, a postgres:// URL selects Postgres.
	DatabaseURL string `yaml:"database_url"`
	DBPath      string `yaml:"db_path"`

	TrendsRSSURL  string        `yaml:"trends_rss_url"`
	TrendsTimeout time.Duration `yaml:"trends_timeout"`

	MaxPostsPerRun      int  `yaml:"max_posts_per_run"`
	AllowRefreshExist   bool `yaml:"allow_refresh_existing"`
	QualityMinWordCount int  `yaml:"quality_min_word_count"`

	OffersFile           string `yaml:"offers_file"`
	FallbackKeywordsFile string `yaml:"fallback_keywords_file"`

	DomainURL  string `yaml:"domain_url"`
	APIBaseURL string `yaml:"api_base_url"`
	CronToken  string `yaml:"cron_token"`

	// RunIntervalMinutes > 0 schedules automatic pipeline runs inside the
	// server process; 0 leaves runs to the cron endpoint or the loop command.
	RunIntervalMinutes int `yaml:"run_interval_minutes"`

	AffiliateTag        string `yaml:"affiliate_tag"`
	AffiliateDisclosure string `yaml:"affiliate_disclosure"`

	Stripe StripeConfig `yaml:"stripe"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StripeConfig carries the payment-provider credentials. All fields may be
// empty, in which case the billing endpoints report themselves unconfigured.
type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	PriceID       string `yaml:"price_id"`
	WebhookSecret string `yaml:"webhook_secret"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
}

type rawAppConfig struct {
	AppConfig      `yaml:",inline"`
	TrendsTimeoutS *float64 `yaml:"trends_timeout_seconds"`
}

// Load reads the YAML config at path, applies defaults and environment
// overrides. A missing file is not an error: defaults plus environment are
// enough to run against the local SQLite database.
func Load(path string) (*AppConfig, error) {
	raw := rawAppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := raw.AppConfig
	if raw.TrendsTimeoutS != nil {
		cfg.TrendsTimeout = time.Duration(*raw.TrendsTimeoutS * float64(time.Second))
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBFile
	}
	if cfg.TrendsRSSURL == "" {
		cfg.TrendsRSSURL = defaultTrendsRSSURL
	}
	if cfg.TrendsTimeout == 0 {
		cfg.TrendsTimeout = defaultTrendsTimeout
	}
	if cfg.MaxPostsPerRun == 0 {
		cfg.MaxPostsPerRun = defaultMaxPostsPerRun
	}
	if cfg.QualityMinWordCount == 0 {
		cfg.QualityMinWordCount = defaultQualityMinWords
	}
	if cfg.OffersFile == "" {
		cfg.OffersFile = defaultOffersFile
	}
	if cfg.FallbackKeywordsFile == "" {
		cfg.FallbackKeywordsFile = defaultFallbackFile
	}
	if cfg.DomainURL == "" {
		cfg.DomainURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.AffiliateDisclosure == "" {
		cfg.AffiliateDisclosure = defaultDisclosure
	}
	if cfg.Stripe.SuccessURL == "" {
		cfg.Stripe.SuccessURL = cfg.DomainURL + "/success"
	}
	if cfg.Stripe.CancelURL == "" {
		cfg.Stripe.CancelURL = cfg.DomainURL + "/cancel"
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.CronToken, "CRON_TOKEN")
	setString(&cfg.AffiliateTag, "AFFILIATE_TAG")
	setString(&cfg.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&cfg.Stripe.PriceID, "STRIPE_PRICE_ID")
	setString(&cfg.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	if v, ok := os.LookupEnv("PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Port = port
		}
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return c.Env != "production"
}

// DatabaseProvider returns "postgres" when a database URL is configured,
// otherwise "sqlite".
func (c *AppConfig) DatabaseProvider() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "sqlite"
}

// EffectiveDatabaseURL normalizes the configured URL: the postgres:// scheme
// alias is rewritten and Supabase hosts get sslmode=require when absent.
func (c *AppConfig) EffectiveDatabaseURL() string {
	target := strings.TrimSpace(c.DatabaseURL)
	if target == "" {
		return ""
	}
	if strings.HasPrefix(target, "postgres://") {
		target = "postgresql://" + strings.TrimPrefix(target, "postgres://")
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}
	host := strings.ToLower(parsed.Hostname())
	if strings.Contains(host, "supabase.co") || strings.Contains(host, "supabase.in") {
		q := parsed.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", "require")
			parsed.RawQuery = q.Encode()
		}
	}
	return parsed.String()
}

// EffectiveAPIBaseURL is the base URL embedded into rendered pages.
func (c *AppConfig) EffectiveAPIBaseURL() string {
	base := c.APIBaseURL
	if base == "" {
		base = c.DomainURL
	}
	return strings.TrimRight(base, "/")
}

// EnsureDirs creates the working directories the pipeline writes to.
func (c *AppConfig) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	if c.DatabaseProvider() == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
	}
	return nil
}
