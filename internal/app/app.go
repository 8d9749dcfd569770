package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/autoprofit/core/internal/config"
	"github.com/autoprofit/core/internal/database"
	"github.com/autoprofit/core/internal/middleware"
	"github.com/autoprofit/core/internal/modules/pipeline"
	pkgcron "github.com/autoprofit/core/internal/pkg/cron"
	"github.com/autoprofit/core/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	store  store.Store
	pipe   *pipeline.Pipeline
	sched  *pkgcron.Scheduler
	logger *zap.Logger
	cancel context.CancelFunc
}

// New initializes the application: dirs → DB → store → pipeline → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	st := store.New(db)

	pipe := pipeline.New(cfg, st, logger.Named("pipeline"),
		pipeline.WithSchemaEnsurer(func() error { return database.Migrate(db) }),
	)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Cron-Token", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-Id"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	ctx, cancel := context.WithCancel(context.Background())

	sched := pkgcron.New()
	if cfg.RunIntervalMinutes > 0 {
		registerCronJobs(sched, pipe, cfg, logger.Named("cron"))
		go sched.Start(ctx)
	}

	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		store:  st,
		pipe:   pipe,
		sched:  sched,
		logger: logger,
		cancel: cancel,
	}
	app.registerRoutes()

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines.
func (a *App) Shutdown() { a.cancel() }

// registerCronJobs schedules the autonomous pipeline run inside the server
// process.
func registerCronJobs(sched *pkgcron.Scheduler, pipe *pipeline.Pipeline, cfg *config.AppConfig, logger *zap.Logger) {
	sched.Register(pkgcron.Job{
		Name:        "pipeline_run",
		Description: "run one content automation cycle",
		Interval:    time.Duration(cfg.RunIntervalMinutes) * time.Minute,
		Fn: func(ctx context.Context) error {
			summary, err := pipe.Run(ctx, pipeline.Options{})
			if err != nil {
				logger.Warn("scheduled run setup failed", zap.Error(err))
				return err
			}
			logger.Info("scheduled run finished",
				zap.Int("created", summary.Created),
				zap.Int("skipped", summary.Skipped),
				zap.Int("failed", summary.Failed),
			)
			return nil
		},
	})
}
