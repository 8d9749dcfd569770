package app

import (
	"github.com/autoprofit/core/internal/middleware"
	"github.com/autoprofit/core/internal/modules/billing"
	"github.com/autoprofit/core/internal/modules/health"
	"github.com/autoprofit/core/internal/modules/pipeline"
	"github.com/autoprofit/core/internal/modules/site"
	"github.com/autoprofit/core/internal/modules/tracking"
	"github.com/autoprofit/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	cronMW := middleware.CronToken(a.cfg.CronToken)

	root := r.Group("")
	health.RegisterRoutes(root, a.db, a.cfg.DatabaseProvider(), a.sched, cronMW)
	site.NewHandler(a.cfg.OutputDir, a.store).RegisterRoutes(root)

	api := r.Group("/api")

	// POST /api/cron/run — synchronous pipeline trigger.
	api.POST("/cron/run", cronMW, func(c *gin.Context) {
		summary, err := a.pipe.Run(c.Request.Context(), pipeline.Options{})
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, summary)
	})

	tracking.NewHandler(a.store, a.logger.Named("tracking")).RegisterRoutes(root, api)

	billingSvc := billing.NewService(a.store, a.cfg, a.logger.Named("billing"))
	billing.NewHandler(billingSvc, a.cfg, a.logger.Named("billing")).RegisterRoutes(api)
}
