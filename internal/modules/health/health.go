// Package health exposes liveness plus scheduler introspection.
package health

import (
	"net/http"

	"github.com/autoprofit/core/internal/pkg/cron"
	"github.com/autoprofit/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func RegisterRoutes(root *gin.RouterGroup, db *gorm.DB, provider string, sched *cron.Scheduler, cronMW gin.HandlerFunc) {
	root.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		dbOK := err == nil && sqlDB.Ping() == nil

		status := "ok"
		code := http.StatusOK
		if !dbOK {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":            status,
			"database":          dbOK,
			"database_provider": provider,
		})
	})

	jobs := root.Group("/api/cron", cronMW)
	jobs.GET("/jobs", func(c *gin.Context) {
		response.OK(c, sched.List())
	})
	jobs.POST("/jobs/:name", func(c *gin.Context) {
		if err := sched.Run(c.Request.Context(), c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.OK(c, gin.H{"message": "job triggered"})
	})
}
