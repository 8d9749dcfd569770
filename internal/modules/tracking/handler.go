// Package tracking serves the affiliate redirect endpoint and run metrics.
package tracking

import (
	"net/http"

	"github.com/autoprofit/core/internal/models"
	"github.com/autoprofit/core/internal/pkg/response"
	"github.com/autoprofit/core/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	store  store.Store
	logger *zap.Logger
}

func NewHandler(st store.Store, logger *zap.Logger) *Handler {
	return &Handler{store: st, logger: logger}
}

func (h *Handler) RegisterRoutes(root, api *gin.RouterGroup) {
	root.GET("/go/:slug", h.redirect)
	api.GET("/metrics", h.metrics)
}

// GET /go/:slug — 307 to the stored offer URL, appending one click event.
// The click append is best-effort: a logging failure must not lose the
// visitor, so the redirect is issued regardless.
func (h *Handler) redirect(c *gin.Context) {
	slug := c.Param("slug")
	destination, err := h.store.OfferURLBySlug(slug)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if destination == "" {
		response.NotFoundMsg(c, "unknown campaign slug")
		return
	}

	if err := h.store.AppendClick(&models.ClickModel{
		Slug:           slug,
		DestinationURL: destination,
		Referrer:       c.Request.Referer(),
		IPAddress:      c.ClientIP(),
	}); err != nil {
		h.logger.Warn("click append failed", zap.String("slug", slug), zap.Error(err))
	}

	c.Redirect(http.StatusTemporaryRedirect, destination)
}

// GET /api/metrics
func (h *Handler) metrics(c *gin.Context) {
	m, err := h.store.Metrics()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}
