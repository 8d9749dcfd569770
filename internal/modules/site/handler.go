// Package site serves the generated static pages: the index listing and the
// per-post HTML documents written by the publisher.
package site

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/autoprofit/core/internal/pkg/response"
	"github.com/autoprofit/core/internal/store"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	outputDir string
	store     store.Store
}

func NewHandler(outputDir string, st store.Store) *Handler {
	return &Handler{outputDir: outputDir, store: st}
}

func (h *Handler) RegisterRoutes(root *gin.RouterGroup) {
	root.GET("/", h.home)
	root.GET("/posts/:page", h.postPage)
	root.GET("/favicon.ico", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

// GET / — the rendered index when a run has produced one, otherwise a
// minimal listing straight from the store so a fresh deploy is not blank.
func (h *Handler) home(c *gin.Context) {
	indexFile := filepath.Join(h.outputDir, "index.html")
	if _, err := os.Stat(indexFile); err == nil {
		c.File(indexFile)
		return
	}

	posts, err := h.store.ListRecent(100)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	var sb strings.Builder
	sb.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>Autoprofit</title></head>")
	sb.WriteString("<body><h1>Autoprofit</h1><ul>")
	if len(posts) == 0 {
		sb.WriteString("<li>No posts generated yet.</li>")
	}
	for _, post := range posts {
		fmt.Fprintf(&sb, `<li><a href="/posts/%s.html">%s</a></li>`,
			html.EscapeString(post.Slug), html.EscapeString(post.Title))
	}
	sb.WriteString("</ul></body></html>")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
}

// GET /posts/:page — serves <outputDir>/posts/<slug>.html. The parameter is
// the file name; anything resolving outside the posts dir is rejected.
func (h *Handler) postPage(c *gin.Context) {
	page := filepath.Base(c.Param("page"))
	if !strings.HasSuffix(page, ".html") {
		page += ".html"
	}

	path := filepath.Join(h.outputDir, "posts", page)
	if _, err := os.Stat(path); err != nil {
		response.NotFoundMsg(c, "post not found")
		return
	}
	c.File(path)
}
