package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/autoprofit/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const cronTokenHeader = "X-Cron-Token"

// CronToken gates the cron trigger endpoint behind a shared token, accepted
// either as X-Cron-Token or as a bearer Authorization header. An empty
// configured token leaves the endpoint open (local/dev usage).
func CronToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(extractCronToken(c)), []byte(token)) != 1 {
			response.Unauthorized(c, "invalid cron token")
			return
		}
		c.Next()
	}
}

func extractCronToken(c *gin.Context) string {
	if v := c.GetHeader(cronTokenHeader); v != "" {
		return v
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}
