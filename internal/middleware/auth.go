package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
)

type CronAuthMiddleware struct {
	log    *logger.Logger
	secret string
}

// NewCronAuthMiddleware guards the cron route. An empty secret disables the
// check.
func NewCronAuthMiddleware(log *logger.Logger, secret string) *CronAuthMiddleware {
	mwLog := log.With("middleware", "CronAuthMiddleware")
	if secret == "" {
		mwLog.Warn("CRON_SECRET not set; cron route is open")
	}
	return &CronAuthMiddleware{log: mwLog, secret: secret}
}

func (am *CronAuthMiddleware) RequireCronSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.secret == "" {
			c.Next()
			return
		}
		token := extractToken(c)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(am.secret)) != 1 {
			am.log.Warn("Rejected cron call", "remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return c.Query("token")
}
