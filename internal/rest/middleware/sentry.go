package middleware

import (
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware attaches a hub to every request so the error handler and
// services can report against it. Disabled config yields a pass-through.
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	// gin.Recovery sits in front and answers 500 after the repanic
	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
}
