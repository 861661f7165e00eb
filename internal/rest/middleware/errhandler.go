package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/sentry"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/gin-gonic/gin"
)

// ErrorHandler turns the last error attached to the request into the JSON
// error body. Every response carries a reference that is also logged, and
// server errors are reported to Sentry with it.
func ErrorHandler(log *logger.Logger, sentrySvc *sentry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		status := ierr.HTTPStatusFromErr(err)
		reference := types.GenerateErrorReference()

		fields := []interface{}{
			"error", err,
			"reference", reference,
			"status", status,
			"code", ierr.CodeFromErr(err),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", types.GetRequestID(c.Request.Context()),
		}
		if status >= http.StatusInternalServerError {
			log.Errorw("request failed", fields...)
			sentrySvc.CaptureRequestError(c.Request.Context(), err, reference, map[string]string{
				"code": ierr.CodeFromErr(err),
				"path": c.FullPath(),
			})
		} else {
			log.Infow("request rejected", fields...)
		}

		c.JSON(status, ierr.ErrorResponse{
			Status:    status,
			Message:   getDisplayMessage(err),
			Reference: reference,
			Details:   getSafeDetails(err),
		})
	}
}

func getDisplayMessage(err error) string {
	// GetAllHints is post-order, the first non-empty hint is the innermost
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

func getSafeDetails(err error) map[string]any {
	details := make(map[string]any)

	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if !strings.HasPrefix(payload, "__json__:") {
				continue
			}
			var jsonDetails map[string]any
			if err := json.Unmarshal([]byte(payload[len("__json__:"):]), &jsonDetails); err != nil {
				continue
			}
			for k, v := range jsonDetails {
				details[k] = v
			}
		}
	}

	if len(details) == 0 {
		return nil
	}
	return details
}
