package router

import (
	"net"
	"net/http"

	"github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/httpclient"
	"github.com/flexprice/subscriptions/internal/logger"
)

// ShouldRetry reports whether a failed delivery is worth redelivering.
// Client errors and business errors are final.
func ShouldRetry(logger *logger.Logger, err error) bool {
	if err == nil {
		return false
	}

	// HTTP errors
	if httpErr, ok := httpclient.IsHTTPError(err); ok {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			logger.Debugw("retrying due to HTTP error",
				"status_code", httpErr.StatusCode,
				"error", httpErr,
			)
			return true
		}
		logger.Debugw("non-retryable HTTP error",
			"status_code", httpErr.StatusCode,
			"error", httpErr,
		)
		return false
	}

	// Network errors
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		logger.Debugw("retrying due to network timeout", "error", netErr)
		return true
	}

	if errors.IsValidation(err) ||
		errors.IsNotFound(err) ||
		errors.IsPermissionDenied(err) {
		return false
	}

	return true
}
