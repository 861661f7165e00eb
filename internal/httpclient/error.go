package httpclient

import (
	goerrors "errors"
	"fmt"

	ierr "github.com/flexprice/subscriptions/internal/errors"
)

// Error is a non-2xx response. It is marked ErrHTTPClient.
type Error struct {
	err        error
	StatusCode int
	Response   []byte
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Error() string {
	return e.err.Error()
}

// NewError creates a new HTTP client error
func NewError(statusCode int, response []byte) *Error {
	return &Error{
		err: ierr.NewError(fmt.Sprintf("unexpected status %d", statusCode)).
			WithHintf("Remote endpoint responded with status %d", statusCode).
			Mark(ierr.ErrHTTPClient),
		StatusCode: statusCode,
		Response:   response,
	}
}

// IsHTTPError checks if an error is an HTTP client error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if goerrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
