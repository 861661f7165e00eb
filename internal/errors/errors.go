package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinels every error crossing a package boundary is marked with.
var (
	ErrNotFound            = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists       = new(ErrCodeAlreadyExists, "resource already exists")
	ErrVersionConflict     = new(ErrCodeVersionConflict, "concurrent modification")
	ErrValidation          = new(ErrCodeValidation, "validation error")
	ErrPermissionDenied    = new(ErrCodePermissionDenied, "permission denied")
	ErrPaymentRequired     = new(ErrCodePaymentRequired, "payment required")
	ErrProviderUnavailable = new(ErrCodeProviderUnavailable, "payment provider unavailable")
	ErrPlanNotPurchasable  = new(ErrCodePlanNotPurchasable, "plan not purchasable")
	ErrInvalidNotification = new(ErrCodeInvalidNotification, "invalid notification")
	ErrCancelTimeout       = new(ErrCodeCancelTimeout, "cancellation timed out")
	ErrHTTPClient          = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase            = new(ErrCodeDatabase, "database error")
	ErrSystem              = new(ErrCodeSystemError, "system error")
)

const (
	ErrCodeNotFound            = "not_found"
	ErrCodeAlreadyExists       = "already_exists"
	ErrCodeVersionConflict     = "conflict"
	ErrCodeValidation          = "validation_error"
	ErrCodePermissionDenied    = "permission_denied"
	ErrCodePaymentRequired     = "payment_required"
	ErrCodeProviderUnavailable = "provider_unavailable"
	ErrCodePlanNotPurchasable  = "plan_not_purchasable"
	ErrCodeInvalidNotification = "invalid_notification"
	ErrCodeCancelTimeout       = "cancel_timeout"
	ErrCodeHTTPClient          = "http_client_error"
	ErrCodeDatabase            = "database_error"
	ErrCodeSystemError         = "system_error"
)

// statusCodes is checked in order, so an error carrying more than one mark
// resolves to the most specific status.
var statusCodes = []struct {
	err    error
	status int
}{
	{ErrInvalidNotification, http.StatusBadRequest},
	{ErrValidation, http.StatusBadRequest},
	{ErrPermissionDenied, http.StatusUnauthorized},
	{ErrPaymentRequired, http.StatusPaymentRequired},
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrVersionConflict, http.StatusConflict},
	{ErrPlanNotPurchasable, http.StatusUnprocessableEntity},
	{ErrProviderUnavailable, http.StatusServiceUnavailable},
	{ErrCancelTimeout, http.StatusGatewayTimeout},
	{ErrHTTPClient, http.StatusInternalServerError},
	{ErrDatabase, http.StatusInternalServerError},
	{ErrSystem, http.StatusInternalServerError},
}

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is matches on the code so marked copies compare equal to the sentinel.
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsPaymentRequired(err error) bool {
	return errors.Is(err, ErrPaymentRequired)
}

func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

func IsPlanNotPurchasable(err error) bool {
	return errors.Is(err, ErrPlanNotPurchasable)
}

func IsInvalidNotification(err error) bool {
	return errors.Is(err, ErrInvalidNotification)
}

func IsCancelTimeout(err error) bool {
	return errors.Is(err, ErrCancelTimeout)
}

// HTTPStatusFromErr returns the response status for err, 500 when unmarked.
func HTTPStatusFromErr(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}

// CodeFromErr returns the machine-readable code of the first matching sentinel.
func CodeFromErr(err error) string {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.err.(*InternalError).Code
		}
	}
	return ErrCodeSystemError
}
