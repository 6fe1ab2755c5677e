package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeClientError ErrorType = "client_error"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeAPI         ErrorType = "api"
	ErrorTypeRequest     ErrorType = "request"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a wiki API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// RetryAfter is the server-requested wait, zero when not provided
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error
func New(errorType ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// IsRetryable checks if an error type should be retried. Only a request that
// could not be built fails without another attempt.
func IsRetryable(errorType ErrorType) bool {
	return errorType != ErrorTypeRequest
}

// IsThrottled reports whether err is the upstream telling us to slow down
func IsThrottled(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeRateLimit
}

// RetryAfterOf returns the server-requested wait carried by err, if any
func RetryAfterOf(err error) time.Duration {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// TypeForStatus maps an HTTP status code to an error type
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusRequestTimeout:
		return ErrorTypeNetwork
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode >= 400:
		return ErrorTypeClientError
	default:
		return ErrorTypeUnknown
	}
}

// TypeForAPICode maps a MediaWiki error code to an error type.
// ratelimited and maxlag are the API's own throttling signals.
func TypeForAPICode(code string) ErrorType {
	switch code {
	case "ratelimited", "maxlag":
		return ErrorTypeRateLimit
	case "readonly", "internal_api_error_DBQueryError":
		return ErrorTypeServerError
	default:
		return ErrorTypeAPI
	}
}
