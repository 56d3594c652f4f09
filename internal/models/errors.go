package models

import (
	"fmt"
	"net/http"
	"strings"

	"chain-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Authentication errors
	ErrorCodeMissingAPIKey  ErrorCode = "MISSING_API_KEY"
	ErrorCodeInvalidAPIKey  ErrorCode = "INVALID_API_KEY"
	ErrorCodeInactiveAPIKey ErrorCode = "INACTIVE_API_KEY"

	// Rate limiting errors
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Validation errors
	ErrorCodeMissingParameter   ErrorCode = "MISSING_PARAMETER"
	ErrorCodeInvalidParameter   ErrorCode = "INVALID_PARAMETER"
	ErrorCodeUnsupportedNetwork ErrorCode = "UNSUPPORTED_NETWORK"
	ErrorCodeMalformedJSON      ErrorCode = "MALFORMED_JSON"
	ErrorCodeRequestTooLarge    ErrorCode = "REQUEST_TOO_LARGE"

	// Chain errors
	ErrorCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	ErrorCodeClientError          ErrorCode = "CLIENT_ERROR"

	// Internal errors
	ErrorCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatusCode returns the appropriate HTTP status code for each error type
func (e ErrorCode) HTTPStatusCode() int {
	switch e {
	case ErrorCodeMissingAPIKey, ErrorCodeInvalidAPIKey, ErrorCodeInactiveAPIKey:
		return http.StatusUnauthorized
	case ErrorCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorCodeMissingParameter, ErrorCodeInvalidParameter, ErrorCodeUnsupportedNetwork, ErrorCodeMalformedJSON:
		return http.StatusBadRequest
	case ErrorCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorCodeUnsupportedOperation:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// AppError represents an application error with context
type AppError struct {
	Code       ErrorCode
	Message    string
	Details    string
	Cause      error
	Context    map[string]interface{}
	StatusCode int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ClientMessage is the text placed in the envelope's error field. The cause
// is only logged: transport errors can carry RPC URLs with embedded API keys.
func (e *AppError) ClientMessage() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Message
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: code.HTTPStatusCode(),
		Context:    make(map[string]interface{}),
	}
}

// NewAppErrorWithCause creates a new application error with underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	e := NewAppError(code, message)
	e.Cause = cause
	return e
}

// NewAppErrorWithDetails creates a new application error with details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	e := NewAppError(code, message)
	e.Details = details
	return e
}

// HandleError logs err and writes it as an error envelope.
// Anything that is not an *AppError is reported as an internal error.
func HandleError(c *gin.Context, err error, log *logger.Logger) {
	appErr, ok := err.(*AppError)
	if !ok {
		appErr = NewAppErrorWithCause(ErrorCodeInternalError, "Internal server error", err)
	}

	appErr.WithContext("method", c.Request.Method).
		WithContext("path", c.Request.URL.Path).
		WithContext("client_ip", c.ClientIP())

	if log != nil {
		logFields := []zap.Field{
			zap.String("error_code", string(appErr.Code)),
			zap.String("error_message", appErr.Message),
			zap.Any("error_context", appErr.Context),
		}
		if appErr.Cause != nil {
			logFields = append(logFields, zap.Error(appErr.Cause))
		}

		if appErr.StatusCode >= 500 {
			log.Error("Application error", logFields...)
		} else {
			log.Warn("Client error", logFields...)
		}
	}

	c.Header("X-Error-Code", string(appErr.Code))
	RespondError(c, appErr.StatusCode, appErr.Message, appErr.ClientMessage())
}

// Common error constructors for specific scenarios

// NewMissingParameterError reports required fields that were not supplied
func NewMissingParameterError(fields ...string) *AppError {
	return NewAppErrorWithDetails(
		ErrorCodeMissingParameter,
		"Missing required parameter",
		"missing required parameter(s): "+strings.Join(fields, ", "),
	).WithContext("missing", fields)
}

// NewAuthenticationError reports a request rejected by API key authentication
func NewAuthenticationError(code ErrorCode, details string) *AppError {
	return NewAppErrorWithDetails(code, "Authentication failed", details)
}

// NewInvalidParameterError reports a supplied value that cannot be used.
// cause must come from local validation; its text is shown to the caller.
func NewInvalidParameterError(message string, cause error) *AppError {
	e := NewAppErrorWithCause(ErrorCodeInvalidParameter, message, cause)
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewUnsupportedNetworkError reports an unknown network and lists the supported ones
func NewUnsupportedNetworkError(network string) *AppError {
	return NewAppErrorWithDetails(
		ErrorCodeUnsupportedNetwork,
		"Unsupported network",
		fmt.Sprintf("unsupported network %q; supported networks: %s", network, SupportedNetworkNames()),
	).WithContext("network", network)
}

// NewUnsupportedOperationError reports an operation a network does not implement
func NewUnsupportedOperationError(network Network, operation string) *AppError {
	return NewAppErrorWithDetails(
		ErrorCodeUnsupportedOperation,
		"Operation not implemented",
		fmt.Sprintf("%s is not yet implemented for %s", operation, network),
	).WithContext("network", string(network)).WithContext("operation", operation)
}

// NewClientError wraps a chain client failure
func NewClientError(network Network, operation string, cause error) *AppError {
	return NewAppErrorWithCause(
		ErrorCodeClientError,
		fmt.Sprintf("%s %s failed", network, operation),
		cause,
	).WithContext("network", string(network)).WithContext("operation", operation)
}
