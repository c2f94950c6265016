// Package apperr defines the error taxonomy of the NFT inventory service and
// its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nft-inventory/internal/types"
)

// Category groups errors by origin.
type Category string

const (
	// CategoryUserInput represents user input errors (4xx)
	CategoryUserInput Category = "user_input"
	// CategoryAuth represents authentication errors
	CategoryAuth Category = "auth"
	// CategoryNotFound represents missing resources
	CategoryNotFound Category = "not_found"
	// CategoryRateLimit represents rate limit errors
	CategoryRateLimit Category = "rate_limit"
	// CategoryUpstream represents ledger indexer errors
	CategoryUpstream Category = "upstream"
	// CategoryConflict represents store transaction conflicts
	CategoryConflict Category = "conflict"
	// CategoryConfig represents missing deployment configuration
	CategoryConfig Category = "config"
	// CategorySystem represents everything else (5xx)
	CategorySystem Category = "system"
)

// Error codes surfaced to callers.
const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeInvalidAddress      = "INVALID_ADDRESS"
	CodeMalformedAssetUnit  = "MALFORMED_ASSET_UNIT"
	CodeNotFound            = "NOT_FOUND"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeTransactionConflict = "TRANSACTION_CONFLICT"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodeInvalidParameter    = "INVALID_PARAMETER"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error is an error with a category and an HTTP status code.
type Error struct {
	Category   Category
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to the wire-level ServiceError shape.
func (e *Error) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Unauthenticated creates an authentication error (missing or invalid token).
func Unauthenticated(message string) *Error {
	return &Error{
		Category:   CategoryAuth,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthenticated,
		Message:    message,
	}
}

// InvalidAddress creates an error for a wallet address that could not be
// normalized.
func InvalidAddress(address string, cause error) *Error {
	return &Error{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidAddress,
		Message:    "invalid address format",
		Details: map[string]interface{}{
			"address": address,
		},
		Cause: cause,
	}
}

// MalformedAssetUnit creates an error for an asset unit whose suffix is not
// valid hex.
func MalformedAssetUnit(unit types.AssetUnit, cause error) *Error {
	return &Error{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       CodeMalformedAssetUnit,
		Message:    "asset unit could not be decoded",
		Details: map[string]interface{}{
			"unit": string(unit),
		},
		Cause: cause,
	}
}

// InvalidParameter creates an invalid parameter error
func InvalidParameter(param, reason string) *Error {
	return &Error{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidParameter,
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NotFound creates a not found error
func NotFound(resource, id string) *Error {
	return &Error{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// RateLimited creates the claim limiter error.
func RateLimited(retryAfterSeconds int) *Error {
	return &Error{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimited,
		Message:    "rate limit exceeded, please try again later",
		Details: map[string]interface{}{
			"retryAfter": retryAfterSeconds,
		},
	}
}

// UpstreamUnavailable creates a ledger indexer error.
func UpstreamUnavailable(operation string, cause error) *Error {
	return &Error{
		Category:   CategoryUpstream,
		StatusCode: http.StatusBadGateway,
		Code:       CodeUpstreamUnavailable,
		Message:    fmt.Sprintf("ledger indexer unavailable during %s", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause: cause,
	}
}

// TransactionConflict creates an error for a store transaction that could not
// serialize after retries.
func TransactionConflict(cause error) *Error {
	return &Error{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       CodeTransactionConflict,
		Message:    "profile store transaction could not serialize",
		Cause:      cause,
	}
}

// Configuration creates a fatal missing-configuration error.
func Configuration(key string) *Error {
	return &Error{
		Category:   CategoryConfig,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeConfiguration,
		Message:    fmt.Sprintf("missing required configuration: %s", key),
		Details: map[string]interface{}{
			"key": key,
		},
	}
}

// Internal creates an internal server error
func Internal(message string, cause error) *Error {
	return &Error{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternal,
		Message:    message,
		Cause:      cause,
	}
}

// Categorize wraps an arbitrary error into an *Error, passing through errors
// that already carry a category.
func Categorize(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		return &Error{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return Internal("unexpected error", err)
}

// HTTPStatus returns the HTTP status code for an error.
func HTTPStatus(err error) int {
	if appErr := Categorize(err); appErr != nil {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsFatal reports whether an error must abort the whole request rather than
// being skipped for a single asset. Authentication, address validation,
// configuration and total upstream failures are fatal; per-asset decode and
// transaction conflicts are not.
func IsFatal(err error) bool {
	appErr := Categorize(err)
	switch appErr.Category {
	case CategoryAuth, CategoryConfig:
		return true
	case CategoryUserInput:
		return appErr.Code == CodeInvalidAddress || appErr.Code == CodeInvalidParameter
	default:
		return false
	}
}
