// Package contextutils provides error handling utilities and standardized
// error types for consistent error management across the feedback application.
package contextutils

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents a standardized error code for API responses
type ErrorCode string

const (
	// Store error codes

	// ErrorCodeStoreUnavailable indicates the document store could not be reached
	ErrorCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrorCodeSubscriptionFailed indicates the live query subscription failed
	ErrorCodeSubscriptionFailed ErrorCode = "SUBSCRIPTION_FAILED"
	// ErrorCodeMutationFailed indicates a create/update/delete was rejected by the store
	ErrorCodeMutationFailed ErrorCode = "MUTATION_FAILED"
	// ErrorCodeRecordNotFound indicates that a requested record was not found
	ErrorCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"

	// Validation error codes

	// ErrorCodeInvalidInput indicates that the provided input is invalid
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeMissingRequired indicates that a required field is missing
	ErrorCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"
	// ErrorCodeInvalidTransition indicates a forbidden feedback status transition
	ErrorCodeInvalidTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	// ErrorCodeValidationFailed indicates that validation has failed
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Authentication error codes

	// ErrorCodeUnauthorized indicates that the user is not authorized
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeForbidden indicates that the user is forbidden from accessing the resource
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodeInvalidCredentials indicates that the provided credentials are invalid
	ErrorCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// ErrorCodeAccountDisabled indicates the account has been disabled
	ErrorCodeAccountDisabled ErrorCode = "ACCOUNT_DISABLED"

	// Service error codes

	// ErrorCodeServiceUnavailable indicates that the service is temporarily unavailable
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodeTimeout indicates that a request has timed out
	ErrorCodeTimeout ErrorCode = "REQUEST_TIMEOUT"
	// ErrorCodeRateLimit indicates that the rate limit has been exceeded
	ErrorCodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodeInternalError indicates an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_SERVER_ERROR"
)

// SeverityLevel represents the severity of an error for logging and monitoring
type SeverityLevel string

const (
	// SeverityDebug indicates debug-level errors for development
	SeverityDebug SeverityLevel = "debug"
	// SeverityInfo indicates informational errors
	SeverityInfo SeverityLevel = "info"
	// SeverityWarn indicates warning-level errors
	SeverityWarn SeverityLevel = "warn"
	// SeverityError indicates error-level issues
	SeverityError SeverityLevel = "error"
	// SeverityFatal indicates fatal errors that require immediate attention
	SeverityFatal SeverityLevel = "fatal"
)

// AppError represents a structured error with code, severity, and context
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison for errors.Is
func (e *AppError) Is(target error) bool {
	if appErr, ok := target.(*AppError); ok {
		return e.Code == appErr.Code
	}
	return false
}

// Error types for consistent error handling with associated codes and severity
var (
	// Store errors
	ErrStoreUnavailable = &AppError{
		Code:     ErrorCodeStoreUnavailable,
		Severity: SeverityError,
		Message:  "Document store unavailable",
	}

	ErrSubscriptionFailed = &AppError{
		Code:     ErrorCodeSubscriptionFailed,
		Severity: SeverityError,
		Message:  "Live query subscription failed",
	}

	ErrMutationFailed = &AppError{
		Code:     ErrorCodeMutationFailed,
		Severity: SeverityError,
		Message:  "Store mutation failed",
	}

	ErrRecordNotFound = &AppError{
		Code:     ErrorCodeRecordNotFound,
		Severity: SeverityInfo,
		Message:  "Record not found",
	}

	// Validation errors
	ErrInvalidInput = &AppError{
		Code:     ErrorCodeInvalidInput,
		Severity: SeverityWarn,
		Message:  "Invalid input",
	}

	ErrMissingRequired = &AppError{
		Code:     ErrorCodeMissingRequired,
		Severity: SeverityWarn,
		Message:  "Missing required field",
	}

	ErrInvalidTransition = &AppError{
		Code:     ErrorCodeInvalidTransition,
		Severity: SeverityWarn,
		Message:  "Invalid status transition",
	}

	ErrValidationFailed = &AppError{
		Code:     ErrorCodeValidationFailed,
		Severity: SeverityWarn,
		Message:  "Validation failed",
	}

	// Authentication errors
	ErrUnauthorized = &AppError{
		Code:     ErrorCodeUnauthorized,
		Severity: SeverityWarn,
		Message:  "Unauthorized",
	}

	ErrForbidden = &AppError{
		Code:     ErrorCodeForbidden,
		Severity: SeverityWarn,
		Message:  "Forbidden",
	}

	ErrInvalidCredentials = &AppError{
		Code:     ErrorCodeInvalidCredentials,
		Severity: SeverityWarn,
		Message:  "Invalid credentials",
	}

	ErrAccountDisabled = &AppError{
		Code:     ErrorCodeAccountDisabled,
		Severity: SeverityWarn,
		Message:  "Account disabled",
	}

	// Service errors
	ErrServiceUnavailable = &AppError{
		Code:     ErrorCodeServiceUnavailable,
		Severity: SeverityError,
		Message:  "Service unavailable",
	}

	ErrTimeout = &AppError{
		Code:     ErrorCodeTimeout,
		Severity: SeverityWarn,
		Message:  "Request timeout",
	}

	ErrRateLimit = &AppError{
		Code:     ErrorCodeRateLimit,
		Severity: SeverityWarn,
		Message:  "Rate limit exceeded",
	}

	ErrInternalError = &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  "Internal server error",
	}
)

// NewAppError creates a new AppError with the given parameters
func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
	}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause
func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
		Cause:    cause,
	}
}

// WrapError wraps an error with additional context while preserving the original error
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  appErr.Message,
			Details:  context,
			Cause:    err,
		}
	}

	return fmt.Errorf("%s: %w", context, err)
}

// WrapErrorf wraps an error with formatted context
func WrapErrorf(err error, format string, args ...interface{}) error {
	return WrapError(err, fmt.Sprintf(format, args...))
}

// ErrorWithContextf creates a new error with formatted context
func ErrorWithContextf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// IsError checks whether err matches the target AppError by code
func IsError(err error, target *AppError) bool {
	return errors.Is(err, target)
}

// AsError extracts an AppError from err if present
func AsError(err error, target **AppError) bool {
	return errors.As(err, target)
}

// GetErrorCode returns the ErrorCode carried by err, or ErrorCodeInternalError
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// GetErrorSeverity returns the SeverityLevel carried by err, or SeverityError
func GetErrorSeverity(err error) SeverityLevel {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Severity
	}
	return SeverityError
}

// IsRetryable reports whether the error class is worth retrying by a caller.
// Mutation and validation failures are deliberately non-retryable: the
// coordinator surfaces them once and never retries.
func IsRetryable(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeStoreUnavailable, ErrorCodeServiceUnavailable, ErrorCodeTimeout:
		return true
	}
	return false
}

// ToJSON converts the AppError into a response-friendly map
func (e *AppError) ToJSON() map[string]interface{} {
	out := map[string]interface{}{
		"code":     string(e.Code),
		"severity": string(e.Severity),
		"error":    e.Message,
	}
	if e.Details != "" {
		out["details"] = e.Details
	}
	return out
}

type contextKey string

const userContextKey contextKey = "current_user_uid"

// WithUserUID stores the authenticated user's UID in the context
func WithUserUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userContextKey, uid)
}

// GetUserUIDFromContext returns the authenticated user's UID, or "" when absent
func GetUserUIDFromContext(ctx context.Context) string {
	if uid, ok := ctx.Value(userContextKey).(string); ok {
		return uid
	}
	return ""
}
