package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSourceMissing ErrorType = "SOURCE_MISSING"
	ErrTypeParse         ErrorType = "PARSE"
	ErrTypeRowSkip       ErrorType = "ROW_SKIP"
	ErrTypeCacheInvalid  ErrorType = "CACHE_INVALID"
	ErrTypeTotalFailure  ErrorType = "TOTAL_FAILURE"
	ErrTypeNetwork       ErrorType = "NETWORK"
	ErrTypeStorage       ErrorType = "STORAGE"
	ErrTypeConfig        ErrorType = "CONFIG"
	ErrTypeValidation    ErrorType = "VALIDATION"
	ErrTypeNotFound      ErrorType = "NOT_FOUND"
)

// Sentinels matched with errors.Is.
var (
	ErrNoYearsLoaded = errors.New("no year produced any data")
	ErrSourceMissing = errors.New("source table missing")
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
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

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the type of the first AppError in the chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// NewSourceMissingError reports a year whose source tables cannot be found
func NewSourceMissingError(year int, cause error) *AppError {
	if cause == nil {
		cause = ErrSourceMissing
	} else {
		cause = fmt.Errorf("%w: %w", ErrSourceMissing, cause)
	}
	return NewAppError(ErrTypeSourceMissing, fmt.Sprintf("year %d skipped", year), cause).
		WithContext("year", year)
}

// NewParseError creates a parsing-related error
func NewParseError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParse, message, cause)
}

// NewTotalFailureError reports that no year produced data
func NewTotalFailureError(failed int) *AppError {
	return NewAppError(ErrTypeTotalFailure, fmt.Sprintf("all %d years failed to load", failed), ErrNoYearsLoaded).
		WithContext("failed_years", failed)
}

// NewCacheInvalidError reports an unreadable or stale cache snapshot
func NewCacheInvalidError(message string, cause error) *AppError {
	return NewAppError(ErrTypeCacheInvalid, message, cause)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
