// Package errors provides structured error types for the bookscrape agent.
//
// This package follows Go best practices for error handling:
// - Sentinel errors for type checking with errors.Is()
// - Error wrapping with context using fmt.Errorf("%w", err)
// - Structured error types for detailed information
// - Error codes for machine-readable categorization
//
// Error code ranges:
// - 1xxx: Configuration errors
// - 2xxx: Fetch (HTTP) errors
// - 3xxx: Extraction (HTML) errors
// - 4xxx: Storage and export errors
// - 9xxx: General errors
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error identifier.
type ErrorCode string

// Configuration error codes (1xxx)
const (
	ErrCodeConfigInvalid    ErrorCode = "SCRAPE_1001"
	ErrCodeConfigValidation ErrorCode = "SCRAPE_1002"
)

// Fetch error codes (2xxx)
const (
	ErrCodeFetchRequestFailed ErrorCode = "SCRAPE_2001"
	ErrCodeFetchBadStatus     ErrorCode = "SCRAPE_2002"
	ErrCodeFetchTimeout       ErrorCode = "SCRAPE_2003"
)

// Extraction error codes (3xxx)
const (
	ErrCodeExtractParseFailed  ErrorCode = "SCRAPE_3001"
	ErrCodeExtractNotBookPage  ErrorCode = "SCRAPE_3002"
	ErrCodeExtractNoCategories ErrorCode = "SCRAPE_3003"
)

// Storage and export error codes (4xxx)
const (
	ErrCodeStorageWriteFailed ErrorCode = "SCRAPE_4001"
	ErrCodeStorageReadFailed  ErrorCode = "SCRAPE_4002"
	ErrCodeExportWriteFailed  ErrorCode = "SCRAPE_4003"
)

// General error codes (9xxx)
const (
	ErrCodeUnknown ErrorCode = "SCRAPE_9999"
)

// Sentinel errors for type checking with errors.Is()
var (
	// Configuration errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigValidation = errors.New("configuration validation failed")

	// Fetch errors
	ErrFetchRequestFailed = errors.New("request failed")
	ErrFetchBadStatus     = errors.New("unexpected HTTP status")
	ErrFetchTimeout       = errors.New("fetch timeout")

	// Extraction errors
	ErrExtractParseFailed  = errors.New("HTML parsing failed")
	ErrExtractNotBookPage  = errors.New("page is not a book detail page")
	ErrExtractNoCategories = errors.New("no categories found")

	// Storage and export errors
	ErrStorageWriteFailed = errors.New("storage write failed")
	ErrStorageReadFailed  = errors.New("storage read failed")
	ErrExportWriteFailed  = errors.New("export write failed")
)

// ScrapeError is the base error type with structured information.
type ScrapeError struct {
	Code        ErrorCode
	Message     string
	Context     map[string]interface{}
	IsRetryable bool
	Cause       error
}

// Error implements the error interface.
func (e *ScrapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ScrapeError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error's cause.
func (e *ScrapeError) Is(target error) bool {
	if e.Cause != nil {
		return errors.Is(e.Cause, target)
	}
	return false
}

// WithContext adds context information to the error.
func (e *ScrapeError) WithContext(key string, value interface{}) *ScrapeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ToMap converts the error to a map for structured logging.
func (e *ScrapeError) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"error_code":   string(e.Code),
		"message":      e.Message,
		"is_retryable": e.IsRetryable,
	}
	if e.Context != nil {
		m["context"] = e.Context
	}
	if e.Cause != nil {
		m["cause"] = e.Cause.Error()
	}
	return m
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code ErrorCode, message string, cause error) *ScrapeError {
	return &ScrapeError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Configuration error constructors

// NewConfigValidationError creates a configuration validation error.
func NewConfigValidationError(field string, value interface{}, reason string) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeConfigValidation,
		Message:     fmt.Sprintf("validation failed for '%s': %s", field, reason),
		Cause:       ErrConfigValidation,
		IsRetryable: false,
		Context: map[string]interface{}{
			"field":  field,
			"value":  fmt.Sprintf("%v", value),
			"reason": reason,
		},
	}
}

// Fetch error constructors

// NewFetchRequestError creates a request failure error.
func NewFetchRequestError(url string, cause error) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeFetchRequestFailed,
		Message:     fmt.Sprintf("failed to fetch %s", url),
		Cause:       cause,
		IsRetryable: true,
		Context: map[string]interface{}{
			"url": url,
		},
	}
}

// NewFetchStatusError creates an unexpected-status error.
// 5xx and 429 responses are retryable, other statuses are not.
func NewFetchStatusError(url string, statusCode int) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeFetchBadStatus,
		Message:     fmt.Sprintf("HTTP %d fetching %s", statusCode, url),
		Cause:       ErrFetchBadStatus,
		IsRetryable: statusCode >= 500 || statusCode == 429,
		Context: map[string]interface{}{
			"url":         url,
			"status_code": statusCode,
		},
	}
}

// NewFetchTimeoutError creates a fetch timeout error.
func NewFetchTimeoutError(url string, timeoutSeconds float64) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeFetchTimeout,
		Message:     fmt.Sprintf("fetching %s timed out after %.1fs", url, timeoutSeconds),
		Cause:       ErrFetchTimeout,
		IsRetryable: true,
		Context: map[string]interface{}{
			"url":             url,
			"timeout_seconds": timeoutSeconds,
		},
	}
}

// Extraction error constructors

// NewExtractParseError creates an HTML parse error.
func NewExtractParseError(url string, cause error) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeExtractParseFailed,
		Message:     fmt.Sprintf("failed to parse HTML from %s", url),
		Cause:       cause,
		IsRetryable: false,
		Context: map[string]interface{}{
			"url": url,
		},
	}
}

// NewExtractNotBookPageError creates an error for a page without book content.
func NewExtractNotBookPageError(url string) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeExtractNotBookPage,
		Message:     fmt.Sprintf("no book content found at %s", url),
		Cause:       ErrExtractNotBookPage,
		IsRetryable: false,
		Context: map[string]interface{}{
			"url": url,
		},
	}
}

// NewExtractNoCategoriesError creates an error for a home page without categories.
func NewExtractNoCategoriesError(url string) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeExtractNoCategories,
		Message:     fmt.Sprintf("no categories found at %s", url),
		Cause:       ErrExtractNoCategories,
		IsRetryable: false,
		Context: map[string]interface{}{
			"url": url,
		},
	}
}

// Storage and export error constructors

// NewStorageWriteError creates a storage write error.
func NewStorageWriteError(path string, reason string) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeStorageWriteFailed,
		Message:     fmt.Sprintf("failed to write to storage: %s", reason),
		Cause:       ErrStorageWriteFailed,
		IsRetryable: true,
		Context: map[string]interface{}{
			"path":   path,
			"reason": reason,
		},
	}
}

// NewStorageReadError creates a storage read error.
func NewStorageReadError(path string, reason string) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeStorageReadFailed,
		Message:     fmt.Sprintf("failed to read from storage: %s", reason),
		Cause:       ErrStorageReadFailed,
		IsRetryable: true,
		Context: map[string]interface{}{
			"path":   path,
			"reason": reason,
		},
	}
}

// NewExportWriteError creates a CSV export error.
func NewExportWriteError(path string, cause error) *ScrapeError {
	return &ScrapeError{
		Code:        ErrCodeExportWriteFailed,
		Message:     fmt.Sprintf("failed to write export file %s", path),
		Cause:       cause,
		IsRetryable: false,
		Context: map[string]interface{}{
			"path": path,
		},
	}
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var scrapeErr *ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr.IsRetryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var scrapeErr *ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr.Code
	}
	return ErrCodeUnknown
}
