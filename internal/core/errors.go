package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input or configuration
	ErrCatTransfer   ErrorCategory = "transfer"   // Upload to the analysis service failed
	ErrCatAnalysis   ErrorCategory = "analysis"   // Analysis call failed permanently
	ErrCatRateLimit  ErrorCategory = "rate_limit" // API rate limited
	ErrCatNetwork    ErrorCategory = "network"    // Network connectivity
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatParse      ErrorCategory = "parse"      // Service response could not be decoded
	ErrCatAuth       ErrorCategory = "auth"       // Authentication failure
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrTransfer creates a transfer error. Transfers are not retried in place;
// the upload cache re-resolves on the next request instead.
func ErrTransfer(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTransfer,
		Code:      CodeUploadFailed,
		Message:   message,
		Retryable: false,
	}
}

// ErrAnalysis creates a permanent analysis error.
func ErrAnalysis(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAnalysis,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      "RATE_LIMITED",
		Message:   message,
		Retryable: true,
	}
}

// ErrNetwork creates a network error.
func ErrNetwork(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatNetwork,
		Code:      "NETWORK_FAILED",
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrParse creates a parse error for undecodable service output.
func ErrParse(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatParse,
		Code:      CodeParseFailed,
		Message:   message,
		Retryable: true, // a fresh call may return well-formed output
	}
}

// ErrAuth creates an authentication error.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      "AUTH_FAILED",
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// AllReplicatesFailedError indicates that every replicate of a consensus
// run failed. The per-replicate causes are retained for diagnostics.
type AllReplicatesFailedError struct {
	Replicates int
	Causes     []error
}

// Error implements the error interface.
func (e *AllReplicatesFailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "all %d analysis replicates failed", e.Replicates)
	for i, cause := range e.Causes {
		fmt.Fprintf(&sb, "; replicate %d: %v", i, cause)
	}
	return sb.String()
}

// Unwrap exposes the per-replicate causes to errors.Is/As.
func (e *AllReplicatesFailedError) Unwrap() []error {
	return e.Causes
}

// IsAllReplicatesFailed checks if an error is an AllReplicatesFailedError.
func IsAllReplicatesFailed(err error) bool {
	var arf *AllReplicatesFailedError
	return errors.As(err, &arf)
}

// Predefined error codes
const (
	CodeInvalidReplicates  = "INVALID_REPLICATES"
	CodeInvalidRetryBudget = "INVALID_RETRY_BUDGET"
	CodeInvalidConfig      = "INVALID_CONFIG"
	CodeEmptyDocument      = "EMPTY_DOCUMENT"
	CodeNotPDF             = "NOT_PDF"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeUploadFailed       = "UPLOAD_FAILED"
	CodeAnalysisFailed     = "ANALYSIS_FAILED"
	CodeParseFailed        = "PARSE_FAILED"
)
