package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration  ErrorCategory = "configuration"
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryProtocol       ErrorCategory = "protocol"
	ErrorCategoryRetryExhausted ErrorCategory = "retry_exhausted"
	ErrorCategoryParse          ErrorCategory = "parse"
	ErrorCategoryDatabase       ErrorCategory = "database"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryTimeout        ErrorCategory = "timeout"
	ErrorCategoryCanceled       ErrorCategory = "canceled"
	ErrorCategoryProcessing     ErrorCategory = "processing"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// IsRetryable returns whether the error is retryable
func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"timestamp":        e.Timestamp,
		"details":          e.Details,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

// SearchFailure is implemented only by the failure kinds a search can end with.
type SearchFailure interface {
	error
	Category() ErrorCategory
	searchFailure()
}

// TransportError is a network or HTTP status failure on a bootstrap or poll request.
// Attempt is 0 for the bootstrap request and the 1-based poll attempt otherwise.
type TransportError struct {
	URL        string
	Attempt    int
	StatusCode int
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error on %s (attempt %d): HTTP %d", e.URL, e.Attempt, e.StatusCode)
	}
	return fmt.Sprintf("transport error on %s (attempt %d): %v", e.URL, e.Attempt, e.Cause)
}

func (e *TransportError) Unwrap() error           { return e.Cause }
func (e *TransportError) Category() ErrorCategory { return ErrorCategoryNetwork }
func (*TransportError) searchFailure()            {}

// ProtocolFormatError means a provider response did not have the expected shape.
type ProtocolFormatError struct {
	Field  string
	Reason string
	Raw    string
}

func (e *ProtocolFormatError) Error() string {
	return fmt.Sprintf("protocol format error (%s): %s", e.Field, e.Reason)
}

func (e *ProtocolFormatError) Category() ErrorCategory { return ErrorCategoryProtocol }
func (*ProtocolFormatError) searchFailure()            {}

// RetryBudgetExhaustedError means the provider never reported finished.
type RetryBudgetExhaustedError struct {
	URL        string
	MaxRetries int
}

func (e *RetryBudgetExhaustedError) Error() string {
	return fmt.Sprintf("poll retry budget of %d exhausted for %s", e.MaxRetries, e.URL)
}

func (e *RetryBudgetExhaustedError) Category() ErrorCategory { return ErrorCategoryRetryExhausted }
func (*RetryBudgetExhaustedError) searchFailure()            {}

// ParseFatalError aborts a whole results parse.
type ParseFatalError struct {
	ModalID string
	Reason  string
	Text    string
}

func (e *ParseFatalError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("parse error in %s: %s (%q)", e.ModalID, e.Reason, truncate(e.Text, 80))
	}
	return fmt.Sprintf("parse error in %s: %s", e.ModalID, e.Reason)
}

func (e *ParseFatalError) Category() ErrorCategory { return ErrorCategoryParse }
func (*ParseFatalError) searchFailure()            {}

// ClassifyError maps any error returned by a search into a ServiceError.
// Deadline and cancellation errors win even when wrapped by a transport failure.
func ClassifyError(err error, serviceName, operation string) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewServiceError(ErrorCategoryTimeout, "SEARCH_TIMEOUT", err.Error(), serviceName, operation, true, err)
	}
	if errors.Is(err, context.Canceled) {
		return NewServiceError(ErrorCategoryCanceled, "SEARCH_CANCELED", err.Error(), serviceName, operation, true, err)
	}

	var failure SearchFailure
	if errors.As(err, &failure) {
		code := strings.ToUpper(string(failure.Category())) + "_FAILURE"
		retryable := failure.Category() == ErrorCategoryNetwork || failure.Category() == ErrorCategoryRetryExhausted
		classified := NewServiceError(failure.Category(), code, err.Error(), serviceName, operation, retryable, err)
		if details := failureDetails(failure); details != nil {
			classified.WithDetails(details)
		}
		return classified
	}

	return NewServiceError(ErrorCategoryProcessing, "UNEXPECTED_ERROR", err.Error(), serviceName, operation, false, err)
}

// WrapError wraps an existing error with service error context
func WrapError(err error, category ErrorCategory, code, serviceName, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	// If it's already a ServiceError, just update the context
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		serviceErr.ServiceName = serviceName
		serviceErr.Operation = operation
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, retryable, err)
}

func failureDetails(failure SearchFailure) map[string]interface{} {
	switch f := failure.(type) {
	case *TransportError:
		details := map[string]interface{}{"url": f.URL, "attempt": f.Attempt}
		if f.StatusCode != 0 {
			details["status_code"] = f.StatusCode
		}
		return details
	case *ProtocolFormatError:
		return map[string]interface{}{"field": f.Field}
	case *RetryBudgetExhaustedError:
		return map[string]interface{}{"max_retries": f.MaxRetries}
	case *ParseFatalError:
		return map[string]interface{}{"modal_id": f.ModalID}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
