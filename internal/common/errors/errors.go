// Package errors provides standardized error handling for the report generation pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeOnetQueryFailed    ErrorCode = "ONET_QUERY_FAILED"
	ErrCodeOccupationNotFound ErrorCode = "OCCUPATION_NOT_FOUND"

	ErrCodePrinciplesAuthError      ErrorCode = "PRINCIPLES_AUTH_ERROR"
	ErrCodePrinciplesAPIError       ErrorCode = "PRINCIPLES_API_ERROR"
	ErrCodeUpstreamDataUnavailable  ErrorCode = "UPSTREAM_DATA_UNAVAILABLE"

	ErrCodeAssistantAPIError  ErrorCode = "ASSISTANT_API_ERROR"
	ErrCodeRequestTooLarge    ErrorCode = "REQUEST_TOO_LARGE"
	ErrCodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeGenerationTimeout  ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeResponseParseFailed ErrorCode = "RESPONSE_PARSE_FAILED"

	ErrCodeReportNotFound           ErrorCode = "REPORT_NOT_FOUND"
	ErrCodeTemplateNotFound         ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateValidationFailed ErrorCode = "TEMPLATE_VALIDATION_FAILED"

	ErrCodeQueuePublishFailed     ErrorCode = "QUEUE_PUBLISH_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewOnetQueryFailedError creates a retryable O*NET lookup error.
func NewOnetQueryFailedError(dataset string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeOnetQueryFailed,
		Message:   "O*NET dataset query error",
		Details:   fmt.Sprintf("dataset: %s, error: %s", dataset, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewOccupationNotFoundError creates a non-retryable missing occupation error.
func NewOccupationNotFoundError(socCode string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOccupationNotFound,
		Message:   "Occupation not found in O*NET database",
		Details:   fmt.Sprintf("socCode: %s", socCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPrinciplesAuthError creates a retryable assessment API authentication error.
func NewPrinciplesAuthError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePrinciplesAuthError,
		Message:   "Assessment API authentication failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPrinciplesAPIError creates a retryable assessment API error.
func NewPrinciplesAPIError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePrinciplesAPIError,
		Message:   "Assessment API request failed",
		Details:   fmt.Sprintf("endpoint: %s, error: %s", endpoint, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamDataUnavailableError marks required context data as missing upstream.
func NewUpstreamDataUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamDataUnavailable,
		Message:   "Required upstream data unavailable",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantAPIError creates a retryable assistant API error.
func NewAssistantAPIError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssistantAPIError,
		Message:   "Assistant API request failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequestTooLargeError creates a non-retryable oversize prompt error.
// Retrying with the same context can never succeed, so the whole job aborts.
func NewRequestTooLargeError(section string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestTooLarge,
		Message:   "Assistant request exceeds the model context window",
		Details:   fmt.Sprintf("section: %s", section),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitExceededError creates a retryable rate limit error.
func NewRateLimitExceededError(retryAfter time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimitExceeded,
		Message:   "Assistant API rate limit exceeded",
		Details:   fmt.Sprintf("retryAfter: %s", retryAfter),
		Retryable: true,
		Metadata:  map[string]interface{}{"retryAfterSeconds": retryAfter.Seconds()},
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationTimeoutError creates a retryable generation timeout error.
func NewGenerationTimeoutError(section string, attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationTimeout,
		Message:   "Assistant run did not complete in time",
		Details:   fmt.Sprintf("section: %s, attempts: %d", section, attempts),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResponseParseFailedError creates a non-retryable response parse error.
func NewResponseParseFailedError(section string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResponseParseFailed,
		Message:   "Assistant response is not valid JSON",
		Details:   fmt.Sprintf("section: %s, error: %s", section, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportNotFoundError creates a non-retryable missing report error.
func NewReportNotFoundError(reportID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportNotFound,
		Message:   "Career report not found",
		Details:   fmt.Sprintf("reportId: %s", reportID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Report template not found",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateValidationFailedError creates a non-retryable template validation error.
func NewTemplateValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateValidationFailed,
		Message:   "Report template failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueuePublishFailedError creates a retryable queue publish error.
func NewQueuePublishFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueuePublishFailed,
		Message:   "Failed to enqueue report job",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// RetryAfterHint returns the upstream Retry-After delay recorded on the
// error's metadata, or zero when none was recorded.
func RetryAfterHint(err *StandardError) time.Duration {
	if err == nil || err.Metadata == nil {
		return 0
	}
	if secs, ok := err.Metadata["retryAfterSeconds"].(float64); ok && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeOnetQueryFailed,
		ErrCodePrinciplesAuthError,
		ErrCodePrinciplesAPIError,
		ErrCodeAssistantAPIError,
		ErrCodeQueuePublishFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeGenerationTimeout:
		return 2

	case ErrCodeRateLimitExceeded:
		return 1

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ONET") || strings.Contains(codeStr, "OCCUPATION"):
		return "ONET"
	case strings.Contains(codeStr, "PRINCIPLES") || strings.Contains(codeStr, "UPSTREAM"):
		return "ASSESSMENT"
	case strings.Contains(codeStr, "ASSISTANT") || strings.Contains(codeStr, "RATE_LIMIT") ||
		strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "RESPONSE") ||
		strings.Contains(codeStr, "REQUEST_TOO_LARGE"):
		return "AI"
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "REPORT"):
		return "DATABASE"
	case strings.Contains(codeStr, "QUEUE"):
		return "QUEUE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
