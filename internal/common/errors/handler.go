// internal/common/errors/handler.go
package errors

import (
	"time"
)

// ErrorHandler normalizes job errors and decides whether a queue job
// should be retried or dropped to the dead letter queue.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Decision tells the queue consumer what to do with a failed job.
type Decision struct {
	Retry bool
	Delay time.Duration
	Error *StandardError
}

// HandleJobError normalizes the error, logs it, and returns a retry decision.
// attempt is the number of delivery attempts already made for this job.
func (h *ErrorHandler) HandleJobError(jobID, jobType string, attempt int, err error) Decision {
	stdErr := h.normalizeError(err)

	maxRetries := GetRetryCount(stdErr.Code)
	retry := stdErr.Retryable && attempt < maxRetries

	h.logger.Error("Job failed", map[string]interface{}{
		"jobId":         jobID,
		"jobType":       jobType,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"attempt":       attempt,
		"maxRetries":    maxRetries,
		"willRetry":     retry,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})

	return Decision{
		Retry: retry,
		Delay: retryDelay(stdErr, attempt),
		Error: stdErr,
	}
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// retryDelay backs off exponentially per attempt, honoring an upstream
// Retry-After hint when one was recorded on the error.
func retryDelay(stdErr *StandardError, attempt int) time.Duration {
	if stdErr.Metadata != nil {
		if secs, ok := stdErr.Metadata["retryAfterSeconds"].(float64); ok && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	delay := time.Duration(1<<uint(attempt)) * 5 * time.Second
	if delay > 2*time.Minute {
		delay = 2 * time.Minute
	}
	return delay
}
