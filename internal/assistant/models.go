// internal/assistant/models.go
package assistant

import "time"

// RunStatus is the lifecycle state of an assistant run.
type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusInProgress RunStatus = "in_progress"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
	StatusCancelled  RunStatus = "cancelled"
	StatusExpired    RunStatus = "expired"
)

// Terminal reports whether the run has reached a final state.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// RunError is the structured error attached to a run by the provider.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is a single generation request/response cycle within a thread.
type Run struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Status    RunStatus `json:"status"`
	LastError *RunError `json:"last_error,omitempty"`

	// RetryAfter carries the provider's Retry-After header when the poll
	// response included one; zero otherwise.
	RetryAfter time.Duration `json:"-"`
}

type thread struct {
	ID string `json:"id"`
}

type message struct {
	ID      string           `json:"id"`
	Role    string           `json:"role"`
	Content []messageContent `json:"content"`
}

type messageContent struct {
	Type string `json:"type"`
	Text struct {
		Value string `json:"value"`
	} `json:"text"`
}

type messageList struct {
	Data []message `json:"data"`
}
