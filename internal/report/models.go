// Package report persists career reports, students, and section templates
// in Postgres. A report's content is a map of section id to generated
// section, written incrementally as generation progresses so a crashed job
// leaves every finished section behind.
package report

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the report lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// SectionContent is one generated section as stored in the report's
// content map. Response is nil for sections without a prompt. When the
// assistant's reply was not valid JSON, Raw holds the reply verbatim and
// ParseError is set.
type SectionContent struct {
	Title       string      `json:"title,omitempty"`
	SubTitle    string      `json:"sub_title,omitempty"`
	Description string      `json:"description,omitempty"`
	Response    interface{} `json:"response"`
	Raw         string      `json:"raw,omitempty"`
	ParseError  bool        `json:"parse_error,omitempty"`
}

// Report is a career report row.
type Report struct {
	ID                string                    `json:"id"`
	StudentID         string                    `json:"studentId"`
	OnetSocCode       string                    `json:"onetSocCode"`
	Status            Status                    `json:"status"`
	ReportTemplate    json.RawMessage           `json:"reportTemplate,omitempty"`
	ProcessedTemplate json.RawMessage           `json:"processedTemplate,omitempty"`
	Content           map[string]SectionContent `json:"content"`
	GenerationLog     string                    `json:"generationLog,omitempty"`
	JobID             string                    `json:"jobId,omitempty"`
	CreatedAt         time.Time                 `json:"createdAt"`
	UpdatedAt         time.Time                 `json:"updatedAt"`
}

// Student links an application user to their assessment account.
type Student struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// DisplayName joins the name parts, tolerating either being empty.
func (s *Student) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Template is a stored section template. Body holds the section array as
// JSON, validated against the template schema on save.
type Template struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Body      json.RawMessage `json:"body"`
	IsDefault bool            `json:"isDefault"`
	CreatedAt time.Time       `json:"createdAt"`
}
