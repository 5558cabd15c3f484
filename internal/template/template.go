// Package template defines report section templates: an ordered list of
// sections whose title, description, and prompt fields may contain
// {{namespace.key}} placeholders resolved at generation time.
package template

import (
	"encoding/json"
	"fmt"

	"career-report-workers/internal/common/errors"
)

// SectionKind classifies a section once at parse time so downstream code
// never has to re-infer behavior from which fields happen to be set.
type SectionKind int

const (
	// KindStatic sections carry only literal title/description text and
	// never trigger an assistant call.
	KindStatic SectionKind = iota
	// KindPrompt sections submit their expanded prompt to the assistant.
	// They may also carry a description_fn for their description field.
	KindPrompt
	// KindComputed sections derive their description from a named
	// formatter over the built context and have no prompt.
	KindComputed
)

func (k SectionKind) String() string {
	switch k {
	case KindPrompt:
		return "prompt"
	case KindComputed:
		return "computed"
	default:
		return "static"
	}
}

// DescriptionFns lists the named derivations a template may reference.
// The formatter implementations live with the context builder; the
// template layer only validates that the name is known.
var DescriptionFns = map[string]bool{
	"format_education": true,
}

// Section is one unit of report content.
type Section struct {
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`
	SubTitle      string `json:"sub_title,omitempty"`
	Description   string `json:"description,omitempty"`
	DescriptionFn string `json:"description_fn,omitempty"`
	Prompt        string `json:"prompt,omitempty"`

	kind SectionKind
}

// Kind returns the classification resolved at parse time.
func (s Section) Kind() SectionKind {
	return s.kind
}

// resolveKind classifies the section and rejects invalid combinations.
// A prompt wins the classification; a description_fn may accompany it,
// since deriving the description and running the prompt are independent
// steps.
func (s *Section) resolveKind() error {
	if s.DescriptionFn != "" {
		if !DescriptionFns[s.DescriptionFn] {
			return errors.NewTemplateValidationFailedError(
				fmt.Sprintf("section %q references unknown description_fn %q", s.ID, s.DescriptionFn))
		}
		if s.Description != "" {
			return errors.NewTemplateValidationFailedError(
				fmt.Sprintf("section %q sets both description and description_fn", s.ID))
		}
	}
	switch {
	case s.Prompt != "":
		s.kind = KindPrompt
	case s.DescriptionFn != "":
		s.kind = KindComputed
	default:
		s.kind = KindStatic
	}
	return nil
}

// Parse decodes a JSON array of sections and resolves each section's kind.
// Section IDs must be unique and non-empty.
func Parse(data []byte) ([]Section, error) {
	var sections []Section
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, errors.NewTemplateValidationFailedError(fmt.Sprintf("invalid template JSON: %v", err))
	}
	if len(sections) == 0 {
		return nil, errors.NewTemplateValidationFailedError("template has no sections")
	}

	seen := make(map[string]bool, len(sections))
	for i := range sections {
		s := &sections[i]
		if s.ID == "" {
			return nil, errors.NewTemplateValidationFailedError(fmt.Sprintf("section at index %d has no id", i))
		}
		if seen[s.ID] {
			return nil, errors.NewTemplateValidationFailedError(fmt.Sprintf("duplicate section id %q", s.ID))
		}
		seen[s.ID] = true
		if err := s.resolveKind(); err != nil {
			return nil, err
		}
	}
	return sections, nil
}

// MustParse is a test/default-template helper that panics on invalid input.
func MustParse(data []byte) []Section {
	sections, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return sections
}
