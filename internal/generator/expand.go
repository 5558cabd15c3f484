package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/onet"
	"career-report-workers/internal/template"
)

// placeholderPattern matches {{namespace.key}} tokens in template fields.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-z]+)\.([a-z0-9_]+)\s*\}\}`)

// knownNamespaces are the context namespaces templates may reference.
var knownNamespaces = map[string]bool{
	"user":       true,
	"occupation": true,
}

// Expander substitutes context values into section templates.
type Expander struct {
	logger logger.Logger
}

func NewExpander(log logger.Logger) *Expander {
	return &Expander{
		logger: log.WithFields(map[string]interface{}{"component": "expander"}),
	}
}

// Expand returns a copy of sections with every placeholder in title,
// sub_title, description, and prompt replaced by its context value. Tokens
// whose key is missing from the context are left literal and logged once
// per occurrence so an operator can spot a misspelled template. The input
// is never mutated.
func (e *Expander) Expand(sections []template.Section, c *Context) []template.Section {
	out := make([]template.Section, len(sections))
	for i, s := range sections {
		s.Title = e.expandField(s.ID, "title", s.Title, c)
		s.SubTitle = e.expandField(s.ID, "sub_title", s.SubTitle, c)
		s.Description = e.expandField(s.ID, "description", s.Description, c)
		s.Prompt = e.expandField(s.ID, "prompt", s.Prompt, c)
		out[i] = s
	}
	return out
}

func (e *Expander) expandField(sectionID, field, text string, c *Context) string {
	if text == "" {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		parts := placeholderPattern.FindStringSubmatch(token)
		namespace, key := parts[1], parts[2]
		if !knownNamespaces[namespace] {
			return token
		}

		value, ok := c.Value(namespace + "." + key)
		if !ok {
			e.logger.Warn("unresolved template placeholder", map[string]interface{}{
				"section": sectionID,
				"field":   field,
				"token":   token,
			})
			return token
		}
		return renderValue(value)
	})
}

// renderValue makes a context value readable inside prompt text.
func renderValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []string:
		return strings.Join(t, ", ")
	case []onet.EducationCategory:
		return FormatEducation(t)
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Indent(&buf, t, "", "  "); err == nil {
			return buf.String()
		}
		return string(t)
	default:
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(pretty)
	}
}
