package generator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/onet"
	"career-report-workers/internal/template"
)

func testContext() *Context {
	return &Context{values: map[string]interface{}{
		"occupation.career_title":       "Actors",
		"occupation.tasks":              []string{"Study scripts", "Rehearse roles"},
		"user.display_name":             "Ada Lovelace",
		"user.compatibility_percentage": 75,
		"user.personality_profile":      json.RawMessage(`{"profile":"creative"}`),
	}}
}

func TestExpand(t *testing.T) {
	e := NewExpander(logger.NewTestLogger(t))
	sections := template.MustParse([]byte(`[
		{
			"id": "compatibility_score",
			"title": "Career compatibility score %: {{user.compatibility_percentage}}"
		},
		{
			"id": "overview",
			"title": "Overview of {{occupation.career_title}}",
			"prompt": "Write an overview of {{occupation.career_title}} for {{user.display_name}}. Typical tasks: {{occupation.tasks}}."
		}
	]`))

	expanded := e.Expand(sections, testContext())

	assert.Equal(t, "Career compatibility score %: 75", expanded[0].Title)
	assert.Equal(t, "Overview of Actors", expanded[1].Title)
	assert.Equal(t,
		"Write an overview of Actors for Ada Lovelace. Typical tasks: Study scripts, Rehearse roles.",
		expanded[1].Prompt)
}

func TestExpand_UnresolvedTokenLeftLiteral(t *testing.T) {
	e := NewExpander(logger.NewNoOpLogger())
	sections := template.MustParse([]byte(`[
		{"id": "overview", "prompt": "About {{occupation.no_such_key}} and {{occupation.career_title}}."}
	]`))

	expanded := e.Expand(sections, testContext())
	assert.Equal(t, "About {{occupation.no_such_key}} and Actors.", expanded[0].Prompt)
}

func TestExpand_UnknownNamespaceLeftLiteral(t *testing.T) {
	e := NewExpander(logger.NewNoOpLogger())
	sections := template.MustParse([]byte(`[
		{"id": "overview", "prompt": "Value is {{other.thing}}."}
	]`))

	expanded := e.Expand(sections, testContext())
	assert.Equal(t, "Value is {{other.thing}}.", expanded[0].Prompt)
}

func TestExpand_DoesNotMutateInput(t *testing.T) {
	e := NewExpander(logger.NewNoOpLogger())
	sections := template.MustParse([]byte(`[
		{"id": "overview", "prompt": "Overview of {{occupation.career_title}}."}
	]`))

	_ = e.Expand(sections, testContext())
	assert.Equal(t, "Overview of {{occupation.career_title}}.", sections[0].Prompt)
}

func TestExpand_Deterministic(t *testing.T) {
	e := NewExpander(logger.NewNoOpLogger())
	sections := template.MustParse([]byte(`[
		{"id": "overview", "prompt": "Profile: {{user.personality_profile}}"}
	]`))

	c := testContext()
	first := e.Expand(sections, c)
	second := e.Expand(sections, c)
	require.Equal(t, first, second)
}

func TestExpand_PreservesSectionKind(t *testing.T) {
	e := NewExpander(logger.NewNoOpLogger())
	sections := template.MustParse([]byte(`[
		{"id": "education", "title": "Education", "description_fn": "format_education"},
		{"id": "overview", "prompt": "Overview of {{occupation.career_title}}."}
	]`))

	expanded := e.Expand(sections, testContext())
	assert.Equal(t, template.KindComputed, expanded[0].Kind())
	assert.Equal(t, template.KindPrompt, expanded[1].Kind())
}

func TestRenderValue(t *testing.T) {
	assert.Equal(t, "plain", renderValue("plain"))
	assert.Equal(t, "42", renderValue(42))
	assert.Equal(t, "a, b", renderValue([]string{"a", "b"}))
	assert.Contains(t, renderValue(json.RawMessage(`{"k":"v"}`)), `"k": "v"`)
	assert.Contains(t, renderValue([]onet.EducationCategory{{Requirement: "None", Percentage: 10}}),
		"10% responded: None required")
}
