package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-report-workers/internal/common/errors"
)

func TestParse_ResolvesKinds(t *testing.T) {
	data := []byte(`[
		{"id": "heading", "title": "Career compatibility score %: {{user.compatibility_percentage}}"},
		{"id": "overview", "title": "Overview", "prompt": "Describe {{occupation.career_title}}"},
		{"id": "education", "title": "Education", "description_fn": "format_education"},
		{"id": "education_outlook", "description_fn": "format_education", "prompt": "Summarize the education data."}
	]`)

	sections, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, sections, 4)

	assert.Equal(t, KindStatic, sections[0].Kind())
	assert.Equal(t, KindPrompt, sections[1].Kind())
	assert.Equal(t, KindComputed, sections[2].Kind())

	// prompt wins the classification; the description_fn still applies
	assert.Equal(t, KindPrompt, sections[3].Kind())
	assert.Equal(t, "format_education", sections[3].DescriptionFn)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "unknown description fn",
			input:   `[{"id": "a", "description_fn": "format_salary"}]`,
			wantErr: "unknown description_fn",
		},
		{
			name:    "description and description_fn together",
			input:   `[{"id": "a", "description": "x", "description_fn": "format_education"}]`,
			wantErr: "both description and description_fn",
		},
		{
			name:    "missing id",
			input:   `[{"title": "x"}]`,
			wantErr: "no id",
		},
		{
			name:    "duplicate id",
			input:   `[{"id": "a"}, {"id": "a"}]`,
			wantErr: "duplicate section id",
		},
		{
			name:    "empty template",
			input:   `[]`,
			wantErr: "no sections",
		},
		{
			name:    "invalid json",
			input:   `{`,
			wantErr: "invalid template JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)

			var stdErr *errors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, errors.ErrCodeTemplateValidationFailed, stdErr.Code)
			assert.Contains(t, stdErr.Details, tt.wantErr)
		})
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		valid   bool
	}{
		{
			name:  "valid sections",
			input: `[{"id": "overview", "prompt": "p"}]`,
			valid: true,
		},
		{
			name:  "unknown field rejected",
			input: `[{"id": "overview", "render_as": "html"}]`,
			valid: false,
		},
		{
			name:  "uppercase id rejected",
			input: `[{"id": "Overview"}]`,
			valid: false,
		},
		{
			name:  "empty array rejected",
			input: `[]`,
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON([]byte(tt.input))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDefault_IsWellFormed(t *testing.T) {
	sections := Default()
	require.NotEmpty(t, sections)

	seen := make(map[string]bool)
	for _, s := range sections {
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
		if s.DescriptionFn != "" {
			assert.True(t, DescriptionFns[s.DescriptionFn])
			assert.Equal(t, KindComputed, s.Kind())
		}
	}

	assert.True(t, seen["education"])
	assert.True(t, seen["overview"])
}
