// Package generator builds per-report generation contexts, expands section
// templates against them, and drives the assistant through each section of
// a report sequentially.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/onet"
	"career-report-workers/internal/principles"
)

// weightingKey is the target key the assessment service expects for ad-hoc
// occupation compatibility computations.
const weightingKey = "ea_"

// OccupationSource provides occupation data keyed by SOC code.
type OccupationSource interface {
	TitleByCode(ctx context.Context, socCode string) (string, error)
	Tasks(ctx context.Context, socCode string) ([]string, error)
	WorkActivities(ctx context.Context, socCode string) ([]string, error)
	DetailedWorkActivities(ctx context.Context, socCode string) ([]string, error)
	WorkContext(ctx context.Context, socCode string) ([]string, error)
	Skills(ctx context.Context, socCode string) ([]string, error)
	Abilities(ctx context.Context, socCode string) ([]string, error)
	WorkValues(ctx context.Context, socCode string) ([]string, error)
	WorkStyles(ctx context.Context, socCode string) ([]string, error)
	Knowledge(ctx context.Context, socCode string) ([]onet.ScoredItem, error)
	Education(ctx context.Context, socCode string) ([]onet.EducationCategory, error)
	Interests(ctx context.Context, socCode string) ([]onet.Interest, error)
	RelatedOccupations(ctx context.Context, socCode string) ([]string, error)
}

// AssessmentSource provides personality assessment data for one account.
type AssessmentSource interface {
	PpmScores(ctx context.Context, accountID string) (*principles.PpmScores, error)
	Results(ctx context.Context, accountID string) (json.RawMessage, error)
	CompatibilityScore(ctx context.Context, accountID string, weightings map[string]map[string]string) (*principles.CompatibilityScore, error)
	Student(ctx context.Context, accountID string) (*principles.Student, error)
}

// Context is the immutable value bag a report is generated from. Keys are
// namespaced ("occupation.tasks", "user.display_name"). Once built it is
// only read, never mutated, so expansion stays deterministic.
type Context struct {
	values    map[string]interface{}
	education []onet.EducationCategory
}

// Value returns the value for a namespaced key.
func (c *Context) Value(key string) (interface{}, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns all namespaced keys in sorted order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Education returns the raw education distribution rows for computed
// section descriptions.
func (c *Context) Education() []onet.EducationCategory {
	return c.education
}

// DisplayName returns the student's resolved display name.
func (c *Context) DisplayName() string {
	if v, ok := c.values["user.display_name"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Builder assembles generation contexts from the occupation and assessment
// providers.
type Builder struct {
	occupations OccupationSource
	assessments AssessmentSource
	logger      logger.Logger
}

func NewBuilder(occupations OccupationSource, assessments AssessmentSource, log logger.Logger) *Builder {
	return &Builder{
		occupations: occupations,
		assessments: assessments,
		logger:      log.WithFields(map[string]interface{}{"component": "context-builder"}),
	}
}

// BuildContext fetches everything the template layer may reference. Any
// upstream failure aborts the build: a report generated from partial data
// would read as authoritative while silently missing half its inputs.
func (b *Builder) BuildContext(ctx context.Context, socCode, accountID, displayName string) (*Context, error) {
	values := map[string]interface{}{}

	if err := b.buildOccupation(ctx, socCode, values); err != nil {
		return nil, errors.NewUpstreamDataUnavailableError(
			fmt.Sprintf("occupation %s: %v", socCode, err))
	}

	education, err := b.occupations.Education(ctx, socCode)
	if err != nil {
		return nil, errors.NewUpstreamDataUnavailableError(
			fmt.Sprintf("occupation %s: %v", socCode, err))
	}
	values["occupation.education"] = education

	if err := b.buildUser(ctx, accountID, displayName, values); err != nil {
		return nil, errors.NewUpstreamDataUnavailableError(
			fmt.Sprintf("account %s: %v", accountID, err))
	}

	b.logger.Info("generation context built", map[string]interface{}{
		"socCode":   socCode,
		"accountId": accountID,
		"keys":      len(values),
	})

	return &Context{values: values, education: education}, nil
}

func (b *Builder) buildOccupation(ctx context.Context, socCode string, values map[string]interface{}) error {
	title, err := b.occupations.TitleByCode(ctx, socCode)
	if err != nil {
		return err
	}
	values["occupation.career_title"] = title
	values["occupation.soc_code"] = socCode

	lists := []struct {
		key   string
		fetch func(context.Context, string) ([]string, error)
	}{
		{"occupation.tasks", b.occupations.Tasks},
		{"occupation.work_activities", b.occupations.WorkActivities},
		{"occupation.detailed_work_activities", b.occupations.DetailedWorkActivities},
		{"occupation.work_context", b.occupations.WorkContext},
		{"occupation.skills", b.occupations.Skills},
		{"occupation.abilities", b.occupations.Abilities},
		{"occupation.work_values", b.occupations.WorkValues},
		{"occupation.work_styles", b.occupations.WorkStyles},
		{"occupation.related_occupations", b.occupations.RelatedOccupations},
	}
	for _, l := range lists {
		items, err := l.fetch(ctx, socCode)
		if err != nil {
			return err
		}
		values[l.key] = items
	}

	knowledge, err := b.occupations.Knowledge(ctx, socCode)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(knowledge))
	for _, k := range knowledge {
		names = append(names, k.Name)
	}
	values["occupation.knowledge"] = names

	interests, err := b.occupations.Interests(ctx, socCode)
	if err != nil {
		return err
	}
	described := make([]string, 0, len(interests))
	for _, in := range interests {
		described = append(described, fmt.Sprintf("%s: %s", in.Name, in.Description))
	}
	values["occupation.interests"] = described

	return nil
}

func (b *Builder) buildUser(ctx context.Context, accountID, displayName string, values map[string]interface{}) error {
	if displayName == "" {
		student, err := b.assessments.Student(ctx, accountID)
		if err != nil {
			return err
		}
		displayName = student.DisplayName
	}
	values["user.display_name"] = displayName

	scores, err := b.assessments.PpmScores(ctx, accountID)
	if err != nil {
		return err
	}
	values["user.ppm_scores"] = formatPpmScores(scores)

	weightings := scores.OccupationWeightings(weightingKey)
	values["user.occupation_weightings"] = weightings

	profile, err := b.assessments.Results(ctx, accountID)
	if err != nil {
		return err
	}
	values["user.personality_profile"] = profile

	compat, err := b.assessments.CompatibilityScore(ctx, accountID, weightings)
	if err != nil {
		return err
	}
	values["user.compatibility_score"] = compat.Raw

	margin, ok := compat.Margin(weightingKey)
	if !ok {
		return fmt.Errorf("compatibility response missing %q margin", weightingKey)
	}
	values["user.compatibility_percentage"] = CompatibilityPercentage(margin.Value)

	return nil
}

// CompatibilityPercentage maps a signed [-1,1] error margin onto a 0-100
// score.
func CompatibilityPercentage(errorMargin float64) int {
	return int(math.Round(((errorMargin + 1) / 2) * 100))
}

// formatPpmScores renders the trait scores as the compact "Trait - score;"
// string the prompts embed. Traits are sorted for determinism.
func formatPpmScores(scores *principles.PpmScores) string {
	traits := make([]string, 0, len(scores.PpmScore))
	for trait := range scores.PpmScore {
		traits = append(traits, trait)
	}
	sort.Strings(traits)

	parts := make([]string, 0, len(traits))
	for _, trait := range traits {
		parts = append(parts, fmt.Sprintf("%s - %g;", trait, scores.PpmScore[trait].RawScore))
	}
	return strings.Join(parts, " ")
}

// FormatEducation renders the education requirement distribution as the
// report's education section description.
func FormatEducation(rows []onet.EducationCategory) string {
	if len(rows) == 0 {
		return "No education data available for this occupation."
	}

	var sb strings.Builder
	sb.WriteString("Education\nHow much education does a new hire need to perform a job in this occupation? Respondents said:\n")
	for _, row := range rows {
		fmt.Fprintf(&sb, "%g%% responded: %s required\n", row.Percentage, row.Requirement)
	}
	return sb.String()
}
