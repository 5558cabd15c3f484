package generator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/onet"
	"career-report-workers/internal/principles"
)

type fakeOccupations struct {
	title     string
	education []onet.EducationCategory
	err       error
}

func (f *fakeOccupations) TitleByCode(ctx context.Context, socCode string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.title, nil
}

func (f *fakeOccupations) list(items ...string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return items, nil
}

func (f *fakeOccupations) Tasks(ctx context.Context, socCode string) ([]string, error) {
	return f.list("Study scripts", "Rehearse roles")
}
func (f *fakeOccupations) WorkActivities(ctx context.Context, socCode string) ([]string, error) {
	return f.list("Performing for the Public")
}
func (f *fakeOccupations) DetailedWorkActivities(ctx context.Context, socCode string) ([]string, error) {
	return f.list("Perform music for the public")
}
func (f *fakeOccupations) WorkContext(ctx context.Context, socCode string) ([]string, error) {
	return f.list("Public Speaking")
}
func (f *fakeOccupations) Skills(ctx context.Context, socCode string) ([]string, error) {
	return f.list("Speaking", "Reading Comprehension")
}
func (f *fakeOccupations) Abilities(ctx context.Context, socCode string) ([]string, error) {
	return f.list("Memorization")
}
func (f *fakeOccupations) WorkValues(ctx context.Context, socCode string) ([]string, error) {
	return f.list("Achievement")
}
func (f *fakeOccupations) WorkStyles(ctx context.Context, socCode string) ([]string, error) {
	return f.list("Persistence")
}
func (f *fakeOccupations) Knowledge(ctx context.Context, socCode string) ([]onet.ScoredItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []onet.ScoredItem{{Name: "Fine Arts", Importance: 4.2}}, nil
}
func (f *fakeOccupations) Education(ctx context.Context, socCode string) ([]onet.EducationCategory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.education, nil
}
func (f *fakeOccupations) Interests(ctx context.Context, socCode string) ([]onet.Interest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []onet.Interest{{Name: "Artistic", Description: "Work with forms and designs"}}, nil
}
func (f *fakeOccupations) RelatedOccupations(ctx context.Context, socCode string) ([]string, error) {
	return f.list("Producers and Directors")
}

type fakeAssessments struct {
	scores  *principles.PpmScores
	margin  float64
	student *principles.Student
	err     error
}

func (f *fakeAssessments) PpmScores(ctx context.Context, accountID string) (*principles.PpmScores, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func (f *fakeAssessments) Results(ctx context.Context, accountID string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"profile": "creative"}`), nil
}

func (f *fakeAssessments) CompatibilityScore(ctx context.Context, accountID string, weightings map[string]map[string]string) (*principles.CompatibilityScore, error) {
	if f.err != nil {
		return nil, f.err
	}
	score := &principles.CompatibilityScore{Raw: json.RawMessage(`{}`)}
	score.CustomOccupationsErrorMargins.ErrorMargins = map[string]principles.ErrorMargin{
		weightingKey: {Value: f.margin},
	}
	return score, nil
}

func (f *fakeAssessments) Student(ctx context.Context, accountID string) (*principles.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.student, nil
}

func newTestBuilder(occ *fakeOccupations, assess *fakeAssessments, t *testing.T) *Builder {
	return NewBuilder(occ, assess, logger.NewTestLogger(t))
}

func defaultFakes() (*fakeOccupations, *fakeAssessments) {
	occ := &fakeOccupations{
		title: "Actors",
		education: []onet.EducationCategory{
			{Requirement: "Bachelor's degree", Percentage: 42.5},
			{Requirement: "High school diploma", Percentage: 30},
		},
	}
	assess := &fakeAssessments{
		scores: &principles.PpmScores{PpmScore: map[string]principles.TraitScore{
			"Creativity": {RawScore: 82.5},
			"Ambition":   {RawScore: 64},
		}},
		margin:  0.5,
		student: &principles.Student{AccountID: "acct-1", DisplayName: "Ada Lovelace"},
	}
	return occ, assess
}

func TestBuildContext(t *testing.T) {
	occ, assess := defaultFakes()
	b := newTestBuilder(occ, assess, t)

	c, err := b.BuildContext(context.Background(), "27-2011.00", "acct-1", "")
	require.NoError(t, err)

	title, ok := c.Value("occupation.career_title")
	require.True(t, ok)
	assert.Equal(t, "Actors", title)

	assert.Equal(t, "Ada Lovelace", c.DisplayName())

	scores, _ := c.Value("user.ppm_scores")
	assert.Equal(t, "Ambition - 64; Creativity - 82.5;", scores)

	pct, _ := c.Value("user.compatibility_percentage")
	assert.Equal(t, 75, pct)

	knowledge, _ := c.Value("occupation.knowledge")
	assert.Equal(t, []string{"Fine Arts"}, knowledge)

	assert.Len(t, c.Education(), 2)
}

func TestBuildContext_ExplicitDisplayNameSkipsLookup(t *testing.T) {
	occ, assess := defaultFakes()
	assess.student = nil // a lookup would panic
	b := newTestBuilder(occ, assess, t)

	c, err := b.BuildContext(context.Background(), "27-2011.00", "acct-1", "Grace Hopper")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", c.DisplayName())
}

func TestBuildContext_Deterministic(t *testing.T) {
	occ, assess := defaultFakes()
	b := newTestBuilder(occ, assess, t)

	first, err := b.BuildContext(context.Background(), "27-2011.00", "acct-1", "")
	require.NoError(t, err)
	second, err := b.BuildContext(context.Background(), "27-2011.00", "acct-1", "")
	require.NoError(t, err)

	require.Equal(t, first.Keys(), second.Keys())
	for _, key := range first.Keys() {
		a, _ := first.Value(key)
		bval, _ := second.Value(key)
		assert.Equal(t, a, bval, "key %s", key)
	}
}

func TestBuildContext_UpstreamFailure(t *testing.T) {
	occ, assess := defaultFakes()
	occ.err = errors.NewOnetQueryFailedError("tasks", assertableErr{})
	b := newTestBuilder(occ, assess, t)

	_, err := b.BuildContext(context.Background(), "27-2011.00", "acct-1", "")
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeUpstreamDataUnavailable, stdErr.Code)
}

type assertableErr struct{}

func (assertableErr) Error() string { return "connection refused" }

func TestCompatibilityPercentage(t *testing.T) {
	tests := []struct {
		margin float64
		want   int
	}{
		{-1, 0},
		{0, 50},
		{1, 100},
		{0.5, 75},
		{-0.5, 25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompatibilityPercentage(tt.margin))
	}
}

func TestFormatEducation(t *testing.T) {
	rows := []onet.EducationCategory{
		{Requirement: "Bachelor's degree", Percentage: 42.5},
		{Requirement: "High school diploma", Percentage: 30},
	}

	got := FormatEducation(rows)
	assert.Equal(t,
		"Education\nHow much education does a new hire need to perform a job in this occupation? Respondents said:\n"+
			"42.5% responded: Bachelor's degree required\n"+
			"30% responded: High school diploma required\n",
		got)
}

func TestFormatEducation_Empty(t *testing.T) {
	assert.Equal(t, "No education data available for this occupation.", FormatEducation(nil))
}
