package onet

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

func newProvider(t *testing.T) (*Provider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProvider(db, logger.NewTestLogger(t)), mock
}

func TestTitleByCode(t *testing.T) {
	p, mock := newProvider(t)

	mock.ExpectQuery(`SELECT title FROM onet__occupation_data`).
		WithArgs("27-2011.00").
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Actors"))

	title, err := p.TitleByCode(context.Background(), "27-2011.00")
	require.NoError(t, err)
	assert.Equal(t, "Actors", title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTitleByCode_NotFound(t *testing.T) {
	p, mock := newProvider(t)

	mock.ExpectQuery(`SELECT title FROM onet__occupation_data`).
		WithArgs("99-9999.00").
		WillReturnError(sql.ErrNoRows)

	_, err := p.TitleByCode(context.Background(), "99-9999.00")
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeOccupationNotFound, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestTasks(t *testing.T) {
	p, mock := newProvider(t)

	mock.ExpectQuery(`SELECT task FROM onet__task_statements`).
		WithArgs("27-2011.00").
		WillReturnRows(sqlmock.NewRows([]string{"task"}).
			AddRow("Study and rehearse roles from scripts.").
			AddRow("Work closely with directors."))

	tasks, err := p.Tasks(context.Background(), "27-2011.00")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Study and rehearse roles from scripts.",
		"Work closely with directors.",
	}, tasks)
}

func TestKnowledge_SortedByImportance(t *testing.T) {
	p, mock := newProvider(t)

	mock.ExpectQuery(`FROM onet__knowledge`).
		WithArgs("27-2011.00").
		WillReturnRows(sqlmock.NewRows([]string{"element_name", "data_value"}).
			AddRow("Fine Arts", 4.62).
			AddRow("English Language", 4.05))

	items, err := p.Knowledge(context.Background(), "27-2011.00")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ScoredItem{Name: "Fine Arts", Importance: 4.62}, items[0])
	assert.GreaterOrEqual(t, items[0].Importance, items[1].Importance)
}

func TestEducation(t *testing.T) {
	p, mock := newProvider(t)

	mock.ExpectQuery(`FROM onet__education_training_experience`).
		WithArgs("27-2011.00").
		WillReturnRows(sqlmock.NewRows([]string{"category_description", "data_value"}).
			AddRow("Bachelor's degree", 42.5).
			AddRow("Some college, no degree", 21.0))

	categories, err := p.Education(context.Background(), "27-2011.00")
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Bachelor's degree", categories[0].Requirement)
	assert.Equal(t, 42.5, categories[0].Percentage)
}

func TestInterestWeights(t *testing.T) {
	p, mock := newProvider(t)

	mock.ExpectQuery(`SELECT element_id, data_value FROM onet__interests`).
		WithArgs("27-2011.00").
		WillReturnRows(sqlmock.NewRows([]string{"element_id", "data_value"}).
			AddRow("1.B.1.a", 2.33).
			AddRow("1.B.1.b", 6.00))

	weights, err := p.InterestWeights(context.Background(), "27-2011.00")
	require.NoError(t, err)
	require.Len(t, weights, 2)
	assert.Equal(t, InterestWeight{ElementID: "1.B.1.a", Value: 2.33}, weights[0])
}

func TestStringList_QueryError(t *testing.T) {
	p, mock := newProvider(t)

	mock.ExpectQuery(`SELECT task FROM onet__task_statements`).
		WithArgs("27-2011.00").
		WillReturnError(assert.AnError)

	_, err := p.Tasks(context.Background(), "27-2011.00")
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeOnetQueryFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}
