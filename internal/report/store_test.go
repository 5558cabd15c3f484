package report

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, logger.NewTestLogger(t)), mock
}

func reportRows(content map[string]SectionContent) *sqlmock.Rows {
	body, _ := json.Marshal(content)
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "student_id", "onet_soc_code", "status", "report_template",
		"processed_template", "content", "generation_log", "job_id",
		"created_at", "updated_at",
	}).AddRow("rep-1", "stu-1", "27-2011.00", "processing", nil, nil, body, nil, nil, now, now)
}

// argCaptor records the bound query argument so tests can inspect what the
// store actually wrote.
type argCaptor struct {
	value driver.Value
}

func (c *argCaptor) Match(v driver.Value) bool {
	c.value = v
	return true
}

func TestStoreCreate(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(`INSERT INTO career_reports`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := &Report{StudentID: "stu-1", OnetSocCode: "27-2011.00"}
	require.NoError(t, s.Create(context.Background(), r))

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusPending, r.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGet_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(`SELECT .+ FROM career_reports`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeReportNotFound, stdErr.Code)
}

func TestAppendSection_PreservesEarlierSections(t *testing.T) {
	s, mock := newStore(t)

	existing := map[string]SectionContent{
		"introduction": {Title: "Introduction", Response: "hello"},
	}
	mock.ExpectQuery(`SELECT .+ FROM career_reports`).
		WithArgs("rep-1").
		WillReturnRows(reportRows(existing))

	captor := &argCaptor{}
	mock.ExpectExec(`UPDATE career_reports SET content`).
		WithArgs("rep-1", captor, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.AppendSection(context.Background(), "rep-1", "overview",
		SectionContent{Title: "Overview", Response: "the overview"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	written := map[string]SectionContent{}
	require.NoError(t, json.Unmarshal(captor.value.([]byte), &written))
	assert.Equal(t, "hello", written["introduction"].Response)
	assert.Equal(t, "the overview", written["overview"].Response)
}

func TestSetProcessedTemplate_WriteOnce(t *testing.T) {
	s, mock := newStore(t)

	// second write hits the IS NULL guard and affects no rows, which is
	// not an error
	mock.ExpectExec(`UPDATE career_reports`).
		WithArgs("rep-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetProcessedTemplate(context.Background(), "rep-1", json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatus_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(`UPDATE career_reports SET status`).
		WithArgs("missing", StatusFailed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetStatus(context.Background(), "missing", StatusFailed)
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeReportNotFound, stdErr.Code)
}

func TestAppendLog(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(`UPDATE career_reports`).
		WithArgs("rep-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.AppendLog(context.Background(), "rep-1", "section overview completed"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentByAccountID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewStudentStore(db, logger.NewTestLogger(t))

	mock.ExpectQuery(`SELECT .+ FROM students WHERE account_id`).
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "first_name", "last_name", "email"}).
			AddRow("stu-1", "acct-1", "Ada", "Lovelace", "ada@example.com"))

	st, err := s.StudentByAccountID(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", st.DisplayName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStore_SaveRejectsInvalidBody(t *testing.T) {
	db, _, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewTemplateStore(db, logger.NewTestLogger(t))

	err = s.Save(context.Background(), &Template{
		Name: "broken",
		Body: json.RawMessage(`[{"title": "missing id"}]`),
	})
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeTemplateValidationFailed, stdErr.Code)
}

func TestTemplateStore_DefaultTemplate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewTemplateStore(db, logger.NewTestLogger(t))

	body := `[{"id": "overview", "title": "Overview", "prompt": "Write an overview."}]`
	mock.ExpectQuery(`SELECT .+ FROM jcr_templates WHERE is_default`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "body", "is_default", "created_at"}).
			AddRow("tpl-1", "career-report-default", []byte(body), true, time.Now().UTC()))

	tpl, err := s.DefaultTemplate(context.Background())
	require.NoError(t, err)
	assert.True(t, tpl.IsDefault)
	assert.JSONEq(t, body, string(tpl.Body))
	assert.NoError(t, mock.ExpectationsWereMet())
}
