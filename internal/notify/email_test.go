package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-report-workers/internal/common/config"
	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/report"
)

type fakeSender struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSender) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{}, nil
}

type fakeReportLookup struct{ report *report.Report }

func (f *fakeReportLookup) Get(ctx context.Context, id string) (*report.Report, error) {
	return f.report, nil
}

type fakeStudentLookup struct{ student *report.Student }

func (f *fakeStudentLookup) StudentByID(ctx context.Context, id string) (*report.Student, error) {
	return f.student, nil
}

func notifierConfig() config.NotificationConfig {
	cfg := config.NotificationConfig{DownloadBaseURL: "https://app.example.com"}
	cfg.Email.Enabled = true
	cfg.Email.FromEmail = "reports@example.com"
	return cfg
}

func TestReportCompleted(t *testing.T) {
	sender := &fakeSender{}
	n := NewEmailNotifier(sender,
		&fakeReportLookup{report: &report.Report{ID: "rep-1", StudentID: "stu-1"}},
		&fakeStudentLookup{student: &report.Student{ID: "stu-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}},
		notifierConfig(), logger.NewTestLogger(t))

	require.NoError(t, n.ReportCompleted(context.Background(), "rep-1"))

	require.Len(t, sender.inputs, 1)
	input := sender.inputs[0]
	assert.Equal(t, "reports@example.com", *input.Source)
	assert.Equal(t, []string{"ada@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, *input.Message.Body.Text.Data, "https://app.example.com/reports/rep-1")
	assert.Contains(t, *input.Message.Body.Text.Data, "Ada Lovelace")
}

func TestReportCompleted_NoEmailSkips(t *testing.T) {
	sender := &fakeSender{}
	n := NewEmailNotifier(sender,
		&fakeReportLookup{report: &report.Report{ID: "rep-1", StudentID: "stu-1"}},
		&fakeStudentLookup{student: &report.Student{ID: "stu-1", FirstName: "Ada"}},
		notifierConfig(), logger.NewTestLogger(t))

	require.NoError(t, n.ReportCompleted(context.Background(), "rep-1"))
	assert.Empty(t, sender.inputs)
}

func TestReportCompleted_SendFailure(t *testing.T) {
	sender := &fakeSender{err: fmt.Errorf("throttled")}
	n := NewEmailNotifier(sender,
		&fakeReportLookup{report: &report.Report{ID: "rep-1", StudentID: "stu-1"}},
		&fakeStudentLookup{student: &report.Student{ID: "stu-1", Email: "ada@example.com"}},
		notifierConfig(), logger.NewNoOpLogger())

	err := n.ReportCompleted(context.Background(), "rep-1")
	require.Error(t, err)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeNotificationSendFailed, stdErr.Code)
}
