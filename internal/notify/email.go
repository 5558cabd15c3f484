// Package notify sends report completion emails through SES.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"career-report-workers/internal/common/config"
	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/report"
)

// EmailSender is the SES surface we need.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// ReportLookup resolves the report and its student for addressing.
type ReportLookup interface {
	Get(ctx context.Context, id string) (*report.Report, error)
}

// StudentLookup resolves the recipient.
type StudentLookup interface {
	StudentByID(ctx context.Context, id string) (*report.Student, error)
}

// EmailNotifier emails the student when their report finishes.
type EmailNotifier struct {
	sender   EmailSender
	reports  ReportLookup
	students StudentLookup
	cfg      config.NotificationConfig
	logger   logger.Logger
}

func NewEmailNotifier(sender EmailSender, reports ReportLookup, students StudentLookup, cfg config.NotificationConfig, log logger.Logger) *EmailNotifier {
	return &EmailNotifier{
		sender:   sender,
		reports:  reports,
		students: students,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "email-notifier"}),
	}
}

// ReportCompleted sends the download link to the report's student. A
// student without an email address is skipped, not an error.
func (n *EmailNotifier) ReportCompleted(ctx context.Context, reportID string) error {
	r, err := n.reports.Get(ctx, reportID)
	if err != nil {
		return err
	}
	student, err := n.students.StudentByID(ctx, r.StudentID)
	if err != nil {
		return err
	}
	if student.Email == "" {
		n.logger.Info("student has no email, skipping notification", map[string]interface{}{
			"reportId":  reportID,
			"studentId": student.ID,
		})
		return nil
	}

	downloadURL := fmt.Sprintf("%s/reports/%s", n.cfg.DownloadBaseURL, reportID)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour career report is ready. You can view and download it here:\n\n%s\n",
		student.DisplayName(), downloadURL)

	input := &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{student.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("Your career report is ready")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}

	if _, err := n.sender.SendEmail(ctx, input); err != nil {
		return errors.NewNotificationSendFailedError("report_completed", err)
	}

	n.logger.Info("completion email sent", map[string]interface{}{
		"reportId":  reportID,
		"studentId": student.ID,
	})
	return nil
}
