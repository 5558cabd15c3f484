package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

// Store reads and writes career report rows. AppendSection assumes a
// single writer per report, which the queue consumer guarantees.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "report-store"}),
	}
}

// Create inserts a new pending report. A missing ID is generated.
func (s *Store) Create(ctx context.Context, r *Report) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Content == nil {
		r.Content = map[string]SectionContent{}
	}

	content, err := json.Marshal(r.Content)
	if err != nil {
		return errors.NewQueryExecutionFailedError("create_report", err)
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO career_reports
			(id, student_id, onet_soc_code, status, report_template, content, generation_log, job_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.StudentID, r.OnetSocCode, r.Status,
		nullableJSON(r.ReportTemplate), content, r.GenerationLog, r.JobID,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("create_report", err)
	}

	s.logger.Info("report created", map[string]interface{}{
		"reportId":  r.ID,
		"studentId": r.StudentID,
		"socCode":   r.OnetSocCode,
	})
	return nil
}

// Get loads a report by id.
func (s *Store) Get(ctx context.Context, id string) (*Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, onet_soc_code, status, report_template,
		       processed_template, content, generation_log, job_id,
		       created_at, updated_at
		FROM career_reports WHERE id = $1`, id)

	var r Report
	var reportTemplate, processedTemplate, content []byte
	var generationLog, jobID sql.NullString
	err := row.Scan(&r.ID, &r.StudentID, &r.OnetSocCode, &r.Status,
		&reportTemplate, &processedTemplate, &content,
		&generationLog, &jobID, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewReportNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_report", err)
	}

	r.ReportTemplate = reportTemplate
	r.ProcessedTemplate = processedTemplate
	r.GenerationLog = generationLog.String
	r.JobID = jobID.String
	r.Content = map[string]SectionContent{}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &r.Content); err != nil {
			return nil, errors.NewQueryExecutionFailedError("get_report", fmt.Errorf("decode content: %w", err))
		}
	}
	return &r, nil
}

// SetProcessedTemplate records the fully expanded template for the run.
// It is write-once so that a resumed job keeps generating from the same
// expanded prompts it started with.
func (s *Store) SetProcessedTemplate(ctx context.Context, id string, processed json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE career_reports
		SET processed_template = $2, updated_at = $3
		WHERE id = $1 AND processed_template IS NULL`,
		id, []byte(processed), time.Now().UTC())
	if err != nil {
		return errors.NewQueryExecutionFailedError("set_processed_template", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("set_processed_template", err)
	}
	if affected == 0 {
		s.logger.Debug("processed template already set", map[string]interface{}{"reportId": id})
	}
	return nil
}

// AppendSection merges one generated section into the content map and
// persists the result. Earlier sections are preserved.
func (s *Store) AppendSection(ctx context.Context, id, sectionID string, section SectionContent) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	r.Content[sectionID] = section
	content, err := json.Marshal(r.Content)
	if err != nil {
		return errors.NewQueryExecutionFailedError("append_section", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE career_reports SET content = $2, updated_at = $3 WHERE id = $1`,
		id, content, time.Now().UTC())
	if err != nil {
		return errors.NewQueryExecutionFailedError("append_section", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return errors.NewReportNotFoundError(id)
	}

	s.logger.Info("section persisted", map[string]interface{}{
		"reportId": id,
		"section":  sectionID,
	})
	return nil
}

// SetStatus updates the report lifecycle state.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE career_reports SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return errors.NewQueryExecutionFailedError("set_status", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return errors.NewReportNotFoundError(id)
	}
	return nil
}

// AppendLog appends a timestamped line to the report's generation log.
func (s *Store) AppendLog(ctx context.Context, id, line string) error {
	entry := fmt.Sprintf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), line)
	_, err := s.db.ExecContext(ctx, `
		UPDATE career_reports
		SET generation_log = COALESCE(generation_log, '') || $2, updated_at = $3
		WHERE id = $1`,
		id, entry, time.Now().UTC())
	if err != nil {
		return errors.NewQueryExecutionFailedError("append_log", err)
	}
	return nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
