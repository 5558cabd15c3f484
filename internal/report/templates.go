package report

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/template"
)

// TemplateStore manages stored section templates. Template bodies are
// schema-validated before they ever reach the database, so reads can trust
// the stored JSON.
type TemplateStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewTemplateStore(db *sql.DB, log logger.Logger) *TemplateStore {
	return &TemplateStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "template-store"}),
	}
}

// Save validates and inserts a template. A missing ID is generated.
func (s *TemplateStore) Save(ctx context.Context, t *Template) error {
	if _, err := template.ParseAndValidate(t.Body); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jcr_templates (id, name, body, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Name, []byte(t.Body), t.IsDefault, t.CreatedAt)
	if err != nil {
		return errors.NewQueryExecutionFailedError("save_template", err)
	}

	s.logger.Info("template saved", map[string]interface{}{
		"templateId": t.ID,
		"name":       t.Name,
	})
	return nil
}

// DefaultTemplate returns the template flagged as default.
func (s *TemplateStore) DefaultTemplate(ctx context.Context) (*Template, error) {
	return s.scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT id, name, body, is_default, created_at
		FROM jcr_templates WHERE is_default = true
		ORDER BY created_at DESC LIMIT 1`), "default")
}

// TemplateByName returns the named template.
func (s *TemplateStore) TemplateByName(ctx context.Context, name string) (*Template, error) {
	return s.scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT id, name, body, is_default, created_at
		FROM jcr_templates WHERE name = $1`, name), name)
}

func (s *TemplateStore) scanTemplate(row *sql.Row, key string) (*Template, error) {
	var t Template
	var body []byte
	err := row.Scan(&t.ID, &t.Name, &body, &t.IsDefault, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewTemplateNotFoundError(key)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_template", err)
	}
	t.Body = body
	return &t, nil
}
