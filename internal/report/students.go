package report

import (
	"context"
	"database/sql"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

// StudentStore resolves students by application id or assessment account id.
type StudentStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStudentStore(db *sql.DB, log logger.Logger) *StudentStore {
	return &StudentStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "student-store"}),
	}
}

func (s *StudentStore) StudentByID(ctx context.Context, id string) (*Student, error) {
	return s.scanStudent(s.db.QueryRowContext(ctx, `
		SELECT id, account_id, first_name, last_name, email
		FROM students WHERE id = $1`, id), id)
}

func (s *StudentStore) StudentByAccountID(ctx context.Context, accountID string) (*Student, error) {
	return s.scanStudent(s.db.QueryRowContext(ctx, `
		SELECT id, account_id, first_name, last_name, email
		FROM students WHERE account_id = $1`, accountID), accountID)
}

func (s *StudentStore) scanStudent(row *sql.Row, key string) (*Student, error) {
	var st Student
	var firstName, lastName, email sql.NullString
	err := row.Scan(&st.ID, &st.AccountID, &firstName, &lastName, &email)
	if err == sql.ErrNoRows {
		return nil, errors.NewResourceNotFoundError("students", "student: "+key)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_student", err)
	}
	st.FirstName = firstName.String
	st.LastName = lastName.String
	st.Email = email.String
	return &st, nil
}
