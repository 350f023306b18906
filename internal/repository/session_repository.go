package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sevaportal/portal-api/internal/models"
)

var (
	// ErrVersionMismatch is returned when a compare-and-swap update finds a newer row version.
	ErrVersionMismatch = errors.New("session version mismatch")
	// ErrStudentConflict is returned when a membership write would put a student in two sessions
	// of the same project day.
	ErrStudentConflict = errors.New("student already booked on this day")
)

const sessionColumns = `id, project_key, date::text AS date, start_time, end_time, volunteer_id, student_ids, check_in_at, check_out_at, report, report_submitted, version, created_at, updated_at`

// SessionRepository provides persistence for scheduled sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ListByProjectDate returns every session for one project day ordered by start time.
func (r *SessionRepository) ListByProjectDate(ctx context.Context, projectKey, date string) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE project_key = $1 AND date = $2 ORDER BY start_time ASC, created_at ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, projectKey, date); err != nil {
		return nil, fmt.Errorf("list sessions by project date: %w", err)
	}
	return sessions, nil
}

// CountByProjectDate returns how many sessions already exist for a project day.
func (r *SessionRepository) CountByProjectDate(ctx context.Context, projectKey, date string) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE project_key = $1 AND date = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, projectKey, date); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return total, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// FindByStudentOnDate returns the session holding studentID on the project day, skipping excludeID.
func (r *SessionRepository) FindByStudentOnDate(ctx context.Context, projectKey, date, studentID, excludeID string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE project_key = $1 AND date = $2 AND $3 = ANY(student_ids) AND id <> $4 LIMIT 1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, projectKey, date, studentID, excludeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session by student: %w", err)
	}
	return &session, nil
}

// ListByVolunteer returns a volunteer's sessions, newest date first.
func (r *SessionRepository) ListByVolunteer(ctx context.Context, volunteerID string, filter models.SessionFilter) ([]models.Session, error) {
	conditions := []string{"volunteer_id = $1"}
	args := []interface{}{volunteerID}

	if filter.ProjectKey != "" {
		conditions = append(conditions, fmt.Sprintf("project_key = $%d", len(args)+1))
		args = append(args, filter.ProjectKey)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.From != "" {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, filter.To)
	}

	query := fmt.Sprintf("SELECT %s FROM sessions WHERE %s ORDER BY date DESC, start_time ASC", sessionColumns, strings.Join(conditions, " AND "))
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions by volunteer: %w", err)
	}
	return sessions, nil
}

// BulkCreate inserts a generated schedule within one transaction.
func (r *SessionRepository) BulkCreate(ctx context.Context, sessions []models.Session) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create sessions: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.bulkInsertSessions(ctx, tx, sessions); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) bulkInsertSessions(ctx context.Context, exec sqlx.ExtContext, sessions []models.Session) error {
	now := time.Now().UTC()
	for i := range sessions {
		payload := sessions[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.StudentIDs == nil {
			payload.StudentIDs = pq.StringArray{}
		}
		if payload.Version == 0 {
			payload.Version = 1
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO sessions (id, project_key, date, start_time, end_time, volunteer_id, student_ids, version, created_at, updated_at) VALUES (:id, :project_key, :date, :start_time, :end_time, :volunteer_id, :student_ids, :version, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert session: %w", err)
		}
		sessions[i] = payload
	}
	return nil
}

// UpdateStudents swaps the membership set when the stored version still equals expectedVersion
// and no other session of the same project day holds any of the students. Writers of one
// project day are serialised by an advisory lock. It returns the new version.
func (r *SessionRepository) UpdateStudents(ctx context.Context, id string, studentIDs []string, expectedVersion int) (version int, err error) {
	const lock = `SELECT pg_advisory_xact_lock(hashtext(project_key || ':' || date::text)) FROM sessions WHERE id = $1`
	const update = `UPDATE sessions SET student_ids = $2, version = version + 1, updated_at = $4 WHERE id = $1 AND version = $3 ` +
		`AND NOT EXISTS (SELECT 1 FROM sessions other WHERE other.project_key = sessions.project_key AND other.date = sessions.date AND other.id <> sessions.id AND other.student_ids && $2) RETURNING version`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin update session students: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, lock, id); err != nil {
		return 0, fmt.Errorf("lock session day: %w", err)
	}
	err = tx.GetContext(ctx, &version, update, id, pq.StringArray(studentIDs), expectedVersion, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		var current int
		if err = tx.GetContext(ctx, &current, `SELECT version FROM sessions WHERE id = $1`, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("reload session version: %w", err)
		}
		if err == nil && current == expectedVersion {
			err = ErrStudentConflict
		} else {
			err = ErrVersionMismatch
		}
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("update session students: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit update session students: %w", err)
	}
	return version, nil
}

// UpdateLifecycle persists check-in, check-out and report fields guarded by the session version.
func (r *SessionRepository) UpdateLifecycle(ctx context.Context, session *models.Session) error {
	const query = `UPDATE sessions SET check_in_at = $2, check_out_at = $3, report = $4, report_submitted = $5, version = version + 1, updated_at = $7 WHERE id = $1 AND version = $6 RETURNING version, updated_at`
	now := time.Now().UTC()
	row := r.db.QueryRowxContext(ctx, query, session.ID, session.CheckInAt, session.CheckOutAt, session.Report, session.ReportSubmitted, session.Version, now)
	if err := row.Scan(&session.Version, &session.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVersionMismatch
		}
		return fmt.Errorf("update session lifecycle: %w", err)
	}
	return nil
}
