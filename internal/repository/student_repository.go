package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sevaportal/portal-api/internal/models"
)

// StudentRepository manages enrolled students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, name, email, grade, project_key FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindByIDs returns the students whose ids are listed, ordered by name.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, email, grade, project_key FROM students WHERE id IN (?) ORDER BY name ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build students query: %w", err)
	}
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	return students, nil
}

// ListUnassigned returns project students not listed in any session on the given date.
func (r *StudentRepository) ListUnassigned(ctx context.Context, projectKey, date string) ([]models.Student, error) {
	const query = `SELECT s.id, s.name, s.email, s.grade, s.project_key FROM students s
WHERE s.project_key = $1
AND NOT EXISTS (SELECT 1 FROM sessions ss WHERE ss.project_key = $1 AND ss.date = $2 AND s.id = ANY(ss.student_ids))
ORDER BY s.grade ASC, s.name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, projectKey, date); err != nil {
		return nil, fmt.Errorf("list unassigned students: %w", err)
	}
	return students, nil
}

// Create enrolls a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	const query = `INSERT INTO students (id, name, email, grade, project_key) VALUES (:id, :name, :email, :grade, :project_key)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}
