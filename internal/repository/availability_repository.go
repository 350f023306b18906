package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sevaportal/portal-api/internal/models"
)

const availabilityColumns = `a.id, a.volunteer_id, u.full_name AS volunteer_name, a.project_key, a.date::text AS date, a.grades, a.note, a.created_at, a.updated_at`

// AvailabilityRepository stores volunteer availability declarations.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Upsert creates or replaces the availability for (volunteer, project, date).
func (r *AvailabilityRepository) Upsert(ctx context.Context, availability *models.Availability) error {
	if availability.ID == "" {
		availability.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if availability.CreatedAt.IsZero() {
		availability.CreatedAt = now
	}
	availability.UpdatedAt = now

	const query = `INSERT INTO availabilities (id, volunteer_id, project_key, date, grades, note, created_at, updated_at)
VALUES (:id, :volunteer_id, :project_key, :date, :grades, :note, :created_at, :updated_at)
ON CONFLICT (volunteer_id, project_key, date) DO UPDATE SET grades = EXCLUDED.grades, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, availability)
	if err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&availability.ID, &availability.CreatedAt); err != nil {
			return fmt.Errorf("scan availability: %w", err)
		}
	}
	return rows.Err()
}

// FindByID loads one availability record.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities a JOIN users u ON u.id = a.volunteer_id WHERE a.id = $1`
	var availability models.Availability
	if err := r.db.GetContext(ctx, &availability, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find availability: %w", err)
	}
	return &availability, nil
}

// ListByProjectDate returns declarations for a project day in submission order.
func (r *AvailabilityRepository) ListByProjectDate(ctx context.Context, projectKey, date string) ([]models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities a JOIN users u ON u.id = a.volunteer_id WHERE a.project_key = $1 AND a.date = $2 AND u.active = TRUE ORDER BY a.created_at ASC, a.id ASC`
	var items []models.Availability
	if err := r.db.SelectContext(ctx, &items, query, projectKey, date); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return items, nil
}

// ListByVolunteer returns every declaration owned by the volunteer from the given date on.
func (r *AvailabilityRepository) ListByVolunteer(ctx context.Context, volunteerID, from string) ([]models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities a JOIN users u ON u.id = a.volunteer_id WHERE a.volunteer_id = $1 AND a.date >= $2 ORDER BY a.date ASC, a.project_key ASC`
	var items []models.Availability
	if err := r.db.SelectContext(ctx, &items, query, volunteerID, from); err != nil {
		return nil, fmt.Errorf("list availability by volunteer: %w", err)
	}
	return items, nil
}

// Delete removes an availability record.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
