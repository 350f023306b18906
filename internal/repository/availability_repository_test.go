package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevaportal/portal-api/internal/models"
)

func TestUpsertAvailabilityKeepsOriginalID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (volunteer_id, project_key, date) DO UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing", created))

	availability := &models.Availability{VolunteerID: "v1", ProjectKey: "alpha", Date: "2026-10-20", Grades: pq.Int64Array{3, 4}}
	require.NoError(t, repo.Upsert(context.Background(), availability))
	assert.Equal(t, "existing", availability.ID)
	assert.Equal(t, created, availability.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAvailabilityByProjectDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "volunteer_id", "volunteer_name", "project_key", "date", "grades", "note", "created_at", "updated_at"}).
		AddRow("a1", "v1", "Vera", "alpha", "2026-10-20", "{3,4}", nil, now, now).
		AddRow("a2", "v2", "Omar", "alpha", "2026-10-20", "{}", "late start", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.project_key = $1 AND a.date = $2 AND u.active = TRUE ORDER BY a.created_at ASC")).
		WithArgs("alpha", "2026-10-20").
		WillReturnRows(rows)

	items, err := repo.ListByProjectDate(context.Background(), "alpha", "2026-10-20")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Vera", items[0].VolunteerName)
	assert.True(t, items[0].Teaches(4))
	assert.False(t, items[0].Teaches(5))
	assert.True(t, items[1].Teaches(11))
	require.NotNil(t, items[1].Note)
	assert.Equal(t, "late start", *items[1].Note)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAvailabilityMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availabilities WHERE id = $1")).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
